// Package receipt renders order receipts as PDF for thermal or laser
// printing at the terminal.
package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/velstore/posgo/internal/models"
)

// Config controls receipt layout
type Config struct {
	StoreName    string
	StoreAddress string
	FooterNote   string
	Currency     string
}

// DefaultConfig returns a usable layout for an unconfigured store
func DefaultConfig() Config {
	return Config{
		StoreName: "POS Terminal",
		Currency:  "EUR",
	}
}

// 80mm thermal roll, height grows with content
const (
	pageWidth  = 80.0
	marginX    = 5.0
	lineHeight = 4.5
)

// Generate renders a PDF receipt for one order
func Generate(cfg Config, order *models.Order, customer *models.Customer) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("order is required")
	}

	// Estimate height: header + lines + payments + footer with QR
	height := 70.0 + float64(len(order.Items)+len(order.Payments))*lineHeight + 40.0

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: pageWidth, Ht: height},
	})
	pdf.SetMargins(marginX, 5, marginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	usable := pageWidth - 2*marginX

	// Header
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(usable, 6, cfg.StoreName, "", 1, "C", false, 0, "")
	if cfg.StoreAddress != "" {
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(usable, 4, cfg.StoreAddress, "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(usable, lineHeight, "Order: "+order.OrderNumber, "", 1, "L", false, 0, "")
	pdf.CellFormat(usable, lineHeight, "Date: "+order.CreatedAt.Format(time.RFC822), "", 1, "L", false, 0, "")
	if customer != nil {
		pdf.CellFormat(usable, lineHeight, "Customer: "+customer.Name, "", 1, "L", false, 0, "")
	}
	divider(pdf, usable)

	// Line items
	pdf.SetFont("Arial", "", 8)
	for _, item := range order.Items {
		label := fmt.Sprintf("%dx @ %.2f", item.Quantity, item.UnitPrice)
		pdf.CellFormat(usable*0.65, lineHeight, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(usable*0.35, lineHeight, fmt.Sprintf("%.2f %s", item.Subtotal, cfg.Currency), "", 1, "R", false, 0, "")
	}
	divider(pdf, usable)

	// Totals
	if order.DiscountAmount > 0 {
		totalLine(pdf, usable, "Discount", -order.DiscountAmount, cfg.Currency, false)
	}
	totalLine(pdf, usable, "Tax", order.TaxAmount, cfg.Currency, false)
	totalLine(pdf, usable, "TOTAL", order.TotalAmount, cfg.Currency, true)

	// Payments
	if len(order.Payments) > 0 {
		pdf.Ln(1)
		pdf.SetFont("Arial", "", 8)
		for _, p := range order.Payments {
			pdf.CellFormat(usable*0.65, lineHeight, "Paid ("+string(p.Method)+")", "", 0, "L", false, 0, "")
			pdf.CellFormat(usable*0.35, lineHeight, fmt.Sprintf("%.2f %s", p.Amount, cfg.Currency), "", 1, "R", false, 0, "")
		}
	}
	divider(pdf, usable)

	// QR code with the order number for later lookup
	qr, err := qrcode.Encode(order.OrderNumber, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader("order-qr", opts, bytes.NewReader(qr))
	qrSize := 22.0
	pdf.ImageOptions("order-qr", (pageWidth-qrSize)/2, pdf.GetY()+2, qrSize, qrSize, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + qrSize + 4)

	if cfg.FooterNote != "" {
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(usable, 4, cfg.FooterNote, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func divider(pdf *gofpdf.Fpdf, usable float64) {
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(usable, 3, "--------------------------------", "", 1, "C", false, 0, "")
}

func totalLine(pdf *gofpdf.Fpdf, usable float64, label string, amount float64, currency string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Arial", style, 9)
	pdf.CellFormat(usable*0.65, lineHeight, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(usable*0.35, lineHeight, fmt.Sprintf("%.2f %s", amount, currency), "", 1, "R", false, 0, "")
}
