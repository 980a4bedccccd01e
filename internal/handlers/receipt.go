package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/velstore/posgo/internal/models"
	"github.com/velstore/posgo/internal/services/receipt"
	"github.com/velstore/posgo/internal/store"
)

// ReceiptHandler renders PDF receipts for completed orders
type ReceiptHandler struct {
	store    *store.Store
	cfg      receipt.Config
	tenantID string
}

func NewReceiptHandler(s *store.Store, cfg receipt.Config, tenantID string) *ReceiptHandler {
	return &ReceiptHandler{store: s, cfg: cfg, tenantID: tenantID}
}

func (h *ReceiptHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/orders/{id}/receipt", h.generateReceipt).Methods("POST", "GET")
}

func (h *ReceiptHandler) generateReceipt(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var order models.Order
	if err := h.store.DB().
		Preload("Items").
		Preload("Payments").
		Where("tenant_id = ? AND id = ?", h.tenantID, vars["id"]).
		First(&order).Error; err != nil {
		httpError(w, http.StatusNotFound, errors.New("order not found"))
		return
	}

	var customer *models.Customer
	if order.CustomerID != nil {
		var c models.Customer
		if err := h.store.Get(&c, h.tenantID, *order.CustomerID); err == nil {
			customer = &c
		}
	}

	pdfBytes, err := receipt.Generate(h.cfg, &order, customer)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="receipt-`+order.OrderNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
