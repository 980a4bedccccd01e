package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/velstore/posgo/internal/database"
	"github.com/velstore/posgo/internal/models"
	syncpkg "github.com/velstore/posgo/internal/sync"
	ws "github.com/velstore/posgo/internal/websocket"
)

// Router wraps the mux router and the app's shared dependencies
type Router struct {
	*mux.Router
	db  *database.DB
	hub *ws.Hub
}

// NewRouter creates the HTTP router with all routes
func NewRouter(db *database.DB, hub *ws.Hub, sh *SyncHandler, rh *ReceiptHandler) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		db:     db,
		hub:    hub,
	}

	r.HandleFunc("/api/health", r.healthCheck).Methods("GET")

	sh.RegisterRoutes(r.Router)
	rh.RegisterRoutes(r.Router)

	// Device registry
	r.HandleFunc("/api/devices", r.listDevices).Methods("GET")
	r.HandleFunc("/api/devices/{id}", r.getDevice).Methods("GET")

	// Terminal push channel
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWs(hub, w, req)
	})

	return r
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"terminals": r.hub.ConnectedCount(),
	})
}

func (r *Router) listDevices(w http.ResponseWriter, req *http.Request) {
	var devices []models.DeviceRecord
	if err := r.db.Order("last_active_at DESC").Find(&devices).Error; err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(devices),
		"devices": devices,
	})
}

func (r *Router) getDevice(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	var device models.DeviceRecord
	if err := r.db.First(&device, "device_id = ?", vars["id"]).Error; err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// httpError writes a JSON error body
func httpError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFromSyncErr maps engine precondition errors to HTTP statuses
func statusFromSyncErr(err error) int {
	switch err {
	case syncpkg.ErrSyncInProgress:
		return http.StatusConflict
	case syncpkg.ErrDeviceOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
