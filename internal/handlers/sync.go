package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/velstore/posgo/internal/models"
	syncpkg "github.com/velstore/posgo/internal/sync"
)

// SyncHandler exposes the sync engine over HTTP
type SyncHandler struct {
	engine   *syncpkg.Engine
	queue    *syncpkg.Queue
	probe    syncpkg.ConnectivityProbe
	tenantID string
	deviceID string
}

func NewSyncHandler(engine *syncpkg.Engine, queue *syncpkg.Queue, probe syncpkg.ConnectivityProbe, tenantID, deviceID string) *SyncHandler {
	return &SyncHandler{
		engine:   engine,
		queue:    queue,
		probe:    probe,
		tenantID: tenantID,
		deviceID: deviceID,
	}
}

func (h *SyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sync/status", h.status).Methods("GET")
	r.HandleFunc("/api/sync/trigger", h.trigger).Methods("POST")
	r.HandleFunc("/api/sync/conflicts", h.listConflicts).Methods("GET")
	r.HandleFunc("/api/sync/conflicts/{id}/resolve", h.resolveConflict).Methods("POST")
	r.HandleFunc("/api/sync/operations/failed", h.failedOperations).Methods("GET")
}

func (h *SyncHandler) status(w http.ResponseWriter, req *http.Request) {
	pending, err := h.queue.PendingCount(h.tenantID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	failed, err := h.queue.Failed(h.tenantID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	var openConflicts int64
	if err := h.engine.DB().Model(&models.SyncConflict{}).
		Where("tenant_id = ? AND status = ?", h.tenantID, models.ConflictStatusPending).
		Count(&openConflicts).Error; err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	body := map[string]interface{}{
		"pendingOperations": pending,
		"failedOperations":  len(failed),
		"openConflicts":     openConflicts,
		"syncInProgress":    h.engine.InProgress(),
		"deviceOnline":      h.probe.IsOnline(),
	}
	if last := h.engine.LastSync(); !last.IsZero() {
		body["lastSync"] = last
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *SyncHandler) trigger(w http.ResponseWriter, req *http.Request) {
	result, err := h.engine.SyncCycle(req.Context(), h.tenantID)
	if err != nil {
		httpError(w, statusFromSyncErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SyncHandler) listConflicts(w http.ResponseWriter, req *http.Request) {
	query := h.engine.DB().Where("tenant_id = ?", h.tenantID)
	if req.URL.Query().Get("all") == "" {
		query = query.Where("status = ?", models.ConflictStatusPending)
	}

	var conflicts []models.SyncConflict
	if err := query.Order("created_at DESC").Find(&conflicts).Error; err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(conflicts),
		"conflicts": conflicts,
	})
}

type resolveRequest struct {
	Winner string `json:"winner"`
}

func (h *SyncHandler) resolveConflict(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)

	var body resolveRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.Winner != "local" && body.Winner != "remote" {
		httpError(w, http.StatusBadRequest, fmt.Errorf("winner must be 'local' or 'remote', got %q", body.Winner))
		return
	}

	if err := h.engine.Resolver().ResolveManual(h.engine.Registry(), vars["id"], h.deviceID, body.Winner); err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "resolved",
		"winner": body.Winner,
	})
}

func (h *SyncHandler) failedOperations(w http.ResponseWriter, req *http.Request) {
	failed, err := h.queue.Failed(h.tenantID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(failed),
		"operations": failed,
	})
}
