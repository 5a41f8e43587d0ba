package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/middleware"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/internal/response"
)

type syncService interface {
	Sync(ctx context.Context, connectionID string, syncType models.SyncType, uid string) (dto.SyncResult, error)
	TestConnection(ctx context.Context, req dto.TestConnectionRequest) (dto.TestConnectionResult, error)
	Status(ctx context.Context, connectionID string) (dto.SyncStatus, error)
	Logs(ctx context.Context, connectionID string, page, limit int) (dto.SyncLogPage, error)
}

// connectionAuthorizer is the slice of the connection service the sync
// routes need to check bureau membership.
type connectionAuthorizer interface {
	Authorize(ctx context.Context, uid, connectionID string, write bool) (*models.Connection, error)
}

type syncHandlers struct {
	ResponseHandler response.ResponseHandler
	SyncSvc         syncService
	Auth            connectionAuthorizer
}

func NewSyncHandlers(deps *Deps) *syncHandlers {
	return &syncHandlers{
		ResponseHandler: deps.ResponseHandler,
		SyncSvc:         deps.SyncSvc,
		Auth:            deps.ConnectionSvc,
	}
}

func (h *syncHandlers) SyncRoutes(r chi.Router) {
	r.Post("/connections/test", h.TestConnection)
	r.Post("/connections/{connectionId}/sync", h.SyncConnection)
	r.Get("/connections/{connectionId}/status", h.SyncStatus)
	r.Get("/connections/{connectionId}/logs", h.SyncLogs)
}

func (h *syncHandlers) SyncConnection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type models.SyncType `json:"type,omitempty"`
	}
	if err := decodeJSON(w, r, &body, true); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	// Only manual runs can be triggered over HTTP.
	if body.Type != "" && body.Type != models.SyncManual {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError(fmt.Sprintf("sync type %q cannot be triggered manually", body.Type)))
		return
	}

	uid := middleware.UID(r.Context())
	connectionID := chi.URLParam(r, "connectionId")
	if _, err := h.Auth.Authorize(r.Context(), uid, connectionID, true); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	result, err := h.SyncSvc.Sync(r.Context(), connectionID, models.SyncManual, uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

func (h *syncHandlers) TestConnection(w http.ResponseWriter, r *http.Request) {
	var body dto.TestConnectionRequest
	if err := decodeJSON(w, r, &body, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	result, err := h.SyncSvc.TestConnection(r.Context(), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

func (h *syncHandlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	connectionID := chi.URLParam(r, "connectionId")
	if _, err := h.Auth.Authorize(r.Context(), uid, connectionID, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	status, err := h.SyncSvc.Status(r.Context(), connectionID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, status)
}

func (h *syncHandlers) SyncLogs(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r, "page")
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	connectionID := chi.URLParam(r, "connectionId")
	if _, err := h.Auth.Authorize(r.Context(), uid, connectionID, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	logs, err := h.SyncSvc.Logs(r.Context(), connectionID, page, limit)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, logs)
}

// intQuery returns 0 when the parameter is absent.
func intQuery(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.NewValidationError(key + " must be a non-negative integer")
	}
	return n, nil
}
