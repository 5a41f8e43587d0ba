package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/middleware"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/internal/response"
)

type connectionService interface {
	Providers(country string) []dto.ProviderInfo
	LinkToken(ctx context.Context, uid string) (string, error)
	Create(ctx context.Context, uid string, req dto.CreateConnectionRequest) (*dto.ConnectionView, error)
	List(ctx context.Context, uid, bureauID string) ([]*models.Connection, error)
	Get(ctx context.Context, uid, connectionID string) (*dto.ConnectionView, error)
	Update(ctx context.Context, uid, connectionID string, req dto.UpdateConnectionRequest) (*dto.ConnectionView, error)
	Delete(ctx context.Context, uid, connectionID string) error
	Authorize(ctx context.Context, uid, connectionID string, write bool) (*models.Connection, error)
}

type connectionHandlers struct {
	ResponseHandler response.ResponseHandler
	ConnectionSvc   connectionService
}

func NewConnectionHandlers(deps *Deps) *connectionHandlers {
	return &connectionHandlers{
		ResponseHandler: deps.ResponseHandler,
		ConnectionSvc:   deps.ConnectionSvc,
	}
}

// Routes are mounted at the root; the sync handlers share /connections/{id}.
func (h *connectionHandlers) ConnectionRoutes(r chi.Router) {
	r.Get("/providers", h.ListProviders)
	r.Post("/plaid/link-token", h.CreateLinkToken)
	r.Post("/connections", h.CreateConnection)
	r.Get("/connections", h.ListConnections)
	r.Get("/connections/{connectionId}", h.GetConnection)
	r.Put("/connections/{connectionId}", h.UpdateConnection)
	r.Delete("/connections/{connectionId}", h.DeleteConnection)
}

func (h *connectionHandlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers := h.ConnectionSvc.Providers(r.URL.Query().Get("country"))
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, providers)
}

func (h *connectionHandlers) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	linkToken, err := h.ConnectionSvc.LinkToken(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, dto.PlaidLinkToken{LinkToken: linkToken})
}

func (h *connectionHandlers) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var body dto.CreateConnectionRequest
	if err := decodeJSON(w, r, &body, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	view, err := h.ConnectionSvc.Create(r.Context(), uid, body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, view)
}

func (h *connectionHandlers) ListConnections(w http.ResponseWriter, r *http.Request) {
	bureauID := r.URL.Query().Get("bureauId")
	if bureauID == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("bureauId query parameter is required"))
		return
	}

	uid := middleware.UID(r.Context())
	conns, err := h.ConnectionSvc.List(r.Context(), uid, bureauID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, conns)
}

func (h *connectionHandlers) GetConnection(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	view, err := h.ConnectionSvc.Get(r.Context(), uid, chi.URLParam(r, "connectionId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, view)
}

func (h *connectionHandlers) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	var body dto.UpdateConnectionRequest
	if err := decodeJSON(w, r, &body, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	view, err := h.ConnectionSvc.Update(r.Context(), uid, chi.URLParam(r, "connectionId"), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, view)
}

func (h *connectionHandlers) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	if err := h.ConnectionSvc.Delete(r.Context(), uid, chi.URLParam(r, "connectionId")); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}
