package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/middleware"
	"github.com/GregMSThompson/treasury-backend/internal/response"
)

const maxUploadBytes = 10 << 20

type importService interface {
	ImportExcel(ctx context.Context, uid, accountID string, r io.Reader) (dto.ExcelImportResult, error)
}

type importHandlers struct {
	ResponseHandler response.ResponseHandler
	ImportSvc       importService
}

func NewImportHandlers(deps *Deps) *importHandlers {
	return &importHandlers{
		ResponseHandler: deps.ResponseHandler,
		ImportSvc:       deps.ImportSvc,
	}
}

func (h *importHandlers) ImportRoutes(r chi.Router) {
	r.Post("/accounts/{accountId}/import", h.ImportExcel)
}

func (h *importHandlers) ImportExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("expected a multipart form under 10MB"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("missing file field"))
		return
	}
	defer file.Close()

	uid := middleware.UID(r.Context())
	result, err := h.ImportSvc.ImportExcel(r.Context(), uid, chi.URLParam(r, "accountId"), file)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}
