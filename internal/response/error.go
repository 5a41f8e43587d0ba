package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/pkg/logger"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *responseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	}); err != nil {
		// Use context logger if encoding fails
		log := logger.FromContext(r.Context())
		log.Error("failed to encode error response", "error", err, "status", status, "code", code)
	}
}

// HandleError maps the errs taxonomy to HTTP. Errors are matched through
// wrapping, so services may add context with %w.
func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var (
		connNotFound *errs.ConnectionNotFoundError
		notFound     *errs.NotFoundError
		exists       *errs.AlreadyExistsError
		validation   *errs.ValidationError
		unsupported  *errs.UnsupportedProviderError
		forbidden    *errs.ForbiddenError
		inProgress   *errs.SyncInProgressError
		bankOp       *errs.BankOperationError
		notConnected *errs.NotConnectedError
		database     *errs.DatabaseError
		external     *errs.ExternalServiceError
		cryptoErr    *errs.CryptoError
	)

	switch {
	case errors.As(err, &connNotFound):
		log.Warn("connection not found", "connection_id", connNotFound.ConnectionID)
		h.WriteError(w, r, http.StatusNotFound, "not_found", connNotFound.Message)

	case errors.As(err, &notFound):
		log.Warn("resource not found", "error", notFound.Message)
		h.WriteError(w, r, http.StatusNotFound, "not_found", notFound.Message)

	case errors.As(err, &exists):
		log.Warn("resource already exists", "error", exists.Message)
		h.WriteError(w, r, http.StatusConflict, "already_exists", exists.Message)

	case errors.As(err, &validation):
		log.Warn("validation failed", "error", validation.Message)
		h.WriteError(w, r, http.StatusBadRequest, "invalid_input", validation.Message)

	case errors.As(err, &unsupported):
		log.Warn("unsupported provider", "type", unsupported.ConnectionType)
		h.WriteError(w, r, http.StatusBadRequest, "unsupported_provider", unsupported.Message)

	case errors.As(err, &forbidden):
		log.Warn("forbidden", "error", forbidden.Message)
		h.WriteError(w, r, http.StatusForbidden, "forbidden", forbidden.Message)

	case errors.As(err, &inProgress):
		log.Info("sync already running", "connection_id", inProgress.ConnectionID)
		h.WriteError(w, r, http.StatusConflict, "sync_in_progress", inProgress.Message)

	case errors.As(err, &bankOp):
		log.Warn("bank operation failed",
			"provider", bankOp.Provider,
			"operation", bankOp.Operation,
			"error", bankOp.Err)
		h.WriteError(w, r, http.StatusBadGateway, "bank_operation_failed", bankOp.Error())

	case errors.As(err, &notConnected):
		log.Error("provider session not connected", "provider", notConnected.Provider)
		h.WriteError(w, r, http.StatusBadGateway, "bank_operation_failed", notConnected.Message)

	case errors.As(err, &database):
		log.Error("database error",
			"operation", database.Operation,
			"error", database.Message)
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An error occurred")

	case errors.As(err, &external):
		level := slog.LevelError
		if external.Transient {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "external service error",
			"service", external.Service,
			"transient", external.Transient,
			"error", external.Message)

		status := http.StatusBadGateway
		if external.Transient {
			status = http.StatusServiceUnavailable
		}
		h.WriteError(w, r, status, "service_unavailable",
			"Service temporarily unavailable")

	case errors.As(err, &cryptoErr):
		log.Error("credential vault error", "error", cryptoErr.Message)
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An error occurred")

	default:
		log.Error("unexpected error",
			"error", err,
			"type", fmt.Sprintf("%T", err))
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An unexpected error occurred")
	}
}
