package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/middleware"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/internal/response"
)

type reportService interface {
	Summary(ctx context.Context, uid, accountID string, args dto.ReportArgs) (dto.AccountSummary, error)
	Transactions(ctx context.Context, uid, accountID string, args dto.ReportArgs) (dto.TransactionList, error)
}

type reportHandlers struct {
	ResponseHandler response.ResponseHandler
	ReportSvc       reportService
}

func NewReportHandlers(deps *Deps) *reportHandlers {
	return &reportHandlers{
		ResponseHandler: deps.ResponseHandler,
		ReportSvc:       deps.ReportSvc,
	}
}

func (h *reportHandlers) ReportRoutes(r chi.Router) {
	r.Get("/accounts/{accountId}/transactions", h.ListTransactions)
	r.Get("/accounts/{accountId}/summary", h.Summary)
}

func (h *reportHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	args, err := reportArgs(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	list, err := h.ReportSvc.Transactions(r.Context(), uid, chi.URLParam(r, "accountId"), args)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, list)
}

func (h *reportHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	args, err := reportArgs(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	summary, err := h.ReportSvc.Summary(r.Context(), uid, chi.URLParam(r, "accountId"), args)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, summary)
}

func reportArgs(r *http.Request) (dto.ReportArgs, error) {
	q := r.URL.Query()
	args := dto.ReportArgs{
		GroupBy: q.Get("groupBy"),
		Desc:    q.Get("order") == "desc",
	}
	if v := q.Get("type"); v != "" {
		t := models.TransactionType(v)
		args.Type = &t
	}
	if v := q.Get("category"); v != "" {
		c := models.Category(v)
		args.Category = &c
	}
	if v := q.Get("source"); v != "" {
		s := models.TransactionSource(v)
		args.Source = &s
	}
	if v := q.Get("from"); v != "" {
		args.DateFrom = &v
	}
	if v := q.Get("to"); v != "" {
		args.DateTo = &v
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		return args, err
	}
	args.Limit = limit
	return args, nil
}
