package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/treasury-backend/internal/handlers"
	"github.com/GregMSThompson/treasury-backend/internal/middleware"
)

func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ch := handlers.NewConnectionHandlers(deps)
	sh := handlers.NewSyncHandlers(deps)
	ih := handlers.NewImportHandlers(deps)
	rph := handlers.NewReportHandlers(deps)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewMiddleware(deps.Firebase).FirebaseAuth)
		ch.ConnectionRoutes(r)
		sh.SyncRoutes(r)
		ih.ImportRoutes(r)
		rph.ReportRoutes(r)
	})
	return r
}
