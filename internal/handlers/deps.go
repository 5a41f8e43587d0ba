package handlers

import (
	"log/slog"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/treasury-backend/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	Firebase        *auth.Client
	ConnectionSvc   connectionService
	SyncSvc         syncService
	ImportSvc       importService
	ReportSvc       reportService
}
