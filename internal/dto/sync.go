package dto

import (
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

// Ledger input for one sync run. Transactions carry everything except the
// account id, which the ledger resolves inside its transaction.
type SyncImport struct {
	BureauID     string
	ConnectionID string
	AccountName  string
	AccountType  models.AccountType
	Balance      *banking.Balance // nil when the balance was not fetched
	Transactions []models.Transaction
	CreatedBy    string
}

type ImportResult struct {
	AccountID string `json:"accountId"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
}

// SyncResult is returned by one orchestrator run.
type SyncResult struct {
	ConnectionID        string           `json:"connectionId"`
	LogID               string           `json:"logId"`
	Type                models.SyncType  `json:"type"`
	AccountID           string           `json:"accountId,omitempty"`
	TransactionsSynced  int              `json:"transactionsSynced"`
	TransactionsSkipped int              `json:"transactionsSkipped"`
	Balance             *banking.Balance `json:"balance,omitempty"`
}

const (
	BatchSuccess = "success"
	BatchError   = "error"
)

// BatchEntry is one connection's outcome within a scheduled batch.
type BatchEntry struct {
	ConnectionID       string `json:"connectionId"`
	Status             string `json:"status"`
	Error              string `json:"error,omitempty"`
	TransactionsSynced int    `json:"transactionsSynced"`
}

type TestConnectionRequest struct {
	Type        models.ConnectionType `json:"type"`
	Country     string                `json:"country"`
	Credentials banking.Credentials   `json:"credentials"`
}

type TestConnectionResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Balance *banking.Balance `json:"balance,omitempty"`
}

type SyncStatus struct {
	ConnectionID string          `json:"connectionId"`
	IsActive     bool            `json:"isActive"`
	LastSync     *time.Time      `json:"lastSync,omitempty"`
	LastSuccess  string          `json:"lastSuccess"` // RFC 3339 or "never"
	LastError    string          `json:"lastError,omitempty"`
	LastLog      *models.SyncLog `json:"lastLog,omitempty"`
	TotalRuns    int             `json:"totalRuns"`
}

type SyncLogPage struct {
	Logs  []*models.SyncLog `json:"logs"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Total int               `json:"total"`
}
