package dto

import (
	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

type CreateConnectionRequest struct {
	BureauID         string                `json:"bureauId"`
	Type             models.ConnectionType `json:"type"`
	Provider         string                `json:"provider"`
	Country          string                `json:"country"`
	Credentials      banking.Credentials   `json:"credentials"`
	Frequency        models.SyncFrequency  `json:"frequency,omitempty"`
	AutoSync         *bool                 `json:"autoSync,omitempty"`
	SyncTransactions *bool                 `json:"syncTransactions,omitempty"`
	SyncBalance      *bool                 `json:"syncBalance,omitempty"`
}

// UpdateConnectionRequest changes only the fields that are set. New
// credentials replace the stored ones entirely.
type UpdateConnectionRequest struct {
	Provider         *string               `json:"provider,omitempty"`
	IsActive         *bool                 `json:"isActive,omitempty"`
	Credentials      banking.Credentials   `json:"credentials,omitempty"`
	Frequency        *models.SyncFrequency `json:"frequency,omitempty"`
	AutoSync         *bool                 `json:"autoSync,omitempty"`
	SyncTransactions *bool                 `json:"syncTransactions,omitempty"`
	SyncBalance      *bool                 `json:"syncBalance,omitempty"`
}

type ConnectionView struct {
	*models.Connection
	Config *models.SyncConfig `json:"config"`
}

type ProviderInfo struct {
	Type             models.ConnectionType `json:"type"`
	Name             string                `json:"name"`
	AccountType      models.AccountType    `json:"accountType"`
	Countries        []string              `json:"countries,omitempty"` // empty means available everywhere
	CredentialFields []string              `json:"credentialFields"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ExcelImportResult struct {
	ImportResult
	Rows   int        `json:"rows"`
	Errors []RowError `json:"errors"`
}
