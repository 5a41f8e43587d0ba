package models

import (
	"time"
)

type SyncFrequency string

const (
	FrequencyHourly SyncFrequency = "HOURLY"
	FrequencyDaily  SyncFrequency = "DAILY"
	FrequencyManual SyncFrequency = "MANUAL"
)

// SyncConfig is stored 1:1 with a Connection, keyed by the connection id.
type SyncConfig struct {
	ConnectionID     string        `firestore:"connectionId" json:"connectionId"`
	Frequency        SyncFrequency `firestore:"frequency" json:"frequency"`
	AutoSync         bool          `firestore:"autoSync" json:"autoSync"`
	SyncTransactions bool          `firestore:"syncTransactions" json:"syncTransactions"`
	SyncBalance      bool          `firestore:"syncBalance" json:"syncBalance"`
	LastSuccess      *time.Time    `firestore:"lastSuccess" json:"lastSuccess,omitempty"`
	LastError        string        `firestore:"lastError" json:"lastError,omitempty"`
	UpdatedAt        time.Time     `firestore:"updatedAt" json:"updatedAt"`
}

// DefaultSyncConfig is applied when a connection is created without explicit settings.
func DefaultSyncConfig(connectionID string) *SyncConfig {
	return &SyncConfig{
		ConnectionID:     connectionID,
		Frequency:        FrequencyDaily,
		AutoSync:         true,
		SyncTransactions: true,
		SyncBalance:      true,
	}
}

type SyncType string

const (
	SyncManual        SyncType = "MANUAL"
	SyncScheduled     SyncType = "SCHEDULED"
	SyncInitial       SyncType = "INITIAL"
	SyncErrorRecovery SyncType = "ERROR_RECOVERY"
)

func (t SyncType) Valid() bool {
	switch t {
	case SyncManual, SyncScheduled, SyncInitial, SyncErrorRecovery:
		return true
	}
	return false
}

type SyncStatus string

const (
	SyncInProgress SyncStatus = "IN_PROGRESS"
	SyncCompleted  SyncStatus = "COMPLETED"
	SyncFailed     SyncStatus = "FAILED"
)

func (s SyncStatus) Terminal() bool {
	return s == SyncCompleted || s == SyncFailed
}

// SyncLog records one orchestration run. Rows are append-only apart from
// the single transition out of IN_PROGRESS.
type SyncLog struct {
	LogID              string     `firestore:"logId" json:"logId"`
	ConnectionID       string     `firestore:"connectionId" json:"connectionId"`
	Type               SyncType   `firestore:"type" json:"type"`
	Status             SyncStatus `firestore:"status" json:"status"`
	StartedAt          time.Time  `firestore:"startedAt" json:"startedAt"`
	CompletedAt        *time.Time `firestore:"completedAt" json:"completedAt,omitempty"`
	TransactionsSynced int        `firestore:"transactionsSynced" json:"transactionsSynced"`
	Details            string     `firestore:"details" json:"details,omitempty"`
	ErrorMessage       string     `firestore:"errorMessage" json:"errorMessage,omitempty"`
}
