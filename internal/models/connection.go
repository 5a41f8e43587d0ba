package models

import (
	"time"
)

type ConnectionType string

const (
	ConnectionBNPParibas  ConnectionType = "BNP_PARIBAS"
	ConnectionPayPal      ConnectionType = "PAYPAL"
	ConnectionOrangeMoney ConnectionType = "ORANGE_MONEY"
	ConnectionMTNMoney    ConnectionType = "MTN_MONEY"
	ConnectionWave        ConnectionType = "WAVE"
)

// AccountType derives the ledger account type fed by a connection.
func (t ConnectionType) AccountType() AccountType {
	switch t {
	case ConnectionBNPParibas:
		return AccountBank
	case ConnectionPayPal:
		return AccountPayPal
	case ConnectionOrangeMoney, ConnectionMTNMoney, ConnectionWave:
		return AccountMobileMoney
	default:
		return AccountCash
	}
}

// Connection is one configured link between a bureau and an external money provider.
type Connection struct {
	ConnectionID string         `firestore:"connectionId" json:"connectionId"`
	BureauID     string         `firestore:"bureauId" json:"bureauId"`
	Provider     string         `firestore:"provider" json:"provider"`
	Type         ConnectionType `firestore:"type" json:"type"`
	Country      string         `firestore:"country" json:"country"`
	Credentials  string         `firestore:"credentials" json:"-"` // vault ciphertext
	IsActive     bool           `firestore:"isActive" json:"isActive"`
	LastSync     *time.Time     `firestore:"lastSync" json:"lastSync,omitempty"`
	CreatedAt    time.Time      `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time      `firestore:"updatedAt" json:"updatedAt"`
}
