package models

import (
	"time"
)

type AccountType string

const (
	AccountBank        AccountType = "BANQUE"
	AccountPayPal      AccountType = "PAYPAL"
	AccountMobileMoney AccountType = "MOBILE_MONEY"
	AccountCash        AccountType = "CAISSE"
)

type Account struct {
	AccountID    string      `firestore:"accountId" json:"accountId"`
	BureauID     string      `firestore:"bureauId" json:"bureauId"`
	ConnectionID string      `firestore:"connectionId" json:"connectionId,omitempty"` // empty for manual accounts
	Name         string      `firestore:"name" json:"name"`
	Type         AccountType `firestore:"type" json:"type"`
	Balance      float64     `firestore:"balance" json:"balance"`
	Currency     string      `firestore:"currency" json:"currency"`
	CreatedAt    time.Time   `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time   `firestore:"updatedAt" json:"updatedAt"`
}
