package models

import (
	"strconv"
	"strings"
	"time"
)

type TransactionType string

const (
	TransactionIn  TransactionType = "ENTREE"
	TransactionOut TransactionType = "SORTIE"
)

type Category string

const (
	CategoryDon     Category = "DON"
	CategoryFrais   Category = "FRAIS"
	CategorySalaire Category = "SALAIRE"
	CategoryLoyer   Category = "LOYER"
	CategoryCourses Category = "COURSES"
	CategoryAutre   Category = "AUTRE"
)

type TransactionSource string

const (
	SourceSync   TransactionSource = "SYNC"
	SourceImport TransactionSource = "IMPORT"
)

type Transaction struct {
	TransactionID string            `firestore:"transactionId" json:"transactionId"`
	AccountID     string            `firestore:"accountId" json:"accountId"`
	BureauID      string            `firestore:"bureauId" json:"bureauId"`
	Type          TransactionType   `firestore:"type" json:"type"`
	Category      Category          `firestore:"category" json:"category"`
	Amount        float64           `firestore:"amount" json:"amount"` // always positive, Type carries the sign
	Currency      string            `firestore:"currency" json:"currency"`
	Description   string            `firestore:"description" json:"description"`
	Date          time.Time         `firestore:"date" json:"date"`
	Source        TransactionSource `firestore:"source" json:"source"`
	ExternalID    string            `firestore:"externalId" json:"externalId,omitempty"`
	Provider      string            `firestore:"provider" json:"provider,omitempty"`
	PaymentMethod string            `firestore:"paymentMethod" json:"paymentMethod,omitempty"`
	Reference     string            `firestore:"reference" json:"reference,omitempty"`
	CreatedBy     string            `firestore:"createdBy" json:"createdBy"`
	CreatedAt     time.Time         `firestore:"createdAt" json:"createdAt"`
}

// DedupKey is the exact-match identity used to skip already imported rows:
// (account, description, amount, date). No normalisation is applied beyond
// putting the date in UTC.
func (t Transaction) DedupKey() string {
	return strings.Join([]string{
		t.AccountID,
		t.Description,
		strconv.FormatFloat(t.Amount, 'f', -1, 64),
		t.Date.UTC().Format(time.RFC3339Nano),
	}, "\x1f")
}
