// Package banking defines the provider adapter contract shared by every bank,
// card processor and mobile-money wallet integration, plus the helpers that
// turn provider rows into ledger-ready transactions.
package banking

import (
	"context"
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/models"
)

// Operation names recorded in BankOperationError.
const (
	OpConnect      = "connect"
	OpBalance      = "getBalance"
	OpTransactions = "getTransactions"
	OpValidate     = "validateCredentials"
	OpDisconnect   = "disconnect"
)

type Balance struct {
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	ObservedAt time.Time `json:"observedAt"`
}

type Metadata struct {
	Provider      string `json:"provider"`
	Country       string `json:"country,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

// Transaction is the normalized adapter output. Amount is always positive.
type Transaction struct {
	ID          string                 `json:"id"`
	Amount      float64                `json:"amount"`
	Currency    string                 `json:"currency"`
	Direction   models.TransactionType `json:"direction"`
	Description string                 `json:"description"`
	Date        time.Time              `json:"date"`
	Category    models.Category        `json:"category"`
	Metadata    Metadata               `json:"metadata"`
}

// Adapter is implemented once per provider.
type Adapter interface {
	Provider() models.ConnectionType
	// ValidateCredentials is a lightweight check that needs no session.
	ValidateCredentials(ctx context.Context) (bool, error)
	// Connect opens a session. Calling it again while a session is live
	// returns that session.
	Connect(ctx context.Context) (Session, error)
}

// Session is the value returned by Connect; balance and transaction reads
// only exist on it.
type Session interface {
	Balance(ctx context.Context) (Balance, error)
	// Transactions returns the rows dated within [from, to], inclusive.
	Transactions(ctx context.Context, from, to time.Time) ([]Transaction, error)
	// Close is idempotent.
	Close(ctx context.Context) error
}
