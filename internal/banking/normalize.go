package banking

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/treasury-backend/internal/models"
)

// Normalize maps a signed provider amount to a direction and an absolute
// amount rounded to cents. Zero counts as an inflow.
func Normalize(native decimal.Decimal) (models.TransactionType, float64) {
	direction := models.TransactionIn
	if native.IsNegative() {
		direction = models.TransactionOut
	}
	return direction, native.Abs().Round(2).InexactFloat64()
}

// NewTransaction builds a normalized transaction from a signed native amount.
func NewTransaction(id string, native decimal.Decimal, currency, description string, date time.Time, meta Metadata) Transaction {
	direction, amount := Normalize(native)
	return Transaction{
		ID:          id,
		Amount:      amount,
		Currency:    strings.ToUpper(currency),
		Direction:   direction,
		Description: strings.TrimSpace(description),
		Date:        date,
		Category:    Categorize(description),
		Metadata:    meta,
	}
}

// ParseAmount accepts provider and spreadsheet amounts: "-15.99", "1 500,50", "+20".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(strings.TrimSpace(raw))
	// With both separators present, the last one is the decimal point.
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// InWindow reports whether date lies in [from, to].
func InWindow(date, from, to time.Time) bool {
	return !date.Before(from) && !date.After(to)
}

// FilterWindow drops rows outside [from, to].
func FilterWindow(txs []Transaction, from, to time.Time) []Transaction {
	out := txs[:0]
	for _, t := range txs {
		if InWindow(t.Date, from, to) {
			out = append(out, t)
		}
	}
	return out
}
