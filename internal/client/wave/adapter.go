// Package wave reads a Wave business wallet through the Balance API.
package wave

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/client/rest"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

const (
	DefaultBaseURL = "https://api.wave.com"

	providerName = "Wave"
	keyPrefix    = "wave_"
)

type Options struct {
	BaseURL    string
	Country    string
	HTTPClient *http.Client
}

type Adapter struct {
	apiKey string
	opts   Options
}

func New(creds banking.Credentials, opts Options) (*Adapter, error) {
	if err := creds.Require("apiKey"); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Adapter{apiKey: creds.Get("apiKey"), opts: opts}, nil
}

func (a *Adapter) Provider() models.ConnectionType { return models.ConnectionWave }

// ValidateCredentials checks the key shape: wave_<country>_<env>_<secret>.
func (a *Adapter) ValidateCredentials(ctx context.Context) (bool, error) {
	if !strings.HasPrefix(a.apiKey, keyPrefix) {
		return false, nil
	}
	return len(strings.Split(a.apiKey, "_")) >= 4, nil
}

// Connect needs no round trip: Wave keys are long-lived bearer tokens.
func (a *Adapter) Connect(ctx context.Context) (banking.Session, error) {
	baseCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, rest.HTTPClient(a.opts.HTTPClient))
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.apiKey, TokenType: "Bearer"})
	return &session{
		api:     rest.New(oauth2.NewClient(baseCtx, ts), a.opts.BaseURL),
		country: a.opts.Country,
	}, nil
}

type session struct {
	api     *rest.Client
	country string
}

type balanceResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (s *session) Balance(ctx context.Context) (banking.Balance, error) {
	var resp balanceResponse
	if err := s.api.Get(ctx, "/v1/balance", nil, &resp); err != nil {
		return banking.Balance{}, err
	}
	amount, err := banking.ParseAmount(resp.Amount)
	if err != nil {
		return banking.Balance{}, err
	}
	return banking.Balance{
		Amount:     amount.Round(2).InexactFloat64(),
		Currency:   strings.ToUpper(resp.Currency),
		ObservedAt: time.Now().UTC(),
	}, nil
}

type transactionsResponse struct {
	PageInfo struct {
		EndCursor   string `json:"end_cursor"`
		HasNextPage bool   `json:"has_next_page"`
	} `json:"page_info"`
	Items []struct {
		TransactionID      string `json:"transaction_id"`
		Timestamp          string `json:"timestamp"`
		Amount             string `json:"amount"`
		Currency           string `json:"currency"`
		CounterpartyName   string `json:"counterparty_name"`
		CounterpartyMobile string `json:"counterparty_mobile"`
		PaymentReason      string `json:"payment_reason"`
		ClientReference    string `json:"client_reference"`
		TransactionType    string `json:"transaction_type"`
	} `json:"items"`
}

// Transactions walks the window one calendar day at a time, following the
// cursor within each day.
func (s *session) Transactions(ctx context.Context, from, to time.Time) ([]banking.Transaction, error) {
	var out []banking.Transaction
	for _, day := range days(from, to) {
		cursor := ""
		for {
			q := url.Values{"date": {day}}
			if cursor != "" {
				q.Set("after", cursor)
			}
			var resp transactionsResponse
			if err := s.api.Get(ctx, "/v1/transactions", q, &resp); err != nil {
				return nil, err
			}
			for _, it := range resp.Items {
				amount, err := banking.ParseAmount(it.Amount)
				if err != nil {
					return nil, err
				}
				date, err := time.Parse(time.RFC3339, it.Timestamp)
				if err != nil {
					return nil, err
				}
				description := it.PaymentReason
				if description == "" {
					description = it.CounterpartyName
				}
				out = append(out, banking.NewTransaction(it.TransactionID, amount, it.Currency, description, date.UTC(), banking.Metadata{
					Provider:      providerName,
					Country:       s.country,
					PaymentMethod: it.TransactionType,
					Reference:     it.ClientReference,
				}))
			}
			if !resp.PageInfo.HasNextPage || resp.PageInfo.EndCursor == "" {
				break
			}
			cursor = resp.PageInfo.EndCursor
		}
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error { return nil }

// days lists the UTC calendar dates touched by [from, to].
func days(from, to time.Time) []string {
	from, to = from.UTC(), to.UTC()
	if from.After(to) {
		return nil
	}
	var out []string
	d := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for !d.After(to) {
		out = append(out, d.Format(time.DateOnly))
		d = d.AddDate(0, 0, 1)
	}
	return out
}
