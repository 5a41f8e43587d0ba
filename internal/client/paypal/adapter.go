// Package paypal reads a PayPal business account through the Reporting API.
package paypal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/client/rest"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

const (
	DefaultBaseURL = "https://api-m.paypal.com"

	providerName = "PayPal"
	// The reporting API rejects ranges longer than 31 days.
	maxWindow = 31 * 24 * time.Hour
	pageSize  = 500
	// PayPal timestamps use a numeric zone without a colon.
	timeLayout = "2006-01-02T15:04:05-0700"
)

type Options struct {
	BaseURL    string
	Country    string
	HTTPClient *http.Client
}

type Adapter struct {
	clientID     string
	clientSecret string
	opts         Options
}

func New(creds banking.Credentials, opts Options) (*Adapter, error) {
	if err := creds.Require("clientId", "clientSecret"); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Adapter{
		clientID:     creds.Get("clientId"),
		clientSecret: creds.Get("clientSecret"),
		opts:         opts,
	}, nil
}

func (a *Adapter) Provider() models.ConnectionType { return models.ConnectionPayPal }

// ValidateCredentials rejects values that cannot be PayPal REST app keys.
func (a *Adapter) ValidateCredentials(ctx context.Context) (bool, error) {
	valid := func(s string) bool { return len(s) >= 16 && !strings.ContainsAny(s, " \t\n") }
	return valid(a.clientID) && valid(a.clientSecret), nil
}

// Connect fetches an access token; the session refreshes it as needed.
func (a *Adapter) Connect(ctx context.Context) (banking.Session, error) {
	cfg := clientcredentials.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		TokenURL:     strings.TrimRight(a.opts.BaseURL, "/") + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	hc := rest.HTTPClient(a.opts.HTTPClient)
	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, hc))
	if err != nil {
		return nil, err
	}
	// Refreshes outlive the Connect call.
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, hc)
	ts := oauth2.ReuseTokenSource(tok, cfg.TokenSource(tokenCtx))

	return &session{
		api:     rest.New(oauth2.NewClient(tokenCtx, ts), a.opts.BaseURL),
		country: a.opts.Country,
	}, nil
}

type session struct {
	api     *rest.Client
	country string
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type balancesResponse struct {
	Balances []struct {
		Currency     string `json:"currency"`
		Primary      bool   `json:"primary"`
		TotalBalance money  `json:"total_balance"`
	} `json:"balances"`
	AsOfTime string `json:"as_of_time"`
}

func (s *session) Balance(ctx context.Context) (banking.Balance, error) {
	var resp balancesResponse
	if err := s.api.Get(ctx, "/v1/reporting/balances", nil, &resp); err != nil {
		return banking.Balance{}, err
	}
	if len(resp.Balances) == 0 {
		return banking.Balance{}, fmt.Errorf("no balance returned")
	}

	b := resp.Balances[0]
	for _, candidate := range resp.Balances {
		if candidate.Primary {
			b = candidate
			break
		}
	}
	amount, err := banking.ParseAmount(b.TotalBalance.Value)
	if err != nil {
		return banking.Balance{}, err
	}
	currency := b.TotalBalance.CurrencyCode
	if currency == "" {
		currency = b.Currency
	}

	observed := time.Now().UTC()
	if t, err := parseTime(resp.AsOfTime); err == nil {
		observed = t
	}
	return banking.Balance{
		Amount:     amount.Round(2).InexactFloat64(),
		Currency:   strings.ToUpper(currency),
		ObservedAt: observed,
	}, nil
}

type transactionsResponse struct {
	TransactionDetails []struct {
		TransactionInfo struct {
			TransactionID             string `json:"transaction_id"`
			PaypalReferenceID         string `json:"paypal_reference_id"`
			TransactionEventCode      string `json:"transaction_event_code"`
			TransactionInitiationDate string `json:"transaction_initiation_date"`
			TransactionAmount         money  `json:"transaction_amount"`
			TransactionStatus         string `json:"transaction_status"`
			TransactionSubject        string `json:"transaction_subject"`
			TransactionNote           string `json:"transaction_note"`
			InvoiceID                 string `json:"invoice_id"`
		} `json:"transaction_info"`
	} `json:"transaction_details"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

func (s *session) Transactions(ctx context.Context, from, to time.Time) ([]banking.Transaction, error) {
	var out []banking.Transaction
	for _, w := range windows(from, to) {
		for page := 1; ; page++ {
			q := url.Values{
				"start_date": {w[0].UTC().Format(time.RFC3339)},
				"end_date":   {w[1].UTC().Format(time.RFC3339)},
				"fields":     {"transaction_info"},
				"page_size":  {strconv.Itoa(pageSize)},
				"page":       {strconv.Itoa(page)},
			}
			var resp transactionsResponse
			if err := s.api.Get(ctx, "/v1/reporting/transactions", q, &resp); err != nil {
				return nil, err
			}
			for _, d := range resp.TransactionDetails {
				info := d.TransactionInfo
				// D = denied, V = reversed
				if info.TransactionStatus == "D" || info.TransactionStatus == "V" {
					continue
				}
				amount, err := banking.ParseAmount(info.TransactionAmount.Value)
				if err != nil {
					return nil, err
				}
				date, err := parseTime(info.TransactionInitiationDate)
				if err != nil {
					return nil, err
				}
				reference := info.InvoiceID
				if reference == "" {
					reference = info.PaypalReferenceID
				}
				out = append(out, banking.NewTransaction(
					info.TransactionID,
					amount,
					info.TransactionAmount.CurrencyCode,
					firstNonEmpty(info.TransactionSubject, info.TransactionNote, info.TransactionEventCode),
					date,
					banking.Metadata{
						Provider:      providerName,
						Country:       s.country,
						PaymentMethod: info.TransactionEventCode,
						Reference:     reference,
					},
				))
			}
			if page >= resp.TotalPages {
				break
			}
		}
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error { return nil }

// windows splits [from, to] into consecutive ranges of at most maxWindow.
func windows(from, to time.Time) [][2]time.Time {
	var out [][2]time.Time
	for start := from; !start.After(to); {
		end := start.Add(maxWindow)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{start, end})
		if !end.Before(to) {
			break
		}
		start = end.Add(time.Second)
	}
	return out
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
