// Package orangemoney reads an Orange Money merchant wallet.
package orangemoney

import (
	"context"
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
	DefaultBaseURL = "https://api.orange.com"

	providerName = "Orange Money"
	apiPrefix    = "/orange-money-webpay/v1"
	pageSize     = 100
)

type Options struct {
	BaseURL    string
	Country    string
	HTTPClient *http.Client
}

type Adapter struct {
	clientID     string
	clientSecret string
	merchantKey  string
	opts         Options
}

func New(creds banking.Credentials, opts Options) (*Adapter, error) {
	if err := creds.Require("clientId", "clientSecret", "merchantKey"); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Adapter{
		clientID:     creds.Get("clientId"),
		clientSecret: creds.Get("clientSecret"),
		merchantKey:  creds.Get("merchantKey"),
		opts:         opts,
	}, nil
}

func (a *Adapter) Provider() models.ConnectionType { return models.ConnectionOrangeMoney }

// ValidateCredentials checks the merchant key is an 8+ character hex string.
func (a *Adapter) ValidateCredentials(ctx context.Context) (bool, error) {
	if len(a.merchantKey) < 8 {
		return false, nil
	}
	for _, r := range strings.ToLower(a.merchantKey) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false, nil
		}
	}
	return true, nil
}

func (a *Adapter) Connect(ctx context.Context) (banking.Session, error) {
	cfg := clientcredentials.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		TokenURL:     strings.TrimRight(a.opts.BaseURL, "/") + "/oauth/v3/token",
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

	api := rest.New(oauth2.NewClient(tokenCtx, ts), a.opts.BaseURL+apiPrefix).
		WithHeader("X-Merchant-Key", a.merchantKey)
	return &session{api: api, country: a.opts.Country}, nil
}

type session struct {
	api     *rest.Client
	country string
}

type balanceResponse struct {
	Balance struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"balance"`
	Timestamp string `json:"timestamp"`
}

func (s *session) Balance(ctx context.Context) (banking.Balance, error) {
	var resp balanceResponse
	if err := s.api.Get(ctx, "/balance", nil, &resp); err != nil {
		return banking.Balance{}, err
	}
	amount, err := banking.ParseAmount(resp.Balance.Amount)
	if err != nil {
		return banking.Balance{}, err
	}
	observed := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, resp.Timestamp); err == nil {
		observed = t.UTC()
	}
	return banking.Balance{
		Amount:     amount.Round(2).InexactFloat64(),
		Currency:   strings.ToUpper(resp.Balance.Currency),
		ObservedAt: observed,
	}, nil
}

type transactionsResponse struct {
	Data []struct {
		TxnID       string `json:"txnId"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		Description string `json:"description"`
		CreatedAt   string `json:"createdAt"`
		Channel     string `json:"channel"`
		Reference   string `json:"reference"`
		Status      string `json:"status"`
	} `json:"data"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

func (s *session) Transactions(ctx context.Context, from, to time.Time) ([]banking.Transaction, error) {
	var out []banking.Transaction
	for page := 1; ; page++ {
		q := url.Values{
			"fromDate": {from.UTC().Format(time.DateOnly)},
			"toDate":   {to.UTC().Format(time.DateOnly)},
			"page":     {strconv.Itoa(page)},
			"size":     {strconv.Itoa(pageSize)},
		}
		var resp transactionsResponse
		if err := s.api.Get(ctx, "/transactions", q, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Data {
			if t.Status != "" && !strings.EqualFold(t.Status, "SUCCESS") {
				continue
			}
			amount, err := banking.ParseAmount(t.Amount)
			if err != nil {
				return nil, err
			}
			date, err := time.Parse(time.RFC3339, t.CreatedAt)
			if err != nil {
				return nil, err
			}
			out = append(out, banking.NewTransaction(t.TxnID, amount, t.Currency, t.Description, date.UTC(), banking.Metadata{
				Provider:      providerName,
				Country:       s.country,
				PaymentMethod: t.Channel,
				Reference:     t.Reference,
			}))
		}
		if page >= resp.TotalPages {
			break
		}
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error { return nil }
