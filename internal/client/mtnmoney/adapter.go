// Package mtnmoney reads an MTN Mobile Money collection account.
package mtnmoney

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/client/rest"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

const (
	DefaultBaseURL     = "https://proxy.momoapi.mtn.com"
	DefaultEnvironment = "sandbox"

	providerName    = "MTN Mobile Money"
	subscriptionHdr = "Ocp-Apim-Subscription-Key"
	environmentHdr  = "X-Target-Environment"
	pageSize        = 100
)

type Options struct {
	BaseURL    string
	Country    string
	HTTPClient *http.Client
}

type Adapter struct {
	subscriptionKey string
	apiUser         string
	apiKey          string
	environment     string
	opts            Options
}

func New(creds banking.Credentials, opts Options) (*Adapter, error) {
	if err := creds.Require("subscriptionKey", "apiUser", "apiKey"); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	env := creds.Get("environment")
	if env == "" {
		env = DefaultEnvironment
	}
	return &Adapter{
		subscriptionKey: creds.Get("subscriptionKey"),
		apiUser:         creds.Get("apiUser"),
		apiKey:          creds.Get("apiKey"),
		environment:     env,
		opts:            opts,
	}, nil
}

func (a *Adapter) Provider() models.ConnectionType { return models.ConnectionMTNMoney }

// ValidateCredentials checks that the API user is the UUID MTN provisions.
func (a *Adapter) ValidateCredentials(ctx context.Context) (bool, error) {
	_, err := uuid.Parse(a.apiUser)
	return err == nil, nil
}

func (a *Adapter) Connect(ctx context.Context) (banking.Session, error) {
	base := strings.TrimRight(a.opts.BaseURL, "/")
	cfg := clientcredentials.Config{
		ClientID:     a.apiUser,
		ClientSecret: a.apiKey,
		TokenURL:     base + "/collection/token/",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// The subscription key must also reach the token endpoint.
	hc := rest.HTTPClient(a.opts.HTTPClient)
	httpClient := &http.Client{
		Timeout: hc.Timeout,
		Transport: &rest.HeaderTransport{
			Base: hc.Transport,
			Header: http.Header{
				subscriptionHdr: {a.subscriptionKey},
				environmentHdr:  {a.environment},
			},
		},
	}

	tok, err := bearerSource{cfg.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, httpClient))}.Token()
	if err != nil {
		return nil, err
	}
	// Refreshes outlive the Connect call.
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, httpClient)
	ts := oauth2.ReuseTokenSource(tok, bearerSource{cfg.TokenSource(tokenCtx)})

	return &session{
		api:     rest.New(oauth2.NewClient(tokenCtx, ts), base+"/collection"),
		country: a.opts.Country,
	}, nil
}

// MTN answers token_type "access_token" but expects a Bearer header.
type bearerSource struct {
	oauth2.TokenSource
}

func (b bearerSource) Token() (*oauth2.Token, error) {
	tok, err := b.TokenSource.Token()
	if err != nil {
		return nil, err
	}
	tok.TokenType = "Bearer"
	return tok, nil
}

type session struct {
	api     *rest.Client
	country string
}

type balanceResponse struct {
	AvailableBalance string `json:"availableBalance"`
	Currency         string `json:"currency"`
}

func (s *session) Balance(ctx context.Context) (banking.Balance, error) {
	var resp balanceResponse
	if err := s.api.Get(ctx, "/v1_0/account/balance", nil, &resp); err != nil {
		return banking.Balance{}, err
	}
	amount, err := banking.ParseAmount(resp.AvailableBalance)
	if err != nil {
		return banking.Balance{}, err
	}
	return banking.Balance{
		Amount:     amount.Round(2).InexactFloat64(),
		Currency:   strings.ToUpper(resp.Currency),
		ObservedAt: time.Now().UTC(),
	}, nil
}

type transaction struct {
	FinancialTransactionID string `json:"financialTransactionId"`
	ExternalID             string `json:"externalId"`
	Amount                 string `json:"amount"`
	Currency               string `json:"currency"`
	PayerMessage           string `json:"payerMessage"`
	PayeeNote              string `json:"payeeNote"`
	Status                 string `json:"status"`
	Type                   string `json:"type"`
	CreatedAt              string `json:"createdAt"`
}

type transactionsResponse struct {
	Transactions []transaction `json:"transactions"`
	Total        int           `json:"total"`
}

func (s *session) Transactions(ctx context.Context, from, to time.Time) ([]banking.Transaction, error) {
	var out []banking.Transaction
	offset := 0
	for {
		q := url.Values{
			"startDate": {from.UTC().Format(time.RFC3339)},
			"endDate":   {to.UTC().Format(time.RFC3339)},
			"offset":    {strconv.Itoa(offset)},
			"limit":     {strconv.Itoa(pageSize)},
		}
		var resp transactionsResponse
		if err := s.api.Get(ctx, "/v1_0/transactions", q, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Transactions {
			if !strings.EqualFold(t.Status, "SUCCESSFUL") {
				continue
			}
			tx, err := s.convert(t)
			if err != nil {
				return nil, err
			}
			out = append(out, tx)
		}
		offset += len(resp.Transactions)
		if len(resp.Transactions) == 0 || offset >= resp.Total {
			break
		}
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error { return nil }

// MTN amounts are unsigned; the direction comes from the type field.
func (s *session) convert(t transaction) (banking.Transaction, error) {
	amount, err := banking.ParseAmount(t.Amount)
	if err != nil {
		return banking.Transaction{}, err
	}
	amount = amount.Abs()
	if strings.EqualFold(t.Type, "DEBIT") {
		amount = amount.Neg()
	}
	date, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return banking.Transaction{}, err
	}
	description := t.PayerMessage
	if description == "" {
		description = t.PayeeNote
	}
	return banking.NewTransaction(t.FinancialTransactionID, amount, t.Currency, description, date.UTC(), banking.Metadata{
		Provider:      providerName,
		Country:       s.country,
		PaymentMethod: "momo",
		Reference:     t.ExternalID,
	}), nil
}
