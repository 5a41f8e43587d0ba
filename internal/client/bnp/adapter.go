// Package bnp reads a BNP Paribas account through a Plaid item.
package bnp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

const (
	providerName = "BNP Paribas"
	pageSize     = 500
)

// PlaidAPI is the subset of the Plaid client the adapter needs.
type PlaidAPI interface {
	GetItem(ctx context.Context, accessToken string) (string, error)
	GetBalances(ctx context.Context, accessToken string) ([]dto.PlaidAccountBalance, error)
	GetTransactions(ctx context.Context, accessToken string, accountIDs []string, start, end string, count, offset int32) (dto.PlaidTransactionsPage, error)
}

type Adapter struct {
	plaid       PlaidAPI
	accessToken string
	accountID   string
	country     string
}

func New(plaid PlaidAPI, creds banking.Credentials, country string) (*Adapter, error) {
	if err := creds.Require("accessToken"); err != nil {
		return nil, err
	}
	return &Adapter{
		plaid:       plaid,
		accessToken: creds.Get("accessToken"),
		accountID:   creds.Get("accountId"),
		country:     country,
	}, nil
}

func (a *Adapter) Provider() models.ConnectionType { return models.ConnectionBNPParibas }

// ValidateCredentials checks the token shape only: "access-<env>-<id>".
func (a *Adapter) ValidateCredentials(ctx context.Context) (bool, error) {
	parts := strings.SplitN(a.accessToken, "-", 3)
	return len(parts) == 3 && parts[0] == "access" && parts[2] != "", nil
}

func (a *Adapter) Connect(ctx context.Context) (banking.Session, error) {
	itemID, err := a.plaid.GetItem(ctx, a.accessToken)
	if err != nil {
		return nil, err
	}
	return &session{adapter: a, itemID: itemID}, nil
}

type session struct {
	adapter *Adapter
	itemID  string
}

func (s *session) Balance(ctx context.Context) (banking.Balance, error) {
	accounts, err := s.adapter.plaid.GetBalances(ctx, s.adapter.accessToken)
	if err != nil {
		return banking.Balance{}, err
	}
	for _, acc := range accounts {
		if s.adapter.accountID == "" || acc.AccountID == s.adapter.accountID {
			return banking.Balance{
				Amount:     decimal.NewFromFloat(acc.Current).Round(2).InexactFloat64(),
				Currency:   strings.ToUpper(acc.Currency),
				ObservedAt: time.Now().UTC(),
			}, nil
		}
	}
	return banking.Balance{}, errors.New("no matching account on plaid item " + s.itemID)
}

func (s *session) Transactions(ctx context.Context, from, to time.Time) ([]banking.Transaction, error) {
	var accountIDs []string
	if s.adapter.accountID != "" {
		accountIDs = []string{s.adapter.accountID}
	}
	start := from.UTC().Format(time.DateOnly)
	end := to.UTC().Format(time.DateOnly)

	var out []banking.Transaction
	offset := 0
	for {
		page, err := s.adapter.plaid.GetTransactions(ctx, s.adapter.accessToken, accountIDs, start, end, pageSize, int32(offset))
		if err != nil {
			return nil, err
		}
		for _, t := range page.Transactions {
			if t.Pending {
				continue
			}
			tx, err := s.convert(t)
			if err != nil {
				return nil, err
			}
			out = append(out, tx)
		}
		offset += len(page.Transactions)
		if len(page.Transactions) == 0 || offset >= page.Total {
			break
		}
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error { return nil }

// Plaid reports outflows as positive amounts.
func (s *session) convert(t dto.PlaidTransaction) (banking.Transaction, error) {
	date, err := time.Parse(time.DateOnly, t.Date)
	if err != nil {
		return banking.Transaction{}, err
	}
	description := t.Name
	if description == "" {
		description = t.MerchantName
	}
	return banking.NewTransaction(
		t.TransactionID,
		decimal.NewFromFloat(t.Amount).Neg(),
		t.Currency,
		description,
		date,
		banking.Metadata{
			Provider:      providerName,
			Country:       s.adapter.country,
			PaymentMethod: t.PaymentChannel,
			Reference:     t.Reference,
		},
	), nil
}
