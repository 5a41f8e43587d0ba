// Package registry turns a connection type plus stored credentials into a
// ready adapter.
package registry

import (
	"context"
	"net/http"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/client/bnp"
	"github.com/GregMSThompson/treasury-backend/internal/client/mtnmoney"
	"github.com/GregMSThompson/treasury-backend/internal/client/orangemoney"
	"github.com/GregMSThompson/treasury-backend/internal/client/paypal"
	"github.com/GregMSThompson/treasury-backend/internal/client/wave"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

type decrypter interface {
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// Endpoints overrides provider base URLs. Empty values use the production hosts.
type Endpoints struct {
	PayPal      string
	OrangeMoney string
	MTNMoney    string
	Wave        string
}

type Options struct {
	Endpoints Endpoints
	Policy    banking.Policy
	// HTTPClient is used by the REST providers; nil means http.DefaultClient.
	HTTPClient *http.Client
}

type registry struct {
	vault decrypter
	plaid bnp.PlaidAPI
	opts  Options
}

func New(vault decrypter, plaid bnp.PlaidAPI, opts Options) *registry {
	return &registry{vault: vault, plaid: plaid, opts: opts}
}

// Supports reports whether Build knows the connection type.
func (r *registry) Supports(t models.ConnectionType) bool {
	switch t {
	case models.ConnectionBNPParibas, models.ConnectionPayPal, models.ConnectionOrangeMoney,
		models.ConnectionMTNMoney, models.ConnectionWave:
		return true
	default:
		return false
	}
}

// Resolve decrypts the stored blob and builds the adapter. Decryption
// failures surface before any provider is contacted.
func (r *registry) Resolve(ctx context.Context, t models.ConnectionType, country, encrypted string) (banking.Adapter, error) {
	if !r.Supports(t) {
		return nil, errs.NewUnsupportedProviderError(string(t))
	}
	plain, err := r.vault.Decrypt(ctx, encrypted)
	if err != nil {
		return nil, err
	}
	creds, err := banking.ParseCredentials(plain)
	if err != nil {
		return nil, errs.NewCryptoError("decrypted credentials are malformed", err)
	}
	return r.Build(t, country, creds)
}

// Build constructs a guarded adapter from plaintext credentials.
func (r *registry) Build(t models.ConnectionType, country string, creds banking.Credentials) (banking.Adapter, error) {
	var (
		a   banking.Adapter
		err error
	)
	switch t {
	case models.ConnectionBNPParibas:
		a, err = bnp.New(r.plaid, creds, country)
	case models.ConnectionPayPal:
		a, err = paypal.New(creds, paypal.Options{BaseURL: r.opts.Endpoints.PayPal, Country: country, HTTPClient: r.opts.HTTPClient})
	case models.ConnectionOrangeMoney:
		a, err = orangemoney.New(creds, orangemoney.Options{BaseURL: r.opts.Endpoints.OrangeMoney, Country: country, HTTPClient: r.opts.HTTPClient})
	case models.ConnectionMTNMoney:
		a, err = mtnmoney.New(creds, mtnmoney.Options{BaseURL: r.opts.Endpoints.MTNMoney, Country: country, HTTPClient: r.opts.HTTPClient})
	case models.ConnectionWave:
		a, err = wave.New(creds, wave.Options{BaseURL: r.opts.Endpoints.Wave, Country: country, HTTPClient: r.opts.HTTPClient})
	default:
		return nil, errs.NewUnsupportedProviderError(string(t))
	}
	if err != nil {
		return nil, err
	}
	return banking.Guard(a, r.opts.Policy), nil
}
