package orangemoney

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

func server(t *testing.T, pages *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v3/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"om-token","token_type":"Bearer","expires_in":3600}`))
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer om-token" || r.Header.Get("X-Merchant-Key") != "0a1b2c3d4e" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc(apiPrefix+"/balance", authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":{"amount":"250 000","currency":"xof"},"timestamp":"2025-05-01T12:00:00Z"}`))
	}))
	mux.HandleFunc(apiPrefix+"/transactions", authed(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		*pages = append(*pages, page)
		resp := map[string]any{"page": 1, "totalPages": 2}
		if page == "1" {
			resp["data"] = []map[string]string{
				{"txnId": "OM1", "amount": "-500", "currency": "XOF", "description": "Frais retrait", "createdAt": "2025-04-28T09:00:00Z", "channel": "USSD", "status": "SUCCESS"},
				{"txnId": "OM2", "amount": "10000", "currency": "XOF", "description": "Cotisation mensuelle", "createdAt": "2025-04-29T09:00:00Z", "status": "FAILED"},
			}
		} else {
			resp["page"] = 2
			resp["data"] = []map[string]string{
				{"txnId": "OM3", "amount": "15000", "currency": "XOF", "description": "Salaire avril", "createdAt": "2025-04-30T18:00:00+02:00", "reference": "REF3", "status": "SUCCESS"},
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAdapter(t *testing.T, srv *httptest.Server) *Adapter {
	t.Helper()
	a, err := New(banking.Credentials{"clientId": "cid", "clientSecret": "secret", "merchantKey": "0a1b2c3d4e"},
		Options{BaseURL: srv.URL, Country: "SN", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return a
}

func TestNewRequiresMerchantKey(t *testing.T) {
	_, err := New(banking.Credentials{"clientId": "cid", "clientSecret": "secret"}, Options{})
	require.ErrorContains(t, err, "merchantKey")
}

func TestValidateCredentials(t *testing.T) {
	a, _ := New(banking.Credentials{"clientId": "c", "clientSecret": "s", "merchantKey": "not-hex!"}, Options{})
	ok, err := a.ValidateCredentials(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	a, _ = New(banking.Credentials{"clientId": "c", "clientSecret": "s", "merchantKey": "DEADBEEF01"}, Options{})
	ok, _ = a.ValidateCredentials(context.Background())
	require.True(t, ok)
}

func TestBalance(t *testing.T) {
	var pages []string
	s, err := newAdapter(t, server(t, &pages)).Connect(context.Background())
	require.NoError(t, err)

	bal, err := s.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 250000.0, bal.Amount)
	require.Equal(t, "XOF", bal.Currency)
}

func TestTransactionsPagesAndSkipsFailed(t *testing.T) {
	var pages []string
	s, err := newAdapter(t, server(t, &pages)).Connect(context.Background())
	require.NoError(t, err)

	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	txs, err := s.Transactions(context.Background(), from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, txs, 2)

	require.Equal(t, models.TransactionOut, txs[0].Direction)
	require.Equal(t, 500.0, txs[0].Amount)
	require.Equal(t, models.CategoryFrais, txs[0].Category)
	require.Equal(t, "USSD", txs[0].Metadata.PaymentMethod)
	require.Equal(t, "SN", txs[0].Metadata.Country)

	require.Equal(t, models.CategorySalaire, txs[1].Category)
	require.Equal(t, time.Date(2025, 4, 30, 16, 0, 0, 0, time.UTC), txs[1].Date)
	require.Equal(t, "REF3", txs[1].Metadata.Reference)
}
