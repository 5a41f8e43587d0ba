package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/client/rest"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

type fakePayPal struct {
	mu          sync.Mutex
	tokenCalls  int
	windows     []string
	failBalance bool
}

func (f *fakePayPal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok || id != "client-id-0123456789" || secret != "client-secret-0123456789" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.tokenCalls++
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/reporting/balances", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.failBalance {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"balances":[
			{"currency":"USD","primary":false,"total_balance":{"currency_code":"USD","value":"3.00"}},
			{"currency":"EUR","primary":true,"total_balance":{"currency_code":"EUR","value":"1000.00"}}],
			"as_of_time":"2025-03-10T08:00:00Z"}`))
	})
	mux.HandleFunc("/v1/reporting/transactions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := q.Get("page")
		f.mu.Lock()
		f.windows = append(f.windows, q.Get("start_date")+"|"+page)
		f.mu.Unlock()

		resp := map[string]any{"page": 1, "total_pages": 1, "transaction_details": []any{}}
		if q.Get("start_date") == "2025-01-01T00:00:00Z" {
			resp["total_pages"] = 2
			if page == "1" {
				resp["transaction_details"] = []any{detail("T1", "2025-01-05T10:00:00+0000", "-15.99", "Frais de transaction", "S")}
			} else {
				resp["page"] = 2
				resp["transaction_details"] = []any{
					detail("T2", "2025-01-06T10:00:00+0100", "1500.00", "Don de soutien", "S"),
					detail("T3", "2025-01-07T10:00:00+0000", "20.00", "Refused", "D"),
				}
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func detail(id, date, value, subject, status string) map[string]any {
	return map[string]any{"transaction_info": map[string]any{
		"transaction_id":              id,
		"transaction_event_code":      "T0006",
		"transaction_initiation_date": date,
		"transaction_amount":          map[string]string{"currency_code": "EUR", "value": value},
		"transaction_status":          status,
		"transaction_subject":         subject,
		"invoice_id":                  "INV-" + id,
	}}
}

func newAdapter(t *testing.T, f *fakePayPal) *Adapter {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	a, err := New(banking.Credentials{
		"clientId":     "client-id-0123456789",
		"clientSecret": "client-secret-0123456789",
	}, Options{BaseURL: srv.URL, Country: "FR", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return a
}

func TestNewRequiresBothKeys(t *testing.T) {
	_, err := New(banking.Credentials{"clientId": "x"}, Options{})
	require.ErrorContains(t, err, "clientSecret")
}

func TestValidateCredentials(t *testing.T) {
	a, err := New(banking.Credentials{"clientId": "short", "clientSecret": "also short"}, Options{})
	require.NoError(t, err)
	ok, err := a.ValidateCredentials(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	ok, _ = newAdapter(t, &fakePayPal{}).ValidateCredentials(context.Background())
	require.True(t, ok)
}

func TestConnectFailsOnBadCredentials(t *testing.T) {
	f := &fakePayPal{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	a, err := New(banking.Credentials{"clientId": "wrong-id-0123456789", "clientSecret": "client-secret-0123456789"},
		Options{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = a.Connect(context.Background())
	require.Error(t, err)
}

func TestBalanceUsesPrimary(t *testing.T) {
	f := &fakePayPal{}
	s, err := newAdapter(t, f).Connect(context.Background())
	require.NoError(t, err)

	bal, err := s.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1000.0, bal.Amount)
	require.Equal(t, "EUR", bal.Currency)
	require.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), bal.ObservedAt)
	require.Equal(t, 1, f.tokenCalls)
}

func TestBalanceSurfacesStatusError(t *testing.T) {
	s, err := newAdapter(t, &fakePayPal{failBalance: true}).Connect(context.Background())
	require.NoError(t, err)

	_, err = s.Balance(context.Background())
	var se *rest.StatusError
	require.ErrorAs(t, err, &se)
	require.True(t, se.Transient())
}

func TestTransactionsWindowsAndPages(t *testing.T) {
	f := &fakePayPal{}
	s, err := newAdapter(t, f).Connect(context.Background())
	require.NoError(t, err)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	txs, err := s.Transactions(context.Background(), from, to)
	require.NoError(t, err)

	// 73 days: three windows, the first one has two pages.
	require.Len(t, f.windows, 4)
	require.Equal(t, "2025-01-01T00:00:00Z|1", f.windows[0])
	require.Equal(t, "2025-01-01T00:00:00Z|2", f.windows[1])

	require.Len(t, txs, 2)
	require.Equal(t, "T1", txs[0].ID)
	require.Equal(t, models.TransactionOut, txs[0].Direction)
	require.Equal(t, 15.99, txs[0].Amount)
	require.Equal(t, models.CategoryFrais, txs[0].Category)
	require.Equal(t, "INV-T1", txs[0].Metadata.Reference)

	require.Equal(t, models.TransactionIn, txs[1].Direction)
	require.Equal(t, models.CategoryDon, txs[1].Category)
	require.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), txs[1].Date)
}

func TestWindowsCoverRange(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Len(t, windows(from, from), 1)
	require.Len(t, windows(from, from.Add(maxWindow)), 1)
	require.Len(t, windows(from, from.Add(maxWindow+time.Hour)), 2)
	require.Empty(t, windows(from, from.Add(-time.Hour)))

	ws := windows(from, from.AddDate(0, 3, 0))
	require.Equal(t, from, ws[0][0])
	require.Equal(t, from.AddDate(0, 3, 0), ws[len(ws)-1][1])
}

func TestConnectStopsWithCallerContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	a, err := New(banking.Credentials{
		"clientId":     "client-id-0123456789",
		"clientSecret": "client-secret-0123456789",
	}, Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := a.Connect(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("token request outlived the caller context")
	}
}
