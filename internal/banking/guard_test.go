package banking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/helpers"
)

type stubAdapter struct {
	secret      string
	connects    atomic.Int32
	balanceErrs []error
	balanceHits atomic.Int32
	connectErr  error
	hang        bool
	txs         []Transaction
	fetchDelay  time.Duration
}

func (a *stubAdapter) Provider() models.ConnectionType { return models.ConnectionWave }

func (a *stubAdapter) ValidateCredentials(ctx context.Context) (bool, error) {
	return a.secret != "", nil
}

func (a *stubAdapter) Connect(ctx context.Context) (Session, error) {
	a.connects.Add(1)
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return &stubSession{a: a}, nil
}

type stubSession struct{ a *stubAdapter }

func (s *stubSession) Balance(ctx context.Context) (Balance, error) {
	if s.a.hang {
		select {} // ignores ctx on purpose
	}
	n := int(s.a.balanceHits.Add(1)) - 1
	if n < len(s.a.balanceErrs) && s.a.balanceErrs[n] != nil {
		return Balance{}, s.a.balanceErrs[n]
	}
	return Balance{Amount: 10, Currency: "XOF"}, nil
}

func (s *stubSession) Transactions(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	if s.a.fetchDelay > 0 {
		select {
		case <-time.After(s.a.fetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return append([]Transaction(nil), s.a.txs...), nil
}

func (s *stubSession) Close(ctx context.Context) error { return nil }

func fastPolicy() Policy {
	return Policy{
		CallTimeout: 200 * time.Millisecond,
		MaxRetries:  2,
		Backoff:     gax.Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2},
	}
}

func TestGuardConnectIsIdempotent(t *testing.T) {
	stub := &stubAdapter{}
	a := Guard(stub, fastPolicy())
	ctx := helpers.TestCtx()

	s1, err := a.Connect(ctx)
	require.NoError(t, err)
	s2, err := a.Connect(ctx)
	require.NoError(t, err)

	require.Same(t, s1, s2)
	require.EqualValues(t, 1, stub.connects.Load())

	require.NoError(t, s1.Close(ctx))
	require.NoError(t, s1.Close(ctx))

	s3, err := a.Connect(ctx)
	require.NoError(t, err)
	require.NotSame(t, s1, s3)
	require.EqualValues(t, 2, stub.connects.Load())
}

func TestGuardClosedSessionIsNotConnected(t *testing.T) {
	a := Guard(&stubAdapter{}, fastPolicy())
	ctx := helpers.TestCtx()

	s, err := a.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	_, err = s.Balance(ctx)
	var nc *errs.NotConnectedError
	require.ErrorAs(t, err, &nc)

	_, err = s.Transactions(ctx, time.Now().Add(-time.Hour), time.Now())
	require.ErrorAs(t, err, &nc)
}

func TestGuardWrapsConnectErrorWithoutRetry(t *testing.T) {
	stub := &stubAdapter{connectErr: errors.New("401 unauthorized")}
	a := Guard(stub, fastPolicy())

	_, err := a.Connect(helpers.TestCtx())

	var bankErr *errs.BankOperationError
	require.ErrorAs(t, err, &bankErr)
	require.Equal(t, OpConnect, bankErr.Operation)
	require.Equal(t, "WAVE", bankErr.Provider)
	require.EqualValues(t, 1, stub.connects.Load())
}

func TestGuardRetriesBalance(t *testing.T) {
	stub := &stubAdapter{balanceErrs: []error{errors.New("502"), errors.New("503")}}
	a := Guard(stub, fastPolicy())
	ctx := helpers.TestCtx()

	s, err := a.Connect(ctx)
	require.NoError(t, err)

	bal, err := s.Balance(ctx)
	require.NoError(t, err)
	require.Equal(t, 10.0, bal.Amount)
	require.EqualValues(t, 3, stub.balanceHits.Load())
}

func TestGuardGivesUpAfterMaxRetries(t *testing.T) {
	boom := errors.New("still down")
	stub := &stubAdapter{balanceErrs: []error{boom, boom, boom, boom}}
	a := Guard(stub, fastPolicy())
	ctx := helpers.TestCtx()

	s, err := a.Connect(ctx)
	require.NoError(t, err)

	_, err = s.Balance(ctx)
	var bankErr *errs.BankOperationError
	require.ErrorAs(t, err, &bankErr)
	require.Equal(t, OpBalance, bankErr.Operation)
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 3, stub.balanceHits.Load())
}

func TestGuardTimeoutBecomesBankOperationError(t *testing.T) {
	stub := &stubAdapter{hang: true}
	p := fastPolicy()
	p.CallTimeout = 20 * time.Millisecond
	p.MaxRetries = 0
	a := Guard(stub, p)
	ctx := helpers.TestCtx()

	s, err := a.Connect(ctx)
	require.NoError(t, err)

	start := time.Now()
	_, err = s.Balance(ctx)

	require.Less(t, time.Since(start), time.Second)
	var bankErr *errs.BankOperationError
	require.ErrorAs(t, err, &bankErr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardFiltersTransactionsToWindow(t *testing.T) {
	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	stub := &stubAdapter{txs: []Transaction{
		{ID: "in", Date: from.AddDate(0, 0, 3)},
		{ID: "out", Date: to.AddDate(0, 0, 3)},
	}}
	a := Guard(stub, fastPolicy())
	ctx := helpers.TestCtx()

	s, err := a.Connect(ctx)
	require.NoError(t, err)
	txs, err := s.Transactions(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "in", txs[0].ID)
}

func TestGuardDoesNotExposeCredentials(t *testing.T) {
	a := Guard(&stubAdapter{secret: "wave_live_123"}, fastPolicy())

	printed := fmt.Sprintf("%v %+v %#v %s", a, a, a, a)
	b, err := json.Marshal(a)
	require.NoError(t, err)

	require.NotContains(t, printed, "wave_live_123")
	require.NotContains(t, string(b), "wave_live_123")
	require.JSONEq(t, `{"provider":"WAVE"}`, string(b))
}

func TestGuardTransactionsUseFetchTimeout(t *testing.T) {
	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)
	stub := &stubAdapter{fetchDelay: 60 * time.Millisecond, txs: []Transaction{{ID: "t1", Date: from}}}
	ctx := helpers.TestCtx()

	p := fastPolicy()
	p.CallTimeout = 20 * time.Millisecond
	p.FetchTimeout = time.Second
	p.MaxRetries = 0
	s, err := Guard(stub, p).Connect(ctx)
	require.NoError(t, err)
	txs, err := s.Transactions(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	p.FetchTimeout = 0
	s, err = Guard(stub, p).Connect(ctx)
	require.NoError(t, err)
	_, err = s.Transactions(ctx, from, to)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
