package banking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/googleapis/gax-go/v2"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/logger"
)

// Policy bounds every provider call made through Guard.
type Policy struct {
	CallTimeout time.Duration
	// FetchTimeout bounds one whole Transactions call, every page included.
	// Zero falls back to CallTimeout.
	FetchTimeout time.Duration
	// MaxRetries applies to Balance and Transactions only.
	MaxRetries int
	Backoff    gax.Backoff
}

func DefaultPolicy() Policy {
	return Policy{
		CallTimeout:  30 * time.Second,
		FetchTimeout: 5 * time.Minute,
		MaxRetries:   2,
		Backoff: gax.Backoff{
			Initial:    500 * time.Millisecond,
			Max:        5 * time.Second,
			Multiplier: 2,
		},
	}
}

// Guard decorates an adapter with the shared failure semantics: a timeout
// around each call, retries for idempotent reads, session reuse on repeated
// Connect, and wrapping of provider errors into BankOperationError.
func Guard(a Adapter, p Policy) Adapter {
	return &guarded{inner: a, policy: p}
}

type guarded struct {
	inner  Adapter
	policy Policy

	mu      sync.Mutex
	session *guardedSession
}

func (g *guarded) Provider() models.ConnectionType { return g.inner.Provider() }

func (g *guarded) String() string   { return fmt.Sprintf("%s adapter", g.inner.Provider()) }
func (g *guarded) GoString() string { return g.String() }

func (g *guarded) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"provider": string(g.inner.Provider())})
}

func (g *guarded) ValidateCredentials(ctx context.Context) (bool, error) {
	ok, err := callWithTimeout(ctx, g.policy.CallTimeout, g.inner.ValidateCredentials)
	if err != nil {
		return false, g.wrap(OpValidate, err)
	}
	return ok, nil
}

func (g *guarded) Connect(ctx context.Context) (Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != nil && !g.session.isClosed() {
		return g.session, nil
	}

	s, err := callWithTimeout(ctx, g.policy.CallTimeout, g.inner.Connect)
	if err != nil {
		return nil, g.wrap(OpConnect, err)
	}
	g.session = &guardedSession{adapter: g, inner: s}
	return g.session, nil
}

func (g *guarded) wrap(op string, err error) error {
	return wrapProviderError(op, string(g.inner.Provider()), err)
}

type guardedSession struct {
	adapter *guarded
	inner   Session

	mu     sync.Mutex
	closed bool
}

func (s *guardedSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *guardedSession) Balance(ctx context.Context) (Balance, error) {
	if s.isClosed() {
		return Balance{}, errs.NewNotConnectedError(string(s.adapter.Provider()))
	}
	return withRetry(ctx, s.adapter, OpBalance, s.adapter.policy.CallTimeout, s.inner.Balance)
}

func (s *guardedSession) Transactions(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	if s.isClosed() {
		return nil, errs.NewNotConnectedError(string(s.adapter.Provider()))
	}
	timeout := s.adapter.policy.FetchTimeout
	if timeout <= 0 {
		timeout = s.adapter.policy.CallTimeout
	}
	txs, err := withRetry(ctx, s.adapter, OpTransactions, timeout, func(ctx context.Context) ([]Transaction, error) {
		return s.inner.Transactions(ctx, from, to)
	})
	if err != nil {
		return nil, err
	}
	return FilterWindow(txs, from, to), nil
}

func (s *guardedSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_, err := callWithTimeout(ctx, s.adapter.policy.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.Close(ctx)
	})
	if err != nil {
		return s.adapter.wrap(OpDisconnect, err)
	}
	return nil
}

func withRetry[T any](ctx context.Context, g *guarded, op string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	log := logger.FromContext(ctx)
	bo := g.policy.Backoff

	for attempt := 0; ; attempt++ {
		v, err := callWithTimeout(ctx, timeout, fn)
		if err == nil {
			return v, nil
		}
		if attempt >= g.policy.MaxRetries || !retryable(err) || ctx.Err() != nil {
			var zero T
			return zero, g.wrap(op, err)
		}

		pause := bo.Pause()
		log.Warn("provider call failed, retrying",
			"provider", g.Provider(),
			"operation", op,
			"attempt", attempt+1,
			"pause", pause,
			"error", err)

		select {
		case <-time.After(pause):
		case <-ctx.Done():
			var zero T
			return zero, g.wrap(op, ctx.Err())
		}
	}
}

// callWithTimeout returns when fn returns or the deadline passes, whichever
// comes first, so a provider that ignores its context cannot hang a run.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func retryable(err error) bool {
	var notConnected *errs.NotConnectedError
	var validation *errs.ValidationError
	return !errors.As(err, &notConnected) && !errors.As(err, &validation)
}

func wrapProviderError(op, provider string, err error) error {
	if err == nil {
		return nil
	}
	var bankErr *errs.BankOperationError
	var notConnected *errs.NotConnectedError
	if errors.As(err, &bankErr) || errors.As(err, &notConnected) {
		return err
	}
	return errs.NewBankOperationError(op, provider, err)
}
