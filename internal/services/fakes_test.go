package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

// --- connection store ---

type fakeConnStore struct {
	mu        sync.Mutex
	conns     map[string]*models.Connection
	cfgs      map[string]*models.SyncConfig
	successes int
	failures  []string
	created   []*models.Connection
	deleted   []string
}

func newFakeConnStore() *fakeConnStore {
	return &fakeConnStore{conns: map[string]*models.Connection{}, cfgs: map[string]*models.SyncConfig{}}
}

func (f *fakeConnStore) add(c *models.Connection, cfg *models.SyncConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg == nil {
		cfg = models.DefaultSyncConfig(c.ConnectionID)
	}
	f.conns[c.ConnectionID] = c
	f.cfgs[c.ConnectionID] = cfg
}

func (f *fakeConnStore) Get(ctx context.Context, id string) (*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conns[id]
	if !ok {
		return nil, errs.NewConnectionNotFoundError(id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnStore) GetConfig(ctx context.Context, id string) (*models.SyncConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cfgs[id]
	if !ok {
		return nil, errs.NewConnectionNotFoundError(id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnStore) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes++
	f.conns[id].LastSync = &at
	f.conns[id].IsActive = true
	f.cfgs[id].LastSuccess = &at
	f.cfgs[id].LastError = ""
	return nil
}

func (f *fakeConnStore) RecordFailure(ctx context.Context, id, message string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, message)
	f.cfgs[id].LastError = message
	return nil
}

func (f *fakeConnStore) Create(ctx context.Context, c *models.Connection, cfg *models.SyncConfig) error {
	f.created = append(f.created, c)
	f.add(c, cfg)
	return nil
}

func (f *fakeConnStore) ListByBureau(ctx context.Context, bureauID string) ([]*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Connection
	for _, c := range f.conns {
		if c.BureauID == bureauID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConnStore) Update(ctx context.Context, c *models.Connection, cfg *models.SyncConfig) error {
	f.add(c, cfg)
	return nil
}

func (f *fakeConnStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, id)
	delete(f.cfgs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// --- sync logs ---

type fakeSyncLogs struct {
	mu   sync.Mutex
	rows []*models.SyncLog
	seq  int
}

func (f *fakeSyncLogs) Append(ctx context.Context, l *models.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	l.LogID = fmt.Sprintf("log-%d", f.seq)
	cp := *l
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeSyncLogs) Close(ctx context.Context, id string, status models.SyncStatus, n int, details, msg string, at time.Time) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.LogID != id {
			continue
		}
		if r.Status.Terminal() {
			return errs.NewValidationError("already closed")
		}
		if at.Before(r.StartedAt) {
			at = r.StartedAt
		}
		r.Status = status
		r.CompletedAt = &at
		r.TransactionsSynced = n
		r.Details = details
		r.ErrorMessage = msg
		return nil
	}
	return errs.NewNotFoundError("no log " + id)
}

func (f *fakeSyncLogs) forConnection(id string) []*models.SyncLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SyncLog
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].ConnectionID == id {
			out = append(out, f.rows[i])
		}
	}
	return out
}

func (f *fakeSyncLogs) List(ctx context.Context, id string, page, limit int) ([]*models.SyncLog, error) {
	all := f.forConnection(id)
	lo := (page - 1) * limit
	if lo >= len(all) {
		return nil, nil
	}
	hi := lo + limit
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], nil
}

func (f *fakeSyncLogs) Count(ctx context.Context, id string) (int, error) {
	return len(f.forConnection(id)), nil
}

func (f *fakeSyncLogs) Latest(ctx context.Context, id string) (*models.SyncLog, error) {
	all := f.forConnection(id)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// --- ledger ---

type fakeLedger struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	txs      []models.Transaction
	err      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: map[string]*models.Account{}}
}

func (f *fakeLedger) ImportSync(ctx context.Context, in dto.SyncImport) (dto.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return dto.ImportResult{}, f.err
	}

	key := in.BureauID + "|" + in.ConnectionID
	acc, ok := f.accounts[key]
	if !ok {
		acc = &models.Account{
			AccountID:    "acc-" + in.ConnectionID,
			BureauID:     in.BureauID,
			ConnectionID: in.ConnectionID,
			Name:         in.AccountName,
			Type:         in.AccountType,
		}
		f.accounts[key] = acc
	}
	if in.Balance != nil {
		acc.Balance = in.Balance.Amount
		acc.Currency = in.Balance.Currency
	}
	res := f.insert(acc, in.CreatedBy, in.Transactions)
	return res, nil
}

func (f *fakeLedger) ImportTransactions(ctx context.Context, accountID, createdBy string, txs []models.Transaction) (dto.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.AccountID == accountID {
			return f.insert(acc, createdBy, txs), nil
		}
	}
	return dto.ImportResult{}, errs.NewNotFoundError("account not found")
}

func (f *fakeLedger) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.AccountID == accountID {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, errs.NewNotFoundError("account not found")
}

func (f *fakeLedger) insert(acc *models.Account, createdBy string, txs []models.Transaction) dto.ImportResult {
	seen := map[string]struct{}{}
	for _, t := range f.txs {
		if t.AccountID == acc.AccountID {
			seen[t.DedupKey()] = struct{}{}
		}
	}
	res := dto.ImportResult{AccountID: acc.AccountID}
	for _, t := range txs {
		t.AccountID = acc.AccountID
		t.BureauID = acc.BureauID
		if t.CreatedBy == "" {
			t.CreatedBy = createdBy
		}
		k := t.DedupKey()
		if _, dup := seen[k]; dup {
			res.Skipped++
			continue
		}
		seen[k] = struct{}{}
		f.txs = append(f.txs, t)
		res.Inserted++
	}
	return res
}

func (f *fakeLedger) account(connectionID string) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ConnectionID == connectionID {
			cp := *a
			return &cp
		}
	}
	return nil
}

// --- adapters ---

type fakeSession struct {
	mu         sync.Mutex
	balance    banking.Balance
	balanceErr error
	txs        []banking.Transaction
	txErr      error
	block      bool
	txCalls    int
	from       time.Time
	closed     bool
}

func (s *fakeSession) Balance(ctx context.Context) (banking.Balance, error) {
	return s.balance, s.balanceErr
}

func (s *fakeSession) Transactions(ctx context.Context, from, to time.Time) ([]banking.Transaction, error) {
	s.mu.Lock()
	s.txCalls++
	s.from = from
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.txs, s.txErr
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type fakeAdapter struct {
	provider   models.ConnectionType
	valid      bool
	connectErr error
	session    *fakeSession
}

func (a *fakeAdapter) Provider() models.ConnectionType { return a.provider }

func (a *fakeAdapter) ValidateCredentials(ctx context.Context) (bool, error) { return a.valid, nil }

func (a *fakeAdapter) Connect(ctx context.Context) (banking.Session, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return a.session, nil
}

// fakeRegistry resolves by ciphertext so each connection gets its own adapter.
type fakeRegistry struct {
	adapters   map[string]*fakeAdapter
	resolveErr error
	policy     banking.Policy
}

func newFakeRegistry() *fakeRegistry {
	p := banking.DefaultPolicy()
	p.MaxRetries = 0
	return &fakeRegistry{adapters: map[string]*fakeAdapter{}, policy: p}
}

func (r *fakeRegistry) Resolve(ctx context.Context, t models.ConnectionType, country, encrypted string) (banking.Adapter, error) {
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	a, ok := r.adapters[encrypted]
	if !ok {
		return nil, errs.NewUnsupportedProviderError(string(t))
	}
	return banking.Guard(a, r.policy), nil
}

func (r *fakeRegistry) Build(t models.ConnectionType, country string, creds banking.Credentials) (banking.Adapter, error) {
	if t == "STRIPE" {
		return nil, errs.NewUnsupportedProviderError(string(t))
	}
	if err := creds.Require("apiKey"); err != nil {
		return nil, err
	}
	a, ok := r.adapters[creds.Get("apiKey")]
	if !ok {
		return nil, errors.New("unknown test key")
	}
	return banking.Guard(a, r.policy), nil
}

func (r *fakeRegistry) Supports(t models.ConnectionType) bool { return t != "STRIPE" }

// --- members ---

type fakeMembers struct {
	admins  map[string]string
	members map[string]*models.Member // bureau|uid
}

func (f *fakeMembers) FirstAdmin(ctx context.Context, bureauID string) (string, error) {
	uid, ok := f.admins[bureauID]
	if !ok {
		return "", errs.NewNotFoundError("bureau " + bureauID + " has no admin")
	}
	return uid, nil
}

func (f *fakeMembers) Get(ctx context.Context, bureauID, uid string) (*models.Member, error) {
	return f.members[bureauID+"|"+uid], nil
}
