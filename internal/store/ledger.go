package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

type ledgerStore struct {
	client   *firestore.Client
	clockNow func() time.Time
}

func NewLedgerStore(client *firestore.Client) *ledgerStore {
	return &ledgerStore{client: client, clockNow: time.Now}
}

func (s *ledgerStore) accounts() *firestore.CollectionRef {
	return s.client.Collection("accounts")
}

func (s *ledgerStore) transactions() *firestore.CollectionRef {
	return s.client.Collection("transactions")
}

func (s *ledgerStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	doc, err := s.accounts().Doc(accountID).Get(ctx)
	if err != nil {
		return nil, dbError("get account", err)
	}
	var a models.Account
	if err := doc.DataTo(&a); err != nil {
		return nil, dbError("decode account", err)
	}
	return &a, nil
}

// ImportSync finds or creates the account fed by a connection, applies the
// fetched balance and inserts the transactions not already recorded, all in
// one Firestore transaction. Reads happen before any write.
func (s *ledgerStore) ImportSync(ctx context.Context, in dto.SyncImport) (dto.ImportResult, error) {
	var result dto.ImportResult
	now := s.clockNow()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		q := s.accounts().
			Where("bureauId", "==", in.BureauID).
			Where("connectionId", "==", in.ConnectionID).
			Limit(1)
		docs, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}

		var acc models.Account
		exists := len(docs) > 0
		if exists {
			if err := docs[0].DataTo(&acc); err != nil {
				return err
			}
		} else {
			acc = models.Account{
				AccountID:    uuid.NewString(),
				BureauID:     in.BureauID,
				ConnectionID: in.ConnectionID,
				Name:         in.AccountName,
				Type:         in.AccountType,
				Currency:     importCurrency(in),
				CreatedAt:    now,
			}
		}

		rows := stamp(in.Transactions, acc.AccountID, in.BureauID, in.CreatedBy, now)
		seen := map[string]struct{}{}
		if exists {
			if err := s.loadKeys(tx, acc.AccountID, rows, seen); err != nil {
				return err
			}
		}
		fresh, skipped := dedupe(seen, rows)

		if in.Balance != nil {
			acc.Balance = in.Balance.Amount
			if in.Balance.Currency != "" {
				acc.Currency = in.Balance.Currency
			}
		}
		acc.UpdatedAt = now

		accRef := s.accounts().Doc(acc.AccountID)
		if exists {
			err = tx.Set(accRef, acc)
		} else {
			err = tx.Create(accRef, acc)
		}
		if err != nil {
			return err
		}
		if err := s.insert(tx, fresh); err != nil {
			return err
		}

		result = dto.ImportResult{AccountID: acc.AccountID, Inserted: len(fresh), Skipped: skipped}
		return nil
	})
	if err != nil {
		return dto.ImportResult{}, dbError("import sync batch", err)
	}
	return result, nil
}

// ImportTransactions inserts rows into an existing account with the same
// dedup contract as ImportSync. The balance is left untouched.
func (s *ledgerStore) ImportTransactions(ctx context.Context, accountID, createdBy string, txs []models.Transaction) (dto.ImportResult, error) {
	var result dto.ImportResult
	now := s.clockNow()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(s.accounts().Doc(accountID))
		if err != nil {
			return err
		}
		var acc models.Account
		if err := doc.DataTo(&acc); err != nil {
			return err
		}

		rows := stamp(txs, acc.AccountID, acc.BureauID, createdBy, now)
		seen := map[string]struct{}{}
		if err := s.loadKeys(tx, acc.AccountID, rows, seen); err != nil {
			return err
		}
		fresh, skipped := dedupe(seen, rows)
		if err := s.insert(tx, fresh); err != nil {
			return err
		}

		result = dto.ImportResult{AccountID: acc.AccountID, Inserted: len(fresh), Skipped: skipped}
		return nil
	})
	if isNotFound(err) {
		return dto.ImportResult{}, errs.NewNotFoundError("account " + accountID + " not found")
	}
	if err != nil {
		return dto.ImportResult{}, dbError("import transactions", err)
	}
	return result, nil
}

// loadKeys adds the dedup keys of the account's stored rows dated within
// the batch's span.
func (s *ledgerStore) loadKeys(tx *firestore.Transaction, accountID string, rows []models.Transaction, seen map[string]struct{}) error {
	if len(rows) == 0 {
		return nil
	}
	from, to := dateSpan(rows)
	q := s.transactions().
		Where("accountId", "==", accountID).
		Where("date", ">=", from).
		Where("date", "<=", to)
	docs, err := tx.Documents(q).GetAll()
	if err != nil {
		return err
	}
	for _, d := range docs {
		var t models.Transaction
		if err := d.DataTo(&t); err != nil {
			return err
		}
		seen[t.DedupKey()] = struct{}{}
	}
	return nil
}

func (s *ledgerStore) insert(tx *firestore.Transaction, rows []models.Transaction) error {
	for i := range rows {
		rows[i].TransactionID = uuid.NewString()
		if err := tx.Create(s.transactions().Doc(rows[i].TransactionID), rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// stamp copies rows with the ledger-owned fields set. Dates are cut to the
// microsecond precision Firestore stores so keys match once read back.
func stamp(txs []models.Transaction, accountID, bureauID, createdBy string, now time.Time) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	for i, t := range txs {
		t.AccountID = accountID
		t.BureauID = bureauID
		t.Date = t.Date.UTC().Truncate(time.Microsecond)
		if t.CreatedBy == "" {
			t.CreatedBy = createdBy
		}
		t.CreatedAt = now
		out[i] = t
	}
	return out
}

// dedupe keeps the rows whose key is not in seen, recording each kept key
// so duplicates inside the batch are skipped too.
func dedupe(seen map[string]struct{}, rows []models.Transaction) ([]models.Transaction, int) {
	fresh := make([]models.Transaction, 0, len(rows))
	skipped := 0
	for _, t := range rows {
		key := t.DedupKey()
		if _, dup := seen[key]; dup {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, t)
	}
	return fresh, skipped
}

func dateSpan(rows []models.Transaction) (time.Time, time.Time) {
	from, to := rows[0].Date, rows[0].Date
	for _, t := range rows[1:] {
		if t.Date.Before(from) {
			from = t.Date
		}
		if t.Date.After(to) {
			to = t.Date
		}
	}
	return from, to
}

func importCurrency(in dto.SyncImport) string {
	if in.Balance != nil && in.Balance.Currency != "" {
		return in.Balance.Currency
	}
	if len(in.Transactions) > 0 {
		return in.Transactions[0].Currency
	}
	return ""
}
