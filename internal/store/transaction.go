package store

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

const maxQueryLimit = 1000

// Query streams the ledger rows of an account matching q to handle, ordered
// by date. A handle error stops the iteration and is returned as is.
func (s *ledgerStore) Query(ctx context.Context, accountID string, q dto.TransactionQuery, handle func(*models.Transaction) error) error {
	query := s.transactions().Where("accountId", "==", accountID)
	if q.Type != nil {
		query = query.Where("type", "==", string(*q.Type))
	}
	if q.Category != nil {
		query = query.Where("category", "==", string(*q.Category))
	}
	if q.Source != nil {
		query = query.Where("source", "==", string(*q.Source))
	}
	if q.DateFrom != nil {
		query = query.Where("date", ">=", q.DateFrom.UTC())
	}
	if q.DateTo != nil {
		query = query.Where("date", "<=", q.DateTo.UTC())
	}

	dir := firestore.Asc
	if q.Desc {
		dir = firestore.Desc
	}
	query = query.OrderBy("date", dir)
	if q.Limit > 0 {
		query = query.Limit(min(q.Limit, maxQueryLimit))
	}

	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return dbError("query transactions", err)
		}
		var t models.Transaction
		if err := doc.DataTo(&t); err != nil {
			return dbError("decode transaction", err)
		}
		if err := handle(&t); err != nil {
			return err
		}
	}
}
