package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/google/uuid"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

type syncLogStore struct {
	client *firestore.Client
}

func NewSyncLogStore(client *firestore.Client) *syncLogStore {
	return &syncLogStore{client: client}
}

func (s *syncLogStore) collection() *firestore.CollectionRef {
	return s.client.Collection("sync_logs")
}

// Append inserts a new row. An empty LogID is filled in.
func (s *syncLogStore) Append(ctx context.Context, log *models.SyncLog) error {
	if log.LogID == "" {
		log.LogID = uuid.NewString()
	}
	_, err := s.collection().Doc(log.LogID).Create(ctx, log)
	return dbError("append sync log", err)
}

// Close performs the single terminal transition of a row. Closing a row
// that is already terminal is rejected, and completedAt never precedes
// startedAt.
func (s *syncLogStore) Close(ctx context.Context, logID string, status models.SyncStatus, transactionsSynced int, details, errorMessage string, at time.Time) error {
	if !status.Terminal() {
		return errs.NewValidationError(fmt.Sprintf("cannot close sync log with status %s", status))
	}

	ref := s.collection().Doc(logID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var current models.SyncLog
		if err := doc.DataTo(&current); err != nil {
			return err
		}
		if current.Status.Terminal() {
			return errs.NewValidationError(fmt.Sprintf("sync log %s is already %s", logID, current.Status))
		}
		if at.Before(current.StartedAt) {
			at = current.StartedAt
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(status)},
			{Path: "completedAt", Value: at},
			{Path: "transactionsSynced", Value: transactionsSynced},
			{Path: "details", Value: details},
			{Path: "errorMessage", Value: errorMessage},
		})
	})
	var validation *errs.ValidationError
	if errors.As(err, &validation) {
		return err
	}
	return dbError("close sync log", err)
}

func (s *syncLogStore) byConnection(connectionID string) firestore.Query {
	return s.collection().Where("connectionId", "==", connectionID)
}

// List returns one page of a connection's logs, newest first. Pages start at 1.
func (s *syncLogStore) List(ctx context.Context, connectionID string, page, limit int) ([]*models.SyncLog, error) {
	if page < 1 {
		page = 1
	}
	docs, err := s.byConnection(connectionID).
		OrderBy("startedAt", firestore.Desc).
		Offset((page - 1) * limit).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, dbError("list sync logs", err)
	}
	out := make([]*models.SyncLog, 0, len(docs))
	for _, d := range docs {
		var l models.SyncLog
		if err := d.DataTo(&l); err != nil {
			return nil, dbError("decode sync log", err)
		}
		out = append(out, &l)
	}
	return out, nil
}

func (s *syncLogStore) Count(ctx context.Context, connectionID string) (int, error) {
	q := s.byConnection(connectionID)
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, dbError("count sync logs", err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, errs.NewDatabaseError("count sync logs", "unexpected aggregation result", nil)
	}
	return int(v.GetIntegerValue()), nil
}

// Latest returns nil when the connection has never run.
func (s *syncLogStore) Latest(ctx context.Context, connectionID string) (*models.SyncLog, error) {
	logs, err := s.List(ctx, connectionID, 1, 1)
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return logs[0], nil
}
