package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

type connectionStore struct {
	client *firestore.Client
}

func NewConnectionStore(client *firestore.Client) *connectionStore {
	return &connectionStore{client: client}
}

func (s *connectionStore) connections() *firestore.CollectionRef {
	return s.client.Collection("connections")
}

func (s *connectionStore) configs() *firestore.CollectionRef {
	return s.client.Collection("sync_configs")
}

// Create writes the connection and its sync config together.
func (s *connectionStore) Create(ctx context.Context, conn *models.Connection, cfg *models.SyncConfig) error {
	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	cfg.ConnectionID = conn.ConnectionID
	cfg.UpdatedAt = now

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(s.connections().Doc(conn.ConnectionID), conn); err != nil {
			return err
		}
		return tx.Set(s.configs().Doc(conn.ConnectionID), cfg)
	})
	return dbError("create connection", err)
}

func (s *connectionStore) Get(ctx context.Context, connectionID string) (*models.Connection, error) {
	doc, err := s.connections().Doc(connectionID).Get(ctx)
	if isNotFound(err) {
		return nil, errs.NewConnectionNotFoundError(connectionID)
	}
	if err != nil {
		return nil, dbError("get connection", err)
	}
	var c models.Connection
	if err := doc.DataTo(&c); err != nil {
		return nil, dbError("decode connection", err)
	}
	return &c, nil
}

// GetConfig treats a missing config like a missing connection: the pair is
// created and deleted together.
func (s *connectionStore) GetConfig(ctx context.Context, connectionID string) (*models.SyncConfig, error) {
	doc, err := s.configs().Doc(connectionID).Get(ctx)
	if isNotFound(err) {
		return nil, errs.NewConnectionNotFoundError(connectionID)
	}
	if err != nil {
		return nil, dbError("get sync config", err)
	}
	var c models.SyncConfig
	if err := doc.DataTo(&c); err != nil {
		return nil, dbError("decode sync config", err)
	}
	return &c, nil
}

func (s *connectionStore) ListByBureau(ctx context.Context, bureauID string) ([]*models.Connection, error) {
	docs, err := s.connections().Where("bureauId", "==", bureauID).OrderBy("createdAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, dbError("list connections", err)
	}
	out := make([]*models.Connection, 0, len(docs))
	for _, d := range docs {
		var c models.Connection
		if err := d.DataTo(&c); err != nil {
			return nil, dbError("decode connection", err)
		}
		out = append(out, &c)
	}
	return out, nil
}

// ListSchedulable returns the active connections whose config has autoSync
// on and the given frequency, ordered by connection id.
func (s *connectionStore) ListSchedulable(ctx context.Context, freq models.SyncFrequency) ([]*models.Connection, error) {
	cfgDocs, err := s.configs().
		Where("autoSync", "==", true).
		Where("frequency", "==", string(freq)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, dbError("list sync configs", err)
	}
	if len(cfgDocs) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(cfgDocs))
	for _, d := range cfgDocs {
		refs = append(refs, s.connections().Doc(d.Ref.ID))
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, dbError("load connections", err)
	}

	out := make([]*models.Connection, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var c models.Connection
		if err := snap.DataTo(&c); err != nil {
			return nil, dbError("decode connection", err)
		}
		if c.IsActive {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *connectionStore) Update(ctx context.Context, conn *models.Connection, cfg *models.SyncConfig) error {
	now := time.Now()
	conn.UpdatedAt = now
	cfg.ConnectionID = conn.ConnectionID
	cfg.UpdatedAt = now

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(s.connections().Doc(conn.ConnectionID), conn); err != nil {
			return err
		}
		return tx.Set(s.configs().Doc(conn.ConnectionID), cfg)
	})
	return dbError("update connection", err)
}

// Delete removes the connection and its config. Sync logs are kept.
func (s *connectionStore) Delete(ctx context.Context, connectionID string) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Delete(s.connections().Doc(connectionID)); err != nil {
			return err
		}
		return tx.Delete(s.configs().Doc(connectionID))
	})
	return dbError("delete connection", err)
}

// RecordSuccess advances the checkpoint after a committed import.
func (s *connectionStore) RecordSuccess(ctx context.Context, connectionID string, at time.Time) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Update(s.connections().Doc(connectionID), []firestore.Update{
			{Path: "lastSync", Value: at},
			{Path: "isActive", Value: true},
			{Path: "updatedAt", Value: at},
		}); err != nil {
			return err
		}
		return tx.Update(s.configs().Doc(connectionID), []firestore.Update{
			{Path: "lastSuccess", Value: at},
			{Path: "lastError", Value: ""},
			{Path: "updatedAt", Value: at},
		})
	})
	return dbError("record sync success", err)
}

func (s *connectionStore) RecordFailure(ctx context.Context, connectionID, message string, at time.Time) error {
	_, err := s.configs().Doc(connectionID).Update(ctx, []firestore.Update{
		{Path: "lastError", Value: message},
		{Path: "updatedAt", Value: at},
	})
	return dbError("record sync failure", err)
}
