package store

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
)

type memberStore struct {
	client *firestore.Client
}

func NewMemberStore(client *firestore.Client) *memberStore {
	return &memberStore{client: client}
}

func (s *memberStore) collection(bureauID string) *firestore.CollectionRef {
	return s.client.Collection("bureaux").Doc(bureauID).Collection("members")
}

// Get returns nil, nil when uid is not a member of the bureau.
func (s *memberStore) Get(ctx context.Context, bureauID, uid string) (*models.Member, error) {
	doc, err := s.collection(bureauID).Doc(uid).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get member", err)
	}
	var m models.Member
	if err := doc.DataTo(&m); err != nil {
		return nil, dbError("decode member", err)
	}
	return &m, nil
}

// FirstAdmin returns the uid of the bureau's longest-standing admin.
func (s *memberStore) FirstAdmin(ctx context.Context, bureauID string) (string, error) {
	docs, err := s.collection(bureauID).
		Where("role", "==", string(models.RoleAdmin)).
		OrderBy("joinedAt", firestore.Asc).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return "", dbError("find bureau admin", err)
	}
	if len(docs) == 0 {
		return "", errs.NewNotFoundError("bureau " + bureauID + " has no admin")
	}
	var m models.Member
	if err := docs[0].DataTo(&m); err != nil {
		return "", dbError("decode member", err)
	}
	return m.UID, nil
}
