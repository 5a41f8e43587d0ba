package store

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// dbError maps Firestore failures onto the error taxonomy.
func dbError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return errs.NewNotFoundError(op + ": document not found")
	}
	return errs.NewDatabaseError(op, op+" failed", err)
}
