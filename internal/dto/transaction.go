package dto

import (
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/models"
)

// TransactionQuery filters ledger rows of one account. Date bounds are
// inclusive.
type TransactionQuery struct {
	Type     *models.TransactionType
	Category *models.Category
	Source   *models.TransactionSource
	DateFrom *time.Time
	DateTo   *time.Time
	Desc     bool
	Limit    int
}
