package services

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/helpers"
)

const (
	defaultListLimit = 100
	dayLayout        = "2006-01-02"
)

type transactionReportStore interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	Query(ctx context.Context, accountID string, q dto.TransactionQuery, handle func(*models.Transaction) error) error
}

type reportService struct {
	txs     transactionReportStore
	members memberLookup
}

func NewReportService(txs transactionReportStore, members memberLookup) *reportService {
	return &reportService{txs: txs, members: members}
}

// Summary totals an account's inflows and outflows, optionally broken down
// by category, day, month or source.
func (s *reportService) Summary(ctx context.Context, uid, accountID string, args dto.ReportArgs) (dto.AccountSummary, error) {
	result := dto.AccountSummary{
		AccountID: accountID,
		GroupBy:   args.GroupBy,
		From:      helpers.Value(args.DateFrom),
		To:        helpers.Value(args.DateTo),
	}
	if err := validateGroupBy(args.GroupBy); err != nil {
		return result, err
	}
	acc, q, err := s.prepare(ctx, uid, accountID, args)
	if err != nil {
		return result, err
	}
	result.Currency = acc.Currency
	result.Balance = acc.Balance
	q.Limit = 0

	items := map[string]*dto.BreakdownItem{}
	if err := s.txs.Query(ctx, accountID, q, func(tx *models.Transaction) error {
		result.Count++
		in, out := split(tx)
		result.TotalIn += in
		result.TotalOut += out

		key := breakdownKey(tx, args.GroupBy)
		if key == "" {
			return nil
		}
		item, ok := items[key]
		if !ok {
			item = &dto.BreakdownItem{Key: key}
			items[key] = item
		}
		item.TotalIn += in
		item.TotalOut += out
		item.Count++
		return nil
	}); err != nil {
		return result, err
	}

	result.TotalIn = cents(result.TotalIn)
	result.TotalOut = cents(result.TotalOut)
	result.Net = cents(result.TotalIn - result.TotalOut)
	result.Items = mapBreakdownItems(items)
	return result, nil
}

// Transactions lists an account's ledger rows, oldest first unless Desc.
func (s *reportService) Transactions(ctx context.Context, uid, accountID string, args dto.ReportArgs) (dto.TransactionList, error) {
	result := dto.TransactionList{AccountID: accountID, Transactions: []models.Transaction{}}
	_, q, err := s.prepare(ctx, uid, accountID, args)
	if err != nil {
		return result, err
	}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}

	if err := s.txs.Query(ctx, accountID, q, func(tx *models.Transaction) error {
		result.Transactions = append(result.Transactions, *tx)
		return nil
	}); err != nil {
		return result, err
	}
	return result, nil
}

func (s *reportService) prepare(ctx context.Context, uid, accountID string, args dto.ReportArgs) (*models.Account, dto.TransactionQuery, error) {
	q := dto.TransactionQuery{
		Type:     args.Type,
		Category: args.Category,
		Source:   args.Source,
		Desc:     args.Desc,
		Limit:    args.Limit,
	}
	var err error
	if q.DateFrom, err = parseDay(args.DateFrom, false); err != nil {
		return nil, q, err
	}
	if q.DateTo, err = parseDay(args.DateTo, true); err != nil {
		return nil, q, err
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return nil, q, errs.NewValidationError("dateTo is before dateFrom")
	}

	acc, err := s.txs.GetAccount(ctx, accountID)
	if err != nil {
		return nil, q, err
	}
	if err := checkMember(ctx, s.members, acc.BureauID, uid, false); err != nil {
		return nil, q, err
	}
	return acc, q, nil
}

// parseDay reads YYYY-MM-DD. endOfDay moves the bound to the last instant
// of that day so the filter stays inclusive.
func parseDay(raw *string, endOfDay bool) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dayLayout, *raw)
	if err != nil {
		return nil, errs.NewValidationError("dates must use YYYY-MM-DD, got " + *raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func split(tx *models.Transaction) (in, out float64) {
	if tx.Type == models.TransactionOut {
		return 0, tx.Amount
	}
	return tx.Amount, 0
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

func breakdownKey(tx *models.Transaction, groupBy string) string {
	switch groupBy {
	case "category":
		return string(tx.Category)
	case "day":
		return tx.Date.UTC().Format(dayLayout)
	case "month":
		return tx.Date.UTC().Format("2006-01")
	case "source":
		return string(tx.Source)
	default:
		return ""
	}
}

func mapBreakdownItems(items map[string]*dto.BreakdownItem) []dto.BreakdownItem {
	out := make([]dto.BreakdownItem, 0, len(items))
	for _, item := range items {
		item.TotalIn = cents(item.TotalIn)
		item.TotalOut = cents(item.TotalOut)
		out = append(out, *item)
	}
	slices.SortFunc(out, func(a, b dto.BreakdownItem) int { return strings.Compare(a.Key, b.Key) })
	return out
}

func validateGroupBy(groupBy string) error {
	switch groupBy {
	case "", "category", "day", "month", "source":
		return nil
	default:
		return errs.NewValidationError("unsupported groupBy " + groupBy)
	}
}
