package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/logger"
)

const maxImportRows = 5000

type importLedger interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ImportTransactions(ctx context.Context, accountID, createdBy string, txs []models.Transaction) (dto.ImportResult, error)
}

type column int

const (
	colDate column = iota
	colDescription
	colAmount
	colCurrency
	colReference
	colCount
)

// headerAliases are compared after banking.Fold.
var headerAliases = map[column][]string{
	colDate:        {"date", "date operation", "date valeur", "jour"},
	colDescription: {"description", "libelle", "motif", "intitule"},
	colAmount:      {"montant", "amount", "somme", "valeur"},
	colCurrency:    {"devise", "currency", "monnaie"},
	colReference:   {"reference", "ref", "numero"},
}

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"02/01/06",
	time.RFC3339,
}

type importService struct {
	ledger  importLedger
	members memberLookup
}

func NewImportService(ledger importLedger, members memberLookup) *importService {
	return &importService{ledger: ledger, members: members}
}

// ImportExcel reads the first sheet of an xlsx workbook and imports its rows
// into an existing account. Rows that cannot be parsed are reported and the
// rest are still imported. Already known rows are skipped by the ledger.
func (s *importService) ImportExcel(ctx context.Context, uid, accountID string, r io.Reader) (dto.ExcelImportResult, error) {
	acc, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return dto.ExcelImportResult{}, err
	}
	if err := checkMember(ctx, s.members, acc.BureauID, uid, true); err != nil {
		return dto.ExcelImportResult{}, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return dto.ExcelImportResult{}, errs.NewValidationError("file is not a readable xlsx workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return dto.ExcelImportResult{}, errs.NewValidationError(fmt.Sprintf("read sheet %q: %v", sheet, err))
	}
	if len(rows) == 0 {
		return dto.ExcelImportResult{}, errs.NewValidationError("workbook is empty")
	}
	if len(rows)-1 > maxImportRows {
		return dto.ExcelImportResult{}, errs.NewValidationError(fmt.Sprintf("too many rows (max %d)", maxImportRows))
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return dto.ExcelImportResult{}, err
	}

	result := dto.ExcelImportResult{Errors: []dto.RowError{}}
	var txs []models.Transaction
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		result.Rows++
		line := i + 2 // 1-based, after the header
		t, err := parseRow(row, cols, acc.Currency)
		if err != nil {
			result.Errors = append(result.Errors, dto.RowError{Row: line, Message: err.Error()})
			continue
		}
		txs = append(txs, toImported(t))
	}

	log := logger.FromContext(ctx).With("account_id", accountID)
	if len(txs) == 0 {
		log.Warn("excel import produced no valid rows", "rows", result.Rows, "errors", len(result.Errors))
		result.AccountID = accountID
		return result, nil
	}

	imported, err := s.ledger.ImportTransactions(ctx, accountID, uid, txs)
	if err != nil {
		return dto.ExcelImportResult{}, err
	}
	result.ImportResult = imported

	log.Info("excel import complete",
		"rows", result.Rows,
		"inserted", imported.Inserted,
		"skipped", imported.Skipped,
		"errors", len(result.Errors))
	return result, nil
}

func mapHeader(header []string) (map[column]int, error) {
	cols := map[column]int{}
	for i, h := range header {
		name := strings.Join(strings.Fields(banking.Fold(h)), " ")
		for c := colDate; c < colCount; c++ {
			if _, taken := cols[c]; taken {
				continue
			}
			for _, alias := range headerAliases[c] {
				if name == alias {
					cols[c] = i
				}
			}
		}
	}

	var missing []string
	for c, label := range map[column]string{colDate: "date", colDescription: "description", colAmount: "montant"} {
		if _, ok := cols[c]; !ok {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, errs.NewValidationError("missing columns: " + strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(row []string, cols map[column]int, defaultCurrency string) (banking.Transaction, error) {
	date, err := parseCellDate(cell(row, cols, colDate))
	if err != nil {
		return banking.Transaction{}, err
	}
	description := cell(row, cols, colDescription)
	if description == "" {
		return banking.Transaction{}, errors.New("description is empty")
	}
	raw := cell(row, cols, colAmount)
	if raw == "" {
		return banking.Transaction{}, errors.New("amount is empty")
	}
	amount, err := banking.ParseAmount(raw)
	if err != nil {
		return banking.Transaction{}, err
	}
	currency := cell(row, cols, colCurrency)
	if currency == "" {
		currency = defaultCurrency
	}
	if currency == "" {
		currency = "EUR"
	}

	meta := banking.Metadata{Provider: "Excel", Reference: cell(row, cols, colReference)}
	return banking.NewTransaction("", amount, currency, description, date, meta), nil
}

// parseCellDate accepts Excel serial dates and the usual French layouts.
func parseCellDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("date is empty")
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(math.Floor(serial), false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", raw)
		}
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func toImported(t banking.Transaction) models.Transaction {
	return models.Transaction{
		Type:        t.Direction,
		Category:    t.Category,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Description: t.Description,
		Date:        t.Date,
		Source:      models.SourceImport,
		Provider:    t.Metadata.Provider,
		Reference:   t.Metadata.Reference,
	}
}

func cell(row []string, cols map[column]int, c column) string {
	i, ok := cols[c]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
