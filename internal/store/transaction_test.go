package store

import (
	"context"
	"testing"
	"time"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/helpers"
)

func TestLedgerQueryWithEmulator(t *testing.T) {
	client := emulatorClient(t)
	ctx := context.Background()
	store := NewLedgerStore(client)

	accountID := "acc-query-" + time.Now().Format("150405.000000")
	day := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		{TransactionID: accountID + "-t1", AccountID: accountID, Type: models.TransactionIn, Category: models.CategoryDon, Amount: 50, Currency: "EUR", Date: day},
		{TransactionID: accountID + "-t2", AccountID: accountID, Type: models.TransactionOut, Category: models.CategoryFrais, Amount: 2, Currency: "EUR", Date: day.AddDate(0, 0, 5)},
		{TransactionID: accountID + "-t3", AccountID: accountID, Type: models.TransactionOut, Category: models.CategoryLoyer, Amount: 400, Currency: "EUR", Date: day.AddDate(0, 0, 10)},
	}
	for _, tx := range txs {
		if _, err := client.Collection("transactions").Doc(tx.TransactionID).Set(ctx, tx); err != nil {
			t.Fatalf("seed transaction error: %v", err)
		}
	}

	collect := func(q dto.TransactionQuery) []string {
		t.Helper()
		var ids []string
		err := store.Query(ctx, accountID, q, func(tx *models.Transaction) error {
			ids = append(ids, tx.TransactionID)
			return nil
		})
		if err != nil {
			t.Fatalf("query error: %v", err)
		}
		return ids
	}

	from := day.AddDate(0, 0, 1)
	got := collect(dto.TransactionQuery{
		Type:     helpers.Ptr(models.TransactionOut),
		DateFrom: &from,
		Desc:     true,
	})
	if len(got) != 2 || got[0] != accountID+"-t3" || got[1] != accountID+"-t2" {
		t.Fatalf("unexpected results: %v", got)
	}

	got = collect(dto.TransactionQuery{Limit: 1})
	if len(got) != 1 || got[0] != accountID+"-t1" {
		t.Fatalf("unexpected limited results: %v", got)
	}
}
