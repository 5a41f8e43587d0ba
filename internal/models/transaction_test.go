package models

import (
	"testing"
	"time"
)

func TestDedupKeySensitivity(t *testing.T) {
	day := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	base := Transaction{AccountID: "a1", Description: "Cotisation", Amount: 20, Date: day}

	variants := map[string]Transaction{
		"date":        {AccountID: "a1", Description: "Cotisation", Amount: 20, Date: day.AddDate(0, 0, 1)},
		"amount":      {AccountID: "a1", Description: "Cotisation", Amount: 20.01, Date: day},
		"description": {AccountID: "a1", Description: "Cotisation mars", Amount: 20, Date: day},
		"account":     {AccountID: "a2", Description: "Cotisation", Amount: 20, Date: day},
	}
	for name, v := range variants {
		if v.DedupKey() == base.DedupKey() {
			t.Fatalf("transactions differing by %s share a dedup key", name)
		}
	}
}

func TestDedupKeyIgnoresTimezoneAndOtherFields(t *testing.T) {
	day := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	paris := time.FixedZone("CET", 3600)

	a := Transaction{AccountID: "a1", Description: "Loyer", Amount: 450, Date: day, Category: CategoryLoyer}
	b := Transaction{AccountID: "a1", Description: "Loyer", Amount: 450, Date: day.In(paris), TransactionID: "other", CreatedBy: "u2"}

	if a.DedupKey() != b.DedupKey() {
		t.Fatalf("expected same key, got %q vs %q", a.DedupKey(), b.DedupKey())
	}
}

func TestConnectionTypeAccountType(t *testing.T) {
	cases := map[ConnectionType]AccountType{
		ConnectionBNPParibas:  AccountBank,
		ConnectionPayPal:      AccountPayPal,
		ConnectionOrangeMoney: AccountMobileMoney,
		ConnectionMTNMoney:    AccountMobileMoney,
		ConnectionWave:        AccountMobileMoney,
		ConnectionType("X"):   AccountCash,
	}
	for in, want := range cases {
		if got := in.AccountType(); got != want {
			t.Fatalf("%s.AccountType() = %s, want %s", in, got, want)
		}
	}
}
