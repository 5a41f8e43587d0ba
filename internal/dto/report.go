package dto

import "github.com/GregMSThompson/treasury-backend/internal/models"

type ReportArgs struct {
	Type     *models.TransactionType
	Category *models.Category
	Source   *models.TransactionSource
	DateFrom *string
	DateTo   *string
	GroupBy  string
	Desc     bool
	Limit    int
}

type BreakdownItem struct {
	Key      string  `json:"key"`
	TotalIn  float64 `json:"totalIn"`
	TotalOut float64 `json:"totalOut"`
	Count    int     `json:"count"`
}

// AccountSummary totals inflows and outflows of an account over a period.
type AccountSummary struct {
	AccountID string          `json:"accountId"`
	Currency  string          `json:"currency"`
	Balance   float64         `json:"balance"`
	TotalIn   float64         `json:"totalIn"`
	TotalOut  float64         `json:"totalOut"`
	Net       float64         `json:"net"`
	Count     int             `json:"count"`
	GroupBy   string          `json:"groupBy,omitempty"`
	Items     []BreakdownItem `json:"items,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
}

type TransactionList struct {
	AccountID    string               `json:"accountId"`
	Transactions []models.Transaction `json:"transactions"`
}
