package dto

// Plaid adapter result - one account from /accounts/balance/get
type PlaidAccountBalance struct {
	AccountID string
	Name      string
	Current   float64
	Currency  string
}

// Plaid adapter result - one row from /transactions/get. Amount keeps
// Plaid's sign convention: positive is money leaving the account.
type PlaidTransaction struct {
	TransactionID  string
	AccountID      string
	Amount         float64
	Currency       string
	Date           string
	Name           string
	MerchantName   string
	PaymentChannel string
	Reference      string
	Pending        bool
}

// Plaid adapter result - represents one page from /transactions/get
type PlaidTransactionsPage struct {
	Transactions []PlaidTransaction
	Total        int
}

type PlaidLinkToken struct {
	LinkToken string `json:"linkToken"`
}

type PlaidEnvironment string

const (
	PlaidSandbox     PlaidEnvironment = "sandbox"
	PlaidDevelopment PlaidEnvironment = "development"
	PlaidProduction  PlaidEnvironment = "production"
)
