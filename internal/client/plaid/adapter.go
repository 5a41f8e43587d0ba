package plaidclient

import (
	"context"

	"github.com/plaid/plaid-go/v24/plaid"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
)

type Adapter struct {
	client *plaid.APIClient
}

func NewAdapter(clientID, secret string, env dto.PlaidEnvironment) *Adapter {
	cfg := plaid.NewConfiguration()
	cfg.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	cfg.AddDefaultHeader("PLAID-SECRET", secret)
	cfg.UseEnvironment(toPlaidEnv(env))

	return &Adapter{
		client: plaid.NewAPIClient(cfg),
	}
}

// CreateLinkToken starts the Plaid Link flow used to attach a BNP Paribas
// account to a bureau.
func (a *Adapter) CreateLinkToken(ctx context.Context, uid string) (string, error) {
	req := plaid.NewLinkTokenCreateRequest(
		"Tresorerie",
		"fr",
		[]plaid.CountryCode{plaid.CountryCode("FR")},
		plaid.LinkTokenCreateRequestUser{ClientUserId: uid},
	)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := a.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", err
	}
	return resp.GetLinkToken(), nil
}

func (a *Adapter) ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := a.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", "", err
	}
	return resp.GetItemId(), resp.GetAccessToken(), nil
}

// GetItem checks that the access token still designates a live item.
func (a *Adapter) GetItem(ctx context.Context, accessToken string) (string, error) {
	req := plaid.NewItemGetRequest(accessToken)
	resp, _, err := a.client.PlaidApi.ItemGet(ctx).ItemGetRequest(*req).Execute()
	if err != nil {
		return "", err
	}
	item := resp.GetItem()
	return item.GetItemId(), nil
}

func (a *Adapter) GetBalances(ctx context.Context, accessToken string) ([]dto.PlaidAccountBalance, error) {
	req := plaid.NewAccountsBalanceGetRequest(accessToken)
	resp, _, err := a.client.PlaidApi.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(*req).Execute()
	if err != nil {
		return nil, err
	}

	out := make([]dto.PlaidAccountBalance, 0, len(resp.GetAccounts()))
	for _, acc := range resp.GetAccounts() {
		bal := acc.GetBalances()
		out = append(out, dto.PlaidAccountBalance{
			AccountID: acc.GetAccountId(),
			Name:      acc.GetName(),
			Current:   bal.GetCurrent(),
			Currency:  bal.GetIsoCurrencyCode(),
		})
	}
	return out, nil
}

// GetTransactions returns one page of /transactions/get. Dates are YYYY-MM-DD.
func (a *Adapter) GetTransactions(ctx context.Context, accessToken string, accountIDs []string, start, end string, count, offset int32) (dto.PlaidTransactionsPage, error) {
	req := plaid.NewTransactionsGetRequest(accessToken, start, end)
	opts := plaid.NewTransactionsGetRequestOptions()
	opts.SetCount(count)
	opts.SetOffset(offset)
	if len(accountIDs) > 0 {
		opts.SetAccountIds(accountIDs)
	}
	req.SetOptions(*opts)

	var page dto.PlaidTransactionsPage

	resp, _, err := a.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*req).Execute()
	if err != nil {
		return page, err
	}

	txs := make([]dto.PlaidTransaction, 0, len(resp.GetTransactions()))
	for _, t := range resp.GetTransactions() {
		meta := t.GetPaymentMeta()
		txs = append(txs, dto.PlaidTransaction{
			TransactionID:  t.GetTransactionId(),
			AccountID:      t.GetAccountId(),
			Amount:         t.GetAmount(),
			Currency:       t.GetIsoCurrencyCode(),
			Date:           t.GetDate(),
			Name:           t.GetName(),
			MerchantName:   t.GetMerchantName(),
			PaymentChannel: t.GetPaymentChannel(),
			Reference:      meta.GetReferenceNumber(),
			Pending:        t.GetPending(),
		})
	}

	page.Transactions = txs
	page.Total = int(resp.GetTotalTransactions())
	return page, nil
}

func toPlaidEnv(env dto.PlaidEnvironment) plaid.Environment {
	switch env {
	case dto.PlaidSandbox:
		return plaid.Sandbox
	case dto.PlaidDevelopment:
		return plaid.Development
	default: // dto.PlaidProduction:
		return plaid.Production
	}
}
