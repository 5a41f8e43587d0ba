package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/treasury-backend/internal/banking"
	"github.com/GregMSThompson/treasury-backend/internal/dto"
	"github.com/GregMSThompson/treasury-backend/internal/errs"
	"github.com/GregMSThompson/treasury-backend/internal/models"
	"github.com/GregMSThompson/treasury-backend/pkg/helpers"
	"github.com/GregMSThompson/treasury-backend/pkg/logger"
)

// --- Dependencies (minimal interfaces scoped to this service) ---

type connectionStore interface {
	Get(ctx context.Context, connectionID string) (*models.Connection, error)
	GetConfig(ctx context.Context, connectionID string) (*models.SyncConfig, error)
	ListByBureau(ctx context.Context, bureauID string) ([]*models.Connection, error)
	Create(ctx context.Context, conn *models.Connection, cfg *models.SyncConfig) error
	Update(ctx context.Context, conn *models.Connection, cfg *models.SyncConfig) error
	Delete(ctx context.Context, connectionID string) error
}

type memberLookup interface {
	Get(ctx context.Context, bureauID, uid string) (*models.Member, error)
}

type encrypter interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
}

type providerSupport interface {
	Supports(t models.ConnectionType) bool
}

// plaidLinker covers the Plaid Link flow used to attach BNP accounts.
type plaidLinker interface {
	CreateLinkToken(ctx context.Context, uid string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (itemID string, accessToken string, err error)
}

var providerCatalog = []dto.ProviderInfo{
	{
		Type:             models.ConnectionBNPParibas,
		Name:             "BNP Paribas",
		AccountType:      models.AccountBank,
		Countries:        []string{"FR"},
		CredentialFields: []string{"publicToken", "accountId"},
	},
	{
		Type:             models.ConnectionPayPal,
		Name:             "PayPal",
		AccountType:      models.AccountPayPal,
		CredentialFields: []string{"clientId", "clientSecret"},
	},
	{
		Type:             models.ConnectionOrangeMoney,
		Name:             "Orange Money",
		AccountType:      models.AccountMobileMoney,
		Countries:        []string{"BF", "CI", "CM", "GN", "MG", "ML", "NE", "SN"},
		CredentialFields: []string{"clientId", "clientSecret", "merchantKey"},
	},
	{
		Type:             models.ConnectionMTNMoney,
		Name:             "MTN Mobile Money",
		AccountType:      models.AccountMobileMoney,
		Countries:        []string{"BJ", "CG", "CI", "CM", "GH", "GN", "RW", "UG", "ZM"},
		CredentialFields: []string{"subscriptionKey", "apiUser", "apiKey", "environment"},
	},
	{
		Type:             models.ConnectionWave,
		Name:             "Wave",
		AccountType:      models.AccountMobileMoney,
		Countries:        []string{"BF", "CI", "GM", "ML", "SN", "UG"},
		CredentialFields: []string{"apiKey"},
	},
}

type connectionService struct {
	conns    connectionStore
	members  memberLookup
	vault    encrypter
	registry providerSupport
	plaid    plaidLinker
	clockNow func() time.Time
}

func NewConnectionService(conns connectionStore, members memberLookup, vault encrypter, registry providerSupport, plaid plaidLinker) *connectionService {
	return &connectionService{
		conns:    conns,
		members:  members,
		vault:    vault,
		registry: registry,
		plaid:    plaid,
		clockNow: time.Now,
	}
}

// Providers lists the providers available in a country; an empty country
// lists all of them.
func (s *connectionService) Providers(country string) []dto.ProviderInfo {
	country = strings.ToUpper(strings.TrimSpace(country))
	out := make([]dto.ProviderInfo, 0, len(providerCatalog))
	for _, p := range providerCatalog {
		if country == "" || len(p.Countries) == 0 || slices.Contains(p.Countries, country) {
			out = append(out, p)
		}
	}
	return out
}

func (s *connectionService) LinkToken(ctx context.Context, uid string) (string, error) {
	token, err := s.plaid.CreateLinkToken(ctx, uid)
	if err != nil {
		return "", errs.NewExternalServiceError("plaid", "create link token failed", false, err)
	}
	return token, nil
}

func (s *connectionService) Create(ctx context.Context, uid string, req dto.CreateConnectionRequest) (*dto.ConnectionView, error) {
	if req.BureauID == "" {
		return nil, errs.NewValidationError("bureauId is required")
	}
	if !s.registry.Supports(req.Type) {
		return nil, errs.NewUnsupportedProviderError(string(req.Type))
	}
	country, err := normalizeCountry(req.Country)
	if err != nil {
		return nil, err
	}
	if len(req.Credentials) == 0 {
		return nil, errs.NewValidationError("credentials are required")
	}
	if err := s.authorize(ctx, req.BureauID, uid, true); err != nil {
		return nil, err
	}

	cfg := models.DefaultSyncConfig("")
	if req.Frequency != "" {
		cfg.Frequency = req.Frequency
	}
	if err := validateFrequency(cfg.Frequency); err != nil {
		return nil, err
	}
	applyFlags(cfg, req.AutoSync, req.SyncTransactions, req.SyncBalance)

	creds, err := s.linkBNP(ctx, req.Type, req.Credentials)
	if err != nil {
		return nil, err
	}
	sealed, err := s.seal(ctx, creds)
	if err != nil {
		return nil, err
	}

	now := s.clockNow()
	conn := &models.Connection{
		ConnectionID: uuid.NewString(),
		BureauID:     req.BureauID,
		Provider:     providerName(req.Type, req.Provider),
		Type:         req.Type,
		Country:      country,
		Credentials:  sealed,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	cfg.ConnectionID = conn.ConnectionID
	if err := s.conns.Create(ctx, conn, cfg); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("connection created",
		"connection_id", conn.ConnectionID,
		"bureau_id", conn.BureauID,
		"type", conn.Type)
	return &dto.ConnectionView{Connection: conn, Config: cfg}, nil
}

func (s *connectionService) List(ctx context.Context, uid, bureauID string) ([]*models.Connection, error) {
	if bureauID == "" {
		return nil, errs.NewValidationError("bureauId is required")
	}
	if err := s.authorize(ctx, bureauID, uid, false); err != nil {
		return nil, err
	}
	return s.conns.ListByBureau(ctx, bureauID)
}

func (s *connectionService) Get(ctx context.Context, uid, connectionID string) (*dto.ConnectionView, error) {
	conn, err := s.Authorize(ctx, uid, connectionID, false)
	if err != nil {
		return nil, err
	}
	cfg, err := s.conns.GetConfig(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return &dto.ConnectionView{Connection: conn, Config: cfg}, nil
}

func (s *connectionService) Update(ctx context.Context, uid, connectionID string, req dto.UpdateConnectionRequest) (*dto.ConnectionView, error) {
	conn, err := s.Authorize(ctx, uid, connectionID, true)
	if err != nil {
		return nil, err
	}
	cfg, err := s.conns.GetConfig(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if req.Provider != nil {
		conn.Provider = providerName(conn.Type, *req.Provider)
	}
	if req.IsActive != nil {
		conn.IsActive = *req.IsActive
	}
	if req.Frequency != nil {
		if err := validateFrequency(*req.Frequency); err != nil {
			return nil, err
		}
		cfg.Frequency = *req.Frequency
	}
	applyFlags(cfg, req.AutoSync, req.SyncTransactions, req.SyncBalance)

	if len(req.Credentials) > 0 {
		creds, err := s.linkBNP(ctx, conn.Type, req.Credentials)
		if err != nil {
			return nil, err
		}
		sealed, err := s.seal(ctx, creds)
		if err != nil {
			return nil, err
		}
		conn.Credentials = sealed
	}

	if err := s.conns.Update(ctx, conn, cfg); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("connection updated", "connection_id", connectionID)
	return &dto.ConnectionView{Connection: conn, Config: cfg}, nil
}

func (s *connectionService) Delete(ctx context.Context, uid, connectionID string) error {
	if _, err := s.Authorize(ctx, uid, connectionID, true); err != nil {
		return err
	}
	if err := s.conns.Delete(ctx, connectionID); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("connection deleted", "connection_id", connectionID)
	return nil
}

// Authorize loads a connection and checks that uid belongs to its bureau.
// write additionally requires an admin or treasurer role.
func (s *connectionService) Authorize(ctx context.Context, uid, connectionID string, write bool) (*models.Connection, error) {
	conn, err := s.conns.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, conn.BureauID, uid, write); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *connectionService) authorize(ctx context.Context, bureauID, uid string, write bool) error {
	return checkMember(ctx, s.members, bureauID, uid, write)
}

// linkBNP swaps a Plaid Link public token for the long-lived access token.
func (s *connectionService) linkBNP(ctx context.Context, t models.ConnectionType, creds banking.Credentials) (banking.Credentials, error) {
	if t != models.ConnectionBNPParibas || creds.Get("accessToken") != "" {
		return creds, nil
	}
	public := creds.Get("publicToken")
	if public == "" {
		return nil, errs.NewValidationError("missing credential fields: accessToken or publicToken")
	}
	itemID, accessToken, err := s.plaid.ExchangePublicToken(ctx, public)
	if err != nil {
		return nil, errs.NewExternalServiceError("plaid", "public token exchange failed", false, err)
	}

	out := banking.Credentials{"accessToken": accessToken, "itemId": itemID}
	if id := creds.Get("accountId"); id != "" {
		out["accountId"] = id
	}
	return out, nil
}

func (s *connectionService) seal(ctx context.Context, creds banking.Credentials) (string, error) {
	plain, err := creds.Seal()
	if err != nil {
		return "", errs.NewCryptoError("serialize credentials", err)
	}
	return s.vault.Encrypt(ctx, plain)
}

// --- helpers ---

func checkMember(ctx context.Context, members memberLookup, bureauID, uid string, write bool) error {
	m, err := members.Get(ctx, bureauID, uid)
	if err != nil {
		return err
	}
	if m == nil {
		return errs.NewForbiddenError("not a member of this bureau")
	}
	if write && m.Role != models.RoleAdmin && m.Role != models.RoleTreasurer {
		return errs.NewForbiddenError(fmt.Sprintf("role %s cannot modify this bureau", m.Role))
	}
	return nil
}

func normalizeCountry(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if len(c) != 2 || c[0] < 'A' || c[0] > 'Z' || c[1] < 'A' || c[1] > 'Z' {
		return "", errs.NewValidationError("country must be an ISO 3166 alpha-2 code")
	}
	return c, nil
}

func validateFrequency(f models.SyncFrequency) error {
	switch f {
	case models.FrequencyHourly, models.FrequencyDaily, models.FrequencyManual:
		return nil
	default:
		return errs.NewValidationError(fmt.Sprintf("invalid frequency %q", f))
	}
}

func applyFlags(cfg *models.SyncConfig, autoSync, syncTransactions, syncBalance *bool) {
	cfg.AutoSync = helpers.ValueOr(autoSync, cfg.AutoSync)
	cfg.SyncTransactions = helpers.ValueOr(syncTransactions, cfg.SyncTransactions)
	cfg.SyncBalance = helpers.ValueOr(syncBalance, cfg.SyncBalance)
}

func providerName(t models.ConnectionType, requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	for _, p := range providerCatalog {
		if p.Type == t {
			return p.Name
		}
	}
	return string(t)
}
