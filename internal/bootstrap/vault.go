package bootstrap

import (
	"context"
	"errors"
	"fmt"

	kms "cloud.google.com/go/kms/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"

	"github.com/GregMSThompson/treasury-backend/internal/config"
	"github.com/GregMSThompson/treasury-backend/internal/crypto"
	"github.com/GregMSThompson/treasury-backend/internal/store"
)

// initVault picks the credential vault: Cloud KMS when a key is configured,
// otherwise a local AES-GCM key derived from a secret held in the
// environment or in Secret Manager.
func initVault(ctx context.Context, cfg *config.Config, bs *Bootstrap) (crypto.Vault, error) {
	switch {
	case cfg.KMSKeyName != "":
		client, err := kms.NewKeyManagementClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("kms client: %w", err)
		}
		bs.KMS = client
		bs.Log.Info("credential vault: cloud kms", "key", cfg.KMSKeyName)
		return crypto.NewKMS(client, cfg.KMSKeyName), nil

	case cfg.VaultSecret != "":
		bs.Log.Warn("credential vault: local key from environment")
		return localVault([]byte(cfg.VaultSecret))

	case cfg.VaultSecretName != "":
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("secret manager client: %w", err)
		}
		bs.Secrets = client
		secret, err := store.NewSecretsStore(client, cfg.ProjectID).Latest(ctx, cfg.VaultSecretName)
		if err != nil {
			return nil, fmt.Errorf("read vault secret %s: %w", cfg.VaultSecretName, err)
		}
		bs.Log.Info("credential vault: local key from secret manager", "secret", cfg.VaultSecretName)
		return localVault(secret)

	default:
		return nil, errors.New("no credential vault configured: set KMSKEYNAME, VAULT_SECRET or VAULT_SECRET_NAME")
	}
}

func localVault(secret []byte) (crypto.Vault, error) {
	v, err := crypto.NewLocal(secret)
	if err != nil {
		return nil, err
	}
	return v, nil
}
