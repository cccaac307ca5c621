package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap"

	"admin-service/internal/config"
	"admin-service/internal/util"
)

var ErrSecretUnavailable = errors.New("secret unavailable")

// Manager resolves the service's signing secret. In production the
// secret is stored as a KMS ciphertext in the environment and decrypted
// once at startup; in development the plaintext value is used directly.
type Manager struct {
	kmsClient *kms.Client
	config    *config.Config
}

func NewManager(ctx context.Context, cfg *config.Config) (*Manager, error) {
	m := &Manager{config: cfg}

	if cfg.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.KMS.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		m.kmsClient = kms.NewFromConfig(awsCfg)
	}

	return m, nil
}

// SessionSecret returns the HMAC key used to sign session credentials.
func (m *Manager) SessionSecret(ctx context.Context) ([]byte, error) {
	if !m.config.KMS.Enabled {
		if m.config.Auth.SessionSecret == "" {
			return nil, fmt.Errorf("%w: ADMIN_JWT_SECRET not set", ErrSecretUnavailable)
		}
		return []byte(m.config.Auth.SessionSecret), nil
	}

	ciphertext := m.config.Auth.SessionSecretCiphertext
	if ciphertext == "" {
		return nil, fmt.Errorf("%w: ADMIN_JWT_SECRET_CIPHERTEXT not set", ErrSecretUnavailable)
	}

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ciphertext encoding", ErrSecretUnavailable)
	}

	result, err := m.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: blob,
	})
	if err != nil {
		util.Error("Failed to decrypt session secret", zap.Error(err))
		return nil, fmt.Errorf("%w: kms decrypt failed: %v", ErrSecretUnavailable, err)
	}

	util.Info("Session secret decrypted via KMS",
		util.String("region", m.config.KMS.Region))

	return result.Plaintext, nil
}
