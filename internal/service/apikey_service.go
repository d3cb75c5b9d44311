package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/repository"
)

const (
	apiKeyPrefix    = "wab_"
	apiKeyRandBytes = 32
	keyPrefixLen    = 12
)

var validScopes = map[models.Scope]bool{
	models.ScopeRead:  true,
	models.ScopeWrite: true,
	models.ScopeSend:  true,
}

type apiKeyService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewAPIKeyService(repo repository.Repository, logger *zap.Logger) APIKeyService {
	return &apiKeyService{repo: repo, logger: logger}
}

// Create mints a new key. The plaintext is present only in the
// response; the store keeps its SHA-256 hash and a display prefix.
func (s *apiKeyService) Create(ctx context.Context, accountID int64, req *api.CreateKeyRequest) (*api.CreateKeyResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: key name is required", ErrValidation)
	}
	if len(req.Scopes) == 0 {
		return nil, fmt.Errorf("%w: at least one scope is required", ErrValidation)
	}
	for _, scope := range req.Scopes {
		if !validScopes[models.Scope(scope)] {
			return nil, fmt.Errorf("%w: unknown scope %q", ErrValidation, scope)
		}
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	}

	if _, err := s.repo.Account().GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	plaintext, err := generateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	sum := sha256.Sum256([]byte(plaintext))
	key := &models.APIKey{
		AccountID: accountID,
		Name:      req.Name,
		KeyHash:   hex.EncodeToString(sum[:]),
		KeyPrefix: plaintext[:keyPrefixLen],
		Scopes:    strings.Join(req.Scopes, ","),
	}
	if req.ExpiresAt != nil {
		key.ExpiresAt = sql.NullTime{Time: *req.ExpiresAt, Valid: true}
	}

	id, err := s.repo.APIKey().Create(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	s.logger.Info("API key created",
		zap.Int64("key_id", id),
		zap.Int64("account_id", accountID),
		zap.String("key_prefix", key.KeyPrefix))

	return &api.CreateKeyResponse{
		ID:        id,
		Name:      key.Name,
		Key:       plaintext,
		KeyPrefix: key.KeyPrefix,
		Scopes:    req.Scopes,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

func (s *apiKeyService) List(ctx context.Context, accountID int64) (*api.KeyListResponse, error) {
	keys, err := s.repo.APIKey().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	out := make([]api.KeyMetadata, 0, len(keys))
	for _, k := range keys {
		meta := api.KeyMetadata{
			ID:        k.ID,
			Name:      k.Name,
			KeyPrefix: k.KeyPrefix,
			CreatedAt: k.CreatedAt,
		}
		for _, scope := range k.ScopeList() {
			meta.Scopes = append(meta.Scopes, string(scope))
		}
		if k.ExpiresAt.Valid {
			t := k.ExpiresAt.Time
			meta.ExpiresAt = &t
		}
		if k.LastUsedAt.Valid {
			t := k.LastUsedAt.Time
			meta.LastUsedAt = &t
		}
		out = append(out, meta)
	}

	return &api.KeyListResponse{Keys: out}, nil
}

// Revoke hard-deletes the key; a revoked key fails authentication
// immediately and indistinguishably from a key that never existed.
func (s *apiKeyService) Revoke(ctx context.Context, accountID, keyID int64) error {
	if err := s.repo.APIKey().Delete(ctx, keyID, accountID); err != nil {
		return err
	}

	s.logger.Info("API key revoked",
		zap.Int64("key_id", keyID),
		zap.Int64("account_id", accountID))

	return nil
}

func generateKey() (string, error) {
	buf := make([]byte, apiKeyRandBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
