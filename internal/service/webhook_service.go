package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/repository"
)

const signaturePrefix = "sha256="

type webhookService struct {
	cfg    *config.Config
	repo   repository.Repository
	media  MediaService
	logger *zap.Logger
}

func NewWebhookService(
	cfg *config.Config,
	repo repository.Repository,
	media MediaService,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		cfg:    cfg,
		repo:   repo,
		media:  media,
		logger: logger,
	}
}

// VerifyChallenge checks the GET-verification token against every
// configured account.
func (s *webhookService) VerifyChallenge(ctx context.Context, verifyToken string) (bool, error) {
	if verifyToken == "" {
		return false, nil
	}
	return s.repo.Account().ExistsByVerifyToken(ctx, verifyToken)
}

// Ingest authenticates the delivery, resolves the receiving accounts
// and stages one WebhookLog per eligible change. It acknowledges fast:
// normalization runs asynchronously because the provider re-delivers
// the whole payload when the response is slow.
func (s *webhookService) Ingest(ctx context.Context, rawBody []byte, signature string) error {
	if !s.verifySignature(rawBody, signature) {
		return ErrInvalidSignature
	}

	var envelope models.WebhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse webhook envelope: %w", err)
	}

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if err := s.stageChange(ctx, &change); err != nil {
				return err
			}
		}
	}

	return nil
}

// stageChange resolves the account for one change and stages it.
// Unknown and ingest-ineligible accounts are dropped silently: a
// provisioning account must not surface as a webhook failure, which
// would trigger provider-side retries and alarms.
func (s *webhookService) stageChange(ctx context.Context, change *models.WebhookChange) error {
	phoneNumberID := change.Value.Metadata.PhoneNumberID

	account, err := s.repo.Account().GetByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("Dropping webhook for unknown phone number id",
				zap.String("phone_number_id", phoneNumberID))
			return nil
		}
		return fmt.Errorf("failed to resolve webhook account: %w", err)
	}

	if !account.CanReceive() {
		s.logger.Debug("Dropping webhook for ineligible account",
			zap.Int64("account_id", account.ID),
			zap.String("status", string(account.Status)))
		return nil
	}

	payload, err := json.Marshal(change.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal change payload: %w", err)
	}

	logID, err := s.repo.WebhookLog().Create(ctx, account.ID, payload)
	if err != nil {
		return fmt.Errorf("failed to stage webhook log: %w", err)
	}

	// Kick normalization without blocking the acknowledgment; the
	// sweep picks the log up again if this attempt dies with the
	// process.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.ProcessLog(ctx, logID); err != nil {
			s.logger.Error("Webhook normalization failed, will retry via sweep",
				zap.Int64("log_id", logID),
				zap.Error(err))
		}
	}()

	return nil
}

// verifySignature computes HMAC-SHA256 over the exact raw body and
// compares in constant time.
func (s *webhookService) verifySignature(rawBody []byte, signature string) bool {
	signature = strings.TrimPrefix(signature, signaturePrefix)

	mac := hmac.New(sha256.New, []byte(s.cfg.Webhook.AppSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// SweepUnprocessed is the durable-retry task: it re-runs normalization
// for staged logs that are unprocessed and still within their attempt
// budget.
func (s *webhookService) SweepUnprocessed(ctx context.Context) error {
	logs, err := s.repo.WebhookLog().ListUnprocessed(ctx, s.cfg.Webhook.MaxAttempts, s.cfg.Scheduler.SweepBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unprocessed webhook logs: %w", err)
	}

	for _, log := range logs {
		if err := s.ProcessLog(ctx, log.ID); err != nil {
			s.logger.Error("Webhook sweep normalization failed",
				zap.Int64("log_id", log.ID),
				zap.Error(err))
		}
	}

	return nil
}
