// Package service implements the application's business logic: webhook
// ingestion, the tool gateway, dashboard queries, media handling and
// the credential-expiry notifier.
package service

import (
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/provider"
	"github.com/avolkov/wabridge/internal/repository"
	"github.com/avolkov/wabridge/internal/scheduler"
)

type Service struct {
	Webhook      WebhookService
	Gateway      GatewayService
	APIKey       APIKeyService
	Conversation ConversationService
	Media        MediaService
	Notifier     NotifierService
	Health       HealthService

	// Sweep retries staged webhook logs; Escalation drives the
	// credential-expiry notifier.
	Sweep      *scheduler.Scheduler
	Escalation *scheduler.Scheduler
}

func NewService(
	cfg *config.Config,
	repo repository.Repository,
	providerClient provider.Client,
	redisClient *redis.Client,
	logger *zap.Logger,
) *Service {
	blobs := NewLocalBlobStore(cfg.Media.StorageDir, cfg.Media.PublicBaseURL)
	mailer := NewLogMailer(cfg.Notifier.FromAddress, logger)

	mediaService := NewMediaService(cfg, repo, providerClient, blobs, redisClient, logger)
	webhookService := NewWebhookService(cfg, repo, mediaService, logger)
	gatewayService := NewGatewayService(cfg, repo, providerClient, redisClient, logger)
	apiKeyService := NewAPIKeyService(repo, logger)
	conversationService := NewConversationService(repo, logger)
	notifierService := NewNotifierService(cfg, repo, mailer, logger)

	sweep := scheduler.NewScheduler(
		"webhook-sweep",
		logger,
		time.Duration(cfg.Scheduler.SweepIntervalSeconds)*time.Second,
		webhookService.SweepUnprocessed,
	)
	escalation := scheduler.NewScheduler(
		"expiry-notifier",
		logger,
		time.Duration(cfg.Notifier.IntervalMinutes)*time.Minute,
		notifierService.RunOnce,
	)

	healthService := NewHealthService(repo, redisClient, providerClient, sweep, escalation)

	return &Service{
		Webhook:      webhookService,
		Gateway:      gatewayService,
		APIKey:       apiKeyService,
		Conversation: conversationService,
		Media:        mediaService,
		Notifier:     notifierService,
		Health:       healthService,
		Sweep:        sweep,
		Escalation:   escalation,
	}
}
