package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/repository"
)

// notifyTier is one rung of the escalation ladder: a credential inside
// Threshold of its expiry belongs to this tier unless a tighter tier
// also matches.
type notifyTier struct {
	Name      string
	Threshold time.Duration
}

// notifyTiers is ordered least urgent first; index order doubles as
// the urgency order used for monotonicity checks.
var notifyTiers = []notifyTier{
	{"14d", 14 * 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
	{"3d", 3 * 24 * time.Hour},
	{"1d", 24 * time.Hour},
	{"12h", 12 * time.Hour},
	{"4h", 4 * time.Hour},
	{"1h", time.Hour},
	{"15m", 15 * time.Minute},
	{"5m", 5 * time.Minute},
}

// matchTier picks the tightest tier whose threshold still covers the
// remaining lifetime. Already-expired credentials fall into the most
// urgent tier. Returns -1 when the credential is not yet within any
// tier.
func matchTier(remaining time.Duration) int {
	for i := len(notifyTiers) - 1; i >= 0; i-- {
		if notifyTiers[i].Threshold >= remaining {
			return i
		}
	}
	return -1
}

// tierIndex resolves a stored tier name; unknown or absent names rank
// below every real tier so any match fires.
func tierIndex(name string) int {
	for i, t := range notifyTiers {
		if t.Name == name {
			return i
		}
	}
	return -1
}

type notifierService struct {
	cfg    *config.Config
	repo   repository.Repository
	mailer Mailer
	logger *zap.Logger
}

func NewNotifierService(cfg *config.Config, repo repository.Repository, mailer Mailer, logger *zap.Logger) NotifierService {
	return &notifierService{
		cfg:    cfg,
		repo:   repo,
		mailer: mailer,
		logger: logger,
	}
}

// RunOnce scans every credential within the widest tier and fires at
// most one notification per credential per tier transition. Tier
// advancement is a compare-and-swap, so overlapping runs cannot
// double-notify; the notification is only sent after the swap wins.
func (s *notifierService) RunOnce(ctx context.Context) error {
	now := time.Now()

	credentials, err := s.repo.Credential().ListExpiring(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list expiring credentials: %w", err)
	}

	for _, cred := range credentials {
		if err := s.process(ctx, cred, now); err != nil {
			s.logger.Error("failed to process expiring credential",
				zap.Int64("credential_id", cred.ID),
				zap.Error(err))
		}
	}

	return nil
}

func (s *notifierService) process(ctx context.Context, cred *models.ExpiringCredential, now time.Time) error {
	current := matchTier(cred.ExpiresAt.Sub(now))
	if current < 0 {
		return nil
	}

	last := -1
	if cred.LastNotifiedTier.Valid {
		last = tierIndex(cred.LastNotifiedTier.String)
	}
	// A tier only fires when strictly more urgent than the last one
	// notified; re-scans inside the same tier stay silent.
	if current <= last {
		return nil
	}

	var prev *string
	if cred.LastNotifiedTier.Valid {
		prev = &cred.LastNotifiedTier.String
	}

	tier := notifyTiers[current]
	advanced, err := s.repo.Credential().AdvanceTier(ctx, cred.ID, prev, tier.Name)
	if err != nil {
		return fmt.Errorf("failed to advance notification tier: %w", err)
	}
	if !advanced {
		// Another run won the swap for this transition.
		return nil
	}

	subject, body := composeNotification(cred, tier, now)
	if err := s.mailer.Send(ctx, cred.NotifyEmail, subject, body); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	s.logger.Info("expiry notification sent",
		zap.Int64("credential_id", cred.ID),
		zap.String("kind", cred.Kind),
		zap.String("tier", tier.Name),
		zap.Time("expires_at", cred.ExpiresAt))

	return nil
}

func composeNotification(cred *models.ExpiringCredential, tier notifyTier, now time.Time) (subject, body string) {
	remaining := cred.ExpiresAt.Sub(now)
	if remaining < 0 {
		subject = fmt.Sprintf("[action required] %s credential has expired", cred.Kind)
	} else {
		subject = fmt.Sprintf("[action required] %s credential expires within %s", cred.Kind, tier.Name)
	}

	body = fmt.Sprintf(
		"The %s credential for account %d expires at %s.\n\n"+
			"Refresh it before expiry to avoid messaging interruptions. "+
			"Notifications escalate as the deadline approaches; refreshing the credential resets them.\n",
		cred.Kind, cred.AccountID, cred.ExpiresAt.UTC().Format(time.RFC3339))

	return subject, body
}
