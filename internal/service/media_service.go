package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/provider"
	"github.com/avolkov/wabridge/internal/repository"
)

const mediaDownloadTimeout = 60 * time.Second

type mediaService struct {
	cfg      *config.Config
	repo     repository.Repository
	provider provider.Client
	blobs    BlobStore
	redis    *redis.Client
	logger   *zap.Logger
}

func NewMediaService(
	cfg *config.Config,
	repo repository.Repository,
	providerClient provider.Client,
	blobs BlobStore,
	redisClient *redis.Client,
	logger *zap.Logger,
) MediaService {
	return &mediaService{
		cfg:      cfg,
		repo:     repo,
		provider: providerClient,
		blobs:    blobs,
		redis:    redisClient,
		logger:   logger,
	}
}

// ScheduleDownload detaches a single best-effort fetch of the media
// behind one message. Provider media URLs are short-lived, so the
// fetch happens right after ingestion; a failure is logged and the
// message simply keeps no media_ref.
func (s *mediaService) ScheduleDownload(accountID, messageID int64, mediaID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mediaDownloadTimeout)
		defer cancel()

		if err := s.download(ctx, accountID, messageID, mediaID); err != nil {
			s.logger.Warn("media download failed",
				zap.Int64("message_id", messageID),
				zap.String("media_id", mediaID),
				zap.Error(err))
		}
	}()
}

func (s *mediaService) download(ctx context.Context, accountID, messageID int64, mediaID string) error {
	account, err := s.repo.Account().GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	info, err := s.provider.FetchMediaInfo(ctx, account, mediaID)
	if err != nil {
		return fmt.Errorf("failed to fetch media info: %w", err)
	}

	data, contentType, err := s.provider.DownloadMedia(ctx, account, info.URL)
	if err != nil {
		return fmt.Errorf("failed to download media: %w", err)
	}
	if contentType == "" {
		contentType = info.MimeType
	}

	key := fmt.Sprintf("%d/%s", accountID, mediaID)
	if err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		return fmt.Errorf("failed to store media: %w", err)
	}

	if err := s.repo.Message().SetMediaRef(ctx, messageID, key); err != nil {
		return fmt.Errorf("failed to record media ref: %w", err)
	}

	s.logger.Debug("media stored",
		zap.Int64("message_id", messageID),
		zap.String("media_ref", key),
		zap.Int("size", len(data)))

	return nil
}

// ResolveURL exchanges a stored media reference for a short-lived
// signed URL. URLs are cached in Redis for a fraction of their
// lifetime so a burst of dashboard loads reuses one signature.
func (s *mediaService) ResolveURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", ErrMediaNotFound
	}

	ttl := time.Duration(s.cfg.Media.TokenTTLSeconds) * time.Second
	cacheKey := "mediaurl:" + ref

	if s.redis != nil {
		if url, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			return url, nil
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("media url cache read failed", zap.Error(err))
		}
	}

	url, err := s.blobs.SignedURL(ctx, ref, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign media url: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, url, ttl/2).Err(); err != nil {
			s.logger.Warn("media url cache write failed", zap.Error(err))
		}
	}

	return url, nil
}
