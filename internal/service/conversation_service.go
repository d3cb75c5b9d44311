package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/repository"
)

type conversationService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewConversationService(repo repository.Repository, logger *zap.Logger) ConversationService {
	return &conversationService{repo: repo, logger: logger}
}

func (s *conversationService) List(ctx context.Context, accountID int64, includeArchived bool, page, limit int) (*api.ConversationListResponse, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	conversations, err := s.repo.Conversation().List(ctx, accountID, includeArchived, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	total, err := s.repo.Conversation().Count(ctx, accountID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	now := time.Now()
	out := make([]api.Conversation, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, mapConversationDetail(c, now))
	}

	return &api.ConversationListResponse{
		Conversations: out,
		Pagination:    paginate(page, limit, total),
	}, nil
}

func (s *conversationService) Messages(ctx context.Context, conversationID int64, page, limit int) (*api.MessageListResponse, error) {
	if _, err := s.repo.Conversation().GetByID(ctx, conversationID); err != nil {
		return nil, err
	}

	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	messages, err := s.repo.Message().ListByConversation(ctx, conversationID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	total, err := s.repo.Message().CountByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, mapMessage(m))
	}

	return &api.MessageListResponse{
		Messages:   out,
		Pagination: paginate(page, limit, total),
	}, nil
}

func (s *conversationService) Update(ctx context.Context, conversationID int64, req *api.UpdateConversationRequest) error {
	if req.Archived == nil && req.MarkRead == nil {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	if _, err := s.repo.Conversation().GetByID(ctx, conversationID); err != nil {
		return err
	}

	if req.Archived != nil {
		if err := s.repo.Conversation().SetArchived(ctx, conversationID, *req.Archived); err != nil {
			return fmt.Errorf("failed to set archived flag: %w", err)
		}
	}
	if req.MarkRead != nil && *req.MarkRead {
		if err := s.repo.Conversation().ResetUnread(ctx, conversationID); err != nil {
			return fmt.Errorf("failed to reset unread count: %w", err)
		}
	}

	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultToolLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func paginate(page, limit int, total int64) api.Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if totalPages == 0 {
		totalPages = 1
	}
	return api.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   int(total),
		ItemsPerPage: limit,
	}
}
