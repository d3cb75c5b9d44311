package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/provider"
	"github.com/avolkov/wabridge/internal/repository"
)

const (
	defaultToolLimit = 20

	// invalidKeyMessage is deliberately identical for every
	// authentication failure so callers cannot distinguish a missing
	// key from an expired one.
	invalidKeyMessage = "invalid or expired API key"
)

type gatewayService struct {
	cfg      *config.Config
	repo     repository.Repository
	provider provider.Client
	redis    *redis.Client
	logger   *zap.Logger
}

func NewGatewayService(
	cfg *config.Config,
	repo repository.Repository,
	providerClient provider.Client,
	redisClient *redis.Client,
	logger *zap.Logger,
) GatewayService {
	return &gatewayService{
		cfg:      cfg,
		repo:     repo,
		provider: providerClient,
		redis:    redisClient,
		logger:   logger,
	}
}

// Invoke dispatches one tool call. It never returns an error: every
// failure mode maps to a structured value the caller can act on.
func (s *gatewayService) Invoke(ctx context.Context, apiKey, tool string, args map[string]interface{}) (result interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in tool invocation",
				zap.String("tool", tool),
				zap.Any("panic", r))
			result = toolError("internal error while executing tool")
		}
	}()

	key := s.authenticate(ctx, apiKey)
	if key == nil {
		return toolError(invalidKeyMessage)
	}

	// Usage is recorded at authentication, so a denied invocation with
	// a valid key still shows up as key activity.
	go s.touchKey(key.ID)

	// The tool name is checked against the catalog before the key's
	// scopes, so a caller with a valid key learns whether a tool
	// exists at all before learning whether they may call it.
	requiredScope, known := toolScopes[tool]
	if !known {
		return toolError(fmt.Sprintf("unknown tool %q", tool))
	}
	if !key.HasScope(requiredScope) {
		return toolError(fmt.Sprintf("API key lacks the %q scope required by %s", requiredScope, tool))
	}

	switch tool {
	case ToolListConversations:
		return s.listConversations(ctx, key, args)
	case ToolListUnanswered:
		return s.listUnanswered(ctx, key, args)
	case ToolGetConversation:
		return s.getConversation(ctx, key, args)
	case ToolSearchMessages:
		return s.searchMessages(ctx, key, args)
	case ToolListTemplates:
		return s.listTemplates(ctx, key, args)
	case ToolSendText:
		return s.sendText(ctx, key, args)
	case ToolSendTemplate:
		return s.sendTemplate(ctx, key, args)
	case ToolSendMedia:
		return s.sendMedia(ctx, key, args)
	case ToolSendReaction:
		return s.sendReaction(ctx, key, args)
	case ToolUpdateConversation:
		return s.updateConversation(ctx, key, args)
	default:
		return toolError(fmt.Sprintf("unknown tool %q", tool))
	}
}

// authenticate resolves the presented key by its SHA-256 hash. All
// failure modes collapse to nil so the caller emits one uniform error.
func (s *gatewayService) authenticate(ctx context.Context, apiKey string) *models.APIKey {
	if apiKey == "" {
		return nil
	}

	sum := sha256.Sum256([]byte(apiKey))
	key, err := s.repo.APIKey().GetByHash(ctx, hex.EncodeToString(sum[:]))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to look up API key", zap.Error(err))
		}
		return nil
	}

	if key.Expired(time.Now()) {
		return nil
	}

	return key
}

// touchKey records key usage best-effort; a failed touch never affects
// the invocation.
func (s *gatewayService) touchKey(keyID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.APIKey().TouchLastUsed(ctx, keyID); err != nil {
		s.logger.Warn("failed to touch API key", zap.Int64("key_id", keyID), zap.Error(err))
	}
}

func toolError(msg string) *api.ToolError {
	return &api.ToolError{Error: true, Message: msg}
}

func toolErrorWithDetails(msg string, details interface{}) *api.ToolError {
	return &api.ToolError{Error: true, Message: msg, Details: details}
}

// resolveAccount binds the "from" argument to the key's account. A
// missing "from" comes back as a disclosure listing the valid value
// instead of an error, so conversational callers can self-correct.
func (s *gatewayService) resolveAccount(ctx context.Context, key *models.APIKey, from string) (*models.Account, interface{}) {
	account, err := s.repo.Account().GetByID(ctx, key.AccountID)
	if err != nil {
		s.logger.Error("failed to load account for API key",
			zap.Int64("account_id", key.AccountID), zap.Error(err))
		return nil, toolError("failed to resolve sending account")
	}

	if from == "" {
		return nil, &api.Disclosure{
			Disclosure: true,
			Parameter:  "from",
			Message:    "specify the sending phone number via the \"from\" parameter",
			Options: []api.DisclosureOption{
				{Value: account.PhoneNumber, Label: account.DisplayName},
			},
		}
	}

	if from != account.PhoneNumber {
		return nil, toolError(fmt.Sprintf("number %s is not available to this API key", from))
	}

	if !account.CanReceive() {
		return nil, toolError(fmt.Sprintf("number %s is not active yet (status: %s)", from, account.Status))
	}

	return account, nil
}

// resolveContact binds the "phone" argument. A missing phone discloses
// the account's recent contacts. When createMissing is set (send
// tools), an unknown number is registered on the fly; read tools
// report it instead.
func (s *gatewayService) resolveContact(ctx context.Context, account *models.Account, phone string, createMissing bool) (*models.Contact, interface{}) {
	if phone == "" {
		recent, err := s.repo.Contact().ListRecent(ctx, account.ID, defaultToolLimit)
		if err != nil {
			s.logger.Error("failed to list recent contacts",
				zap.Int64("account_id", account.ID), zap.Error(err))
			return nil, toolError("failed to resolve recipient")
		}

		options := make([]api.DisclosureOption, 0, len(recent))
		for _, c := range recent {
			options = append(options, api.DisclosureOption{
				Value: c.PhoneNumber,
				Label: c.DisplayName.String,
			})
		}

		return nil, &api.Disclosure{
			Disclosure: true,
			Parameter:  "phone",
			Message:    "specify the contact's phone number via the \"phone\" parameter",
			Options:    options,
		}
	}

	contact, err := s.repo.Contact().GetByPhoneNumber(ctx, account.ID, phone)
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("failed to look up contact", zap.String("phone", phone), zap.Error(err))
		return nil, toolError("failed to resolve recipient")
	}

	if !createMissing {
		return nil, toolError(fmt.Sprintf("no conversation with %s", phone))
	}

	contact, err = s.repo.Contact().Upsert(ctx, account.ID, strings.TrimPrefix(phone, "+"), phone, nil)
	if err != nil {
		s.logger.Error("failed to register contact", zap.String("phone", phone), zap.Error(err))
		return nil, toolError("failed to resolve recipient")
	}

	return contact, nil
}

func (s *gatewayService) listConversations(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args listConversationsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}

	limit := args.Limit
	if limit == 0 {
		limit = defaultToolLimit
	}

	conversations, err := s.repo.Conversation().List(ctx, account.ID, args.IncludeArchived, 0, limit)
	if err != nil {
		s.logger.Error("failed to list conversations", zap.Error(err))
		return toolError("failed to list conversations")
	}

	return mapConversationList(conversations, time.Now())
}

func (s *gatewayService) listUnanswered(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args listUnansweredArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}

	limit := args.Limit
	if limit == 0 {
		limit = defaultToolLimit
	}

	conversations, err := s.repo.Conversation().ListUnanswered(ctx, account.ID, limit)
	if err != nil {
		s.logger.Error("failed to list unanswered conversations", zap.Error(err))
		return toolError("failed to list unanswered conversations")
	}

	return mapConversationList(conversations, time.Now())
}

func (s *gatewayService) getConversation(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args getConversationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}

	contact, fail := s.resolveContact(ctx, account, args.Phone, false)
	if fail != nil {
		return fail
	}

	conv, err := s.repo.Conversation().GetByContact(ctx, account.ID, contact.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return toolError(fmt.Sprintf("no conversation with %s", args.Phone))
		}
		s.logger.Error("failed to load conversation", zap.Error(err))
		return toolError("failed to load conversation")
	}

	limit := args.Limit
	if limit == 0 {
		limit = defaultToolLimit
	}

	messages, err := s.repo.Message().ListByConversation(ctx, conv.ID, 0, limit)
	if err != nil {
		s.logger.Error("failed to list messages", zap.Error(err))
		return toolError("failed to load conversation")
	}

	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, mapMessage(m))
	}

	return &api.ConversationMessages{
		Conversation: mapConversationHeader(conv, contact, time.Now()),
		Messages:     out,
	}
}

func (s *gatewayService) searchMessages(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args searchMessagesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}

	limit := args.Limit
	if limit == 0 {
		limit = defaultToolLimit
	}

	hits, err := s.repo.Message().Search(ctx, account.ID, args.Query, limit)
	if err != nil {
		s.logger.Error("failed to search messages", zap.Error(err))
		return toolError("message search failed")
	}

	results := make([]api.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, api.SearchResult{
			Message:      mapMessage(&h.Message),
			ContactPhone: h.ContactPhone,
			ContactName:  nullableString(h.ContactName),
		})
	}

	return &api.SearchResponse{Query: args.Query, Results: results}
}

func (s *gatewayService) listTemplates(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args listTemplatesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}

	catalog, err := s.templateCatalog(ctx, account)
	if err != nil {
		return toolError("failed to fetch template catalog")
	}

	infos := make([]api.TemplateInfo, 0, len(catalog))
	for i := range catalog {
		infos = append(infos, mapTemplateInfo(&catalog[i]))
	}

	return &api.TemplateListResponse{Templates: infos}
}

func (s *gatewayService) sendText(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args sendTextArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}
	contact, fail := s.resolveContact(ctx, account, args.Phone, true)
	if fail != nil {
		return fail
	}

	conv, err := s.repo.Conversation().FindOrCreate(ctx, account.ID, contact.ID)
	if err != nil {
		s.logger.Error("failed to open conversation", zap.Error(err))
		return toolError("failed to open conversation")
	}
	if fail := s.checkWindow(conv); fail != nil {
		return fail
	}

	return s.deliver(ctx, account, contact, conv, outboundDraft{
		msgType: models.MessageTypeText,
		body:    args.Message,
		replyTo: args.ReplyTo,
		send: func(ctx context.Context) (string, error) {
			return s.provider.SendText(ctx, account, contact.WaID, args.Message, args.ReplyTo)
		},
	})
}

func (s *gatewayService) sendMedia(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args sendMediaArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}
	contact, fail := s.resolveContact(ctx, account, args.Phone, true)
	if fail != nil {
		return fail
	}

	conv, err := s.repo.Conversation().FindOrCreate(ctx, account.ID, contact.ID)
	if err != nil {
		s.logger.Error("failed to open conversation", zap.Error(err))
		return toolError("failed to open conversation")
	}
	if fail := s.checkWindow(conv); fail != nil {
		return fail
	}

	return s.deliver(ctx, account, contact, conv, outboundDraft{
		msgType: models.MapProviderType(args.MediaType),
		body:    args.Caption,
		send: func(ctx context.Context) (string, error) {
			return s.provider.SendMedia(ctx, account, contact.WaID, args.Link, args.MediaType, args.Caption)
		},
	})
}

func (s *gatewayService) sendReaction(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args sendReactionArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}

	target, err := s.repo.Message().GetByExternalID(ctx, args.MessageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return toolError(fmt.Sprintf("message %s not found", args.MessageID))
		}
		s.logger.Error("failed to load reaction target", zap.Error(err))
		return toolError("failed to send reaction")
	}

	conv, err := s.repo.Conversation().GetByID(ctx, target.ConversationID)
	if err != nil {
		s.logger.Error("failed to load conversation", zap.Error(err))
		return toolError("failed to send reaction")
	}
	if conv.AccountID != account.ID {
		return toolError(fmt.Sprintf("message %s not found", args.MessageID))
	}

	// The recipient is the target message's own contact; a reaction can
	// never land in a different thread than the message it reacts to.
	contact, err := s.repo.Contact().GetByID(ctx, conv.ContactID)
	if err != nil {
		s.logger.Error("failed to load contact", zap.Error(err))
		return toolError("failed to send reaction")
	}
	if args.Phone != "" && args.Phone != contact.PhoneNumber {
		return toolError(fmt.Sprintf("message %s belongs to the conversation with %s, not %s",
			args.MessageID, contact.PhoneNumber, args.Phone))
	}

	if fail := s.checkWindow(conv); fail != nil {
		return fail
	}

	return s.deliver(ctx, account, contact, conv, outboundDraft{
		msgType: models.MessageTypeReaction,
		body:    args.Emoji,
		replyTo: args.MessageID,
		send: func(ctx context.Context) (string, error) {
			return s.provider.SendReaction(ctx, account, contact.WaID, args.MessageID, args.Emoji)
		},
	})
}

func (s *gatewayService) sendTemplate(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args sendTemplateArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}
	contact, fail := s.resolveContact(ctx, account, args.Phone, true)
	if fail != nil {
		return fail
	}

	catalog, err := s.templateCatalog(ctx, account)
	if err != nil {
		return toolError("failed to fetch template catalog")
	}

	tpl := findTemplate(catalog, args.Template, args.Language)
	if tpl == nil {
		return &api.TemplateParamError{
			Error:     true,
			Message:   fmt.Sprintf("unknown template %q", args.Template),
			Templates: catalogNames(catalog),
		}
	}

	components, paramErr := validateTemplateParams(tpl, args.Parameters)
	if paramErr != nil {
		return paramErr
	}

	conv, err := s.repo.Conversation().FindOrCreate(ctx, account.ID, contact.ID)
	if err != nil {
		s.logger.Error("failed to open conversation", zap.Error(err))
		return toolError("failed to open conversation")
	}

	// Templates are the only content allowed outside the messaging
	// window, so no window gate here.
	preview := renderPreview(tpl, components)
	body := preview
	if body == "" {
		body = fmt.Sprintf("[Template: %s]", tpl.Name)
	}

	result := s.deliver(ctx, account, contact, conv, outboundDraft{
		msgType: models.MessageTypeTemplate,
		body:    body,
		send: func(ctx context.Context) (string, error) {
			return s.provider.SendTemplate(ctx, account, contact.WaID, provider.TemplateSend{
				Name:       tpl.Name,
				Language:   tpl.Language,
				Components: components,
			})
		},
	})

	switch out := result.(type) {
	case *api.SendResult:
		out.Preview = preview
	case *api.ToolError:
		// A rejected template send carries the current catalog so the
		// caller can self-correct without a second round trip.
		return &api.TemplateParamError{
			Error:     true,
			Message:   out.Message,
			Templates: catalogNames(catalog),
		}
	}
	return result
}

func catalogNames(catalog []provider.Template) []string {
	names := make([]string, 0, len(catalog))
	for _, t := range catalog {
		names = append(names, t.Name)
	}
	return names
}

func (s *gatewayService) updateConversation(ctx context.Context, key *models.APIKey, raw map[string]interface{}) interface{} {
	var args updateConversationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return toolError(err.Error())
	}
	if args.Archived == nil && args.MarkRead == nil {
		return toolError("nothing to update: supply archived and/or mark_read")
	}

	account, fail := s.resolveAccount(ctx, key, args.From)
	if fail != nil {
		return fail
	}
	contact, fail := s.resolveContact(ctx, account, args.Phone, false)
	if fail != nil {
		return fail
	}

	conv, err := s.repo.Conversation().GetByContact(ctx, account.ID, contact.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return toolError(fmt.Sprintf("no conversation with %s", args.Phone))
		}
		s.logger.Error("failed to load conversation", zap.Error(err))
		return toolError("failed to update conversation")
	}

	if args.Archived != nil {
		if err := s.repo.Conversation().SetArchived(ctx, conv.ID, *args.Archived); err != nil {
			s.logger.Error("failed to set archived flag", zap.Error(err))
			return toolError("failed to update conversation")
		}
	}
	if args.MarkRead != nil && *args.MarkRead {
		if err := s.repo.Conversation().ResetUnread(ctx, conv.ID); err != nil {
			s.logger.Error("failed to reset unread count", zap.Error(err))
			return toolError("failed to update conversation")
		}
	}

	return &api.UpdateResult{
		Success:  true,
		Archived: args.Archived,
		MarkRead: args.MarkRead,
		Phone:    contact.PhoneNumber,
	}
}

// checkWindow rejects free-form sends outside the 24-hour messaging
// window with a pointer at the template path.
func (s *gatewayService) checkWindow(conv *models.Conversation) interface{} {
	if conv.WindowOpen(time.Now()) {
		return nil
	}

	msg := "the 24-hour messaging window for this conversation is closed"
	if !conv.WindowExpiresAt.Valid {
		msg = "this contact has never messaged you, so no messaging window is open"
	}

	return toolErrorWithDetails(msg, map[string]string{
		"hint": "use send_template with an approved template to re-open the conversation",
	})
}

// outboundDraft is one pending send: what to record plus how to
// deliver it.
type outboundDraft struct {
	msgType models.MessageType
	body    string
	replyTo string
	send    func(ctx context.Context) (string, error)
}

// deliver runs the outbound pipeline: record pending, call the
// provider, then mark sent or failed. The pending row is written first
// so a crash mid-send leaves an auditable trace.
func (s *gatewayService) deliver(ctx context.Context, account *models.Account, contact *models.Contact, conv *models.Conversation, draft outboundDraft) interface{} {
	now := time.Now().UTC()

	msg := &models.Message{
		ConversationID: conv.ID,
		ExternalID:     fmt.Sprintf("pending-%d-%d", conv.ID, now.UnixNano()),
		Direction:      models.DirectionOutbound,
		Type:           draft.msgType,
		Status:         models.MessageStatusPending,
		Timestamp:      now,
	}
	if draft.body != "" {
		msg.Body = sql.NullString{String: draft.body, Valid: true}
	}
	if draft.replyTo != "" {
		msg.ReplyToID = sql.NullString{String: draft.replyTo, Valid: true}
	}

	msgID, err := s.repo.Message().InsertOutbound(ctx, msg)
	if err != nil {
		s.logger.Error("failed to record outbound message", zap.Error(err))
		return toolError("failed to send message")
	}

	externalID, err := draft.send(ctx)
	if err != nil {
		code, errMsg := providerFailure(err)
		if markErr := s.repo.Message().MarkFailed(ctx, msgID, code, errMsg); markErr != nil {
			s.logger.Error("failed to mark message failed",
				zap.Int64("message_id", msgID), zap.Error(markErr))
		}
		s.logger.Warn("provider rejected send",
			zap.Int64("message_id", msgID),
			zap.String("to", contact.PhoneNumber),
			zap.Error(err))
		return toolError(fmt.Sprintf("send failed: %s", errMsg))
	}

	if err := s.repo.Message().MarkSent(ctx, msgID, externalID, now); err != nil {
		s.logger.Error("failed to mark message sent",
			zap.Int64("message_id", msgID), zap.Error(err))
	}
	if err := s.repo.Conversation().ApplyOutbound(ctx, conv.ID, now, models.PreviewText(draft.msgType, draft.body)); err != nil {
		s.logger.Error("failed to update conversation activity",
			zap.Int64("conversation_id", conv.ID), zap.Error(err))
	}

	return &api.SendResult{
		MessageID:  fmt.Sprintf("%d", msgID),
		ExternalID: externalID,
		Status:     string(models.MessageStatusSent),
	}
}

// providerFailure extracts a stable error code and human message from
// a send failure.
func providerFailure(err error) (code, msg string) {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%d", apiErr.Code), apiErr.Message
	}
	return "transport", err.Error()
}

// templateCatalog fetches the account's template catalog, served from
// a short-lived Redis cache so repeated list/send calls do not hammer
// the provider.
func (s *gatewayService) templateCatalog(ctx context.Context, account *models.Account) ([]provider.Template, error) {
	cacheKey := fmt.Sprintf("templates:%d", account.ID)

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var catalog []provider.Template
			if err := json.Unmarshal(data, &catalog); err == nil {
				return catalog, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("template cache read failed", zap.Error(err))
		}
	}

	catalog, err := s.provider.FetchTemplates(ctx, account)
	if err != nil {
		s.logger.Error("failed to fetch templates",
			zap.Int64("account_id", account.ID), zap.Error(err))
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(catalog); err == nil {
			ttl := time.Duration(s.cfg.Provider.TemplateCacheTTL) * time.Second
			if err := s.redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
				s.logger.Warn("template cache write failed", zap.Error(err))
			}
		}
	}

	return catalog, nil
}

// findTemplate picks the catalog entry by name; when a language is
// given it must match exactly, otherwise the first name match wins.
func findTemplate(catalog []provider.Template, name, language string) *provider.Template {
	for i := range catalog {
		if catalog[i].Name != name {
			continue
		}
		if language == "" || strings.EqualFold(catalog[i].Language, language) {
			return &catalog[i]
		}
	}
	return nil
}

func mapConversationList(conversations []*models.ConversationDetail, now time.Time) *api.ConversationListResponse {
	out := make([]api.Conversation, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, mapConversationDetail(c, now))
	}
	return &api.ConversationListResponse{
		Conversations: out,
		Pagination: api.Pagination{
			CurrentPage:  1,
			TotalPages:   1,
			TotalItems:   len(out),
			ItemsPerPage: len(out),
		},
	}
}

func mapConversationDetail(c *models.ConversationDetail, now time.Time) api.Conversation {
	conv := mapConversationHeader(&c.Conversation, nil, now)
	conv.ContactPhone = c.ContactPhone
	conv.ContactName = nullableString(c.ContactName)
	return conv
}

func mapConversationHeader(c *models.Conversation, contact *models.Contact, now time.Time) api.Conversation {
	out := api.Conversation{
		ID:          c.ID,
		UnreadCount: c.UnreadCount,
		WindowOpen:  c.WindowOpen(now),
		Archived:    c.Archived,
	}
	if c.LastMessageAt.Valid {
		t := c.LastMessageAt.Time
		out.LastMessageAt = &t
	}
	if c.LastMessagePreview.Valid {
		p := c.LastMessagePreview.String
		out.LastMessagePreview = &p
	}
	if c.WindowExpiresAt.Valid {
		t := c.WindowExpiresAt.Time
		out.WindowExpiresAt = &t
	}
	if contact != nil {
		out.ContactPhone = contact.PhoneNumber
		out.ContactName = nullableString(contact.DisplayName)
	}
	return out
}

func mapMessage(m *models.Message) api.Message {
	out := api.Message{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Direction:  string(m.Direction),
		Type:       string(m.Type),
		Status:     string(m.Status),
		Timestamp:  m.Timestamp,
	}
	out.Body = nullableString(m.Body)
	out.MediaRef = nullableString(m.MediaRef)
	out.ReplyToID = nullableString(m.ReplyToID)
	out.ErrorCode = nullableString(m.ErrorCode)
	out.ErrorMessage = nullableString(m.ErrorMessage)
	if m.StatusAt.Valid {
		t := m.StatusAt.Time
		out.StatusAt = &t
	}
	return out
}

func mapTemplateInfo(tpl *provider.Template) api.TemplateInfo {
	info := api.TemplateInfo{
		Name:      tpl.Name,
		Language:  tpl.Language,
		Status:    tpl.Status,
		Category:  tpl.Category,
		Variables: extractVariables(tpl),
	}
	for _, comp := range tpl.Components {
		if strings.EqualFold(comp.Type, "body") {
			info.Body = comp.Text
			break
		}
	}
	return info
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
