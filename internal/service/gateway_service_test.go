package service_test

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/provider"
	provmocks "github.com/avolkov/wabridge/internal/provider/mocks"
	"github.com/avolkov/wabridge/internal/repository"
	repomocks "github.com/avolkov/wabridge/internal/repository/mocks"
	"github.com/avolkov/wabridge/internal/service"
)

const testPlainKey = "wab_test-plaintext-key"

func hashOf(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

type gatewayFixture struct {
	repo     *repomocks.MockRepository
	accounts *repomocks.MockAccountRepository
	contacts *repomocks.MockContactRepository
	convs    *repomocks.MockConversationRepository
	messages *repomocks.MockMessageRepository
	keys     *repomocks.MockAPIKeyRepository
	provider *provmocks.MockClient
	svc      service.GatewayService
	touched  chan struct{}
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	ctrl := gomock.NewController(t)

	f := &gatewayFixture{
		repo:     repomocks.NewMockRepository(ctrl),
		accounts: repomocks.NewMockAccountRepository(ctrl),
		contacts: repomocks.NewMockContactRepository(ctrl),
		convs:    repomocks.NewMockConversationRepository(ctrl),
		messages: repomocks.NewMockMessageRepository(ctrl),
		keys:     repomocks.NewMockAPIKeyRepository(ctrl),
		provider: provmocks.NewMockClient(ctrl),
		touched:  make(chan struct{}, 4),
	}

	f.repo.EXPECT().Account().Return(f.accounts).AnyTimes()
	f.repo.EXPECT().Contact().Return(f.contacts).AnyTimes()
	f.repo.EXPECT().Conversation().Return(f.convs).AnyTimes()
	f.repo.EXPECT().Message().Return(f.messages).AnyTimes()
	f.repo.EXPECT().APIKey().Return(f.keys).AnyTimes()

	cfg := testConfig()
	f.svc = service.NewGatewayService(cfg, f.repo, f.provider, nil, zap.NewNop())
	return f
}

// expectKey wires up authentication for the standard test key and the
// best-effort usage touch. The touch runs on its own goroutine, so the
// expectation signals f.touched; tests that get past the scope check
// must drain it via awaitTouch before the controller finishes.
func (f *gatewayFixture) expectKey(scopes string) {
	f.keys.EXPECT().
		GetByHash(gomock.Any(), hashOf(testPlainKey)).
		Return(&models.APIKey{ID: 1, AccountID: 7, Scopes: scopes}, nil)
	f.keys.EXPECT().
		TouchLastUsed(gomock.Any(), int64(1)).
		DoAndReturn(func(context.Context, int64) error {
			f.touched <- struct{}{}
			return nil
		}).
		AnyTimes()
}

func (f *gatewayFixture) awaitTouch(t *testing.T) {
	t.Helper()
	select {
	case <-f.touched:
	case <-time.After(2 * time.Second):
		t.Fatal("API key usage was never touched")
	}
}

func (f *gatewayFixture) expectAccount() *models.Account {
	account := &models.Account{
		ID:          7,
		PhoneNumber: "+15550001111",
		DisplayName: "Acme Support",
		Status:      models.AccountStatusActive,
	}
	f.accounts.EXPECT().GetByID(gomock.Any(), int64(7)).Return(account, nil)
	return account
}

func openConversation() *models.Conversation {
	return &models.Conversation{
		ID:              11,
		AccountID:       7,
		ContactID:       3,
		WindowExpiresAt: sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true},
	}
}

func TestGateway_InvalidKeyUniformError(t *testing.T) {
	f := newGatewayFixture(t)

	f.keys.EXPECT().GetByHash(gomock.Any(), gomock.Any()).Return(nil, repository.ErrNotFound)

	result := f.svc.Invoke(context.Background(), "wab_nope", "list_conversations", nil)

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	unknownMsg := toolErr.Message

	// Expired key: byte-identical message, nothing to enumerate on.
	f.keys.EXPECT().GetByHash(gomock.Any(), gomock.Any()).Return(&models.APIKey{
		ID:        1,
		ExpiresAt: sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true},
	}, nil)

	result = f.svc.Invoke(context.Background(), "wab_expired", "list_conversations", nil)
	toolErr, ok = result.(*api.ToolError)
	require.True(t, ok)
	assert.Equal(t, unknownMsg, toolErr.Message)

	// Empty key short-circuits before the store.
	result = f.svc.Invoke(context.Background(), "", "list_conversations", nil)
	toolErr, ok = result.(*api.ToolError)
	require.True(t, ok)
	assert.Equal(t, unknownMsg, toolErr.Message)
}

func TestGateway_UnknownToolBeforeScopeCheck(t *testing.T) {
	f := newGatewayFixture(t)

	// Key has no scopes at all, yet the unknown-tool error wins.
	f.expectKey("")

	result := f.svc.Invoke(context.Background(), testPlainKey, "drop_database", nil)

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "unknown tool")
	assert.NotContains(t, toolErr.Message, "scope")

	// The key authenticated, so the invocation counts as usage even
	// though it never reached a tool.
	f.awaitTouch(t)
}

func TestGateway_ScopeEnforcement(t *testing.T) {
	f := newGatewayFixture(t)

	// Read-only key may not send.
	f.expectKey("read")

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_text", map[string]interface{}{
		"from":    "+15550001111",
		"phone":   "+491700000001",
		"message": "hi",
	})

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, `"send" scope`)

	// Denied invocations still register as key activity.
	f.awaitTouch(t)
}

func TestGateway_MissingFromDisclosure(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("read")
	f.expectAccount()

	result := f.svc.Invoke(context.Background(), testPlainKey, "list_conversations", nil)

	disclosure, ok := result.(*api.Disclosure)
	require.True(t, ok)
	assert.True(t, disclosure.Disclosure)
	assert.Equal(t, "from", disclosure.Parameter)
	require.Len(t, disclosure.Options, 1)
	assert.Equal(t, "+15550001111", disclosure.Options[0].Value)
	assert.Equal(t, "Acme Support", disclosure.Options[0].Label)

	f.awaitTouch(t)
}

func TestGateway_MissingPhoneDisclosesRecentContacts(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	f.expectAccount()
	f.contacts.EXPECT().ListRecent(gomock.Any(), int64(7), gomock.Any()).Return([]*models.Contact{
		{PhoneNumber: "+491700000001", DisplayName: sql.NullString{String: "Maria", Valid: true}},
		{PhoneNumber: "+491700000002"},
	}, nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_text", map[string]interface{}{
		"from":    "+15550001111",
		"message": "hi",
	})

	disclosure, ok := result.(*api.Disclosure)
	require.True(t, ok)
	assert.Equal(t, "phone", disclosure.Parameter)
	require.Len(t, disclosure.Options, 2)
	assert.Equal(t, "+491700000001", disclosure.Options[0].Value)
	assert.Equal(t, "Maria", disclosure.Options[0].Label)

	f.awaitTouch(t)
}

func TestGateway_SendText_WindowClosed(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(&models.Contact{ID: 3, PhoneNumber: "+491700000001", WaID: "491700000001"}, nil)
	f.convs.EXPECT().FindOrCreate(gomock.Any(), int64(7), int64(3)).Return(&models.Conversation{
		ID:              11,
		WindowExpiresAt: sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true},
	}, nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_text", map[string]interface{}{
		"from":    "+15550001111",
		"phone":   "+491700000001",
		"message": "hi",
	})

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "window")
	details, ok := toolErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details["hint"], "send_template")

	f.awaitTouch(t)
}

func TestGateway_SendText_Success(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	account := f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(&models.Contact{ID: 3, PhoneNumber: "+491700000001", WaID: "491700000001"}, nil)
	f.convs.EXPECT().FindOrCreate(gomock.Any(), int64(7), int64(3)).Return(openConversation(), nil)

	f.messages.EXPECT().
		InsertOutbound(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *models.Message) (int64, error) {
			assert.Equal(t, models.DirectionOutbound, msg.Direction)
			assert.Equal(t, models.MessageStatusPending, msg.Status)
			assert.Equal(t, "hi there", msg.Body.String)
			return 500, nil
		})

	f.provider.EXPECT().
		SendText(gomock.Any(), account, "491700000001", "hi there", "").
		Return("wamid.OUT1", nil)

	f.messages.EXPECT().MarkSent(gomock.Any(), int64(500), "wamid.OUT1", gomock.Any()).Return(nil)
	f.convs.EXPECT().ApplyOutbound(gomock.Any(), int64(11), gomock.Any(), "hi there").Return(nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_text", map[string]interface{}{
		"from":    "+15550001111",
		"phone":   "+491700000001",
		"message": "hi there",
	})

	sent, ok := result.(*api.SendResult)
	require.True(t, ok)
	assert.Equal(t, "500", sent.MessageID)
	assert.Equal(t, "wamid.OUT1", sent.ExternalID)
	assert.Equal(t, "sent", sent.Status)

	f.awaitTouch(t)
}

func TestGateway_SendText_ProviderRejection(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	account := f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(&models.Contact{ID: 3, PhoneNumber: "+491700000001", WaID: "491700000001"}, nil)
	f.convs.EXPECT().FindOrCreate(gomock.Any(), int64(7), int64(3)).Return(openConversation(), nil)
	f.messages.EXPECT().InsertOutbound(gomock.Any(), gomock.Any()).Return(int64(500), nil)

	f.provider.EXPECT().
		SendText(gomock.Any(), account, "491700000001", "hi", "").
		Return("", &provider.APIError{Code: 131026, Message: "Receiver is incapable of receiving this message"})

	f.messages.EXPECT().MarkFailed(gomock.Any(), int64(500), "131026", "Receiver is incapable of receiving this message").Return(nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_text", map[string]interface{}{
		"from":    "+15550001111",
		"phone":   "+491700000001",
		"message": "hi",
	})

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "Receiver is incapable")

	f.awaitTouch(t)
}

func TestGateway_SendText_NewNumberRegistersContact(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	f.expectAccount()

	// Unknown number: send tools create the contact on the fly.
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491709999999").
		Return(nil, repository.ErrNotFound)
	f.contacts.EXPECT().
		Upsert(gomock.Any(), int64(7), "491709999999", "+491709999999", gomock.Nil()).
		Return(&models.Contact{ID: 4, PhoneNumber: "+491709999999", WaID: "491709999999"}, nil)
	f.convs.EXPECT().FindOrCreate(gomock.Any(), int64(7), int64(4)).Return(&models.Conversation{ID: 12}, nil)

	// Fresh conversation: no window, free-form send refused.
	result := f.svc.Invoke(context.Background(), testPlainKey, "send_text", map[string]interface{}{
		"from":    "+15550001111",
		"phone":   "+491709999999",
		"message": "hi",
	})

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "never messaged")

	f.awaitTouch(t)
}

func TestGateway_SendTemplate_UnknownTemplateListsCatalog(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	account := f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(&models.Contact{ID: 3, WaID: "491700000001"}, nil)

	f.provider.EXPECT().FetchTemplates(gomock.Any(), account).Return([]provider.Template{
		{Name: "order_update", Language: "en"},
		{Name: "welcome", Language: "en"},
	}, nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_template", map[string]interface{}{
		"from":     "+15550001111",
		"phone":    "+491700000001",
		"template": "no_such_template",
	})

	paramErr, ok := result.(*api.TemplateParamError)
	require.True(t, ok)
	assert.Contains(t, paramErr.Message, "no_such_template")
	assert.Equal(t, []string{"order_update", "welcome"}, paramErr.Templates)

	f.awaitTouch(t)
}

func TestGateway_SendTemplate_Success_OutsideWindow(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	account := f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(&models.Contact{ID: 3, WaID: "491700000001"}, nil)

	f.provider.EXPECT().FetchTemplates(gomock.Any(), account).Return([]provider.Template{
		{
			Name:     "welcome",
			Language: "en",
			Components: []provider.TemplateComponent{
				{Type: "BODY", Text: "Welcome, {{1}}!"},
			},
		},
	}, nil)

	// Window long closed; templates go through anyway.
	f.convs.EXPECT().FindOrCreate(gomock.Any(), int64(7), int64(3)).Return(&models.Conversation{
		ID:              11,
		WindowExpiresAt: sql.NullTime{Time: time.Now().Add(-48 * time.Hour), Valid: true},
	}, nil)

	f.messages.EXPECT().
		InsertOutbound(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *models.Message) (int64, error) {
			assert.Equal(t, models.MessageTypeTemplate, msg.Type)
			assert.Equal(t, "Welcome, Maria!", msg.Body.String)
			return 501, nil
		})

	f.provider.EXPECT().
		SendTemplate(gomock.Any(), account, "491700000001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *models.Account, _ string, tpl provider.TemplateSend) (string, error) {
			assert.Equal(t, "welcome", tpl.Name)
			require.Len(t, tpl.Components, 1)
			assert.Equal(t, "Maria", tpl.Components[0].Parameters[0].Text)
			return "wamid.TPL1", nil
		})

	f.messages.EXPECT().MarkSent(gomock.Any(), int64(501), "wamid.TPL1", gomock.Any()).Return(nil)
	f.convs.EXPECT().ApplyOutbound(gomock.Any(), int64(11), gomock.Any(), "Welcome, Maria!").Return(nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_template", map[string]interface{}{
		"from":     "+15550001111",
		"phone":    "+491700000001",
		"template": "welcome",
		"parameters": []map[string]interface{}{
			{"value": "Maria"},
		},
	})

	sent, ok := result.(*api.SendResult)
	require.True(t, ok)
	assert.Equal(t, "Welcome, Maria!", sent.Preview)

	f.awaitTouch(t)
}

func TestGateway_SendTemplate_ProviderRejectionCarriesCatalog(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	account := f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(&models.Contact{ID: 3, WaID: "491700000001"}, nil)

	f.provider.EXPECT().FetchTemplates(gomock.Any(), account).Return([]provider.Template{
		{
			Name:     "welcome",
			Language: "en",
			Components: []provider.TemplateComponent{
				{Type: "BODY", Text: "Welcome, {{1}}!"},
			},
		},
		{Name: "order_update", Language: "en"},
	}, nil)

	f.convs.EXPECT().FindOrCreate(gomock.Any(), int64(7), int64(3)).Return(openConversation(), nil)
	f.messages.EXPECT().InsertOutbound(gomock.Any(), gomock.Any()).Return(int64(502), nil)

	// The template passed local validation but the provider disagrees
	// about the name/language pair.
	f.provider.EXPECT().
		SendTemplate(gomock.Any(), account, "491700000001", gomock.Any()).
		Return("", &provider.APIError{Code: 132001, Message: "Template name does not exist in the translation"})

	f.messages.EXPECT().
		MarkFailed(gomock.Any(), int64(502), "132001", "Template name does not exist in the translation").
		Return(nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_template", map[string]interface{}{
		"from":     "+15550001111",
		"phone":    "+491700000001",
		"template": "welcome",
		"parameters": []map[string]interface{}{
			{"value": "Maria"},
		},
	})

	// A rejected template send hands back the current catalog so the
	// caller can pick a template that actually exists.
	paramErr, ok := result.(*api.TemplateParamError)
	require.True(t, ok)
	assert.Contains(t, paramErr.Message, "send failed:")
	assert.Contains(t, paramErr.Message, "Template name does not exist")
	assert.Equal(t, []string{"welcome", "order_update"}, paramErr.Templates)

	f.awaitTouch(t)
}

func TestGateway_SendReaction_TargetsMessagesOwnThread(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	account := f.expectAccount()

	f.messages.EXPECT().
		GetByExternalID(gomock.Any(), "wamid.IN42").
		Return(&models.Message{ID: 900, ConversationID: 11, ExternalID: "wamid.IN42"}, nil)
	f.convs.EXPECT().GetByID(gomock.Any(), int64(11)).Return(openConversation(), nil)

	// The recipient comes from the target message's conversation, not
	// from anything the caller supplies.
	f.contacts.EXPECT().
		GetByID(gomock.Any(), int64(3)).
		Return(&models.Contact{ID: 3, PhoneNumber: "+491700000001", WaID: "491700000001"}, nil)

	f.messages.EXPECT().
		InsertOutbound(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *models.Message) (int64, error) {
			assert.Equal(t, models.MessageTypeReaction, msg.Type)
			assert.Equal(t, "wamid.IN42", msg.ReplyToID.String)
			return 503, nil
		})

	f.provider.EXPECT().
		SendReaction(gomock.Any(), account, "491700000001", "wamid.IN42", "\U0001F44D").
		Return("wamid.RX1", nil)

	f.messages.EXPECT().MarkSent(gomock.Any(), int64(503), "wamid.RX1", gomock.Any()).Return(nil)
	f.convs.EXPECT().ApplyOutbound(gomock.Any(), int64(11), gomock.Any(), gomock.Any()).Return(nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_reaction", map[string]interface{}{
		"from":       "+15550001111",
		"message_id": "wamid.IN42",
		"emoji":      "\U0001F44D",
	})

	sent, ok := result.(*api.SendResult)
	require.True(t, ok)
	assert.Equal(t, "wamid.RX1", sent.ExternalID)

	f.awaitTouch(t)
}

func TestGateway_SendReaction_PhoneMismatchRejected(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	f.expectAccount()

	f.messages.EXPECT().
		GetByExternalID(gomock.Any(), "wamid.IN42").
		Return(&models.Message{ID: 900, ConversationID: 11, ExternalID: "wamid.IN42"}, nil)
	f.convs.EXPECT().GetByID(gomock.Any(), int64(11)).Return(openConversation(), nil)
	f.contacts.EXPECT().
		GetByID(gomock.Any(), int64(3)).
		Return(&models.Contact{ID: 3, PhoneNumber: "+491700000001", WaID: "491700000001"}, nil)

	// A phone that names a different thread than the target message is
	// refused before anything reaches the provider.
	result := f.svc.Invoke(context.Background(), testPlainKey, "send_reaction", map[string]interface{}{
		"from":       "+15550001111",
		"phone":      "+491709999999",
		"message_id": "wamid.IN42",
		"emoji":      "\U0001F44D",
	})

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "belongs to the conversation with +491700000001")

	f.awaitTouch(t)
}

func TestGateway_SendReaction_CrossAccountTargetHidden(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("send")
	f.expectAccount()

	f.messages.EXPECT().
		GetByExternalID(gomock.Any(), "wamid.OTHER").
		Return(&models.Message{ID: 901, ConversationID: 42, ExternalID: "wamid.OTHER"}, nil)
	f.convs.EXPECT().GetByID(gomock.Any(), int64(42)).Return(&models.Conversation{
		ID:        42,
		AccountID: 99,
		ContactID: 8,
	}, nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "send_reaction", map[string]interface{}{
		"from":       "+15550001111",
		"message_id": "wamid.OTHER",
		"emoji":      "\U0001F44D",
	})

	// Another tenant's message looks exactly like a missing one.
	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "wamid.OTHER not found")

	f.awaitTouch(t)
}

func TestGateway_ListConversations(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("read")
	f.expectAccount()

	f.convs.EXPECT().
		List(gomock.Any(), int64(7), false, 0, 20).
		Return([]*models.ConversationDetail{
			{
				Conversation: *openConversation(),
				ContactPhone: "+491700000001",
				ContactName:  sql.NullString{String: "Maria", Valid: true},
			},
		}, nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "list_conversations", map[string]interface{}{
		"from": "+15550001111",
	})

	list, ok := result.(*api.ConversationListResponse)
	require.True(t, ok)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, "+491700000001", list.Conversations[0].ContactPhone)
	assert.True(t, list.Conversations[0].WindowOpen)

	f.awaitTouch(t)
}

func TestGateway_GetConversation_UnknownPhone(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("read")
	f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(nil, repository.ErrNotFound)

	// Read tools never create contacts.
	result := f.svc.Invoke(context.Background(), testPlainKey, "get_conversation", map[string]interface{}{
		"from":  "+15550001111",
		"phone": "+491700000001",
	})

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "no conversation")

	f.awaitTouch(t)
}

func TestGateway_UpdateConversation(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("write")
	f.expectAccount()
	f.contacts.EXPECT().
		GetByPhoneNumber(gomock.Any(), int64(7), "+491700000001").
		Return(&models.Contact{ID: 3, PhoneNumber: "+491700000001"}, nil)
	f.convs.EXPECT().GetByContact(gomock.Any(), int64(7), int64(3)).Return(openConversation(), nil)

	f.convs.EXPECT().SetArchived(gomock.Any(), int64(11), true).Return(nil)
	f.convs.EXPECT().ResetUnread(gomock.Any(), int64(11)).Return(nil)

	result := f.svc.Invoke(context.Background(), testPlainKey, "updateConversation", map[string]interface{}{
		"from":      "+15550001111",
		"phone":     "+491700000001",
		"archived":  true,
		"mark_read": true,
	})

	update, ok := result.(*api.UpdateResult)
	require.True(t, ok)
	assert.True(t, update.Success)

	f.awaitTouch(t)
}

func TestGateway_RejectsUnknownArguments(t *testing.T) {
	f := newGatewayFixture(t)

	f.expectKey("read")

	result := f.svc.Invoke(context.Background(), testPlainKey, "list_conversations", map[string]interface{}{
		"from":  "+15550001111",
		"fromm": "typo",
	})

	toolErr, ok := result.(*api.ToolError)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "invalid tool arguments")

	f.awaitTouch(t)
}
