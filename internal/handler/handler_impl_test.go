package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/handler"
	"github.com/avolkov/wabridge/internal/repository"
	"github.com/avolkov/wabridge/internal/service"
	"github.com/avolkov/wabridge/internal/service/mocks"
)

// serve routes one request through the full route table so path
// parameters resolve the same way they do in production.
func serve(svc *service.Service, req *http.Request) *httptest.ResponseRecorder {
	h := handler.NewHandler(svc, zap.NewNop())
	w := httptest.NewRecorder()
	api.Handler(h).ServeHTTP(w, req)
	return w
}

func TestHandler_VerifyWebhook(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMocks     func(*mocks.MockWebhookService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "success echoes challenge",
			query: "hub.mode=subscribe&hub.verify_token=sekrit&hub.challenge=12345",
			setupMocks: func(m *mocks.MockWebhookService) {
				m.EXPECT().VerifyChallenge(gomock.Any(), "sekrit").Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "12345",
		},
		{
			name:           "wrong mode",
			query:          "hub.mode=unsubscribe&hub.verify_token=sekrit&hub.challenge=12345",
			setupMocks:     func(m *mocks.MockWebhookService) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing challenge",
			query:          "hub.mode=subscribe&hub.verify_token=sekrit",
			setupMocks:     func(m *mocks.MockWebhookService) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:  "unknown token",
			query: "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345",
			setupMocks: func(m *mocks.MockWebhookService) {
				m.EXPECT().VerifyChallenge(gomock.Any(), "wrong").Return(false, nil)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:  "store failure",
			query: "hub.mode=subscribe&hub.verify_token=sekrit&hub.challenge=12345",
			setupMocks: func(m *mocks.MockWebhookService) {
				m.EXPECT().VerifyChallenge(gomock.Any(), "sekrit").Return(false, fmt.Errorf("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockWebhook := mocks.NewMockWebhookService(ctrl)
			tt.setupMocks(mockWebhook)

			svc := &service.Service{Webhook: mockWebhook}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/webhook?"+tt.query, nil)
			w := serve(svc, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestHandler_ReceiveWebhook(t *testing.T) {
	payload := []byte(`{"object":"whatsapp_business_account","entry":[]}`)

	tests := []struct {
		name           string
		setupMocks     func(*mocks.MockWebhookService)
		expectedStatus int
	}{
		{
			name: "accepted",
			setupMocks: func(m *mocks.MockWebhookService) {
				m.EXPECT().Ingest(gomock.Any(), payload, "sha256=abc").Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "invalid signature",
			setupMocks: func(m *mocks.MockWebhookService) {
				m.EXPECT().Ingest(gomock.Any(), payload, "sha256=abc").Return(service.ErrInvalidSignature)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			// A staging failure must not be acknowledged, so the
			// provider redelivers.
			name: "staging failure",
			setupMocks: func(m *mocks.MockWebhookService) {
				m.EXPECT().Ingest(gomock.Any(), payload, "sha256=abc").Return(fmt.Errorf("insert failed"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockWebhook := mocks.NewMockWebhookService(ctrl)
			tt.setupMocks(mockWebhook)

			svc := &service.Service{Webhook: mockWebhook}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook", bytes.NewReader(payload))
			req.Header.Set("X-Hub-Signature-256", "sha256=abc")
			w := serve(svc, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandler_InvokeTool(t *testing.T) {
	t.Run("tool failures still answer 200", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockGateway := mocks.NewMockGatewayService(ctrl)
		mockGateway.EXPECT().
			Invoke(gomock.Any(), "wab_key", "send_text", gomock.Any()).
			Return(&api.ToolError{Error: true, Message: "invalid or expired API key"})

		svc := &service.Service{Gateway: mockGateway}

		body := `{"api_key":"wab_key","tool":"send_text","tool_args":{"message":"hi"}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/invoke", strings.NewReader(body))
		w := serve(svc, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp api.ToolError
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Error)
		assert.Equal(t, "invalid or expired API key", resp.Message)
	})

	t.Run("malformed request body", func(t *testing.T) {
		svc := &service.Service{}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/invoke", strings.NewReader("{not json"))
		w := serve(svc, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_CreateAPIKey(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		body           string
		setupMocks     func(*mocks.MockAPIKeyService)
		expectedStatus int
	}{
		{
			name:   "created",
			target: "/api/v1/accounts/7/keys",
			body:   `{"name":"ci-bot","scopes":["read"]}`,
			setupMocks: func(m *mocks.MockAPIKeyService) {
				m.EXPECT().
					Create(gomock.Any(), int64(7), gomock.Any()).
					Return(&api.CreateKeyResponse{ID: 1, Key: "wab_plaintext"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "validation failure",
			target: "/api/v1/accounts/7/keys",
			body:   `{"name":"","scopes":[]}`,
			setupMocks: func(m *mocks.MockAPIKeyService) {
				m.EXPECT().
					Create(gomock.Any(), int64(7), gomock.Any()).
					Return(nil, fmt.Errorf("%w: key name is required", service.ErrValidation))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "unknown account",
			target: "/api/v1/accounts/99/keys",
			body:   `{"name":"x","scopes":["read"]}`,
			setupMocks: func(m *mocks.MockAPIKeyService) {
				m.EXPECT().
					Create(gomock.Any(), int64(99), gomock.Any()).
					Return(nil, repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad account id",
			target:         "/api/v1/accounts/abc/keys",
			body:           `{"name":"x","scopes":["read"]}`,
			setupMocks:     func(m *mocks.MockAPIKeyService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockKeys := mocks.NewMockAPIKeyService(ctrl)
			tt.setupMocks(mockKeys)

			svc := &service.Service{APIKey: mockKeys}

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			w := serve(svc, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandler_RevokeAPIKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockKeys := mocks.NewMockAPIKeyService(ctrl)
	mockKeys.EXPECT().Revoke(gomock.Any(), int64(7), int64(3)).Return(nil)
	mockKeys.EXPECT().Revoke(gomock.Any(), int64(7), int64(4)).Return(repository.ErrNotFound)

	svc := &service.Service{APIKey: mockKeys}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/7/keys/3", nil)
	w := serve(svc, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/7/keys/4", nil)
	w = serve(svc, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListConversations(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockConvs := mocks.NewMockConversationService(ctrl)
	mockConvs.EXPECT().
		List(gomock.Any(), int64(7), true, 2, 10).
		Return(&api.ConversationListResponse{
			Conversations: []api.Conversation{{ID: 11, ContactPhone: "+491700000001"}},
			Pagination:    api.Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, ItemsPerPage: 10},
		}, nil)

	svc := &service.Service{Conversation: mockConvs}

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/accounts/7/conversations?include_archived=true&page=2&limit=10", nil)
	w := serve(svc, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.ConversationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "+491700000001", resp.Conversations[0].ContactPhone)
	assert.Equal(t, 2, resp.Pagination.CurrentPage)
}

func TestHandler_ListMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockConvs := mocks.NewMockConversationService(ctrl)
	mockConvs.EXPECT().
		Messages(gomock.Any(), int64(11), 1, 20).
		Return(&api.MessageListResponse{
			Messages: []api.Message{{ID: 1, ExternalID: "wamid.A", Direction: "inbound", Timestamp: time.Now()}},
		}, nil)
	mockConvs.EXPECT().
		Messages(gomock.Any(), int64(404), 1, 20).
		Return(nil, repository.ErrNotFound)

	svc := &service.Service{Conversation: mockConvs}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/11/messages", nil)
	w := serve(svc, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversations/404/messages", nil)
	w = serve(svc, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_UpdateConversation(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockConvs := mocks.NewMockConversationService(ctrl)
	mockConvs.EXPECT().
		Update(gomock.Any(), int64(11), gomock.Any()).
		DoAndReturn(func(_ interface{}, _ int64, req *api.UpdateConversationRequest) error {
			require.NotNil(t, req.Archived)
			assert.True(t, *req.Archived)
			return nil
		})

	svc := &service.Service{Conversation: mockConvs}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/conversations/11", strings.NewReader(`{"archived":true}`))
	w := serve(svc, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_ResolveMedia(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockMedia := mocks.NewMockMediaService(ctrl)
	mockMedia.EXPECT().
		ResolveURL(gomock.Any(), "7/media-55").
		Return("http://localhost:8080/media/7/media-55", nil)
	mockMedia.EXPECT().
		ResolveURL(gomock.Any(), "gone").
		Return("", service.ErrMediaNotFound)

	svc := &service.Service{Media: mockMedia}

	// Reference with an escaped slash resolves and redirects.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/7%2Fmedia-55", nil)
	w := serve(svc, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:8080/media/7/media-55", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/media/gone", nil)
	w = serve(svc, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		health         *service.HealthStatus
		expectedStatus int
	}{
		{
			name: "healthy",
			health: &service.HealthStatus{
				Status:          api.Healthy,
				DatabaseStatus:  api.ComponentConnected,
				RedisStatus:     api.ComponentConnected,
				SchedulerStatus: api.ComponentRunning,
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unhealthy",
			health: &service.HealthStatus{
				Status:         api.Unhealthy,
				DatabaseStatus: api.ComponentDisconnected,
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockHealth := mocks.NewMockHealthService(ctrl)
			mockHealth.EXPECT().GetHealth().Return(tt.health)

			svc := &service.Service{Health: mockHealth}

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := serve(svc, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp api.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.health.Status, resp.Status)
		})
	}
}
