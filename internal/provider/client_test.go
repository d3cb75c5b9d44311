package provider_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
	"github.com/avolkov/wabridge/internal/models"
	"github.com/avolkov/wabridge/internal/provider"
)

func testAccount() *models.Account {
	return &models.Account{
		ID:            7,
		PhoneNumber:   "+15550001111",
		PhoneNumberID: sql.NullString{String: "123456789", Valid: true},
		BusinessID:    "biz-1",
		AccessToken:   "tok-secret",
	}
}

func newTestClient(baseURL string) provider.Client {
	cfg := &config.ProviderConfig{
		BaseURL: baseURL,
		Timeout: 5,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:      3,
			Interval:         60,
			Timeout:          60,
			FailureRatio:     0.6,
			ConsecutiveFails: 100,
		},
	}
	return provider.NewClient(cfg, zap.NewNop())
}

func TestClient_SendText(t *testing.T) {
	var captured map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/123456789/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok-secret", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.OUT1"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	id, err := client.SendText(context.Background(), testAccount(), "491700000001", "hello", "wamid.REPLY")
	require.NoError(t, err)
	assert.Equal(t, "wamid.OUT1", id)

	assert.Equal(t, "whatsapp", captured["messaging_product"])
	assert.Equal(t, "491700000001", captured["to"])
	assert.Equal(t, "text", captured["type"])
	assert.Equal(t, map[string]interface{}{"body": "hello"}, captured["text"])
	assert.Equal(t, map[string]interface{}{"message_id": "wamid.REPLY"}, captured["context"])
}

func TestClient_SendText_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":131047,"type":"OAuthException","message":"Re-engagement message"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.SendText(context.Background(), testAccount(), "491700000001", "hello", "")
	require.Error(t, err)

	var apiErr *provider.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 131047, apiErr.Code)
	assert.Equal(t, "Re-engagement message", apiErr.Message)
}

func TestClient_SendText_MissingPhoneNumberID(t *testing.T) {
	client := newTestClient("http://unused.invalid")

	account := testAccount()
	account.PhoneNumberID = sql.NullString{}

	_, err := client.SendText(context.Background(), account, "491700000001", "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registered phone number id")
}

func TestClient_SendText_NoMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.SendText(context.Background(), testAccount(), "491700000001", "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no message id")
}

func TestClient_SendMedia(t *testing.T) {
	var captured map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.MEDIA1"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	id, err := client.SendMedia(context.Background(), testAccount(), "491700000001",
		"https://cdn.example.com/cat.jpg", "image", "a cat")
	require.NoError(t, err)
	assert.Equal(t, "wamid.MEDIA1", id)

	assert.Equal(t, "image", captured["type"])
	assert.Equal(t, map[string]interface{}{
		"link":    "https://cdn.example.com/cat.jpg",
		"caption": "a cat",
	}, captured["image"])
}

func TestClient_SendTemplate(t *testing.T) {
	var captured map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.TPL1"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	id, err := client.SendTemplate(context.Background(), testAccount(), "491700000001", provider.TemplateSend{
		Name:     "welcome",
		Language: "en",
		Components: []provider.ParamComponent{
			{Type: "body", Parameters: []provider.Parameter{{Type: "text", Text: "Maria"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.TPL1", id)

	tpl, ok := captured["template"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "welcome", tpl["name"])
	assert.Equal(t, map[string]interface{}{"code": "en"}, tpl["language"])
}

func TestClient_FetchTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/biz-1/message_templates", r.URL.Path)

		_, _ = w.Write([]byte(`{"data":[
			{"name":"welcome","language":"en","status":"APPROVED","category":"UTILITY",
			 "components":[{"type":"BODY","text":"Welcome, {{1}}!"}]}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	templates, err := client.FetchTemplates(context.Background(), testAccount())
	require.NoError(t, err)

	require.Len(t, templates, 1)
	assert.Equal(t, "welcome", templates[0].Name)
	assert.Equal(t, "APPROVED", templates[0].Status)
	require.Len(t, templates[0].Components, 1)
	assert.Equal(t, "Welcome, {{1}}!", templates[0].Components[0].Text)
}

func TestClient_FetchMediaInfoAndDownload(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/media-55", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"media-55","url":"` + srv.URL + `/blob/media-55","mime_type":"image/jpeg","file_size":3}`))
	})
	mux.HandleFunc("/blob/media-55", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF})
	})

	client := newTestClient(srv.URL)

	info, err := client.FetchMediaInfo(context.Background(), testAccount(), "media-55")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", info.MimeType)

	data, mimeType, err := client.DownloadMedia(context.Background(), testAccount(), info.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)
	assert.Equal(t, "image/jpeg", mimeType)
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.ProviderConfig{
		BaseURL: srv.URL,
		Timeout: 5,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         60,
			Timeout:          60,
			FailureRatio:     0.5,
			ConsecutiveFails: 3,
		},
	}
	client := provider.NewClient(cfg, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := client.SendText(context.Background(), testAccount(), "491700000001", "hello", "")
		require.Error(t, err)
	}

	state, _, _ := client.BreakerState()
	assert.Equal(t, "open", state)

	// While open, calls are refused before reaching the provider.
	_, err := client.SendText(context.Background(), testAccount(), "491700000001", "hello", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestClient_BreakerIgnoresProviderRejections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":131026,"message":"Receiver incapable"}}`))
	}))
	defer srv.Close()

	cfg := &config.ProviderConfig{
		BaseURL: srv.URL,
		Timeout: 5,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         60,
			Timeout:          60,
			FailureRatio:     0.5,
			ConsecutiveFails: 3,
		},
	}
	client := provider.NewClient(cfg, zap.NewNop())

	// 4xx-style rejections are the caller's problem and never trip the
	// breaker, however many arrive.
	for i := 0; i < 5; i++ {
		_, err := client.SendText(context.Background(), testAccount(), "491700000001", "hello", "")
		var apiErr *provider.APIError
		require.True(t, errors.As(err, &apiErr))
	}

	state, _, _ := client.BreakerState()
	assert.Equal(t, "closed", state)
}
