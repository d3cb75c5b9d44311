// Package handler provides HTTP request handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/api"
	"github.com/avolkov/wabridge/internal/middleware"
	"github.com/avolkov/wabridge/internal/repository"
	"github.com/avolkov/wabridge/internal/service"
)

const (
	errorCodeVerificationFailed = "WEBHOOK_VERIFICATION_FAILED"
	errorCodeValidation         = "VALIDATION_ERROR"
	errorCodeNotFound           = "NOT_FOUND"
	errorCodeMediaNotFound      = "MEDIA_NOT_FOUND"
)

const (
	errorMessageVerificationFailed = "Webhook verification failed"
	errorMessageInvalidBody        = "Invalid request body"
	errorMessageInvalidID          = "Invalid identifier in path"
	errorMessageNotFound           = "Resource not found"
	errorMessageMediaNotFound      = "Media not found"
)

// maxWebhookBody caps inbound webhook payloads; provider deliveries
// are far below this.
const maxWebhookBody = 1 << 20

const signatureHeader = "X-Hub-Signature-256"

type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates a new handler instance that implements api.ServerInterface.
func NewHandler(service *service.Service, logger *zap.Logger) api.ServerInterface {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// VerifyWebhook implements the provider's GET subscription handshake:
// echo hub.challenge when the verify token matches an account.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || challenge == "" {
		h.sendError(w, r, http.StatusForbidden, errorCodeVerificationFailed, errorMessageVerificationFailed)
		return
	}

	ok, err := h.service.Webhook.VerifyChallenge(r.Context(), token)
	if err != nil {
		h.logger.Error("Failed to verify webhook challenge",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, middleware.ErrorMessageInternal)
		return
	}
	if !ok {
		h.sendError(w, r, http.StatusForbidden, errorCodeVerificationFailed, errorMessageVerificationFailed)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// ReceiveWebhook ingests one provider delivery. The raw body is read
// before any parsing because the signature covers the exact bytes.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidBody)
		return
	}

	err = h.service.Webhook.Ingest(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			h.sendError(w, r, http.StatusForbidden, errorCodeVerificationFailed, errorMessageVerificationFailed)
			return
		}

		// Any other failure asks the provider to redeliver.
		h.logger.Error("Failed to ingest webhook",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, middleware.ErrorMessageInternal)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// InvokeTool implements api.ServerInterface. Tool-level failures are
// part of the 200 payload; only a malformed request is an HTTP error.
func (h *Handler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	var req api.InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidBody)
		return
	}

	result := h.service.Gateway.Invoke(r.Context(), req.APIKey, req.Tool, req.ToolArgs)
	render.JSON(w, r, result)
}

// CreateAPIKey implements api.ServerInterface.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}

	var req api.CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidBody)
		return
	}

	result, err := h.service.APIKey.Create(r.Context(), accountID, &req)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create API key")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// ListAPIKeys implements api.ServerInterface.
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}

	result, err := h.service.APIKey.List(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list API keys")
		return
	}

	render.JSON(w, r, result)
}

// RevokeAPIKey implements api.ServerInterface.
func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}
	keyID, err := pathID(r, "keyID")
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}

	if err := h.service.APIKey.Revoke(r.Context(), accountID, keyID); err != nil {
		h.writeServiceError(w, r, err, "Failed to revoke API key")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListConversations implements api.ServerInterface.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}

	page, limit := pageParams(r)
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	result, err := h.service.Conversation.List(r.Context(), accountID, includeArchived, page, limit)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list conversations")
		return
	}

	render.JSON(w, r, result)
}

// ListMessages implements api.ServerInterface.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := pathID(r, "conversationID")
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}

	page, limit := pageParams(r)

	result, err := h.service.Conversation.Messages(r.Context(), conversationID, page, limit)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list messages")
		return
	}

	render.JSON(w, r, result)
}

// UpdateConversation implements api.ServerInterface.
func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, err := pathID(r, "conversationID")
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}

	var req api.UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidBody)
		return
	}

	if err := h.service.Conversation.Update(r.Context(), conversationID, &req); err != nil {
		h.writeServiceError(w, r, err, "Failed to update conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResolveMedia implements api.ServerInterface: it redirects to a
// short-lived URL rather than streaming media through the API.
func (h *Handler) ResolveMedia(w http.ResponseWriter, r *http.Request) {
	token, err := url.PathUnescape(chi.URLParam(r, "token"))
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, errorMessageInvalidID)
		return
	}

	location, err := h.service.Media.ResolveURL(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			h.sendError(w, r, http.StatusNotFound, errorCodeMediaNotFound, errorMessageMediaNotFound)
			return
		}
		h.logger.Error("Failed to resolve media",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, middleware.ErrorMessageInternal)
		return
	}

	http.Redirect(w, r, location, http.StatusFound)
}

// HealthCheck implements api.ServerInterface.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health.GetHealth()

	response := api.HealthResponse{
		Status:    health.Status,
		Timestamp: time.Now(),
	}

	if health.DatabaseStatus != "" {
		status := health.DatabaseStatus
		response.DatabaseStatus = &status
	}
	if health.RedisStatus != "" {
		status := health.RedisStatus
		response.RedisStatus = &status
	}
	if health.SchedulerStatus != "" {
		status := health.SchedulerStatus
		response.SchedulerStatus = &status
	}
	if health.CircuitBreakerState != "" {
		state := health.CircuitBreakerState
		response.CircuitBreakerState = &state
	}
	if health.CircuitBreakerCounts != "" {
		counts := health.CircuitBreakerCounts
		response.CircuitBreakerCounts = &counts
	}

	if health.Status == api.Unhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	render.JSON(w, r, response)
}

// writeServiceError maps service-layer failures onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.sendError(w, r, http.StatusNotFound, errorCodeNotFound, errorMessageNotFound)
	case errors.Is(err, service.ErrValidation):
		h.sendError(w, r, http.StatusBadRequest, errorCodeValidation, err.Error())
	default:
		h.logger.Error(logMsg,
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, middleware.ErrorMessageInternal)
	}
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, api.ErrorResponse{
		Error:   errorCode,
		Message: message,
		Timestamp: func() *time.Time {
			t := time.Now()
			return &t
		}(),
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func pageParams(r *http.Request) (page, limit int) {
	page = 1
	limit = 20

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v >= 1 && v <= 100 {
		limit = v
	}
	return page, limit
}
