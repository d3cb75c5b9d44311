package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ServerInterface lists every route the service exposes. The handler
// package implements it.
type ServerInterface interface {
	// Provider webhook surface.
	VerifyWebhook(w http.ResponseWriter, r *http.Request)
	ReceiveWebhook(w http.ResponseWriter, r *http.Request)

	// Tool gateway.
	InvokeTool(w http.ResponseWriter, r *http.Request)

	// API key lifecycle.
	CreateAPIKey(w http.ResponseWriter, r *http.Request)
	ListAPIKeys(w http.ResponseWriter, r *http.Request)
	RevokeAPIKey(w http.ResponseWriter, r *http.Request)

	// Dashboard surface.
	ListConversations(w http.ResponseWriter, r *http.Request)
	ListMessages(w http.ResponseWriter, r *http.Request)
	UpdateConversation(w http.ResponseWriter, r *http.Request)

	// Media retrieval.
	ResolveMedia(w http.ResponseWriter, r *http.Request)

	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// Handler registers all routes on a chi router.
func Handler(si ServerInterface) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/v1/webhook", si.VerifyWebhook)
	r.Post("/api/v1/webhook", si.ReceiveWebhook)

	r.Post("/api/v1/tools/invoke", si.InvokeTool)

	r.Post("/api/v1/accounts/{accountID}/keys", si.CreateAPIKey)
	r.Get("/api/v1/accounts/{accountID}/keys", si.ListAPIKeys)
	r.Delete("/api/v1/accounts/{accountID}/keys/{keyID}", si.RevokeAPIKey)

	r.Get("/api/v1/accounts/{accountID}/conversations", si.ListConversations)
	r.Get("/api/v1/conversations/{conversationID}/messages", si.ListMessages)
	r.Patch("/api/v1/conversations/{conversationID}", si.UpdateConversation)

	r.Get("/api/v1/media/{token}", si.ResolveMedia)

	r.Get("/health", si.HealthCheck)

	return r
}
