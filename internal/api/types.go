// Package api defines the HTTP wire types and route registration for
// the bridge service.
package api

import "time"

type ErrorResponse struct {
	Error     string     `json:"error"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// InvokeRequest is the tool-gateway entry point payload.
type InvokeRequest struct {
	APIKey   string                 `json:"api_key"`
	Tool     string                 `json:"tool"`
	ToolArgs map[string]interface{} `json:"tool_args"`
}

// Disclosure is returned in place of a hard error when a required tool
// parameter is omitted, listing valid choices for that parameter.
type Disclosure struct {
	Disclosure bool               `json:"disclosure"`
	Parameter  string             `json:"parameter"`
	Message    string             `json:"message"`
	Options    []DisclosureOption `json:"options"`
}

type DisclosureOption struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// ToolError is the gateway's uniform failure shape. The gateway never
// raises; every failure comes back as one of these.
type ToolError struct {
	Error   bool        `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// TemplateVariable classifies one {{key}} placeholder of a template
// component. Named variables carry a non-numeric key; positional
// variables are purely numeric and order-dependent.
type TemplateVariable struct {
	Key       string `json:"key"`
	Named     bool   `json:"named"`
	Component string `json:"component"`
}

// TemplateParamError is the structured corrective payload for a
// malformed or missing template parameter set.
type TemplateParamError struct {
	Error     bool               `json:"error"`
	Message   string             `json:"message"`
	Required  []TemplateVariable `json:"required_variables"`
	Example   interface{}        `json:"example"`
	Templates interface{}        `json:"templates,omitempty"`
}

type SendResult struct {
	MessageID  string `json:"message_id"`
	ExternalID string `json:"external_id,omitempty"`
	Status     string `json:"status"`
	Preview    string `json:"preview,omitempty"`
}

type Conversation struct {
	ID                 int64      `json:"id"`
	ContactPhone       string     `json:"contact_phone"`
	ContactName        *string    `json:"contact_name,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	LastMessagePreview *string    `json:"last_message_preview,omitempty"`
	UnreadCount        int        `json:"unread_count"`
	WindowExpiresAt    *time.Time `json:"window_expires_at,omitempty"`
	WindowOpen         bool       `json:"window_open"`
	Archived           bool       `json:"archived"`
}

type Message struct {
	ID           int64      `json:"id"`
	ExternalID   string     `json:"external_id"`
	Direction    string     `json:"direction"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Body         *string    `json:"body,omitempty"`
	MediaRef     *string    `json:"media_ref,omitempty"`
	ReplyToID    *string    `json:"reply_to_id,omitempty"`
	ErrorCode    *string    `json:"error_code,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	StatusAt     *time.Time `json:"status_at,omitempty"`
}

// ConversationMessages is the get_conversation tool result: the thread
// header plus its most recent messages.
type ConversationMessages struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

// SearchResult is one search_messages hit with its sender context.
type SearchResult struct {
	Message
	ContactPhone string  `json:"contact_phone"`
	ContactName  *string `json:"contact_name,omitempty"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// TemplateInfo is one catalog entry as exposed by list_templates,
// enriched with the variables a caller must supply.
type TemplateInfo struct {
	Name      string             `json:"name"`
	Language  string             `json:"language"`
	Status    string             `json:"status"`
	Category  string             `json:"category"`
	Body      string             `json:"body,omitempty"`
	Variables []TemplateVariable `json:"variables,omitempty"`
}

type TemplateListResponse struct {
	Templates []TemplateInfo `json:"templates"`
}

// UpdateResult acknowledges a successful updateConversation call.
type UpdateResult struct {
	Success  bool   `json:"success"`
	Archived *bool  `json:"archived,omitempty"`
	MarkRead *bool  `json:"mark_read,omitempty"`
	Phone    string `json:"phone"`
}

type ConversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
	Pagination    Pagination     `json:"pagination"`
}

type MessageListResponse struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

type CreateKeyRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateKeyResponse carries the plaintext key exactly once; it is never
// recoverable afterward.
type CreateKeyResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Key       string     `json:"key"`
	KeyPrefix string     `json:"key_prefix"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type KeyMetadata struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type KeyListResponse struct {
	Keys []KeyMetadata `json:"keys"`
}

type UpdateConversationRequest struct {
	Archived *bool `json:"archived,omitempty"`
	MarkRead *bool `json:"mark_read,omitempty"`
}

type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

type ComponentStatus string

const (
	ComponentConnected    ComponentStatus = "connected"
	ComponentDisconnected ComponentStatus = "disconnected"
	ComponentRunning      ComponentStatus = "running"
	ComponentStopped      ComponentStatus = "stopped"
)

type HealthResponse struct {
	Status               HealthStatus     `json:"status"`
	Timestamp            time.Time        `json:"timestamp"`
	DatabaseStatus       *ComponentStatus `json:"database_status,omitempty"`
	RedisStatus          *ComponentStatus `json:"redis_status,omitempty"`
	SchedulerStatus      *ComponentStatus `json:"scheduler_status,omitempty"`
	CircuitBreakerState  *string          `json:"circuit_breaker_state,omitempty"`
	CircuitBreakerCounts *string          `json:"circuit_breaker_counts,omitempty"`
}
