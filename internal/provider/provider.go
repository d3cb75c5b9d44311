// Package provider wraps the remote messaging REST API: sends, the
// template catalog and media retrieval. All calls go through a circuit
// breaker and surface provider failures as *APIError.
package provider

import (
	"context"
	"fmt"

	"github.com/avolkov/wabridge/internal/models"
)

//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks

// Client is the capability the rest of the system programs against.
type Client interface {
	SendText(ctx context.Context, account *models.Account, to, body, replyTo string) (string, error)
	SendMedia(ctx context.Context, account *models.Account, to, link, mediaType, caption string) (string, error)
	SendReaction(ctx context.Context, account *models.Account, to, messageID, emoji string) (string, error)
	SendTemplate(ctx context.Context, account *models.Account, to string, tpl TemplateSend) (string, error)
	FetchTemplates(ctx context.Context, account *models.Account) ([]Template, error)
	FetchMediaInfo(ctx context.Context, account *models.Account, mediaID string) (*MediaInfo, error)
	DownloadMedia(ctx context.Context, account *models.Account, url string) ([]byte, string, error)

	// BreakerState exposes the circuit breaker for health reporting.
	BreakerState() (state string, requests, failures uint32)
}

// Template is one entry of the provider's template catalog.
type Template struct {
	Name       string              `json:"name"`
	Language   string              `json:"language"`
	Status     string              `json:"status"`
	Category   string              `json:"category"`
	Components []TemplateComponent `json:"components"`
}

// TemplateComponent is a structural part of a template (HEADER, BODY,
// FOOTER or BUTTONS) whose text may contain {{key}} placeholders.
type TemplateComponent struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
	Text   string `json:"text,omitempty"`
}

// TemplateSend is a fully resolved template send request.
type TemplateSend struct {
	Name       string
	Language   string
	Components []ParamComponent
}

// ParamComponent carries the caller-supplied parameter values for one
// structural component.
type ParamComponent struct {
	Type       string      `json:"type"`
	Parameters []Parameter `json:"parameters"`
}

// Parameter is one substituted template value. Named parameters carry
// ParameterName; positional parameters must not.
type Parameter struct {
	Type          string `json:"type"`
	Text          string `json:"text"`
	ParameterName string `json:"parameter_name,omitempty"`
}

// MediaInfo describes one media object held by the provider.
type MediaInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
}

// APIError is a structured provider rejection.
type APIError struct {
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}
