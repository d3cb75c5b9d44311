package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/avolkov/wabridge/internal/models"
)

// Tool names form the gateway's public catalog. Every tool takes the
// sender's phone number ("from") instead of an internal account id,
// and recipient-targeting tools take the recipient's phone number
// ("phone") instead of a conversation id.
const (
	ToolListConversations  = "list_conversations"
	ToolListUnanswered     = "list_unanswered"
	ToolGetConversation    = "get_conversation"
	ToolSearchMessages     = "search_messages"
	ToolListTemplates      = "list_templates"
	ToolSendText           = "send_text"
	ToolSendTemplate       = "send_template"
	ToolSendMedia          = "send_media"
	ToolSendReaction       = "send_reaction"
	ToolUpdateConversation = "updateConversation"
)

// toolScopes is the closed scope-requirement table. A tool missing
// from this table cannot be dispatched at all — new tools fail closed
// until a scope is assigned here.
var toolScopes = map[string]models.Scope{
	ToolListConversations:  models.ScopeRead,
	ToolListUnanswered:     models.ScopeRead,
	ToolGetConversation:    models.ScopeRead,
	ToolSearchMessages:     models.ScopeRead,
	ToolListTemplates:      models.ScopeRead,
	ToolSendText:           models.ScopeSend,
	ToolSendTemplate:       models.ScopeSend,
	ToolSendMedia:          models.ScopeSend,
	ToolSendReaction:       models.ScopeSend,
	ToolUpdateConversation: models.ScopeWrite,
}

// Per-tool argument structs: the raw tool_args map is decoded into the
// variant selected by the tool name and validated immediately, instead
// of being passed around as an untyped bag.

type listConversationsArgs struct {
	From            string `mapstructure:"from" validate:"omitempty,e164"`
	IncludeArchived bool   `mapstructure:"include_archived"`
	Limit           int    `mapstructure:"limit" validate:"omitempty,min=1,max=100"`
}

type listUnansweredArgs struct {
	From  string `mapstructure:"from" validate:"omitempty,e164"`
	Limit int    `mapstructure:"limit" validate:"omitempty,min=1,max=100"`
}

type getConversationArgs struct {
	From  string `mapstructure:"from" validate:"omitempty,e164"`
	Phone string `mapstructure:"phone" validate:"omitempty,e164"`
	Limit int    `mapstructure:"limit" validate:"omitempty,min=1,max=100"`
}

type searchMessagesArgs struct {
	From  string `mapstructure:"from" validate:"omitempty,e164"`
	Query string `mapstructure:"query" validate:"required"`
	Limit int    `mapstructure:"limit" validate:"omitempty,min=1,max=100"`
}

type listTemplatesArgs struct {
	From string `mapstructure:"from" validate:"omitempty,e164"`
}

type sendTextArgs struct {
	From    string `mapstructure:"from" validate:"omitempty,e164"`
	Phone   string `mapstructure:"phone" validate:"omitempty,e164"`
	Message string `mapstructure:"message" validate:"required"`
	ReplyTo string `mapstructure:"reply_to"`
}

type sendTemplateArgs struct {
	From       string               `mapstructure:"from" validate:"omitempty,e164"`
	Phone      string               `mapstructure:"phone" validate:"omitempty,e164"`
	Template   string               `mapstructure:"template" validate:"required"`
	Language   string               `mapstructure:"language"`
	Parameters []templateParamInput `mapstructure:"parameters"`
}

type sendMediaArgs struct {
	From      string `mapstructure:"from" validate:"omitempty,e164"`
	Phone     string `mapstructure:"phone" validate:"omitempty,e164"`
	Link      string `mapstructure:"link" validate:"required,url"`
	MediaType string `mapstructure:"media_type" validate:"required,oneof=image video audio document sticker"`
	Caption   string `mapstructure:"caption"`
}

type sendReactionArgs struct {
	From      string `mapstructure:"from" validate:"omitempty,e164"`
	Phone     string `mapstructure:"phone" validate:"omitempty,e164"`
	MessageID string `mapstructure:"message_id" validate:"required"`
	Emoji     string `mapstructure:"emoji" validate:"required"`
}

type updateConversationArgs struct {
	From     string `mapstructure:"from" validate:"omitempty,e164"`
	Phone    string `mapstructure:"phone" validate:"omitempty,e164"`
	Archived *bool  `mapstructure:"archived"`
	MarkRead *bool  `mapstructure:"mark_read"`
}

var argValidator = validator.New()

// decodeArgs fills the tool's typed variant from the raw map and runs
// struct validation. Unknown fields are rejected so a typoed argument
// name surfaces instead of silently vanishing.
func decodeArgs(raw map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build args decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}

	if err := argValidator.Struct(out); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}

	return nil
}
