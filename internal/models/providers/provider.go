package providers

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no model credential is configured
var ErrNoProvider = errors.New("no language model configured")

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Role values accepted by Complete
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider interface for LLM providers
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
	SetTemperature(temp float32)
	SetMaxTokens(tokens int32)
}

// System builds a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }
