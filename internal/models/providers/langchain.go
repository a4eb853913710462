package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// GitHubModelsBaseURL is the OpenAI-compatible endpoint of GitHub Models
const GitHubModelsBaseURL = "https://models.inference.ai.azure.com"

// LangChainProvider implements Provider on top of a langchaingo model.
// Both OpenAI and GitHub Models are reached through the OpenAI client.
type LangChainProvider struct {
	name        string
	model       llms.Model
	temperature float32
	maxTokens   int32
}

// LangChainOptions configures an OpenAI-compatible langchaingo client
type LangChainOptions struct {
	Name       string
	Token      string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewLangChainProvider creates an OpenAI-compatible provider
func NewLangChainProvider(opts LangChainOptions) (*LangChainProvider, error) {
	if opts.Token == "" {
		return nil, ErrNoProvider
	}

	clientOpts := []openai.Option{openai.WithToken(opts.Token)}
	if opts.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(opts.Model))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, openai.WithHTTPClient(opts.HTTPClient))
	}

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", opts.Name, err)
	}
	return NewLangChainProviderFromModel(opts.Name, client), nil
}

// NewLangChainProviderFromModel wraps an existing langchaingo model
func NewLangChainProviderFromModel(name string, model llms.Model) *LangChainProvider {
	return &LangChainProvider{
		name:        name,
		model:       model,
		temperature: 0.1,
		maxTokens:   500,
	}
}

// Name returns the provider name
func (p *LangChainProvider) Name() string {
	return p.name
}

// Complete implements the Provider interface
func (p *LangChainProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		var msgType llms.ChatMessageType
		switch msg.Role {
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		case RoleUser:
			msgType = llms.ChatMessageTypeHuman
		default:
			return "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		content[i] = llms.TextParts(msgType, msg.Content)
	}

	resp, err := p.model.GenerateContent(ctx, content,
		llms.WithTemperature(float64(p.temperature)),
		llms.WithMaxTokens(int(p.maxTokens)),
	)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", p.name)
	}
	return resp.Choices[0].Content, nil
}

// SetTemperature sets the temperature for completions
func (p *LangChainProvider) SetTemperature(temp float32) {
	p.temperature = temp
}

// SetMaxTokens sets the max tokens for completions
func (p *LangChainProvider) SetMaxTokens(tokens int32) {
	p.maxTokens = tokens
}
