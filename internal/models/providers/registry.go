package providers

import (
	"fmt"
	"net/http"

	"maitre/internal/config"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	OpenAIProvider       ProviderType = "openai"
	GitHubModelsProvider ProviderType = "github_models"
	AzureProvider        ProviderType = "azure_openai"
)

// New initializes the provider selected in cfg. It returns ErrNoProvider
// when no API key is configured, in which case callers run without a model.
func New(cfg config.LLMConfig) (Provider, error) {
	return newWithClient(cfg, nil)
}

func newWithClient(cfg config.LLMConfig, httpClient *http.Client) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoProvider
	}

	var (
		p   Provider
		err error
	)
	switch ProviderType(cfg.Provider) {
	case OpenAIProvider, "":
		p, err = NewLangChainProvider(LangChainOptions{
			Name:       string(OpenAIProvider),
			Token:      cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			HTTPClient: httpClient,
		})
	case GitHubModelsProvider:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GitHubModelsBaseURL
		}
		p, err = NewLangChainProvider(LangChainOptions{
			Name:       string(GitHubModelsProvider),
			Token:      cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    baseURL,
			HTTPClient: httpClient,
		})
	case AzureProvider:
		p, err = NewAzureOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Deployment)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Temperature > 0 {
		p.SetTemperature(float32(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		p.SetMaxTokens(int32(cfg.MaxTokens))
	}
	return p, nil
}
