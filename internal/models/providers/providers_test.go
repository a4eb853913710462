package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maitre/internal/config"
)

func chatServer(t *testing.T, status int, reply string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		body, _ := json.Marshal(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewWithoutKey(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "cohere", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewAzureRequiresEndpoint(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "azure_openai", APIKey: "k"})
	assert.Error(t, err)
}

func TestLangChainProviderComplete(t *testing.T) {
	var seen map[string]interface{}
	srv := chatServer(t, http.StatusOK, "hello there", &seen)

	p, err := newWithClient(config.LLMConfig{
		Provider:  "github_models",
		APIKey:    "token",
		Model:     "gpt-4o-mini",
		BaseURL:   srv.URL,
		MaxTokens: 64,
	}, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "github_models", p.Name())

	out, err := p.Complete(context.Background(), []Message{System("be brief"), User("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	msgs, ok := seen["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestLangChainProviderErrorStatus(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "", nil)

	p, err := newWithClient(config.LLMConfig{APIKey: "token", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []Message{User("hi")})
	assert.Error(t, err)
}

func TestLangChainProviderRejectsUnknownRole(t *testing.T) {
	p := NewLangChainProviderFromModel("test", nil)
	_, err := p.Complete(context.Background(), []Message{{Role: "tool", Content: "x"}})
	assert.ErrorContains(t, err, "unsupported message role")
}
