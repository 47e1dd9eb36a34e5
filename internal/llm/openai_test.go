package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenAIClient) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultOpenAIConfig("sk-test")
	cfg.BaseURL = server.URL
	cfg.Timeout = 10 * time.Second
	client, err := NewOpenAIClient(cfg)
	require.NoError(t, err)
	return server, client
}

func TestOpenAICompleteWithSystem(t *testing.T) {
	var captured struct {
		path string
		auth string
		body map[string]interface{}
	}

	_, client := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)

		fmt.Fprint(w, completionBody("  package main\n"))
	})

	got, err := client.CompleteWithSystem(context.Background(), "You write Go parsers.", "Generate one.")
	require.NoError(t, err)
	assert.Equal(t, "package main", got, "response must be trimmed")

	assert.Equal(t, "/chat/completions", captured.path)
	assert.Equal(t, "Bearer sk-test", captured.auth)
	assert.Equal(t, "gpt-4o", captured.body["model"])

	messages, ok := captured.body["messages"].([]interface{})
	require.True(t, ok, "messages missing from request body")
	require.Len(t, messages, 2)

	first := messages[0].(map[string]interface{})
	second := messages[1].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You write Go parsers.", first["content"])
	assert.Equal(t, "user", second["role"])
}

func TestOpenAICompleteOmitsEmptySystem(t *testing.T) {
	var roles []string

	_, client := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		for _, m := range body.Messages {
			roles = append(roles, m.Role)
		}
		fmt.Fprint(w, completionBody("ok"))
	})

	_, err := client.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roles)
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32

	_, client := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limit"}}`)
			return
		}
		fmt.Fprint(w, completionBody("recovered"))
	})

	got, err := client.CompleteWithSystem(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32

	_, client := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"model not found"}}`)
	})

	_, err := client.CompleteWithSystem(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIExhaustsRetries(t *testing.T) {
	_, client := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client.config.MaxRetries = 1

	_, err := client.CompleteWithSystem(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
}

func TestOpenAIEmptyChoices(t *testing.T) {
	_, client := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})

	_, err := client.CompleteWithSystem(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
