package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pageza/macrolog/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := service.NewOpenAIClient("", "", time.Second)
	assert.Error(t, err)
}

func TestOpenAIClientComplete(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"output": [
				{"type": "reasoning", "content": []},
				{"type": "message", "content": [
					{"type": "output_text", "text": "{\"items\":"},
					{"type": "output_text", "text": "[]}"}
				]}
			],
			"output_text": "{\"items\":[]}"
		}`))
	}))
	defer server.Close()

	client, err := service.NewOpenAIClient("sk-test", server.URL+"/v1/", 5*time.Second)
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), service.ModelRequest{
		Model:      "o4-mini",
		System:     "be precise",
		ImageURL:   "data:image/png;base64,AAAA",
		SchemaName: "create_foods",
		Schema:     map[string]interface{}{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, text)

	assert.Equal(t, "o4-mini", captured["model"])
	input := captured["input"].([]interface{})
	require.Len(t, input, 2)
	system := input[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	user := input[1].(map[string]interface{})
	parts := user["content"].([]interface{})
	require.Len(t, parts, 1)
	assert.Equal(t, "input_image", parts[0].(map[string]interface{})["type"])

	format := captured["text"].(map[string]interface{})["format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "create_foods", format["name"])
	assert.Equal(t, true, format["strict"])
}

func TestOpenAIClientFallsBackToOutputText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output_text": "  {\"suggestions\":[]}  "}`))
	}))
	defer server.Close()

	client, err := service.NewOpenAIClient("sk-test", server.URL, 5*time.Second)
	require.NoError(t, err)
	text, err := client.Complete(context.Background(), service.ModelRequest{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, `{"suggestions":[]}`, text)
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`},
		{"api error", http.StatusOK, `{"error":{"message":"model overloaded"}}`},
		{"bad json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := service.NewOpenAIClient("sk-test", server.URL, 5*time.Second)
			require.NoError(t, err)
			_, err = client.Complete(context.Background(), service.ModelRequest{User: "hi"})
			assert.Error(t, err)
		})
	}
}

func TestOpenAIClientHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := service.NewOpenAIClient("sk-test", server.URL, 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Complete(ctx, service.ModelRequest{User: "hi"})
	assert.Error(t, err)
}
