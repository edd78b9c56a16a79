package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ModelRequest is one structured-output call: system and user messages, an
// optional image and the JSON schema the answer must satisfy.
type ModelRequest struct {
	Model      string
	System     string
	User       string
	ImageURL   string
	SchemaName string
	Schema     map[string]interface{}
}

// ModelClient calls a structured-output model endpoint. It returns the raw output
// text, which may be empty, or an error for transport and endpoint faults.
type ModelClient interface {
	Complete(ctx context.Context, req ModelRequest) (string, error)
}

// NoModel stands in when no model endpoint is configured. Every call fails.
type NoModel struct{}

func (NoModel) Complete(ctx context.Context, req ModelRequest) (string, error) {
	return "", fmt.Errorf("model endpoint not configured")
}

// OpenAIClient talks to the OpenAI Responses API.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a client for baseURL (e.g. https://api.openai.com/v1).
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY or OPENAI_API_KEY_FILE must be set")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type inputMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type responseFormat struct {
	Type   string                 `json:"type"`
	Name   string                 `json:"name"`
	Schema map[string]interface{} `json:"schema"`
	Strict bool                   `json:"strict"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  struct {
		Format responseFormat `json:"format"`
	} `json:"text"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends req and concatenates every text part of the message outputs,
// falling back to output_text when there are none.
func (c *OpenAIClient) Complete(ctx context.Context, req ModelRequest) (string, error) {
	body := responsesRequest{Model: req.Model}
	if req.System != "" {
		body.Input = append(body.Input, inputMessage{
			Role:    "system",
			Content: []contentPart{{Type: "input_text", Text: req.System}},
		})
	}

	user := inputMessage{Role: "user"}
	if req.User != "" {
		user.Content = append(user.Content, contentPart{Type: "input_text", Text: req.User})
	}
	if req.ImageURL != "" {
		user.Content = append(user.Content, contentPart{Type: "input_image", ImageURL: req.ImageURL})
	}
	body.Input = append(body.Input, user)
	body.Text.Format = responseFormat{
		Type:   "json_schema",
		Name:   req.SchemaName,
		Schema: req.Schema,
		Strict: true,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result responsesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil && result.Error.Message != "" {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}

	var chunks []string
	for _, out := range result.Output {
		if out.Type != "message" {
			continue
		}
		for _, part := range out.Content {
			if (part.Type == "output_text" || part.Type == "text") && part.Text != "" {
				chunks = append(chunks, part.Text)
			}
		}
	}
	if len(chunks) == 0 {
		return strings.TrimSpace(result.OutputText), nil
	}
	return strings.TrimSpace(strings.Join(chunks, "")), nil
}
