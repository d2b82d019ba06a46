package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrMissingAPIKey marks a configuration failure: the operation cannot run
// and is never retried automatically.
var ErrMissingAPIKey = errors.New("missing API key")

// OpenAI-compatible Chat Completion API request/response structures
type llmRequest struct {
	Model          string             `json:"model"`
	Messages       []llmMessage       `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    float32            `json:"temperature"`
	ResponseFormat *llmResponseFormat `json:"response_format,omitempty"`
}

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmResponseFormat struct {
	Type string `json:"type"`
}

type llmResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// jsonResponseFormat forces structured output on providers that support it.
var jsonResponseFormat = &llmResponseFormat{Type: "json_object"}

// postChat sends a chat-completion request and returns the raw completion
// content. Transport failures, non-2xx statuses and empty completions are all
// reported as errors with the provider response embedded for debugging.
func postChat(ctx context.Context, client *resty.Client, endpoint string, req llmRequest) (string, error) {
	var resp llmResponse
	httpResp, err := client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call enrichment API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("enrichment API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("enrichment API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from enrichment API (status %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

// stripCodeFences removes a surrounding markdown code fence from a completion.
// Some providers wrap JSON output in ```json blocks despite forced JSON mode.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// decodeEnvelope parses a completion into the expected JSON envelope.
func decodeEnvelope(content string, out interface{}) error {
	if err := json.Unmarshal([]byte(stripCodeFences(content)), out); err != nil {
		return fmt.Errorf("malformed enrichment response: %w", err)
	}
	return nil
}
