package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adalparedes/adalcore/internal/model"
)

// OpenAIAdapter streams chat completions from the OpenAI API. The request
// body uses the SDK wire types, but the response is read raw so the SSE
// normalizer owns the framing.
type OpenAIAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIAdapter creates an OpenAI adapter.
func NewOpenAIAdapter(apiKey, baseURL string, client *http.Client) *OpenAIAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIAdapter{apiKey: apiKey, baseURL: baseURL, client: client}
}

// ID returns the provider id.
func (a *OpenAIAdapter) ID() ID { return OpenAI }

// EndpointPath returns the public chat route for this provider.
func (a *OpenAIAdapter) EndpointPath() string { return "/api/v1/chat/openai" }

// Configured reports whether the API key is set.
func (a *OpenAIAdapter) Configured() bool { return a.apiKey != "" }

// Stream sends the request and returns the normalized text stream.
func (a *OpenAIAdapter) Stream(ctx context.Context, req *model.ChatRequest) (io.ReadCloser, error) {
	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Attachment != nil {
		userMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.UserContent},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", req.Attachment.MimeType, req.Attachment.Data),
				},
			},
		}
	} else {
		userMsg.Content = req.UserContent
	}

	body := openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			userMsg,
		},
		Stream:      true,
		Temperature: 0.7,
	}

	resp, err := postJSON(ctx, a.client, a.baseURL+"/chat/completions", a.apiKey, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || resp.Body == nil {
		defer resp.Body.Close()
		return nil, newUpstreamError(string(OpenAI), resp)
	}

	return NewSSEStream(resp.Body), nil
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	return client.Do(httpReq)
}
