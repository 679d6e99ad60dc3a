package provider

import (
	"context"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adalparedes/adalcore/internal/model"
)

// DeepSeekAdapter streams chat completions from the DeepSeek API, which
// speaks the OpenAI-compatible protocol. Attachments are not supported by
// this upstream and are ignored.
type DeepSeekAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDeepSeekAdapter creates a DeepSeek adapter.
func NewDeepSeekAdapter(apiKey, baseURL string, client *http.Client) *DeepSeekAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &DeepSeekAdapter{apiKey: apiKey, baseURL: baseURL, client: client}
}

// ID returns the provider id.
func (a *DeepSeekAdapter) ID() ID { return DeepSeek }

// EndpointPath returns the public chat route for this provider.
func (a *DeepSeekAdapter) EndpointPath() string { return "/api/v1/chat/deepseek" }

// Configured reports whether the API key is set.
func (a *DeepSeekAdapter) Configured() bool { return a.apiKey != "" }

// Stream sends the request and returns the normalized text stream.
func (a *DeepSeekAdapter) Stream(ctx context.Context, req *model.ChatRequest) (io.ReadCloser, error) {
	body := openai.ChatCompletionRequest{
		Model: "deepseek-chat",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.UserContent},
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
		return nil, newUpstreamError(string(DeepSeek), resp)
	}

	return NewSSEStream(resp.Body), nil
}
