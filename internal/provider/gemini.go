package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"iter"

	"google.golang.org/genai"

	"github.com/adalparedes/adalcore/internal/model"
)

// GeminiAdapter streams generations from the Gemini API through the official
// SDK. Unlike the SSE providers the SDK exposes a native chunk iterator, so
// output goes through the fragment stream instead of the line decoder.
type GeminiAdapter struct {
	apiKey string
	model  string
}

// NewGeminiAdapter creates a Gemini adapter.
func NewGeminiAdapter(apiKey, modelName string) *GeminiAdapter {
	return &GeminiAdapter{apiKey: apiKey, model: modelName}
}

// ID returns the provider id.
func (a *GeminiAdapter) ID() ID { return Gemini }

// EndpointPath returns the public chat route for this provider.
func (a *GeminiAdapter) EndpointPath() string { return "/api/v1/chat/gemini" }

// Configured reports whether the API key is set.
func (a *GeminiAdapter) Configured() bool { return a.apiKey != "" }

// Stream sends the request and returns the normalized text stream.
func (a *GeminiAdapter) Stream(ctx context.Context, req *model.ChatRequest) (io.ReadCloser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	var parts []*genai.Part
	if req.Attachment != nil {
		data, decodeErr := base64.StdEncoding.DecodeString(req.Attachment.Data)
		if decodeErr != nil {
			return nil, fmt.Errorf("invalid attachment encoding: %w", decodeErr)
		}
		parts = append(parts, genai.NewPartFromBytes(data, req.Attachment.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.UserContent))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.7),
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
	}

	stream := client.Models.GenerateContentStream(ctx, a.model, contents, cfg)
	return NewFragmentStream(pullFragments(stream)), nil
}

// pullFragments converts the SDK's push iterator into the pull-based
// FragmentFunc the normalizer consumes, plus the release callback an
// abandoned stream needs to shut the iterator down.
func pullFragments(seq iter.Seq2[*genai.GenerateContentResponse, error]) (FragmentFunc, func()) {
	next, stop := iter.Pull2(seq)
	return func() (string, error) {
		resp, err, ok := next()
		if !ok {
			stop()
			return "", io.EOF
		}
		if err != nil {
			stop()
			var apiErr genai.APIError
			if errors.As(err, &apiErr) {
				return "", &UpstreamError{
					Provider: string(Gemini),
					Status:   apiErr.Code,
					Message:  apiErr.Message,
				}
			}
			return "", err
		}
		return resp.Text(), nil
	}, stop
}
