// Package provider implements the upstream AI adapters and the stream
// normalization that turns their heterogeneous wire formats into plain
// incremental text.
package provider

import (
	"context"
	"io"

	"github.com/adalparedes/adalcore/internal/model"
)

// ID identifies one of the supported upstream AI providers. The set is
// closed: the registry, the endpoints and the classifier are all built
// against exactly these three.
type ID string

const (
	Gemini   ID = "gemini"
	OpenAI   ID = "openai"
	DeepSeek ID = "deepseek"
)

// IDs returns every supported provider id.
func IDs() []ID {
	return []ID{Gemini, OpenAI, DeepSeek}
}

// ParseID maps a string to a known provider id.
func ParseID(s string) (ID, bool) {
	switch ID(s) {
	case Gemini, OpenAI, DeepSeek:
		return ID(s), true
	}
	return "", false
}

// Adapter translates a normalized chat request into one provider's wire
// format and returns its output as a normalized plain-text stream. A non-2xx
// upstream response surfaces as *UpstreamError carrying the original status.
type Adapter interface {
	ID() ID

	// EndpointPath is the public route this adapter is served under.
	EndpointPath() string

	// Configured reports whether the upstream credential is present. The
	// endpoint checks this before spending any upstream call.
	Configured() bool

	Stream(ctx context.Context, req *model.ChatRequest) (io.ReadCloser, error)
}

// Registry holds the closed set of provider adapters.
type Registry struct {
	adapters map[ID]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[ID]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.ID()] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter for a provider name.
func (r *Registry) Get(name string) (Adapter, bool) {
	id, ok := ParseID(name)
	if !ok {
		return nil, false
	}
	a, ok := r.adapters[id]
	return a, ok
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, id := range IDs() {
		if a, ok := r.adapters[id]; ok {
			out = append(out, a)
		}
	}
	return out
}
