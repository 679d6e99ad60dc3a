package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/adalparedes/adalcore/internal/model"
)

const (
	// StreamName is the name of the portal events stream.
	StreamName = "PORTAL"

	// SubjectPrefix is the prefix for all portal event subjects.
	SubjectPrefix = "portal"
)

// Publisher fans portal events out over JetStream. Reads are served from the
// bolt store; JetStream carries the live update/notification side only.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher over an established client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the portal events stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Portal message and notification events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a portal event.
func EventSubject(ev *model.PortalEvent) string {
	conv := ev.ConversationID
	if conv == "" {
		conv = "_"
	}
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, ev.UserID, conv, ev.Type)
}

// PublishEvent publishes a portal event to JetStream.
func (p *Publisher) PublishEvent(ctx context.Context, ev *model.PortalEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, EventSubject(ev), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
