package service

import (
	"context"
	"errors"

	"github.com/adalparedes/adalcore/internal/model"
)

var (
	// ErrNotFound means the resource does not exist or is archived.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the resource belongs to a different user.
	ErrForbidden = errors.New("forbidden")
)

// EventPublisher fans portal events out to subscribers. The NATS publisher
// implements it; tests substitute a nop.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *model.PortalEvent) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// PublishEvent implements EventPublisher.
func (NopPublisher) PublishEvent(context.Context, *model.PortalEvent) error { return nil }
