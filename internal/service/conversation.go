// Package service provides business logic for the chat portal.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/store"
	"github.com/adalparedes/adalcore/pkg/logger"
	"github.com/adalparedes/adalcore/pkg/metrics"
)

const (
	maxTitleLength = 40
	defaultTitle   = "Nuevo Comando"

	staleAfter      = 90 * 24 * time.Hour
	cleanupInterval = 24 * time.Hour
)

var (
	markupPattern       = regexp.MustCompile(`<[^>]*>?`)
	nonPrintablePattern = regexp.MustCompile("[^\x20-\x7EÀ-ÿ]")
)

// TierLimit returns the conversation-count limit for a membership tier.
// Admins have no limit (ok=false).
func TierLimit(tier string, isAdmin bool) (limit int, limited bool) {
	if isAdmin {
		return 0, false
	}
	switch strings.ToLower(tier) {
	case "free", "piojoso":
		return 5, true
	case "bronze", "novato", "novata":
		return 20, true
	case "silver", "jefe", "patrona":
		return 50, true
	case "gold", "rey", "reina", "premium":
		return 100, true
	default:
		return 5, true
	}
}

// CleanTitle sanitizes a conversation title: markup and non-printable
// characters stripped, truncated to 40 characters, defaulting when empty.
func CleanTitle(title string) string {
	if title == "" {
		title = defaultTitle
	}
	cleaned := markupPattern.ReplaceAllString(title, "")
	cleaned = nonPrintablePattern.ReplaceAllString(cleaned, "")
	if runes := []rune(cleaned); len(runes) > maxTitleLength {
		cleaned = string(runes[:maxTitleLength])
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return defaultTitle
	}
	return cleaned
}

// ConversationService handles conversation operations.
type ConversationService struct {
	store  *store.Store
	events EventPublisher
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st *store.Store, events EventPublisher, log *logger.Logger) *ConversationService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ConversationService{store: st, events: events, logger: log}
}

// Create creates a conversation for a user, applying the tier limit: when the
// user is at the limit, the single oldest non-archived conversation is
// archived first (soft delete, oldest-first) and creation proceeds.
func (s *ConversationService) Create(ctx context.Context, userID, title, tier string, isAdmin bool) (*model.Conversation, error) {
	if limit, limited := TierLimit(tier, isAdmin); limited {
		count, err := s.store.CountActive(userID)
		if err != nil {
			return nil, err
		}
		if count >= limit {
			oldest, err := s.store.OldestActive(userID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			if oldest != nil {
				if err := s.store.ArchiveConversation(oldest.ID); err != nil {
					return nil, err
				}
				metrics.ConversationsArchivedTotal.Inc()
				s.logger.Info("conversation limit reached, archived oldest",
					zap.String("user_id", userID),
					zap.String("conversation_id", oldest.ID),
					zap.Int("limit", limit),
				)
				s.publish(ctx, &model.PortalEvent{
					ID:             uuid.Must(uuid.NewV7()).String(),
					UserID:         userID,
					ConversationID: oldest.ID,
					Type:           model.EventTypeArchive,
					Reason:         "tier limit reached",
					CreatedAt:      time.Now(),
				})
			}
		}
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     CleanTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.PutConversation(conv); err != nil {
		return nil, err
	}

	metrics.ConversationsTotal.WithLabelValues(strings.ToLower(tier)).Inc()
	return conv, nil
}

// Get retrieves a conversation, enforcing ownership. A conversation owned by
// another user reports ErrForbidden; archived ones report ErrNotFound.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrForbidden
	}
	if conv.Archived {
		return nil, ErrNotFound
	}
	return conv, nil
}

// List returns a user's non-archived conversations, newest first. Listing
// also opportunistically runs the stale-data cleanup, throttled to once per
// day per user.
func (s *ConversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.cleanupStale(ctx, userID)
	return s.store.ListConversations(userID)
}

// Delete hard-deletes a conversation the user owns, messages included.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.store.DeleteConversation(conversationID)
}

// Touch bumps a conversation's updated-at timestamp.
func (s *ConversationService) Touch(ctx context.Context, conversationID string) error {
	conv, err := s.store.GetConversation(conversationID)
	if err != nil {
		return err
	}
	conv.UpdatedAt = time.Now()
	return s.store.PutConversation(conv)
}

// cleanupStale removes conversations not updated in 90 days, at most once
// per 24 hours per user. Failures are logged, never surfaced: cleanup is
// best-effort housekeeping.
func (s *ConversationService) cleanupStale(ctx context.Context, userID string) {
	last, err := s.store.LastCleanup(userID)
	if err == nil && time.Since(last) < cleanupInterval {
		return
	}

	removed, err := s.store.DeleteStale(userID, time.Now().Add(-staleAfter))
	if err != nil {
		s.logger.Warn("stale conversation cleanup failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if removed > 0 {
		s.logger.Info("removed stale conversations",
			zap.String("user_id", userID),
			zap.Int("removed", removed),
		)
	}
	_ = s.store.SetLastCleanup(userID, time.Now())
}

func (s *ConversationService) publish(ctx context.Context, ev *model.PortalEvent) {
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
