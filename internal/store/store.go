// Package store provides the bbolt-backed system of record: conversations,
// messages, notifications and the credit ledger, one bucket per dataset.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/adalparedes/adalcore/internal/model"
)

var (
	bucketConversations = []byte("conversations")
	bucketMessages      = []byte("messages")
	bucketNotifications = []byte("notifications")
	bucketCreditPacks   = []byte("credit_packs")
	bucketCreditLedger  = []byte("credit_ledger")
	bucketBalances      = []byte("balances")
	bucketCleanupMeta   = []byte("cleanup_meta")
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the bolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			bucketConversations, bucketMessages, bucketNotifications,
			bucketCreditPacks, bucketCreditLedger, bucketBalances, bucketCleanupMeta,
		} {
			if _, e := tx.CreateBucketIfNotExists(name); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is usable.
func (s *Store) Ping() error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

// PutConversation writes a conversation record.
func (s *Store) PutConversation(conv *model.Conversation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketConversations).Put([]byte(conv.ID), data)
	})
}

// GetConversation reads a conversation by id.
func (s *Store) GetConversation(id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketConversations).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns a user's non-archived conversations, newest
// first. Malformed records are skipped instead of failing the whole load.
func (s *Store) ListConversations(userID string) ([]model.Conversation, error) {
	var out []model.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(k, v []byte) error {
			var conv model.Conversation
			if e := json.Unmarshal(v, &conv); e != nil {
				return nil
			}
			if conv.UserID == userID && !conv.Archived {
				out = append(out, conv)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CountActive counts a user's non-archived conversations.
func (s *Store) CountActive(userID string) (int, error) {
	convs, err := s.ListConversations(userID)
	if err != nil {
		return 0, err
	}
	return len(convs), nil
}

// OldestActive returns the user's non-archived conversation with the lowest
// creation timestamp, or ErrNotFound when there is none.
func (s *Store) OldestActive(userID string) (*model.Conversation, error) {
	convs, err := s.ListConversations(userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, ErrNotFound
	}
	oldest := convs[0]
	for _, c := range convs[1:] {
		if c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	return &oldest, nil
}

// ArchiveConversation soft-deletes a conversation.
func (s *Store) ArchiveConversation(id string) error {
	conv, err := s.GetConversation(id)
	if err != nil {
		return err
	}
	conv.Archived = true
	conv.UpdatedAt = time.Now()
	return s.PutConversation(conv)
}

// DeleteConversation hard-deletes a conversation and its messages. Used only
// by the user-initiated purge and the stale-data cleanup.
func (s *Store) DeleteConversation(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketConversations).Delete([]byte(id)); err != nil {
			return err
		}
		msgs := tx.Bucket(bucketMessages)
		if sub := msgs.Bucket([]byte(id)); sub != nil {
			return msgs.DeleteBucket([]byte(id))
		}
		return nil
	})
}

// DeleteStale removes a user's conversations not updated since cutoff,
// returning how many were removed.
func (s *Store) DeleteStale(userID string, cutoff time.Time) (int, error) {
	convs, err := s.ListConversations(userID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, c := range convs {
		if c.UpdatedAt.Before(cutoff) {
			if err := s.DeleteConversation(c.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// AppendMessage stores a message under its conversation, keyed so iteration
// order is chronological.
func (s *Store) AppendMessage(msg *model.Message) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sub, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists([]byte(msg.ConversationID))
		if err != nil {
			return err
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%020d_%s", msg.CreatedAt.UnixNano(), msg.ID)
		return sub.Put([]byte(key), data)
	})
}

// Messages returns a conversation's messages in chronological order.
func (s *Store) Messages(conversationID string) ([]model.Message, error) {
	var out []model.Message
	err := s.db.View(func(tx *bolt.Tx) error {
		sub := tx.Bucket(bucketMessages).Bucket([]byte(conversationID))
		if sub == nil {
			return nil
		}
		return sub.ForEach(func(k, v []byte) error {
			var msg model.Message
			if e := json.Unmarshal(v, &msg); e != nil {
				return nil
			}
			out = append(out, msg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LastCleanup returns when the stale-conversation cleanup last ran for a user.
func (s *Store) LastCleanup(userID string) (time.Time, error) {
	var ts time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCleanupMeta).Get([]byte(userID))
		if data == nil {
			return nil
		}
		return ts.UnmarshalText(data)
	})
	return ts, err
}

// SetLastCleanup records a cleanup run for a user.
func (s *Store) SetLastCleanup(userID string, ts time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := ts.MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCleanupMeta).Put([]byte(userID), data)
	})
}

// AddNotification stores a notification.
func (s *Store) AddNotification(n *model.AppNotification) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%020d_%s", n.UserID, n.CreatedAt.UnixNano(), n.ID)
		return tx.Bucket(bucketNotifications).Put([]byte(key), data)
	})
}

// Notifications returns a user's notifications, newest first.
func (s *Store) Notifications(userID string) ([]model.AppNotification, error) {
	var out []model.AppNotification
	prefix := []byte(userID + "/")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketNotifications).Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
			var n model.AppNotification
			if e := json.Unmarshal(v, &n); e != nil {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys iterate oldest-first; callers want newest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// MarkNotificationRead flags a user's notification as read.
func (s *Store) MarkNotificationRead(userID, id string) error {
	prefix := []byte(userID + "/")
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
			var n model.AppNotification
			if e := json.Unmarshal(v, &n); e != nil {
				continue
			}
			if n.ID == id {
				n.IsRead = true
				data, e := json.Marshal(&n)
				if e != nil {
					return e
				}
				return b.Put(k, data)
			}
		}
		return ErrNotFound
	})
}
