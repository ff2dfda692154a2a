// Package store keeps per-session state (conversation history and uploaded
// documents) in a keyed external store with sliding TTL expiration.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"propchat/internal/model"
)

// ErrTooManyUploads is returned when a session already holds the maximum
// number of uploaded documents.
var ErrTooManyUploads = errors.New("session upload limit reached")

// SessionStore persists history and uploads under per-session keys. Every
// successful read refreshes the key's TTL; writes replace the whole value.
// Concurrent writers for the same session follow last-writer-wins.
type SessionStore struct {
	client     *redisv9.Client
	sessionTTL time.Duration
	maxTurns   int
	maxDocs    int
}

func NewSessionStore(client *redisv9.Client, sessionTTL time.Duration, maxTurns, maxDocs int) *SessionStore {
	if sessionTTL <= 0 {
		sessionTTL = 2 * time.Hour
	}
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if maxDocs <= 0 {
		maxDocs = 5
	}
	return &SessionStore{
		client:     client,
		sessionTTL: sessionTTL,
		maxTurns:   maxTurns,
		maxDocs:    maxDocs,
	}
}

// LoadHistory returns the session's conversation turns, oldest first. A
// missing key yields an empty history, not an error.
func (s *SessionStore) LoadHistory(ctx context.Context, sessionID string) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	if err := s.getJSON(ctx, s.historyKey(sessionID), &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// SaveHistory replaces the session's history, evicting the oldest turns
// beyond the turn cap.
func (s *SessionStore) SaveHistory(ctx context.Context, sessionID string, turns []model.ConversationTurn) error {
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	return s.setJSON(ctx, s.historyKey(sessionID), turns)
}

// ListDocuments returns the session's uploaded documents in upload order.
func (s *SessionStore) ListDocuments(ctx context.Context, sessionID string) ([]model.SessionDocument, error) {
	var docs []model.SessionDocument
	if err := s.getJSON(ctx, s.documentsKey(sessionID), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// AddDocument appends one uploaded document, enforcing the per-session cap.
func (s *SessionStore) AddDocument(ctx context.Context, sessionID string, doc model.SessionDocument) (int, error) {
	docs, err := s.ListDocuments(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if len(docs) >= s.maxDocs {
		return len(docs), ErrTooManyUploads
	}
	docs = append(docs, doc)
	if err := s.setJSON(ctx, s.documentsKey(sessionID), docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// DeleteSession removes all state for the session and reports how many
// uploaded documents were discarded.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	docs, err := s.ListDocuments(ctx, sessionID)
	if err != nil {
		docs = nil
	}
	if err := s.client.Del(ctx, s.historyKey(sessionID), s.documentsKey(sessionID)).Err(); err != nil {
		return 0, fmt.Errorf("redis delete session failed: %w", err)
	}
	return len(docs), nil
}

// Ping reports whether the backing store is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) getJSON(ctx context.Context, key string, out interface{}) error {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get %s failed: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	// Sliding expiration: a live read keeps the session alive.
	_ = s.client.Expire(ctx, key, s.sessionTTL).Err()
	return nil
}

func (s *SessionStore) setJSON(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

func (s *SessionStore) historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}

func (s *SessionStore) documentsKey(sessionID string) string {
	return fmt.Sprintf("chat:docs:%s", sessionID)
}
