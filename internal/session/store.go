package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pixelvault/marketplace/internal/domain"
)

const (
	keyPrefix       = "session:"
	tokenByteLength = 32
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Store keeps social-login sessions in Redis, keyed by the session cookie value.
type Store struct {
	client   *redis.Client
	lifetime time.Duration
	now      func() time.Time
}

// NewStore builds a store over an existing client.
func NewStore(client *redis.Client, lifetime time.Duration) *Store {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &Store{client: client, lifetime: lifetime, now: time.Now}
}

// Lifetime returns how long new sessions live.
func (s *Store) Lifetime() time.Duration {
	return s.lifetime
}

// Create persists a new session for the user and returns it.
func (s *Store) Create(ctx context.Context, userID string, role domain.Role) (*domain.Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &domain.Session{
		ID:        id,
		UserID:    userID,
		Role:      string(role),
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, keyPrefix+id, raw, s.lifetime).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Lookup returns the session for id, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	sess, ok := decodeSession(raw)
	if !ok || (!sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt)) {
		_ = s.client.Del(ctx, keyPrefix+id).Err()
		return nil, ErrNotFound
	}
	return sess, nil
}

// decodeSession reports false for values that cannot identify a user.
func decodeSession(raw []byte) (*domain.Session, bool) {
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.UserID == "" {
		return nil, false
	}
	return &sess, true
}

// Delete removes a session. Unknown ids are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func generateID() (string, error) {
	b := make([]byte, tokenByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
