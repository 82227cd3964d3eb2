package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdeck/internal/importer"
)

// DefaultSessionTTL is how long a saved import review is kept (24 hours)
const DefaultSessionTTL = 24 * time.Hour

// Store is the Redis-backed catalog and import session storage.
//
// Catalog entries never expire. Writers only add: sections are claimed by
// folded title and links by dedup key with HSETNX, so concurrent
// administrators cannot create the same section or link twice.
type Store struct {
	client     *redis.Client
	sessionTTL time.Duration
}

// NewStore creates a new Redis store. sessionTTL <= 0 uses DefaultSessionTTL.
func NewStore(client *redis.Client, sessionTTL time.Duration) *Store {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Store{
		client:     client,
		sessionTTL: sessionTTL,
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Counts returns the number of sections and links.
func (s *Store) Counts(ctx context.Context) (sections, links int64, err error) {
	ids, err := s.client.LRange(ctx, KeySectionOrder, 0, -1).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get section IDs: %w", err)
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.LLen(ctx, SectionLinksKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to count links: %w", err)
	}
	for _, cmd := range cmds {
		links += cmd.Val()
	}
	return int64(len(ids)), links, nil
}

// getJSON loads keys in one round trip, skipping missing ones.
func getJSON[T any](ctx context.Context, c *redis.Client, keys []string) ([]T, error) {
	if len(keys) == 0 {
		return []T{}, nil
	}

	pipe := c.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Get(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read %d keys: %w", len(keys), err)
	}

	out := make([]T, 0, len(keys))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			// Skip entries removed between the index read and the get
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %v: %w", cmd.Args()[1], err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ─────────────────────────────
// Import session
// ─────────────────────────────

// SaveSession stores the import review snapshot with the session TTL.
func (s *Store) SaveSession(ctx context.Context, snap importer.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal import session: %w", err)
	}
	if err := s.client.Set(ctx, KeyImportSession, data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save import session: %w", err)
	}
	return nil
}

// LoadSession returns the saved snapshot, or nil when there is none.
func (s *Store) LoadSession(ctx context.Context) (*importer.SessionSnapshot, error) {
	data, err := s.client.Get(ctx, KeyImportSession).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import session: %w", err)
	}

	var snap importer.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import session: %w", err)
	}
	return &snap, nil
}

// DeleteSession removes the saved snapshot.
func (s *Store) DeleteSession(ctx context.Context) error {
	if err := s.client.Del(ctx, KeyImportSession).Err(); err != nil {
		return fmt.Errorf("failed to delete import session: %w", err)
	}
	return nil
}
