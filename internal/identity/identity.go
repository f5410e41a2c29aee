// Package identity keeps the anonymous session identifier and cached display name.
package identity

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Keys in the local key/value table.
const (
	SessionKey     = "typeme_session_id"
	DisplayNameKey = "typeme_display_name"
)

const suffixLen = 9

// KV is durable local key/value storage.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store hands out a stable session identifier for this profile.
type Store struct {
	kv  KV
	now func() time.Time
	rnd *rand.Rand

	mu     sync.Mutex
	cached string
}

// New returns a Store over kv.
func New(kv KV) *Store {
	return &Store{
		kv:  kv,
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SessionID returns the stored identifier, creating and persisting one on first use.
func (s *Store) SessionID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" {
		return s.cached, nil
	}
	id, ok, err := s.kv.Get(ctx, SessionKey)
	if err != nil {
		return "", fmt.Errorf("failed to read session id: %w", err)
	}
	if !ok || id == "" {
		id = s.generate()
		if err := s.kv.Set(ctx, SessionKey, id); err != nil {
			return "", fmt.Errorf("failed to persist session id: %w", err)
		}
	}
	s.cached = id
	return id, nil
}

// generate builds anon_{epochMillis}_{9 base36 chars}.
func (s *Store) generate() string {
	var b strings.Builder
	for b.Len() < suffixLen {
		b.WriteString(strconv.FormatInt(s.rnd.Int63(), 36))
	}
	return fmt.Sprintf("anon_%d_%s", s.now().UnixMilli(), b.String()[:suffixLen])
}

// DisplayName returns the locally cached display name, empty when unset.
func (s *Store) DisplayName(ctx context.Context) (string, error) {
	name, _, err := s.kv.Get(ctx, DisplayNameKey)
	if err != nil {
		return "", fmt.Errorf("failed to read display name: %w", err)
	}
	return name, nil
}

// SetDisplayName mirrors name into the local cache.
func (s *Store) SetDisplayName(ctx context.Context, name string) error {
	if err := s.kv.Set(ctx, DisplayNameKey, name); err != nil {
		return fmt.Errorf("failed to cache display name: %w", err)
	}
	return nil
}
