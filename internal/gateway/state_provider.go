package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/mkor14/veracity/internal/game"
)

// SnapshotSource defines what the state provider needs from the game
// service.
type SnapshotSource interface {
	Snapshot(id uuid.UUID) (*game.Snapshot, error)
}

// CachedStateProvider serves marshaled game snapshots behind a short TTL, so
// a room full of reconnecting clients does not hammer the game service for
// byte-identical state.
type CachedStateProvider struct {
	source SnapshotSource
	cache  *gocache.Cache
}

// NewCachedStateProvider caches snapshots for the given TTL.
func NewCachedStateProvider(source SnapshotSource, ttl time.Duration) *CachedStateProvider {
	if ttl <= 0 {
		ttl = time.Second
	}
	return &CachedStateProvider{
		source: source,
		cache:  gocache.New(ttl, 10*ttl),
	}
}

// State returns the marshaled snapshot for a game, from cache when fresh.
func (p *CachedStateProvider) State(id uuid.UUID) ([]byte, error) {
	key := id.String()
	if cached, found := p.cache.Get(key); found {
		return cached.([]byte), nil
	}

	snap, err := p.source.Snapshot(id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	p.cache.Set(key, data, gocache.DefaultExpiration)
	return data, nil
}

// Invalidate drops a game's cached snapshot, for callers that just changed
// it and want the next read to be fresh.
func (p *CachedStateProvider) Invalidate(id uuid.UUID) {
	p.cache.Delete(id.String())
}
