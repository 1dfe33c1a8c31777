// Package votes keeps the per-device record of liked apps. It is a best-effort
// guard: the blob lives with the device and is not a security boundary.
package votes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Key is the blob key a device's votes are stored under.
const Key = "appsmart_votes"

// Storage is a blob store addressed by string key.
type Storage interface {
	// Get returns ok=false when nothing is stored under key.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
}

// Record is the per-app entry of the votes blob.
type Record struct {
	Liked bool `json:"liked"`
}

type Guard struct {
	storage Storage
	key     string
}

func NewGuard(storage Storage, key string) *Guard {
	if strings.TrimSpace(key) == "" {
		key = Key
	}
	return &Guard{storage: storage, key: key}
}

// ForDevice returns a guard whose blob is namespaced by deviceID, for storage
// shared between devices.
func ForDevice(storage Storage, deviceID string) *Guard {
	return NewGuard(storage, Key+":"+strings.TrimSpace(deviceID))
}

// HasLiked reports whether appID is marked liked. A missing or unreadable
// blob counts as no votes.
func (g *Guard) HasLiked(ctx context.Context, appID string) (bool, error) {
	votes, err := g.load(ctx)
	if err != nil {
		return false, err
	}
	return votes[appID].Liked, nil
}

// MarkLiked rewrites the whole blob with appID marked liked.
func (g *Guard) MarkLiked(ctx context.Context, appID string) error {
	votes, err := g.load(ctx)
	if err != nil {
		return err
	}
	votes[appID] = Record{Liked: true}
	b, err := json.Marshal(votes)
	if err != nil {
		return fmt.Errorf("encode votes: %w", err)
	}
	if err := g.storage.Set(ctx, g.key, b); err != nil {
		return fmt.Errorf("write votes: %w", err)
	}
	return nil
}

func (g *Guard) load(ctx context.Context) (map[string]Record, error) {
	data, ok, err := g.storage.Get(ctx, g.key)
	if err != nil {
		return nil, fmt.Errorf("read votes: %w", err)
	}
	votes := make(map[string]Record)
	if !ok || len(data) == 0 {
		return votes, nil
	}
	if err := json.Unmarshal(data, &votes); err != nil || votes == nil {
		return make(map[string]Record), nil
	}
	return votes, nil
}
