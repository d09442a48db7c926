package graph

import (
	"fmt"
	"sync"

	cache "github.com/patrickmn/go-cache"

	"github.com/chatstory/engine/internal/script"
)

// Registry keeps every published snapshot, addressable by day and
// version, with a latest pointer per day. Publishing is serialized per
// registry; lookups are lock-free through the cache.
type Registry struct {
	mu       sync.Mutex
	versions map[string]int
	c        *cache.Cache
}

// NewRegistry returns an empty registry. Snapshots never expire;
// sessions may resume against an old version long after a republish.
func NewRegistry() *Registry {
	return &Registry{
		versions: make(map[string]int),
		c:        cache.New(cache.NoExpiration, 0),
	}
}

// Publish links the draft and stores the result as the next version of
// the day. On any link failure nothing is stored and the previously
// published version, if any, remains the latest.
func (r *Registry) Publish(dayID string, day Day, res *script.CompileResult) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.versions[dayID] + 1
	snap, err := Build(day, res, next)
	if err != nil {
		return nil, err
	}

	r.versions[dayID] = next
	r.c.Set(versionKey(dayID, next), snap, cache.NoExpiration)
	r.c.Set(latestKey(dayID), snap, cache.NoExpiration)
	return snap, nil
}

// Latest returns the most recently published snapshot of a day.
func (r *Registry) Latest(dayID string) (*Snapshot, bool) {
	v, ok := r.c.Get(latestKey(dayID))
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

// Version returns a specific published version of a day.
func (r *Registry) Version(dayID string, version int) (*Snapshot, bool) {
	v, ok := r.c.Get(versionKey(dayID, version))
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

// LatestVersion returns the current version number of a day, 0 if the
// day has never been published.
func (r *Registry) LatestVersion(dayID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[dayID]
}

func latestKey(dayID string) string {
	return dayID + "@latest"
}

func versionKey(dayID string, version int) string {
	return fmt.Sprintf("%s@v%d", dayID, version)
}
