package relay

import (
	"sort"
	"sync"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/config"
)

// Relays owns one relay per source key, created lazily on first access.
// Relays are never removed; an idle relay is a map entry and a cached
// frame, nothing more.
type Relays struct {
	capacity int

	mu      sync.Mutex
	entries map[string]*Relay
}

func NewRelays(cfgsvc config.IService) *Relays {
	return &Relays{
		capacity: cfgsvc.GetSubscriberQueueCapacity(),
		entries:  map[string]*Relay{},
	}
}

// Get returns the relay for the source key, creating it if needed.
// Concurrent callers for the same key get the same relay.
func (rs *Relays) Get(sourceKey string) *Relay {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	r, ok := rs.entries[sourceKey]
	if !ok {
		r = newRelay(sourceKey, rs.capacity)
		rs.entries[sourceKey] = r
	}

	return r
}

func (rs *Relays) Keys() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	keys := make([]string, 0, len(rs.entries))
	for key := range rs.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func (rs *Relays) Stats() []model.RelayStats {
	rs.mu.Lock()
	relays := make([]*Relay, 0, len(rs.entries))
	for _, r := range rs.entries {
		relays = append(relays, r)
	}
	rs.mu.Unlock()

	stats := make([]model.RelayStats, 0, len(relays))
	for _, r := range relays {
		stats = append(stats, r.Stats())
	}

	return stats
}
