package cache

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/logging"
	"golang.org/x/sync/singleflight"
)

var logger = logging.For("cache")

type shard[V any] struct {
	mutex sync.RWMutex
	items map[string]V
}

// Registry is a concurrent, never evicting map from string keys to values
type Registry[V any] struct {
	config Config
	shards []*shard[V]
	mask   uint64
	group  singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
	size   atomic.Int64
}

// NewRegistry creates an empty registry with the given configuration
func NewRegistry[V any](config Config) *Registry[V] {
	n := 1
	for n < config.Shards {
		n <<= 1
	}

	r := &Registry[V]{
		config: config,
		shards: make([]*shard[V], n),
		mask:   uint64(n - 1),
	}
	for i := range r.shards {
		r.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return r
}

func (r *Registry[V]) shard(key string) *shard[V] {
	return r.shards[xxhash.Sum64String(key)&r.mask]
}

// Get returns the value stored under key
func (r *Registry[V]) Get(key string) (V, bool) {
	s := r.shard(key)
	s.mutex.RLock()
	v, ok := s.items[key]
	s.mutex.RUnlock()

	if ok {
		r.hits.Add(1)
	} else {
		r.misses.Add(1)
	}
	return v, ok
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores v and returns it. loaded is true if the value was already present.
func (r *Registry[V]) LoadOrStore(key string, v V) (actual V, loaded bool) {
	s := r.shard(key)
	s.mutex.Lock()
	if existing, ok := s.items[key]; ok {
		s.mutex.Unlock()
		return existing, true
	}
	s.items[key] = v
	s.mutex.Unlock()

	r.stored(key)
	return v, false
}

// Do returns the value stored under key. On a miss fn is called, with
// concurrent callers for the same key sharing one call, and a successful
// result is stored. Errors are not cached.
func (r *Registry[V]) Do(key string, fn func() (V, error)) (V, error) {
	if v, ok := r.Get(key); ok {
		return v, nil
	}

	res, err, _ := r.group.Do(key, func() (interface{}, error) {
		if v, ok := r.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		v, _ = r.LoadOrStore(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, apperror.Wrap(err)
	}
	return res.(V), nil
}

// Len returns the number of stored entries
func (r *Registry[V]) Len() int64 {
	return r.size.Load()
}

// Stats returns a snapshot of the registry counters
func (r *Registry[V]) Stats() Stats {
	return Stats{
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
		Size:   r.size.Load(),
	}
}

// Range calls fn for every entry until fn returns false. The order is unspecified.
func (r *Registry[V]) Range(fn func(key string, v V) bool) {
	for _, s := range r.shards {
		s.mutex.RLock()
		items := make(map[string]V, len(s.items))
		for k, v := range s.items {
			items[k] = v
		}
		s.mutex.RUnlock()

		for k, v := range items {
			if !fn(k, v) {
				return
			}
		}
	}
}

func (r *Registry[V]) stored(key string) {
	size := r.size.Add(1)
	r.emit(Event{Type: EventStore, Key: key, Size: size})

	step := r.config.GrowthThreshold
	if step <= 0 || size%step != 0 {
		return
	}
	logger.Warn().
		Str("registry", r.config.Name).
		Int64("size", size).
		Msg("registry keeps growing, entries are never evicted")
	r.emit(Event{Type: EventGrowth, Key: key, Size: size})
}

func (r *Registry[V]) emit(e Event) {
	if r.config.EventHandler != nil {
		r.config.EventHandler(e)
	}
}
