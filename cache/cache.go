// Package cache provides the process-wide interning registry used by
// omniversion to share compiled formats.
//
// A Registry maps string keys to values and never evicts. Lookups are spread
// over xxhash selected shards so concurrent readers rarely contend, and Do
// guarantees that at most one producer runs per key at a time:
//
//	reg := cache.NewRegistry[*Format](cache.DefaultConfig())
//	f, err := reg.Do("n.n", func() (*Format, error) {
//		return compile("n.n")
//	})
//
// Because entries live for the process lifetime, the registry logs a warning
// every time its size crosses another multiple of Config.GrowthThreshold.
package cache

// Config holds the registry settings
type Config struct {
	// Shards is the number of independently locked maps. It is rounded up to a power of two.
	Shards int `yaml:"shards"`
	// GrowthThreshold is the entry count step at which growth is logged. Zero disables the warning.
	GrowthThreshold int64 `yaml:"growth_threshold"`
	// Name identifies the registry in log events
	Name string `yaml:"name"`
	// EventHandler is called for every store, if set
	EventHandler EventHandler `yaml:"-"`
}

// DefaultConfig returns the default registry configuration
func DefaultConfig() Config {
	return Config{
		Shards:          16,
		GrowthThreshold: 1024,
		Name:            "registry",
	}
}

// Stats is a snapshot of registry counters
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int64
}

// EventType identifies a registry event
type EventType int

const (
	// EventStore is emitted when a new entry is stored
	EventStore EventType = iota
	// EventGrowth is emitted when the size crosses a growth threshold
	EventGrowth
)

// String returns the name of the event type
func (t EventType) String() string {
	switch t {
	case EventStore:
		return "store"
	case EventGrowth:
		return "growth"
	default:
		return "unknown"
	}
}

// Event describes a change of the registry
type Event struct {
	Type EventType
	Key  string
	Size int64
}

// EventHandler receives registry events. It must not call back into the registry.
type EventHandler func(Event)
