package badger

import "time"

// DefaultPrefix is prepended to every record key.
const DefaultPrefix = "ssess_"

// Config configures the badger backend.
type Config struct {
	// Dir is the database directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps the database in memory only. Used by tests.
	InMemory bool

	// Prefix is prepended to identifiers to form keys.
	// Default: "ssess_"
	Prefix string

	// LockTTL is how long a lock may be held before it counts as abandoned.
	// Zero means locks never expire.
	LockTTL time.Duration

	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites enables fsync after each write.
	// Default: true, sessions are expected to survive a crash.
	SyncWrites bool
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		Prefix:           DefaultPrefix,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,  // 64MB
		ValueLogFileSize: 256 << 20, // 256MB
		NumMemtables:     2,
		SyncWrites:       true,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig(c.Dir)
	if c.Prefix == "" {
		c.Prefix = def.Prefix
	}
	if c.GCInterval <= 0 {
		c.GCInterval = def.GCInterval
	}
	if c.GCThreshold <= 0 || c.GCThreshold >= 1 {
		c.GCThreshold = def.GCThreshold
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	if c.ValueLogFileSize <= 0 {
		c.ValueLogFileSize = def.ValueLogFileSize
	}
	if c.NumMemtables <= 0 {
		c.NumMemtables = def.NumMemtables
	}
}
