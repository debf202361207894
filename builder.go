package gosession

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"pkt.systems/pslog"

	"github.com/unhuman/gosession/kv"
	"github.com/unhuman/gosession/session"
)

// Builder assembles a [Manager]. Construction is allocation-only; no I/O
// happens before Build, and the resulting Manager is safe for concurrent
// use.
type Builder struct {
	config  Config
	primary redis.UniversalClient
	replica redis.UniversalClient
	bucket  kv.Bucket
	logger  pslog.Logger

	built bool
}

// New returns a Builder preloaded with defaults: key prefix "session::"
// and a 30 minute inactivity window.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithKeyPrefix sets the document key namespace.
func (b *Builder) WithKeyPrefix(prefix string) *Builder {
	b.config.KeyPrefix = prefix
	return b
}

// WithMaxInactive sets the inactivity window used as the document TTL.
func (b *Builder) WithMaxInactive(d time.Duration) *Builder {
	b.config.MaxInactive = d
	return b
}

// WithRedis sets the primary Redis client. Connection management, cluster
// topology, and timeouts are the client's configuration, not this
// library's.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.primary = client
	return b
}

// WithReplica sets the first-priority replica client consulted by the
// one-shot read fallback. Optional; without it a primary outage surfaces
// as ErrStoreUnavailable.
func (b *Builder) WithReplica(client redis.UniversalClient) *Builder {
	b.replica = client
	return b
}

// WithBucket supplies a pre-built key-value bucket, bypassing the Redis
// wiring. Intended for alternative backends and tests.
func (b *Builder) WithBucket(bucket kv.Bucket) *Builder {
	b.bucket = bucket
	return b
}

// WithLogger sets the structured logger. Defaults to pslog.NoopLogger().
func (b *Builder) WithLogger(logger pslog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and wires the Manager. A Builder is
// single-use.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("gosession: builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	bucket := b.bucket
	if bucket == nil {
		if b.primary == nil {
			return nil, errors.New("gosession: a primary Redis client or a bucket is required")
		}
		bucket = kv.NewRedisBucket(b.primary, b.replica)
	}

	logger := b.logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}

	store := session.NewStore(bucket, b.config.KeyPrefix, b.config.MaxInactive, logger)

	b.built = true
	return &Manager{
		store:   store,
		config:  b.config,
		log:     logger,
		metrics: &metrics{},
	}, nil
}
