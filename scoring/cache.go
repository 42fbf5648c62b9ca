package scoring

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rustyeddy/confluence/strategy"
)

// Cache stores oracle scores by key. A miss is (Score{}, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (Score, bool, error)
	Set(ctx context.Context, key string, s Score, ttl time.Duration) error
}

// RedisCache keeps scores as JSON values under prefix+key.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (Score, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Score{}, false, nil
	}
	if err != nil {
		return Score{}, false, err
	}
	var s Score
	if err := json.Unmarshal(val, &s); err != nil {
		return Score{}, false, fmt.Errorf("decode cached score: %w", err)
	}
	return s, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, s Score, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, b, ttl).Err()
}

// DefaultCacheTimeout bounds each cache round trip.
const DefaultCacheTimeout = 250 * time.Millisecond

// Cached memoises the oracle scores produced by next. Cache errors are
// logged and otherwise ignored, and cached values outside [0, MaxScore]
// count as misses.
type Cached struct {
	next    Scorer
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
	log     *slog.Logger
}

type CachedOption func(*Cached)

// WithCacheTimeout bounds each Get and Set. Zero or less disables the
// bound.
func WithCacheTimeout(d time.Duration) CachedOption {
	return func(c *Cached) { c.timeout = d }
}

func NewCached(next Scorer, cache Cache, ttl time.Duration, log *slog.Logger, opts ...CachedOption) *Cached {
	if log == nil {
		log = slog.Default()
	}
	c := &Cached{next: next, cache: cache, ttl: ttl, timeout: DefaultCacheTimeout, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) Score(ctx context.Context, sig strategy.Signal) Score {
	key := Key(sig)
	if s, ok := c.get(ctx, key); ok {
		s.Source = SourceCache
		return s
	}

	s := c.next.Score(ctx, sig)
	if s.Source != SourceOracle {
		return s
	}
	cctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.cache.Set(cctx, key, s, c.ttl); err != nil {
		c.log.Warn("score cache set", "key", key, "err", err)
	}
	return s
}

func (c *Cached) get(ctx context.Context, key string) (Score, bool) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	s, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn("score cache get", "key", key, "err", err)
		return Score{}, false
	case !ok:
		return Score{}, false
	case math.IsNaN(s.Value) || s.Value < 0 || s.Value > MaxScore:
		c.log.Warn("score cache value out of range", "key", key, "score", s.Value)
		return Score{}, false
	}
	return s, true
}

func (c *Cached) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Key hashes the inputs the oracle sees for sig.
func Key(sig strategy.Signal) string {
	in := struct {
		Direction   strategy.Direction `json:"d"`
		Entry       float64            `json:"e"`
		Confluence  int                `json:"c"`
		Factors     []strategy.Factor  `json:"f"`
		ADX         float64            `json:"a"`
		VolumeRatio float64            `json:"v"`
	}{
		sig.Direction,
		round(sig.Entry, 2),
		sig.Confluence,
		sig.Factors,
		round(sig.ADX, 1),
		round(sig.VolumeRatio, 2),
	}
	b, _ := json.Marshal(in)
	sum := md5.Sum(b)
	return "score:" + hex.EncodeToString(sum[:])
}

func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
