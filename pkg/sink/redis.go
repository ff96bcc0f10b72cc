package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/session"
)

// RedisConfig selects the Redis server and key prefix.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled"`
	Addr     string        `mapstructure:"addr" json:"addr"`
	Password string        `mapstructure:"password" json:"-"`
	DB       int           `mapstructure:"db" json:"db"`
	Prefix   string        `mapstructure:"prefix" json:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultRedisConfig returns a disabled sink pointing at a local server.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:    "localhost:6379",
		Prefix:  "roulette",
		Timeout: 2 * time.Second,
	}
}

// Redis publishes cycles on a channel and keeps per-session prediction
// counts and a bounded list of recent predictions.
//
// Keys, for prefix p and session s:
//
//	p:cycles            pub/sub channel, every cycle as JSON
//	p:s:counts          hash pocket -> predictions
//	p:s:recent          list of the latest predictions, newest first
//	p:latest            the latest prediction of any session
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("sink: connect redis %s: %w", cfg.Addr, err)
	}

	logger := log.Component("redis")
	logger.Info("connected", "addr", cfg.Addr, "prefix", cfg.Prefix)

	return &Redis{client: client, prefix: cfg.Prefix, timeout: timeout, logger: logger}, nil
}

// Key joins parts under the configured prefix.
func (r *Redis) Key(parts ...string) string {
	key := r.prefix
	for _, p := range parts {
		if key == "" {
			key = p
			continue
		}
		key += ":" + p
	}
	return key
}

// Publish writes c. Failures are logged; wrap in Async to keep Redis
// latency out of the frame loop.
func (r *Redis) Publish(c session.Cycle) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	payload, err := json.Marshal(c)
	if err != nil {
		r.logger.Error("marshal cycle", "error", err)
		return
	}

	pipe := r.client.TxPipeline()
	pipe.Publish(ctx, r.Key("cycles"), payload)

	if p := c.Prediction; p != nil {
		pred, err := json.Marshal(p)
		if err != nil {
			r.logger.Error("marshal prediction", "error", err)
			return
		}
		recent := r.Key(c.SessionID, "recent")
		pipe.HIncrBy(ctx, r.Key(c.SessionID, "counts"), strconv.Itoa(p.Pocket), 1)
		pipe.LPush(ctx, recent, pred)
		pipe.LTrim(ctx, recent, 0, session.RecentLimit-1)
		pipe.Set(ctx, r.Key("latest"), pred, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("redis publish failed", "frame", c.FrameIndex, "error", err)
	}
}

// Counts reads the per-pocket prediction counts of a session.
func (r *Redis) Counts(ctx context.Context, sessionID string) (map[int]int, error) {
	raw, err := r.client.HGetAll(ctx, r.Key(sessionID, "counts")).Result()
	if err != nil {
		return nil, fmt.Errorf("sink: read counts: %w", err)
	}
	out := make(map[int]int, len(raw))
	for k, v := range raw {
		pocket, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		out[pocket] = n
	}
	return out, nil
}

// Client exposes the underlying client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
