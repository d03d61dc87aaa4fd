package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options configures the shared Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	Namespace string // prefix for every key this service writes, e.g. "videotheque"
}

// Client wraps the go-redis client with the service key namespace.
type Client struct {
	*redis.Client
	namespace string
	logger    *zap.Logger
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	c := &Client{Client: rdb, namespace: strings.Trim(opts.Namespace, ":"), logger: logger}
	if err := c.Check(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	logger.Info("Redis client connected", zap.String("addr", opts.Addr), zap.String("namespace", c.namespace))
	return c, nil
}

// Key joins parts under the namespace, with a trailing ":" so the result can be used as a prefix.
func (c *Client) Key(parts ...string) string {
	if c.namespace != "" {
		parts = append([]string{c.namespace}, parts...)
	}
	return strings.Join(parts, ":") + ":"
}

// Check pings Redis with a short deadline.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
