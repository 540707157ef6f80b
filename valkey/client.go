package valkeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lesson-insights-api/config"

	"github.com/valkey-io/valkey-go"
	"github.com/valkey-io/valkey-go/valkeycompat"
	"go.uber.org/zap"
)

// Client carries lesson jobs over pub/sub and caches finished results.
type Client struct {
	raw    valkey.Client
	cmd    valkeycompat.Cmdable
	logger *zap.Logger
}

func New(cfg config.ValkeyConfig, logger *zap.Logger) (*Client, error) {
	var opt valkey.ClientOption

	if cfg.UseSentinel {
		logger.Info("Initializing distributed cache service with sentinel configuration",
			zap.Strings("sentinels", cfg.SentinelAddresses),
			zap.String("master", cfg.MasterName))
		opt = valkey.ClientOption{
			InitAddress: cfg.SentinelAddresses,
			Sentinel: valkey.SentinelOption{
				MasterSet: cfg.MasterName,
			},
		}
	} else {
		logger.Info("Initializing cache service")
		opt = valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		}
	}

	vk, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}

	logger.Info("Cache service initialized successfully")
	return NewWithClient(vk, logger), nil
}

func NewWithClient(vk valkey.Client, logger *zap.Logger) *Client {
	return &Client{raw: vk, cmd: valkeycompat.NewAdapter(vk), logger: logger}
}

func (c *Client) Publish(ctx context.Context, channel, message string) error {
	if err := c.raw.Do(ctx, c.raw.B().Publish().Channel(channel).Message(message).Build()).Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers every message on channel to fn until ctx is done.
// A dropped connection is retried after a short pause.
func (c *Client) Subscribe(ctx context.Context, channel string, fn func(message string)) error {
	sugar := c.logger.Sugar()
	for {
		err := c.raw.Receive(ctx, c.raw.B().Subscribe().Channel(channel).Build(), func(msg valkey.PubSubMessage) {
			fn(msg.Message)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sugar.Errorw("Subscription interrupted",
			"channel", channel,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

// SetJSON stores v under key for ttl.
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.cmd.Set(ctx, key, string(data), ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// GetJSON loads key into v. It reports false when the key is absent.
func (c *Client) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.cmd.Get(ctx, key).Result()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("unmarshal cache value %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.cmd.Ping(ctx).Err()
}

func (c *Client) Close() {
	c.raw.Close()
}

// LessonKey is the cache key of a lesson job's result.
func LessonKey(job string) string {
	return "lesson:" + job
}
