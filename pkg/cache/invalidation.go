// Package cache propagates resolved-mapping cache invalidations between
// processes over Redis pub/sub.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Invalidation scopes.
const (
	ScopeAccount = "account"
	ScopeAll     = "all"
)

// Message is the payload published on the invalidation channel.
type Message struct {
	Scope     string    `json:"scope"`
	AccountID uuid.UUID `json:"account_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Invalidator drops cached mappings. Implemented by services.CachedResolver.
type Invalidator interface {
	InvalidateAccount(accountID uuid.UUID)
	InvalidateAll()
}

// Notifier announces mapping changes so every process drops stale entries.
type Notifier interface {
	AccountChanged(ctx context.Context, accountID uuid.UUID) error
	AllChanged(ctx context.Context) error
}

type localNotifier struct {
	target Invalidator
}

// NewLocalNotifier applies changes to target only. Used when Redis is not configured.
func NewLocalNotifier(target Invalidator) Notifier {
	return &localNotifier{target: target}
}

func (n *localNotifier) AccountChanged(_ context.Context, accountID uuid.UUID) error {
	if n.target != nil {
		n.target.InvalidateAccount(accountID)
	}
	return nil
}

func (n *localNotifier) AllChanged(context.Context) error {
	if n.target != nil {
		n.target.InvalidateAll()
	}
	return nil
}

// RedisInvalidator publishes invalidations and applies the ones it receives
// to a local Invalidator.
type RedisInvalidator struct {
	client  *redis.Client
	channel string
	target  Invalidator // nil for publish-only users such as the seed tool
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewRedisInvalidator creates an invalidator on channel. The caller keeps
// ownership of client.
func NewRedisInvalidator(client *redis.Client, channel string, target Invalidator, logger *zap.Logger) *RedisInvalidator {
	return &RedisInvalidator{
		client:  client,
		channel: channel,
		target:  target,
		logger:  logger.Named("cache-invalidation"),
	}
}

var _ Notifier = (*RedisInvalidator)(nil)

// AccountChanged invalidates the account locally and publishes it.
func (i *RedisInvalidator) AccountChanged(ctx context.Context, accountID uuid.UUID) error {
	if i.target != nil {
		i.target.InvalidateAccount(accountID)
	}
	return i.publish(ctx, Message{Scope: ScopeAccount, AccountID: accountID})
}

// AllChanged invalidates everything locally and publishes it.
func (i *RedisInvalidator) AllChanged(ctx context.Context) error {
	if i.target != nil {
		i.target.InvalidateAll()
	}
	return i.publish(ctx, Message{Scope: ScopeAll})
}

func (i *RedisInvalidator) publish(ctx context.Context, msg Message) error {
	msg.Timestamp = time.Now().UnixNano()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish invalidation",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}

	i.logger.Debug("Published invalidation",
		zap.String("scope", msg.Scope),
		zap.String("account_id", msg.AccountID.String()))
	return nil
}

// Subscribe listens on the channel until ctx is done and applies each
// message to the target. It blocks; run it in a goroutine.
func (i *RedisInvalidator) Subscribe(ctx context.Context) error {
	if i.target == nil {
		return fmt.Errorf("subscribe requires an invalidation target")
	}

	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.running = true
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
	}()

	pubsub := i.client.Subscribe(ctx, i.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("Subscribed to invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			i.logger.Info("Invalidation subscription stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Invalidation channel closed")
				return nil
			}
			i.handle(msg.Payload)
		}
	}
}

func (i *RedisInvalidator) handle(payload string) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		i.logger.Error("Failed to unmarshal invalidation", zap.Error(err))
		return
	}

	switch msg.Scope {
	case ScopeAll:
		i.target.InvalidateAll()
	case ScopeAccount:
		if msg.AccountID == uuid.Nil {
			i.logger.Warn("Account invalidation without account id")
			return
		}
		i.target.InvalidateAccount(msg.AccountID)
	default:
		i.logger.Warn("Unknown invalidation scope", zap.String("scope", msg.Scope))
		return
	}

	i.logger.Debug("Applied invalidation",
		zap.String("scope", msg.Scope),
		zap.String("account_id", msg.AccountID.String()))
}
