package redis

import (
	"context"
	"time"

	"github.com/dhkim/storefront-gateway/config"
	"github.com/dhkim/storefront-gateway/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// CartUpdatesChannel carries cart-changed notifications between gateway
// instances. Consumers connected to any instance re-read on signal.
const CartUpdatesChannel = "cart.updated"

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"addr": cfg.Addr(),
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"addr": cfg.Addr(),
		})
		client = nil
		return err
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance, or nil when Redis is unavailable
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// PublishCartUpdate broadcasts a cart-changed payload to all instances.
// Failures are logged and swallowed: notification loss must never fail a
// cart mutation.
func PublishCartUpdate(ctx context.Context, payload []byte) {
	if client == nil {
		return
	}
	if err := client.Publish(ctx, CartUpdatesChannel, payload).Err(); err != nil {
		logger.Warn("Failed to publish cart update", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// SubscribeCartUpdates subscribes to the cart-changed channel.
// Returns nil when Redis is unavailable.
func SubscribeCartUpdates(ctx context.Context) *redis.PubSub {
	if client == nil {
		return nil
	}
	return client.Subscribe(ctx, CartUpdatesChannel)
}
