// Package broadcast provides the collective primitive the round loop runs
// on: one designated rank publishes a value, every other rank blocks until
// it arrives. Publish doubles as the per-round synchronization barrier.
package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/models"
)

// Broadcaster is one rank's handle on the group's broadcast channel.
type Broadcaster interface {
	// Publish fans msg out to every other rank in the group and returns
	// only after all of them have received it. Coordinator only.
	Publish(ctx context.Context, msg *models.RoundMessage) error

	// Receive blocks until the coordinator publishes the next message.
	Receive(ctx context.Context) (*models.RoundMessage, error)

	Close() error
}

// New builds the broadcaster selected by the settings.
func New(cfg *config.Settings) (Broadcaster, error) {
	switch cfg.Broadcast {
	case "memory":
		if cfg.WorldSize != 1 {
			return nil, fmt.Errorf("memory broadcast supports a single rank, world size is %d", cfg.WorldSize)
		}
		return NewMemory().Join(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedis(client, cfg.GroupName, cfg.Rank, cfg.WorldSize), nil
	case "amqp":
		return NewAMQP(cfg.AMQPURL, cfg.GroupName, cfg.Rank, cfg.WorldSize)
	default:
		return nil, fmt.Errorf("unknown broadcast backend %q", cfg.Broadcast)
	}
}
