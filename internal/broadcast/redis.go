package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sokinpui/molgen.go/internal/models"
)

// Redis broadcasts rounds over a pub/sub channel and implements the
// delivery barrier with a per-message ack list: each worker pushes its rank
// after decoding, and Publish drains worldSize-1 acks before returning.
type Redis struct {
	client    *redis.Client
	group     string
	rank      int
	worldSize int
	pubsub    *redis.PubSub
}

// NewRedis joins the group's broadcast channel. Worker ranks subscribe
// immediately so no round can be published before they are listening; the
// launcher must start all ranks before the coordinator's first round.
func NewRedis(client *redis.Client, group string, rank, worldSize int) *Redis {
	r := &Redis{
		client:    client,
		group:     group,
		rank:      rank,
		worldSize: worldSize,
	}
	if rank != 0 {
		r.pubsub = client.Subscribe(context.Background(), r.channel())
	}
	return r
}

func (r *Redis) channel() string {
	return r.group + ":rounds"
}

func (r *Redis) ackKey(id string) string {
	return r.group + ":ack:" + id
}

func (r *Redis) Publish(ctx context.Context, msg *models.RoundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal round message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish round message: %w", err)
	}

	// Block until every other rank has acknowledged this message.
	for i := 0; i < r.worldSize-1; i++ {
		if err := r.client.BRPop(ctx, 0, r.ackKey(msg.ID)).Err(); err != nil {
			return fmt.Errorf("failed to collect ack %d/%d: %w", i+1, r.worldSize-1, err)
		}
	}
	return nil
}

func (r *Redis) Receive(ctx context.Context) (*models.RoundMessage, error) {
	raw, err := r.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}

	var msg models.RoundMessage
	if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round message: %w", err)
	}

	if err := r.client.LPush(ctx, r.ackKey(msg.ID), r.rank).Err(); err != nil {
		return nil, fmt.Errorf("failed to ack round message: %w", err)
	}
	return &msg, nil
}

func (r *Redis) Close() error {
	if r.pubsub != nil {
		if err := r.pubsub.Close(); err != nil {
			return err
		}
	}
	return r.client.Close()
}
