package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/molgen.go/internal/broadcast"
	"github.com/sokinpui/molgen.go/internal/models"
)

func TestMemoryFanOutSkipsPublisher(t *testing.T) {
	group := broadcast.NewMemory()
	pub := group.Join()
	sub1 := group.Join()
	sub2 := group.Join()

	ctx := context.Background()
	msg := &models.RoundMessage{
		ID:   uuid.NewString(),
		Kind: models.KindWork,
		Request: &models.GenerationRequest{
			Round:   0,
			Prompts: []string{""},
		},
	}
	require.NoError(t, pub.Publish(ctx, msg))

	for _, sub := range []broadcast.Broadcaster{sub1, sub2} {
		got, err := sub.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, models.KindWork, got.Kind)
	}

	// the publisher must not receive its own message
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := pub.Receive(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryPreservesMessageOrder(t *testing.T) {
	group := broadcast.NewMemory()
	pub := group.Join()
	sub := group.Join()

	ctx := context.Background()
	for round := 0; round < 5; round++ {
		msg := &models.RoundMessage{
			ID:      uuid.NewString(),
			Kind:    models.KindWork,
			Request: &models.GenerationRequest{Round: round},
		}
		require.NoError(t, pub.Publish(ctx, msg))
	}

	for round := 0; round < 5; round++ {
		got, err := sub.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, round, got.Request.Round)
	}
}

func TestMemoryReceiveHonorsContextCancel(t *testing.T) {
	group := broadcast.NewMemory()
	sub := group.Join()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := sub.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
