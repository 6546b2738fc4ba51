package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/scheduler"
)

func TestRounds(t *testing.T) {
	tests := []struct {
		name          string
		generationLen int
		batchSize     int
		want          int
	}{
		{"exact multiple", 12, 4, 3},
		{"remainder rounds up", 10, 4, 3},
		{"single item", 1, 4, 1},
		{"batch of one", 5, 1, 5},
		{"one short of a round", 7, 4, 2},
		{"target smaller than batch", 3, 3072, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scheduler.Rounds(tt.generationLen, tt.batchSize))
		})
	}
}

func TestRequestShape(t *testing.T) {
	cfg := &config.Settings{
		BatchSize:   8,
		Seed:        3,
		Temperature: 1.0,
		TopP:        0.8,
		Beam:        1,
		MaxTokens:   64,
	}

	req := scheduler.Request(cfg, 5)

	assert.Len(t, req.Prompts, cfg.BatchSize)
	assert.Len(t, req.MinTokens, cfg.BatchSize)
	for i := range req.Prompts {
		assert.Empty(t, req.Prompts[i], "prompts are unconditional by default")
		assert.Equal(t, 1, req.MinTokens[i])
	}
	assert.Equal(t, 5, req.Round)
	assert.Equal(t, float32(1.0), req.Temperature)
	assert.Equal(t, float32(0.8), req.TopP)
	assert.Equal(t, 1, req.N)
}

func TestRequestSeedVariesPerRound(t *testing.T) {
	cfg := &config.Settings{BatchSize: 2, Seed: 100}

	seen := map[int64]bool{}
	for round := 0; round < 10; round++ {
		req := scheduler.Request(cfg, round)
		assert.Equal(t, cfg.Seed+int64(round), req.Seed)
		assert.False(t, seen[req.Seed], "seed %d repeated", req.Seed)
		seen[req.Seed] = true
	}
}
