package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/molgen.go/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Rank)
	assert.Equal(t, 1, cfg.WorldSize)
	assert.Equal(t, 3072, cfg.BatchSize)
	assert.Equal(t, 1000000, cfg.GenerationLen)
	assert.Equal(t, int64(3), cfg.Seed)
	assert.Equal(t, float32(1.0), cfg.Temperature)
	assert.Equal(t, float32(0.8), cfg.TopP)
	assert.Equal(t, 64, cfg.MaxTokens)
	assert.Equal(t, config.ReprSELFIES, cfg.MolRepr)
	assert.Equal(t, 6, cfg.EvalWorkers)
	assert.True(t, cfg.IsCoordinator())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MOLGEN_RANK", "2")
	t.Setenv("MOLGEN_WORLD_SIZE", "4")
	t.Setenv("MOLGEN_BATCH_SIZE", "16")
	t.Setenv("MOLGEN_MOL_REPR", "smiles")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Rank)
	assert.Equal(t, 4, cfg.WorldSize)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, config.ReprSMILES, cfg.MolRepr)
	assert.False(t, cfg.IsCoordinator())
}

func TestValidate(t *testing.T) {
	valid := func() *config.Settings {
		return &config.Settings{
			WorldSize:     1,
			BatchSize:     4,
			GenerationLen: 10,
			MolRepr:       config.ReprSELFIES,
			EvalWorkers:   2,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Settings)
	}{
		{"zero batch size", func(s *config.Settings) { s.BatchSize = 0 }},
		{"negative generation length", func(s *config.Settings) { s.GenerationLen = -1 }},
		{"unknown representation", func(s *config.Settings) { s.MolRepr = "inchi" }},
		{"zero eval workers", func(s *config.Settings) { s.EvalWorkers = 0 }},
		{"rank outside world", func(s *config.Settings) { s.Rank = 1 }},
		{"negative rank", func(s *config.Settings) { s.Rank = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
