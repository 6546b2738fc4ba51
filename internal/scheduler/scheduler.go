package scheduler

import (
	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/models"
)

// Rounds returns the number of rounds needed to reach generationLen outputs
// at batchSize outputs per round. The last round is always a full batch, so
// a run may over-generate by up to batchSize-1 lines; output is never
// trimmed, since trimming would change the artifact's cardinality guarantee.
func Rounds(generationLen, batchSize int) int {
	return (generationLen + batchSize - 1) / batchSize
}

// Request fabricates one round's generation request: BatchSize unconditional
// prompts with a minimum length of one token each. Rounds carry no state
// besides their index; the seed is derived from the base seed and the round
// index so batches decorrelate across rounds while the whole run stays
// reproducible from a single configured seed.
func Request(cfg *config.Settings, round int) *models.GenerationRequest {
	prompts := make([]string, cfg.BatchSize)
	minTokens := make([]int, cfg.BatchSize)
	for i := range minTokens {
		minTokens[i] = 1
	}

	return &models.GenerationRequest{
		Round:       round,
		Prompts:     prompts,
		MinTokens:   minTokens,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		N:           1,
		Beam:        cfg.Beam,
		Seed:        cfg.Seed + int64(round),
	}
}
