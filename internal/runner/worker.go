package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sokinpui/molgen.go/internal/broadcast"
	"github.com/sokinpui/molgen.go/internal/generator"
	"github.com/sokinpui/molgen.go/internal/models"
)

// Worker mirrors the coordinator's generation calls on a non-zero rank.
// Its output is discarded; the call itself is what keeps sharded model
// state consistent across the group. It never touches the output artifact.
type Worker struct {
	rank int
	gen  generator.Generator
	bc   broadcast.Broadcaster
	log  *zap.Logger
}

func NewWorker(rank int, gen generator.Generator, bc broadcast.Broadcaster, log *zap.Logger) *Worker {
	return &Worker{rank: rank, gen: gen, bc: bc, log: log}
}

// Run blocks on the broadcast channel and executes one generation call per
// received round until the coordinator publishes the stop message.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker waiting for rounds", zap.Int("rank", w.rank))
	for {
		msg, err := w.bc.Receive(ctx)
		if err != nil {
			return fmt.Errorf("broadcast receive failed: %w", err)
		}
		if msg.Kind == models.KindStop {
			w.log.Info("stop received, worker exiting", zap.Int("rank", w.rank))
			return nil
		}
		if _, err := w.gen.Generate(ctx, msg.Request); err != nil {
			return fmt.Errorf("generation of round %d failed: %w", msg.Request.Round, err)
		}
		w.log.Debug("round mirrored", zap.Int("rank", w.rank), zap.Int("round", msg.Request.Round))
	}
}
