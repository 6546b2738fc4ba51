// Package runner holds the two role loops of the distributed run. Rank 0
// coordinates: it fabricates each round's request, publishes it to the
// group, generates locally and persists the post-processed output. Every
// other rank only mirrors the generation calls to keep sharded model state
// in lock-step.
package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sokinpui/molgen.go/internal/broadcast"
	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/generator"
	"github.com/sokinpui/molgen.go/internal/metrics"
	"github.com/sokinpui/molgen.go/internal/models"
	"github.com/sokinpui/molgen.go/internal/pipeline"
	"github.com/sokinpui/molgen.go/internal/scheduler"
	"github.com/sokinpui/molgen.go/internal/sink"
)

// Coordinator drives the round loop. There is no round timeout: a stalled
// generation call on any rank stalls the whole group at the next barrier.
type Coordinator struct {
	cfg  *config.Settings
	gen  generator.Generator
	bc   broadcast.Broadcaster
	pipe *pipeline.Pipeline
	out  *sink.Sink
	log  *zap.Logger
}

func NewCoordinator(cfg *config.Settings, gen generator.Generator, bc broadcast.Broadcaster, pipe *pipeline.Pipeline, out *sink.Sink, log *zap.Logger) *Coordinator {
	return &Coordinator{cfg: cfg, gen: gen, bc: bc, pipe: pipe, out: out, log: log}
}

// Run executes every scheduled round in sequence, then broadcasts the stop
// message so worker ranks exit. Generation and sink errors are fatal;
// an evaluation-stage failure only drops that round's output.
func (c *Coordinator) Run(ctx context.Context) error {
	rounds := scheduler.Rounds(c.cfg.GenerationLen, c.cfg.BatchSize)
	c.log.Info("starting generation run",
		zap.Int("rounds", rounds),
		zap.Int("batch_size", c.cfg.BatchSize),
		zap.Int("generation_len", c.cfg.GenerationLen),
		zap.String("mol_repr", c.cfg.MolRepr),
		zap.String("output", c.out.Path()))

	for round := 0; round < rounds; round++ {
		req := scheduler.Request(c.cfg, round)
		msg := &models.RoundMessage{
			ID:      uuid.New().String(),
			Kind:    models.KindWork,
			Request: req,
		}
		if err := c.bc.Publish(ctx, msg); err != nil {
			return fmt.Errorf("broadcast of round %d failed: %w", round, err)
		}

		results, err := c.gen.Generate(ctx, req)
		if err != nil {
			return fmt.Errorf("generation of round %d failed: %w", round, err)
		}

		lines, err := c.pipe.Process(ctx, results)
		if err != nil {
			// recoverable: the round's output is lost, the run continues
			metrics.RoundsDropped.Inc()
			c.log.Warn("dropping round output", zap.Int("round", round), zap.Error(err))
			continue
		}

		if err := c.out.Append(lines); err != nil {
			return fmt.Errorf("append of round %d failed: %w", round, err)
		}
		metrics.RoundsCompleted.Inc()
		metrics.MoleculesWritten.Add(float64(len(lines)))
		c.log.Info("round complete", zap.Int("round", round), zap.Int("rounds", rounds))
	}

	stop := &models.RoundMessage{ID: uuid.New().String(), Kind: models.KindStop}
	if err := c.bc.Publish(ctx, stop); err != nil {
		return fmt.Errorf("broadcast of stop message failed: %w", err)
	}
	c.log.Info("generation run finished", zap.String("output", c.out.Path()))
	return nil
}
