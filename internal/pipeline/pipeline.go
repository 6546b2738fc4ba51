// Package pipeline converts one round's raw generations into the lines the
// output sink persists. Item failures are isolated to their slot; only a
// failure of the evaluation stage itself can cost a whole round, and that
// is retried once and counted before the round is given up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/molgen.go/internal/chem"
	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/metrics"
	"github.com/sokinpui/molgen.go/internal/models"
)

// Sentinel replaces an item that failed decode or canonicalization,
// preserving positional alignment within the round.
const Sentinel = "<invalid>"

type Mode string

const (
	// ModePassthrough persists raw model text verbatim.
	ModePassthrough Mode = "passthrough"
	// ModeCanonicalize decodes SELFIES and emits canonical SMILES.
	ModeCanonicalize Mode = "canonicalize"
)

// ModeFor maps the configured molecular representation to a pipeline mode:
// SMILES output is already in the target encoding and passes through,
// SELFIES output is decoded and canonicalized.
func ModeFor(molRepr string) Mode {
	if molRepr == config.ReprSMILES {
		return ModePassthrough
	}
	return ModeCanonicalize
}

// Evaluator turns one raw generation into a canonical line. Returning
// chem.ErrDecode or chem.ErrInvalidStructure marks the item invalid;
// any other error is an evaluation-stage failure.
type Evaluator interface {
	Canonicalize(raw string) (string, error)
}

type chemEvaluator struct{}

func (chemEvaluator) Canonicalize(raw string) (string, error) {
	mol, err := chem.Decode(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return mol.Canonical()
}

type Pipeline struct {
	mode    Mode
	workers int
	eval    Evaluator
	log     *zap.Logger
}

func New(mode Mode, workers int, log *zap.Logger) *Pipeline {
	return NewWithEvaluator(mode, workers, chemEvaluator{}, log)
}

// NewWithEvaluator swaps the chemistry for a custom evaluator.
func NewWithEvaluator(mode Mode, workers int, eval Evaluator, log *zap.Logger) *Pipeline {
	return &Pipeline{mode: mode, workers: workers, eval: eval, log: log}
}

// Process returns one output line per result, in result order. A non-nil
// error means the evaluation stage failed even after a retry and the
// round's output should be skipped; item-level failures never surface here.
func (p *Pipeline) Process(ctx context.Context, results []models.GenerationResult) ([]string, error) {
	if p.mode == ModePassthrough {
		lines := make([]string, len(results))
		for i, r := range results {
			lines[i] = r.Text
		}
		return lines, nil
	}

	var lines []string
	operation := func() error {
		out, err := p.evaluate(ctx, results)
		if err != nil {
			return err
		}
		lines = out
		return nil
	}
	notify := func(err error, d time.Duration) {
		metrics.RoundRetries.Inc()
		p.log.Warn("evaluation stage failed, retrying",
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return nil, fmt.Errorf("evaluation stage failed: %w", err)
	}
	return lines, nil
}

// evaluate fans the round out over the evaluator pool. Results land by
// index, so evaluator completion order never affects output order.
func (p *Pipeline) evaluate(ctx context.Context, results []models.GenerationResult) ([]string, error) {
	lines := make([]string, len(results))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, r := range results {
		g.Go(func() error {
			line, err := p.eval.Canonicalize(r.Text)
			if err != nil {
				if errors.Is(err, chem.ErrDecode) || errors.Is(err, chem.ErrInvalidStructure) {
					metrics.InvalidMolecules.Inc()
					lines[i] = Sentinel
					return nil
				}
				return err
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}
