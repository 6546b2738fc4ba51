package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/models"
)

// Generator produces one completion per prompt slot for a round's request.
// Every rank calls Generate exactly once per broadcast round; when the
// backend shards model state across ranks the calls must stay in lock-step,
// which the broadcast barrier guarantees. A Generate failure is fatal to
// the run and is never retried here.
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GenerationResult, error)
}

var ErrBackendUnknown = errors.New("unknown generation backend")

// Factory builds a backend from the run settings.
type Factory func(cfg *config.Settings) (Generator, error)

var backends = map[string]Factory{}

func Register(name string, f Factory) {
	backends[name] = f
}

// New constructs the backend selected by the settings. The handle is built
// once at process start and passed explicitly into the role loop.
func New(cfg *config.Settings) (Generator, error) {
	f, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnknown, cfg.Backend)
	}
	return f(cfg)
}
