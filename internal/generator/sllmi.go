package generator

import (
	"context"
	"fmt"

	sllmi "github.com/sokinpui/sllmi-go"

	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/models"
)

func init() {
	Register("sllmi", newSllmiGenerator)
}

// SllmiGenerator runs generation against a locally registered model.
type SllmiGenerator struct {
	model sllmi.LLM
	code  string
}

func newSllmiGenerator(cfg *config.Settings) (Generator, error) {
	registry, err := sllmi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM registry: %w", err)
	}
	model, err := registry.GetModel(cfg.ModelCode)
	if err != nil {
		return nil, err
	}
	return &SllmiGenerator{model: model, code: cfg.ModelCode}, nil
}

func (g *SllmiGenerator) Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GenerationResult, error) {
	conf := &sllmi.Config{
		Temperature:  &req.Temperature,
		TopP:         &req.TopP,
		OutputLength: int32(req.MaxTokens),
	}

	results := make([]models.GenerationResult, len(req.Prompts))
	for i, prompt := range req.Prompts {
		text, err := g.model.Generate(ctx, prompt, nil, conf)
		if err != nil {
			return nil, fmt.Errorf("generation failed on slot %d of round %d: %w", i, req.Round, err)
		}
		results[i] = models.GenerationResult{Text: text}
	}
	return results, nil
}
