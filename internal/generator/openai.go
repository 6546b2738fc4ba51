package generator

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sokinpui/molgen.go/internal/config"
	"github.com/sokinpui/molgen.go/internal/models"
)

func init() {
	Register("openai", newOpenAIGenerator)
}

// OpenAIGenerator drives any OpenAI-compatible completion endpoint, e.g. a
// vLLM server hosting the molecular language model.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func newOpenAIGenerator(cfg *config.Settings) (Generator, error) {
	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBase != "" {
		clientCfg.BaseURL = cfg.OpenAIBase
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = cfg.ModelCode
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req *models.GenerationRequest) ([]models.GenerationResult, error) {
	seed := int(req.Seed)

	results := make([]models.GenerationResult, len(req.Prompts))
	for i, prompt := range req.Prompts {
		resp, err := g.client.CreateCompletion(ctx, openai.CompletionRequest{
			Model:       g.model,
			Prompt:      prompt,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
			N:           req.N,
			Seed:        &seed,
		})
		if err != nil {
			return nil, fmt.Errorf("completion failed on slot %d of round %d: %w", i, req.Round, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty completion on slot %d of round %d", i, req.Round)
		}
		results[i] = models.GenerationResult{Text: resp.Choices[0].Text}
	}
	return results, nil
}
