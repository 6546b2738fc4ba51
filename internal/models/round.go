package models

// MessageKind tags a broadcast envelope.
type MessageKind string

const (
	// KindWork carries one round's generation request.
	KindWork MessageKind = "work"
	// KindStop tells worker ranks the run is over and they may exit.
	KindStop MessageKind = "stop"
)

// GenerationRequest is one round's unit of work. It is built by the
// coordinator, published to every rank, and immutable once published.
type GenerationRequest struct {
	Round       int      `json:"round"`
	Prompts     []string `json:"prompts"`
	MinTokens   []int    `json:"min_tokens"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature"`
	TopP        float32  `json:"top_p"`
	N           int      `json:"n"`
	Beam        int      `json:"beam"`
	Seed        int64    `json:"seed"`
}

// GenerationResult is one prompt slot's raw model output.
type GenerationResult struct {
	Text string `json:"text"`
}

// RoundMessage is the envelope published over the broadcast channel.
// Every rank must observe every message exactly once; termination is
// explicit in the payload rather than implied by silence.
type RoundMessage struct {
	ID      string             `json:"id"`
	Kind    MessageKind        `json:"kind"`
	Request *GenerationRequest `json:"request,omitempty"`
}
