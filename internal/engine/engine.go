package engine

import "context"

// GenerateRequest is one inference call. Operation is a short task label used
// for logging and by the mock engine; it never reaches a real model.
type GenerateRequest struct {
	Operation       string  `json:"operation"`
	System          string  `json:"system"`
	User            string  `json:"user"`
	MaxOutputTokens int     `json:"max_output_tokens"`
	Temperature     float64 `json:"temperature"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

// Engine is the opaque local inference capability: given system+user prompt
// and a token ceiling, return text. Implementations are not safe for
// concurrent calls; wrap them in a Gate.
type Engine interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Available(ctx context.Context) bool
	Name() string
}
