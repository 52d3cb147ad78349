package engine

import (
	"context"
	"strings"
)

// Mock returns deterministic, minimally valid JSON per operation so the
// pipeline can be exercised end to end without a model.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Available(ctx context.Context) bool {
	_ = ctx
	return true
}

func (m *Mock) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	_ = ctx
	op := strings.ToLower(req.Operation)
	switch {
	case strings.Contains(op, "character"):
		return GenerateResponse{Text: `{"characters": []}`}, nil
	case strings.Contains(op, "dialog"):
		return GenerateResponse{Text: `{"dialogs": []}`}, nil
	case strings.Contains(op, "trait"):
		return GenerateResponse{Text: `{"traits": []}`}, nil
	case strings.Contains(op, "personality"):
		return GenerateResponse{Text: `{"personality": ["limited information"]}`}, nil
	case strings.Contains(op, "voice"):
		return GenerateResponse{Text: `{"voice_profile": {"pitch": 1.0, "speed": 1.0, "energy": 1.0, "gender": "neutral", "age": "adult", "tone": "plain", "accent": "neutral"}}`}, nil
	case strings.Contains(op, "summary"):
		return GenerateResponse{Text: `{"summary": "Mock chapter summary.", "themes": ["mock"]}`}, nil
	default:
		return GenerateResponse{Text: "{}"}, nil
	}
}
