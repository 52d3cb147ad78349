package engine

import (
	"fmt"

	"bookvoice/internal/config"
)

// Build constructs the configured engine implementation. Callers wrap the
// result in a Gate before handing it to the pipeline.
func Build(cfg config.Config) (Engine, error) {
	switch cfg.Engine {
	case "mock", "":
		return NewMock(), nil
	case "llamacpp":
		return NewLlamaServer(cfg.LlamaBaseURL, cfg.LlamaTemplate), nil
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", cfg.Engine)
	}
}
