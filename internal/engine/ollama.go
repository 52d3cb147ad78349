package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama runs prompts through a local Ollama daemon. Ollama applies the
// model's own chat template, so system and user go over separately.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllama(baseURL, model string) *Ollama {
	if model == "" {
		model = "qwen2.5:3b"
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	payload, _ := json.Marshal(map[string]any{
		"model":  o.model,
		"system": req.System,
		"prompt": req.User,
		"stream": false,
		"options": map[string]any{
			"num_predict": req.MaxOutputTokens,
			"temperature": req.Temperature,
		},
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("ollama generate request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg := string(body)
		if OutputIndicatesOverflow(msg) {
			return GenerateResponse{}, fmt.Errorf("%w: %s", ErrOverflow, strings.TrimSpace(msg))
		}
		return GenerateResponse{}, fmt.Errorf("ollama generate error %d: %s", resp.StatusCode, msg)
	}
	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, fmt.Errorf("decode ollama response: %w", err)
	}
	return GenerateResponse{Text: parsed.Response}, nil
}

func (o *Ollama) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
