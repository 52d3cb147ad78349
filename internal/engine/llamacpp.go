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

// LlamaServer drives a llama.cpp HTTP server's /completion endpoint. The
// server applies no chat template itself, so the prompt is formatted here
// per model family.
type LlamaServer struct {
	baseURL  string
	template string
	client   *http.Client
}

func NewLlamaServer(baseURL, template string) *LlamaServer {
	template = strings.ToLower(strings.TrimSpace(template))
	if template == "" {
		template = "chatml"
	}
	return &LlamaServer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		template: template,
		client:   &http.Client{},
	}
}

func (l *LlamaServer) Name() string { return "llamacpp" }

func (l *LlamaServer) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	payload, _ := json.Marshal(map[string]any{
		"prompt":       formatChatPrompt(l.template, req.System, req.User),
		"n_predict":    req.MaxOutputTokens,
		"temperature":  req.Temperature,
		"stop":         stopTokens(l.template),
		"cache_prompt": true,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/completion", bytes.NewReader(payload))
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("build llama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("llama completion request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg := string(body)
		if resp.StatusCode == http.StatusBadRequest && OutputIndicatesOverflow(msg) {
			return GenerateResponse{}, fmt.Errorf("%w: %s", ErrOverflow, strings.TrimSpace(msg))
		}
		return GenerateResponse{}, fmt.Errorf("llama completion error %d: %s", resp.StatusCode, msg)
	}
	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, fmt.Errorf("decode llama response: %w", err)
	}
	return GenerateResponse{Text: parsed.Content}, nil
}

func (l *LlamaServer) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, l.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func formatChatPrompt(template, system, user string) string {
	if template == "gemma" {
		return "<start_of_turn>user\n" + system + "\n\n" + user +
			"\n\nRespond with valid JSON only. No explanations.<end_of_turn>\n<start_of_turn>model\n"
	}
	// chatml covers qwen2 and friends
	return "<|im_start|>system\n" + system + "<|im_end|>\n" +
		"<|im_start|>user\n" + user + "<|im_end|>\n<|im_start|>assistant\n"
}

func stopTokens(template string) []string {
	if template == "gemma" {
		return []string{"<end_of_turn>", "<eos>"}
	}
	return []string{"<|im_end|>", "<|endoftext|>"}
}
