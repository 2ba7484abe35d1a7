package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2:3b"
)

// Ollama summarizes through a local Ollama server's /api/generate endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

func NewOllama(baseURL, model string, timeout time.Duration, logger *zap.Logger) *Ollama {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func buildPrompt(text string, l Length) string {
	return fmt.Sprintf(
		"Summarize the following text in %d to %d words. Reply with the summary only.\n\n%s",
		l.Min, l.Max, strings.TrimSpace(text),
	)
}

func (o *Ollama) Summarize(ctx context.Context, text string, l Length) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  o.model,
		Prompt: buildPrompt(text, l),
		Stream: false,
		Options: map[string]any{
			"temperature": 0,
			"num_predict": l.Max * 2,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var out ollamaResponse
		msg := ""
		if json.Unmarshal(raw, &out) == nil {
			msg = strings.TrimSpace(out.Error)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("ollama: status %d: %s", resp.StatusCode, msg)
	}
	var out ollamaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	o.logger.Debug("ollama summary",
		zap.String("model", o.model),
		zap.Int("max_words", l.Max),
		zap.Duration("took", time.Since(start)),
	)
	summary := clampWords(out.Response, l.Max)
	if summary == "" {
		return "", fmt.Errorf("ollama returned an empty summary")
	}
	return summary, nil
}
