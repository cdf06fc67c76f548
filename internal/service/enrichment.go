package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bundle-service/config"
	"bundle-service/internal/util"

	"go.uber.org/zap"
)

// Enrichment is display-only bundle metadata. It never changes a
// bundle's membership or price.
type Enrichment struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale"`
	Season    string `json:"season,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Enricher produces display metadata for a bundle. Implementations must
// be safe for concurrent use.
type Enricher interface {
	Enrich(ctx context.Context, skus []string, titles []string) (*Enrichment, error)
}

// NoopEnricher returns no metadata; the default when no endpoint is
// configured.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(ctx context.Context, skus []string, titles []string) (*Enrichment, error) {
	return &Enrichment{}, nil
}

// ChatEnricher asks a chat-completions endpoint to name and describe a
// bundle
type ChatEnricher struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	logger   *zap.Logger
}

// NewEnricher builds an enricher from config; without an endpoint it
// falls back to the no-op implementation
func NewEnricher(cfg config.EnrichmentConfig) Enricher {
	if cfg.Endpoint == "" {
		return NoopEnricher{}
	}
	return &ChatEnricher{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   util.GetLogger(),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Enrich asks the model for a JSON object with name, rationale, season
// and duration for the given bundle
func (e *ChatEnricher) Enrich(ctx context.Context, skus []string, titles []string) (*Enrichment, error) {
	prompt := fmt.Sprintf(
		"Suggest a short marketing name and one-sentence rationale for a product bundle containing: %s. "+
			"Reply with a JSON object with keys name, rationale, season, duration and nothing else.",
		strings.Join(titles, ", "))

	body, err := json.Marshal(chatRequest{
		Model:    e.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment request failed: status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode enrichment response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("enrichment response has no choices")
	}

	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")

	var enrichment Enrichment
	if err := json.Unmarshal([]byte(content), &enrichment); err != nil {
		e.logger.Warn("Enrichment response is not valid JSON",
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse enrichment content: %w", err)
	}
	return &enrichment, nil
}
