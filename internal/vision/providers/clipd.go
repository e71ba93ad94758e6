// Package providers contains Classifier implementations.
package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClipdProvider scores images against text prompts through a local CLIP
// inference daemon.
type ClipdProvider struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewClipdProvider creates a provider talking to the daemon at endpoint.
func NewClipdProvider(endpoint, model string) *ClipdProvider {
	return &ClipdProvider{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type clipdRequest struct {
	Model   string   `json:"model"`
	Image   string   `json:"image"` // base64-encoded bytes
	Prompts []string `json:"prompts"`
}

type clipdResponse struct {
	Scores []float64 `json:"scores"`
	Error  string    `json:"error,omitempty"`
}

// Scores implements vision.Classifier.
func (p *ClipdProvider) Scores(ctx context.Context, image []byte, prompts []string) ([]float64, error) {
	body, err := json.Marshal(clipdRequest{
		Model:   p.model,
		Image:   base64.StdEncoding.EncodeToString(image),
		Prompts: prompts,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clipd request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clipd returned status %d: %.200s", resp.StatusCode, string(raw))
	}

	var out clipdResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse clipd response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("clipd error: %s", out.Error)
	}
	if len(out.Scores) != len(prompts) {
		return nil, fmt.Errorf("clipd returned %d scores for %d prompts", len(out.Scores), len(prompts))
	}

	return out.Scores, nil
}
