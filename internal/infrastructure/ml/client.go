package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/ports"
)

// Client talks to an external inference service exposing sentiment,
// zero-shot topic classification, and summarization endpoints. Requests carry
// an explicit timeout so a stuck model call surfaces as a skipped record
// instead of blocking the batch.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var (
	_ ports.SentimentClassifier = (*Client)(nil)
	_ ports.TopicClassifier     = (*Client)(nil)
	_ ports.Summarizer          = (*Client)(nil)
)

// NewClient creates a reusable HTTP client; timeout defaults to 30s.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Ping verifies the inference service is reachable before a batch starts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", domain.ErrClassifierUnavailable, resp.Status)
	}
	return nil
}

// Classify sends one sentence for binary sentiment scoring.
func (c *Client) Classify(ctx context.Context, text string) (domain.Sentiment, float64, error) {
	payload := map[string]any{"text": text}

	var resp struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}

	if err := c.post(ctx, "/sentiment", payload, &resp); err != nil {
		return domain.SentimentUnset, 0, err
	}

	switch strings.ToLower(resp.Label) {
	case "positive":
		return domain.SentimentPositive, resp.Score, nil
	case "negative":
		return domain.SentimentNegative, resp.Score, nil
	default:
		return domain.SentimentUnset, 0, fmt.Errorf("unexpected sentiment label %q", resp.Label)
	}
}

// ClassifyTopics scores text against the label set, multi-label.
func (c *Client) ClassifyTopics(ctx context.Context, text string, labels []string) ([]domain.TopicScore, error) {
	payload := map[string]any{
		"text":        text,
		"labels":      labels,
		"multi_label": true,
	}

	var resp struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}

	if err := c.post(ctx, "/zero-shot", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("mismatched zero-shot response: %d labels, %d scores", len(resp.Labels), len(resp.Scores))
	}

	scores := make([]domain.TopicScore, 0, len(resp.Labels))
	for i, label := range resp.Labels {
		scores = append(scores, domain.TopicScore{Label: label, Confidence: resp.Scores[i]})
	}
	return scores, nil
}

// Summarize condenses text into a short abstract.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	payload := map[string]any{"text": text}

	var resp struct {
		Summary string `json:"summary"`
	}

	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
