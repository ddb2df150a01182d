// Package classifier wraps the optional external text-classification service.
// The service is untrusted and best-effort: the parser only consumes results
// above its confidence threshold, and every transport or schema failure is
// reported as an error for the caller to swallow.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 2 * time.Second

// Result is the classifier's verdict on an utterance.
type Result struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Client classifies free-text utterances.
type Client interface {
	Classify(ctx context.Context, utterance, babyName string, now time.Time) (Result, error)
}

// Config describes how to build an HTTP client.
type Config struct {
	Endpoint   string
	HTTPClient *http.Client
}

// HTTPClient calls a JSON-over-HTTP classification endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// New builds an HTTPClient. A nil HTTPClient falls back to a short-timeout
// default; the classifier must never stall a parse for long.
func New(cfg Config) *HTTPClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPClient{endpoint: cfg.Endpoint, client: client}
}

type classifyRequest struct {
	Utterance string `json:"utterance"`
	BabyName  string `json:"baby_name"`
	Now       string `json:"now"`
}

// Classify posts the utterance and returns the parsed verdict.
func (c *HTTPClient) Classify(ctx context.Context, utterance, babyName string, now time.Time) (Result, error) {
	payload := classifyRequest{
		Utterance: utterance,
		BabyName:  babyName,
		Now:       now.Format(time.RFC3339),
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("classifier error: %s (%s)", resp.Status, string(body))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, err
	}
	if result.Action == "" {
		return Result{}, fmt.Errorf("classifier returned empty action")
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return Result{}, fmt.Errorf("classifier confidence out of range: %v", result.Confidence)
	}
	return result, nil
}

// Disabled is a Client that always declines. Used when no endpoint is
// configured so the parser takes the deterministic path unconditionally.
type Disabled struct{}

// Classify reports that no classification is available.
func (Disabled) Classify(context.Context, string, string, time.Time) (Result, error) {
	return Result{}, fmt.Errorf("classifier disabled")
}
