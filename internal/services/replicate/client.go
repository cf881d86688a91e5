package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"showreel/internal/imagegen"
	"showreel/internal/services"
)

const (
	defaultBaseURL      = "https://api.replicate.com/v1"
	defaultHTTPTimeout  = 120 * time.Second
	defaultPollInterval = time.Second
	defaultPollTimeout  = 5 * time.Minute
	maxErrorBody        = 512
)

const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

// Client wraps the prediction API.
type Client struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPollTimeout bounds how long a prediction may stay non-terminal.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollTimeout = d
		}
	}
}

// NewClient constructs a prediction API client.
func NewClient(token string, opts ...Option) *Client {
	client := &Client{
		token:        strings.TrimSpace(token),
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt       string `json:"prompt"`
	AspectRatio  string `json:"aspect_ratio,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	OutputFormat string `json:"output_format"`
	NumOutputs   int    `json:"num_outputs,omitempty"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p prediction) terminal() bool {
	switch p.Status {
	case statusSucceeded, statusFailed, statusCanceled:
		return true
	default:
		return false
	}
}

// outputURL returns the first output URL; the API answers with either a
// string or a list of strings depending on the model.
func (p prediction) outputURL() (string, error) {
	if len(p.Output) == 0 || string(p.Output) == "null" {
		return "", errors.New("prediction has no output")
	}
	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil && strings.TrimSpace(single) != "" {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(p.Output, &list); err == nil {
		for _, candidate := range list {
			if strings.TrimSpace(candidate) != "" {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("unrecognized prediction output: %s", truncate(string(p.Output)))
}

// Generate implements imagegen.Backend.
func (c *Client) Generate(ctx context.Context, req imagegen.GenerateRequest) ([]byte, error) {
	if c.token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "images", "replicate", "api token required", nil)
	}
	model := req.Tier.Model()
	if model == "" {
		return nil, services.Wrap(services.ErrValidation, "images", "replicate", fmt.Sprintf("unknown tier %q", req.Tier), nil)
	}

	pred, err := c.createPrediction(ctx, model, buildInput(req))
	if err != nil {
		return nil, err
	}
	if !pred.terminal() {
		pred, err = c.waitForPrediction(ctx, pred)
		if err != nil {
			return nil, err
		}
	}
	if pred.Status != statusSucceeded {
		return nil, fmt.Errorf("replicate: prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	}
	outputURL, err := pred.outputURL()
	if err != nil {
		return nil, fmt.Errorf("replicate: prediction %s: %w", pred.ID, err)
	}
	return c.fetchOutput(ctx, outputURL)
}

func buildInput(req imagegen.GenerateRequest) predictionInput {
	input := predictionInput{
		Prompt:       req.Prompt,
		OutputFormat: "png",
	}
	switch req.Tier {
	case imagegen.TierQuality:
		input.Width = req.Width
		input.Height = req.Height
	default:
		input.AspectRatio = aspectRatio(req.Width, req.Height)
		input.NumOutputs = 1
	}
	return input
}

func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "16:9"
	}
	a, b := width, height
	for b != 0 {
		a, b = b, a%b
	}
	return fmt.Sprintf("%d:%d", width/a, height/a)
}

func (c *Client) createPrediction(ctx context.Context, model string, input predictionInput) (prediction, error) {
	endpoint, err := url.JoinPath(c.baseURL, "models", model, "predictions")
	if err != nil {
		return prediction{}, fmt.Errorf("replicate: build url: %w", err)
	}
	encoded, err := json.Marshal(predictionRequest{Input: input})
	if err != nil {
		return prediction{}, fmt.Errorf("replicate: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return prediction{}, fmt.Errorf("replicate: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")
	return c.doPrediction(req, "create prediction")
}

func (c *Client) waitForPrediction(ctx context.Context, pred prediction) (prediction, error) {
	pollURL := strings.TrimSpace(pred.URLs.Get)
	if pollURL == "" {
		if pred.ID == "" {
			return pred, errors.New("replicate: pending prediction has no id")
		}
		joined, err := url.JoinPath(c.baseURL, "predictions", pred.ID)
		if err != nil {
			return pred, fmt.Errorf("replicate: build poll url: %w", err)
		}
		pollURL = joined
	}

	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return pred, ctx.Err()
		case <-ticker.C:
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return pred, fmt.Errorf("replicate: poll request: %w", err)
		}
		next, err := c.doPrediction(req, "poll prediction")
		if err != nil {
			return pred, err
		}
		pred = next
		if pred.terminal() {
			return pred, nil
		}
		if time.Now().After(deadline) {
			return pred, fmt.Errorf("replicate: prediction %s still %s after %s", pred.ID, pred.Status, c.pollTimeout)
		}
	}
}

func (c *Client) doPrediction(req *http.Request, operation string) (prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return prediction{}, fmt.Errorf("replicate: %s: %w", operation, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return prediction{}, fmt.Errorf("replicate: %s: read body: %w", operation, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return prediction{}, &services.StatusError{
			Service:    "replicate",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body)),
		}
	}
	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return prediction{}, fmt.Errorf("replicate: %s: decode response: %w", operation, err)
	}
	return pred, nil
}

func (c *Client) fetchOutput(ctx context.Context, outputURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: fetch output request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: fetch output: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &services.StatusError{
			Service:    "replicate",
			Operation:  "fetch output",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: read output: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("replicate: output is empty")
	}
	return data, nil
}

func truncate(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		return body[:maxErrorBody] + "..."
	}
	return body
}
