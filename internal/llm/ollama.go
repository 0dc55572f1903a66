package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// OllamaConfig configures the Ollama client.
type OllamaConfig struct {
	// BaseURL is the Ollama API endpoint.
	BaseURL string

	// Model is the model name to use.
	Model string

	// RequestTimeout bounds the version and model-list probes.
	RequestTimeout time.Duration

	// InferenceTimeout bounds a single generation request.
	InferenceTimeout time.Duration

	// MaxRetries is the number of retries for transient generation failures.
	MaxRetries int

	// RetryBackoff is the initial delay between retries.
	RetryBackoff time.Duration

	// Temperature is passed through to the model. Zero uses the model default.
	Temperature float64

	// AutoPullModel automatically pulls the model if not available.
	AutoPullModel bool
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		BaseURL:          "http://localhost:11434",
		Model:            "qwen3:8b",
		RequestTimeout:   30 * time.Second,
		InferenceTimeout: 120 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     time.Second,
		Temperature:      0.4,
		AutoPullModel:    true,
	}
}

// OllamaClient talks to a local Ollama server.
type OllamaClient struct {
	config     *OllamaConfig
	httpClient *http.Client
	available  bool
	modelReady bool
	mu         sync.RWMutex
}

var _ Completer = (*OllamaClient)(nil)

// OllamaStatus represents the status of Ollama.
type OllamaStatus struct {
	Available    bool     `json:"available"`
	Version      string   `json:"version,omitempty"`
	ModelReady   bool     `json:"model_ready"`
	ModelName    string   `json:"model_name"`
	ModelsLoaded []string `json:"models_loaded,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// GenerateRequest is the request body for /api/generate.
type GenerateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	System  string           `json:"system,omitempty"`
	Stream  bool             `json:"stream"`
	Options *GenerateOptions `json:"options,omitempty"`
}

// GenerateOptions are optional parameters for generation.
type GenerateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// GenerateResponse is the response from /api/generate.
type GenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count,omitempty"`
}

// VersionResponse is the response from the version endpoint.
type VersionResponse struct {
	Version string `json:"version"`
}

// ListModelsResponse is the response from listing models.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes a locally available model.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(config *OllamaConfig) *OllamaClient {
	if config == nil {
		config = DefaultOllamaConfig()
	}

	return &OllamaClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}
}

// Name implements the provider label used in metrics.
func (c *OllamaClient) Name() string {
	return ProviderOllama
}

// CheckAvailability checks if Ollama is running and the model is present,
// pulling it when AutoPullModel is set.
func (c *OllamaClient) CheckAvailability(ctx context.Context) *OllamaStatus {
	status := &OllamaStatus{
		ModelName: c.config.Model,
	}

	version, err := c.getVersion(ctx)
	if err != nil {
		status.Error = fmt.Sprintf("Ollama not available: %v", err)
		c.setAvailability(false, false)
		return status
	}
	status.Available = true
	status.Version = version

	models, err := c.listModels(ctx)
	if err != nil {
		status.Error = fmt.Sprintf("Failed to list models: %v", err)
		c.setAvailability(true, false)
		return status
	}

	family := strings.Split(c.config.Model, ":")[0]
	status.ModelsLoaded = make([]string, 0, len(models))
	for _, m := range models {
		status.ModelsLoaded = append(status.ModelsLoaded, m.Name)
		if m.Name == c.config.Model || strings.HasPrefix(m.Name, family) {
			status.ModelReady = true
		}
	}

	if !status.ModelReady && c.config.AutoPullModel {
		if pullErr := c.PullModel(ctx); pullErr != nil {
			status.Error = fmt.Sprintf("Failed to pull model: %v", pullErr)
		} else {
			status.ModelReady = true
		}
	}
	if !status.ModelReady && status.Error == "" {
		status.Error = fmt.Sprintf("model %s is not installed", c.config.Model)
	}

	c.setAvailability(status.Available, status.ModelReady)
	return status
}

// IsAvailable reports the result of the last availability check.
func (c *OllamaClient) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available && c.modelReady
}

// Complete generates a completion. Transient failures (network errors and 5xx
// responses) are retried with exponential backoff.
func (c *OllamaClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	if !c.IsAvailable() {
		status := c.CheckAvailability(ctx)
		if !status.Available || !status.ModelReady {
			return "", fmt.Errorf("%w: %s", ErrUnavailable, status.Error)
		}
	}

	req := &GenerateRequest{
		Model:  c.config.Model,
		System: system,
		Prompt: prompt,
		Stream: false,
	}
	if c.config.Temperature > 0 {
		req.Options = &GenerateOptions{Temperature: c.config.Temperature}
	}

	b := backoff.NewExponentialBackOff()
	if c.config.RetryBackoff > 0 {
		b.InitialInterval = c.config.RetryBackoff
	}
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(c.config.MaxRetries, 0))), ctx)

	var resp *GenerateResponse
	err := backoff.Retry(func() error {
		var genErr error
		resp, genErr = c.doGenerate(ctx, req)
		return genErr
	}, policy)
	if err != nil {
		return "", err
	}

	return resp.Response, nil
}

// PullModel pulls the configured model.
func (c *OllamaClient) PullModel(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"name":   c.config.Model,
		"stream": false,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls download gigabytes; the probe timeout does not apply.
	client := &http.Client{Timeout: 30 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pull request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// doGenerate performs one /api/generate call. Errors that retrying cannot
// fix are wrapped with backoff.Permanent.
func (c *OllamaClient) doGenerate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.config.InferenceTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		statusErr := fmt.Errorf("generate failed with status %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 500 {
			return nil, statusErr
		}
		if resp.StatusCode == http.StatusNotFound {
			// The model was removed since the last availability check.
			c.setAvailability(true, false)
			return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrUnavailable, statusErr))
		}
		return nil, backoff.Permanent(statusErr)
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if strings.TrimSpace(genResp.Response) == "" {
		return nil, backoff.Permanent(errors.New("ollama returned an empty response"))
	}

	return &genResp, nil
}

func (c *OllamaClient) getVersion(ctx context.Context) (string, error) {
	var version VersionResponse
	if err := c.getJSON(ctx, "/api/version", &version); err != nil {
		return "", err
	}
	return version.Version, nil
}

func (c *OllamaClient) listModels(ctx context.Context) ([]ModelInfo, error) {
	var models ListModelsResponse
	if err := c.getJSON(ctx, "/api/tags", &models); err != nil {
		return nil, err
	}
	return models.Models, nil
}

func (c *OllamaClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed with status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *OllamaClient) setAvailability(available, modelReady bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = available
	c.modelReady = modelReady
}
