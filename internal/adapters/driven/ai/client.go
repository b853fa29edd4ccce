package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.TextProcessor = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout       = 120 * time.Second
	DefaultMaxWait       = 24 * time.Hour
	DefaultPollInterval  = 30 * time.Second
	DefaultContextTokens = 65536
	DefaultMaxTokens     = 1024
)

// BatchConfig controls provider batch job handling.
type BatchConfig struct {
	// Disabled forces sequential single calls even when the provider has
	// a native batch API.
	Disabled bool

	// TmpDir holds batch input/output JSONL files during a job.
	// Defaults to a per-process directory under os.TempDir().
	TmpDir string

	// MaxWait is the wall-clock ceiling for one batch job.
	MaxWait time.Duration

	// PollInterval is the fixed sleep between status checks.
	// The maximum number of polls is MaxWait / PollInterval.
	PollInterval time.Duration

	// FallbackOnError enables per-item recovery through single calls
	// when the batch path fails partially or entirely.
	FallbackOnError bool
}

// Config holds configuration for a request client serving one pipeline role.
type Config struct {
	// Settings selects the provider family, model and credentials.
	Settings domain.LLMSettings

	// UserTemplate is the user-message template with exactly one %s verb
	// for the article content. Empty means the content is sent as-is.
	UserTemplate string

	// ThrottlePerSecond limits sequential single-call throughput.
	// Zero disables throttling.
	ThrottlePerSecond float64

	// Timeout is the per-request HTTP timeout (default: 120s).
	Timeout time.Duration

	// Batch controls batch job handling.
	Batch BatchConfig
}

// Client executes LLM requests for one pipeline role against a single
// provider family chosen at construction. It supports synchronous single
// calls and, for providers with a native batch API, asynchronous batch jobs
// with ordered result reconstruction and per-item fallback.
type Client struct {
	client    *http.Client
	dialect   dialect
	settings  domain.LLMSettings
	template  string
	limiter   *rate.Limiter
	batch     BatchConfig
	available int
}

// batchJob tracks one provider-side batch over its lifetime.
type batchJob struct {
	id           string
	status       driven.BatchStatus
	outputFileID string
}

// fileUploadResponse is the /files upload response.
type fileUploadResponse struct {
	ID string `json:"id"`
}

// batchResponse is the /batches create and status response.
type batchResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OutputFileID string `json:"output_file_id"`
}

// batchOutputLine is one line of the downloaded batch output file.
type batchOutputLine struct {
	CustomID string          `json:"custom_id"`
	Error    json.RawMessage `json:"error,omitempty"`
	Response *struct {
		StatusCode int             `json:"status_code"`
		Body       json.RawMessage `json:"body"`
	} `json:"response,omitempty"`
}

// NewClient creates a request client for the configured provider family.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q", domain.ErrLLMUnavailable, cfg.Settings.Provider)
	}
	if cfg.UserTemplate != "" && strings.Count(cfg.UserTemplate, "%s") != 1 {
		return nil, fmt.Errorf("%w: user template must contain exactly one %%s", domain.ErrInvalidInput)
	}

	d, err := newDialect(cfg.Settings.Provider)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Batch.MaxWait == 0 {
		cfg.Batch.MaxWait = DefaultMaxWait
	}
	if cfg.Batch.PollInterval == 0 {
		cfg.Batch.PollInterval = DefaultPollInterval
	}
	if cfg.Batch.TmpDir == "" {
		cfg.Batch.TmpDir = filepath.Join(os.TempDir(), "lectern-batch")
	}

	var limiter *rate.Limiter
	if cfg.ThrottlePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ThrottlePerSecond), 1)
	}

	contextTokens := cfg.Settings.ContextTokens
	if contextTokens == 0 {
		contextTokens = DefaultContextTokens
	}
	completionTokens := cfg.Settings.MaxTokens
	if completionTokens == 0 {
		completionTokens = DefaultMaxTokens
	}
	promptTokens := EstimateTokens(cfg.Settings.SystemPrompt) + EstimateTokens(cfg.UserTemplate)

	return &Client{
		client:    &http.Client{Timeout: cfg.Timeout},
		dialect:   d,
		settings:  cfg.Settings,
		template:  cfg.UserTemplate,
		limiter:   limiter,
		batch:     cfg.Batch,
		available: availableContext(contextTokens, promptTokens, completionTokens),
	}, nil
}

// AvailableContext returns the token budget left for article content after
// prompt scaffolding and completion reservations.
func (c *Client) AvailableContext() int {
	return c.available
}

// ModelName returns the name of the model being used.
func (c *Client) ModelName() string {
	return c.settings.Model
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// buildPrompt truncates content to the available context budget and renders
// the user-message template.
func (c *Client) buildPrompt(content string) string {
	content = TruncateTokens(content, c.available)
	if c.template == "" {
		return content
	}
	return fmt.Sprintf(c.template, content)
}

// ProcessSingle issues one synchronous request and returns the extracted
// response text.
func (c *Client) ProcessSingle(ctx context.Context, content string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("throttle wait: %w", err)
		}
	}

	payload := c.dialect.buildPayload(c.settings, c.buildPrompt(content))
	body, err := c.postJSON(ctx, c.dialect.endpointURL(c.settings.BaseURL), payload)
	if err != nil {
		return "", err
	}
	return c.dialect.parseResponse(body)
}

// ProcessBatch processes many contents through the provider's batch API,
// returning one Result per input in input order. Providers without batch
// support degrade to sequential single calls when fallback is enabled.
func (c *Client) ProcessBatch(ctx context.Context, contents []string) ([]driven.Result, error) {
	if len(contents) == 0 {
		return nil, nil
	}

	if c.batch.Disabled {
		return c.processSequential(ctx, contents), nil
	}

	if !c.dialect.supportsBatch() {
		if !c.batch.FallbackOnError {
			return nil, fmt.Errorf("%w: %s", domain.ErrBatchUnsupported, c.settings.Provider)
		}
		logger.Debug("Provider %s has no batch API, processing %d items sequentially",
			c.settings.Provider, len(contents))
		return c.processSequential(ctx, contents), nil
	}

	results, err := c.runBatchJob(ctx, contents)
	if err != nil {
		if !c.batch.FallbackOnError {
			return nil, err
		}
		logger.Warn("Batch processing failed (%v), falling back to sequential processing", err)
		return c.processSequential(ctx, contents), nil
	}

	return c.retryAbsent(ctx, contents, results), nil
}

// processSequential processes every item through ProcessSingle. Per-item
// failures become absent results.
func (c *Client) processSequential(ctx context.Context, contents []string) []driven.Result {
	results := make([]driven.Result, len(contents))
	for i, content := range contents {
		text, err := c.ProcessSingle(ctx, content)
		if err != nil {
			logger.Warn("Single processing failed for item %d: %v", i, err)
			continue
		}
		results[i] = driven.Result{Text: text, OK: true}
	}
	return results
}

// retryAbsent re-attempts every absent slot through ProcessSingle when
// fallback is enabled.
func (c *Client) retryAbsent(ctx context.Context, contents []string, results []driven.Result) []driven.Result {
	if !c.batch.FallbackOnError {
		return results
	}

	retried := 0
	for i := range results {
		if results[i].OK {
			continue
		}
		text, err := c.ProcessSingle(ctx, contents[i])
		if err != nil {
			logger.Warn("Individual retry failed for item %d: %v", i, err)
			continue
		}
		results[i] = driven.Result{Text: text, OK: true}
		retried++
	}
	if retried > 0 {
		logger.Info("Recovered %d batch items via individual processing", retried)
	}
	return results
}

// runBatchJob drives one batch job end to end: job file, upload, create,
// poll, download. A non-completed terminal status is an error for the
// caller to convert into fallback.
func (c *Client) runBatchJob(ctx context.Context, contents []string) ([]driven.Result, error) {
	job := &batchJob{status: driven.BatchCreated}

	jobFile, err := c.writeJobFile(contents)
	if err != nil {
		return nil, err
	}
	defer os.Remove(jobFile)

	fileID, err := c.uploadJobFile(ctx, jobFile)
	if err != nil {
		return nil, fmt.Errorf("upload batch file: %w", err)
	}

	if err := c.createJob(ctx, job, fileID); err != nil {
		return nil, fmt.Errorf("create batch job: %w", err)
	}
	logger.Info("Submitted batch job %s with %d items", job.id, len(contents))

	if err := c.pollJob(ctx, job); err != nil {
		return nil, err
	}

	switch job.status {
	case driven.BatchCompleted:
		// Proceed to download.
	case driven.BatchTimedOut:
		return nil, fmt.Errorf("%w: job %s exceeded %s", domain.ErrBatchTimeout, job.id, c.batch.MaxWait)
	default:
		return nil, fmt.Errorf("%w: job %s ended with status %s", domain.ErrBatchFailed, job.id, job.status)
	}

	return c.downloadResults(ctx, job, len(contents))
}

// writeJobFile serialises every item's request body into a newline-delimited
// job description. Each line carries the synthetic correlation id
// request_<index> used to reassemble results in input order.
func (c *Client) writeJobFile(contents []string) (string, error) {
	if err := os.MkdirAll(c.batch.TmpDir, 0700); err != nil {
		return "", fmt.Errorf("creating batch tmp dir: %w", err)
	}

	path := filepath.Join(c.batch.TmpDir, fmt.Sprintf("batch_input_%s.jsonl", uuid.New().String()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating batch job file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i, content := range contents {
		line := map[string]any{
			"custom_id": fmt.Sprintf("request_%d", i),
			"method":    http.MethodPost,
			"url":       c.dialect.batchEndpointPath(),
			"body":      c.dialect.buildPayload(c.settings, c.buildPrompt(content)),
		}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("encoding batch line %d: %w", i, err)
		}
	}
	return path, nil
}

// uploadJobFile uploads the JSONL job description with purpose=batch.
func (c *Client) uploadJobFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "batch"); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := strings.TrimRight(c.settings.BaseURL, "/") + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	}

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var upload fileUploadResponse
	if err := json.Unmarshal(body, &upload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if upload.ID == "" {
		return "", fmt.Errorf("%w: upload response missing file id", domain.ErrMalformedResponse)
	}
	return upload.ID, nil
}

// createJob submits the created job to the provider for an uploaded file,
// advancing it from created to submitted.
func (c *Client) createJob(ctx context.Context, job *batchJob, fileID string) error {
	payload := map[string]any{
		"input_file_id":     fileID,
		"endpoint":          c.dialect.batchEndpointPath(),
		"completion_window": "24h",
	}
	body, err := c.postJSON(ctx, strings.TrimRight(c.settings.BaseURL, "/")+"/batches", payload)
	if err != nil {
		return err
	}

	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode batch create response: %w", err)
	}
	if resp.ID == "" {
		return fmt.Errorf("%w: batch create response missing id", domain.ErrMalformedResponse)
	}
	job.id = resp.ID
	job.status = driven.BatchSubmitted
	return nil
}

// pollJob polls the job at the configured interval until it reaches a
// terminal status or the poll budget is exhausted, which marks the job
// timed out.
func (c *Client) pollJob(ctx context.Context, job *batchJob) error {
	url := strings.TrimRight(c.settings.BaseURL, "/") + "/batches/" + job.id
	maxPolls := int(c.batch.MaxWait / c.batch.PollInterval)

	job.status = driven.BatchPolling
	for poll := 0; poll < maxPolls; poll++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}
		if c.settings.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
		}

		body, err := c.do(req)
		if err != nil {
			return fmt.Errorf("poll batch job %s: %w", job.id, err)
		}

		var resp batchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode batch status: %w", err)
		}

		status := driven.BatchStatus(resp.Status)
		if status.IsTerminal() {
			job.status = status
			job.outputFileID = resp.OutputFileID
			return nil
		}
		logger.Debug("Batch job %s status %s, polling again in %s", job.id, resp.Status, c.batch.PollInterval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.batch.PollInterval):
		}
	}

	job.status = driven.BatchTimedOut
	return nil
}

// downloadResults downloads the output file and reassembles results into
// input order using the request_<index> correlation ids. Missing or
// malformed entries leave their slot absent without shifting others.
func (c *Client) downloadResults(ctx context.Context, job *batchJob, n int) ([]driven.Result, error) {
	if job.outputFileID == "" {
		return nil, fmt.Errorf("%w: job %s has no output file", domain.ErrBatchFailed, job.id)
	}

	url := strings.TrimRight(c.settings.BaseURL, "/") + "/files/" + job.outputFileID + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	if c.settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("download batch results: %w", err)
	}

	results := make([]driven.Result, n)
	for _, raw := range strings.Split(string(body), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		var line batchOutputLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			logger.Warn("Failed to parse batch result line: %v", err)
			continue
		}

		var idx int
		if _, err := fmt.Sscanf(line.CustomID, "request_%d", &idx); err != nil {
			logger.Warn("Unrecognised batch custom id %q", line.CustomID)
			continue
		}
		if idx < 0 || idx >= n {
			logger.Warn("Batch custom id %q out of range", line.CustomID)
			continue
		}

		if len(line.Error) > 0 && string(line.Error) != "null" {
			logger.Warn("Batch item %s returned an error: %s", line.CustomID, line.Error)
			continue
		}
		if line.Response == nil {
			continue
		}

		text, err := c.dialect.parseResponse(line.Response.Body)
		if err != nil {
			logger.Warn("Batch item %s response unparseable: %v", line.CustomID, err)
			continue
		}
		results[idx] = driven.Result{Text: text, OK: true}
	}
	return results, nil
}

// postJSON POSTs a JSON payload with dialect headers and returns the raw
// response body.
func (c *Client) postJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.dialect.setHeaders(c.settings, req.Header)

	return c.do(req)
}

// do executes a request and returns the body, converting non-2xx statuses
// into errors carrying the body text.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s error (status %d): %s", c.settings.Provider, resp.StatusCode, string(body))
	}
	return body, nil
}
