package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds HTTP transport configuration.
type Config struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	Environment   string
	SessionID     string
	SDKVersion    string
	Timeout       time.Duration
	MaxRetries    int
	CustomHeaders map[string]string
	Logger        zerolog.Logger
}

// HTTPTransport implements Transport against the FeatureFlagsHQ API with
// retries and HMAC request signing.
type HTTPTransport struct {
	baseURL       string
	clientID      string
	clientSecret  string
	environment   string
	sessionID     string
	sdkVersion    string
	customHeaders map[string]string
	httpClient    *http.Client
	maxRetries    int
	logger        zerolog.Logger
}

// Headers the transport owns; custom headers must not shadow them.
var reservedHeaders = map[string]struct{}{
	"content-type":   {},
	"user-agent":     {},
	"x-client-id":    {},
	"x-timestamp":    {},
	"x-signature":    {},
	"x-session-id":   {},
	"x-sdk-provider": {},
	"x-sdk-version":  {},
	"x-environment":  {},
}

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(config Config) *HTTPTransport {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	custom := make(map[string]string, len(config.CustomHeaders))
	for name, value := range config.CustomHeaders {
		if _, reserved := reservedHeaders[strings.ToLower(name)]; reserved {
			continue
		}
		custom[name] = value
	}

	return &HTTPTransport{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		clientID:      config.ClientID,
		clientSecret:  config.ClientSecret,
		environment:   config.Environment,
		sessionID:     config.SessionID,
		sdkVersion:    config.SDKVersion,
		customHeaders: custom,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		maxRetries: config.MaxRetries,
		logger:     config.Logger.With().Str("component", "transport").Logger(),
	}
}

// FetchFlags downloads the full flag collection.
func (t *HTTPTransport) FetchFlags(ctx context.Context) (*FlagsResponse, error) {
	url := fmt.Sprintf("%s/v1/flags/", t.baseURL)

	var resp FlagsResponse
	if err := t.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch flags: %w", err)
	}

	return &resp, nil
}

// UploadLogs sends a batch of access logs.
func (t *HTTPTransport) UploadLogs(ctx context.Context, batch LogBatch) error {
	url := fmt.Sprintf("%s/v1/logs/batch/", t.baseURL)

	if err := t.doRequest(ctx, http.MethodPost, url, batch, nil); err != nil {
		return fmt.Errorf("failed to upload logs: %w", err)
	}

	return nil
}

// doRequest performs an HTTP request with retries
func (t *HTTPTransport) doRequest(ctx context.Context, method, url string, body interface{}, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			t.logger.Debug().Int("attempt", attempt).Str("url", url).Msg("retrying request")
		}

		err := t.doSingleRequest(ctx, method, url, body, result)
		if err == nil {
			return nil
		}

		lastErr = err

		if !t.shouldRetry(err) {
			return lastErr
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doSingleRequest performs a single signed HTTP request
func (t *HTTPTransport) doSingleRequest(ctx context.Context, method, url string, body interface{}, result interface{}) error {
	var payload []byte
	var bodyReader io.Reader
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	t.setHeaders(req, payload)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func (t *HTTPTransport) setHeaders(req *http.Request, payload []byte) {
	for name, value := range t.customHeaders {
		req.Header.Set(name, value)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "featureflagshq-go/"+t.sdkVersion)
	req.Header.Set("X-SDK-Provider", "featureflagshq")
	req.Header.Set("X-SDK-Version", t.sdkVersion)
	req.Header.Set("X-Session-ID", t.sessionID)
	req.Header.Set("X-Client-ID", t.clientID)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", Sign(t.clientSecret, t.clientID, timestamp, payload))
	if t.environment != "" {
		req.Header.Set("X-Environment", t.environment)
	}
}

// shouldRetry determines if a request should be retried
func (t *HTTPTransport) shouldRetry(err error) bool {
	if httpErr, ok := err.(*HTTPError); ok {
		// Retry on 5xx and 429 (rate limit)
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	// Retry on network errors
	return true
}

// HTTPError represents an HTTP error response
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
