package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, serverURL string) *HTTPTransport {
	t.Helper()
	return NewHTTPTransport(Config{
		BaseURL:      serverURL,
		ClientID:     "client-1",
		ClientSecret: "s3cret",
		Environment:  "production",
		SessionID:    "session-abc",
		SDKVersion:   "1.0.0",
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		Logger:       zerolog.Nop(),
	})
}

func TestFetchFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/flags/", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"name": "checkout", "type": "bool", "value": "true", "is_active": true, "version": 3},
				{"name": "limit", "type": "int", "value": "25", "is_active": true, "version": 1,
				 "rollout": {"percentage": 40, "sticky": true}}
			],
			"environment": "production"
		}`))
	}))
	defer server.Close()

	resp, err := newTestTransport(t, server.URL).FetchFlags(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "production", resp.Environment)
	assert.Equal(t, "checkout", resp.Data[0].Name)
	require.NotNil(t, resp.Data[1].Rollout)
	assert.Equal(t, 40, resp.Data[1].Rollout.Percentage)
}

func TestRequestSigning(t *testing.T) {
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	_, err := newTestTransport(t, server.URL).FetchFlags(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "client-1", captured.Get("X-Client-ID"))
	assert.Equal(t, "session-abc", captured.Get("X-Session-ID"))
	assert.Equal(t, "featureflagshq", captured.Get("X-SDK-Provider"))
	assert.Equal(t, "1.0.0", captured.Get("X-SDK-Version"))
	assert.Equal(t, "production", captured.Get("X-Environment"))
	assert.Equal(t, "featureflagshq-go/1.0.0", captured.Get("User-Agent"))

	// GET requests sign an empty payload
	ts := captured.Get("X-Timestamp")
	require.NotEmpty(t, ts)
	assert.True(t, VerifySignature("s3cret", "client-1", ts, nil, captured.Get("X-Signature")))
}

func TestUploadLogs_SignsBody(t *testing.T) {
	var captured http.Header
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/logs/batch/", r.URL.Path)
		captured = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	batch := LogBatch{
		SessionID: "session-abc",
		Metadata:  NewSessionMetadata("session-abc", "1.0.0", "production", time.Now()),
	}
	require.NoError(t, newTestTransport(t, server.URL).UploadLogs(context.Background(), batch))

	var decoded LogBatch
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "session-abc", decoded.SessionID)
	assert.Equal(t, "go", decoded.Metadata.Language)

	ts := captured.Get("X-Timestamp")
	assert.True(t, VerifySignature("s3cret", "client-1", ts, body, captured.Get("X-Signature")))
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	_, err := newTestTransport(t, server.URL).FetchFlags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestTransport(t, server.URL).FetchFlags(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestTransport(t, server.URL).FetchFlags(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestCustomHeaders(t *testing.T) {
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport(Config{
		BaseURL:      server.URL,
		ClientID:     "client-1",
		ClientSecret: "s3cret",
		SessionID:    "s",
		SDKVersion:   "1.0.0",
		CustomHeaders: map[string]string{
			"X-Team":      "payments",
			"X-Client-ID": "spoofed", // reserved, must be ignored
		},
		Logger: zerolog.Nop(),
	})

	_, err := tr.FetchFlags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "payments", captured.Get("X-Team"))
	assert.Equal(t, "client-1", captured.Get("X-Client-ID"))
}

func TestSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"logs":[]}`)
	sig := Sign("secret", "id", "1700000000", payload)

	assert.True(t, VerifySignature("secret", "id", "1700000000", payload, sig))
	assert.False(t, VerifySignature("other", "id", "1700000000", payload, sig))
	assert.False(t, VerifySignature("secret", "id", "1700000001", payload, sig))
	assert.False(t, VerifySignature("secret", "id", "1700000000", []byte("tampered"), sig))
}
