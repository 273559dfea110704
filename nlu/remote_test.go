package nlu

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const predictionBody = `{
  "kind": "ConversationResult",
  "result": {
    "query": "go to the yellow door",
    "prediction": {
      "topIntent": "GoToDoorWithColorX",
      "projectKind": "Conversation",
      "intents": [
        {"category": "GoToDoorWithColorX", "confidenceScore": 0.93},
        {"category": "MoveToX", "confidenceScore": 0.41}
      ],
      "entities": [
        {"category": "DoorColor", "text": "yellow", "offset": 10, "length": 6, "confidenceScore": 1}
      ]
    }
  }
}`

func testRemote(url string) *Remote {
	return NewRemote(RemoteConfig{
		Endpoint:   url,
		Key:        "secret",
		Project:    "HorrorGame",
		Deployment: "HorrorGameDeployment",
		Retries:    2,
		Backoff:    time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRemote_Interpret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.NotEmpty(t, r.Header.Get("Apim-Request-Id"))

		var req analyzeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Conversation", req.Kind)
		assert.Equal(t, "go to the yellow door", req.AnalysisInput.ConversationItem.Text)
		assert.Equal(t, "HorrorGame", req.Parameters.ProjectName)
		assert.Equal(t, "HorrorGameDeployment", req.Parameters.DeploymentName)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(predictionBody))
	}))
	defer srv.Close()

	got, err := testRemote(srv.URL).Interpret(context.Background(), "go to the yellow door")
	require.NoError(t, err)
	assert.Equal(t, "GoToDoorWithColorX", got.TopIntent)
	assert.Equal(t, "Conversation", got.ProjectKind)
	require.Len(t, got.Intents, 2)
	assert.InDelta(t, 0.93, got.Intents[0].ConfidenceScore, 1e-9)
	require.Len(t, got.Entities, 1)
	assert.Equal(t, "yellow", got.Entities[0].Text)
	assert.Equal(t, 10, got.Entities[0].Offset)
}

func TestRemote_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(predictionBody))
	}))
	defer srv.Close()

	got, err := testRemote(srv.URL).Interpret(context.Background(), "go to the yellow door")
	require.NoError(t, err)
	assert.Equal(t, "GoToDoorWithColorX", got.TopIntent)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRemote_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testRemote(srv.URL).Interpret(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestRemote_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"code": "401", "message": "Access denied due to invalid subscription key."}}`))
	}))
	defer srv.Close()

	_, err := testRemote(srv.URL).Interpret(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid subscription key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemote_Defaults(t *testing.T) {
	r := NewRemote(RemoteConfig{Endpoint: "http://localhost"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, DefaultRemoteTimeout, r.httpClient.Timeout)
	assert.Equal(t, DefaultRemoteBackoff, r.cfg.Backoff)
}
