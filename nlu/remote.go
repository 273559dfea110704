package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/nathoo/voicequest/types"
)

const (
	DefaultRemoteTimeout = 10 * time.Second
	DefaultRemoteRetries = 2
	DefaultRemoteBackoff = 200 * time.Millisecond
)

// RemoteConfig points at a conversation-analysis deployment.
type RemoteConfig struct {
	Endpoint   string // full prediction URL, including the api-version query
	Key        string
	Project    string
	Deployment string
	Timeout    time.Duration
	Retries    uint64
	Backoff    time.Duration // base of the exponential backoff
}

// Remote interprets utterances with a hosted conversation-analysis service.
type Remote struct {
	cfg        RemoteConfig
	httpClient *http.Client
	logger     *slog.Logger
}

type analyzeRequest struct {
	Kind          string        `json:"kind"`
	AnalysisInput analysisInput `json:"analysisInput"`
	Parameters    analyzeParams `json:"parameters"`
}

type analysisInput struct {
	ConversationItem conversationItem `json:"conversationItem"`
}

type conversationItem struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	Text          string `json:"text"`
}

type analyzeParams struct {
	ProjectName     string `json:"projectName"`
	DeploymentName  string `json:"deploymentName"`
	Verbose         bool   `json:"verbose"`
	StringIndexType string `json:"stringIndexType"`
}

type analyzeResponse struct {
	Kind   string `json:"kind"`
	Result struct {
		Query      string               `json:"query"`
		Prediction types.Interpretation `json:"prediction"`
	} `json:"result"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewRemote creates a client. Zero timeout and backoff take the defaults.
func NewRemote(cfg RemoteConfig, logger *slog.Logger) *Remote {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = DefaultRemoteBackoff
	}
	return &Remote{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Interpret sends one utterance for analysis. Transport errors, 429 and
// 5xx responses are retried with exponential backoff.
func (r *Remote) Interpret(ctx context.Context, utterance string) (*types.Interpretation, error) {
	body, err := json.Marshal(analyzeRequest{
		Kind: "Conversation",
		AnalysisInput: analysisInput{ConversationItem: conversationItem{
			ID:            "1",
			ParticipantID: "1",
			Text:          utterance,
		}},
		Parameters: analyzeParams{
			ProjectName:     r.cfg.Project,
			DeploymentName:  r.cfg.Deployment,
			Verbose:         true,
			StringIndexType: "Utf16CodeUnit",
		},
	})
	if err != nil {
		return nil, oops.Code("NLU_REQUEST_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(r.cfg.Retries, retry.NewExponential(r.cfg.Backoff))
	var out *types.Interpretation
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		interp, err := r.analyze(ctx, body)
		if err != nil {
			r.logger.Debug("nlu request failed", "attempt", attempt, "error", err)
			return err
		}
		out = interp
		return nil
	})
	if err != nil {
		return nil, oops.Code("NLU_REQUEST_FAILED").With("attempts", attempt).Wrap(err)
	}
	return out, nil
}

func (r *Remote) analyze(ctx context.Context, body []byte) (*types.Interpretation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", r.cfg.Key)
	req.Header.Set("Apim-Request-Id", uuid.NewString())
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, retry.RetryableError(fmt.Errorf("service returned status %d", resp.StatusCode))
	}

	var ar analyzeResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if ar.Error != nil {
		return nil, fmt.Errorf("service error %s: %s", ar.Error.Code, ar.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	interp := ar.Result.Prediction
	return &interp, nil
}
