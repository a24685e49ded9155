package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/isdmx/runbox/judge"
)

// Notifier is the outbound channel for final results. The orchestration flow
// depends on this interface so tests can observe notifications.
type Notifier interface {
	Notify(ctx context.Context, result judge.SolutionResult)
}

// Backend posts results to the configured backend URL.
type Backend struct {
	logger     *zap.Logger
	url        string
	maxElapsed time.Duration
	http       *http.Client
}

// BackendOption defines a functional option for Backend
type BackendOption func(*Backend)

// WithHTTPClient sets the HTTP client used for notification posts
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *Backend) {
		b.http = c
	}
}

// New creates a Backend notifier. maxElapsed bounds the total time spent
// retrying one notification before it is dropped.
func New(logger *zap.Logger, url string, maxElapsed time.Duration, opts ...BackendOption) *Backend {
	b := &Backend{
		logger:     logger,
		url:        url,
		maxElapsed: maxElapsed,
		http:       &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Notify delivers the result to the backend, retrying transient failures
// with exponential backoff until maxElapsed is spent. Errors are logged and
// swallowed: every accepted submission already got its single terminal
// transition, and the backend transport is fire-and-forget by contract.
func (b *Backend) Notify(ctx context.Context, result judge.SolutionResult) {
	body, err := json.Marshal(result)
	if err != nil {
		b.logger.Error("failed to encode result notification",
			zap.String("submission_id", result.SubmissionID),
			zap.Error(err))
		return
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = b.maxElapsed

	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		return b.post(ctx, body)
	}, backoff.WithContext(policy, ctx))

	if err != nil {
		b.logger.Error("giving up on result notification",
			zap.String("submission_id", result.SubmissionID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return
	}

	b.logger.Info("result notification delivered",
		zap.String("submission_id", result.SubmissionID),
		zap.String("status", string(result.Status)),
		zap.Int("attempts", attempts))
}

func (b *Backend) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		// Client errors will not heal on retry.
		return backoff.Permanent(fmt.Errorf("backend rejected notification with status %d", resp.StatusCode))
	}

	return nil
}
