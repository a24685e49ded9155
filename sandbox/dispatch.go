package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/runbox/judge"
)

// executePath is the runner's batch execution endpoint
const executePath = "/execute"

// ExecutionRequest is the wire contract the orchestrator sends to a healthy
// runner container. The container compiles, runs every test case, and
// reports back asynchronously at CallbackURL.
type ExecutionRequest struct {
	SubmissionID string              `json:"submission_id"`
	Language     string              `json:"language"`
	CodeLocation string              `json:"code_location"`
	CallbackURL  string              `json:"callback_url"`
	TestCases    []ExecutionTestCase `json:"test_cases"`
}

// ExecutionTestCase mirrors judge.TestCase on the wire, preserving the
// caller-supplied id and the original ordering.
type ExecutionTestCase struct {
	ID                 string `json:"id,omitempty"`
	InputPath          string `json:"input_path"`
	ExpectedOutputPath string `json:"expected_output_path"`
	TimeLimitMS        int    `json:"time_limit_ms"`
	MemoryLimitMB      int    `json:"memory_limit_mb"`
}

// NewExecutionRequest maps a submission into the runner's wire contract.
func NewExecutionRequest(sub judge.Submission, callbackURL string) ExecutionRequest {
	cases := make([]ExecutionTestCase, 0, len(sub.TestCases))
	for _, tc := range sub.TestCases {
		cases = append(cases, ExecutionTestCase{
			ID:                 tc.ID,
			InputPath:          tc.InputPath,
			ExpectedOutputPath: tc.ExpectedOutputPath,
			TimeLimitMS:        tc.TimeLimitMS,
			MemoryLimitMB:      tc.MemoryLimitMB,
		})
	}

	return ExecutionRequest{
		SubmissionID: sub.ID,
		Language:     sub.Language,
		CodeLocation: sub.CodeLocation,
		CallbackURL:  callbackURL,
		TestCases:    cases,
	}
}

// WaitHealthy polls the runner's health path on the allocated host port at a
// fixed interval until it answers 2xx or the boot wait budget elapses.
func (o *Orchestrator) WaitHealthy(ctx context.Context, handle Handle) error {
	url := fmt.Sprintf("http://127.0.0.1:%d%s", handle.HostPort, o.config.HealthPath)

	waitCtx, cancel := context.WithTimeout(ctx, o.config.BootWait)
	defer cancel()

	ticker := time.NewTicker(o.config.HealthInterval)
	defer ticker.Stop()

	for {
		if o.probe(waitCtx, url) {
			o.logger.Debug("runner container healthy",
				zap.String("container_id", handle.ContainerID),
				zap.Int("host_port", handle.HostPort))
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("runner container %s did not become healthy within %s",
				handle.ContainerID, o.config.BootWait)
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Dispatch sends the batch execution request to the runner. A 2xx response
// only means the work was accepted; the real results arrive later through
// the callback endpoint. Anything else is a setup failure: the runner never
// validly started the work.
func (o *Orchestrator) Dispatch(ctx context.Context, handle Handle, sub judge.Submission) error {
	payload := NewExecutionRequest(sub, o.config.CallbackURL)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode execution request: %w", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d%s", handle.HostPort, executePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to dispatch to runner %s: %w", handle.ContainerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("runner %s rejected dispatch with status %d", handle.ContainerID, resp.StatusCode)
	}

	o.logger.Info("submission dispatched to runner",
		zap.String("submission_id", sub.ID),
		zap.String("container_id", handle.ContainerID),
		zap.Int("test_cases", len(sub.TestCases)))

	return nil
}
