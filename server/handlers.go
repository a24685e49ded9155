package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/isdmx/runbox/judge"
	"github.com/isdmx/runbox/tracker"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Submit endpoint ---

type submitTestCase struct {
	ID                 string `json:"id,omitempty"`
	InputPath          string `json:"input_path"`
	ExpectedOutputPath string `json:"expected_output_path"`
	TimeLimitMS        int    `json:"time_limit_ms"`
	MemoryLimitMB      int    `json:"memory_limit_mb"`
}

type submitRequest struct {
	SubmissionID string           `json:"submission_id"`
	Language     string           `json:"language"`
	CodeLocation string           `json:"code_location"`
	TestCases    []submitTestCase `json:"test_cases"`
}

func (r *submitRequest) validate() string {
	if r.SubmissionID == "" {
		return "submission_id is required"
	}
	if r.Language == "" {
		return "language is required"
	}
	if r.CodeLocation == "" {
		return "code_location is required"
	}
	for _, tc := range r.TestCases {
		if tc.InputPath == "" {
			return "test case input_path is required"
		}
		if tc.ExpectedOutputPath == "" {
			return "test case expected_output_path is required"
		}
		if tc.TimeLimitMS <= 0 || tc.MemoryLimitMB <= 0 {
			return "test case limits must be positive"
		}
	}
	return ""
}

func (r *submitRequest) toSubmission() judge.Submission {
	cases := make([]judge.TestCase, 0, len(r.TestCases))
	for _, tc := range r.TestCases {
		cases = append(cases, judge.TestCase{
			ID:                 tc.ID,
			InputPath:          tc.InputPath,
			ExpectedOutputPath: tc.ExpectedOutputPath,
			TimeLimitMS:        tc.TimeLimitMS,
			MemoryLimitMB:      tc.MemoryLimitMB,
		})
	}
	return judge.Submission{
		ID:           r.SubmissionID,
		Language:     r.Language,
		CodeLocation: r.CodeLocation,
		TestCases:    cases,
	}
}

// handleSubmit is the admission gate. It rejects malformed, unsupported,
// over-capacity and duplicate submissions, and otherwise starts orchestration
// asynchronously: the 202 response only acknowledges acceptance.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if !s.orc.SupportsLanguage(req.Language) {
		writeError(w, http.StatusBadRequest, "unsupported language: "+req.Language)
		return
	}

	if s.tracker.Count() >= s.config.Orchestrator.MaxJobs {
		s.logger.Warn("submission rejected, capacity exceeded",
			zap.String("submission_id", req.SubmissionID),
			zap.Int("max_jobs", s.config.Orchestrator.MaxJobs))
		writeError(w, http.StatusTooManyRequests, "capacity exceeded")
		return
	}

	if s.tracker.IsTracked(req.SubmissionID) {
		writeError(w, http.StatusConflict, "submission is already being processed")
		return
	}

	sub := req.toSubmission()
	s.logger.Info("submission accepted",
		zap.String("submission_id", sub.ID),
		zap.String("language", sub.Language),
		zap.Int("test_cases", len(sub.TestCases)))

	go s.runSubmission(sub)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"submission_id": sub.ID,
		"status":        "accepted",
	})
}

// --- Callback endpoint ---

type callbackTestResult struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	Stdout         *string `json:"stdout,omitempty"`
	Stderr         *string `json:"stderr,omitempty"`
	Message        string  `json:"message,omitempty"`
	DurationMS     int64   `json:"duration_ms"`
	MemoryExceeded bool    `json:"memory_exceeded"`
}

type callbackRequest struct {
	SubmissionID       string               `json:"submission_id"`
	CompilationSuccess bool                 `json:"compilation_success"`
	CompilerOutput     string               `json:"compiler_output,omitempty"`
	TestResults        []callbackTestResult `json:"test_results"`
}

// handleCallback receives a runner container's report. A callback for an
// untracked submission is stale (the job timed out or was already completed)
// and is acknowledged-and-ignored: it must not re-trigger notification or
// teardown. The winner of the remove-if-present race owns the terminal
// transition.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.SubmissionID == "" {
		writeError(w, http.StatusBadRequest, "submission_id is required")
		return
	}

	job, ok := s.tracker.Get(req.SubmissionID)
	if !ok || !s.tracker.Complete(req.SubmissionID) {
		s.logger.Info("ignoring stale callback", zap.String("submission_id", req.SubmissionID))
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "unknown_submission"})
		return
	}

	s.logger.Info("callback received",
		zap.String("submission_id", req.SubmissionID),
		zap.Bool("compilation_success", req.CompilationSuccess),
		zap.Int("test_results", len(req.TestResults)))

	go s.finishJob(job, req)

	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

// finishJob runs the terminal transition for a callback winner: tear the
// container down, normalize the report, and notify the backend exactly once.
func (s *Server) finishJob(job tracker.Job, req callbackRequest) {
	ctx := context.Background()
	s.orc.Teardown(ctx, job.Container)

	var results []judge.TestCaseResult
	if req.CompilationSuccess {
		results = judge.CorrelateResults(job.Submission, toJudgeResults(req.TestResults))
	} else {
		results = judge.CompileErrorResults(job.Submission)
	}

	s.notifier.Notify(ctx, judge.SolutionResult{
		SubmissionID:       job.Submission.ID,
		Status:             judge.OverallStatusOf(req.CompilationSuccess, results),
		CompilationSuccess: req.CompilationSuccess,
		CompilerOutput:     req.CompilerOutput,
		TestResults:        results,
	})
}

func toJudgeResults(reported []callbackTestResult) []judge.TestCaseResult {
	results := make([]judge.TestCaseResult, 0, len(reported))
	for _, r := range reported {
		results = append(results, judge.TestCaseResult{
			TestCaseID:     r.ID,
			Status:         judge.TestStatus(r.Status),
			Stdout:         r.Stdout,
			Stderr:         r.Stderr,
			Message:        r.Message,
			DurationMS:     r.DurationMS,
			MemoryExceeded: r.MemoryExceeded,
		})
	}
	return results
}
