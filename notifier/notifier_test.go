package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/runbox/judge"
)

func testResult() judge.SolutionResult {
	return judge.SolutionResult{
		SubmissionID:       "sub-1",
		Status:             judge.OverallAccepted,
		CompilationSuccess: true,
		TestResults: []judge.TestCaseResult{
			{TestCaseID: "tc-1", Status: judge.StatusAccepted, DurationMS: 12},
		},
	}
}

func TestNotify(t *testing.T) {
	t.Run("DeliversPayload", func(t *testing.T) {
		var got judge.SolutionResult
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		n := New(zaptest.NewLogger(t), srv.URL, time.Second)
		n.Notify(context.Background(), testResult())

		assert.Equal(t, "sub-1", got.SubmissionID)
		assert.Equal(t, judge.OverallAccepted, got.Status)
		require.Len(t, got.TestResults, 1)
		assert.Equal(t, judge.StatusAccepted, got.TestResults[0].Status)
	})

	t.Run("RetriesTransientFailures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		n := New(zaptest.NewLogger(t), srv.URL, 10*time.Second)
		n.Notify(context.Background(), testResult())

		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("GivesUpAfterBudget", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		n := New(zaptest.NewLogger(t), srv.URL, 500*time.Millisecond)
		done := make(chan struct{})
		go func() {
			defer close(done)
			n.Notify(context.Background(), testResult())
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Notify did not give up within the retry budget")
		}
		assert.GreaterOrEqual(t, calls.Load(), int32(1))
	})

	t.Run("ClientErrorIsNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		n := New(zaptest.NewLogger(t), srv.URL, 10*time.Second)
		n.Notify(context.Background(), testResult())

		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("UnreachableBackendIsSwallowed", func(t *testing.T) {
		n := New(zaptest.NewLogger(t), "http://127.0.0.1:1/results", 300*time.Millisecond)
		// Must return without panicking or propagating an error.
		n.Notify(context.Background(), testResult())
	})
}
