package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testSubmission() Submission {
	return Submission{
		ID:           "sub-1",
		Language:     "python",
		CodeLocation: "solutions/sub-1/main.py",
		TestCases: []TestCase{
			{ID: "tc-1", InputPath: "problems/42/cases/1.in", ExpectedOutputPath: "problems/42/cases/1.out", TimeLimitMS: 1000, MemoryLimitMB: 128},
			{ID: "tc-2", InputPath: "problems/42/cases/2.in", ExpectedOutputPath: "problems/42/cases/2.out", TimeLimitMS: 1000, MemoryLimitMB: 128},
			{InputPath: "problems/42/cases/3.in", ExpectedOutputPath: "problems/42/cases/3.out", TimeLimitMS: 2000, MemoryLimitMB: 256},
		},
	}
}

func TestCorrelateResults(t *testing.T) {
	sub := testSubmission()

	t.Run("MatchByID", func(t *testing.T) {
		reported := []TestCaseResult{
			{TestCaseID: "tc-2", Status: StatusAccepted, Stdout: strPtr("42\n"), DurationMS: 17},
		}

		results := CorrelateResults(sub, reported)
		require.Len(t, results, 1)
		assert.Equal(t, "tc-2", results[0].TestCaseID)
		assert.Equal(t, StatusAccepted, results[0].Status)
		require.NotNil(t, results[0].Stdout)
		assert.Equal(t, "42\n", *results[0].Stdout)
		assert.Equal(t, int64(17), results[0].DurationMS)
	})

	t.Run("MatchByInputPathSuffix", func(t *testing.T) {
		// The runner reported the input file name instead of the caller id.
		reported := []TestCaseResult{
			{TestCaseID: "cases/1.in", Status: StatusWrongAnswer, Message: "diff at line 3"},
		}

		results := CorrelateResults(sub, reported)
		require.Len(t, results, 1)
		assert.Equal(t, "tc-1", results[0].TestCaseID)
		assert.Equal(t, StatusWrongAnswer, results[0].Status)
		assert.Equal(t, "diff at line 3", results[0].Message)
	})

	t.Run("SuffixMatchForCaseWithoutCallerID", func(t *testing.T) {
		reported := []TestCaseResult{
			{TestCaseID: "3.in", Status: StatusTimeLimitExceeded},
		}

		results := CorrelateResults(sub, reported)
		require.Len(t, results, 1)
		// The original case has no caller id, so the input path stands in.
		assert.Equal(t, "problems/42/cases/3.in", results[0].TestCaseID)
	})

	t.Run("UnmatchedResultLabeledUnknown", func(t *testing.T) {
		reported := []TestCaseResult{
			{TestCaseID: "no-such-case", Status: StatusRuntimeError, Stderr: strPtr("segfault")},
		}

		results := CorrelateResults(sub, reported)
		require.Len(t, results, 1)
		assert.Equal(t, UnknownTestCaseID, results[0].TestCaseID)
		assert.Equal(t, StatusRuntimeError, results[0].Status)
		require.NotNil(t, results[0].Stderr)
		assert.Equal(t, "segfault", *results[0].Stderr)
	})

	t.Run("EmptyReportedIDIsUnknown", func(t *testing.T) {
		reported := []TestCaseResult{
			{TestCaseID: "", Status: StatusAccepted},
		}

		results := CorrelateResults(sub, reported)
		require.Len(t, results, 1)
		assert.Equal(t, UnknownTestCaseID, results[0].TestCaseID)
	})

	t.Run("PayloadPreservedVerbatim", func(t *testing.T) {
		reported := []TestCaseResult{
			{
				TestCaseID:     "tc-1",
				Status:         StatusMemoryLimitExceeded,
				Stdout:         strPtr("partial"),
				Stderr:         strPtr("oom"),
				Message:        "killed",
				DurationMS:     512,
				MemoryExceeded: true,
			},
		}

		results := CorrelateResults(sub, reported)
		require.Len(t, results, 1)
		r := results[0]
		assert.Equal(t, StatusMemoryLimitExceeded, r.Status)
		assert.Equal(t, "partial", *r.Stdout)
		assert.Equal(t, "oom", *r.Stderr)
		assert.Equal(t, "killed", r.Message)
		assert.Equal(t, int64(512), r.DurationMS)
		assert.True(t, r.MemoryExceeded)
	})

	t.Run("OrderingPreserved", func(t *testing.T) {
		reported := []TestCaseResult{
			{TestCaseID: "tc-2", Status: StatusAccepted},
			{TestCaseID: "tc-1", Status: StatusAccepted},
		}

		results := CorrelateResults(sub, reported)
		require.Len(t, results, 2)
		assert.Equal(t, "tc-2", results[0].TestCaseID)
		assert.Equal(t, "tc-1", results[1].TestCaseID)
	})
}

func TestCompileErrorResults(t *testing.T) {
	sub := testSubmission()

	results := CompileErrorResults(sub)
	require.Len(t, results, len(sub.TestCases))

	for _, r := range results {
		assert.Equal(t, StatusCompileError, r.Status)
		assert.Nil(t, r.Stdout)
		assert.Nil(t, r.Stderr)
		assert.NotEmpty(t, r.Message)
		assert.Equal(t, int64(0), r.DurationMS)
	}

	assert.Equal(t, "tc-1", results[0].TestCaseID)
	assert.Equal(t, "tc-2", results[1].TestCaseID)
	// Case without a caller id falls back to its input path.
	assert.Equal(t, "problems/42/cases/3.in", results[2].TestCaseID)
}

func TestInternalErrorResults(t *testing.T) {
	sub := testSubmission()

	results := InternalErrorResults(sub)
	require.Len(t, results, len(sub.TestCases))
	for _, r := range results {
		assert.Equal(t, StatusInternalError, r.Status)
		assert.Nil(t, r.Stdout)
		assert.Nil(t, r.Stderr)
	}
}

func TestOverallStatusOf(t *testing.T) {
	accepted := TestCaseResult{Status: StatusAccepted}
	wrong := TestCaseResult{Status: StatusWrongAnswer}

	t.Run("CompileErrorWinsOverEverything", func(t *testing.T) {
		status := OverallStatusOf(false, []TestCaseResult{accepted, accepted})
		assert.Equal(t, OverallCompileError, status)
	})

	t.Run("AllAccepted", func(t *testing.T) {
		status := OverallStatusOf(true, []TestCaseResult{accepted, accepted})
		assert.Equal(t, OverallAccepted, status)
	})

	t.Run("MixedResults", func(t *testing.T) {
		status := OverallStatusOf(true, []TestCaseResult{accepted, wrong, accepted})
		assert.Equal(t, OverallCompletedWithIssues, status)
	})

	t.Run("EmptyListIsCompleted", func(t *testing.T) {
		status := OverallStatusOf(true, nil)
		assert.Equal(t, OverallCompleted, status)
	})

	t.Run("NonAcceptedVariants", func(t *testing.T) {
		for _, s := range []TestStatus{StatusWrongAnswer, StatusTimeLimitExceeded, StatusMemoryLimitExceeded, StatusRuntimeError, StatusInternalError} {
			status := OverallStatusOf(true, []TestCaseResult{{Status: s}})
			assert.Equal(t, OverallCompletedWithIssues, status, "status %s", s)
		}
	})
}
