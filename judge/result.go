package judge

import "strings"

// Fixed messages for synthesized result sets
const (
	compileErrorMessage  = "Compilation failed; test case was not executed"
	internalErrorMessage = "An internal error occurred while evaluating the submission"
	timeoutMessage       = "Evaluation timed out before the runner reported a result"
)

// CorrelateResults matches reported results back to the submission's original
// test cases. Matching is by test case id first, then by suffix match of the
// reported id against an original input path. Results that match nothing are
// labeled UnknownTestCaseID rather than discarded. The reported payload
// (status, stdout, stderr, message, duration, memory flag) is preserved
// verbatim either way.
func CorrelateResults(sub Submission, reported []TestCaseResult) []TestCaseResult {
	results := make([]TestCaseResult, 0, len(reported))

	for _, r := range reported {
		tc, ok := matchTestCase(sub.TestCases, r.TestCaseID)
		if !ok {
			r.TestCaseID = UnknownTestCaseID
			results = append(results, r)
			continue
		}

		// Prefer the original caller-supplied id; fall back to the input
		// path so the caller can still tell the cases apart.
		if tc.ID != "" {
			r.TestCaseID = tc.ID
		} else {
			r.TestCaseID = tc.InputPath
		}
		results = append(results, r)
	}

	return results
}

func matchTestCase(cases []TestCase, reportedID string) (TestCase, bool) {
	if reportedID == "" {
		return TestCase{}, false
	}

	for _, tc := range cases {
		if tc.ID != "" && tc.ID == reportedID {
			return tc, true
		}
	}

	// Runners that name results after files report the input path (or its
	// basename), so a suffix match against the original input path still
	// identifies the case.
	for _, tc := range cases {
		if strings.HasSuffix(tc.InputPath, reportedID) {
			return tc, true
		}
	}

	return TestCase{}, false
}

// CompileErrorResults synthesizes one compile-error result per original test
// case. No stdout or stderr is fabricated: the code never ran.
func CompileErrorResults(sub Submission) []TestCaseResult {
	return synthesizeResults(sub, StatusCompileError, compileErrorMessage)
}

// InternalErrorResults synthesizes a uniform internal-error result set, used
// when orchestration fails before the runner could report anything.
func InternalErrorResults(sub Submission) []TestCaseResult {
	return synthesizeResults(sub, StatusInternalError, internalErrorMessage)
}

// TimeoutResults synthesizes the result set delivered when the per-job
// timeout fires before the runner's callback arrives.
func TimeoutResults(sub Submission) []TestCaseResult {
	return synthesizeResults(sub, StatusInternalError, timeoutMessage)
}

func synthesizeResults(sub Submission, status TestStatus, message string) []TestCaseResult {
	results := make([]TestCaseResult, 0, len(sub.TestCases))
	for _, tc := range sub.TestCases {
		id := tc.ID
		if id == "" {
			id = tc.InputPath
		}
		results = append(results, TestCaseResult{
			TestCaseID: id,
			Status:     status,
			Message:    message,
		})
	}
	return results
}

// OverallStatusOf computes the submission-level status by precedence:
// compilation failure wins, then any non-accepted test case, then a
// non-empty all-accepted list, and an empty list is merely Completed.
func OverallStatusOf(compilationSuccess bool, results []TestCaseResult) OverallStatus {
	if !compilationSuccess {
		return OverallCompileError
	}

	if len(results) == 0 {
		return OverallCompleted
	}

	for _, r := range results {
		if r.Status != StatusAccepted {
			return OverallCompletedWithIssues
		}
	}

	return OverallAccepted
}
