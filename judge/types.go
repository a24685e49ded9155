package judge

// TestStatus classifies the outcome of a single test case
type TestStatus string

// Per-test verdict values reported by runner containers or synthesized here
const (
	StatusAccepted            TestStatus = "Accepted"
	StatusWrongAnswer         TestStatus = "WrongAnswer"
	StatusTimeLimitExceeded   TestStatus = "TimeLimitExceeded"
	StatusMemoryLimitExceeded TestStatus = "MemoryLimitExceeded"
	StatusRuntimeError        TestStatus = "RuntimeError"
	StatusCompileError        TestStatus = "CompileError"
	StatusInternalError       TestStatus = "InternalError"
)

// OverallStatus classifies the outcome of a whole submission
type OverallStatus string

// Overall verdict values, computed by OverallStatusOf or set directly on
// setup failures
const (
	OverallAccepted            OverallStatus = "Accepted"
	OverallCompletedWithIssues OverallStatus = "CompletedWithIssues"
	OverallCompileError        OverallStatus = "CompileError"
	OverallCompleted           OverallStatus = "Completed"
	OverallInternalError       OverallStatus = "InternalError"
)

// UnknownTestCaseID labels a reported result that could not be correlated to
// any original test case. Such results are kept, never dropped.
const UnknownTestCaseID = "Unknown"

// TestCase describes one test of a submission. InputPath and
// ExpectedOutputPath are locations resolved by the runner container, not by
// the orchestrator.
type TestCase struct {
	ID                 string `json:"id,omitempty"`
	InputPath          string `json:"input_path"`
	ExpectedOutputPath string `json:"expected_output_path"`
	TimeLimitMS        int    `json:"time_limit_ms"`
	MemoryLimitMB      int    `json:"memory_limit_mb"`
}

// Submission is one code-evaluation request. It is immutable once admitted.
type Submission struct {
	ID           string     `json:"submission_id"`
	Language     string     `json:"language"`
	CodeLocation string     `json:"code_location"`
	TestCases    []TestCase `json:"test_cases"`
}

// TestCaseResult is the outcome of one test case. Stdout and Stderr are
// pointers so that synthesized results (compile error, internal error) can
// carry no output at all rather than an empty string.
type TestCaseResult struct {
	TestCaseID     string     `json:"test_case_id"`
	Status         TestStatus `json:"status"`
	Stdout         *string    `json:"stdout,omitempty"`
	Stderr         *string    `json:"stderr,omitempty"`
	Message        string     `json:"message,omitempty"`
	DurationMS     int64      `json:"duration_ms"`
	MemoryExceeded bool       `json:"memory_exceeded"`
}

// SolutionResult is the final normalized verdict for a submission, forwarded
// to the backend notifier exactly once per accepted submission.
type SolutionResult struct {
	SubmissionID       string           `json:"submission_id"`
	Status             OverallStatus    `json:"status"`
	CompilationSuccess bool             `json:"compilation_success"`
	CompilerOutput     string           `json:"compiler_output,omitempty"`
	TestResults        []TestCaseResult `json:"test_results"`
}
