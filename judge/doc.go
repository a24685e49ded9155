// Package judge defines the domain model for code-judging submissions.
//
// The judge package holds the submission and result types shared across the
// orchestrator, the per-test and overall verdict enumerations, and the pure
// logic that normalizes a runner container's callback into a final
// SolutionResult: correlating reported test results back to the original
// test cases, synthesizing uniform result sets for compile errors and setup
// failures, and computing the overall status by precedence.
//
// Usage:
//
//	results := judge.CorrelateResults(submission, callback.TestResults)
//	final := judge.SolutionResult{
//	    SubmissionID:       submission.ID,
//	    Status:             judge.OverallStatusOf(callback.CompilationSuccess, results),
//	    CompilationSuccess: callback.CompilationSuccess,
//	    CompilerOutput:     callback.CompilerOutput,
//	    TestResults:        results,
//	}
package judge
