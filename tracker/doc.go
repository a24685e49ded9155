// Package tracker maintains the in-flight job table for the orchestrator.
//
// The tracker package owns the submission-id to Job mapping and is the
// single synchronization point between the per-job timeout timer and the
// runner container's asynchronous callback. Both terminal paths go through
// the same remove-if-present primitive, so exactly one of them observes the
// job and owns the terminal transition; the loser takes no further action.
//
// The tracker is an explicitly constructed, injected collaborator with
// process-scoped lifetime. Nothing else in the repository holds shared
// mutable state across submissions.
package tracker
