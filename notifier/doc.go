// Package notifier delivers final submission results to the backend.
//
// Delivery is best-effort: one POST per submission, retried with a bounded
// exponential backoff, then dropped with a log entry. Notification failures
// never propagate into the orchestration flow.
package notifier
