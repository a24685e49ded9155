// Package server provides the orchestrator's HTTP surface and submission flow.
//
// The server package exposes two endpoints: the submit endpoint callers use
// to hand in a submission, and the callback endpoint runner containers use
// to report results. The submit handler performs admission control (capacity
// and duplicate gates) and then drives the container lifecycle for the
// accepted submission on a background goroutine; the callback handler
// correlates results, completes the job, and forwards the final verdict to
// the backend notifier.
//
// HTTP acceptance is not the final verdict: a 202 from the submit endpoint
// only means processing has begun. The verdict arrives at the backend once
// the runner calls back, the job times out, or setup fails.
package server
