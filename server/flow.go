package server

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/isdmx/runbox/judge"
	"github.com/isdmx/runbox/sandbox"
	"github.com/isdmx/runbox/tracker"
)

// runSubmission drives the container lifecycle for one accepted submission:
// provision, start, health-check, dispatch, track. Steps are strictly
// sequential per submission; submissions interleave freely. Any failure or
// panic before tracking is a setup failure and still produces exactly one
// backend notification.
func (s *Server) runSubmission(sub judge.Submission) {
	ctx := context.Background()
	var handle sandbox.Handle

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during orchestration",
				zap.String("submission_id", sub.ID),
				zap.Any("panic", r))
			s.failSetup(ctx, sub, handle)
		}
	}()

	handle, err := s.orc.Provision(ctx, sub.Language)
	if err != nil {
		s.logger.Error("failed to provision runner container",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
		s.failSetup(ctx, sub, sandbox.Handle{})
		return
	}

	if err := s.orc.WaitHealthy(ctx, handle); err != nil {
		s.logger.Error("runner container never became healthy",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
		s.failSetup(ctx, sub, handle)
		return
	}

	if err := s.orc.Dispatch(ctx, handle, sub); err != nil {
		s.logger.Error("failed to dispatch submission to runner",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
		s.failSetup(ctx, sub, handle)
		return
	}

	// The timeout timer covers the awaiting-callback window only;
	// everything up to here had its own bounded waits.
	if err := s.tracker.Track(sub.ID, sub, handle, s.onJobTimeout); err != nil {
		if errors.Is(err, tracker.ErrDuplicate) {
			// A same-id submission raced past admission and got tracked
			// first. That job owns the notification; this container is
			// surplus and just goes away.
			s.logger.Warn("duplicate submission raced admission, discarding container",
				zap.String("submission_id", sub.ID),
				zap.String("container_id", handle.ContainerID))
			s.orc.Teardown(ctx, handle)
			return
		}
		s.logger.Error("failed to track job", zap.String("submission_id", sub.ID), zap.Error(err))
		s.failSetup(ctx, sub, handle)
	}
}

// failSetup is the terminal transition for every pre-callback failure. The
// job was never tracked (or tracking failed), so neither the timeout nor a
// callback can race this notification.
func (s *Server) failSetup(ctx context.Context, sub judge.Submission, handle sandbox.Handle) {
	if handle.ContainerID != "" {
		s.orc.Teardown(ctx, handle)
	}

	s.notifier.Notify(ctx, judge.SolutionResult{
		SubmissionID:       sub.ID,
		Status:             judge.OverallInternalError,
		CompilationSuccess: false,
		TestResults:        judge.InternalErrorResults(sub),
	})
}

// onJobTimeout is the terminal transition for jobs whose runner never called
// back in time. The tracker already removed the entry, so a late callback
// will be ignored as stale.
func (s *Server) onJobTimeout(id string, sub judge.Submission, handle sandbox.Handle) {
	ctx := context.Background()
	s.orc.Teardown(ctx, handle)

	s.notifier.Notify(ctx, judge.SolutionResult{
		SubmissionID:       id,
		Status:             judge.OverallInternalError,
		CompilationSuccess: false,
		TestResults:        judge.TimeoutResults(sub),
	})
}
