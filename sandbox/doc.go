// Package sandbox provisions and manages runner containers.
//
// The sandbox package implements the container-orchestration state machine
// for one submission: ensure the language's runner image is present, allocate
// an ephemeral host port, create and start a locked-down container (memory,
// CPU and process ceilings, read-only root, dropped capabilities, bounded
// scratch space), poll its health endpoint until it is ready, dispatch the
// batch execution request, and eventually tear the container down again.
//
// The Docker Engine is reached through the DockerAPI interface, satisfied by
// *client.Client, so orchestration logic is testable without a daemon.
//
// Usage:
//
//	orc, err := sandbox.New(logger, cfg)
//	handle, err := orc.Provision(ctx, submission.Language)
//	defer orc.Teardown(context.Background(), handle)
//	if err := orc.WaitHealthy(ctx, handle); err != nil { ... }
//	if err := orc.Dispatch(ctx, handle, submission); err != nil { ... }
package sandbox
