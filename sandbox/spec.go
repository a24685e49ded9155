package sandbox

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/go-connections/nat"
)

// cpuPeriodUS is the scheduler period the CPU quota fraction is applied to
const cpuPeriodUS = 100_000

// scratchMount is where the container gets its only writable filesystem
const scratchMount = "/scratch"

// Limits holds the resource ceilings applied to every runner container.
type Limits struct {
	MemoryBytes      int64
	CPUQuotaFraction float64
	PidsLimit        int64
	ScratchBytes     int64
}

// Config holds everything the orchestrator needs to run containers.
type Config struct {
	// Images maps a language tag to its runner image reference (name:tag).
	Images map[string]string

	// RunnerPort is the fixed port the runner service listens on inside
	// the container.
	RunnerPort int

	// HealthPath is polled on the allocated host port until the runner is
	// ready to accept work.
	HealthPath string

	// BootWait bounds the whole start-plus-health-check window.
	BootWait time.Duration

	// HealthInterval is the polling interval during BootWait.
	HealthInterval time.Duration

	// StopGrace is the grace period given to a container on teardown
	// before it is forcibly removed.
	StopGrace time.Duration

	// CallbackURL is where the runner reports results when it finishes.
	CallbackURL string

	Limits Limits
}

// Handle identifies one provisioned runner container. It is owned
// exclusively by the orchestration flow for its job and never shared.
type Handle struct {
	ContainerID string `json:"container_id"`
	HostPort    int    `json:"host_port"`
	Image       string `json:"image"`
}

// BuildSpec builds the container and host specification for a runner. It is
// a pure function of the image, the allocated host port, the runner's
// internal port, and the configured limits.
//
// The sandbox gets a hard memory ceiling, a CPU quota expressed as a
// fraction of the scheduler period, a process-count ceiling, a size-bounded
// writable tmpfs at /scratch, a read-only root filesystem, every Linux
// capability dropped except KILL (needed to terminate the sandboxed process
// tree), bridge networking with only the allocated port published, and
// auto-removal on exit as a teardown backstop.
func BuildSpec(image string, hostPort, runnerPort int, limits Limits) (*container.Config, *container.HostConfig) {
	exposed := nat.Port(fmt.Sprintf("%d/tcp", runnerPort))
	pids := limits.PidsLimit

	cfg := &container.Config{
		Image: image,
		ExposedPorts: nat.PortSet{
			exposed: struct{}{},
		},
	}

	hostCfg := &container.HostConfig{
		AutoRemove:     true,
		ReadonlyRootfs: true,
		NetworkMode:    "bridge",
		CapDrop:        strslice.StrSlice{"ALL"},
		CapAdd:         strslice.StrSlice{"KILL"},
		PortBindings: nat.PortMap{
			exposed: []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: strconv.Itoa(hostPort)},
			},
		},
		Tmpfs: map[string]string{
			scratchMount: fmt.Sprintf("rw,size=%d", limits.ScratchBytes),
		},
		Resources: container.Resources{
			Memory:    limits.MemoryBytes,
			CPUPeriod: cpuPeriodUS,
			CPUQuota:  int64(limits.CPUQuotaFraction * cpuPeriodUS),
			PidsLimit: &pids,
		},
	}

	return cfg, hostCfg
}

// FreePort asks the OS for an ephemeral port by binding and immediately
// releasing a loopback socket. The reservation is advisory: a rare collision
// surfaces later as a container-start failure, not as silent corruption.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ephemeral port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("failed to release ephemeral port: %w", err)
	}
	return port, nil
}
