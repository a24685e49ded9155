package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"
)

// ErrUnsupportedLanguage is returned when no runner image is configured for
// the submission's language tag
var ErrUnsupportedLanguage = errors.New("no runner image configured for language")

// DockerAPI is the subset of the Docker Engine client the orchestrator uses.
// *client.Client satisfies it; tests substitute a fake.
type DockerAPI interface {
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// PortAllocator acquires a free host port for a container binding
type PortAllocator func() (int, error)

// Orchestrator drives the container lifecycle for runner sandboxes.
type Orchestrator struct {
	logger *zap.Logger
	config *Config
	api    DockerAPI
	http   *http.Client
	ports  PortAllocator
}

// OrchestratorOption defines a functional option for Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithDockerAPI sets the Docker Engine client for Orchestrator
func WithDockerAPI(api DockerAPI) OrchestratorOption {
	return func(o *Orchestrator) {
		o.api = api
	}
}

// WithHTTPClient sets the HTTP client used for health checks and dispatch
func WithHTTPClient(c *http.Client) OrchestratorOption {
	return func(o *Orchestrator) {
		o.http = c
	}
}

// WithPortAllocator sets the host-port allocation strategy
func WithPortAllocator(p PortAllocator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.ports = p
	}
}

// New creates an Orchestrator. Without options it connects to the Docker
// Engine from the environment and negotiates the API version.
func New(logger *zap.Logger, config *Config, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		logger: logger,
		config: config,
		http:   &http.Client{Timeout: 10 * time.Second},
		ports:  FreePort,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.api == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("failed to create docker client: %w", err)
		}
		o.api = cli
	}

	return o, nil
}

// SupportsLanguage reports whether a runner image is configured for the
// language tag.
func (o *Orchestrator) SupportsLanguage(language string) bool {
	_, ok := o.config.Images[language]
	return ok
}

// EnsureImage checks whether the image reference exists locally and pulls it
// if it does not, streaming pull progress to the log.
func (o *Orchestrator) EnsureImage(ctx context.Context, ref string) error {
	summaries, err := o.api.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return fmt.Errorf("failed to query local images: %w", err)
	}
	if len(summaries) > 0 {
		return nil
	}

	o.logger.Info("runner image not present, pulling", zap.String("image", ref))

	rc, err := o.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained.
	dec := json.NewDecoder(rc)
	for {
		var msg jsonmessage.JSONMessage
		if decodeErr := dec.Decode(&msg); decodeErr != nil {
			if decodeErr == io.EOF {
				break
			}
			return fmt.Errorf("failed to read pull progress for %s: %w", ref, decodeErr)
		}
		if msg.Error != nil {
			return fmt.Errorf("failed to pull image %s: %s", ref, msg.Error.Message)
		}
		if msg.Status != "" {
			o.logger.Debug("image pull progress",
				zap.String("image", ref),
				zap.String("layer", msg.ID),
				zap.String("status", msg.Status))
		}
	}

	o.logger.Info("runner image pulled", zap.String("image", ref))
	return nil
}

// Provision creates and starts one runner container for the language and
// returns its handle. The caller owns the handle and must eventually call
// Teardown on whichever terminal path fires first.
func (o *Orchestrator) Provision(ctx context.Context, language string) (Handle, error) {
	ref, ok := o.config.Images[language]
	if !ok {
		return Handle{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	if err := o.EnsureImage(ctx, ref); err != nil {
		return Handle{}, err
	}

	hostPort, err := o.ports()
	if err != nil {
		return Handle{}, err
	}

	name := fmt.Sprintf("runbox-%s-%s", language, uuid.NewString())
	cfg, hostCfg := BuildSpec(ref, hostPort, o.config.RunnerPort, o.config.Limits)

	created, err := o.api.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create container %s: %w", name, err)
	}

	handle := Handle{
		ContainerID: created.ID,
		HostPort:    hostPort,
		Image:       ref,
	}

	if err := o.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		// An advisory port collision lands here as well; remove the
		// half-provisioned container before reporting setup failure.
		o.Teardown(context.WithoutCancel(ctx), handle)
		return Handle{}, fmt.Errorf("failed to start container %s: %w", name, err)
	}

	o.logger.Info("runner container started",
		zap.String("container_id", created.ID),
		zap.String("image", ref),
		zap.Int("host_port", hostPort))

	return handle, nil
}

// Teardown stops the container with a bounded grace period and falls back to
// forced removal. It is best-effort: an already-gone container is fine (the
// image auto-removes on exit) and failures are logged, never propagated.
func (o *Orchestrator) Teardown(ctx context.Context, handle Handle) {
	grace := int(o.config.StopGrace / time.Second)

	err := o.api.ContainerStop(ctx, handle.ContainerID, container.StopOptions{Timeout: &grace})
	if err == nil || cerrdefs.IsNotFound(err) {
		return
	}

	o.logger.Warn("failed to stop container, forcing removal",
		zap.String("container_id", handle.ContainerID),
		zap.Error(err))

	err = o.api.ContainerRemove(ctx, handle.ContainerID, container.RemoveOptions{Force: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		o.logger.Error("failed to remove container",
			zap.String("container_id", handle.ContainerID),
			zap.Error(err))
	}
}
