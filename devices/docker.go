package devices

import (
	"context"
	"strings"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/fleetci/device-harness/types"
)

// deviceLabel marks containers owned by the harness so List never picks up
// unrelated containers on the same daemon.
const deviceLabel = "device-harness.name"

const defaultStopTimeout = 30 * time.Second

// DockerPlatform provisions each device as a container: the spec's type is
// the image repository and its runtime the tag. Container names reuse the
// spec name, which is what lets ResetDevice find stale instances.
type DockerPlatform struct {
	cli         *client.Client
	stopTimeout time.Duration
	log         log.Logger
}

// NewDockerPlatform connects to the docker daemon from the environment.
func NewDockerPlatform(logger log.Logger) (*DockerPlatform, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "creating docker client")
	}
	return &DockerPlatform{
		cli:         cli,
		stopTimeout: defaultStopTimeout,
		log:         logger.New("component", "docker-platform"),
	}, nil
}

func (p *DockerPlatform) Create(ctx context.Context, spec types.DeviceSpec) (*types.DeviceInstance, error) {
	image := spec.Type
	if spec.Runtime != "" {
		image += ":" + spec.Runtime
	}
	resp, err := p.cli.ContainerCreate(ctx,
		&container.Config{
			Image:  image,
			Labels: map[string]string{deviceLabel: spec.Name},
		},
		&container.HostConfig{},
		nil, nil, spec.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "creating container for image %s", image)
	}
	p.log.Debug("Created container", "device", spec.Name, "image", image, "id", resp.ID)
	return &types.DeviceInstance{ID: resp.ID, Spec: spec, State: types.StateCreated}, nil
}

func (p *DockerPlatform) Destroy(ctx context.Context, inst *types.DeviceInstance) error {
	err := p.cli.ContainerRemove(ctx, inst.ID, dockertypes.ContainerRemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return errors.Wrapf(err, "removing container %s", inst.ID)
	}
	return nil
}

func (p *DockerPlatform) Boot(ctx context.Context, inst *types.DeviceInstance) error {
	if err := p.cli.ContainerStart(ctx, inst.ID, dockertypes.ContainerStartOptions{}); err != nil {
		return errors.Wrapf(err, "starting container %s", inst.ID)
	}
	return nil
}

func (p *DockerPlatform) Shutdown(ctx context.Context, inst *types.DeviceInstance) error {
	secs := int(p.stopTimeout.Seconds())
	// ContainerStop escalates to SIGKILL itself once the timeout passes.
	if err := p.cli.ContainerStop(ctx, inst.ID, container.StopOptions{Timeout: &secs}); err != nil {
		return errors.Wrapf(err, "stopping container %s", inst.ID)
	}
	return nil
}

func (p *DockerPlatform) State(ctx context.Context, inst *types.DeviceInstance) (types.State, error) {
	insp, err := p.cli.ContainerInspect(ctx, inst.ID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return types.StateDeleted, nil
		}
		return "", errors.Wrapf(err, "inspecting container %s", inst.ID)
	}
	if insp.State == nil {
		return types.StateCreated, nil
	}
	health := ""
	if insp.State.Health != nil {
		health = insp.State.Health.Status
	}
	return mapContainerState(insp.State.Status, health), nil
}

func (p *DockerPlatform) List(ctx context.Context) ([]*types.DeviceInstance, error) {
	containers, err := p.cli.ContainerList(ctx, dockertypes.ContainerListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", deviceLabel)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing containers")
	}
	insts := make([]*types.DeviceInstance, 0, len(containers))
	for _, c := range containers {
		name := c.Labels[deviceLabel]
		if name == "" && len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		insts = append(insts, &types.DeviceInstance{
			ID:    c.ID,
			Spec:  types.DeviceSpec{Name: name},
			State: mapContainerState(c.State, ""),
		})
	}
	return insts, nil
}

// mapContainerState translates docker container status (and health, when the
// image defines a healthcheck) into the device lifecycle states. A running
// container without a healthcheck counts as ready; with one, readiness
// follows the health probe.
func mapContainerState(status, health string) types.State {
	switch status {
	case "created":
		return types.StateCreated
	case "running":
		switch health {
		case "starting", "unhealthy":
			return types.StateBooting
		default:
			return types.StateReady
		}
	case "restarting", "paused":
		return types.StateBooting
	case "removing", "exited", "dead":
		return types.StateShuttingDown
	default:
		return types.StateCreated
	}
}
