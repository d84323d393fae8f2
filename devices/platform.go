// Package devices manages the lifecycle of the ephemeral devices a run
// executes against: provisioning, boot, state observation, shutdown and
// deletion. The orchestration layer only ever talks to the Platform
// capability interface, so the concrete device technology (containers,
// emulators, ...) stays substitutable.
package devices

import (
	"context"

	"github.com/fleetci/device-harness/types"
)

// Platform is the device management subsystem the harness drives. All
// operations act on a single instance and must be safe to call for
// different instances from different goroutines concurrently.
type Platform interface {
	// Create provisions a new instance for the spec. It does not boot it.
	Create(ctx context.Context, spec types.DeviceSpec) (*types.DeviceInstance, error)
	// Destroy deallocates the instance.
	Destroy(ctx context.Context, inst *types.DeviceInstance) error
	// Boot starts the instance asynchronously; readiness is observed via State.
	Boot(ctx context.Context, inst *types.DeviceInstance) error
	// Shutdown requests a graceful stop, falling back to a forced one.
	Shutdown(ctx context.Context, inst *types.DeviceInstance) error
	// State reports the instance's current lifecycle state.
	State(ctx context.Context, inst *types.DeviceInstance) (types.State, error)
	// List returns every instance this platform currently knows about.
	List(ctx context.Context) ([]*types.DeviceInstance, error)
}
