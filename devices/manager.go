package devices

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/fleetci/device-harness/types"
)

const defaultPollInterval = 500 * time.Millisecond

// Manager drives device lifecycles over a Platform. All operations are
// independent across instances; the manager holds no shared mutable state,
// so concurrent use for different devices needs no coordination.
type Manager struct {
	platform     Platform
	clock        clock.Clock
	pollInterval time.Duration
	log          log.Logger
}

// NewManager creates a Manager over the given platform.
func NewManager(platform Platform, logger log.Logger) *Manager {
	return &Manager{
		platform:     platform,
		clock:        clock.NewClock(),
		pollInterval: defaultPollInterval,
		log:          logger.New("component", "device-manager"),
	}
}

// WithClock substitutes the clock used for state polling. Intended for tests.
func (m *Manager) WithClock(clk clock.Clock, pollInterval time.Duration) *Manager {
	m.clock = clk
	m.pollInterval = pollInterval
	return m
}

// ResetDevice guarantees a clean slate for the spec: any existing instance
// with the same spec name is destroyed first, then a fresh one is
// provisioned. Failures surface as ProvisioningError.
func (m *Manager) ResetDevice(ctx context.Context, spec types.DeviceSpec) (*types.DeviceInstance, error) {
	if err := spec.Validate(); err != nil {
		return nil, &ProvisioningError{Spec: spec, Err: err}
	}

	existing, err := m.platform.List(ctx)
	if err != nil {
		return nil, &ProvisioningError{Spec: spec, Err: errors.Wrap(err, "listing existing devices")}
	}
	for _, inst := range existing {
		if inst.Spec.Name != spec.Name {
			continue
		}
		m.log.Info("Destroying stale device instance", "device", spec.Name, "id", inst.ID)
		if err := m.platform.Destroy(ctx, inst); err != nil {
			return nil, &ProvisioningError{Spec: spec, Err: errors.Wrap(err, "destroying stale instance")}
		}
	}

	inst, err := m.platform.Create(ctx, spec)
	if err != nil {
		return nil, &ProvisioningError{Spec: spec, Err: err}
	}
	inst.State = types.StateCreated
	m.log.Debug("Provisioned device", "device", spec.Name, "id", inst.ID)
	return inst, nil
}

// Launch begins the instance's asynchronous boot. Readiness is observed
// separately through WaitForState.
func (m *Manager) Launch(ctx context.Context, inst *types.DeviceInstance) error {
	if err := m.platform.Boot(ctx, inst); err != nil {
		return errors.Wrapf(err, "booting device %s", inst.Spec.Name)
	}
	inst.State = types.StateBooting
	m.log.Debug("Device booting", "device", inst.Spec.Name, "id", inst.ID)
	return nil
}

// WaitForState polls the platform until pred holds for the instance's state,
// the timeout elapses, or ctx is done. The instance's cached state is
// refreshed on every observation.
func (m *Manager) WaitForState(ctx context.Context, inst *types.DeviceInstance, pred func(types.State) bool, timeout time.Duration) error {
	deadline := m.clock.Now().Add(timeout)
	for {
		state, err := m.platform.State(ctx, inst)
		if err != nil {
			// Transient observation failures are retried until the deadline.
			m.log.Debug("Device state query failed", "device", inst.Spec.Name, "err", err)
		} else {
			inst.State = state
			if pred(state) {
				return nil
			}
		}

		if !m.clock.Now().Before(deadline) {
			return &TimeoutError{Device: inst.Spec.Name, LastState: inst.State, Timeout: timeout}
		}
		timer := m.clock.NewTimer(m.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrapf(ctx.Err(), "waiting for device %s", inst.Spec.Name)
		case <-timer.C():
		}
	}
}

// Kill requests the instance's shutdown, gracefully first and destroying it
// outright if the graceful path fails.
func (m *Manager) Kill(ctx context.Context, inst *types.DeviceInstance) error {
	if err := m.platform.Shutdown(ctx, inst); err != nil {
		m.log.Warn("Graceful shutdown failed, forcing destroy", "device", inst.Spec.Name, "err", err)
		if derr := m.platform.Destroy(ctx, inst); derr != nil {
			return &TeardownError{Device: inst.Spec.Name, Op: "forced destroy", Err: derr}
		}
		inst.State = types.StateDeleted
		return nil
	}
	inst.State = types.StateShuttingDown
	return nil
}

// Delete deallocates the instance. Valid only once shutdown has been
// observed; deleting a device that may still be running is refused.
func (m *Manager) Delete(ctx context.Context, inst *types.DeviceInstance) error {
	if inst.State != types.StateShuttingDown && inst.State != types.StateDeleted {
		return &TeardownError{
			Device: inst.Spec.Name,
			Op:     "delete",
			Err:    errors.Errorf("device in state %q, shutdown not observed", inst.State),
		}
	}
	if inst.State == types.StateDeleted {
		return nil
	}
	if err := m.platform.Destroy(ctx, inst); err != nil {
		return &TeardownError{Device: inst.Spec.Name, Op: "destroy", Err: err}
	}
	inst.State = types.StateDeleted
	m.log.Debug("Device deleted", "device", inst.Spec.Name, "id", inst.ID)
	return nil
}
