package runner

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/fleetci/device-harness/builder"
	"github.com/fleetci/device-harness/devices"
	"github.com/fleetci/device-harness/logging"
	"github.com/fleetci/device-harness/metrics"
	"github.com/fleetci/device-harness/types"
)

const (
	DefaultBootTimeout     = 5 * time.Minute
	DefaultTeardownTimeout = 2 * time.Minute
)

// Config wires a Dispatcher.
type Config struct {
	Specs           []types.DeviceSpec
	Scope           types.TestScope
	Manager         *devices.Manager
	Builder         builder.Builder
	Runner          Runner
	Artifacts       *logging.FileLogger
	BootTimeout     time.Duration
	TeardownTimeout time.Duration
	Log             log.Logger
}

// Dispatcher provisions the device fleet, coordinates the one-time build,
// runs one execution unit per device and aggregates their outcomes. The
// unit count always equals the configured device count; units are never
// pooled, queued or reused.
type Dispatcher struct {
	cfg Config
	log log.Logger
}

// NewDispatcher validates cfg and creates a Dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if len(cfg.Specs) == 0 {
		return nil, errors.New("at least one device spec is required")
	}
	if cfg.Manager == nil {
		return nil, errors.New("device manager is required")
	}
	if cfg.Builder == nil {
		return nil, errors.New("builder is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Artifacts == nil {
		return nil, errors.New("artifact logger is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.BootTimeout == 0 {
		cfg.BootTimeout = DefaultBootTimeout
	}
	if cfg.TeardownTimeout == 0 {
		cfg.TeardownTimeout = DefaultTeardownTimeout
	}
	return &Dispatcher{cfg: cfg, log: cfg.Log.New("component", "dispatcher")}, nil
}

// Dispatch runs one full pass over the fleet and returns the aggregate
// result. Exactly one ExecutionOutcome is produced per configured device,
// also under partial failure. The only fatal error is a build failure; it
// still tears down every device launched by then.
func (d *Dispatcher) Dispatch(ctx context.Context) (*types.AggregateResult, error) {
	ctx, span := otel.Tracer("device-harness").Start(ctx, "dispatch")
	defer span.End()

	start := time.Now()
	runID := d.cfg.Artifacts.RunID()
	d.log.Info("Dispatching run", "run_id", runID, "devices", len(d.cfg.Specs), "scope", d.cfg.Scope.String())

	// Reprovision and launch every device. Launches only initiate the boot,
	// so the devices keep booting while the build below runs.
	insts := make([]*types.DeviceInstance, len(d.cfg.Specs))
	launchErrs := make([]error, len(d.cfg.Specs))
	var g errgroup.Group
	for i, spec := range d.cfg.Specs {
		i, spec := i, spec
		g.Go(func() error {
			inst, err := d.cfg.Manager.ResetDevice(ctx, spec)
			if err != nil {
				launchErrs[i] = err
				return err
			}
			insts[i] = inst
			if err := d.cfg.Manager.Launch(ctx, inst); err != nil {
				launchErrs[i] = err
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Per-device failures stay per-device; the run proceeds with the
		// rest of the fleet.
		d.log.Warn("Not all devices launched", "err", err)
		metrics.RecordError("device_launch")
	}

	// The build is the synchronization barrier: it runs exactly once and no
	// execution unit ever starts without it having succeeded.
	artifactDir, err := d.cfg.Builder.Build(ctx)
	if err != nil {
		d.log.Error("Build failed, aborting dispatch", "err", err)
		metrics.RecordError("build_failure")
		d.teardownAll(ctx, insts)
		return nil, errors.Wrap(err, "building test artifacts")
	}

	// One unit per device, all started together. Each unit writes only its
	// own outcome slot; the pool wait is the join-all barrier, so the slice
	// is never read while partially populated.
	outcomes := make([]types.ExecutionOutcome, len(d.cfg.Specs))
	p := pool.New()
	for i := range d.cfg.Specs {
		i := i
		if launchErrs[i] != nil {
			outcomes[i] = types.ExecutionOutcome{
				DeviceName: d.cfg.Specs[i].Name,
				ExitStatus: 1,
				Err:        launchErrs[i],
			}
			if inst := insts[i]; inst != nil {
				// Created but never left the launchpad; destroy it without
				// involving a unit.
				p.Go(func() { d.teardownOne(ctx, inst) })
			}
			continue
		}
		unit := NewUnit(insts[i], d.cfg.Manager, d.cfg.Runner, Invocation{
			DeviceID:    insts[i].ID,
			Scope:       d.cfg.Scope,
			LogPath:     d.cfg.Artifacts.DeviceLogPath(d.cfg.Specs[i].Name),
			ReportPath:  d.cfg.Artifacts.DeviceReportPath(d.cfg.Specs[i].Name),
			ArtifactDir: artifactDir,
		}, d.cfg.BootTimeout, d.cfg.TeardownTimeout, d.log)
		p.Go(func() {
			outcomes[i] = unit.Execute(ctx)
		})
	}
	p.Wait()

	result := &types.AggregateResult{
		RunID:    runID,
		Duration: time.Since(start),
		Outcomes: outcomes,
	}
	// Combined status is the OR of the per-device exit statuses: any
	// non-zero status makes the whole run non-zero.
	for _, o := range outcomes {
		result.ExitStatus |= o.ExitStatus
	}

	d.log.Info("Run complete", "run_id", runID, "status", result.ExitStatus,
		"failed", result.FailedCount(), "duration", result.Duration)
	return result, nil
}

// teardownAll destroys every launched device after a fatal build failure.
func (d *Dispatcher) teardownAll(ctx context.Context, insts []*types.DeviceInstance) {
	var g errgroup.Group
	for _, inst := range insts {
		if inst == nil {
			continue
		}
		inst := inst
		g.Go(func() error {
			d.teardownOne(ctx, inst)
			return nil
		})
	}
	_ = g.Wait()
}

// teardownOne is the best-effort kill/wait/delete sequence for devices that
// never got an execution unit.
func (d *Dispatcher) teardownOne(ctx context.Context, inst *types.DeviceInstance) {
	if err := d.cfg.Manager.Kill(ctx, inst); err != nil {
		d.log.Warn("Device teardown failed", "device", inst.Spec.Name, "err", err)
		metrics.RecordTeardownFailure(inst.Spec.Name)
		return
	}
	if inst.State == types.StateDeleted {
		return
	}
	err := d.cfg.Manager.WaitForState(ctx, inst, func(s types.State) bool {
		return s == types.StateShuttingDown || s == types.StateDeleted
	}, d.cfg.TeardownTimeout)
	if err != nil {
		d.log.Warn("Device teardown failed", "device", inst.Spec.Name, "err", err)
		metrics.RecordTeardownFailure(inst.Spec.Name)
		return
	}
	if err := d.cfg.Manager.Delete(ctx, inst); err != nil {
		d.log.Warn("Device teardown failed", "device", inst.Spec.Name, "err", err)
		metrics.RecordTeardownFailure(inst.Spec.Name)
	}
}
