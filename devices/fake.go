package devices

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/fleetci/device-harness/types"
)

// FakePlatform is an in-memory Platform for tests. Devices become ready
// after a configurable number of state polls, and every lifecycle call is
// counted so tests can assert exactly-once teardown.
type FakePlatform struct {
	mu      sync.Mutex
	nextID  int
	devices map[string]*fakeDevice

	// ReadyAfterPolls is how many Boot-state polls a device stays in
	// booting before reporting ready. Zero means ready on first poll.
	ReadyAfterPolls int

	createErrs map[string]error
	bootErrs   map[string]error
	stuck      map[string]bool

	createCalls   map[string]int
	destroyCalls  map[string]int
	shutdownCalls map[string]int
}

type fakeDevice struct {
	inst      *types.DeviceInstance
	state     types.State
	pollsLeft int
}

// NewFakePlatform creates an empty fake platform.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		devices:       make(map[string]*fakeDevice),
		createErrs:    make(map[string]error),
		bootErrs:      make(map[string]error),
		stuck:         make(map[string]bool),
		createCalls:   make(map[string]int),
		destroyCalls:  make(map[string]int),
		shutdownCalls: make(map[string]int),
	}
}

// FailCreate makes Create fail for the named spec.
func (p *FakePlatform) FailCreate(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createErrs[name] = err
}

// FailBoot makes Boot fail for the named spec.
func (p *FakePlatform) FailBoot(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bootErrs[name] = err
}

// StickInBooting keeps the named device in booting forever, so waits on
// readiness run into their timeout.
func (p *FakePlatform) StickInBooting(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stuck[name] = true
}

// CreateCalls returns how many times Create ran for the named spec.
func (p *FakePlatform) CreateCalls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createCalls[name]
}

// DestroyCalls returns how many times Destroy ran for the named spec.
func (p *FakePlatform) DestroyCalls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyCalls[name]
}

// ShutdownCalls returns how many times Shutdown ran for the named spec.
func (p *FakePlatform) ShutdownCalls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdownCalls[name]
}

func (p *FakePlatform) Create(ctx context.Context, spec types.DeviceSpec) (*types.DeviceInstance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls[spec.Name]++
	if err := p.createErrs[spec.Name]; err != nil {
		return nil, err
	}
	p.nextID++
	inst := &types.DeviceInstance{
		ID:    fmt.Sprintf("fake-%d", p.nextID),
		Spec:  spec,
		State: types.StateCreated,
	}
	p.devices[spec.Name] = &fakeDevice{inst: inst, state: types.StateCreated}
	return inst, nil
}

func (p *FakePlatform) Destroy(ctx context.Context, inst *types.DeviceInstance) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyCalls[inst.Spec.Name]++
	d, ok := p.devices[inst.Spec.Name]
	if !ok || d.inst.ID != inst.ID {
		return nil
	}
	d.state = types.StateDeleted
	delete(p.devices, inst.Spec.Name)
	return nil
}

func (p *FakePlatform) Boot(ctx context.Context, inst *types.DeviceInstance) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bootErrs[inst.Spec.Name]; err != nil {
		return err
	}
	d, ok := p.devices[inst.Spec.Name]
	if !ok {
		return errors.Errorf("boot of unknown device %s", inst.Spec.Name)
	}
	d.state = types.StateBooting
	d.pollsLeft = p.ReadyAfterPolls
	return nil
}

func (p *FakePlatform) Shutdown(ctx context.Context, inst *types.DeviceInstance) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdownCalls[inst.Spec.Name]++
	d, ok := p.devices[inst.Spec.Name]
	if !ok {
		return errors.Errorf("shutdown of unknown device %s", inst.Spec.Name)
	}
	d.state = types.StateShuttingDown
	return nil
}

func (p *FakePlatform) State(ctx context.Context, inst *types.DeviceInstance) (types.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.devices[inst.Spec.Name]
	if !ok || d.inst.ID != inst.ID {
		return types.StateDeleted, nil
	}
	if d.state == types.StateBooting && !p.stuck[inst.Spec.Name] {
		if d.pollsLeft > 0 {
			d.pollsLeft--
		} else {
			d.state = types.StateReady
		}
	}
	return d.state, nil
}

func (p *FakePlatform) List(ctx context.Context) ([]*types.DeviceInstance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	insts := make([]*types.DeviceInstance, 0, len(p.devices))
	for _, d := range p.devices {
		insts = append(insts, d.inst)
	}
	return insts, nil
}
