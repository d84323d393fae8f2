package harness

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleetci/device-harness/types"
)

// trackedMockExecutor counts Execute calls and signals each one on a channel
// so tests can wait for runs without sleeping.
type trackedMockExecutor struct {
	mock.Mock
	execCount atomic.Int32
	execCh    chan struct{}
}

func newTrackedMockExecutor() *trackedMockExecutor {
	return &trackedMockExecutor{execCh: make(chan struct{}, 16)}
}

func (m *trackedMockExecutor) Execute(ctx context.Context) (*types.AggregateResult, error) {
	m.execCount.Add(1)
	select {
	case m.execCh <- struct{}{}:
	default:
	}
	args := m.Called(ctx)
	var result *types.AggregateResult
	if args.Get(0) != nil {
		result = args.Get(0).(*types.AggregateResult)
	}
	return result, args.Error(1)
}

func (m *trackedMockExecutor) waitForExecutions(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for int(m.execCount.Load()) < n {
		select {
		case <-m.execCh:
		case <-deadline:
			t.Fatalf("timed out waiting for %d executions, got %d", n, m.execCount.Load())
		}
	}
}

func newTestHarness(t *testing.T, runOnce bool, interval time.Duration, executor RunExecutor) (*Harness, chan error) {
	t.Helper()
	logger := log.NewLogger(log.DiscardHandler())
	cfg := &Config{
		RunInterval: interval,
		RunOnce:     runOnce,
		Log:         logger,
	}
	shutdownCh := make(chan error, 1)
	h := &Harness{
		config:    cfg,
		version:   "test",
		specs:     []types.DeviceSpec{{Name: "phone-a", Type: "emulator", Runtime: "34"}},
		executor:  executor,
		scheduler: NewIntervalScheduler(interval, runOnce, logger),
		formatter: NewConsoleResultFormatter(),
		reporter:  NewDefaultMetricsReporter(),
		shutdownCallback: func(err error) {
			shutdownCh <- err
		},
	}
	return h, shutdownCh
}

func passingResult() *types.AggregateResult {
	return &types.AggregateResult{
		RunID:      "run-1",
		ExitStatus: 0,
		Duration:   time.Second,
		Outcomes: []types.ExecutionOutcome{
			{DeviceID: "dev-1", DeviceName: "phone-a", ExitStatus: 0, Duration: time.Second},
		},
	}
}

func failingResult() *types.AggregateResult {
	return &types.AggregateResult{
		RunID:      "run-2",
		ExitStatus: 1,
		Duration:   time.Second,
		Outcomes: []types.ExecutionOutcome{
			{DeviceID: "dev-1", DeviceName: "phone-a", ExitStatus: 1, Duration: time.Second},
		},
	}
}

func TestHarness_RunOnce_Pass(t *testing.T) {
	executor := newTrackedMockExecutor()
	executor.On("Execute", mock.Anything).Return(passingResult(), nil)
	h, shutdownCh := newTestHarness(t, true, 0, executor)

	err := h.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), executor.execCount.Load())
	require.NotNil(t, h.Result())
	assert.False(t, h.Result().Failed())

	select {
	case err := <-shutdownCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not invoked after run-once pass")
	}
}

func TestHarness_RunOnce_Fail(t *testing.T) {
	executor := newTrackedMockExecutor()
	executor.On("Execute", mock.Anything).Return(failingResult(), nil)
	h, _ := newTestHarness(t, true, 0, executor)

	err := h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.Equal(t, int32(1), executor.execCount.Load())
}

func TestHarness_RunOnce_ExecutorError(t *testing.T) {
	executor := newTrackedMockExecutor()
	executor.On("Execute", mock.Anything).Return(nil, assert.AnError)
	h, _ := newTestHarness(t, true, 0, executor)

	err := h.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.Nil(t, h.Result())
}

func TestHarness_Interval_RunsRepeatedly(t *testing.T) {
	executor := newTrackedMockExecutor()
	executor.On("Execute", mock.Anything).Return(passingResult(), nil)
	h, _ := newTestHarness(t, false, 10*time.Millisecond, executor)

	require.NoError(t, h.Start(context.Background()))
	executor.waitForExecutions(t, 3, 5*time.Second)

	require.NoError(t, h.Stop(context.Background()))
	assert.True(t, h.Stopped())
}

func TestHarness_Interval_KeepsRunningAfterFailure(t *testing.T) {
	executor := newTrackedMockExecutor()
	executor.On("Execute", mock.Anything).Return(passingResult(), nil).Once()
	executor.On("Execute", mock.Anything).Return(failingResult(), nil)
	h, _ := newTestHarness(t, false, 10*time.Millisecond, executor)

	require.NoError(t, h.Start(context.Background()))
	executor.waitForExecutions(t, 3, 5*time.Second)

	require.NoError(t, h.Stop(context.Background()))
	require.NotNil(t, h.Result())
	assert.True(t, h.Result().Failed())
}

func TestHarness_StopWithoutStart(t *testing.T) {
	executor := newTrackedMockExecutor()
	h, _ := newTestHarness(t, true, 0, executor)

	require.NoError(t, h.Stop(context.Background()))
	assert.True(t, h.Stopped())
}

func TestScheduler_RequiresCallback(t *testing.T) {
	s := NewIntervalScheduler(time.Second, true, log.NewLogger(log.DiscardHandler()))
	err := s.Start(context.Background())
	require.Error(t, err)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewIntervalScheduler(10*time.Millisecond, false, log.NewLogger(log.DiscardHandler()))
	var calls atomic.Int32
	s.RegisterCallback(func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.True(t, s.Stopped())
	require.NoError(t, s.WaitForShutdown(context.Background()))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
