package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDeviceOutcome(t *testing.T) {
	before := testutil.CollectAndCount(deviceOutcomesTotal)
	RecordDeviceOutcome("run-1", "phone-a", "pass", 3*time.Second)
	RecordDeviceOutcome("run-1", "phone-b", "fail", 5*time.Second)
	assert.Equal(t, before+2, testutil.CollectAndCount(deviceOutcomesTotal))
}

func TestRecordRun(t *testing.T) {
	RecordRun("run-1", "fail", 90*time.Second)
	assert.Equal(t, 90.0, testutil.ToFloat64(runDuration.WithLabelValues("run-1")))
}

func TestRecordTeardownFailure(t *testing.T) {
	RecordTeardownFailure("phone-a")
	RecordTeardownFailure("phone-a")
	assert.Equal(t, 2.0, testutil.ToFloat64(teardownFailuresTotal.WithLabelValues("phone-a")))
}
