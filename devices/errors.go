package devices

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetci/device-harness/types"
)

// ProvisioningError means the platform could not create or reset a device
// for the requested type/runtime combination.
type ProvisioningError struct {
	Spec types.DeviceSpec
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning device %s: %v", e.Spec, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// IsProvisioningError checks if the error is or wraps a ProvisioningError.
func IsProvisioningError(err error) bool {
	var pe *ProvisioningError
	return err != nil && errors.As(err, &pe)
}

// TimeoutError means a device did not reach the awaited state within the
// bound. During the boot phase this is the spec's boot timeout.
type TimeoutError struct {
	Device    string
	LastState types.State
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("device %s did not leave state %q within %s", e.Device, e.LastState, e.Timeout)
}

// IsTimeoutError checks if the error is or wraps a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return err != nil && errors.As(err, &te)
}

// TeardownError wraps a failure while shutting down or deleting a device.
// Teardown is best effort: callers log it and move on.
type TeardownError struct {
	Device string
	Op     string
	Err    error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown of device %s: %s: %v", e.Device, e.Op, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}

// IsTeardownError checks if the error is or wraps a TeardownError.
func IsTeardownError(err error) bool {
	var te *TeardownError
	return err != nil && errors.As(err, &te)
}
