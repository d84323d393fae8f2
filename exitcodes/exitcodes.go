// Package exitcodes defines the standard exit codes used by device-harness.
package exitcodes

// Exit code constants used by device-harness
// These constants define the exit codes that the application uses to
// indicate various states when it exits:
//
// * Success (0): Used when every device's runner exits clean
// * TestFailure (1): Used when any device's execution outcome is non-zero
// * RuntimeErr (2): Used for runtime errors such as build failures, bad
//   configuration or panics
const (
	Success     = 0 // All devices pass
	TestFailure = 1 // At least one device failed
	RuntimeErr  = 2 // Runtime errors, build failures or bad configuration
)
