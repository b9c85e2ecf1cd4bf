// Package errs carries the engine's error taxonomy: construction-time
// configuration errors, runtime rejections, and a Fault panic type for
// invariant violations that indicate a planner bug rather than bad input.
//
// Grounded on the teacher's common/errors package (a Code string type plus
// a table of named codes).
package errs

import "fmt"

// Code names one kind of configuration or runtime error.
type Code string

const (
	// Configuration errors (spec.md §7): surfaced to stderr, construction
	// aborts, no engine is returned.
	NegativeFeedrate    Code = "config.negative_feedrate"
	NegativeAcceleration Code = "config.negative_acceleration"
	IllegalAxisMapping  Code = "config.illegal_axis_mapping"
	IllegalEndstopChar  Code = "config.illegal_endstop_char"
	TooManyConnectors   Code = "config.too_many_connectors"
	MissingRangeForHome Code = "config.missing_range_for_home"
	DualHomeEndstop     Code = "config.dual_home_endstop"
	InvalidStepsPerMM   Code = "config.invalid_steps_per_mm"

	// Runtime rejections (spec.md §7): printed on the message stream, move
	// skipped, request returns false, no state mutation.
	NotHomed    Code = "runtime.not_homed"
	OutOfRange  Code = "runtime.out_of_range"
	NoHomeEndstop Code = "runtime.no_home_endstop"
	NoProbeEndstop Code = "runtime.no_probe_endstop"
	SpeedFactorTooLow Code = "runtime.speed_factor_too_low"
)

// ConfigError is returned from config construction; Create() returns no
// object when this is non-nil.
type ConfigError struct {
	Code    Code
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewConfigError(code Code, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RuntimeRejection describes a request declined at run time (homing
// required, range check failed, ...). The planner's own handlers do not
// return it: they print their diagnostic on the message stream and return
// false.
type RuntimeRejection struct {
	Code    Code
	Message string
}

func (e *RuntimeRejection) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewRuntimeRejection(code Code, format string, args ...interface{}) *RuntimeRejection {
	return &RuntimeRejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Fault marks an invariant violation: a planner-internal bug, not bad
// input. Production code raises it with Raise(); internal/planner
// recovers it at the one call site that reaches the segment emitter and
// reports it on the message stream, mirroring BeagleG's
// assert()-and-abort policy without taking the whole process down.
type Fault struct {
	Message string
}

func (f *Fault) Error() string {
	return "invariant violation: " + f.Message
}

// Raise panics with a *Fault. Only call this for conditions spec.md §7
// classifies as implementation bugs (e.g. a defining-axis delta of zero
// paired with a positive speed).
func Raise(format string, args ...interface{}) {
	panic(&Fault{Message: fmt.Sprintf(format, args...)})
}
