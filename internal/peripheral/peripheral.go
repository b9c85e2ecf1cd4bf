// Package peripheral defines the injected GPIO/PWM abstraction spec.md §9
// calls for ("Global GPIO/PWM primitives become an injected peripheral
// abstraction... allows unit-testing the planner against a recorded GPIO
// trace"), plus a sysfs-backed implementation and an in-memory mock used
// by tests and the homing/probing unit tests in internal/homing.
package peripheral

// Pin identifies one GPIO or PWM-capable line. The concrete mapping from
// logical pin to physical descriptor (ESTOP, endstop N, AUX 1..16, FAN,
// LED, START, MACHINE_PWR, ...) lives in the caller, mirroring BeagleG's
// GPIO_DEF constants.
type Pin uint32

// Well-known pins, grounded on BeagleG's GPIO_DEF table (original_source).
const (
	PinNotMapped Pin = 0
	PinEstop     Pin = 1
	PinLED       Pin = 2
	PinStart     Pin = 3
	PinFan       Pin = 4
	PinMachinePower Pin = 5
	// Endstop1..Endstop6 and Aux1..Aux16 are allocated from a shared
	// namespace above the fixed pins so callers can range over them.
	endstopBase Pin = 100
	auxBase     Pin = 200
)

func Endstop(n int) Pin { return endstopBase + Pin(n) } // n: 1..NumEndstops
func Aux(n int) Pin     { return auxBase + Pin(n) }      // n: 0..15

// Peripheral is the injected GPIO/PWM façade. Implementations must be safe
// to call from the single planner goroutine only (the engine is
// single-threaded and cooperative; see spec.md §5).
type Peripheral interface {
	Set(p Pin)
	Clear(p Pin)
	Read(p Pin) bool
	PWMStart(p Pin, enable bool)
	PWMSetDuty(p Pin, duty float64)
}
