// Package planner implements the planner driver (spec.md §4.4 "C5"),
// auxiliary state and M-code surface (§4.7 "C7"), and wires them to the
// lookahead ring (C2), kinematics math (C3) and segment emitter (C4).
//
// Grounded on BeagleG's GCodeMachineControl::Impl (original_source/
// gcode-machine-control.cc), translated from inheriting GCodeParser::Events
// into providing events.Receiver, and on the teacher's stepper_enable.go /
// homing_override.go for the shape of enable/disable and homing-state
// bookkeeping in idiomatic Go.
package planner

import (
	"fmt"
	"io"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/backend"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/errs"
	"github.com/holla2040/beagleg/internal/events"
	"github.com/holla2040/beagleg/internal/homing"
	"github.com/holla2040/beagleg/internal/kinematics"
	"github.com/holla2040/beagleg/internal/logging"
	"github.com/holla2040/beagleg/internal/peripheral"
	"github.com/holla2040/beagleg/internal/ring"
	"github.com/holla2040/beagleg/internal/segment"
)

var _ events.Receiver = (*Planner)(nil)

// HomingState tracks homing confidence (spec.md §4.6).
type HomingState int

const (
	NeverHomed HomingState = iota
	HomedButMotorsUnpowered
	Homed
)

func (s HomingState) String() string {
	switch s {
	case NeverHomed:
		return "never homed"
	case HomedButMotorsUnpowered:
		return "homed, motors unpowered since"
	case Homed:
		return "homed"
	default:
		return "unknown"
	}
}

// Planner is the engine's single-threaded, cooperative driver. One
// Planner instance owns one machine; it is not safe for concurrent use
// (spec.md §5: the parser dispatches one event at a time to completion).
type Planner struct {
	cfg        *config.Config
	motor      backend.MotorOperations
	peripheral peripheral.Peripheral
	msgStream  io.Writer
	log        *logging.Loggers
	sessionID  string

	buf *ring.Ring[kinematics.Target]

	currentFeedrateMMs     float64
	progSpeedFactor        float64
	auxBits                uint16
	spindleRPM             int
	coordinateDisplayOrigin [axis.NumAxes]float64
	homingState            HomingState

	onEmit func()
}

// New constructs a Planner over an already-validated Config. The ring is
// seeded with the sentinel origin record per spec.md §4.1.
func New(cfg *config.Config, motor backend.MotorOperations, per peripheral.Peripheral, msgStream io.Writer, log *logging.Loggers) *Planner {
	if log == nil {
		log = logging.Discard()
	}
	p := &Planner{
		cfg:             cfg,
		motor:           motor,
		peripheral:      per,
		msgStream:       msgStream,
		log:             log,
		sessionID:       uuid.NewV4().String(),
		progSpeedFactor: 1.0,
		homingState:     NeverHomed,
		buf:             ring.New[kinematics.Target](),
	}
	*p.buf.Append() = kinematics.NewOrigin(cfg)
	p.currentFeedrateMMs = cfg.MaxFeedrateMMs(axis.X) / 10
	return p
}

func (p *Planner) mprintf(format string, args ...interface{}) {
	if p.msgStream == nil {
		return
	}
	fmt.Fprintf(p.msgStream, format, args...)
}

// issueMotorMoveIfPossible implements "if we have enough data in the
// queue, issue motor move" (spec.md §4.4 emission trigger). This is the
// engine's one call site into segment.Emit, so it is also the outermost
// boundary this repo itself controls for recovering a *errs.Fault: there
// is no command-dispatch loop above the planner here (the G-code parser
// that would own one is out of scope per spec.md §1), so the boundary
// lives at the point the planner actually emits segments rather than at
// some caller further up a stack this repo does not build.
func (p *Planner) issueMotorMoveIfPossible() {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		f, ok := r.(*errs.Fault)
		if !ok {
			panic(r)
		}
		p.log.Error.Printf("%v", f)
		p.mprintf("// FAULT: %v\n", f)
	}()

	if p.buf.Size() < 3 {
		return
	}
	prev := p.buf.At(0)
	curr := p.buf.At(1)
	next := p.buf.At(2)

	segs := segment.Emit(p.cfg, prev, curr, next)
	if p.cfg.Synchronous() && len(segs) > 0 {
		p.motor.WaitQueueEmpty()
	}
	for _, s := range segs {
		p.motor.Enqueue(s, p.msgStream)
	}
	p.log.Debug.Printf("emitted %d segment(s) for defining axis %c (v0..v1 chain)", len(segs), curr.DefiningAxis.Letter())
	if len(segs) > 0 && p.onEmit != nil {
		p.onEmit()
	}
	p.buf.PopFront()
}

// machineMove implements spec.md §4.2's "machine_move": append a new
// target computed from feedrateMMs and targetMM, then try to emit.
func (p *Planner) machineMove(feedrateMMs float64, targetMM [axis.NumAxes]float64) {
	prev := p.buf.Back()
	t := kinematics.BuildTarget(p.cfg, prev, targetMM, feedrateMMs, p.auxBits)
	*p.buf.Append() = t
	p.issueMotorMoveIfPossible()
}

func (p *Planner) testHomingStatusOK() bool {
	if !p.cfg.RequireHoming() {
		return true
	}
	if p.homingState > NeverHomed {
		return true
	}
	p.mprintf("// ERROR: please home machine first (G28).\n")
	return false
}

func (p *Planner) testWithinMachineLimits(target [axis.NumAxes]float64) bool {
	if !p.cfg.RangeCheck() {
		return true
	}
	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if target[i] < 0 {
			if p.coordinateDisplayOrigin[i] != 0 {
				p.mprintf("// ERROR outside machine limit: Axis %c < min allowed %+.1fmm in current coordinate system. Ignoring move!\n",
					i.Letter(), -p.coordinateDisplayOrigin[i])
			} else {
				p.mprintf("// ERROR outside machine limit: Axis %c < 0. Ignoring move!\n", i.Letter())
			}
			return false
		}
		maxLimit := p.cfg.MoveRangeMM(i)
		if maxLimit <= 0 {
			continue
		}
		if target[i] > maxLimit {
			if p.coordinateDisplayOrigin[i] != 0 {
				p.mprintf("// ERROR outside machine limit: Axis %c > max allowed %+.1fmm in current coordinate system (=%.1fmm machine absolute). Ignoring move!\n",
					i.Letter(), maxLimit-p.coordinateDisplayOrigin[i], maxLimit)
			} else {
				p.mprintf("// ERROR outside machine limit: Axis %c > %.1fmm. Ignoring move!\n", i.Letter(), maxLimit)
			}
			return false
		}
	}
	return true
}

// CoordinatedMove implements G1 (spec.md §4.4).
func (p *Planner) CoordinatedMove(feedMMs float64, target [axis.NumAxes]float64) bool {
	if !p.testHomingStatusOK() {
		return false
	}
	if !p.testWithinMachineLimits(target) {
		return false
	}
	if feedMMs > 0 {
		p.currentFeedrateMMs = p.cfg.SpeedFactor() * feedMMs
	}
	effective := p.progSpeedFactor * p.currentFeedrateMMs
	p.machineMove(p.substituteZeroFeedrate(effective), target)
	return true
}

// RapidMove implements G0 (spec.md §4.4).
func (p *Planner) RapidMove(feedMMs float64, target [axis.NumAxes]float64) bool {
	if !p.testHomingStatusOK() {
		return false
	}
	if !p.testWithinMachineLimits(target) {
		return false
	}
	given := p.cfg.SpeedFactor() * p.progSpeedFactor * feedMMs
	rapid := p.cfg.G0FeedrateMMs()
	effective := rapid
	if given > 0 {
		effective = given
	}
	p.machineMove(p.substituteZeroFeedrate(effective), target)
	return true
}

// substituteZeroFeedrate converts a non-positive mm/s feedrate into a
// floor so downstream step-rate math never divides by (or multiplies by)
// zero. This is expressed in mm/s terms equivalent to
// ZeroFeedrateOverrideHz on the X axis, matching spec.md §4.3's intent
// that a literal zero feedrate resolves to 5 Hz of defining-axis step
// frequency rather than a stalled move.
func (p *Planner) substituteZeroFeedrate(feedMMs float64) float64 {
	if feedMMs > 0 {
		return feedMMs
	}
	if p.cfg.StepsPerMM(axis.X) <= 0 {
		return 0
	}
	return config.ZeroFeedrateOverrideHz / p.cfg.StepsPerMM(axis.X)
}

// BringPathToHalt appends a zero-speed halt marker at the last known
// position and drains by emission (spec.md §4.4).
func (p *Planner) BringPathToHalt() {
	prev := p.buf.Back()
	halt := kinematics.HaltTarget(prev, p.auxBits)
	*p.buf.Append() = halt
	p.issueMotorMoveIfPossible()
}

// Dwell implements G4 (spec.md §4.4).
func (p *Planner) Dwell(ms float64) {
	p.BringPathToHalt()
	p.motor.WaitQueueEmpty()
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// MotorsEnable implements M17/M18/M84 (spec.md §4.4, §4.6).
func (p *Planner) MotorsEnable(enable bool) {
	p.BringPathToHalt()
	p.motor.MotorEnable(enable)
	if !enable && p.homingState == Homed {
		p.homingState = HomedButMotorsUnpowered
	}
}

// SetSpeedFactor implements M220 (spec.md §4.4).
func (p *Planner) SetSpeedFactor(v float64) {
	if v < 0 {
		v = 1.0 + v
	}
	if v < 0.005 {
		p.mprintf("// M220: Not accepting speed factors < 0.5%% (got %.1f%%)\n", 100.0*v)
		return
	}
	p.progSpeedFactor = v
}

// GcodeStart is a no-op (spec.md §6).
func (p *Planner) GcodeStart() {}

// GcodeFinished brings the path to a halt (spec.md §6).
func (p *Planner) GcodeFinished() { p.BringPathToHalt() }

// InputIdle brings the path to a halt (spec.md §6).
func (p *Planner) InputIdle() { p.BringPathToHalt() }

// InformOriginOffset updates the M114 display origin (spec.md §6).
func (p *Planner) InformOriginOffset(origin [axis.NumAxes]float64) {
	p.coordinateDisplayOrigin = origin
}

// GcodeCommandDone emits the parser's "ok" acknowledgement (spec.md §6).
func (p *Planner) GcodeCommandDone(letter byte, val float64) {
	p.mprintf("ok\n")
}

// GoHome implements G28 (spec.md §6, §4.5). Homing bypasses the lookahead
// ring entirely, so any queued moves are drained first.
func (p *Planner) GoHome(axesBitmap uint16) {
	p.BringPathToHalt()
	homing.GoHome(p, axesBitmap)
	if p.homingState == NeverHomed || p.homingState == HomedButMotorsUnpowered {
		p.homingState = Homed
	}
}

// ProbeAxis implements G30 (spec.md §6, §4.5).
func (p *Planner) ProbeAxis(feedMMs float64, a axis.Axis) (float64, bool) {
	p.BringPathToHalt()
	return homing.ProbeAxis(p, feedMMs, a)
}

// SetHomePosition lets internal/homing report the freshly homed absolute
// position back into the lookahead ring's established position record
// (spec.md §4.1, §4.5).
func (p *Planner) SetHomePosition(a axis.Axis, steps int) {
	back := p.buf.Back()
	back.PositionSteps[a] = steps
}

// PositionSteps returns the established absolute position of axis a in
// the lookahead ring's back record, so internal/homing can add the steps
// a probe actually moved onto the machine's known position (spec.md
// §4.1, §4.5).
func (p *Planner) PositionSteps(a axis.Axis) int {
	return p.buf.Back().PositionSteps[a]
}

// WaitForStart blinks an LED GPIO while the START GPIO reads high
// (spec.md §6, SPEC_FULL.md §4).
func (p *Planner) WaitForStart() {
	const flash = 100 * time.Millisecond
	for p.peripheral.Read(peripheral.PinStart) {
		p.peripheral.Set(peripheral.PinLED)
		time.Sleep(flash)
		p.peripheral.Clear(peripheral.PinLED)
		time.Sleep(flash)
	}
}

// SetFanspeed implements M106/M107 (spec.md §6).
func (p *Planner) SetFanspeed(v float64) {
	if v < 0 || v > 255 {
		return
	}
	duty := v / 255.0
	if duty == 0 {
		p.peripheral.Clear(peripheral.PinFan)
		p.peripheral.PWMStart(peripheral.PinFan, false)
		return
	}
	p.peripheral.Set(peripheral.PinFan)
	p.peripheral.PWMSetDuty(peripheral.PinFan, duty)
	p.peripheral.PWMStart(peripheral.PinFan, true)
}

// SetTemperature and WaitTemperature are stubs (spec.md §1 Out of scope:
// "Temperature control (stubbed)").
func (p *Planner) SetTemperature(degreesC float64) {
	p.mprintf("// motionctl: set_temperature(%.1f) not implemented.\n", degreesC)
}

func (p *Planner) WaitTemperature() {
	p.mprintf("// motionctl: wait_temperature() not implemented.\n")
}

// SessionID returns the planner's UUID, reported in the boot banner and the
// status snapshot. It is separate from the loggers' own session id, which
// is what log lines are prefixed with.
func (p *Planner) SessionID() string { return p.sessionID }

// HomingStateValue reports current homing confidence.
func (p *Planner) HomingStateValue() HomingState { return p.homingState }

// setHomingState sets the homing state directly.
func (p *Planner) setHomingState(s HomingState) { p.homingState = s }

// Config exposes the validated config for collaborators (homing package).
func (p *Planner) Config() *config.Config { return p.cfg }

// Motor exposes the motor-operations back-end for collaborators.
func (p *Planner) Motor() backend.MotorOperations { return p.motor }

// Peripheral exposes the GPIO/PWM façade for collaborators.
func (p *Planner) Peripheral() peripheral.Peripheral { return p.peripheral }

// Buffer exposes the lookahead ring for collaborators that need to read or
// patch the current back record (e.g. internal/status reads its position
// for the status snapshot).
func (p *Planner) Buffer() *ring.Ring[kinematics.Target] { return p.buf }

// AuxBits returns the current auxiliary output bitmap.
func (p *Planner) AuxBits() uint16 { return p.auxBits }

// MsgStream exposes the message stream for collaborators that print
// diagnostics (homing, probing).
func (p *Planner) MsgStream() io.Writer { return p.msgStream }

// Mprintf lets collaborators in sibling packages print to the message
// stream using the same "only prints if there is a stream" semantics as
// the rest of the planner.
func (p *Planner) Mprintf(format string, args ...interface{}) { p.mprintf(format, args...) }

// SetOnEmit registers a callback invoked after every emitted segment
// batch (spec.md §3 telemetry: "pushes a status frame after every
// emitted segment triple"). Kept as a plain func() rather than an
// internal/status import so internal/planner never depends on the
// status package that itself depends on internal/planner.
func (p *Planner) SetOnEmit(fn func()) { p.onEmit = fn }
