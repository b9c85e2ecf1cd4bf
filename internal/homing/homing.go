// Package homing implements go_home, home_axis, move_to_endstop and
// probe_axis (spec.md §4.5 "C6"). It drives the planner's motor back-end
// and peripheral directly rather than going through the lookahead ring,
// mirroring BeagleG's dedicated homing code path that bypasses the
// segment queue entirely while searching for an endstop.
package homing

import (
	"io"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/backend"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/peripheral"
	"github.com/holla2040/beagleg/internal/segment"
)

// homeFeedrateMMs is the fixed creep speed home_axis moves at, matching
// BeagleG's home_axis -> move_to_endstop(axis, 15, ...) call
// (original_source:966).
const homeFeedrateMMs = 15.0

// defaultProbeFeedrateMMs is substituted when probe_axis is called with a
// non-positive feedrate (original_source:1016-1017: "if (feedrate <= 0)
// feedrate = 20;").
const defaultProbeFeedrateMMs = 20.0

// Machine is the subset of planner.Planner that homing needs. Kept as an
// interface so the homing package does not import planner (it would be a
// cycle: planner.GoHome calls into homing, homing calls back into the
// planner only through this narrow seam).
type Machine interface {
	Config() *config.Config
	Motor() backend.MotorOperations
	Peripheral() peripheral.Peripheral
	MsgStream() io.Writer
	Mprintf(format string, args ...interface{})
}

// PositionSetter lets GoHome/ProbeAxis read and report the machine's
// absolute position in the planner's lookahead ring, so it stays
// consistent with what homing/probing actually moved (spec.md §4.1,
// §4.5).
type PositionSetter interface {
	Machine
	PositionSteps(a axis.Axis) int
	SetHomePosition(a axis.Axis, steps int)
}

func endstopTriggered(p peripheral.Peripheral, ec config.EndstopConfig) bool {
	return p.Read(peripheral.Endstop(ec.Number)) == ec.TriggerHigh
}

// enqueueCreepSegment issues one homing/probing motor segment directly,
// outside the lookahead ring, exactly as BeagleG's move_to_endstop builds
// each MotorMovement via assign_steps_to_motors.
func enqueueCreepSegment(m Machine, cfg *config.Config, a axis.Axis, v0, v1 float64, steps int) {
	seg := segment.Motor{V0: v0, V1: v1}
	for motor := 0; motor < config.NumMotors; motor++ {
		if cfg.AxisToDriver(a)&(1<<uint(motor)) != 0 {
			seg.Steps[motor] = cfg.AxisFlip(a) * cfg.DriverFlip(motor) * steps
		}
	}
	m.Motor().Enqueue(seg, nil)
}

// moveToEndstop creeps axis a in direction dir (+1/-1) at feedMMs until ec
// reads triggered, enqueueing one segment per iteration and waiting for
// the back-end queue to drain before re-checking the endstop — so the GPIO
// is only sampled after the corresponding motion has actually happened
// (spec.md §4.5, original_source:922-955). If backoff is set, it then
// creeps back off the switch at a smaller step size until the endstop no
// longer reads triggered. Returns the total signed axis-frame step count
// moved (not per-motor, not axis/driver-flipped — the same frame
// position_steps is kept in) and ok=false if ec is unmapped.
func moveToEndstop(m Machine, a axis.Axis, feedMMs float64, dir int, ec config.EndstopConfig, backoff bool) (totalSteps int, ok bool) {
	cfg := m.Config()
	if !ec.Mapped() {
		return 0, false
	}
	stepsPerMM := cfg.StepsPerMM(a)
	targetSpeed := feedMMs * stepsPerMM
	if targetSpeed > cfg.MaxAxisSpeed(a) {
		targetSpeed = cfg.MaxAxisSpeed(a)
	}

	segmentSteps := config.Round2Int(0.5*stepsPerMM) * dir
	v0 := 0.0
	for !endstopTriggered(m.Peripheral(), ec) {
		enqueueCreepSegment(m, cfg, a, v0, targetSpeed, segmentSteps)
		m.Motor().WaitQueueEmpty()
		totalSteps += segmentSteps
		// TODO: possibly acceleration over multiple segments.
		v0 = targetSpeed
	}

	if backoff {
		// v0 carries over unchanged from the forward loop above: target_speed
		// if it ran at least once, 0 if the endstop was already triggered on
		// entry. The original never reassigns move_command.v0 inside this
		// loop either.
		segmentSteps = config.Round2Int(0.1*stepsPerMM) * -dir
		for endstopTriggered(m.Peripheral(), ec) {
			enqueueCreepSegment(m, cfg, a, v0, targetSpeed, segmentSteps)
			m.Motor().WaitQueueEmpty()
			totalSteps += segmentSteps
		}
	}
	return totalSteps, true
}

// homeAxis drives a to its configured home endstop and reports the new
// absolute position in steps (spec.md §4.5 "home_axis"). The position is
// resolved from the known endstop geometry (0 on the min side,
// MoveRangeMM on the max side), not from the accumulated step count —
// matching the original, which overwrites position_steps[axis] outright
// rather than adding to it here.
func homeAxis(m PositionSetter, a axis.Axis) bool {
	cfg := m.Config()
	ec, dir, ok := cfg.HomeEndstop(a)
	if !ok {
		m.Mprintf("// BUG: axis %c requested for homing, but no home endstop defined\n", a.Letter())
		return false
	}
	if _, ok := moveToEndstop(m, a, homeFeedrateMMs, dir, ec, true); !ok {
		return false
	}
	var pos int
	if dir < 0 {
		pos = 0
	} else {
		pos = config.Round2Int(cfg.MoveRangeMM(a) * cfg.StepsPerMM(a))
	}
	m.SetHomePosition(a, pos)
	return true
}

// GoHome homes every axis set in axesBitmap, in the machine's configured
// home order, skipping axes the bitmap does not request (spec.md §4.5,
// §4.4 "go_home").
func GoHome(m PositionSetter, axesBitmap uint16) {
	cfg := m.Config()
	for _, a := range cfg.HomeOrder() {
		if axesBitmap&(1<<uint(a)) == 0 {
			continue
		}
		if !homeAxis(m, a) {
			m.Mprintf("// ERROR: homing axis %c failed\n", a.Letter())
		}
	}
}

// ProbeAxis creeps a towards its non-homing probe endstop at feedMMs,
// reusing moveToEndstop with backoff=false exactly as BeagleG's probe_axis
// calls move_to_endstop(axis, feedrate, 0, dir, ...) directly
// (original_source:1021-1023), then adds the steps actually moved onto the
// established position_steps[axis] and reports the new absolute mm
// position (spec.md §4.5 "probe_axis"). ok is false if a has no probe
// endstop configured.
func ProbeAxis(m PositionSetter, feedMMs float64, a axis.Axis) (probedMM float64, ok bool) {
	cfg := m.Config()
	ec, dir, ok := cfg.ProbeEndstop(a)
	if !ok {
		m.Mprintf("// ERROR: axis %c has no probe endstop configured\n", a.Letter())
		return 0, false
	}
	if feedMMs <= 0 {
		feedMMs = defaultProbeFeedrateMMs
	}
	totalSteps, ok := moveToEndstop(m, a, feedMMs, dir, ec, false)
	if !ok {
		return 0, false
	}
	posSteps := m.PositionSteps(a) + totalSteps
	m.SetHomePosition(a, posSteps)
	return float64(posSteps) / cfg.StepsPerMM(a), true
}
