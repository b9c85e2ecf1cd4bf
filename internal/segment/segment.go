// Package segment implements the segment emitter (spec.md §4.3): given a
// (prev, current, next) window of target records, it produces up to three
// motor segments — accelerate, cruise, decelerate — with consistent
// entry/exit step-frequencies, and assigns signed per-motor step counts.
package segment

import (
	"math"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/errs"
	"github.com/holla2040/beagleg/internal/kinematics"
)

// Motor is one segment handed to the motor back-end: entry/exit
// step-frequency on the segment's defining axis, a signed step count per
// physical motor, and the aux bitmap in effect for the segment.
type Motor struct {
	V0, V1  float64
	Steps   [config.NumMotors]int
	AuxBits uint16
}

// assignStepsToMotors distributes steps of axis a (already signed per the
// intended direction) onto every physical motor a drives, applying axis
// and per-driver flips (spec.md §4.3 step 8 / invariant 4).
func assignStepsToMotors(cfg *config.Config, out *Motor, a axis.Axis, steps int) {
	bitmap := cfg.AxisToDriver(a)
	for m := 0; m < config.NumMotors; m++ {
		if bitmap&(1<<uint(m)) != 0 {
			out.Steps[m] = cfg.AxisFlip(a) * cfg.DriverFlip(m) * steps
		}
	}
}

func subtractSteps(v *Motor, sub *Motor) bool {
	nonZero := false
	for i := range v.Steps {
		v.Steps[i] -= sub.Steps[i]
		if v.Steps[i] != 0 {
			nonZero = true
		}
	}
	return nonZero
}

// Emit implements move_machine_steps: given the established position prev,
// the target curr to move to, and the upcoming target next, it returns the
// (possibly empty) ordered list of motor segments to enqueue. curr.Speed is
// mutated in place to reflect the actual exit speed achieved, exactly as
// BeagleG mutates target_pos->speed — this is what the next call's "prev"
// will read back.
//
// Entry conditions (spec.md §4.3): curr's defining-axis delta must be
// nonzero (a zero-delta curr is a no-op, e.g. produced by
// bring_path_to_halt when already stationary) and curr.Speed must be
// positive.
func Emit(cfg *config.Config, prev, curr, next *kinematics.Target) []Motor {
	definingAxis := curr.DefiningAxis
	if curr.DeltaSteps[definingAxis] == 0 {
		return nil
	}
	if curr.Speed <= 0 {
		// Zero/negative feedrate must have been substituted away before
		// this point (substituteZeroFeedrate); reaching here with a
		// nonzero move and Speed<=0 is a planner bug, matching BeagleG's
		// hard assert(target_pos->speed > 0) (gcode-machine-control.cc:586).
		errs.Raise("segment.Emit: defining axis %c has nonzero delta but Speed=%v", definingAxis.Letter(), curr.Speed)
	}

	lastSpeed := math.Abs(prev.SpeedOnAxis(definingAxis))
	nextSpeed := kinematics.JunctionSpeed(curr, next, cfg.ThresholdAngle(), math.Abs(prev.Angle-curr.Angle))

	axisSteps := curr.DeltaSteps
	absDefiningSteps := absInt(axisSteps[definingAxis])
	a := cfg.MaxAxisAccel(definingAxis) // TODO: cross-axis scaling of a is not implemented; see spec.md §9 open question.

	peak := kinematics.PeakSpeed(float64(absDefiningSteps), lastSpeed, nextSpeed, a)
	if peak < curr.Speed {
		curr.Speed = peak
	}

	var accelFraction, decelFraction float64
	if lastSpeed < curr.Speed {
		steps := kinematics.StepsForSpeedChange(a, lastSpeed, &curr.Speed, absDefiningSteps)
		accelFraction = steps / float64(absDefiningSteps)
	}
	dummyNext := nextSpeed
	if nextSpeed < curr.Speed {
		steps := kinematics.StepsForSpeedChange(-a, curr.Speed, &dummyNext, absDefiningSteps)
		decelFraction = steps / float64(absDefiningSteps)
	}

	accelDecelSteps := (accelFraction + decelFraction) * float64(absDefiningSteps)
	accelDecelMM := accelDecelSteps / cfg.StepsPerMM(definingAxis)
	doAccel := accelDecelMM > 2 || accelDecelSteps > 16

	moveCommand := Motor{AuxBits: curr.AuxBits}
	accelCommand := Motor{AuxBits: curr.AuxBits}
	decelCommand := Motor{AuxBits: curr.AuxBits}

	moveCommand.V0 = curr.Speed
	moveCommand.V1 = curr.Speed

	var hasAccel, hasDecel bool

	if doAccel && accelFraction*float64(absDefiningSteps) > 0 {
		hasAccel = true
		accelCommand.V0 = lastSpeed
		accelCommand.V1 = curr.Speed
		for i := axis.Axis(0); i < axis.NumAxes; i++ {
			steps := config.Round2Int(accelFraction * float64(axisSteps[i]))
			assignStepsToMotors(cfg, &accelCommand, i, steps)
		}
	}

	if doAccel && decelFraction*float64(absDefiningSteps) > 0 {
		hasDecel = true
		decelCommand.V0 = curr.Speed
		decelCommand.V1 = nextSpeed
		curr.Speed = nextSpeed
		for i := axis.Axis(0); i < axis.NumAxes; i++ {
			steps := config.Round2Int(decelFraction * float64(axisSteps[i]))
			assignStepsToMotors(cfg, &decelCommand, i, steps)
		}
	}

	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		assignStepsToMotors(cfg, &moveCommand, i, axisSteps[i])
	}
	subtractSteps(&moveCommand, &accelCommand)
	hasMove := subtractSteps(&moveCommand, &decelCommand)

	var out []Motor
	if hasAccel {
		out = append(out, accelCommand)
	}
	if hasMove {
		out = append(out, moveCommand)
	}
	if hasDecel {
		out = append(out, decelCommand)
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
