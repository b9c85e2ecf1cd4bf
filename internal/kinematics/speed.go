package kinematics

import (
	"math"

	"github.com/holla2040/beagleg/internal/axis"
)

// StepsForSpeedChange returns the number of defining-axis steps needed to
// change speed from v0 to v1 at acceleration a (a may be negative for
// deceleration). If the result would exceed maxSteps, v1 is reduced to the
// speed actually reachable in maxSteps and maxSteps is returned instead
// (spec.md §4.2).
func StepsForSpeedChange(a, v0 float64, v1 *float64, maxSteps int) float64 {
	t := (*v1 - v0) / a
	// A negative t means the lookahead window didn't give us enough
	// distance to plan this transition cleanly; BeagleG logs and proceeds
	// with the clamped speed below rather than failing the move.
	steps := a/2*t*t + v0*t
	if steps <= float64(maxSteps) {
		return steps
	}
	*v1 = math.Sqrt(v0*v0 + 2*a*float64(maxSteps))
	return float64(maxSteps)
}

// PeakSpeed returns the peak step-frequency reachable over s defining-axis
// steps when entering at v0, exiting at v2, with acceleration a (spec.md
// §4.2).
func PeakSpeed(s, v0, v2, a float64) float64 {
	return math.Sqrt(v2*v2+v0*v0+2*a*s) / math.Sqrt(2)
}

// withinRelativeTolerance reports whether newVal sits within fraction of
// oldVal (spec.md §4.2's "within_acceptable_range").
func withinRelativeTolerance(newVal, oldVal, fraction float64) bool {
	maxDiff := fraction * oldVal
	return newVal >= oldVal-maxDiff && newVal <= oldVal+maxDiff
}

// JunctionSpeed determines the defining-axis exit speed `from` may retain
// without forcing `to` to decelerate below its own entry constraint
// (spec.md §4.2). angle is |prev.angle - from.angle| in degrees, where prev
// is the record preceding `from`; the caller computes it. A halt marker as
// `to` always yields 0, so the path comes to rest before it.
func JunctionSpeed(from, to *Target, thresholdAngle, angle float64) float64 {
	if to.IsHalt() {
		return 0
	}
	if angle < thresholdAngle {
		return from.Speed
	}

	fromDefiningSpeed := from.Speed
	isFirst := true
	for a := axis.Axis(0); a < axis.NumAxes; a++ {
		fromDelta := from.DeltaSteps[a]
		toDelta := to.DeltaSteps[a]

		if fromDelta == 0 && toDelta == 0 {
			continue
		}
		if fromDelta == 0 || toDelta == 0 {
			return 0
		}
		if (fromDelta < 0) != (toDelta < 0) {
			return 0
		}

		toSpeed := to.SpeedOnAxis(a)
		speedConversion := float64(from.DeltaSteps[from.DefiningAxis]) / float64(fromDelta)
		goal := toSpeed * speedConversion
		if goal < 0 {
			return 0
		}
		if isFirst || withinRelativeTolerance(goal, fromDefiningSpeed, 1e-5) {
			if goal < fromDefiningSpeed {
				fromDefiningSpeed = goal
			}
			isFirst = false
		} else {
			return 0
		}
	}
	return fromDefiningSpeed
}
