// Package kinematics implements the coordinate and kinematics math of
// spec.md §4.2: mm<->step conversion, defining-axis selection, Euclidean
// feedrate decomposition, and junction-speed determination. It also
// defines Target, the lookahead ring's element type (spec.md §3).
package kinematics

import (
	"math"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/config"
)

// Target is one entry in the lookahead ring: the machine position the
// planner should be at, and the speed it should be moving at when it gets
// there (spec.md §3 "Target record").
type Target struct {
	PositionSteps [axis.NumAxes]int
	DeltaSteps    [axis.NumAxes]int
	DefiningAxis  axis.Axis
	Speed         float64 // steps/s on DefiningAxis; 0 iff this is a halt marker
	Angle         float64 // degrees; XY orientation, or previous+180 to force a stop
	AuxBits       uint16
}

// SpeedOnAxis returns the signed speed implied for a, scaled from Speed on
// t's defining axis (spec.md §4.2 "get_speed_for_axis"). Zero if the
// defining axis itself has no delta (a halt marker).
func (t *Target) SpeedOnAxis(a axis.Axis) float64 {
	def := t.DeltaSteps[t.DefiningAxis]
	if def == 0 {
		return 0
	}
	return t.Speed * float64(t.DeltaSteps[a]) / float64(def)
}

// IsHalt reports whether t is a halt marker: zero speed, all deltas zero.
func (t *Target) IsHalt() bool {
	return t.Speed == 0
}

// NewOrigin returns the sentinel record appended at ring construction:
// machine position computed from each axis's home endstop (0 on the min
// side, MoveRangeMM on the max side, or 0 if the axis has no home
// endstop), and zero speed (spec.md §4.1, §4.4 construction-time initial
// position).
func NewOrigin(cfg *config.Config) Target {
	var t Target
	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		t.PositionSteps[i] = config.Round2Int(cfg.HomePositionMM(i) * cfg.StepsPerMM(i))
	}
	t.DefiningAxis = axis.X
	t.Speed = 0
	return t
}

// MMToSteps converts a real-world mm position into absolute machine
// steps for axis a (spec.md §4.2).
func MMToSteps(cfg *config.Config, a axis.Axis, mm float64) int {
	return config.Round2Int(mm * cfg.StepsPerMM(a))
}

func euclidDistance(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// BuildTarget computes a new Target for a commanded move to positionMM,
// given the previous record and an already-scaled feedrate in mm/s. It
// implements spec.md §4.2's defining-axis selection, Euclidean feedrate
// decomposition and angle computation, and clamps speed to the defining
// axis's configured maximum. feedrateMMs of 0 or less yields a halt-style
// zero-steps target only if every delta is also zero; a genuinely nonzero
// move with zero feedrate gets ZeroFeedrateOverrideHz substituted by the
// caller (the planner's substituteZeroFeedrate), not here — BuildTarget reports the requested
// travel speed in steps/s on the defining axis.
func BuildTarget(cfg *config.Config, prev *Target, positionMM [axis.NumAxes]float64, feedrateMMs float64, auxBits uint16) Target {
	var t Target
	maxSteps := -1
	definingAxis := axis.X

	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		t.PositionSteps[i] = config.Round2Int(positionMM[i] * cfg.StepsPerMM(i))
		t.DeltaSteps[i] = t.PositionSteps[i] - prev.PositionSteps[i]
		if abs := absInt(t.DeltaSteps[i]); abs > maxSteps {
			maxSteps = abs
			definingAxis = i
		}
	}
	t.AuxBits = auxBits
	t.DefiningAxis = definingAxis
	t.Angle = prev.Angle + 180.0 // forces a junction stop unless overwritten below

	if maxSteps > 0 {
		travelSpeed := feedrateMMs * cfg.StepsPerMM(definingAxis)

		if definingAxis.IsCartesian() {
			x := float64(t.DeltaSteps[axis.X]) / cfg.StepsPerMM(axis.X)
			y := float64(t.DeltaSteps[axis.Y]) / cfg.StepsPerMM(axis.Y)
			z := float64(t.DeltaSteps[axis.Z]) / cfg.StepsPerMM(axis.Z)
			totalLenMM := euclidDistance(x, y, z)
			definingLenMM := float64(t.DeltaSteps[definingAxis]) / cfg.StepsPerMM(definingAxis)
			if totalLenMM > 0 {
				travelSpeed *= math.Abs(definingLenMM) / totalLenMM
			}
			if z == 0 {
				t.Angle = math.Atan2(y, x) / math.Pi * 180.0
			}
		}
		if travelSpeed > cfg.MaxAxisSpeed(definingAxis) {
			travelSpeed = cfg.MaxAxisSpeed(definingAxis)
		}
		t.Speed = travelSpeed
	} else {
		t.Speed = 0
	}
	return t
}

// HaltTarget returns the record bring_path_to_halt appends: same position
// as prev, all-zero deltas, zero speed (spec.md §4.4).
func HaltTarget(prev *Target, auxBits uint16) Target {
	var t Target
	t.PositionSteps = prev.PositionSteps
	t.DefiningAxis = axis.X
	t.Speed = 0
	t.AuxBits = auxBits
	return t
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
