package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.AxisMapping = "XYZEA"
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func TestBuildTargetDefiningAxisIsLargestDelta(t *testing.T) {
	cfg := testConfig(t)
	prev := NewOrigin(cfg)

	target := BuildTarget(cfg, &prev, [axis.NumAxes]float64{10, 1, 0, 0, 0}, 50, 0)
	assert.Equal(t, axis.X, target.DefiningAxis)
	assert.Greater(t, target.Speed, 0.0)
}

func TestBuildTargetTiesGoToLowestIndex(t *testing.T) {
	cfg := testConfig(t)
	prev := NewOrigin(cfg)

	target := BuildTarget(cfg, &prev, [axis.NumAxes]float64{5, 5, 0, 0, 0}, 50, 0)
	assert.Equal(t, axis.X, target.DefiningAxis)
}

func TestBuildTargetZeroDeltaIsHalt(t *testing.T) {
	cfg := testConfig(t)
	prev := NewOrigin(cfg)
	target := BuildTarget(cfg, &prev, [axis.NumAxes]float64{0, 0, 0, 0, 0}, 50, 0)
	assert.True(t, target.IsHalt())
}

func TestBuildTargetClampsToMaxAxisSpeed(t *testing.T) {
	cfg := testConfig(t)
	prev := NewOrigin(cfg)
	target := BuildTarget(cfg, &prev, [axis.NumAxes]float64{1000, 0, 0, 0, 0}, 10000, 0)
	assert.Equal(t, cfg.MaxAxisSpeed(axis.X), target.Speed)
}

func TestHaltTargetKeepsPosition(t *testing.T) {
	cfg := testConfig(t)
	prev := NewOrigin(cfg)
	prev.PositionSteps[axis.X] = 1000
	halt := HaltTarget(&prev, 0)
	assert.Equal(t, 1000, halt.PositionSteps[axis.X])
	assert.True(t, halt.IsHalt())
}

func TestJunctionSpeedCollinearKeepsFromSpeed(t *testing.T) {
	cfg := testConfig(t)
	prev := NewOrigin(cfg)
	from := BuildTarget(cfg, &prev, [axis.NumAxes]float64{10, 0, 0, 0, 0}, 50, 0)
	to := BuildTarget(cfg, &from, [axis.NumAxes]float64{20, 0, 0, 0, 0}, 50, 0)

	speed := JunctionSpeed(&from, &to, cfg.ThresholdAngle(), 0)
	assert.Equal(t, from.Speed, speed)
}

func TestJunctionSpeedOppositeDirectionForcesStop(t *testing.T) {
	cfg := testConfig(t)
	prev := NewOrigin(cfg)
	from := BuildTarget(cfg, &prev, [axis.NumAxes]float64{10, 0, 0, 0, 0}, 50, 0)
	to := BuildTarget(cfg, &from, [axis.NumAxes]float64{0, 0, 0, 0, 0}, 50, 0)

	speed := JunctionSpeed(&from, &to, cfg.ThresholdAngle(), 180)
	assert.Equal(t, 0.0, speed)
}

func TestStepsForSpeedChangeClampsWhenInsufficientSteps(t *testing.T) {
	v1 := 10000.0
	steps := StepsForSpeedChange(1000, 0, &v1, 5)
	assert.Equal(t, 5.0, steps)
	assert.Less(t, v1, 10000.0)
}

func TestPeakSpeedEqualEntryExit(t *testing.T) {
	// v0 == v2 means the peak is reachable only via the acceleration term.
	got := PeakSpeed(100, 10, 10, 50)
	assert.InDelta(t, 71.414, got, 0.01)
}
