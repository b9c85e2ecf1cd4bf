package planner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/backend"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/peripheral"
)

func newTestPlanner(t *testing.T) (*Planner, *backend.Mock, *bytes.Buffer) {
	t.Helper()
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.RequireHoming = false
	cfg, err := b.Build()
	require.NoError(t, err)

	mock := backend.NewMock()
	var out bytes.Buffer
	p := New(cfg, mock, peripheral.NewMock(), &out, nil)
	return p, mock, &out
}

func TestCoordinatedMoveEnqueuesSegments(t *testing.T) {
	p, mock, _ := newTestPlanner(t)

	ok := p.CoordinatedMove(50, [axis.NumAxes]float64{10, 0, 0, 0, 0})
	assert.True(t, ok)
	// One target alone isn't enough to emit; the ring needs a lookahead
	// successor before it commits to a speed.
	assert.Empty(t, mock.Segments)

	ok = p.CoordinatedMove(50, [axis.NumAxes]float64{20, 0, 0, 0, 0})
	assert.True(t, ok)
	assert.NotEmpty(t, mock.Segments)
}

func TestCoordinatedMoveRejectsOutOfRange(t *testing.T) {
	p, mock, out := newTestPlanner(t)
	ok := p.CoordinatedMove(50, [axis.NumAxes]float64{-1, 0, 0, 0, 0})
	assert.False(t, ok)
	assert.Empty(t, mock.Segments)
	assert.Contains(t, out.String(), "ERROR")
}

func TestCoordinatedMoveRequiresHomingWhenConfigured(t *testing.T) {
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.RequireHoming = true
	cfg, err := b.Build()
	require.NoError(t, err)

	p := New(cfg, backend.NewMock(), peripheral.NewMock(), &bytes.Buffer{}, nil)
	ok := p.CoordinatedMove(50, [axis.NumAxes]float64{10, 0, 0, 0, 0})
	assert.False(t, ok)
}

func TestBringPathToHaltDrainsRing(t *testing.T) {
	p, mock, _ := newTestPlanner(t)
	p.CoordinatedMove(50, [axis.NumAxes]float64{10, 0, 0, 0, 0})
	p.BringPathToHalt()
	assert.NotEmpty(t, mock.Segments)
}

func TestMotorsEnableTracksHomingState(t *testing.T) {
	p, mock, _ := newTestPlanner(t)
	p.homingState = Homed
	p.MotorsEnable(false)
	assert.Equal(t, HomedButMotorsUnpowered, p.homingState)
	assert.Equal(t, []bool{false}, mock.Enables)
}

func TestSetSpeedFactorRejectsTooLow(t *testing.T) {
	p, _, out := newTestPlanner(t)
	p.SetSpeedFactor(0.001)
	assert.Equal(t, 1.0, p.progSpeedFactor)
	assert.Contains(t, out.String(), "M220")
}

func TestSetSpeedFactorNegativeIsRelative(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.SetSpeedFactor(-0.1)
	assert.InDelta(t, 0.9, p.progSpeedFactor, 1e-9)
}

func TestUnprocessedM105ReportsTemperature(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	reply := p.Unprocessed('M', 105, "")
	assert.Equal(t, "T-300\n", reply)
}

func TestUnprocessedM114ReportsPosition(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	reply := p.Unprocessed('M', 114, "")
	assert.Contains(t, reply, "C:")
	assert.Contains(t, reply, "X:")
	assert.Contains(t, reply, "[ABS. MACHINE CUBE X:")
}

func TestUnprocessedM115ReportsVersion(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	reply := p.Unprocessed('M', 115, "")
	assert.Contains(t, reply, "FIRMWARE_NAME:motionctl")
}

func TestUnprocessedM119NoEndstopsConfigured(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	reply := p.Unprocessed('M', 119, "")
	assert.Equal(t, "// This machine has no endstops configured.\n", reply)
}

func TestUnprocessedM119ReportsConfiguredEndstopsWithoutCommentPrefix(t *testing.T) {
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.RequireHoming = false
	b.MinEndswitch = "X"
	b.EndswitchPolarity = "1"
	cfg, err := b.Build()
	require.NoError(t, err)

	p := New(cfg, backend.NewMock(), peripheral.NewMock(), &bytes.Buffer{}, nil)
	reply := p.Unprocessed('M', 119, "")
	assert.Equal(t, "X_min:open\n", reply)
	assert.NotContains(t, reply, "//")
}

func TestUnprocessedM64SetsAuxBit(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 64, "P3")
	assert.Equal(t, uint16(1<<3), p.auxBits)
	p.Unprocessed('M', 65, "P3")
	assert.Equal(t, uint16(0), p.auxBits)
}

func TestUnprocessedM0SetsEstop(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 0, "")
	assert.True(t, p.peripheral.Read(peripheral.PinEstop))
	p.Unprocessed('M', 999, "")
	assert.False(t, p.peripheral.Read(peripheral.PinEstop))
}

func TestUnprocessedSpindleSetsAuxBitsSynchronously(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 3, "S1000")
	assert.Equal(t, 1000, p.spindleRPM)
	assert.Equal(t, uint16(1<<3), p.auxBits)
	assert.False(t, p.peripheral.Read(peripheral.Aux(3)))

	p.Unprocessed('M', 4, "S500")
	assert.Equal(t, uint16(1<<3|1<<4), p.auxBits)

	p.Unprocessed('M', 5, "")
	assert.Equal(t, 0, p.spindleRPM)
	assert.Equal(t, uint16(0), p.auxBits)
}

func TestUnprocessedM3S0LeavesAuxBitsUntouched(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 3, "S0")
	assert.Equal(t, 0, p.spindleRPM)
	assert.Equal(t, uint16(0), p.auxBits)

	p.Unprocessed('M', 4, "")
	assert.Equal(t, 0, p.spindleRPM)
	assert.Equal(t, uint16(0), p.auxBits)
}

func TestUnprocessedCoolantSetsAuxBits(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 7, "")
	assert.Equal(t, uint16(1<<0), p.auxBits)
	p.Unprocessed('M', 8, "")
	assert.Equal(t, uint16(1<<0|1<<1), p.auxBits)
	p.Unprocessed('M', 9, "")
	assert.Equal(t, uint16(0), p.auxBits)
}

func TestUnprocessedVacuumSetsAuxBitOnly(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 10, "")
	assert.Equal(t, uint16(1<<2), p.auxBits)
	p.Unprocessed('M', 11, "")
	assert.Equal(t, uint16(0), p.auxBits)
}

func TestUnprocessedM62M63AreSynchronous(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 62, "P5")
	assert.Equal(t, uint16(1<<5), p.auxBits)
	assert.False(t, p.peripheral.Read(peripheral.Aux(5)))

	p.Unprocessed('M', 63, "P5")
	assert.Equal(t, uint16(0), p.auxBits)
}

func TestUnprocessedM42WritesAndReadsBack(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Unprocessed('M', 42, "P7 S1")
	assert.Equal(t, uint16(1<<7), p.auxBits)
	assert.False(t, p.peripheral.Read(peripheral.Aux(7)))

	reply := p.Unprocessed('M', 42, "P7")
	assert.Equal(t, "1\n", reply)

	p.Unprocessed('M', 42, "P7 S0")
	reply = p.Unprocessed('M', 42, "P7")
	assert.Equal(t, "0\n", reply)
}

func TestOnEmitFiresAfterSegmentsIssued(t *testing.T) {
	p, mock, _ := newTestPlanner(t)
	calls := 0
	p.SetOnEmit(func() { calls++ })

	p.CoordinatedMove(50, [axis.NumAxes]float64{10, 0, 0, 0, 0})
	assert.Equal(t, 0, calls) // lookahead not primed yet, nothing emitted

	p.CoordinatedMove(50, [axis.NumAxes]float64{20, 0, 0, 0, 0})
	assert.NotEmpty(t, mock.Segments)
	assert.Equal(t, 1, calls)
}

func TestIssueMotorMoveIfPossibleRecoversFault(t *testing.T) {
	p, _, out := newTestPlanner(t)

	prev := p.buf.Back()
	curr := *prev
	curr.DeltaSteps[axis.X] = 100
	curr.DefiningAxis = axis.X
	curr.Speed = 0 // invalid: nonzero delta with zero speed
	*p.buf.Append() = curr
	next := curr
	*p.buf.Append() = next

	assert.NotPanics(t, func() { p.issueMotorMoveIfPossible() })
	assert.Contains(t, out.String(), "FAULT")
}

func TestGcodeCommandDoneEmitsOK(t *testing.T) {
	p, _, out := newTestPlanner(t)
	p.GcodeCommandDone('G', 1)
	assert.Equal(t, "ok\n", out.String())
}
