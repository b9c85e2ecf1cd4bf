package homing

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/backend"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/peripheral"
)

type fakeMachine struct {
	cfg   *config.Config
	motor backend.MotorOperations
	per   peripheral.Peripheral
	out   *bytes.Buffer
	homed map[axis.Axis]int
}

func (f *fakeMachine) Config() *config.Config             { return f.cfg }
func (f *fakeMachine) Motor() backend.MotorOperations      { return f.motor }
func (f *fakeMachine) Peripheral() peripheral.Peripheral   { return f.per }
func (f *fakeMachine) MsgStream() io.Writer { return f.out }
func (f *fakeMachine) Mprintf(format string, args ...interface{}) {
	fmt.Fprintf(f.out, format, args...)
}
func (f *fakeMachine) PositionSteps(a axis.Axis) int {
	return f.homed[a]
}
func (f *fakeMachine) SetHomePosition(a axis.Axis, steps int) {
	if f.homed == nil {
		f.homed = make(map[axis.Axis]int)
	}
	f.homed[a] = steps
}

func newFakeMachine(t *testing.T) *fakeMachine {
	t.Helper()
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.MinEndswitch = "XY"
	b.MaxEndswitch = ""
	b.EndswitchPolarity = "11"
	cfg, err := b.Build()
	require.NoError(t, err)

	return &fakeMachine{
		cfg:   cfg,
		motor: backend.NewMock(),
		per:   peripheral.NewMock(),
		out:   &bytes.Buffer{},
	}
}

func TestGoHomeSkipsAxesNotInBitmap(t *testing.T) {
	m := newFakeMachine(t)
	mock := m.per.(*peripheral.Mock)
	mock.TriggerForReads(peripheral.Endstop(1), 2)
	mock.TriggerForReads(peripheral.Endstop(2), 2)

	GoHome(m, 1<<uint(axis.X))
	assert.Contains(t, m.homed, axis.X)
	assert.NotContains(t, m.homed, axis.Y)
}

func TestHomeAxisBacksOffEndstop(t *testing.T) {
	m := newFakeMachine(t)
	mock := m.per.(*peripheral.Mock)
	mock.TriggerForReads(peripheral.Endstop(1), 2)

	ok := homeAxis(m, axis.X)
	require.True(t, ok)

	motorMock := m.motor.(*backend.Mock)
	require.NotEmpty(t, motorMock.Segments)
	last := motorMock.Segments[len(motorMock.Segments)-1]
	assert.NotEqual(t, 0, last.Steps[0])
}

func TestHomeAxisBackoffUsesZeroV0WhenAlreadyTriggered(t *testing.T) {
	m := newFakeMachine(t)
	mock := m.per.(*peripheral.Mock)
	mock.TriggerForReads(peripheral.Endstop(1), 2)

	ok := homeAxis(m, axis.X)
	require.True(t, ok)

	motorMock := m.motor.(*backend.Mock)
	require.NotEmpty(t, motorMock.Segments)
	first := motorMock.Segments[0]
	assert.Equal(t, 0.0, first.V0)
}

func TestGoHomeReportsMissingEndstop(t *testing.T) {
	m := newFakeMachine(t)
	GoHome(m, 1<<uint(axis.Z))
	assert.Contains(t, m.out.String(), "BUG")
}

func TestProbeAxisNoEndstopConfigured(t *testing.T) {
	m := newFakeMachine(t)
	_, ok := ProbeAxis(m, 10, axis.Z)
	assert.False(t, ok)
	assert.Contains(t, m.out.String(), "no probe endstop")
}

func TestProbeAxisStopsAtTrigger(t *testing.T) {
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.MaxEndswitch = "z" // lowercase: not homing, so eligible as probe endstop
	b.EndswitchPolarity = "1"
	cfg, err := b.Build()
	require.NoError(t, err)
	m := &fakeMachine{cfg: cfg, motor: backend.NewMock(), per: peripheral.NewMock(), out: &bytes.Buffer{}}

	mock := m.per.(*peripheral.Mock)
	mock.Trigger(peripheral.Endstop(1), true)

	mm, ok := ProbeAxis(m, 10, axis.Z)
	assert.True(t, ok)
	assert.Equal(t, 0.0, mm)
}
