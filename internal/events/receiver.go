// Package events defines the event-receiver capability interface the
// G-code parser drives (spec.md §6 "Event-receiver contract (consumed)").
// Grounded on spec.md §9's design note turning the teacher's inheritance-
// based GCodeParser::Events base class into a plain Go interface: the
// planner is a value that *provides* this capability, not something that
// extends a base type.
package events

import "github.com/holla2040/beagleg/internal/axis"

// Receiver is implemented by the planner. The G-code parser (out of
// scope, spec.md §1) calls exactly one method to completion before
// dispatching the next — the engine has no internal concurrency.
type Receiver interface {
	GcodeStart()
	GcodeFinished()
	InformOriginOffset(origin [axis.NumAxes]float64)
	GcodeCommandDone(letter byte, val float64)
	InputIdle()
	WaitForStart()
	GoHome(axesBitmap uint16)
	ProbeAxis(feedMMs float64, a axis.Axis) (probedMM float64, ok bool)
	SetSpeedFactor(v float64)
	SetFanspeed(v float64)
	SetTemperature(degreesC float64)
	WaitTemperature()
	Dwell(ms float64)
	MotorsEnable(enable bool)
	CoordinatedMove(feedMMs float64, target [axis.NumAxes]float64) bool
	RapidMove(feedMMs float64, target [axis.NumAxes]float64) bool
	Unprocessed(letter byte, value float64, rest string) string
}
