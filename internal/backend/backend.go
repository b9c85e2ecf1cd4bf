// Package backend defines the motor-operations contract the planner
// produces into (spec.md §6 "Motor-operations contract (produced)") and a
// serial-line implementation of it.
package backend

import (
	"io"

	"github.com/holla2040/beagleg/internal/segment"
)

// MotorOperations is the contract the segment emitter and homing/probing
// loops enqueue into. Enqueue has no error return — the back-end is
// assumed infallible in interface (spec.md §7).
type MotorOperations interface {
	Enqueue(seg segment.Motor, msgStream io.Writer)
	WaitQueueEmpty()
	MotorEnable(enable bool)
}
