package backend

import (
	"io"

	"github.com/holla2040/beagleg/internal/segment"
)

// Mock records every enqueued segment and enable/disable call, in order.
// WaitQueueEmpty only counts its calls in Drains: the mock has no
// asynchronous queue, matching spec.md's "synchronous" mode semantics
// trivially.
type Mock struct {
	Segments []segment.Motor
	Enables  []bool
	Drains   int
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Enqueue(seg segment.Motor, msgStream io.Writer) {
	m.Segments = append(m.Segments, seg)
}

func (m *Mock) WaitQueueEmpty() {
	m.Drains++
}

func (m *Mock) MotorEnable(enable bool) {
	m.Enables = append(m.Enables, enable)
}
