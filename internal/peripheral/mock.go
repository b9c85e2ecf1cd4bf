package peripheral

import "sync"

// Mock is an in-memory Peripheral recording every Set/Clear/PWM call,
// usable both as a test double and as the "recorded GPIO trace" spec.md
// §9 calls for. Trigger lets tests simulate an endstop asserting.
type Mock struct {
	mu           sync.Mutex
	state        map[Pin]bool
	duty         map[Pin]float64
	releaseAfter map[Pin]int
	Calls        []string
}

func NewMock() *Mock {
	return &Mock{state: make(map[Pin]bool), duty: make(map[Pin]float64)}
}

func (m *Mock) Set(p Pin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[p] = true
	m.Calls = append(m.Calls, "set")
}

func (m *Mock) Clear(p Pin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[p] = false
	m.Calls = append(m.Calls, "clear")
}

func (m *Mock) Read(p Pin) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.state[p]
	if v {
		if n, ok := m.releaseAfter[p]; ok {
			if n <= 1 {
				m.state[p] = false
				delete(m.releaseAfter, p)
			} else {
				m.releaseAfter[p] = n - 1
			}
		}
	}
	return v
}

func (m *Mock) PWMStart(p Pin, enable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "pwm_start")
}

func (m *Mock) PWMSetDuty(p Pin, duty float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duty[p] = duty
}

// Trigger directly forces p's recorded state, simulating hardware (e.g. an
// endstop closing) without going through Set/Clear.
func (m *Mock) Trigger(p Pin, high bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[p] = high
}

// TriggerForReads simulates an endstop asserting for exactly n further
// Read calls of p, then releasing, so tests can exercise a backoff loop
// that polls until the switch clears without hanging.
func (m *Mock) TriggerForReads(p Pin, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[p] = true
	if m.releaseAfter == nil {
		m.releaseAfter = make(map[Pin]int)
	}
	m.releaseAfter[p] = n
}

func (m *Mock) Duty(p Pin) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duty[p]
}
