package peripheral

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// SysfsMap resolves each logical Pin to a Linux GPIO sysfs line number.
// Pins absent from the map are treated as unwired (reads return false,
// writes are no-ops) so a partially-configured machine doesn't panic.
type SysfsMap map[Pin]int

// Sysfs drives GPIO lines through /sys/class/gpio using raw fd
// open/read/write (golang.org/x/sys/unix) rather than os convenience
// wrappers, matching how the low-level parts of the retrieval pack touch
// descriptors directly for latency-sensitive I/O.
type Sysfs struct {
	lines SysfsMap
	mu    sync.Mutex
	fds   map[int]int // gpio line -> open value-fd, exported+configured lazily
	pwm   map[Pin]float64
}

func NewSysfs(lines SysfsMap) *Sysfs {
	return &Sysfs{
		lines: lines,
		fds:   make(map[int]int),
		pwm:   make(map[Pin]float64),
	}
}

func (s *Sysfs) line(p Pin) (int, bool) {
	n, ok := s.lines[p]
	return n, ok
}

func (s *Sysfs) valueFD(gpioLine int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fd, ok := s.fds[gpioLine]; ok {
		return fd, nil
	}
	path := fmt.Sprintf("/sys/class/gpio/gpio%d/value", gpioLine)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return -1, err
	}
	s.fds[gpioLine] = fd
	return fd, nil
}

func (s *Sysfs) write(p Pin, high bool) {
	line, ok := s.line(p)
	if !ok {
		return
	}
	fd, err := s.valueFD(line)
	if err != nil {
		return
	}
	b := []byte{'0'}
	if high {
		b[0] = '1'
	}
	_, _ = unix.Pwrite(fd, b, 0)
}

func (s *Sysfs) Set(p Pin)   { s.write(p, true) }
func (s *Sysfs) Clear(p Pin) { s.write(p, false) }

func (s *Sysfs) Read(p Pin) bool {
	line, ok := s.line(p)
	if !ok {
		return false
	}
	fd, err := s.valueFD(line)
	if err != nil {
		return false
	}
	buf := make([]byte, 1)
	if _, err := unix.Pread(fd, buf, 0); err != nil {
		return false
	}
	return buf[0] == '1'
}

// PWMStart/PWMSetDuty model a software PWM by simply remembering the duty
// cycle and toggling the underlying GPIO; a real PWM/timer peripheral
// driver is out of scope (spec.md §1: "GPIO / PWM / timer primitives" are
// an external collaborator).
func (s *Sysfs) PWMStart(p Pin, enable bool) {
	if enable {
		s.Set(p)
	} else {
		s.Clear(p)
	}
}

func (s *Sysfs) PWMSetDuty(p Pin, duty float64) {
	s.mu.Lock()
	s.pwm[p] = duty
	s.mu.Unlock()
}

// Close releases any opened sysfs value file descriptors.
func (s *Sysfs) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fd := range s.fds {
		_ = unix.Close(fd)
	}
	s.fds = make(map[int]int)
	return nil
}
