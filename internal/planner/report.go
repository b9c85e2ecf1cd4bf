package planner

import (
	"fmt"
	"strings"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/kinematics"
	"github.com/holla2040/beagleg/internal/peripheral"
	"github.com/holla2040/beagleg/internal/tmpl"
)

// reportVersion implements M115 (spec.md §6), rendered through the same
// pongo2 engine the boot banner uses.
func (p *Planner) reportVersion() string {
	e := tmpl.New()
	s, err := e.Version(FirmwareName, FirmwareVersion, FirmwareURL)
	if err != nil {
		return fmt.Sprintf("PROTOCOL_VERSION:%s FIRMWARE_NAME:%s\n", FirmwareVersion, FirmwareName)
	}
	return s + "\n"
}

// axisMM returns cur's absolute position of axis a in mm, un-adjusted by
// the display origin (spec.md §6 M114's "ABS. MACHINE CUBE" block).
func (p *Planner) axisMM(cur *kinematics.Target, a axis.Axis) float64 {
	if p.cfg.StepsPerMM(a) <= 0 {
		return 0
	}
	return float64(cur.PositionSteps[a]) / p.cfg.StepsPerMM(a)
}

// reportPosition implements M114: current machine position in mm per
// axis relative to the display origin, the absolute machine-cube
// position on X/Y/Z, and a homing-confidence note (spec.md §6, §4.6,
// original_source:370-393).
func (p *Planner) reportPosition() string {
	cur := p.buf.Back()
	var b strings.Builder
	fmt.Fprintf(&b, "C: ")
	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if p.cfg.StepsPerMM(i) <= 0 {
			continue
		}
		mm := p.axisMM(cur, i) - p.coordinateDisplayOrigin[i]
		fmt.Fprintf(&b, "%c:%.3f ", i.Letter(), mm)
	}
	fmt.Fprintf(&b, "[ABS. MACHINE CUBE X:%.3f Y:%.3f Z:%.3f] ",
		p.axisMM(cur, axis.X), p.axisMM(cur, axis.Y), p.axisMM(cur, axis.Z))
	fmt.Fprintf(&b, "(%s)\n", p.homingState)
	return b.String()
}

// reportEndstops implements M119: current logical state of every mapped
// endstop, or a note that none are configured (spec.md §6).
func (p *Planner) reportEndstops() string {
	var lines []string
	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if ec := p.cfg.MinEndstop(i); ec.Mapped() {
			lines = append(lines, fmt.Sprintf("%c_min:%s", i.Letter(), p.endstopState(ec)))
		}
		if ec := p.cfg.MaxEndstop(i); ec.Mapped() {
			lines = append(lines, fmt.Sprintf("%c_max:%s", i.Letter(), p.endstopState(ec)))
		}
	}
	if len(lines) == 0 {
		return "// This machine has no endstops configured.\n"
	}
	return strings.Join(lines, " ") + "\n"
}

// endstopState reads the live GPIO for ec and applies its configured
// trigger polarity (spec.md §4.5, §6).
func (p *Planner) endstopState(ec config.EndstopConfig) string {
	raw := p.peripheral.Read(peripheral.Endstop(ec.Number))
	triggered := raw == ec.TriggerHigh
	if triggered {
		return "TRIGGERED"
	}
	return "open"
}
