package planner

import (
	"fmt"
	"strings"

	"github.com/holla2040/beagleg/internal/peripheral"
)

// FirmwareName, FirmwareVersion and FirmwareURL are reported by M115
// (spec.md §6). Grounded on BeagleG's hard-coded version banner.
const (
	FirmwareName    = "motionctl"
	FirmwareVersion = "1.0"
	FirmwareURL     = "https://github.com/holla2040/beagleg"
)

// Aux bits, grounded on original_source/gcode-machine-control.cc's
// AUX_BIT_MIST/FLOOD/VACUUM/SPINDLE_ON/SPINDLE_DIR (1<<0..1<<4) and
// MAX_AUX_PIN (15). These occupy the same bit positions M42/M62-65
// address by pin number 0..15 — that overlap is the original's actual
// design (a single aux_bits_ table backs both the named and the
// arbitrary-pin commands), not something to separate out here.
const (
	auxBitMist       uint16 = 1 << 0
	auxBitFlood      uint16 = 1 << 1
	auxBitVacuum     uint16 = 1 << 2
	auxBitSpindleOn  uint16 = 1 << 3
	auxBitSpindleDir uint16 = 1 << 4
)

// Unprocessed dispatches every M-code the G-code parser does not already
// have a dedicated events.Receiver method for (spec.md §6 M-code table).
// It returns the reply line to print, or "" if the command produced none
// beyond the caller's own "ok".
func (p *Planner) Unprocessed(letter byte, value float64, rest string) string {
	if letter != 'M' {
		return ""
	}
	switch int(value) {
	case 0: // M0: unconditional stop, latches the ESTOP output
		p.BringPathToHalt()
		p.peripheral.Set(peripheral.PinEstop)
		return ""
	case 3, 4: // M3/M4: spindle on CW/CCW Srpm — bits ride along with the
		// next emitted segment's AuxBits, same as M62/M63 (synchronous).
		if rpm, ok := parseLetterInt(rest, 'S'); ok {
			p.spindleRPM = rpm
		}
		if p.spindleRPM != 0 {
			p.auxBits |= auxBitSpindleOn
			if int(value) == 4 {
				p.auxBits |= auxBitSpindleDir
			} else {
				p.auxBits &^= auxBitSpindleDir
			}
		}
		return ""
	case 5: // M5: spindle off
		p.spindleRPM = 0
		p.auxBits &^= auxBitSpindleOn | auxBitSpindleDir
		return ""
	case 7: // M7: mist coolant on
		p.auxBits |= auxBitMist
		return ""
	case 8: // M8: flood coolant on
		p.auxBits |= auxBitFlood
		return ""
	case 9: // M9: coolant off
		p.auxBits &^= auxBitMist | auxBitFlood
		return ""
	case 10: // M10: vacuum on
		p.auxBits |= auxBitVacuum
		return ""
	case 11: // M11: vacuum off
		p.auxBits &^= auxBitVacuum
		return ""
	case 17: // M17: motors enable
		p.MotorsEnable(true)
		return ""
	case 18, 84: // M18/M84: motors disable
		p.MotorsEnable(false)
		return ""
	case 42: // M42: set arbitrary pin Pn Svalue, or read it back if S omitted
		pin, val, hasS, ok := parsePS(rest)
		if !ok {
			return ""
		}
		if !hasS {
			return fmt.Sprintf("%d\n", (p.auxBits>>uint(pin))&1)
		}
		if val != 0 {
			p.auxBits |= 1 << uint(pin)
		} else {
			p.auxBits &^= 1 << uint(pin)
		}
		return ""
	case 62: // M62: set digital pin Pn high, synchronous (bitmap only)
		pin, ok := parseP(rest)
		if ok {
			p.auxBits |= 1 << uint(pin)
		}
		return ""
	case 63: // M63: set digital pin Pn low, synchronous (bitmap only)
		pin, ok := parseP(rest)
		if ok {
			p.auxBits &^= 1 << uint(pin)
		}
		return ""
	case 64: // M64: set digital pin Pn high, immediately (no queue sync needed: no queue)
		pin, ok := parseP(rest)
		if ok {
			p.auxBits |= 1 << uint(pin)
			p.peripheral.Set(peripheral.Aux(pin))
		}
		return ""
	case 65: // M65: set digital pin Pn low, immediately
		pin, ok := parseP(rest)
		if ok {
			p.auxBits &^= 1 << uint(pin)
			p.peripheral.Clear(peripheral.Aux(pin))
		}
		return ""
	case 80: // M80: machine power on
		p.peripheral.Set(peripheral.PinMachinePower)
		return ""
	case 81: // M81: machine power off
		p.peripheral.Clear(peripheral.PinMachinePower)
		return ""
	case 105: // M105: report temperature, stubbed
		return "T-300\n"
	case 114:
		return p.reportPosition()
	case 115:
		return p.reportVersion()
	case 117: // M117: display message, just echo for now
		return "// " + strings.TrimSpace(rest) + "\n"
	case 119:
		return p.reportEndstops()
	case 220: // M220: set speed factor Spercent
		if v, ok := parseS(rest); ok {
			p.SetSpeedFactor(v / 100.0)
		}
		return ""
	case 999: // M999: reset from emergency stop, clears the ESTOP output
		p.peripheral.Clear(peripheral.PinEstop)
		return ""
	}
	return ""
}

func parseLeadingInt(rest string, def int) int {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return def
	}
	n := 0
	neg := false
	i := 0
	if rest[0] == '-' {
		neg = true
		i = 1
	}
	found := false
	for ; i < len(rest); i++ {
		c := rest[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		found = true
	}
	if !found {
		return def
	}
	if neg {
		n = -n
	}
	return n
}

func parseP(rest string) (int, bool) {
	return parseLetterInt(rest, 'P')
}

func parseS(rest string) (float64, bool) {
	return parseLetterFloat(rest, 'S')
}

// parsePS parses "Pn [Svalue]". ok reports whether P was present; hasS
// reports whether S was also given, distinguishing a write (S given) from
// a read-back request (S omitted) — M42's semantics per original_source.
func parsePS(rest string) (pin int, val int, hasS bool, ok bool) {
	p, pok := parseLetterInt(rest, 'P')
	s, sok := parseLetterInt(rest, 'S')
	if !pok {
		return 0, 0, false, false
	}
	return p, s, sok, true
}

func parseLetterInt(rest string, letter byte) (int, bool) {
	fields := strings.Fields(rest)
	for _, f := range fields {
		if len(f) > 0 && (f[0] == letter || f[0] == letter+32) {
			return parseLeadingInt(f[1:], 0), true
		}
	}
	return 0, false
}

func parseLetterFloat(rest string, letter byte) (float64, bool) {
	fields := strings.Fields(rest)
	for _, f := range fields {
		if len(f) > 0 && (f[0] == letter || f[0] == letter+32) {
			var v float64
			if n, err := fmt.Sscanf(f[1:], "%g", &v); err == nil && n == 1 {
				return v, true
			}
		}
	}
	return 0, false
}
