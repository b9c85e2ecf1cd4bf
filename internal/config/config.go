// Package config validates machine configuration and derives the
// per-axis kinematic limits, axis-to-driver wiring, and endstop mapping the
// rest of the engine runs on.
//
// Construction is a two-phase builder (spec.md §9 design note: the
// teacher's "mutable-through-const hack" of rewriting a const config
// in-place becomes an explicit mutable Builder -> immutable *Config):
// callers populate a Builder, then call Build() once to obtain a validated,
// read-only Config or a *errs.ConfigError.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/errs"
)

// NumMotors is the number of physical stepper driver connectors a machine
// may wire axes to (BeagleG's BEAGLEG_NUM_MOTORS).
const NumMotors = 8

// NumEndstops is the number of physical endstop connectors.
const NumEndstops = 6

// ZeroFeedrateOverrideHz is substituted whenever a requested feedrate
// resolves to zero (spec.md §4.3).
const ZeroFeedrateOverrideHz = 5.0

// EndstopConfig is a compact endstop binding: which physical connector,
// its trigger polarity, and whether it is used for homing.
type EndstopConfig struct {
	Number      int  // 0 = unmapped, else 1..NumEndstops
	HomingUse   bool
	TriggerHigh bool
}

func (e EndstopConfig) Mapped() bool { return e.Number != 0 }

// Builder accumulates raw configuration fields before validation. Zero
// value fields are either legal defaults (see DefaultBuilder) or treated
// as "axis unused" per spec.md §3.
type Builder struct {
	StepsPerMM       [axis.NumAxes]float64
	MaxFeedrateMMs   [axis.NumAxes]float64
	AccelerationMMs2 [axis.NumAxes]float64
	MoveRangeMM      [axis.NumAxes]float64

	AxisMapping      string // e.g. "XYZEA", lowercase = reversed, '_' = skip
	ChannelLayout    string // optional permutation of digits, legacy C variant
	EndswitchPolarity string // per-connector polarity: {0,-,L,_}=low {1,+,H}=high
	MinEndswitch     string // per-connector axis letter; uppercase = home side
	MaxEndswitch     string
	HomeOrder        string // e.g. "ZXY"

	SpeedFactor    float64
	ThresholdAngle float64
	Synchronous    bool
	RequireHoming  bool
	RangeCheck     bool
	DebugPrint     bool
}

// DefaultBuilder returns a Builder pre-populated with BeagleG's stock
// defaults (spec.md §8 end-to-end scenarios use these numbers).
func DefaultBuilder() *Builder {
	b := &Builder{
		AxisMapping:    "XYZEA",
		HomeOrder:      "ZXY",
		SpeedFactor:    1.0,
		ThresholdAngle: 10.0,
		RangeCheck:     true,
	}
	b.MaxFeedrateMMs = [axis.NumAxes]float64{200, 200, 90, 10, 1}
	b.AccelerationMMs2 = [axis.NumAxes]float64{4000, 4000, 1000, 10000, 1}
	b.StepsPerMM = [axis.NumAxes]float64{160, 160, 160, 40, 1}
	return b
}

// Config is the immutable, validated result of Build(). All derived limits
// are precomputed so the hot path never recomputes them per segment.
type Config struct {
	stepsPerMM       [axis.NumAxes]float64 // always positive; sign lives in axisFlip
	maxFeedrateMMs   [axis.NumAxes]float64
	accelerationMMs2 [axis.NumAxes]float64
	moveRangeMM      [axis.NumAxes]float64

	axisFlip     [axis.NumAxes]int // +1 / -1
	driverFlip   [NumMotors]int
	axisToDriver [axis.NumAxes]uint16 // bitmap over NumMotors

	maxAxisSpeed [axis.NumAxes]float64 // steps/s
	maxAxisAccel [axis.NumAxes]float64 // steps/s^2
	g0FeedrateMMs float64

	minEndstop [axis.NumAxes]EndstopConfig
	maxEndstop [axis.NumAxes]EndstopConfig

	homeOrder []axis.Axis

	speedFactor    float64
	thresholdAngle float64
	synchronous    bool
	requireHoming  bool
	rangeCheck     bool
}

func (c *Config) StepsPerMM(a axis.Axis) float64       { return c.stepsPerMM[a] }
func (c *Config) MaxFeedrateMMs(a axis.Axis) float64   { return c.maxFeedrateMMs[a] }
func (c *Config) AccelerationMMs2(a axis.Axis) float64 { return c.accelerationMMs2[a] }
func (c *Config) MoveRangeMM(a axis.Axis) float64      { return c.moveRangeMM[a] }
func (c *Config) AxisFlip(a axis.Axis) int             { return c.axisFlip[a] }
func (c *Config) DriverFlip(motor int) int             { return c.driverFlip[motor] }
func (c *Config) AxisToDriver(a axis.Axis) uint16      { return c.axisToDriver[a] }
func (c *Config) MaxAxisSpeed(a axis.Axis) float64     { return c.maxAxisSpeed[a] }
func (c *Config) MaxAxisAccel(a axis.Axis) float64     { return c.maxAxisAccel[a] }
func (c *Config) G0FeedrateMMs() float64               { return c.g0FeedrateMMs }
func (c *Config) MinEndstop(a axis.Axis) EndstopConfig { return c.minEndstop[a] }
func (c *Config) MaxEndstop(a axis.Axis) EndstopConfig { return c.maxEndstop[a] }
func (c *Config) HomeOrder() []axis.Axis               { return c.homeOrder }
func (c *Config) SpeedFactor() float64                 { return c.speedFactor }
func (c *Config) ThresholdAngle() float64               { return c.thresholdAngle }
func (c *Config) Synchronous() bool                    { return c.synchronous }
func (c *Config) RequireHoming() bool                  { return c.requireHoming }
func (c *Config) RangeCheck() bool                     { return c.rangeCheck }

// HomeEndstop resolves the homing endstop for axis a: the min endstop if
// it is marked for homing, else the max endstop. Returns ok=false if axis a
// has no home endstop configured (spec.md §4.5).
func (c *Config) HomeEndstop(a axis.Axis) (ec EndstopConfig, dir int, ok bool) {
	min := c.minEndstop[a]
	if min.Mapped() && min.HomingUse {
		return min, -1, true
	}
	max := c.maxEndstop[a]
	if max.Mapped() && max.HomingUse {
		return max, 1, true
	}
	return EndstopConfig{}, 1, false
}

// ProbeEndstop resolves the non-homing endstop for axis a, used by
// probe_axis (spec.md §4.5). Uses the min endstop when it is mapped and not
// used for homing, otherwise the max endstop if that one is mapped and not
// used for homing.
func (c *Config) ProbeEndstop(a axis.Axis) (ec EndstopConfig, dir int, ok bool) {
	cfg := c.maxEndstop[a]
	dir = 1
	if c.minEndstop[a].Mapped() && !c.minEndstop[a].HomingUse {
		cfg = c.minEndstop[a]
		dir = -1
	}
	if !cfg.Mapped() || cfg.HomingUse {
		return EndstopConfig{}, 1, false
	}
	return cfg, dir, true
}

// HomePositionMM returns the machine-absolute mm position axis a sits at
// once homed: 0 on the min side, MoveRangeMM[a] on the max side.
func (c *Config) HomePositionMM(a axis.Axis) float64 {
	_, dir, ok := c.HomeEndstop(a)
	if !ok {
		return 0
	}
	if dir < 0 {
		return 0
	}
	return c.moveRangeMM[a]
}

// Round2Int rounds x to the nearest integer step count (spec.md §4.2: mm
// -> steps rounding; absolute position is always the source of truth so
// rounding error never accumulates).
func Round2Int(x float64) int { return int(math.Round(x)) }

// Build validates b and derives the immutable Config, or returns a
// *errs.ConfigError. Mirrors BeagleG's GCodeMachineControl::Create.
func (b *Builder) Build() (*Config, error) {
	cfg := &Config{
		speedFactor:    orDefault2(b.SpeedFactor, 1.0),
		thresholdAngle: b.ThresholdAngle,
		synchronous:    b.Synchronous,
		requireHoming:  b.RequireHoming,
		rangeCheck:     b.RangeCheck,
	}

	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if b.MaxFeedrateMMs[i] < 0 {
			return nil, errs.NewConfigError(errs.NegativeFeedrate,
				"invalid negative feedrate %.1f for axis %c", b.MaxFeedrateMMs[i], i.Letter())
		}
		if b.AccelerationMMs2[i] < 0 {
			return nil, errs.NewConfigError(errs.NegativeAcceleration,
				"invalid negative acceleration %.1f for axis %c", b.AccelerationMMs2[i], i.Letter())
		}
		if b.StepsPerMM[i] < 0 {
			cfg.axisFlip[i] = -1
		} else {
			cfg.axisFlip[i] = 1
		}
		cfg.stepsPerMM[i] = math.Abs(b.StepsPerMM[i])
		cfg.maxFeedrateMMs[i] = b.MaxFeedrateMMs[i]
		cfg.accelerationMMs2[i] = b.AccelerationMMs2[i]
		cfg.moveRangeMM[i] = b.MoveRangeMM[i]
	}

	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if cfg.maxFeedrateMMs[i] > cfg.g0FeedrateMMs {
			cfg.g0FeedrateMMs = cfg.maxFeedrateMMs[i]
		}
		cfg.maxAxisSpeed[i] = cfg.maxFeedrateMMs[i] * cfg.stepsPerMM[i]
		cfg.maxAxisAccel[i] = cfg.accelerationMMs2[i] * cfg.stepsPerMM[i]
	}

	axisMap := b.AxisMapping
	if axisMap == "" {
		axisMap = "XYZEA"
	}
	if len(axisMap) > NumMotors {
		return nil, errs.NewConfigError(errs.TooManyConnectors,
			"axis mapping string has more elements than available %d connectors (remaining=%q)",
			NumMotors, axisMap[NumMotors:])
	}
	layout := connectorOrder(b.ChannelLayout, len(axisMap))
	for pos := 0; pos < len(axisMap); pos++ {
		ch := axisMap[pos]
		if axis.IsSkip(ch) {
			continue
		}
		a, ok := axis.FromLetter(ch)
		if !ok {
			return nil, errs.NewConfigError(errs.IllegalAxisMapping,
				"illegal axis->connector mapping character %q in %q "+
					"(only a valid axis letter or '_' to skip a connector)", ch, axisMap)
		}
		motor := layout[pos]
		if axis.Upper(ch) {
			cfg.driverFlip[motor] = 1
		} else {
			cfg.driverFlip[motor] = -1
		}
		cfg.axisToDriver[a] |= 1 << uint(motor)
	}
	for m := 0; m < NumMotors; m++ {
		if cfg.driverFlip[m] == 0 {
			cfg.driverFlip[m] = 1
		}
	}

	trigger, err := parseEndswitchPolarity(b.EndswitchPolarity)
	if err != nil {
		return nil, err
	}

	if err := mapEndswitches(b.MinEndswitch, trigger, cfg.minEndstop[:]); err != nil {
		return nil, err
	}
	if err := mapEndswitches(b.MaxEndswitch, trigger, cfg.maxEndstop[:]); err != nil {
		return nil, err
	}
	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if cfg.maxEndstop[i].Mapped() && cfg.moveRangeMM[i] <= 0 {
			return nil, errs.NewConfigError(errs.MissingRangeForHome,
				"endstop for axis %c defined at max-endswitch which implies "+
					"we need to know that position; yet no range value was given", i.Letter())
		}
		if cfg.minEndstop[i].Mapped() && cfg.maxEndstop[i].Mapped() &&
			cfg.minEndstop[i].HomingUse && cfg.maxEndstop[i].HomingUse {
			return nil, errs.NewConfigError(errs.DualHomeEndstop,
				"there can only be one home-origin for axis %c, but both "+
					"min/max are set for homing", i.Letter())
		}
	}

	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if cfg.axisToDriver[i] == 0 {
			continue
		}
		if cfg.stepsPerMM[i] <= 0 || cfg.maxFeedrateMMs[i] <= 0 {
			return nil, errs.NewConfigError(errs.InvalidStepsPerMM,
				"axis %c: invalid feedrate or steps/mm", i.Letter())
		}
	}

	cfg.homeOrder = axis.ParseOrder(orDefault(b.HomeOrder, "ZXY"))
	return cfg, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefault2(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// connectorOrder returns, for each axis-mapping string position, the
// physical driver index it controls. Without a ChannelLayout the mapping
// is the identity (position i -> driver i); with one, ChannelLayout is a
// permutation of decimal digits remapping connector position to driver
// index (spec.md §6, legacy C variant).
func connectorOrder(channelLayout string, n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if channelLayout == "" {
		return order
	}
	for i := 0; i < n && i < len(channelLayout); i++ {
		d := channelLayout[i]
		if d >= '0' && d <= '9' {
			order[i] = int(d - '0')
		}
	}
	return order
}

func parseEndswitchPolarity(polarity string) ([NumEndstops]bool, error) {
	var trigger [NumEndstops]bool
	if polarity == "" {
		return trigger, nil
	}
	for i := 0; i < len(polarity) && i < NumEndstops; i++ {
		switch c := polarity[i]; {
		case c == '_' || c == '0' || c == '-' || c == 'L':
			trigger[i] = false
		case c == '1' || c == '+' || c == 'H':
			trigger[i] = true
		default:
			return trigger, errs.NewConfigError(errs.IllegalEndstopChar,
				"illegal endswitch polarity character %q in %q", c, polarity)
		}
	}
	return trigger, nil
}

func mapEndswitches(mapStr string, trigger [NumEndstops]bool, out []EndstopConfig) error {
	for connector := 0; connector < len(mapStr); connector++ {
		ch := mapStr[connector]
		if axis.IsSkip(ch) {
			continue
		}
		a, ok := axis.FromLetter(ch)
		if !ok {
			return errs.NewConfigError(errs.IllegalAxisMapping,
				"illegal axis->endswitch mapping character %q in %q", ch, mapStr)
		}
		trig := false
		if connector < NumEndstops {
			trig = trigger[connector]
		}
		out[a] = EndstopConfig{
			Number:      connector + 1,
			HomingUse:   axis.Upper(ch),
			TriggerHigh: trig,
		}
	}
	return nil
}

// DebugLines formats one human-readable line per mapped axis, mirroring
// BeagleG's Create()-time "-- Config --" dump printed when debug_print is
// set (supplemented feature, SPEC_FULL.md §4).
func (c *Config) DebugLines() []string {
	var lines []string
	for i := axis.Axis(0); i < axis.NumAxes; i++ {
		if c.axisToDriver[i] == 0 {
			continue
		}
		rev := ""
		if c.axisFlip[i] < 0 {
			rev = " (reversed)"
		}
		limit := "[ unknown limit ]"
		if c.moveRangeMM[i] > 0 {
			limit = fmt.Sprintf("[ limit %5.1fmm ]", c.moveRangeMM[i])
		}
		line := fmt.Sprintf("%c axis: %5.1fmm/s, %7.1fmm/s^2, %9.4f steps/mm%s %s",
			i.Letter(), c.maxFeedrateMMs[i], c.accelerationMMs2[i], c.stepsPerMM[i], rev, limit)
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}
