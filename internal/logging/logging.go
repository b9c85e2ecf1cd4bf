// Package logging sets up the engine's loggers. Grounded on the teacher's
// common/value.StaticValue (a pair of level-gated *log.Logger instances),
// adapted into an injectable struct instead of a package global so the
// planner stays unit-testable in isolation.
package logging

import (
	"io"
	"log"
	"os"

	uuid "github.com/satori/go.uuid"
)

// Level selects which loggers are live.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Loggers groups the three severities the engine emits at. Debug carries
// per-emission detail; Info carries lifecycle messages (e.g. the status API
// listen address); Error carries faults and back-end I/O failures.
type Loggers struct {
	Debug *log.Logger
	Info  *log.Logger
	Error *log.Logger

	// SessionID tags every line so multiple concurrently-driven machines
	// can be demultiplexed from one log stream.
	SessionID string
}

// New builds loggers gated by level, all prefixed with a fresh session id.
func New(level Level) *Loggers {
	sid := uuid.NewV4().String()[:8]
	mk := func(enabled bool, out io.Writer, tag string) *log.Logger {
		if !enabled {
			out = io.Discard
		}
		return log.New(out, tag+" ["+sid+"] ", log.LstdFlags|log.Lmsgprefix)
	}
	return &Loggers{
		Debug:     mk(level >= LevelDebug, os.Stdout, "DEBUG"),
		Info:      mk(level >= LevelInfo, os.Stdout, "INFO"),
		Error:     mk(true, os.Stderr, "ERROR"),
		SessionID: sid,
	}
}

// Discard returns loggers that drop everything, errors included; handy as
// a test default.
func Discard() *Loggers {
	return &Loggers{
		Debug:     log.New(io.Discard, "", 0),
		Info:      log.New(io.Discard, "", 0),
		Error:     log.New(io.Discard, "", 0),
		SessionID: "test",
	}
}
