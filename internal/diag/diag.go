// Package diag carries the ambient logging/timing conventions the teacher
// engine uses throughout: a process-wide sequence generator for per-transfer
// IDs, and a thin wrapper around go-timings for "defer diag.Track(...)"
// style instrumentation, with discard-by-default loggers so a caller who
// never asks for diagnostics pays nothing for them.
package diag

import (
	"io"
	"log"
	"time"

	"github.com/cognusion/go-sequence"
	"github.com/cognusion/go-timings"
)

var seq = sequence.New(0)

// NextID returns a short, process-unique identifier for a new transfer, used
// to correlate log lines across the resolver, probe, engine, and stream.
func NextID() string {
	return seq.NextHashID()
}

// Loggers bundles the two logging channels the teacher's RangeTripper
// exposes: timing instrumentation and free-form debug output. Either may be
// nil, in which case it discards.
type Loggers struct {
	Timings *log.Logger
	Debug   *log.Logger
}

// NewDiscardLoggers returns a Loggers that drops everything, the default
// when a caller hasn't asked for diagnostics.
func NewDiscardLoggers() Loggers {
	discard := log.New(io.Discard, "", 0)
	return Loggers{Timings: discard, Debug: discard}
}

// normalize fills in discard loggers for any nil field.
func (l Loggers) normalize() Loggers {
	if l.Timings == nil {
		l.Timings = log.New(io.Discard, "", 0)
	}
	if l.Debug == nil {
		l.Debug = log.New(io.Discard, "", 0)
	}
	return l
}

// Track starts a timing span named name and returns a func to defer, which
// logs the elapsed duration to l's Timings logger.
func (l Loggers) Track(name string) func() {
	l = l.normalize()
	start := time.Now()
	return func() {
		timings.Track(name, start, l.Timings)
	}
}

// Debugf writes a formatted debug line, discarded unless a Debug logger was
// configured.
func (l Loggers) Debugf(format string, args ...any) {
	l.normalize().Debug.Printf(format, args...)
}
