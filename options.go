package osmdl

import (
	"time"

	"github.com/cognusion/go-osmdl/internal/diag"
	"github.com/cognusion/go-osmdl/internal/planner"
	"github.com/cognusion/go-osmdl/internal/sink"
)

// OverwritePolicy controls what happens when the destination already exists.
type OverwritePolicy = sink.OverwritePolicy

// The three overwrite policies, re-exported from internal/sink.
const (
	Prompt         = sink.Prompt
	Force          = sink.Force
	NeverOverwrite = sink.NeverOverwrite
)

// PromptFunc resolves a Prompt overwrite conflict. It is supplied by the
// caller (typically the CLI) and is the only place this library ever asks
// a question; the core never reads from stdin or writes to stderr itself.
type PromptFunc = sink.PromptFunc

// ProgressFunc is called with cumulative (done, total) bytes, at a rate
// bounded to at most once per 32 KiB of progress, plus once at completion.
// total is -1 if the artifact's size could not be determined. The callback
// must be side-effect-only: it must never call back into this package.
type ProgressFunc func(done, total int64)

// Options configures a transfer (spec §6's get_with_options). Construct via
// DefaultOptions() and override individual fields; any numeric or timeout
// field left at its zero value is filled in with its default before use.
type Options struct {
	// Overwrite governs what happens when the destination already exists.
	Overwrite OverwritePolicy
	// OnPrompt is invoked when Overwrite is Prompt and the destination
	// exists. Required for Prompt to succeed; if nil, Prompt behaves like
	// NeverOverwrite.
	OnPrompt PromptFunc

	// MaxConcurrentChunks bounds in-flight chunk fetches. Default 4,
	// clamped to 1..16.
	MaxConcurrentChunks int
	// ChunkSize bounds the size of any single chunk. Default 16 MiB,
	// clamped to at least 256 KiB.
	ChunkSize int64
	// RetryBudget bounds attempts per chunk (parallel) or per connection
	// (sequential). Default 3.
	RetryBudget int

	// ConnectTimeout bounds TCP connection establishment. Default 10s.
	ConnectTimeout time.Duration
	// RequestTimeout bounds an entire HTTP round trip, including the
	// response body. Zero means no timeout, appropriate for large
	// artifacts streamed over a slow connection.
	RequestTimeout time.Duration

	// Loggers routes timing and debug output; the zero value discards
	// everything.
	Loggers diag.Loggers
}

// DefaultOptions returns the library's documented defaults.
func DefaultOptions() Options {
	return Options{
		Overwrite:           Prompt,
		MaxConcurrentChunks: 4,
		ChunkSize:           planner.MaxChunkSize,
		RetryBudget:         3,
		ConnectTimeout:      10 * time.Second,
		Loggers:             diag.NewDiscardLoggers(),
	}
}

// normalize clamps every field to spec §6's documented bounds, filling in
// defaults for anything left at its zero value.
func (o Options) normalize() Options {
	if o.MaxConcurrentChunks < 1 {
		o.MaxConcurrentChunks = 4
	}
	if o.MaxConcurrentChunks > 16 {
		o.MaxConcurrentChunks = 16
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = planner.MaxChunkSize
	}
	if o.RetryBudget < 1 {
		o.RetryBudget = 3
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	return o
}
