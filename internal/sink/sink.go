// Package sink implements the Sink abstraction (spec §4.3): a random-access
// file destination and a forward-only stream destination, behind a small
// shared capability set.
package sink

import (
	"errors"

	"github.com/cognusion/go-osmdl/internal/xerrors"
)

// OverwritePolicy governs what FileSink does when its destination already
// exists.
type OverwritePolicy int

const (
	// Prompt surfaces the conflict to the caller via PromptFunc.
	Prompt OverwritePolicy = iota
	// Force truncates the existing destination unconditionally.
	Force
	// NeverOverwrite fails with xerrors.OverwriteRefused if the destination
	// exists and is non-empty.
	NeverOverwrite
)

// PromptFunc is supplied by the calling layer (the CLI) to resolve a Prompt
// overwrite conflict. The core never prompts directly (spec §9's Open
// Question): it only ever invokes this callback.
type PromptFunc func(path string) (overwrite bool, err error)

// Sink is the capability set the Parallel Range Engine requires: random
// access writes plus the ability to report and rewind the current length.
// Only FileSink implements it fully; StreamSink's TruncateTo, and any
// WriteAt/SeekTo away from the bytes already written, fail with xerrors.IO,
// and the engine refuses to start against it (spec §9).
type Sink interface {
	// WriteAt writes p at offset off. The visible length after a successful
	// write is at least off+len(p).
	WriteAt(p []byte, off int64) (int, error)
	// SeekTo repositions the sink's notion of "current write point", used
	// by the Sequential Stream's resume.
	SeekTo(off int64) error
	// TruncateTo truncates the destination to size. Used for the escalation
	// recovery in spec §4.5 step 3b.
	TruncateTo(size int64) error
	// CurrentLength reports the visible length of the destination so far.
	CurrentLength() (int64, error)
	// Finalize flushes and, for files, durably syncs all writes.
	Finalize() error
}

// StreamingSink is the smaller capability set a forward-only destination
// supports.
type StreamingSink interface {
	Write(p []byte) (int, error)
	Finalize() error
}

// errNotSeekable is returned by StreamSink for any operation outside its
// forward-only contract.
var errNotSeekable = xerrors.IO(errors.New("stream sink does not support seek/truncate/out-of-order writes"))
