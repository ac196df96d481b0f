package sink

import (
	"io"

	"github.com/cognusion/go-osmdl/internal/xerrors"
)

// StreamSink is a forward-only destination wrapping any io.Writer (stdout,
// an io.PipeWriter feeding GetStream, a network socket). It supports Write
// and Finalize; WriteAt and SeekTo succeed only at the offset already
// written, TruncateTo always fails with xerrors.IO, and the Parallel Range
// Engine refuses to start against it (spec §4.3, §9).
type StreamSink struct {
	w       io.Writer
	written int64
}

// NewStream wraps w as a StreamSink.
func NewStream(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

// Write implements StreamingSink.
func (s *StreamSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		return n, xerrors.IO(err)
	}
	return n, nil
}

// WriteAt only succeeds when off exactly matches the bytes already
// written, i.e. a strictly sequential write; anything else is an
// out-of-order write and fails per spec §4.3.
func (s *StreamSink) WriteAt(p []byte, off int64) (int, error) {
	if off != s.written {
		return 0, errNotSeekable
	}
	return s.Write(p)
}

// SeekTo succeeds only as a no-op to the current offset (the bytes already
// written) and fails for any other offset: a stream has no notion of
// position beyond what it has already written.
func (s *StreamSink) SeekTo(off int64) error {
	if off == s.written {
		return nil
	}
	return errNotSeekable
}

// TruncateTo always fails.
func (s *StreamSink) TruncateTo(size int64) error {
	return errNotSeekable
}

// CurrentLength reports bytes written so far; a stream sink always resumes
// from 0 in practice since it cannot be reopened, but the accessor is
// still meaningful mid-transfer for progress accounting.
func (s *StreamSink) CurrentLength() (int64, error) {
	return s.written, nil
}

// Finalize closes the underlying writer if it implements io.Closer; it does
// nothing otherwise.
func (s *StreamSink) Finalize() error {
	if c, ok := s.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return xerrors.IO(err)
		}
	}
	return nil
}
