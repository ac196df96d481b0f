// Package stream implements the Sequential Resumable Stream (spec §4.6):
// the single-connection transfer strategy used when the origin doesn't
// support byte ranges, or when the destination is a forward-only
// StreamingSink. Unlike the Parallel Range Engine's per-chunk retry, a
// transient failure here restarts the same connection from the last
// durably-written offset rather than discarding progress.
package stream

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"context"

	"github.com/cognusion/go-osmdl/internal/diag"
	"github.com/cognusion/go-osmdl/internal/httpclient"
	"github.com/cognusion/go-osmdl/internal/sink"
	"github.com/cognusion/go-osmdl/internal/xerrors"
)

// readBufferSize bounds how much of the response body is held in memory at
// once; writes to the sink happen at this granularity.
const readBufferSize = 64 << 10 // 64 KiB

// Options configures a Run.
type Options struct {
	RetryBudget int
	BackoffBase time.Duration
	Client      httpclient.Client
	Loggers     diag.Loggers
}

// Run executes the transfer of url into s. totalSize is the probed size, or
// -1 if unknown. progress, if non-nil, is called with the number of bytes
// newly written after each internal read.
func Run(ctx context.Context, url string, totalSize int64, s sink.Sink, progress func(int64), opts Options) error {
	id := diag.NextID()
	defer opts.Loggers.Track(fmt.Sprintf("[%s] sequential stream", id))()

	backoff := opts.BackoffBase
	if backoff <= 0 {
		backoff = time.Second
	}
	budget := opts.RetryBudget
	if budget < 1 {
		budget = 1
	}

	resumeFrom, err := s.CurrentLength()
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < budget; attempt++ {
		if ctx.Err() != nil {
			return xerrors.Cancelled
		}
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return xerrors.Cancelled
			}
			backoff *= 2
			opts.Loggers.Debugf("[%s] resuming from offset %d (attempt %d)\n", id, resumeFrom, attempt+1)
		}

		written, reset, done, err := attempt1(ctx, url, resumeFrom, totalSize, s, progress, opts.Client, opts.Loggers)
		if reset {
			resumeFrom = written
		} else {
			resumeFrom += written
		}

		if err == nil && done {
			if totalSize >= 0 && resumeFrom != totalSize {
				return xerrors.IntegrityViolation(fmt.Errorf("stream: wrote %d bytes, wanted %d", resumeFrom, totalSize))
			}
			return s.Finalize()
		}
		if err == nil {
			// Body exhausted without an explicit completion signal (size was
			// unknown going in); treat as done.
			return s.Finalize()
		}
		if xerrors.IsCode(err, xerrors.CodeCancelled) {
			return err
		}
		if !xerrors.IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// attempt1 runs a single connection attempt starting at resumeFrom,
// returning how many bytes it wrote, whether the origin forced a restart
// from 0 (spec §4.6's ServerIgnoredRange escalation), and whether the body
// was fully consumed.
func attempt1(ctx context.Context, url string, resumeFrom, totalSize int64, s sink.Sink, progress func(int64), client httpclient.Client, loggers diag.Loggers) (written int64, reset bool, done bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false, false, xerrors.IO(err)
	}
	if resumeFrom > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	res, doErr := client.Do(req)
	if doErr != nil {
		if ctx.Err() != nil {
			return 0, false, false, xerrors.Cancelled
		}
		return 0, false, false, xerrors.Network(true, doErr)
	}
	defer res.Body.Close()

	writeFrom := resumeFrom

	switch {
	case res.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		if totalSize >= 0 && resumeFrom == totalSize {
			// We already have the whole artifact; the server is just telling
			// us there's nothing left past EOF.
			return 0, false, true, nil
		}
		return 0, false, false, xerrors.HTTPStatus(res.StatusCode)

	case res.StatusCode == http.StatusPartialContent:
		// Honored our resume point; write continues at resumeFrom.

	case res.StatusCode == http.StatusOK:
		if resumeFrom > 0 {
			// The server silently ignored our Range header and is sending the
			// full body from byte 0: wipe what we had and restart clean.
			if serr := s.SeekTo(0); serr != nil {
				return 0, false, false, serr
			}
			if serr := s.TruncateTo(0); serr != nil {
				return 0, false, false, serr
			}
			writeFrom = 0
			reset = true
		}

	case res.StatusCode >= 500:
		return 0, false, false, xerrors.Network(true, fmt.Errorf("stream fetch: %s", res.Status))

	default:
		return 0, false, false, xerrors.HTTPStatus(res.StatusCode)
	}

	n, copyErr := copyInto(s, res.Body, writeFrom, progress)
	written = n

	if copyErr != nil {
		if ctx.Err() != nil {
			return written, reset, false, xerrors.Cancelled
		}
		return written, reset, false, xerrors.Network(true, copyErr)
	}
	return written, reset, true, nil
}

// copyInto reads res body in fixed-size chunks, writing each sequentially
// to s starting at off, reporting n to progress after each write. It
// returns the number of bytes written before hitting EOF or an error.
func copyInto(s sink.Sink, body io.Reader, off int64, progress func(int64)) (int64, error) {
	buf := make([]byte, readBufferSize)
	var written int64

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, werr := s.WriteAt(buf[:n], off+written); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil {
				progress(int64(n))
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
