// Package engine implements the Parallel Range Engine (spec §4.5): executing
// a multi-chunk plan against a Sink with bounded concurrency, bounded
// memory, strictly in-order delivery, per-chunk retry, and cooperative
// cancellation.
//
// The concurrency shape — a semaphore-gated pool of fetch goroutines
// reporting into a single ordering stage — is grounded directly on the
// teacher engine's RoundTrip/fetchChunk split (rt.go), generalized here so
// that chunk delivery to the sink is strictly ordinal rather than
// first-come-first-served: the teacher writes each chunk to an *os.File at
// its own offset as soon as it arrives, which is safe for random-access
// files but not for the StreamSink spec.md §4.3 also requires this engine
// to refuse.
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cognusion/go-osmdl/internal/diag"
	"github.com/cognusion/go-osmdl/internal/httpclient"
	"github.com/cognusion/go-osmdl/internal/planner"
	"github.com/cognusion/go-osmdl/internal/sink"
	"github.com/cognusion/go-osmdl/internal/xerrors"
	"github.com/cognusion/go-recyclable"
	"github.com/cognusion/semaphore"
	"go.uber.org/atomic"
)

// Options configures a Run.
type Options struct {
	MaxConcurrentChunks int
	RetryBudget         int
	BackoffBase         time.Duration
	Client              httpclient.Client
	Loggers             diag.Loggers
}

var pool = recyclable.NewBufferPool()

type chunkResult struct {
	ordinal int
	chunk   planner.Chunk
	buf     *recyclable.Buffer
	err     error
}

// Run executes plan against s, which must be a random-access sink (spec
// §9: the engine refuses to start against a stream sink). progress, if
// non-nil, is called with the number of bytes newly written after each
// ordered write.
func Run(ctx context.Context, url string, plan planner.Plan, s sink.Sink, progress func(int64), opts Options) error {
	if !plan.Parallel {
		return fmt.Errorf("engine: Run requires a parallel plan")
	}
	if _, isStream := s.(*sink.StreamSink); isStream {
		// spec §9: the engine refuses to start against a stream sink.
		return xerrors.IO(fmt.Errorf("engine: parallel range engine requires a random-access sink"))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := diag.NextID()
	defer opts.Loggers.Track(fmt.Sprintf("[%s] parallel engine", id))()

	// results is sized to the full plan, not MaxConcurrentChunks: the
	// semaphore slot a fetch goroutine holds is only released once its
	// buffer is actually disposed of (written to the sink, or discarded on
	// an error path) by drainOrdered, not the instant the goroutine enqueues
	// a result. Sizing the channel to MaxConcurrentChunks as well would have
	// let an unbounded number of completed-but-unwritten buffers pile up in
	// drainOrdered's pending map whenever the head-of-line chunk is slow
	// (e.g. mid-retry backoff), since draining the channel into pending
	// would itself have freed channel capacity for new fetchers regardless
	// of whether anything was actually written. The semaphore, not the
	// channel, is what must bound live buffer count now.
	results := make(chan chunkResult, len(plan.Chunks))
	sem := semaphore.NewSemaphore(opts.MaxConcurrentChunks)
	var wg sync.WaitGroup
	var firstErr atomic.Error
	var ignoredRange atomic.Bool

	// The ordering stage runs concurrently with the dispatch loop below, since
	// it is what releases the semaphore slots the loop waits on.
	orderDone := make(chan error, 1)
	go func() {
		err := drainOrdered(ctx, results, s, sem, progress, len(plan.Chunks), opts.Loggers)
		if err != nil {
			cancel()
		}
		// Release the slots of buffers that arrive after the ordering stage
		// stopped, so the dispatch loop can never block on sem for good.
		for r := range results {
			r.buf.Close()
			sem.Unlock()
		}
		orderDone <- err
	}()

	for _, c := range plan.Chunks {
		if ctx.Err() != nil {
			break
		}
		sem.Lock()
		wg.Add(1)
		go func(c planner.Chunk) {
			defer wg.Done()

			buf, err := fetchChunk(ctx, url, c, opts)
			if err != nil {
				// No buffer was ever allocated on this path, so the slot is
				// released here rather than by drainOrdered.
				sem.Unlock()
				if xerrors.IsCode(err, xerrors.CodeCancelled) {
					// A sibling task's failure (or an external cancel) already
					// unblocked this one; discard per spec §4.5 termination.
					return
				}
				if xerrors.IsCode(err, xerrors.CodeServerIgnoredRange) {
					ignoredRange.Store(true)
				}
				// Overwrites are possible if several fetchers fail together;
				// any one fatal error is enough to report (teacher's pattern).
				firstErr.Store(err)
				cancel()
				return
			}
			select {
			case results <- chunkResult{ordinal: c.Ordinal, chunk: c, buf: buf}:
				// Ownership of buf, and the semaphore slot it occupies, passes
				// to drainOrdered: it releases sem once buf is disposed of,
				// keeping live buffer count bounded by MaxConcurrentChunks
				// regardless of write order.
			case <-ctx.Done():
				buf.Close()
				sem.Unlock()
			}
		}(c)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	orderErr := <-orderDone

	if ignoredRange.Load() {
		// Normative recovery from silent range refusal: wipe what we wrote so
		// the caller can restart cleanly from offset 0 with the Sequential
		// Stream. Never let two full-body responses race onto the sink: by
		// construction only this goroutine (after wg.Wait drained all
		// fetchers) touches the sink here.
		_ = s.SeekTo(0)
		_ = s.TruncateTo(0)
		return xerrors.ServerIgnoredRange
	}

	if err := firstErr.Load(); err != nil {
		return err
	}
	if orderErr != nil {
		return orderErr
	}
	if ctx.Err() == context.Canceled {
		return xerrors.Cancelled
	}

	return s.Finalize()
}

// drainOrdered is the ordering stage: the single writer that drains
// completed chunk buffers into the sink strictly in ordinal order (spec
// §4.5 step 4). No other goroutine touches s. It also owns releasing sem
// for every buffer that reaches it, since a fetch goroutine's semaphore
// slot models "a buffer is live", not "a fetch is in flight": the slot is
// only freed once the buffer it guards is actually disposed of here,
// keeping live buffer count bounded by MaxConcurrentChunks regardless of
// how far ahead of the head-of-line chunk later arrivals complete.
func drainOrdered(ctx context.Context, results <-chan chunkResult, s sink.Sink, sem semaphore.Semaphore, progress func(int64), total int, loggers diag.Loggers) error {
	pending := make(map[int]chunkResult, total)
	nextToWrite := 0
	written := 0

	for written < total {
		select {
		case <-ctx.Done():
			for _, r := range pending {
				if r.buf != nil {
					r.buf.Close()
					sem.Unlock()
				}
			}
			return nil // cancellation is reported by the caller, not here
		case r, ok := <-results:
			if !ok {
				return nil
			}
			pending[r.ordinal] = r
		}

		for {
			r, ok := pending[nextToWrite]
			if !ok {
				break
			}
			delete(pending, nextToWrite)

			data := make([]byte, r.buf.Len())
			if _, err := io.ReadFull(r.buf, data); err != nil {
				r.buf.Close()
				sem.Unlock()
				return xerrors.IO(err)
			}
			if err := s.SeekTo(r.chunk.Start); err != nil {
				r.buf.Close()
				sem.Unlock()
				return err
			}
			if _, err := s.WriteAt(data, r.chunk.Start); err != nil {
				r.buf.Close()
				sem.Unlock()
				return err
			}
			n := r.chunk.Len()
			r.buf.Close()
			sem.Unlock()

			if progress != nil {
				progress(n)
			}

			nextToWrite++
			written++
			loggers.Debugf("wrote chunk %d [%d-%d)\n", r.ordinal, r.chunk.Start, r.chunk.End)
		}
	}
	return nil
}

// fetchChunk issues the ranged GET for a single chunk, retrying transient
// failures with exponential backoff up to opts.RetryBudget attempts,
// reusing the same byte range each time (spec §7).
func fetchChunk(ctx context.Context, url string, c planner.Chunk, opts Options) (*recyclable.Buffer, error) {
	backoff := opts.BackoffBase
	if backoff <= 0 {
		backoff = time.Second
	}
	budget := opts.RetryBudget
	if budget < 1 {
		budget = 1
	}

	var lastErr error
	for attempt := 0; attempt < budget; attempt++ {
		if ctx.Err() != nil {
			return nil, xerrors.Cancelled
		}
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, xerrors.Cancelled
			}
			backoff *= 2
		}

		buf, err := fetchChunkOnce(ctx, url, c, opts.Client)
		if err == nil {
			return buf, nil
		}
		if xerrors.IsCode(err, xerrors.CodeServerIgnoredRange) {
			return nil, err
		}
		if !xerrors.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func fetchChunkOnce(ctx context.Context, url string, c planner.Chunk, client httpclient.Client) (*recyclable.Buffer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.IO(err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", c.Start, c.End-1))

	res, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, xerrors.Cancelled
		}
		return nil, xerrors.Network(true, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		// The server ignored our Range header and sent the whole body.
		return nil, xerrors.ServerIgnoredRange
	}
	if res.StatusCode != http.StatusPartialContent {
		if res.StatusCode >= 500 {
			return nil, xerrors.Network(true, fmt.Errorf("chunk fetch: %s", res.Status))
		}
		return nil, xerrors.HTTPStatus(res.StatusCode)
	}

	buf := pool.Get()
	if _, err := io.Copy(buf, res.Body); err != nil {
		buf.Close()
		return nil, xerrors.Network(true, err)
	}
	if int64(buf.Len()) != c.Len() {
		buf.Close()
		return nil, xerrors.IntegrityViolation(fmt.Errorf("chunk %d: got %d bytes, wanted %d", c.Ordinal, buf.Len(), c.Len()))
	}
	return buf, nil
}
