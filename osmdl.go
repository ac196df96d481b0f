// Package osmdl is a high-throughput downloader for OpenStreetMap extract
// artifacts (the planet file and Geofabrik's regional exports): it resolves
// a short identifier to a URL, probes the origin for size and byte-range
// support, and transfers the artifact using a bounded-concurrency parallel
// range engine when the origin allows it, falling back to a resumable
// sequential stream otherwise.
package osmdl

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cognusion/go-osmdl/internal/catalog"
	"github.com/cognusion/go-osmdl/internal/engine"
	"github.com/cognusion/go-osmdl/internal/httpclient"
	"github.com/cognusion/go-osmdl/internal/planner"
	"github.com/cognusion/go-osmdl/internal/probe"
	"github.com/cognusion/go-osmdl/internal/sink"
	"github.com/cognusion/go-osmdl/internal/stream"
)

// backoffBase is spec §7's retry schedule starting point (1s, doubling
// each attempt).
const backoffBase = time.Second

// Resolve maps a source identifier to its download URL and default local
// filename without performing any network I/O, useful for a dry run or for
// rendering what a transfer would do before committing to it.
func Resolve(source string) (url, filename string, err error) {
	return catalog.Resolve(source)
}

// Get downloads source to dest with the library defaults. dest == "" derives
// a filename from source; dest == "-" streams the transfer to standard
// output instead of touching local storage.
func Get(ctx context.Context, source, dest string) error {
	return GetWithOptions(ctx, source, dest, DefaultOptions())
}

// GetWithProgress is Get plus a progress callback, called at a rate bounded
// to once per 32 KiB of progress and at least once at completion.
func GetWithProgress(ctx context.Context, source, dest string, progress ProgressFunc) error {
	return getWithOptionsAndProgress(ctx, source, dest, DefaultOptions(), progress)
}

// GetWithOptions is Get with an explicit, fully-specified Options record.
func GetWithOptions(ctx context.Context, source, dest string, opts Options) error {
	return getWithOptionsAndProgress(ctx, source, dest, opts, nil)
}

// GetStream returns a forward-only reader for source without ever creating
// a local file (spec §6's get_stream). The core always uses the Sequential
// Stream strategy against it, since the Parallel Range Engine refuses to
// run against a forward-only sink regardless of range support. Closing the
// returned reader before EOF cancels the transfer.
func GetStream(ctx context.Context, source string) (io.ReadCloser, error) {
	url, _, err := catalog.Resolve(source)
	if err != nil {
		return nil, err
	}

	opts := DefaultOptions().normalize()
	client := httpclient.Shared(opts.ConnectTimeout, opts.RequestTimeout)

	pctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	go func() {
		defer cancel()
		streamSink := sink.NewStream(pw)
		runErr := stream.Run(pctx, url, -1, streamSink, nil, stream.Options{
			RetryBudget: opts.RetryBudget,
			BackoffBase: backoffBase,
			Client:      client,
			Loggers:     opts.Loggers,
		})
		pw.CloseWithError(runErr)
	}()

	return &pipeReadCloser{r: pr, cancel: cancel}, nil
}

// pipeReadCloser cancels the producing goroutine's context when closed
// early, so an abandoned GetStream reader doesn't leak a transfer.
type pipeReadCloser struct {
	r      *io.PipeReader
	cancel context.CancelFunc
}

func (p *pipeReadCloser) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p *pipeReadCloser) Close() error {
	p.cancel()
	return p.r.Close()
}

func getWithOptionsAndProgress(ctx context.Context, source, dest string, opts Options, progressCb ProgressFunc) error {
	opts = opts.normalize()

	url, filename, err := catalog.Resolve(source)
	if err != nil {
		return err
	}

	return transfer(ctx, url, filename, dest, opts, progressCb)
}

// transfer runs a resolved URL through probe → strategy choice → sink open
// → engine/stream execution. Split out from getWithOptionsAndProgress so
// tests can drive it against a local test server without needing the
// catalog to know about non-OSM origins.
func transfer(ctx context.Context, url, filename, dest string, opts Options, progressCb ProgressFunc) error {
	client := httpclient.Shared(opts.ConnectTimeout, opts.RequestTimeout)

	// The probe is a single idempotent HEAD/ranged-GET, the one place a
	// generic auto-retrying client is a clean fit; the engine and stream
	// below need their own resume-aware retry loops instead.
	probeClient := httpclient.NewRetryClient(client, opts.RetryBudget, backoffBase)
	res, err := probe.Do(ctx, probeClient, url)
	if err != nil {
		return err
	}

	if dest == "-" {
		return runSequential(ctx, url, res.Size, sink.NewStream(os.Stdout), client, opts, progressCb)
	}

	path := dest
	if path == "" {
		path = filename
	}

	plan := planner.PlanWithMaxChunkSize(res.Size, res.RangesSupported, opts.ChunkSize)

	if !plan.Parallel {
		// Resuming only makes sense when the origin honors ranges (spec §6's
		// "Persisted state"); otherwise every run starts clean.
		var s *sink.FileSink
		if res.RangesSupported {
			s, err = sink.OpenFileForResume(path, opts.Overwrite, opts.OnPrompt)
		} else {
			s, err = sink.OpenFile(path, opts.Overwrite, opts.OnPrompt)
		}
		if err != nil {
			return err
		}
		return runSequential(ctx, url, res.Size, s, client, opts, progressCb)
	}

	s, err := sink.OpenFile(path, opts.Overwrite, opts.OnPrompt)
	if err != nil {
		return err
	}

	runErr := runParallel(ctx, url, plan, s, client, opts, progressCb)
	if xerr, ok := AsError(runErr); ok && xerr.Code == CodeServerIgnoredRange {
		// Escalation: the parallel engine already truncated the sink to 0;
		// reopen for a clean sequential run from offset 0.
		s2, err := sink.OpenFileForResume(path, Force, opts.OnPrompt)
		if err != nil {
			return err
		}
		return runSequential(ctx, url, res.Size, s2, client, opts, progressCb)
	}
	return runErr
}

func runParallel(ctx context.Context, url string, plan planner.Plan, s sink.Sink, client httpclient.Client, opts Options, progressCb ProgressFunc) error {
	p := newThrottledProgress(progressCb, totalOf(plan))
	err := engine.Run(ctx, url, plan, s, p.add, engine.Options{
		MaxConcurrentChunks: opts.MaxConcurrentChunks,
		RetryBudget:         opts.RetryBudget,
		BackoffBase:         backoffBase,
		Client:              client,
		Loggers:             opts.Loggers,
	})
	p.flush()
	return err
}

func runSequential(ctx context.Context, url string, totalSize int64, s sink.Sink, client httpclient.Client, opts Options, progressCb ProgressFunc) error {
	p := newThrottledProgress(progressCb, totalSize)
	err := stream.Run(ctx, url, totalSize, s, p.add, stream.Options{
		RetryBudget: opts.RetryBudget,
		BackoffBase: backoffBase,
		Client:      client,
		Loggers:     opts.Loggers,
	})
	p.flush()
	return err
}

func totalOf(plan planner.Plan) int64 {
	if len(plan.Chunks) == 0 {
		return -1
	}
	return plan.Chunks[len(plan.Chunks)-1].End
}
