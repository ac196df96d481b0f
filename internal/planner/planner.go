// Package planner implements the Chunk Planner (spec §4.4): partitioning a
// known total size into an ordered, disjoint cover of disjoint byte ranges
// under a fixed memory/concurrency policy.
package planner

// Policy constants, normative per spec §4.4.
const (
	// MaxChunkSize is the largest a single chunk may be.
	MaxChunkSize int64 = 16 << 20 // 16 MiB

	// MaxConcurrentChunks bounds in-flight chunks, and therefore worst-case
	// resident memory at MaxChunkSize * MaxConcurrentChunks (64 MiB).
	MaxConcurrentChunks = 4

	// maxTargetChunks is the preferred chunk-count ceiling for moderately
	// sized artifacts. It yields to the MaxChunkSize invariant for large
	// artifacts: a multi-gigabyte planet extract needs far more than 16
	// chunks of MaxChunkSize each to stay under the memory ceiling, since
	// concurrency (not plan size) is what MaxConcurrentChunks bounds.
	maxTargetChunks = 16

	// baseChunkSize is the granularity target chunk count is derived from
	// for small-to-moderate artifacts, before the MaxChunkSize invariant
	// is allowed to override it.
	baseChunkSize int64 = 256 << 10 // 256 KiB
)

// Chunk is a half-open byte interval [Start, End) with a dense 0-based
// ordinal, per spec §3.
type Chunk struct {
	Ordinal int
	Start   int64
	End     int64
}

// Len is the chunk's byte length.
func (c Chunk) Len() int64 { return c.End - c.Start }

// Plan is the chunk planner's output: either a single chunk meant for the
// Sequential Stream, or a genuine multi-chunk parallel plan.
type Plan struct {
	Chunks   []Chunk
	Parallel bool
}

// Plan produces Plan for a totalSize/rangesSupported pair, per spec §4.4,
// using the default MaxChunkSize ceiling. totalSize < 0 means "unknown".
// Determinism: for a given (totalSize, rangesSupported) the output is
// byte-identical across calls.
func Plan(totalSize int64, rangesSupported bool) Plan {
	return PlanWithMaxChunkSize(totalSize, rangesSupported, MaxChunkSize)
}

// PlanWithMaxChunkSize is Plan with a caller-supplied chunk size ceiling
// (spec §6's Options.chunk_size), clamped to at least baseChunkSize so it
// can never defeat the target chunk count entirely. A maxChunkSize <= 0
// falls back to the package default.
func PlanWithMaxChunkSize(totalSize int64, rangesSupported bool, maxChunkSize int64) Plan {
	if totalSize <= 0 || !rangesSupported {
		return singleton(totalSize)
	}
	if maxChunkSize <= 0 {
		maxChunkSize = MaxChunkSize
	}
	if maxChunkSize < baseChunkSize {
		maxChunkSize = baseChunkSize
	}

	var n int64 = ceilDiv(totalSize, baseChunkSize)
	if n > maxTargetChunks {
		n = maxTargetChunks
	}
	if n < 1 {
		n = 1
	}

	chunkSize := totalSize / n
	if totalSize%n != 0 {
		chunkSize++
	}

	if chunkSize > maxChunkSize {
		// The hard memory-per-chunk invariant wins over the target chunk
		// count for large artifacts: re-derive n from maxChunkSize directly.
		n = ceilDiv(totalSize, maxChunkSize)
		chunkSize = totalSize / n
		if totalSize%n != 0 {
			chunkSize++
		}
	}

	if n <= 1 {
		return singleton(totalSize)
	}

	chunks := make([]Chunk, 0, n)
	var start int64
	ordinal := 0
	for start < totalSize {
		end := start + chunkSize
		if end > totalSize {
			end = totalSize
		}
		chunks = append(chunks, Chunk{Ordinal: ordinal, Start: start, End: end})
		start = end
		ordinal++
	}

	if len(chunks) <= 1 {
		return singleton(totalSize)
	}

	return Plan{Chunks: chunks, Parallel: true}
}

func singleton(totalSize int64) Plan {
	if totalSize <= 0 {
		return Plan{Parallel: false}
	}
	return Plan{Chunks: []Chunk{{Ordinal: 0, Start: 0, End: totalSize}}, Parallel: false}
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
