package montecarlo

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/metrics"
)

// Progress is a snapshot of a running Monte Carlo evaluation.
type Progress struct {
	RunID     uuid.UUID
	Completed int
	Total     int
	Elapsed   time.Duration
	ETA       time.Duration
}

// Options tunes a Monte Carlo run.
type Options struct {
	Iterations int
	// ChunkSize is the number of paths per dispatched chunk. Default 100.
	ChunkSize int
	// Workers overrides the pool size. Default clamp(GOMAXPROCS-1, 2, 8).
	Workers    int
	BaseSeed   int64
	Volatility float64
	// SamplePaths retains the full histories of the first N iterations.
	SamplePaths int
	Metrics     metrics.Config
	// Progress, when set, receives throttled progress snapshots.
	Progress         func(Progress)
	ProgressInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 100
	}
	if o.Workers <= 0 {
		o.Workers = PoolSize()
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 200 * time.Millisecond
	}
	return o
}

// PoolSize returns the default worker count: one core is left for the
// coordinator, bounded to [2,8].
func PoolSize() int {
	n := runtime.GOMAXPROCS(0) - 1
	if n < 2 {
		n = 2
	}
	if n > 8 {
		n = 8
	}
	return n
}

// Run executes opts.Iterations stochastic paths of params across a
// worker pool and aggregates them. Chunks are handed to workers through
// a shared queue, so a worker that finishes early immediately picks up
// the next pending chunk. Any worker failure aborts the whole run and
// no partial result is returned; cancellation is cooperative at chunk
// granularity.
func Run(ctx context.Context, params engine.Parameters, opts Options, log *zap.Logger) (*AggregateResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if opts.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive")
	}
	if log == nil {
		log = zap.NewNop()
	}

	runID := uuid.New()
	months := params.Months()
	numChunks := (opts.Iterations + opts.ChunkSize - 1) / opts.ChunkSize

	log.Info("monte carlo run starting",
		zap.String("run_id", runID.String()),
		zap.Int("iterations", opts.Iterations),
		zap.Int("chunks", numChunks),
		zap.Int("workers", opts.Workers),
		zap.Float64("volatility", opts.Volatility))

	// The chunk queue: workers pull the next pending chunk as soon as
	// they finish one, which balances uneven chunk cost.
	jobs := make(chan int, numChunks)
	for c := 0; c < numChunks; c++ {
		jobs <- c * opts.ChunkSize
	}
	close(jobs)

	// Fully buffered so a finished worker never blocks on the merge
	// side; on abort the buffered results are simply discarded.
	results := make(chan *ChunkResult, numChunks)

	var completed atomic.Int64
	started := time.Now()

	stopProgress := make(chan struct{})
	if opts.Progress != nil {
		go func() {
			ticker := time.NewTicker(opts.ProgressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stopProgress:
					return
				case <-ticker.C:
					opts.Progress(snapshot(runID, int(completed.Load()), opts.Iterations, started))
				}
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			for start := range jobs {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				chunk, err := runChunk(params, opts, months, start, &completed)
				if err != nil {
					return err
				}
				select {
				case results <- chunk:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	err := g.Wait()
	close(stopProgress)
	close(results)
	if err != nil {
		log.Warn("monte carlo run aborted", zap.String("run_id", runID.String()), zap.Error(err))
		return nil, err
	}

	total := NewChunkResult(months)
	for chunk := range results {
		if err := total.Merge(chunk); err != nil {
			return nil, err
		}
	}

	if opts.Progress != nil {
		opts.Progress(snapshot(runID, opts.Iterations, opts.Iterations, started))
	}
	log.Info("monte carlo run finished",
		zap.String("run_id", runID.String()),
		zap.Int("iterations", total.Paths),
		zap.Duration("elapsed", time.Since(started)))

	return Finalize(total), nil
}

// runChunk simulates the iterations [start, start+ChunkSize) bounded by
// the total iteration count. Each path owns its own ledger, allowance
// and random stream; the only shared input is the read-only params.
func runChunk(params engine.Parameters, opts Options, months, start int, completed *atomic.Int64) (*ChunkResult, error) {
	chunk := NewChunkResult(months)
	end := start + opts.ChunkSize
	if end > opts.Iterations {
		end = opts.Iterations
	}
	for i := start; i < end; i++ {
		hist, err := engine.Simulate(params, opts.Volatility, &engine.Options{Seed: DeriveSeed(opts.BaseSeed, i)})
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		pm := metrics.Extract(hist, params, opts.Metrics)
		chunk.Add(hist, pm)
		if i < opts.SamplePaths {
			chunk.SamplePaths = append(chunk.SamplePaths, hist)
		}
		completed.Add(1)
	}
	return chunk, nil
}

func snapshot(runID uuid.UUID, completed, total int, started time.Time) Progress {
	p := Progress{RunID: runID, Completed: completed, Total: total, Elapsed: time.Since(started)}
	if completed > 0 && completed < total {
		perIter := p.Elapsed / time.Duration(completed)
		p.ETA = perIter * time.Duration(total-completed)
	}
	return p
}
