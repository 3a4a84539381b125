package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
)

const defaultExpiryDuration = time.Second

// WorkerPool is the subset of ants.Pool / ants.MultiPool the loaders need.
type WorkerPool interface {
	Submit(ctx context.Context, task func()) error
	Shutdown()
}

// Options defines configurable options for a worker pool.
type Options struct {
	PoolCount          int
	SinglePoolCapacity int
}

// Option defines a function that configures worker pool options.
type Option func(*Options)

// WithPoolCount sets the number of worker pools.
func WithPoolCount(count int) Option {
	return func(opts *Options) {
		opts.PoolCount = count
	}
}

// WithSinglePoolCapacity sets the capacity for a single worker pool.
func WithSinglePoolCapacity(capacity int) Option {
	return func(opts *Options) {
		opts.SinglePoolCapacity = capacity
	}
}

// New creates a blocking pool sized to the machine unless options say otherwise.
// Idle workers expire after a second and the pool logs through ctx's logger.
func New(ctx context.Context, opts ...Option) (WorkerPool, error) {
	wopts := &Options{
		PoolCount:          1,
		SinglePoolCapacity: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(wopts)
	}

	antsOpts := []ants.Option{
		ants.WithExpiryDuration(defaultExpiryDuration),
		ants.WithLogger(util.Log(ctx)),
	}

	if wopts.PoolCount <= 1 {
		p, err := ants.NewPool(wopts.SinglePoolCapacity, antsOpts...)
		if err != nil {
			return nil, err
		}
		return &singlePoolWrapper{pool: p}, nil
	}

	mp, err := ants.NewMultiPool(wopts.PoolCount, wopts.SinglePoolCapacity, ants.LeastTasks, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &multiPoolWrapper{multiPool: mp}, nil
}

// Run executes every task on pool and waits for all of them. Task errors,
// panics and submission failures are joined into the returned error.
func Run(ctx context.Context, pool WorkerPool, tasks ...func(ctx context.Context) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, task := range tasks {
		wg.Add(1)
		submitErr := pool.Submit(ctx, func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					record(fmt.Errorf("workerpool: task panicked: %v", r))
				}
			}()

			if err := task(ctx); err != nil {
				record(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			record(submitErr)
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

// singlePoolWrapper adapts *ants.Pool to the WorkerPool interface.
type singlePoolWrapper struct {
	pool *ants.Pool
}

func (w *singlePoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.pool.Submit(task)
}

func (w *singlePoolWrapper) Shutdown() {
	w.pool.Release()
}

// multiPoolWrapper adapts *ants.MultiPool to the WorkerPool interface.
type multiPoolWrapper struct {
	multiPool *ants.MultiPool
}

func (w *multiPoolWrapper) Submit(ctx context.Context, task func()) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return w.multiPool.Submit(task)
}

func (w *multiPoolWrapper) Shutdown() {
	_ = w.multiPool.ReleaseTimeout(time.Second)
}
