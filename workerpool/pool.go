// Package workerpool wraps ants pools behind a small interface so the deploy
// engine can fan per-file uploads out without owning goroutine lifecycles.
package workerpool

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"

	"github.com/vesselworks/shipyard/config"
)

// Pool is the common surface over a single ants.Pool or an ants.MultiPool.
type Pool interface {
	Submit(ctx context.Context, task func()) error
	Shutdown()
}

// Options defines configurable options for the engine's worker pool.
type Options struct {
	PoolCount      int
	Capacity       int
	ExpiryDuration time.Duration
	Nonblocking    bool
	PanicHandler   func(any)
	Logger         *util.LogEntry
}

// Option defines a function that configures worker pool options.
type Option func(*Options)

// WithPoolCount sets the number of worker pools.
func WithPoolCount(count int) Option {
	return func(opts *Options) {
		opts.PoolCount = count
	}
}

// WithCapacity sets the capacity of a single worker pool.
func WithCapacity(capacity int) Option {
	return func(opts *Options) {
		opts.Capacity = capacity
	}
}

// WithExpiryDuration sets the expiry duration for idle workers.
func WithExpiryDuration(duration time.Duration) Option {
	return func(opts *Options) {
		opts.ExpiryDuration = duration
	}
}

// WithNonblocking sets the non-blocking option for the pool.
func WithNonblocking(nonblocking bool) Option {
	return func(opts *Options) {
		opts.Nonblocking = nonblocking
	}
}

// WithPanicHandler sets a panic handler for the pool.
func WithPanicHandler(handler func(any)) Option {
	return func(opts *Options) {
		opts.PanicHandler = handler
	}
}

// WithLogger sets a logger for the pool.
func WithLogger(logger *util.LogEntry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// DefaultOptions derives pool options from the supplied configuration.
func DefaultOptions(cfg config.ConfigurationWorkerPool, log *util.LogEntry) *Options {
	return &Options{
		PoolCount:      cfg.GetCount(),
		Capacity:       cfg.GetCapacity(),
		ExpiryDuration: cfg.GetExpiryDuration(),
		Nonblocking:    false,
		Logger:         log,
	}
}

// New builds a pool from the supplied options.
func New(_ context.Context, opts ...Option) (Pool, error) {
	wopts := &Options{PoolCount: 1, Capacity: 64, ExpiryDuration: time.Second, Logger: util.Log(context.Background())}
	for _, opt := range opts {
		opt(wopts)
	}
	return setup(wopts)
}

// NewFromOptions builds a pool from a fully populated option struct.
func NewFromOptions(_ context.Context, wopts *Options) (Pool, error) {
	return setup(wopts)
}

func setup(wopts *Options) (Pool, error) {
	var antsOpts []ants.Option
	if wopts.ExpiryDuration > 0 {
		antsOpts = append(antsOpts, ants.WithExpiryDuration(wopts.ExpiryDuration))
	}
	antsOpts = append(antsOpts, ants.WithNonblocking(wopts.Nonblocking))
	if wopts.PanicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(wopts.PanicHandler))
	}
	if wopts.Logger != nil {
		antsOpts = append(antsOpts, ants.WithLogger(wopts.Logger))
	}

	if wopts.PoolCount <= 1 {
		p, err := ants.NewPool(wopts.Capacity, antsOpts...)
		if err != nil {
			return nil, err
		}
		return &singlePoolWrapper{pool: p}, nil
	}

	mp, err := ants.NewMultiPool(wopts.PoolCount, wopts.Capacity, ants.LeastTasks, antsOpts...)
	if err != nil {
		return nil, err
	}
	return &multiPoolWrapper{multiPool: mp}, nil
}

// singlePoolWrapper adapts *ants.Pool to the Pool interface.
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

// multiPoolWrapper adapts *ants.MultiPool to the Pool interface.
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
	w.multiPool.Free()
}
