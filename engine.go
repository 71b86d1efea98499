// Package shipyard is a file deployment engine. It ships local files to
// remote targets through interchangeable plugins sharing one interface, and
// reports per-file outcomes through completion callbacks.
package shipyard

import (
	"context"
	"sync"

	"github.com/pitabwire/util"
	"github.com/rs/xid"

	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/localization"
	"github.com/vesselworks/shipyard/workerpool"
)

type contextKey string

func (c contextKey) String() string {
	return "shipyard/" + string(c)
}

const ctxKeyEngine = contextKey("engineKey")

// Engine ties together the plugin registry, worker pool, configuration and
// localization. One instance is scoped to stay for the lifetime of the
// application and reused across deployment batches.
type Engine struct {
	name          string
	logger        *util.LogEntry
	configuration any
	registry      *Registry
	pool          workerpool.Pool
	translator    *localization.Manager
}

type Option func(ctx context.Context, e *Engine)

// New creates an engine with the given name and options. Configuration is
// read from the environment unless supplied with WithConfig.
func New(ctx context.Context, name string, opts ...Option) (context.Context, *Engine, error) {
	logger := util.Log(ctx)
	ctx = util.ContextWithLogger(ctx, logger)

	e := &Engine{
		name:     name,
		logger:   logger,
		registry: NewRegistry(),
	}

	for _, opt := range opts {
		opt(ctx, e)
	}

	if e.configuration == nil {
		cfg, err := config.FromEnv[config.Configuration]()
		if err != nil {
			return ctx, nil, err
		}
		e.configuration = &cfg
	}

	if e.pool == nil {
		poolCfg, ok := e.configuration.(config.ConfigurationWorkerPool)
		if !ok {
			poolCfg = &config.Configuration{WorkerPoolCapacity: 64, WorkerPoolCount: 1}
		}
		pool, err := workerpool.NewFromOptions(ctx, workerpool.DefaultOptions(poolCfg, e.logger))
		if err != nil {
			return ctx, nil, err
		}
		e.pool = pool
	}

	ctx = ToContext(ctx, e)
	ctx = config.ToContext(ctx, e.configuration)
	return ctx, e, nil
}

// ToContext pushes an engine instance into the supplied context.
func ToContext(ctx context.Context, e *Engine) context.Context {
	return context.WithValue(ctx, ctxKeyEngine, e)
}

// FromContext obtains an engine instance being propagated through the context.
func FromContext(ctx context.Context) *Engine {
	e, ok := ctx.Value(ctxKeyEngine).(*Engine)
	if !ok {
		return nil
	}
	return e
}

// WithConfig supplies an already populated configuration object.
func WithConfig(cfg any) Option {
	return func(_ context.Context, e *Engine) {
		e.configuration = cfg
	}
}

// WithLogger supplies the logger the engine and its plugins log through.
func WithLogger(logger *util.LogEntry) Option {
	return func(_ context.Context, e *Engine) {
		e.logger = logger
	}
}

// WithRegistry supplies the plugin registry used to resolve target types.
func WithRegistry(r *Registry) Option {
	return func(_ context.Context, e *Engine) {
		e.registry = r
	}
}

// WithWorkerPool supplies the pool per-file uploads are dispatched on.
func WithWorkerPool(pool workerpool.Pool) Option {
	return func(_ context.Context, e *Engine) {
		e.pool = pool
	}
}

// WithLocalization supplies the translation repository used for user-facing
// messages.
func WithLocalization(m *localization.Manager) Option {
	return func(_ context.Context, e *Engine) {
		e.translator = m
	}
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) Config() any {
	return e.configuration
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// Log returns the engine scoped log entry.
func (e *Engine) Log(ctx context.Context) *util.LogEntry {
	if e.logger != nil {
		return e.logger.WithField("engine", e.name)
	}
	return util.Log(ctx).WithField("engine", e.name)
}

// Translate resolves a message through the configured translation repository,
// falling back to the message ID when none is configured.
func (e *Engine) Translate(ctx context.Context, messageID string, args ...any) string {
	if e.translator == nil {
		return messageID
	}
	return e.translator.Translate(ctx, messageID, args...)
}

// Stop releases the engine's worker pool.
func (e *Engine) Stop(_ context.Context) {
	if e.pool != nil {
		e.pool.Shutdown()
	}
}

// BatchOptions carries caller supplied settings for a whole deployment batch.
type BatchOptions struct {
	// BaseDir is the local directory destination keys are computed against.
	BaseDir string

	// Cancel is the shared cancellation flag; a nil flag never cancels.
	Cancel *CancelFlag

	OnBeforeDeploy func(Event)
	OnCompleted    func(Result)
}

// BatchResult aggregates per-file outcomes of one deployment batch. Files
// are dispatched in caller order but may complete in any order.
type BatchResult struct {
	ID string

	mu      sync.Mutex
	results []Result
}

func (b *BatchResult) add(res Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, res)
}

// Results returns every completion collected so far, in completion order.
func (b *BatchResult) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Result, len(b.results))
	copy(out, b.results)
	return out
}

// Failed returns the completions that carry an error.
func (b *BatchResult) Failed() []Result {
	var failed []Result
	for _, res := range b.Results() {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Canceled returns the completions reported as canceled.
func (b *BatchResult) Canceled() []Result {
	var canceled []Result
	for _, res := range b.Results() {
		if res.Canceled {
			canceled = append(canceled, res)
		}
	}
	return canceled
}

// ByFile returns the completion for a specific file.
func (b *BatchResult) ByFile(file string) (Result, bool) {
	for _, res := range b.Results() {
		if res.File == file {
			return res, true
		}
	}
	return Result{}, false
}

// Deploy ships files to the target as one batch. The plugin context is
// created once, reused for every file and torn down once after all files
// settle. On context creation failure every file is reported failed and no
// upload is attempted.
func (e *Engine) Deploy(ctx context.Context, files []string, target *config.Target, opts *BatchOptions) (*BatchResult, error) {
	if opts == nil {
		opts = &BatchOptions{}
	}

	batch := &BatchResult{ID: xid.New().String()}
	log := e.Log(ctx).WithField("batch", batch.ID).WithField("target", target.Name)

	factory, err := e.registry.Get(target.Type)
	if err != nil {
		e.failAll(batch, files, target, opts, err)
		return batch, err
	}

	plugin, err := factory(ctx)
	if err != nil {
		e.failAll(batch, files, target, opts, err)
		return batch, err
	}

	pctx, err := plugin.CreateContext(ctx, target, files)
	if err != nil {
		log.WithError(err).Error("deploy context creation failed")
		e.failAll(batch, files, target, opts, err)
		return batch, err
	}

	defer func() {
		if closeErr := pctx.Close(ctx); closeErr != nil {
			log.WithError(closeErr).Warn("deploy context teardown failed")
		}
	}()

	sequential := false
	if sp, ok := plugin.(SequentialPlugin); ok {
		sequential = sp.Sequential()
	}

	fileOpts := &FileOptions{
		BaseDir:        opts.BaseDir,
		OnBeforeDeploy: opts.OnBeforeDeploy,
		Cancel:         opts.Cancel,
	}

	pipe := workerpool.NewPipeWithBuffer[Result](len(files))

	var wg sync.WaitGroup
	wg.Add(len(files))
	for _, file := range files {
		run := func() {
			defer wg.Done()
			res := plugin.DeployFile(ctx, pctx, file, target, fileOpts)
			if writeErr := pipe.WriteResult(ctx, res); writeErr != nil {
				log.WithError(writeErr).WithField("file", file).Warn("could not report completion")
			}
		}

		if sequential {
			run()
			continue
		}

		if submitErr := e.pool.Submit(ctx, run); submitErr != nil {
			// Pool saturated or context gone, run inline to keep ordering.
			run()
		}
	}

	go func() {
		wg.Wait()
		pipe.Close()
	}()

	consumeErr := workerpool.Consume(ctx, pipe, func(res Result) {
		batch.add(res)
		if opts.OnCompleted != nil {
			opts.OnCompleted(res)
		}
	})
	if consumeErr != nil {
		return batch, consumeErr
	}

	log.WithField("files", len(files)).
		WithField("failed", len(batch.Failed())).
		WithField("canceled", len(batch.Canceled())).
		Debug("batch complete")
	return batch, nil
}

func (e *Engine) failAll(batch *BatchResult, files []string, target *config.Target, opts *BatchOptions, err error) {
	for _, file := range files {
		res := Result{File: file, Target: target.Name, Err: err}
		batch.add(res)
		if opts.OnCompleted != nil {
			opts.OnCompleted(res)
		}
	}
}
