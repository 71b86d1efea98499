package shipyard

import (
	"context"
	"fmt"
	"sync"

	"github.com/vesselworks/shipyard/config"
)

// Plugin is implemented by every deploy target adapter. A plugin builds one
// context per deployment batch and then ships files against that context.
type Plugin interface {
	// CreateContext prepares per-batch state such as an open connection.
	// Failure here fails the whole batch without any upload being attempted.
	CreateContext(ctx context.Context, target *config.Target, files []string) (*PluginContext, error)

	// DeployFile ships a single file against a previously created context
	// and reports the outcome. It never panics and never returns early
	// without a Result.
	DeployFile(ctx context.Context, pctx *PluginContext, file string, target *config.Target, opts *FileOptions) Result
}

// SequentialPlugin is implemented by adapters whose context cannot be shared
// across concurrent file deploys, such as an archive writer.
type SequentialPlugin interface {
	Sequential() bool
}

// Factory constructs a plugin instance for a deployment.
type Factory func(ctx context.Context) (Plugin, error)

// PluginContext wraps adapter specific per-batch state. It is owned by the
// batch that created it and torn down exactly once when the batch ends.
type PluginContext struct {
	// State holds whatever the adapter needs across the batch, read-only
	// after creation.
	State any

	closeFn   func(ctx context.Context) error
	closeOnce sync.Once
}

// NewPluginContext wraps adapter state with an optional teardown action.
func NewPluginContext(state any, closeFn func(ctx context.Context) error) *PluginContext {
	return &PluginContext{State: state, closeFn: closeFn}
}

// Close runs the teardown action. Repeated calls are no-ops.
func (pc *PluginContext) Close(ctx context.Context) error {
	var err error
	pc.closeOnce.Do(func() {
		if pc.closeFn != nil {
			err = pc.closeFn(ctx)
		}
	})
	return err
}

// Event is passed to the before-deploy hook ahead of any remote call.
type Event struct {
	Destination string
	File        string
	Target      *config.Target
}

// FileOptions carries the caller supplied per-file settings into an adapter.
type FileOptions struct {
	// BaseDir is the local directory destination keys are computed against.
	BaseDir string

	OnBeforeDeploy func(Event)

	Cancel *CancelFlag
}

// BeforeDeploy invokes the hook when one is supplied.
func (o *FileOptions) BeforeDeploy(ev Event) {
	if o != nil && o.OnBeforeDeploy != nil {
		o.OnBeforeDeploy(ev)
	}
}

// Canceled reports whether the batch cancellation flag is set.
func (o *FileOptions) Canceled() bool {
	if o == nil {
		return false
	}
	return o.Cancel.Canceled()
}

// Result is the completion report for one file. Cancellation is a distinct
// outcome carried alongside, never instead of, the error field.
type Result struct {
	File        string
	Target      string
	Destination string
	Canceled    bool
	Err         error
}

// Ok reports whether the file was shipped without error or cancellation.
func (r Result) Ok() bool {
	return r.Err == nil && !r.Canceled
}

// Registry maps deploy target types to plugin factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register binds a factory to a target type, replacing any previous binding.
func (r *Registry) Register(targetType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[targetType] = factory
}

// Get resolves the factory for a target type.
func (r *Registry) Get(targetType string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[targetType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTargetType, targetType)
	}
	return factory, nil
}

// Types lists the registered target types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}
