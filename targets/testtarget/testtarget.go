// Package testtarget is an in-memory deploy target. It backs engine tests
// and the CLI's dry-run mode.
package testtarget

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/vesselworks/shipyard"
	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

// Store records every object shipped through the plugin.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewStore() *Store {
	return &Store{objects: map[string][]byte{}}
}

func (s *Store) put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

// Get returns the stored object for key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Keys lists stored destination keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type testContext struct {
	store  *Store
	prefix string
}

type plugin struct {
	store *Store
}

// New builds a factory whose plugin records deploys into store.
func New(store *Store) shipyard.Factory {
	return func(_ context.Context) (shipyard.Plugin, error) {
		return &plugin{store: store}, nil
	}
}

func (p *plugin) CreateContext(_ context.Context, target *config.Target, _ []string) (*shipyard.PluginContext, error) {
	return shipyard.NewPluginContext(&testContext{
		store:  p.store,
		prefix: remotepath.NormalizePrefix(target.Dir),
	}, nil), nil
}

func (p *plugin) DeployFile(_ context.Context, pctx *shipyard.PluginContext, file string, target *config.Target, opts *shipyard.FileOptions) shipyard.Result {
	res := shipyard.Result{File: file, Target: target.Name}

	state, ok := pctx.State.(*testContext)
	if !ok {
		res.Err = fmt.Errorf("target %q: deploy context is not a test context", target.Name)
		return res
	}

	key, err := remotepath.DestinationKey(state.prefix, opts.BaseDir, file)
	if err != nil {
		res.Err = err
		return res
	}
	res.Destination = key

	opts.BeforeDeploy(shipyard.Event{Destination: key, File: file, Target: target})

	data, err := os.ReadFile(file)
	if err != nil {
		res.Err = fmt.Errorf("reading %q: %w", file, err)
		return res
	}

	if opts.Canceled() {
		res.Canceled = true
		return res
	}

	state.store.put(key, data)
	return res
}
