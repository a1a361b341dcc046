// Package profile maps profile names to lazily built vocabulary stores.
package profile

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/pkg/errors"

	"github.com/bpetok/bpe-openai/internal/config"
	"github.com/bpetok/bpe-openai/internal/vocab"
)

// ErrUnknownProfile matches every *UnknownProfileError.
var ErrUnknownProfile = errors.New("unknown profile")

// UnknownProfileError reports a name that is not registered.
type UnknownProfileError struct {
	Name string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown profile %q", e.Name)
}

func (e *UnknownProfileError) Is(target error) bool {
	return target == ErrUnknownProfile
}

// Definition binds a profile name to the source its store is built from.
type Definition struct {
	Name   string
	Source Source
}

type entry struct {
	source Source
	once   sync.Once
	done   atomic.Bool
	store  *vocab.Store
	err    error
}

// Registry resolves profile names to stores. Each store is built at most
// once, on first use; a failed build is remembered and returned to every
// later caller. The set of names is fixed at construction, so lookups need
// no locking.
type Registry struct {
	entries map[string]*entry
}

// NewRegistry panics on an empty or duplicate name.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{entries: make(map[string]*entry, len(defs))}
	for _, d := range defs {
		if d.Name == "" || d.Source == nil {
			panic("profile: definition without name or source")
		}
		if _, dup := r.entries[d.Name]; dup {
			panic("profile: duplicate definition " + d.Name)
		}
		r.entries[d.Name] = &entry{source: d.Source}
	}
	return r
}

// Resolve returns the store of name, building it on the first call.
// Concurrent first callers wait for the same build and get the same store.
func (r *Registry) Resolve(name string) (*vocab.Store, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, &UnknownProfileError{Name: name}
	}

	e.once.Do(func() {
		start := time.Now()
		e.store, e.err = e.source.Load(name)
		if e.err != nil {
			log.Warningf("profile %s: build failed: %v", name, e.err)
		} else {
			debugf("profile %s: %d entries built in %s", name, e.store.Entries(), time.Since(start))
		}
		e.done.Store(true)
	})
	return e.store, e.err
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loaded reports whether a build of name has finished, successfully or not.
func (r *Registry) Loaded(name string) bool {
	e, ok := r.entries[name]
	if !ok {
		return false
	}
	return e.done.Load()
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry of the built-in profiles,
// configured from the environment on first use. Configuration files are not
// read here; commands that want them build their own registry with
// NewRegistry(Builtin(cfg)...).
func Default() *Registry {
	defaultOnce.Do(func() {
		cfg, err := config.Load(config.LoadOptions{SkipFile: true, Defaults: config.DefaultConfig()})
		if err != nil {
			log.Warningf("profile: load configuration: %v, using defaults", err)
			cfg = config.DefaultConfig()
		}
		defaultRegistry = NewRegistry(Builtin(cfg)...)
	})
	return defaultRegistry
}
