package pipeline

import (
	"errors"
	"fmt"
	"golang.org/x/sync/errgroup"
	"sort"
	"sync"
	"text2phenotype.com/ctcdecode/types"
)

var ErrUnknownConfig = errors.New("unknown decoder configuration")

// Registry holds one decoder per configuration name.
type Registry struct {
	decoders map[string]*Decoder
	names    []string
}

// NewRegistry builds all decoders concurrently; language models are loaded
// in parallel. Nothing is kept when any configuration fails.
func NewRegistry(cfgs []types.Configuration) (*Registry, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: no configurations", ErrUnknownConfig)
	}
	registry := &Registry{decoders: make(map[string]*Decoder, len(cfgs))}
	var mu sync.Mutex
	var g errgroup.Group
	for _, cfg := range cfgs {
		cfg := cfg
		g.Go(func() error {
			d, err := NewDecoder(cfg)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if _, ok := registry.decoders[cfg.Name]; ok {
				d.Close()
				return fmt.Errorf("%w: %q", types.ErrDuplicateConfig, cfg.Name)
			}
			registry.decoders[cfg.Name] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		registry.Close()
		return nil, err
	}
	for name := range registry.decoders {
		registry.names = append(registry.names, name)
	}
	sort.Strings(registry.names)
	return registry, nil
}

// Get resolves a configuration name. An empty name selects the only
// configuration when exactly one is registered.
func (registry *Registry) Get(name string) (*Decoder, error) {
	if len(name) == 0 && len(registry.names) == 1 {
		name = registry.names[0]
	}
	d, ok := registry.decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfig, name)
	}
	return d, nil
}

func (registry *Registry) Names() []string {
	names := make([]string, len(registry.names))
	copy(names, registry.names)
	return names
}

func (registry *Registry) Close() {
	for _, d := range registry.decoders {
		d.Close()
	}
}
