package tool

import "github.com/hupe1980/mcphost/logging"

// Registry maps every advertised tool name to its owning provider. It is a
// pure synchronous lookup with no state beyond what providers supply, so it
// is rebuilt from scratch whenever the provider set changes (for example
// after a reconnect).
type Registry struct {
	owners      map[string]Provider
	descriptors []Descriptor
	logger      logging.Logger
}

// Options configures registry construction.
type Options struct {
	// Logger receives a warning per shadowed tool name. Defaults to NoOp.
	Logger logging.Logger
}

// Build iterates providers in the given order and registers each advertised
// tool. On a name collision the later provider wins (last-writer-wins); the
// shadowing is logged so operators can see it.
func Build(providers []Provider, optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Registry{owners: make(map[string]Provider), logger: opts.Logger}
	for _, p := range providers {
		for _, d := range p.Tools() {
			if prev, ok := r.owners[d.Name]; ok {
				r.logger.Warn("registry.tool.shadowed",
					"tool", d.Name,
					"previous_server", prev.Name(),
					"server", p.Name(),
				)
				// Drop the shadowed descriptor so the catalog matches the lookup table.
				for i := range r.descriptors {
					if r.descriptors[i].Name == d.Name {
						r.descriptors = append(r.descriptors[:i], r.descriptors[i+1:]...)
						break
					}
				}
			}
			r.owners[d.Name] = p
			r.descriptors = append(r.descriptors, d)
		}
	}
	return r
}

// Resolve returns the provider owning the named tool, or false if the name is
// not registered.
func (r *Registry) Resolve(name string) (Provider, bool) {
	p, ok := r.owners[name]
	return p, ok
}

// Descriptors returns the flattened catalog in provider-then-intra-provider
// order. The slice is a copy; callers may retain it freely.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Len returns the number of registered tool names.
func (r *Registry) Len() int { return len(r.owners) }
