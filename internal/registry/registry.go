package registry

import (
	"errors"
	"fmt"

	"github.com/vk/wiresim/internal/module"
)

var (
	// ErrOutputCollision is returned when two modules declare the same output.
	ErrOutputCollision = errors.New("output name collision")
	// ErrDuplicateModule is returned when two modules share a name.
	ErrDuplicateModule = errors.New("duplicate module name")
)

// Registry maps output names to their producing modules.
type Registry struct {
	modules []*module.Module
	byName  map[string]*module.Module
	owners  map[string]string
	outputs []string
}

// Build registers every module's outputs in order. The first producer of a
// name owns it; a second producer is a fatal error naming both modules.
func Build(modules []*module.Module) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*module.Module, len(modules)),
		owners: make(map[string]string),
	}

	for _, m := range modules {
		if err := m.Check(); err != nil {
			return nil, err
		}
		if _, exists := r.byName[m.Name]; exists {
			return nil, fmt.Errorf("%w: module %q is registered more than once", ErrDuplicateModule, m.Name)
		}
		r.byName[m.Name] = m
		r.modules = append(r.modules, m)

		for _, out := range m.Outputs {
			if owner, exists := r.owners[out]; exists {
				return nil, fmt.Errorf("%w: output %q already provided by %s, cannot also be provided by %s", ErrOutputCollision, out, owner, m.Name)
			}
			r.owners[out] = m.Name
			r.outputs = append(r.outputs, out)
		}
	}

	return r, nil
}

// Producer returns the name of the module that owns the output.
func (r *Registry) Producer(output string) (string, bool) {
	owner, ok := r.owners[output]
	return owner, ok
}

// Module returns the registered module with the given name.
func (r *Registry) Module(name string) (*module.Module, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Modules returns the modules in registration order.
func (r *Registry) Modules() []*module.Module {
	return r.modules
}

// Outputs returns every registered output name in registration order.
func (r *Registry) Outputs() []string {
	return r.outputs
}
