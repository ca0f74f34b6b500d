package builder

import "errors"

// ErrUnresolvedInput is returned when a module input matches no producer,
// transform or lag.
var ErrUnresolvedInput = errors.New("unresolved input")

// SourceKind says where a module input comes from.
type SourceKind int

const (
	// FromModule inputs are read from another module's output this year.
	FromModule SourceKind = iota
	// FromTransform inputs are computed by a transform.
	FromTransform
	// FromLag inputs carry a previous year's settled value.
	FromLag
)

func (k SourceKind) String() string {
	switch k {
	case FromModule:
		return "module"
	case FromTransform:
		return "transform"
	case FromLag:
		return "lag"
	default:
		return "unknown"
	}
}

// Source is the resolution of one module input.
type Source struct {
	Kind SourceKind
	// Name is the producing module, the transform or the lag.
	Name string
	// Deferred is set for lags and cycle-breaker transforms: values that are
	// not ordered by the graph and so are either previous-year or
	// possibly-unsettled current-year data. Everything else is settled by
	// ordering.
	Deferred bool
}

// Node is one module's place in the dependency graph.
type Node struct {
	Name string
	// DependsOn lists the modules that must run first.
	DependsOn []string
	// ProvidesTo lists the modules that depend on this one.
	ProvidesTo []string
}
