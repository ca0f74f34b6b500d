// Package dag is a small, generic directed graph keyed by string IDs. It
// provides deterministic topological ordering with loud cycle detection and
// knows nothing about simulation modules; the builder package maps module
// wiring onto it.
package dag
