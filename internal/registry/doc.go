// Package registry holds the output registry: the ownership map from every
// declared output name to the single module that produces it.
//
// The registry is built once per run from the ordered module list. Two modules
// declaring the same output is a configuration error, reported with both
// module names, because downstream consumers would otherwise silently read
// whichever producer happened to run last.
package registry
