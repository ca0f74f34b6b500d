// Package wiring provides the static pre-flight checks run over a complete
// simulation configuration before any module executes.
//
// Every issue found is collected and reported together so that a single run
// surfaces all wiring mistakes at once, rather than one per attempt.
package wiring
