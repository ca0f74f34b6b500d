// Package engine is the year stepper. It wires a configuration once (wiring
// validation, output registry, execution plan, parameter merging) and then
// drives the simulation year by year.
//
// Each year runs one or more passes over the fixed module order. A pass calls
// every module's step with a freshly assembled input record: values produced
// earlier in the same pass, falling back to the previous pass, with lags
// supplying the previous year's settled data. Passes repeat until two
// consecutive passes agree within the configured relative tolerance or the
// iteration cap is reached; only then is module state committed and the
// year's record appended to the run result.
//
// Execution is single-threaded and deterministic. Cancellation is honoured
// between years only, never mid-pass.
package engine
