/*
Package builder constructs the module execution plan. It acts as the bridge
between the declared wiring (modules, transforms and lags) and the year
stepper in the engine package.

The primary artifact produced by this package is a validated, ready-to-run
*Plan.

Plan construction is a multi-phase process:

 1. Node Creation: one graph node per module, in registration order. Transforms
    and lags never become nodes.

 2. Dependency Linking: every module input is resolved, in order, to the module
    producing it (an edge), to a transform (edges to the modules that
    ultimately produce the names in its declared dependency set, resolved
    recursively through other transforms; none for a cycle-breaker), or to a
    lag (no edge). Anything else is an unresolved input.

 3. Ordering: a depth-first topological sort over the module graph. A cycle
    among direct module edges fails loudly instead of picking an order, since
    an arbitrary order would let one module consume stale data silently.
*/
package builder
