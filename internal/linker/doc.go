// Package linker wires per-instance subgraphs into one graph using the
// relationships between node instances.
//
// # Why Linker Exists
//
// The subgraph builders only know about a single node instance. Ordering
// between instances comes entirely from relationships, and the direction of
// that ordering depends on the workflow:
//   - **Install:** the source waits for its target (a database is created
//     before the application that connects to it).
//   - **Teardown:** the target waits for its source (the application is torn
//     down before the database it connects to).
//
// A relationship may name a single target operation in its "operation"
// property. The source then waits only for the work that directly follows
// that operation instead of for the whole target subgraph.
//
// An optional DependencyObserver is told about every edge the linker adds,
// together with the source instance's own task sequence, so callers can
// append relationship operations there.
package linker
