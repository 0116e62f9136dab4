// Package workflow composes the subgraph builders and the linker into
// complete execution graphs for the rollback, install and uninstall
// workflows.
//
// # Why Workflow Exists
//
// Every workflow graph is assembled the same way:
//  1. Each active node instance gets its own subgraph from a builder.
//  2. Each intact node instance (related to an active one but not itself
//     changing) gets an empty stub subgraph so edges can attach to it.
//  3. Active instances are linked among themselves and to intact ones.
//  4. Intact instances are linked to active ones; the relationship
//     operations they owe their changing neighbours (establish on install,
//     unlink on teardown) are appended to their stubs.
//
// Construction is synchronous and deterministic: identical input always
// yields a graph of identical shape. A fresh graph is built for every call
// and never mutated afterwards.
package workflow
