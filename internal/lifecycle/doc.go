// Package lifecycle decides, from the state an interrupted workflow left a
// node instance in, which teardown phases the instance still needs.
//
// # Why Lifecycle Exists
//
// Rollback must undo exactly the work that was started and nothing else. An
// instance that never reached "creating" has no resource to delete, while an
// instance stuck in "starting" already holds a created and configured resource
// that must be stopped first. The decider turns the recorded state into two
// independent gates the subgraph builder reads:
//   - **MidStart:** the instance began creating, configuring or starting and
//     never reached "started"; the stop phases apply.
//   - **MidCreate:** the instance began creating or configuring and never
//     reached "configured"; the delete phases apply.
//
// Everything in this package is pure.
package lifecycle
