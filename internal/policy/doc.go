// Package policy provides the failure handlers the workflow builders attach
// to tasks and subgraphs.
//
// Two independent mechanisms exist:
//   - **IgnoreHandler:** attached to every leaf task when a workflow runs with
//     failures ignored. The failure becomes an event and the run continues.
//   - **RelationshipAbsorber:** attached to subgraphs holding relationship
//     operations. A failed relationship operation drops the rest of that
//     subgraph and marks the enclosing instance subgraph as failed without
//     aborting the run.
//
// Both handlers check for cancellation before absorbing anything: a failure
// observed after the run was cancelled is reported as a cancellation.
package policy
