// Package builder turns a single node instance into the subgraph of tasks
// that installs it, uninstalls it, or rolls back an interrupted install.
//
// # Why Builder Exists
//
// Every lifecycle workflow is the same fixed sequence of phase groups with
// different gates. The builder owns that sequence so the workflows only decide
// which instances to build for and how to connect them.
//
// The teardown sequence, in order:
//  1. stop announcement (state "stopping")
//  2. validation after deletion
//  3. monitoring stop
//  4. prestop
//  5. host pre-stop (monitoring agent and agent teardown, compute hosts only)
//  6. stop
//  7. stopped transition
//  8. unlink relationships, in reverse declaration order
//  9. delete (state "deleting")
//  10. postdelete
//  11. final state transition
//  12. "rollbacked" event (rollback only)
//
// Groups 1 and 3 to 7 apply to instances that were mid-start, 8 to 11 to
// instances that were mid-create; otherwise each span collapses to a single
// "nothing to do" event. Operations without an implementation are trimmed
// together with their announcement events.
//
// Builders never run anything and never read state beyond the instance
// snapshot they are given.
package builder
