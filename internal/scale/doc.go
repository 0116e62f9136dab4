// Package scale runs scale transactions: it opens a modification against the
// topology, installs the instances it adds, uninstalls the instances it
// removes and then commits or rolls the modification back.
//
// # Why Scale Exists
//
// Scaling touches two systems that must stay consistent: the topology that
// records which instances exist, and the resources the instances stand for.
// The Coordinator ties them together:
//   - **Additions:** property updates and the optional transaction tag are
//     written before anything runs; a failed install is followed by a
//     best-effort uninstall of exactly the instances it tried to add
//   - **Removal Guard:** when the caller lists the ids it expects to lose,
//     any other victim aborts the transaction before a single task runs
//   - **Atomicity:** success commits the modification; any error rolls it
//     back and is returned to the caller
//
// Every transaction is traced with OpenTelemetry and counted by outcome.
package scale
