// Package app contains the core application logic. It wires a loaded
// deployment snapshot to the stores, the dispatcher, the executor and the
// scale coordinator, decoupled from any specific entrypoint like a CLI.
package app
