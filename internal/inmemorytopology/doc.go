// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store and topologystore.Modifier interfaces. It is
// designed for deployments that fit comfortably in memory and do not require
// persistent storage.
package inmemorytopology
