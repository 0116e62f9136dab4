// Package inmemorystore provides a thread-safe, in-memory implementation
// of the propertystore.Store interface. It is suitable for development, testing,
// or any scenario where runtime properties do not need to be persisted.
package inmemorystore
