// Package scheduler provides the decision-making engine for the execution graph.
// Its primary role is to track which tasks of a flattened plan are ready to
// be executed, providing them to the executor.
package scheduler
