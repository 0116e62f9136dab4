// Package dag holds the execution graph the workflow builders produce: leaf
// tasks grouped into nested subgraphs, with dependency edges between tasks,
// between subgraphs, or across the two.
//
// # Why DAG Exists
//
// Lifecycle work is naturally hierarchical. Each node instance gets its own
// subgraph, relationship operations get a nested subgraph inside it, and
// ordering between instances is expressed once, between their subgraphs,
// instead of between every pair of tasks. Keeping that shape in the graph
// gives three things:
//   - **Scoped failure handling:** a handler attached to a subgraph can absorb
//     the failure of any task inside it
//   - **Compact edges:** one subgraph edge stands for every task-level edge it implies
//   - **Readable plans:** Describe renders the graph the way it was built
//
// # Building and Running
//
// Builders create tasks through the Graph factories, place them in
// subgraphs with Sequence, and connect subgraphs with AddDependency. A Graph
// is not safe for concurrent mutation; it is built by one goroutine and then
// handed to a scheduler, which only reads it. Schedulers work on the flat
// task-level view returned by Plan.
package dag
