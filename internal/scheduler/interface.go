// Package scheduler provides the scheduling logic for determining which tasks
// in the execution plan are ready to run based on dependency satisfaction.
//
// # Why Scheduler Exists
//
// The scheduler is the engine that enables parallel execution. It tracks, for
// every task, how many prerequisites are still outstanding, and hands out a
// task the moment that count reaches zero.
//
// This provides several key benefits:
//   - **Automatic Parallelization:** Independent tasks become ready together
//   - **Dependency Safety:** A task is only released after all its prerequisites finished
//   - **Decoupled Logic:** Separates "what can run" (scheduler) from "how to run it" (executor)
//
// # How It Works
//
//  1. Initial returns every task with no prerequisites
//  2. The executor calls Start before running a task and Finish after it
//  3. Finish returns the dependents whose last prerequisite just finished
//  4. Discard drops tasks that must not run; they count as finished for
//     their dependents
//
// # Thread-Safety
//
// All methods are safe for concurrent use by executor workers.
package scheduler

import "github.com/specialistvlad/instancegraph/internal/task"

// Scheduler tracks task readiness over a plan.
type Scheduler interface {
	// Initial returns the tasks that are ready before anything has run.
	Initial() []*task.Task
	// Start claims a ready task for execution. It returns false if the task
	// was discarded after becoming ready.
	Start(id string) bool
	// Finish marks a running task as finished and returns the tasks that
	// became ready as a result.
	Finish(id string) []*task.Task
	// Discard drops the given tasks if they have not started yet and returns
	// the ids actually dropped plus the tasks that became ready as a result.
	Discard(ids []string) (dropped []string, ready []*task.Task)
	// Outstanding returns the number of tasks that have not finished or been
	// dropped.
	Outstanding() int
}
