package engine

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle found while building a DAG.
// Cycle holds the task ids along the cycle path, in traversal order.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "engine: dependency cycle detected"
	}
	return fmt.Sprintf("engine: dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// DeadlockError reports a run that stalled: no task is ready, none is in
// flight, yet tasks remain. Typically caused by a dangling dependency id.
type DeadlockError struct {
	Remaining []string
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("engine: run deadlocked with %d remaining tasks: %s",
		len(e.Remaining), strings.Join(e.Remaining, ", "))
}
