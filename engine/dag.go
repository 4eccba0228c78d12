package engine

import (
	"sort"

	"github.com/skillsenselab/expflow/pipeline"
)

// DAG is a read-only dependency graph derived from a pipeline: every task
// across every stage becomes a node, its declared dependencies become edges.
// A DAG is built once per run and never mutated.
type DAG struct {
	nodes map[string]pipeline.Task
	// edges maps a task id to the set of ids it depends on.
	edges map[string]map[string]bool
}

// NewDAG flattens the pipeline's stages into a dependency graph and verifies
// the edge relation is acyclic. A dependency id that does not exist as a node
// is not a construction error: the task can simply never become ready, which
// surfaces as a deadlock at run time.
func NewDAG(p *pipeline.Pipeline) (*DAG, error) {
	d := &DAG{
		nodes: make(map[string]pipeline.Task),
		edges: make(map[string]map[string]bool),
	}

	for _, stage := range p.Stages {
		for _, task := range stage.Tasks {
			d.nodes[task.ID] = task
			deps := make(map[string]bool, len(task.Dependencies))
			for _, dep := range task.Dependencies {
				deps[dep] = true
			}
			d.edges[task.ID] = deps
		}
	}

	if cycle := d.findCycle(); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}

	return d, nil
}

// Len returns the number of nodes in the graph.
func (d *DAG) Len() int { return len(d.nodes) }

// Node returns the pipeline task for an id.
func (d *DAG) Node(id string) (pipeline.Task, bool) {
	t, ok := d.nodes[id]
	return t, ok
}

// NodeIDs returns the sorted ids of every node.
func (d *DAG) NodeIDs() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependencies returns the declared dependency ids of a node.
func (d *DAG) Dependencies(id string) []string {
	deps := make([]string, 0, len(d.edges[id]))
	for dep := range d.edges[id] {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// findCycle runs a three-color depth-first traversal over the dependency
// edges. An edge into an in-progress node closes a cycle; the returned slice
// is the cycle path in traversal order, or nil if the graph is acyclic.
// Dependency ids without a matching node cannot participate in a cycle and
// are skipped.
func (d *DAG) findCycle() []string {
	const (
		white = iota // unvisited
		gray         // in progress
		black        // done
	)

	color := make(map[string]int, len(d.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)

		for _, dep := range d.Dependencies(id) {
			if _, ok := d.nodes[dep]; !ok {
				continue
			}
			switch color[dep] {
			case gray:
				// Slice the current path from the first occurrence of dep.
				for i, v := range stack {
					if v == dep {
						return append(append([]string(nil), stack[i:]...), dep)
					}
				}
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range d.NodeIDs() {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopologicalSort returns a dependency-respecting linearization of all node
// ids via Kahn's algorithm. Ties among independent tasks break by id so the
// order is deterministic. Returns a CycleError if the graph contains a cycle,
// which NewDAG already rules out for graphs it produced.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	dependents := make(map[string][]string)

	for id := range d.nodes {
		inDegree[id] = 0
	}
	for id, deps := range d.edges {
		for dep := range deps {
			if _, ok := d.nodes[dep]; !ok {
				continue
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for _, id := range d.NodeIDs() {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		sort.Strings(queue)
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(d.nodes) {
		remaining := make([]string, 0)
		for id := range d.nodes {
			if inDegree[id] > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &CycleError{Cycle: remaining}
	}

	return order, nil
}

// ReadyTasks returns the sorted ids of every task not yet completed whose
// full dependency set is a subset of completed. A task with no dependencies
// is always ready; a task with a dangling dependency id is never ready.
func (d *DAG) ReadyTasks(completed map[string]bool) []string {
	var ready []string
	for id, deps := range d.edges {
		if completed[id] {
			continue
		}
		ok := true
		for dep := range deps {
			if !completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	return ready
}
