package dag

import (
	"fmt"

	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/task"
)

// BuildGraph converts a definition's task list into a graph: one node per
// task name, one edge per preTask -> task. The same build is used for save
// time validation, execution planning and the presentation views.
func BuildGraph(taskNodes []model.TaskNode) (*Graph[string, model.TaskNode], error) {
	g := NewGraph[string, model.TaskNode]()
	for _, node := range taskNodes {
		if err := g.AddNode(node.Name, node); err != nil {
			return nil, err
		}
	}
	for _, node := range taskNodes {
		for _, pre := range node.PreTasks {
			if err := g.AddEdge(pre, node.Name); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Relations derives the edge list from the task nodes. Edges are never
// stored on their own, preTasks is the source of truth.
func Relations(taskNodes []model.TaskNode) []model.TaskNodeRelation {
	relations := make([]model.TaskNodeRelation, 0)
	for _, node := range taskNodes {
		for _, pre := range node.PreTasks {
			relations = append(relations, model.TaskNodeRelation{StartNode: pre, EndNode: node.Name})
		}
	}
	return relations
}

// ValidateTaskNodes is the save blocking validation path: every node's type
// must be registered and its params must pass the type's validator, and the
// resulting graph must be acyclic. Nothing may be persisted on failure.
func ValidateTaskNodes(taskNodes []model.TaskNode) model.Result {
	if len(taskNodes) == 0 {
		return model.ErrResult(model.TASK_NODE_INVALID, "task node list is empty")
	}
	for _, node := range taskNodes {
		if err := task.Validate(node); err != nil {
			return model.ErrResult(model.TASK_NODE_INVALID, "task node %s invalid: %v", node.Name, err)
		}
	}
	g, err := BuildGraph(taskNodes)
	if err != nil {
		return model.ErrResult(model.TASK_NODE_INVALID, "%v", err)
	}
	if g.HasCycle() {
		return model.ErrResult(model.PROCESS_GRAPH_HAS_CYCLE, "process graph has a cycle")
	}
	return model.OkResult()
}

// ParsePreTaskClosure returns the names reachable backwards from the given
// start nodes, start nodes included. Used when a run is restricted to a
// start node subset but still has to honor predecessor closure.
func ParsePreTaskClosure(g *Graph[string, model.TaskNode], startNodes []string) ([]string, error) {
	seen := make(map[string]struct{})
	stack := make([]string, 0, len(startNodes))
	for _, name := range startNodes {
		if _, ok := g.Node(name); !ok {
			return nil, fmt.Errorf("start node %s not in process graph", name)
		}
		stack = append(stack, name)
	}
	closure := make([]string, 0)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		closure = append(closure, name)
		stack = append(stack, g.PreviousNodes(name)...)
	}
	return closure, nil
}
