package dag

import (
	"time"

	"github.com/taskwing/taskwing/model"
)

// TreeViewNode is one task rendered in the tree view. Diamond dependencies
// share a single child node reached from several parents.
type TreeViewNode struct {
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Instances []TreeViewEntry `json:"instances"`
	Children  []*TreeViewNode `json:"children"`
}

// TreeViewEntry is the state of this task in one historical run. Zero valued
// times plus the NOT_RUN state mark a run where the node never got a task
// instance.
type TreeViewEntry struct {
	ProcessInstanceId int64     `json:"processInstanceId"`
	TaskInstanceId    int64     `json:"taskInstanceId"`
	State             string    `json:"state"`
	StartTime         time.Time `json:"startTime"`
	EndTime           time.Time `json:"endTime"`
	Host              string    `json:"host"`
}

const stateNotRun = "NOT_RUN"

// RunHistory is the task instances of one historical process instance,
// keyed by task name.
type RunHistory struct {
	ProcessInstanceId int64
	Tasks             map[string]model.TaskInstance
}

// TreeView layers the definition's graph breadth first from its begin nodes
// and attaches, per node, the matching task instance from each of the given
// recent runs.
func TreeView(taskNodes []model.TaskNode, runs []RunHistory) (*TreeViewNode, error) {
	g, err := BuildGraph(taskNodes)
	if err != nil {
		return nil, err
	}
	root := &TreeViewNode{Name: "DAG", Type: "ROOT"}
	rendered := make(map[string]*TreeViewNode)
	frontier := g.BeginNodes()
	for _, name := range frontier {
		root.Children = append(root.Children, renderNode(g, name, runs, rendered))
	}
	for len(frontier) > 0 {
		next := make([]string, 0)
		for _, name := range frontier {
			parent := rendered[name]
			for _, childName := range g.SubsequentNodes(name) {
				_, seen := rendered[childName]
				child := renderNode(g, childName, runs, rendered)
				if !containsNode(parent.Children, child) {
					parent.Children = append(parent.Children, child)
				}
				if !seen {
					next = append(next, childName)
				}
			}
		}
		frontier = next
	}
	return root, nil
}

func renderNode(g *Graph[string, model.TaskNode], name string, runs []RunHistory, rendered map[string]*TreeViewNode) *TreeViewNode {
	if node, ok := rendered[name]; ok {
		return node
	}
	taskNode, _ := g.Node(name)
	node := &TreeViewNode{Name: name, Type: taskNode.Type}
	for _, run := range runs {
		if ti, ok := run.Tasks[name]; ok {
			node.Instances = append(node.Instances, TreeViewEntry{
				ProcessInstanceId: run.ProcessInstanceId,
				TaskInstanceId:    ti.Id,
				State:             ti.State.String(),
				StartTime:         ti.StartTime,
				EndTime:           ti.EndTime,
				Host:              ti.Host,
			})
			continue
		}
		node.Instances = append(node.Instances, TreeViewEntry{
			ProcessInstanceId: run.ProcessInstanceId,
			State:             stateNotRun,
		})
	}
	rendered[name] = node
	return node
}

func containsNode(nodes []*TreeViewNode, node *TreeViewNode) bool {
	for _, n := range nodes {
		if n == node {
			return true
		}
	}
	return false
}

// GanttRow is one task of a single run, emitted in topological order.
type GanttRow struct {
	Name      string        `json:"name"`
	State     string        `json:"state"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
}

// Gantt linearizes one process instance's tasks along the definition's
// topological order.
func Gantt(taskNodes []model.TaskNode, tasks []model.TaskInstance) ([]GanttRow, error) {
	g, err := BuildGraph(taskNodes)
	if err != nil {
		return nil, err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.TaskInstance, len(tasks))
	for _, ti := range tasks {
		byName[ti.Name] = ti
	}
	rows := make([]GanttRow, 0, len(order))
	for _, name := range order {
		row := GanttRow{Name: name, State: stateNotRun}
		if ti, ok := byName[name]; ok {
			row.State = ti.State.String()
			row.StartTime = ti.StartTime
			row.EndTime = ti.EndTime
			if !ti.EndTime.IsZero() && !ti.StartTime.IsZero() {
				row.Duration = ti.EndTime.Sub(ti.StartTime)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
