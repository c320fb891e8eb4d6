// Package dispatch owns the encoded node string that couples a task
// instance's priority to its claim order in the distributed queue.
//
// The encoding is plain unpadded decimal, so the lexical order the queue
// backends provide only matches numeric priority order while all live
// priority values share a digit count. That fragility is inherited from the
// wire contract, consumers key removals on the exact string and a padded
// format would strand every in-flight entry.
package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taskwing/taskwing/model"
)

// TasksQueue is the queue every dispatchable task instance lands on.
const TasksQueue = "tasks_queue"

// TaskNodeID encodes a task instance's queue node as
// "<processPriority>_<processInstanceId>_<taskPriority>_<taskInstanceId>".
func TaskNodeID(processPriority model.Priority, processInstanceId int64, taskPriority model.Priority, taskInstanceId int64) string {
	return fmt.Sprintf("%d_%d_%d_%d", processPriority, processInstanceId, taskPriority, taskInstanceId)
}

type TaskNodeKey struct {
	ProcessPriority   model.Priority
	ProcessInstanceId int64
	TaskPriority      model.Priority
	TaskInstanceId    int64
}

func ParseTaskNodeID(node string) (TaskNodeKey, error) {
	parts := strings.Split(node, "_")
	if len(parts) != 4 {
		return TaskNodeKey{}, fmt.Errorf("malformed task node %q", node)
	}
	values := make([]int64, 4)
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v < 0 {
			return TaskNodeKey{}, fmt.Errorf("malformed task node %q", node)
		}
		values[i] = v
	}
	return TaskNodeKey{
		ProcessPriority:   model.Priority(values[0]),
		ProcessInstanceId: values[1],
		TaskPriority:      model.Priority(values[2]),
		TaskInstanceId:    values[3],
	}, nil
}
