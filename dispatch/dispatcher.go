package dispatch

import (
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"go.uber.org/zap"
)

// Dispatcher inserts and removes encoded task nodes. It shares the queue key
// space with the external workers, the byte identical node string is the
// only coordination between the two sides.
type Dispatcher struct {
	queue persistence.TaskQueue
}

func NewDispatcher(queue persistence.TaskQueue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Enqueue publishes a task that became eligible to run.
func (d *Dispatcher) Enqueue(process *model.ProcessInstance, task *model.TaskInstance) error {
	node := TaskNodeID(process.Priority, process.Id, task.Priority, task.Id)
	if err := d.queue.Insert(TasksQueue, node); err != nil {
		return err
	}
	logger.Info("task dispatched", zap.String("node", node), zap.String("task", task.Name))
	return nil
}

// Remove takes one node back out of the queue. The caller must pass the
// priorities the node was inserted with, a refreshed priority produces a
// different string and a not found error.
func (d *Dispatcher) Remove(process *model.ProcessInstance, task *model.TaskInstance) error {
	node := TaskNodeID(process.Priority, process.Id, task.Priority, task.Id)
	return d.queue.Remove(TasksQueue, node)
}

// ReleaseProcessTasks removes every non terminal task of a process instance
// from the queue, best effort: a node a worker already claimed is logged and
// skipped, the cleanup of the remaining nodes continues.
func (d *Dispatcher) ReleaseProcessTasks(process *model.ProcessInstance, tasks []model.TaskInstance) error {
	for i := range tasks {
		task := &tasks[i]
		if task.State.IsFinished() {
			continue
		}
		err := d.Remove(process, task)
		if err == nil {
			continue
		}
		if _, ok := err.(persistence.NodeNotFoundError); ok {
			logger.Warn("queue node already gone, likely claimed by a worker",
				zap.Int64("processInstance", process.Id), zap.Int64("taskInstance", task.Id))
			continue
		}
		return err
	}
	return nil
}
