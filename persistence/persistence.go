package persistence

import (
	"fmt"

	"github.com/taskwing/taskwing/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Entity string
	Id     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.Id)
}

func IsNotFound(err error) bool {
	_, ok := err.(NotFoundError)
	return ok
}

// OnlineDefinitionError is returned by ProcessDefinitionDao.Update when the
// stored definition is ONLINE. Online definitions are immutable until taken
// offline.
type OnlineDefinitionError struct {
	Id int64
}

func (e OnlineDefinitionError) Error() string {
	return fmt.Sprintf("process definition %d is online and can not be updated", e.Id)
}

// DuplicateCommandError is returned by InsertIfAbsent when an equivalent
// command is already pending for the same definition.
type DuplicateCommandError struct {
	ProcessDefinitionId int64
}

func (e DuplicateCommandError) Error() string {
	return fmt.Sprintf("an execution command for process definition %d is already queued", e.ProcessDefinitionId)
}

// NodeNotFoundError is returned by TaskQueue.Remove when the exact node
// string is not in the queue, typically because a worker already claimed it.
type NodeNotFoundError struct {
	Node string
}

func (e NodeNotFoundError) Error() string {
	return fmt.Sprintf("queue node %s not found", e.Node)
}

type ProcessDefinitionDao interface {
	Save(def *model.ProcessDefinition) error

	// Update fails when the stored definition is ONLINE, online definitions
	// may not be edited.
	Update(def *model.ProcessDefinition) error

	FindById(id int64) (*model.ProcessDefinition, error)

	FindByName(projectId int64, name string) (*model.ProcessDefinition, error)

	UpdateReleaseState(id int64, state model.ReleaseState) error
}

type CommandDao interface {
	Insert(cmd *model.Command) error

	// InsertIfAbsent treats check-then-insert as one serializable unit: it
	// inserts cmd unless a pending command with the same definition id,
	// command type and recover process id exists, in which case it returns
	// DuplicateCommandError and writes nothing.
	InsertIfAbsent(cmd *model.Command) error

	Delete(id int64) error

	FindPending(processDefinitionId int64) ([]model.Command, error)
}

type ProcessInstanceDao interface {
	Insert(instance *model.ProcessInstance) error

	FindById(id int64) (*model.ProcessInstance, error)

	Update(instance *model.ProcessInstance) error

	UpdateStatus(id int64, status model.ExecutionStatus) error

	// FindLatestByDefinition returns up to limit instances of a process
	// definition, newest first.
	FindLatestByDefinition(processDefinitionId int64, limit int) ([]model.ProcessInstance, error)

	Delete(id int64) error
}

type TaskInstanceDao interface {
	Insert(task *model.TaskInstance) error

	FindById(id int64) (*model.TaskInstance, error)

	// FindValidByProcessInstance returns the task instances of a process
	// instance that have not been flagged invalid by a repeat run.
	FindValidByProcessInstance(processInstanceId int64) ([]model.TaskInstance, error)
}

type ScheduleDao interface {
	Save(schedule *model.Schedule) error

	FindById(id int64) (*model.Schedule, error)

	Update(schedule *model.Schedule) error

	UpdateReleaseState(id int64, state model.ReleaseState) error

	// FindOnline returns every schedule stored ONLINE, the trigger sweeps
	// it at startup to rebuild its cron jobs.
	FindOnline() ([]model.Schedule, error)
}

type TenantDao interface {
	Save(tenant *model.Tenant) error

	FindById(id int64) (*model.Tenant, error)
}

// TaskQueue is the distributed dispatch queue. Backends must order members
// lexically so the encoded node string doubles as the claim priority, and
// Remove must match the byte-identical string that was inserted.
type TaskQueue interface {
	Insert(queueName string, node string) error

	Remove(queueName string, node string) error

	// List returns the members in the backend's sorted order.
	List(queueName string) ([]string, error)
}

// Storage bundles every dao one backend provides.
type Storage interface {
	ProcessDefinitions() ProcessDefinitionDao
	Commands() CommandDao
	ProcessInstances() ProcessInstanceDao
	TaskInstances() TaskInstanceDao
	Schedules() ScheduleDao
	Tenants() TenantDao
	TaskQueue() TaskQueue
}
