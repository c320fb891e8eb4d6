package memory

import (
	"sort"
	"sync"

	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
)

// Storage keeps everything in process. Useful for tests and for running a
// single node without external backends.
type Storage struct {
	definitions *definitionDao
	commands    *commandDao
	instances   *instanceDao
	tasks       *taskDao
	schedules   *scheduleDao
	tenants     *tenantDao
	queue       *taskQueue
}

var _ persistence.Storage = new(Storage)

func NewStorage() *Storage {
	return &Storage{
		definitions: &definitionDao{items: make(map[int64]model.ProcessDefinition)},
		commands:    &commandDao{items: make(map[int64]model.Command)},
		instances:   &instanceDao{items: make(map[int64]model.ProcessInstance)},
		tasks:       &taskDao{items: make(map[int64]model.TaskInstance)},
		schedules:   &scheduleDao{items: make(map[int64]model.Schedule)},
		tenants:     &tenantDao{items: make(map[int64]model.Tenant)},
		queue:       &taskQueue{queues: make(map[string][]string)},
	}
}

func (s *Storage) ProcessDefinitions() persistence.ProcessDefinitionDao { return s.definitions }
func (s *Storage) Commands() persistence.CommandDao                    { return s.commands }
func (s *Storage) ProcessInstances() persistence.ProcessInstanceDao    { return s.instances }
func (s *Storage) TaskInstances() persistence.TaskInstanceDao          { return s.tasks }
func (s *Storage) Schedules() persistence.ScheduleDao                  { return s.schedules }
func (s *Storage) Tenants() persistence.TenantDao                      { return s.tenants }
func (s *Storage) TaskQueue() persistence.TaskQueue                    { return s.queue }

type definitionDao struct {
	mu     sync.Mutex
	nextId int64
	items  map[int64]model.ProcessDefinition
}

func (d *definitionDao) Save(def *model.ProcessDefinition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if def.Id == 0 {
		d.nextId++
		def.Id = d.nextId
	}
	d.items[def.Id] = *def
	return nil
}

func (d *definitionDao) Update(def *model.ProcessDefinition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	stored, ok := d.items[def.Id]
	if !ok {
		return persistence.NotFoundError{Entity: "process definition", Id: def.Id}
	}
	if stored.ReleaseState == model.RELEASE_ONLINE {
		return persistence.OnlineDefinitionError{Id: stored.Id}
	}
	def.Version = stored.Version + 1
	d.items[def.Id] = *def
	return nil
}

func (d *definitionDao) FindById(id int64) (*model.ProcessDefinition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	def, ok := d.items[id]
	if !ok {
		return nil, persistence.NotFoundError{Entity: "process definition", Id: id}
	}
	return &def, nil
}

func (d *definitionDao) FindByName(projectId int64, name string) (*model.ProcessDefinition, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, def := range d.items {
		if def.ProjectId == projectId && def.Name == name {
			found := def
			return &found, nil
		}
	}
	return nil, persistence.NotFoundError{Entity: "process definition", Id: 0}
}

func (d *definitionDao) UpdateReleaseState(id int64, state model.ReleaseState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	def, ok := d.items[id]
	if !ok {
		return persistence.NotFoundError{Entity: "process definition", Id: id}
	}
	def.ReleaseState = state
	d.items[id] = def
	return nil
}

type commandDao struct {
	mu     sync.Mutex
	nextId int64
	items  map[int64]model.Command
}

func (d *commandDao) Insert(cmd *model.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insertLocked(cmd)
	return nil
}

func (d *commandDao) insertLocked(cmd *model.Command) {
	d.nextId++
	cmd.Id = d.nextId
	d.items[cmd.Id] = *cmd
}

func (d *commandDao) InsertIfAbsent(cmd *model.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pending := range d.items {
		if pending.ProcessDefinitionId == cmd.ProcessDefinitionId &&
			pending.CommandType == cmd.CommandType &&
			pending.RecoverProcessId() == cmd.RecoverProcessId() {
			return persistence.DuplicateCommandError{ProcessDefinitionId: cmd.ProcessDefinitionId}
		}
	}
	d.insertLocked(cmd)
	return nil
}

func (d *commandDao) Delete(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[id]; !ok {
		return persistence.NotFoundError{Entity: "command", Id: id}
	}
	delete(d.items, id)
	return nil
}

func (d *commandDao) FindPending(processDefinitionId int64) ([]model.Command, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cmds := make([]model.Command, 0)
	for _, cmd := range d.items {
		if cmd.ProcessDefinitionId == processDefinitionId {
			cmds = append(cmds, cmd)
		}
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Id < cmds[j].Id })
	return cmds, nil
}

type instanceDao struct {
	mu     sync.Mutex
	nextId int64
	items  map[int64]model.ProcessInstance
}

func (d *instanceDao) Insert(instance *model.ProcessInstance) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if instance.Id == 0 {
		d.nextId++
		instance.Id = d.nextId
	}
	d.items[instance.Id] = *instance
	return nil
}

func (d *instanceDao) FindById(id int64) (*model.ProcessInstance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	instance, ok := d.items[id]
	if !ok {
		return nil, persistence.NotFoundError{Entity: "process instance", Id: id}
	}
	return &instance, nil
}

func (d *instanceDao) Update(instance *model.ProcessInstance) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[instance.Id]; !ok {
		return persistence.NotFoundError{Entity: "process instance", Id: instance.Id}
	}
	d.items[instance.Id] = *instance
	return nil
}

func (d *instanceDao) UpdateStatus(id int64, status model.ExecutionStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	instance, ok := d.items[id]
	if !ok {
		return persistence.NotFoundError{Entity: "process instance", Id: id}
	}
	instance.State = status
	d.items[id] = instance
	return nil
}

func (d *instanceDao) FindLatestByDefinition(processDefinitionId int64, limit int) ([]model.ProcessInstance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	instances := make([]model.ProcessInstance, 0)
	for _, instance := range d.items {
		if instance.ProcessDefinitionId == processDefinitionId {
			instances = append(instances, instance)
		}
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].Id > instances[j].Id })
	if len(instances) > limit {
		instances = instances[:limit]
	}
	return instances, nil
}

func (d *instanceDao) Delete(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[id]; !ok {
		return persistence.NotFoundError{Entity: "process instance", Id: id}
	}
	delete(d.items, id)
	return nil
}

type taskDao struct {
	mu     sync.Mutex
	nextId int64
	items  map[int64]model.TaskInstance
}

func (d *taskDao) Insert(task *model.TaskInstance) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if task.Id == 0 {
		d.nextId++
		task.Id = d.nextId
	}
	d.items[task.Id] = *task
	return nil
}

func (d *taskDao) FindById(id int64) (*model.TaskInstance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.items[id]
	if !ok {
		return nil, persistence.NotFoundError{Entity: "task instance", Id: id}
	}
	return &task, nil
}

func (d *taskDao) FindValidByProcessInstance(processInstanceId int64) ([]model.TaskInstance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tasks := make([]model.TaskInstance, 0)
	for _, task := range d.items {
		if task.ProcessInstanceId == processInstanceId && task.Flag == model.FLAG_YES {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Id < tasks[j].Id })
	return tasks, nil
}

type scheduleDao struct {
	mu     sync.Mutex
	nextId int64
	items  map[int64]model.Schedule
}

func (d *scheduleDao) Save(schedule *model.Schedule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if schedule.Id == 0 {
		d.nextId++
		schedule.Id = d.nextId
	}
	d.items[schedule.Id] = *schedule
	return nil
}

func (d *scheduleDao) FindById(id int64) (*model.Schedule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	schedule, ok := d.items[id]
	if !ok {
		return nil, persistence.NotFoundError{Entity: "schedule", Id: id}
	}
	return &schedule, nil
}

func (d *scheduleDao) Update(schedule *model.Schedule) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[schedule.Id]; !ok {
		return persistence.NotFoundError{Entity: "schedule", Id: schedule.Id}
	}
	d.items[schedule.Id] = *schedule
	return nil
}

func (d *scheduleDao) UpdateReleaseState(id int64, state model.ReleaseState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	schedule, ok := d.items[id]
	if !ok {
		return persistence.NotFoundError{Entity: "schedule", Id: id}
	}
	schedule.ReleaseState = state
	d.items[id] = schedule
	return nil
}

func (d *scheduleDao) FindOnline() ([]model.Schedule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	online := make([]model.Schedule, 0)
	for _, schedule := range d.items {
		if schedule.ReleaseState == model.RELEASE_ONLINE {
			online = append(online, schedule)
		}
	}
	sort.Slice(online, func(i, j int) bool { return online[i].Id < online[j].Id })
	return online, nil
}

type tenantDao struct {
	mu     sync.Mutex
	nextId int64
	items  map[int64]model.Tenant
}

func (d *tenantDao) Save(tenant *model.Tenant) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tenant.Id == 0 {
		d.nextId++
		tenant.Id = d.nextId
	}
	d.items[tenant.Id] = *tenant
	return nil
}

func (d *tenantDao) FindById(id int64) (*model.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tenant, ok := d.items[id]
	if !ok {
		return nil, persistence.NotFoundError{Entity: "tenant", Id: id}
	}
	return &tenant, nil
}

// taskQueue keeps each queue as a sorted string slice, matching the lexical
// member ordering of the redis backend.
type taskQueue struct {
	mu     sync.Mutex
	queues map[string][]string
}

var _ persistence.TaskQueue = new(taskQueue)

func (q *taskQueue) Insert(queueName string, node string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	members := q.queues[queueName]
	idx := sort.SearchStrings(members, node)
	if idx < len(members) && members[idx] == node {
		return nil
	}
	members = append(members, "")
	copy(members[idx+1:], members[idx:])
	members[idx] = node
	q.queues[queueName] = members
	return nil
}

func (q *taskQueue) Remove(queueName string, node string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	members := q.queues[queueName]
	idx := sort.SearchStrings(members, node)
	if idx >= len(members) || members[idx] != node {
		return persistence.NodeNotFoundError{Node: node}
	}
	q.queues[queueName] = append(members[:idx], members[idx+1:]...)
	return nil
}

func (q *taskQueue) List(queueName string) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	members := q.queues[queueName]
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}
