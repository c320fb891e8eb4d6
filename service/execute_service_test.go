package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskwing/taskwing/container"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/persistence/memory"
)

type fixture struct {
	storage *memory.Storage
	execute *ExecuteService
	process *ProcessService
	command *CommandService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage := memory.NewStorage()
	c := container.NewContainer()
	c.InitWithStorage(storage)
	commandService := NewCommandService(c)
	processService := NewProcessService(c)
	return &fixture{
		storage: storage,
		execute: NewExecuteService(c, commandService, processService),
		process: processService,
		command: commandService,
	}
}

func (f *fixture) saveDefinition(t *testing.T, def model.ProcessDefinition) *model.ProcessDefinition {
	t.Helper()
	require.NoError(t, f.storage.ProcessDefinitions().Save(&def))
	return &def
}

func (f *fixture) saveInstance(t *testing.T, instance model.ProcessInstance) *model.ProcessInstance {
	t.Helper()
	require.NoError(t, f.storage.ProcessInstances().Insert(&instance))
	return &instance
}

func (f *fixture) saveTenant(t *testing.T) {
	t.Helper()
	require.NoError(t, f.storage.Tenants().Save(&model.Tenant{Id: 1, Code: "default", Name: "default"}))
}

func TestExecute(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"test instance not found":            testExecuteNotFound,
		"test stop running instance":         testStopRunning,
		"test pause running instance":        testPauseRunning,
		"test stop finished rejected":        testStopFinished,
		"test stop already stopping":         testStopAlreadyStopping,
		"test repeat running needs finished": testRepeatNeedsFinished,
		"test repeat running":                testRepeatRunning,
		"test repeat duplicate suppressed":   testRepeatDuplicate,
		"test recover suspended":             testRecoverSuspended,
		"test recover failed tasks":          testRecoverFailedTasks,
		"test recovery needs tenant":         testRecoveryNeedsTenant,
		"test tenant backend failure":        testTenantBackendFailure,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture(t))
		})
	}
}

func testExecuteNotFound(t *testing.T, f *fixture) {
	result := f.execute.Execute(999, model.CMD_STOP)
	require.Equal(t, model.PROCESS_INSTANCE_NOT_EXIST, result.Status)
}

func testStopRunning(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_RUNNING})

	result := f.execute.Execute(instance.Id, model.CMD_STOP)
	require.True(t, result.Ok())

	stored, err := f.storage.ProcessInstances().FindById(instance.Id)
	require.NoError(t, err)
	require.Equal(t, model.STATUS_READY_STOP, stored.State)
	require.Equal(t, model.CMD_STOP, stored.CommandType)
	require.Equal(t, []model.CommandType{model.CMD_STOP}, stored.HistoryCmds())
}

func testPauseRunning(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_RUNNING})

	result := f.execute.Execute(instance.Id, model.CMD_PAUSE)
	require.True(t, result.Ok())

	stored, err := f.storage.ProcessInstances().FindById(instance.Id)
	require.NoError(t, err)
	require.Equal(t, model.STATUS_READY_PAUSE, stored.State)
	require.Equal(t, []model.CommandType{model.CMD_PAUSE}, stored.HistoryCmds())
}

func testStopFinished(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_SUCCESS})
	result := f.execute.Execute(instance.Id, model.CMD_STOP)
	require.Equal(t, model.PROCESS_INSTANCE_STATE_ERROR, result.Status)
}

func testStopAlreadyStopping(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_READY_STOP})
	result := f.execute.Execute(instance.Id, model.CMD_STOP)
	require.Equal(t, model.PROCESS_INSTANCE_ALREADY_CHANGED, result.Status)
}

func testRepeatNeedsFinished(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_RUNNING})
	result := f.execute.Execute(instance.Id, model.CMD_REPEAT_RUNNING)
	require.Equal(t, model.PROCESS_INSTANCE_STATE_ERROR, result.Status)
}

func testRepeatRunning(t *testing.T, f *fixture) {
	f.saveTenant(t)
	def := f.saveDefinition(t, model.ProcessDefinition{TenantId: 1, ReleaseState: model.RELEASE_ONLINE})
	instance := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_FAILURE})

	result := f.execute.Execute(instance.Id, model.CMD_REPEAT_RUNNING)
	require.True(t, result.Ok())

	cmds, err := f.storage.Commands().FindPending(def.Id)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, model.CMD_REPEAT_RUNNING, cmds[0].CommandType)
	require.Equal(t, instance.Id, cmds[0].RecoverProcessId())

	// existing instance untouched beyond what was already persisted
	stored, err := f.storage.ProcessInstances().FindById(instance.Id)
	require.NoError(t, err)
	require.Equal(t, model.STATUS_FAILURE, stored.State)
}

func testRepeatDuplicate(t *testing.T, f *fixture) {
	f.saveTenant(t)
	def := f.saveDefinition(t, model.ProcessDefinition{TenantId: 1, ReleaseState: model.RELEASE_ONLINE})
	instance := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_FAILURE})

	require.True(t, f.execute.Execute(instance.Id, model.CMD_REPEAT_RUNNING).Ok())
	result := f.execute.Execute(instance.Id, model.CMD_REPEAT_RUNNING)
	require.Equal(t, model.DUPLICATE_COMMAND, result.Status)

	cmds, err := f.storage.Commands().FindPending(def.Id)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
}

func testRecoverSuspended(t *testing.T, f *fixture) {
	f.saveTenant(t)
	def := f.saveDefinition(t, model.ProcessDefinition{TenantId: 1, ReleaseState: model.RELEASE_ONLINE})

	paused := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_PAUSE})
	require.True(t, f.execute.Execute(paused.Id, model.CMD_RECOVER_SUSPENDED_PROCESS).Ok())

	stopped := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_STOP})
	require.True(t, f.execute.Execute(stopped.Id, model.CMD_RECOVER_SUSPENDED_PROCESS).Ok())

	running := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_RUNNING})
	result := f.execute.Execute(running.Id, model.CMD_RECOVER_SUSPENDED_PROCESS)
	require.Equal(t, model.PROCESS_INSTANCE_STATE_ERROR, result.Status)
}

func testRecoverFailedTasks(t *testing.T, f *fixture) {
	f.saveTenant(t)
	def := f.saveDefinition(t, model.ProcessDefinition{TenantId: 1, ReleaseState: model.RELEASE_ONLINE})

	failed := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_FAILURE})
	require.True(t, f.execute.Execute(failed.Id, model.CMD_START_FAILURE_TASK_PROCESS).Ok())

	succeeded := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_SUCCESS})
	result := f.execute.Execute(succeeded.Id, model.CMD_START_FAILURE_TASK_PROCESS)
	require.Equal(t, model.PROCESS_INSTANCE_STATE_ERROR, result.Status)
}

func testRecoveryNeedsTenant(t *testing.T, f *fixture) {
	def := f.saveDefinition(t, model.ProcessDefinition{TenantId: 42, ReleaseState: model.RELEASE_ONLINE})
	instance := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_FAILURE})

	result := f.execute.Execute(instance.Id, model.CMD_REPEAT_RUNNING)
	require.Equal(t, model.TENANT_NOT_SUITABLE, result.Status)

	// stop is a signal, it never touches the tenant
	running := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_RUNNING})
	require.True(t, f.execute.Execute(running.Id, model.CMD_STOP).Ok())
}

type failingTenantDao struct{}

func (failingTenantDao) Save(*model.Tenant) error {
	return persistence.StorageLayerError{Message: "tenant store down"}
}

func (failingTenantDao) FindById(int64) (*model.Tenant, error) {
	return nil, persistence.StorageLayerError{Message: "tenant store down"}
}

type failingTenantStorage struct {
	persistence.Storage
}

func (failingTenantStorage) Tenants() persistence.TenantDao { return failingTenantDao{} }

func testTenantBackendFailure(t *testing.T, f *fixture) {
	def := f.saveDefinition(t, model.ProcessDefinition{TenantId: 1, ReleaseState: model.RELEASE_ONLINE})
	instance := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_FAILURE})

	c := container.NewContainer()
	c.InitWithStorage(failingTenantStorage{f.storage})
	execute := NewExecuteService(c, NewCommandService(c), NewProcessService(c))

	// a backend outage is not a tenant precondition failure
	result := execute.Execute(instance.Id, model.CMD_REPEAT_RUNNING)
	require.Equal(t, model.INTERNAL_ERROR, result.Status)
}

func TestStartProcess(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"test definition not found":    testStartNotFound,
		"test offline definition":      testStartOffline,
		"test offline sub process":     testStartOfflineSubProcess,
		"test sub process cycle guard": testStartSubProcessCycle,
		"test start online definition": testStartOnline,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture(t))
		})
	}
}

func subProcessDefinition(tenantId int64, state model.ReleaseState, subIds ...int64) model.ProcessDefinition {
	tasks := []model.TaskNode{{Name: "main", Type: "SHELL", Params: map[string]any{"rawScript": "echo hi"}}}
	for _, subId := range subIds {
		tasks = append(tasks, model.TaskNode{
			Name:   "sub",
			Type:   "SUB_PROCESS",
			Params: map[string]any{"processDefinitionId": float64(subId)},
		})
	}
	return model.ProcessDefinition{
		TenantId:     tenantId,
		ReleaseState: state,
		ProcessData:  model.ProcessData{Tasks: tasks},
	}
}

func testStartNotFound(t *testing.T, f *fixture) {
	_, result := f.execute.StartProcess(CommandBuildRequest{ProcessDefinitionId: 999, CommandType: model.CMD_START_PROCESS})
	require.Equal(t, model.PROCESS_DEFINE_NOT_EXIST, result.Status)
}

func testStartOffline(t *testing.T, f *fixture) {
	def := f.saveDefinition(t, subProcessDefinition(1, model.RELEASE_OFFLINE))
	_, result := f.execute.StartProcess(CommandBuildRequest{ProcessDefinitionId: def.Id, CommandType: model.CMD_START_PROCESS})
	require.Equal(t, model.PROCESS_DEFINE_NOT_RELEASE, result.Status)
}

func testStartOfflineSubProcess(t *testing.T, f *fixture) {
	sub := f.saveDefinition(t, subProcessDefinition(1, model.RELEASE_OFFLINE))
	parent := f.saveDefinition(t, subProcessDefinition(1, model.RELEASE_ONLINE, sub.Id))

	_, result := f.execute.StartProcess(CommandBuildRequest{ProcessDefinitionId: parent.Id, CommandType: model.CMD_START_PROCESS})
	require.Equal(t, model.PROCESS_DEFINE_NOT_RELEASE, result.Status)
	require.Contains(t, result.Message, "process definition")
}

func testStartSubProcessCycle(t *testing.T, f *fixture) {
	// a references b, b references a, both online: the walk must terminate
	a := f.saveDefinition(t, subProcessDefinition(1, model.RELEASE_OFFLINE))
	b := f.saveDefinition(t, subProcessDefinition(1, model.RELEASE_ONLINE, a.Id))
	a.ProcessData.Tasks = append(a.ProcessData.Tasks, model.TaskNode{
		Name:   "sub",
		Type:   "SUB_PROCESS",
		Params: map[string]any{"processDefinitionId": float64(b.Id)},
	})
	require.NoError(t, f.storage.ProcessDefinitions().Update(a))
	require.NoError(t, f.storage.ProcessDefinitions().UpdateReleaseState(a.Id, model.RELEASE_ONLINE))
	a.ReleaseState = model.RELEASE_ONLINE

	count, result := f.execute.StartProcess(CommandBuildRequest{ProcessDefinitionId: a.Id, CommandType: model.CMD_START_PROCESS})
	require.True(t, result.Ok())
	require.Equal(t, 1, count)
}

func testStartOnline(t *testing.T, f *fixture) {
	def := f.saveDefinition(t, subProcessDefinition(1, model.RELEASE_ONLINE))
	count, result := f.execute.StartProcess(CommandBuildRequest{
		ProcessDefinitionId: def.Id,
		CommandType:         model.CMD_START_PROCESS,
		StartNodeList:       []string{"main"},
	})
	require.True(t, result.Ok())
	require.Equal(t, 1, count)

	cmds, err := f.storage.Commands().FindPending(def.Id)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, "main", cmds[0].CommandParam[model.PARAM_START_NODES])
}

func TestDeleteProcessInstance(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"test delete not found":      testDeleteNotFound,
		"test delete running":        testDeleteRunning,
		"test delete finished":       testDeleteFinished,
		"test delete releases queue": testDeleteReleasesQueue,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture(t))
		})
	}
}

func testDeleteNotFound(t *testing.T, f *fixture) {
	result := f.execute.DeleteProcessInstance(999)
	require.Equal(t, model.PROCESS_INSTANCE_NOT_EXIST, result.Status)
}

func testDeleteRunning(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_RUNNING})
	result := f.execute.DeleteProcessInstance(instance.Id)
	require.Equal(t, model.PROCESS_INSTANCE_NOT_FINISHED, result.Status)
}

func testDeleteFinished(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_SUCCESS})
	require.True(t, f.execute.DeleteProcessInstance(instance.Id).Ok())

	_, err := f.storage.ProcessInstances().FindById(instance.Id)
	require.True(t, persistence.IsNotFound(err))
}

func testDeleteReleasesQueue(t *testing.T, f *fixture) {
	instance := f.saveInstance(t, model.ProcessInstance{State: model.STATUS_STOP, Priority: model.PRIORITY_MEDIUM})
	task := model.TaskInstance{
		ProcessInstanceId: instance.Id,
		State:             model.STATUS_SUBMITTED,
		Priority:          model.PRIORITY_MEDIUM,
		Flag:              model.FLAG_YES,
	}
	require.NoError(t, f.storage.TaskInstances().Insert(&task))

	c := container.NewContainer()
	c.InitWithStorage(f.storage)
	require.NoError(t, c.GetDispatcher().Enqueue(instance, &task))

	require.True(t, f.execute.DeleteProcessInstance(instance.Id).Ok())

	nodes, err := f.storage.TaskQueue().List("tasks_queue")
	require.NoError(t, err)
	require.Empty(t, nodes)
}
