package service

import (
	"github.com/taskwing/taskwing/analytics"
	"github.com/taskwing/taskwing/container"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"go.uber.org/zap"
)

// ExecuteService applies operator requested transitions to process
// instances. Pause and stop are signals: this service writes the READY_*
// state and the external runtime performs the actual halt on its own cycle.
type ExecuteService struct {
	container      *container.Container
	commandService *CommandService
	processService *ProcessService
}

func NewExecuteService(container *container.Container, commandService *CommandService, processService *ProcessService) *ExecuteService {
	return &ExecuteService{
		container:      container,
		commandService: commandService,
		processService: processService,
	}
}

// Execute validates and applies one operator requested operation against a
// process instance.
func (s *ExecuteService) Execute(processInstanceId int64, op model.CommandType) model.Result {
	instance, err := s.container.GetStorage().ProcessInstances().FindById(processInstanceId)
	if err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.PROCESS_INSTANCE_NOT_EXIST, "process instance %d not found", processInstanceId)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}

	result := checkOperation(instance, op)
	if result.Ok() {
		switch op {
		case model.CMD_PAUSE:
			result = s.signal(instance, op, model.STATUS_READY_PAUSE)
		case model.CMD_STOP:
			result = s.signal(instance, op, model.STATUS_READY_STOP)
		case model.CMD_REPEAT_RUNNING, model.CMD_RECOVER_SUSPENDED_PROCESS, model.CMD_START_FAILURE_TASK_PROCESS:
			result = s.recover(instance, op)
		default:
			result = model.ErrResult(model.INTERNAL_ERROR, "unsupported operation %s", op)
		}
	}
	analytics.RecordOperation(processInstanceId, string(op), result.Message)
	return result
}

// checkOperation is the state gate: a mismatch between the instance's
// current status and the requested operation fails with no side effect.
func checkOperation(instance *model.ProcessInstance, op model.CommandType) model.Result {
	state := instance.State
	ok := false
	switch op {
	case model.CMD_PAUSE, model.CMD_STOP:
		if (op == model.CMD_PAUSE && state == model.STATUS_READY_PAUSE) ||
			(op == model.CMD_STOP && state == model.STATUS_READY_STOP) {
			return model.ErrResult(model.PROCESS_INSTANCE_ALREADY_CHANGED,
				"process instance %d is already %s", instance.Id, state)
		}
		ok = state.IsRunning()
	case model.CMD_REPEAT_RUNNING:
		ok = state.IsFinished()
	case model.CMD_START_FAILURE_TASK_PROCESS:
		ok = state.IsFailure()
	case model.CMD_RECOVER_SUSPENDED_PROCESS:
		ok = state.IsPaused() || state.IsCancelled()
	}
	if !ok {
		return model.ErrResult(model.PROCESS_INSTANCE_STATE_ERROR,
			"process instance %d is %s, can not %s", instance.Id, state, op)
	}
	return model.OkResult()
}

// signal records the requested command on the instance, then flips it into
// the transitional READY_* state. The order matters: the runtime must never
// observe the signal state without the command type already persisted.
func (s *ExecuteService) signal(instance *model.ProcessInstance, op model.CommandType, readyState model.ExecutionStatus) model.Result {
	instance.CommandType = op
	instance.AddHistoryCmd(op)
	dao := s.container.GetStorage().ProcessInstances()
	if err := dao.Update(instance); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if err := dao.UpdateStatus(instance.Id, readyState); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	logger.Info("transition requested", zap.Int64("processInstance", instance.Id),
		zap.String("op", string(op)), zap.String("state", readyState.String()))
	return model.OkResult()
}

// recover re-instantiates an existing run through a new command. The
// existing instance is left untouched, the runtime builds a fresh one when
// it consumes the command.
func (s *ExecuteService) recover(instance *model.ProcessInstance, op model.CommandType) model.Result {
	def, err := s.container.FindDefinition(instance.ProcessDefinitionId)
	if err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.PROCESS_DEFINE_NOT_EXIST, "process definition %d not found", instance.ProcessDefinitionId)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if result := s.checkTenantSuitable(def); !result.Ok() {
		return result
	}
	err = s.commandService.CreateRecoveryCommand(op, def.Id, instance.Id, instance.ExecutorId)
	if err != nil {
		if _, ok := err.(persistence.DuplicateCommandError); ok {
			return model.ErrResult(model.DUPLICATE_COMMAND,
				"an execution command for process definition %d is already queued", def.Id)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	logger.Info("recovery command created", zap.Int64("processInstance", instance.Id), zap.String("op", string(op)))
	return model.OkResult()
}

// checkTenantSuitable verifies the definition's tenant resolves to a usable
// execution identity before any recovery command is queued.
func (s *ExecuteService) checkTenantSuitable(def *model.ProcessDefinition) model.Result {
	tenant, err := s.container.GetStorage().Tenants().FindById(def.TenantId)
	if err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.TENANT_NOT_SUITABLE,
				"tenant %d of process definition %d is not suitable", def.TenantId, def.Id)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if tenant.Code == "" {
		return model.ErrResult(model.TENANT_NOT_SUITABLE,
			"tenant %d of process definition %d is not suitable", def.TenantId, def.Id)
	}
	return model.OkResult()
}

// StartProcess creates the commands for a brand new run. No process
// instance exists yet, so this is purely a command factory call behind the
// release gate.
func (s *ExecuteService) StartProcess(req CommandBuildRequest) (int, model.Result) {
	def, err := s.container.FindDefinition(req.ProcessDefinitionId)
	if err != nil {
		if persistence.IsNotFound(err) {
			return 0, model.ErrResult(model.PROCESS_DEFINE_NOT_EXIST, "process definition %d not found", req.ProcessDefinitionId)
		}
		return 0, model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if result := s.processService.CheckDefinitionReleased(def); !result.Ok() {
		return 0, result
	}
	count, err := s.commandService.CreateCommand(req)
	if err != nil {
		return count, model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	return count, model.OkResult()
}

// DeleteProcessInstance removes a finished run and clears whatever it left
// on the dispatch queue. Queue nodes a worker already claimed are tolerated.
func (s *ExecuteService) DeleteProcessInstance(processInstanceId int64) model.Result {
	storage := s.container.GetStorage()
	instance, err := storage.ProcessInstances().FindById(processInstanceId)
	if err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.PROCESS_INSTANCE_NOT_EXIST, "process instance %d not found", processInstanceId)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if !instance.State.IsFinished() {
		return model.ErrResult(model.PROCESS_INSTANCE_NOT_FINISHED,
			"process instance %d is %s, only finished instances can be deleted", instance.Id, instance.State)
	}
	tasks, err := storage.TaskInstances().FindValidByProcessInstance(instance.Id)
	if err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if err := s.container.GetDispatcher().ReleaseProcessTasks(instance, tasks); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if err := storage.ProcessInstances().Delete(instance.Id); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	logger.Info("process instance deleted", zap.Int64("processInstance", instance.Id))
	return model.OkResult()
}
