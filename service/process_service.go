package service

import (
	"strconv"

	"github.com/taskwing/taskwing/container"
	"github.com/taskwing/taskwing/dag"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"go.uber.org/zap"
)

const taskTypeSubProcess = "SUB_PROCESS"
const subProcessDefinitionIdParam = "processDefinitionId"

// ProcessService owns the definition lifecycle: save, release and the
// read-side views built on the definition's graph.
type ProcessService struct {
	container *container.Container
}

func NewProcessService(container *container.Container) *ProcessService {
	return &ProcessService{container: container}
}

// Save validates the definition's task graph and persists a new definition.
func (s *ProcessService) Save(def *model.ProcessDefinition) model.Result {
	if result := dag.ValidateTaskNodes(def.ProcessData.Tasks); !result.Ok() {
		return result
	}
	def.ReleaseState = model.RELEASE_OFFLINE
	if err := s.container.GetStorage().ProcessDefinitions().Save(def); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	logger.Info("process definition saved", zap.Int64("definition", def.Id), zap.String("name", def.Name))
	return model.OkResult()
}

// Update replaces an existing definition. The storage layer rejects updates
// to ONLINE definitions, surfaced here as a forbidden edit.
func (s *ProcessService) Update(def *model.ProcessDefinition) model.Result {
	if result := dag.ValidateTaskNodes(def.ProcessData.Tasks); !result.Ok() {
		return result
	}
	err := s.container.GetStorage().ProcessDefinitions().Update(def)
	if err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.PROCESS_DEFINE_NOT_EXIST, "process definition %d not found", def.Id)
		}
		if _, ok := err.(persistence.OnlineDefinitionError); ok {
			return model.ErrResult(model.PROCESS_DEFINE_ONLINE_FORBID_EDIT,
				"process definition %d is online, take it offline before editing", def.Id)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	s.container.InvalidateDefinition(def.Id)
	return model.OkResult()
}

func (s *ProcessService) FindById(id int64) (*model.ProcessDefinition, model.Result) {
	def, err := s.container.FindDefinition(id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, model.ErrResult(model.PROCESS_DEFINE_NOT_EXIST, "process definition %d not found", id)
		}
		return nil, model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	return def, model.OkResult()
}

// Release flips a definition online or offline.
func (s *ProcessService) Release(id int64, state model.ReleaseState) model.Result {
	def, result := s.FindById(id)
	if !result.Ok() {
		return result
	}
	if err := s.container.GetStorage().ProcessDefinitions().UpdateReleaseState(def.Id, state); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	s.container.InvalidateDefinition(def.Id)
	logger.Info("release state changed", zap.Int64("definition", def.Id), zap.Int("state", int(state)))
	return model.OkResult()
}

// CheckDefinitionReleased verifies the definition and every sub process
// definition reachable from it is ONLINE. The first offline definition is
// named in the failure.
func (s *ProcessService) CheckDefinitionReleased(def *model.ProcessDefinition) model.Result {
	visited := make(map[int64]bool)
	return s.checkReleasedRecursive(def, visited)
}

func (s *ProcessService) checkReleasedRecursive(def *model.ProcessDefinition, visited map[int64]bool) model.Result {
	if visited[def.Id] {
		return model.OkResult()
	}
	visited[def.Id] = true
	if def.ReleaseState != model.RELEASE_ONLINE {
		return model.ErrResult(model.PROCESS_DEFINE_NOT_RELEASE, "process definition %d is not online", def.Id)
	}
	for _, subId := range SubProcessDefinitionIds(def) {
		sub, result := s.FindById(subId)
		if !result.Ok() {
			return result
		}
		if result := s.checkReleasedRecursive(sub, visited); !result.Ok() {
			return result
		}
	}
	return model.OkResult()
}

// SubProcessDefinitionIds extracts the definition ids referenced by the
// definition's sub process task nodes.
func SubProcessDefinitionIds(def *model.ProcessDefinition) []int64 {
	ids := make([]int64, 0)
	for _, node := range def.ProcessData.Tasks {
		if node.Type != taskTypeSubProcess {
			continue
		}
		raw, ok := node.Params[subProcessDefinitionIdParam]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			ids = append(ids, int64(v))
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// TreeView renders the last runs of a definition layered over its graph.
func (s *ProcessService) TreeView(id int64, limit int) (*dag.TreeViewNode, model.Result) {
	def, result := s.FindById(id)
	if !result.Ok() {
		return nil, result
	}
	storage := s.container.GetStorage()
	instances, err := storage.ProcessInstances().FindLatestByDefinition(def.Id, limit)
	if err != nil {
		return nil, model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	runs := make([]dag.RunHistory, 0, len(instances))
	for _, instance := range instances {
		tasks, err := storage.TaskInstances().FindValidByProcessInstance(instance.Id)
		if err != nil {
			return nil, model.ErrResult(model.INTERNAL_ERROR, "%v", err)
		}
		byName := make(map[string]model.TaskInstance, len(tasks))
		for _, task := range tasks {
			byName[task.Name] = task
		}
		runs = append(runs, dag.RunHistory{ProcessInstanceId: instance.Id, Tasks: byName})
	}
	root, err := dag.TreeView(def.ProcessData.Tasks, runs)
	if err != nil {
		return nil, model.ErrResult(model.PROCESS_GRAPH_HAS_CYCLE, "%v", err)
	}
	return root, model.OkResult()
}

// Gantt renders one process instance's tasks in topological order.
func (s *ProcessService) Gantt(processInstanceId int64) ([]dag.GanttRow, model.Result) {
	storage := s.container.GetStorage()
	instance, err := storage.ProcessInstances().FindById(processInstanceId)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, model.ErrResult(model.PROCESS_INSTANCE_NOT_EXIST, "process instance %d not found", processInstanceId)
		}
		return nil, model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	def, result := s.FindById(instance.ProcessDefinitionId)
	if !result.Ok() {
		return nil, result
	}
	tasks, err := storage.TaskInstances().FindValidByProcessInstance(instance.Id)
	if err != nil {
		return nil, model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	rows, err := dag.Gantt(def.ProcessData.Tasks, tasks)
	if err != nil {
		return nil, model.ErrResult(model.PROCESS_GRAPH_HAS_CYCLE, "%v", err)
	}
	return rows, model.OkResult()
}
