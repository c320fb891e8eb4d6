package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taskwing/taskwing/analytics"
	"github.com/taskwing/taskwing/container"
	"github.com/taskwing/taskwing/dag"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/util"
	"go.uber.org/zap"
)

// CommandBuildRequest carries everything needed to turn a run request into
// persisted commands.
type CommandBuildRequest struct {
	CommandType         model.CommandType
	ProcessDefinitionId int64
	TaskDependType      model.TaskDependType
	FailureStrategy     model.FailureStrategy
	StartNodeList       []string
	// Schedule is "<start>,<end>" in util.TimeFormat for complement runs,
	// or a single datetime for a fixed schedule time.
	Schedule         string
	ScheduleTimezone string
	WarningType      model.WarningType
	ExecutorId       int64
	WarningGroupId   int64
	RunMode          model.RunMode
	Priority         model.Priority
	WorkerGroupId    int64
}

// CommandService is the factory every run request funnels through. The
// external runtime consumes the rows it writes.
type CommandService struct {
	container *container.Container
}

func NewCommandService(container *container.Container) *CommandService {
	return &CommandService{container: container}
}

// CreateCommand persists the command rows for one request and returns how
// many were written. Backfill requests expand to one command per day when
// the run mode is parallel.
func (s *CommandService) CreateCommand(req CommandBuildRequest) (int, error) {
	def, err := s.definition(req.ProcessDefinitionId)
	if err != nil {
		return 0, err
	}

	startNodes, err := s.expandStartNodes(def, req)
	if err != nil {
		return 0, err
	}
	param := make(map[string]string)
	if len(startNodes) > 0 {
		param[model.PARAM_START_NODES] = strings.Join(startNodes, ",")
	}
	if req.ScheduleTimezone != "" {
		param[model.PARAM_SCHEDULE_TIMEZONE] = req.ScheduleTimezone
	}

	if req.CommandType != model.CMD_COMPLEMENT_DATA {
		cmd := s.build(req, param)
		if req.Schedule != "" {
			t, err := util.ParseTime(req.Schedule)
			if err != nil {
				return 0, err
			}
			cmd.ScheduleTime = t
		}
		if err := s.applyGlobalParams(def, req, cmd.ScheduleTime, cmd.CommandParam); err != nil {
			return 0, err
		}
		if err := s.container.GetStorage().Commands().Insert(cmd); err != nil {
			return 0, err
		}
		analytics.RecordCommand(req.ProcessDefinitionId, string(req.CommandType), 1)
		return 1, nil
	}

	start, end, err := parseComplementRange(req.Schedule)
	if err != nil {
		return 0, err
	}
	if req.RunMode != model.RUN_MODE_PARALLEL {
		cmd := s.build(req, param)
		cmd.CommandParam[model.PARAM_COMPLEMENT_START_DATE] = util.FormatTime(start)
		cmd.CommandParam[model.PARAM_COMPLEMENT_END_DATE] = util.FormatTime(end)
		if err := s.applyGlobalParams(def, req, start, cmd.CommandParam); err != nil {
			return 0, err
		}
		if err := s.container.GetStorage().Commands().Insert(cmd); err != nil {
			return 0, err
		}
		analytics.RecordCommand(req.ProcessDefinitionId, string(req.CommandType), 1)
		return 1, nil
	}

	days := util.DaysBetween(start, end)
	created := 0
	for _, day := range days {
		dayParam := make(map[string]string, len(param)+2)
		for k, v := range param {
			dayParam[k] = v
		}
		dayParam[model.PARAM_COMPLEMENT_START_DATE] = util.FormatTime(day)
		dayParam[model.PARAM_COMPLEMENT_END_DATE] = util.FormatTime(day)
		if err := s.applyGlobalParams(def, req, day, dayParam); err != nil {
			return created, err
		}
		cmd := s.build(req, dayParam)
		if err := s.container.GetStorage().Commands().Insert(cmd); err != nil {
			return created, err
		}
		created++
	}
	logger.Info("complement commands created",
		zap.Int64("definition", req.ProcessDefinitionId), zap.Int("count", created))
	analytics.RecordCommand(req.ProcessDefinitionId, string(req.CommandType), created)
	return created, nil
}

// definition tolerates a missing row. A command for a definition the
// storage no longer has still inserts, the runtime rejects it on pickup.
func (s *CommandService) definition(id int64) (*model.ProcessDefinition, error) {
	def, err := s.container.FindDefinition(id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

// expandStartNodes widens a TASK_PRE start node list to its predecessor
// closure, so the runtime receives the exact node set it must run.
func (s *CommandService) expandStartNodes(def *model.ProcessDefinition, req CommandBuildRequest) ([]string, error) {
	if def == nil || len(req.StartNodeList) == 0 || req.TaskDependType != model.TASK_PRE {
		return req.StartNodeList, nil
	}
	g, err := dag.BuildGraph(def.ProcessData.Tasks)
	if err != nil {
		return nil, err
	}
	return dag.ParsePreTaskClosure(g, req.StartNodeList)
}

// applyGlobalParams resolves the definition's global params against the run
// context and carries the result on the command, one resolution per command
// so every complement day sees its own schedule time.
func (s *CommandService) applyGlobalParams(def *model.ProcessDefinition, req CommandBuildRequest, scheduleTime time.Time, param map[string]string) error {
	if def == nil || len(def.ProcessData.GlobalParams) == 0 {
		return nil
	}
	context := map[string]any{
		"command": map[string]any{
			"type":     string(req.CommandType),
			"executor": req.ExecutorId,
		},
	}
	if !scheduleTime.IsZero() {
		context["scheduleTime"] = util.FormatTime(scheduleTime)
	}
	resolved := util.ResolveGlobalParams(def.ProcessData.GlobalParams, context)
	data, err := json.Marshal(resolved)
	if err != nil {
		return err
	}
	param[model.PARAM_GLOBAL_PARAMS] = string(data)
	return nil
}

// CreateRecoveryCommand inserts the command re-instantiating an existing
// process instance, suppressing duplicates atomically in the storage layer.
func (s *CommandService) CreateRecoveryCommand(commandType model.CommandType, processDefinitionId int64, recoverInstanceId int64, executorId int64) error {
	cmd := &model.Command{
		CommandType:         commandType,
		ProcessDefinitionId: processDefinitionId,
		CommandParam: map[string]string{
			model.PARAM_RECOVER_PROCESS_ID: fmt.Sprintf("%d", recoverInstanceId),
		},
		ExecutorId: executorId,
		Priority:   model.PRIORITY_MEDIUM,
		StartTime:  time.Now(),
		UpdateTime: time.Now(),
	}
	if err := s.container.GetStorage().Commands().InsertIfAbsent(cmd); err != nil {
		return err
	}
	analytics.RecordCommand(processDefinitionId, string(commandType), 1)
	return nil
}

func (s *CommandService) build(req CommandBuildRequest, param map[string]string) *model.Command {
	now := time.Now()
	return &model.Command{
		CommandType:         req.CommandType,
		ProcessDefinitionId: req.ProcessDefinitionId,
		CommandParam:        param,
		TaskDependType:      req.TaskDependType,
		FailureStrategy:     req.FailureStrategy,
		WarningType:         req.WarningType,
		WarningGroupId:      req.WarningGroupId,
		ExecutorId:          req.ExecutorId,
		Priority:            req.Priority,
		WorkerGroupId:       req.WorkerGroupId,
		StartTime:           now,
		UpdateTime:          now,
	}
}

func parseComplementRange(schedule string) (time.Time, time.Time, error) {
	parts := strings.Split(schedule, ",")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("complement run requires a \"start,end\" date range, got %q", schedule)
	}
	start, err := util.ParseTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := util.ParseTime(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("complement range end %s before start %s", parts[1], parts[0])
	}
	return start, end, nil
}
