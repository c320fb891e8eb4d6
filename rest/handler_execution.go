package rest

import (
	"encoding/json"
	"net/http"

	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/service"
	"go.uber.org/zap"
)

type startProcessRequest struct {
	ProcessDefinitionId int64                 `json:"processDefinitionId"`
	CommandType         model.CommandType     `json:"commandType"`
	TaskDependType      model.TaskDependType  `json:"taskDependType"`
	FailureStrategy     model.FailureStrategy `json:"failureStrategy"`
	StartNodeList       []string              `json:"startNodeList"`
	Schedule            string                `json:"schedule"`
	ScheduleTimezone    string                `json:"scheduleTimezone"`
	WarningType         model.WarningType     `json:"warningType"`
	WarningGroupId      int64                 `json:"warningGroupId"`
	ExecutorId          int64                 `json:"executorId"`
	RunMode             string                `json:"runMode"`
	Priority            model.Priority        `json:"processInstancePriority"`
	WorkerGroupId       int64                 `json:"workerGroupId"`
}

func (s *Server) HandleStartProcess(w http.ResponseWriter, r *http.Request) {
	var req startProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed start request")
		return
	}
	defer r.Body.Close()
	commandType := req.CommandType
	if commandType == "" {
		commandType = model.CMD_START_PROCESS
	}
	count, result := s.executeService.StartProcess(service.CommandBuildRequest{
		CommandType:         commandType,
		ProcessDefinitionId: req.ProcessDefinitionId,
		TaskDependType:      req.TaskDependType,
		FailureStrategy:     req.FailureStrategy,
		StartNodeList:       req.StartNodeList,
		Schedule:            req.Schedule,
		ScheduleTimezone:    req.ScheduleTimezone,
		WarningType:         req.WarningType,
		WarningGroupId:      req.WarningGroupId,
		ExecutorId:          req.ExecutorId,
		RunMode:             model.ToRunMode(req.RunMode),
		Priority:            req.Priority,
		WorkerGroupId:       req.WorkerGroupId,
	})
	if !result.Ok() {
		logger.Error("error starting process", zap.Int64("definition", req.ProcessDefinitionId), zap.String("message", result.Message))
		respondResult(w, result)
		return
	}
	respondOK(w, map[string]any{"commands": count})
}

type executeRequest struct {
	Operation model.CommandType `json:"operation"`
}

func (s *Server) HandleExecute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid process instance id")
		return
	}
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed execute request")
		return
	}
	defer r.Body.Close()
	result := s.executeService.Execute(id, req.Operation)
	if !result.Ok() {
		logger.Error("error executing operation", zap.Int64("processInstance", id),
			zap.String("operation", string(req.Operation)), zap.String("message", result.Message))
	}
	respondResult(w, result)
}

func (s *Server) HandleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid process instance id")
		return
	}
	respondResult(w, s.executeService.DeleteProcessInstance(id))
}

func (s *Server) HandleGantt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid process instance id")
		return
	}
	rows, result := s.processService.Gantt(id)
	if !result.Ok() {
		respondResult(w, result)
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}
