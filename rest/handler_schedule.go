package rest

import (
	"encoding/json"
	"net/http"

	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"go.uber.org/zap"
)

func (s *Server) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var schedule model.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed schedule")
		return
	}
	defer r.Body.Close()
	result := s.trigger.CreateSchedule(&schedule)
	if !result.Ok() {
		logger.Error("error creating schedule", zap.Int64("definition", schedule.ProcessDefinitionId), zap.String("message", result.Message))
		respondResult(w, result)
		return
	}
	respondOK(w, map[string]any{"id": schedule.Id})
}

func (s *Server) HandleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	var schedule model.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed schedule")
		return
	}
	defer r.Body.Close()
	schedule.Id = id
	respondResult(w, s.trigger.UpdateSchedule(&schedule))
}

func (s *Server) HandleScheduleOnline(w http.ResponseWriter, r *http.Request) {
	projectId, ok := pathId(r, "projectId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	result := s.trigger.SetOnline(projectId, id)
	if !result.Ok() {
		logger.Error("error setting schedule online", zap.Int64("schedule", id), zap.String("message", result.Message))
	}
	respondResult(w, result)
}

func (s *Server) HandleScheduleOffline(w http.ResponseWriter, r *http.Request) {
	projectId, ok := pathId(r, "projectId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	result := s.trigger.SetOffline(projectId, id)
	if !result.Ok() {
		logger.Error("error setting schedule offline", zap.Int64("schedule", id), zap.String("message", result.Message))
	}
	respondResult(w, result)
}
