package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/taskwing/taskwing/dag"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"go.uber.org/zap"
)

func pathId(r *http.Request, name string) (int64, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) HandleSaveDefinition(w http.ResponseWriter, r *http.Request) {
	var def model.ProcessDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed process definition")
		return
	}
	defer r.Body.Close()
	result := s.processService.Save(&def)
	if !result.Ok() {
		logger.Error("error saving process definition", zap.String("name", def.Name), zap.String("message", result.Message))
		respondResult(w, result)
		return
	}
	respondOK(w, map[string]any{"id": def.Id})
}

func (s *Server) HandleGetDefinition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid definition id")
		return
	}
	def, result := s.processService.FindById(id)
	if !result.Ok() {
		respondResult(w, result)
		return
	}
	// the edge list is derived, clients get it precomputed
	respondWithJSON(w, http.StatusOK, map[string]any{
		"definition": def,
		"connects":   dag.Relations(def.ProcessData.Tasks),
	})
}

func (s *Server) HandleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid definition id")
		return
	}
	var def model.ProcessDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed process definition")
		return
	}
	defer r.Body.Close()
	def.Id = id
	result := s.processService.Update(&def)
	if !result.Ok() {
		logger.Error("error updating process definition", zap.Int64("id", id), zap.String("message", result.Message))
	}
	respondResult(w, result)
}

type releaseRequest struct {
	ReleaseState model.ReleaseState `json:"releaseState"`
}

func (s *Server) HandleReleaseDefinition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid definition id")
		return
	}
	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed release request")
		return
	}
	defer r.Body.Close()
	respondResult(w, s.processService.Release(id, req.ReleaseState))
}

func (s *Server) HandleTreeView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid definition id")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	root, result := s.processService.TreeView(id, limit)
	if !result.Ok() {
		respondResult(w, result)
		return
	}
	respondWithJSON(w, http.StatusOK, root)
}
