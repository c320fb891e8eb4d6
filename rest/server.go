package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/scheduler"
	"github.com/taskwing/taskwing/service"
	"go.opencensus.io/plugin/ochttp"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port           int
	processService *service.ProcessService
	executeService *service.ExecuteService
	trigger        *scheduler.Trigger
}

func NewServer(httpPort int, processService *service.ProcessService, executeService *service.ExecuteService, trigger *scheduler.Trigger) (*Server, error) {

	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		processService: processService,
		executeService: executeService,
		trigger:        trigger,
		Port:           httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/definition", s.HandleSaveDefinition).Methods(http.MethodPost)
	router.HandleFunc("/definition/{id}", s.HandleGetDefinition).Methods(http.MethodGet)
	router.HandleFunc("/definition/{id}", s.HandleUpdateDefinition).Methods(http.MethodPut)
	router.HandleFunc("/definition/{id}/release", s.HandleReleaseDefinition).Methods(http.MethodPost)
	router.HandleFunc("/definition/{id}/tree", s.HandleTreeView).Methods(http.MethodGet)

	router.HandleFunc("/execution/start", s.HandleStartProcess).Methods(http.MethodPost)
	router.HandleFunc("/execution/{id}/execute", s.HandleExecute).Methods(http.MethodPost)
	router.HandleFunc("/execution/{id}", s.HandleDeleteInstance).Methods(http.MethodDelete)
	router.HandleFunc("/execution/{id}/gantt", s.HandleGantt).Methods(http.MethodGet)

	router.HandleFunc("/schedule", s.HandleCreateSchedule).Methods(http.MethodPost)
	router.HandleFunc("/schedule/{id}", s.HandleUpdateSchedule).Methods(http.MethodPut)
	router.HandleFunc("/projects/{projectId}/schedule/{id}/online", s.HandleScheduleOnline).Methods(http.MethodPost)
	router.HandleFunc("/projects/{projectId}/schedule/{id}/offline", s.HandleScheduleOffline).Methods(http.MethodPost)

	router.Use(loggingMiddleware)
	s.Handler = &ochttp.Handler{Handler: router}
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := uuid.NewString()
		logger.Info(r.RequestURI, zap.String("method", r.Method), zap.String("requestId", requestId))
		w.Header().Set("X-Request-Id", requestId)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondResult translates the service layer's status codes to HTTP.
func respondResult(w http.ResponseWriter, result model.Result) {
	respondWithJSON(w, httpStatus(result.Status), result)
}

func httpStatus(status model.Status) int {
	switch status {
	case model.SUCCESS:
		return http.StatusOK
	case model.PROCESS_DEFINE_NOT_EXIST, model.PROCESS_INSTANCE_NOT_EXIST, model.SCHEDULE_NOT_EXIST:
		return http.StatusNotFound
	case model.INTERNAL_ERROR:
		return http.StatusInternalServerError
	case model.DUPLICATE_COMMAND, model.PROCESS_INSTANCE_ALREADY_CHANGED:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
