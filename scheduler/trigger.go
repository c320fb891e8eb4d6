package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/taskwing/taskwing/container"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/service"
	"github.com/taskwing/taskwing/util"
	"go.uber.org/zap"
)

// Trigger owns the cron runtime that turns online schedules into SCHEDULER
// commands. Jobs are keyed by schedule and project so an offline request
// can find exactly the entry it must remove.
type Trigger struct {
	container      *container.Container
	commandService *service.CommandService
	processService *service.ProcessService

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewTrigger(container *container.Container, commandService *service.CommandService, processService *service.ProcessService) *Trigger {
	return &Trigger{
		container:      container,
		commandService: commandService,
		processService: processService,
		cron:           cron.New(cron.WithSeconds()),
		entries:        make(map[string]cron.EntryID),
	}
}

// Start re-registers the cron job of every schedule stored ONLINE before
// starting the cron runtime. The entry map is process local, a restart has
// to rebuild it from storage or stored-online schedules would never fire
// again and could never be taken offline.
func (t *Trigger) Start() error {
	online, err := t.container.GetStorage().Schedules().FindOnline()
	if err != nil {
		return err
	}
	for _, schedule := range online {
		if err := t.SetSchedule(schedule.ProjectId, schedule.Id); err != nil {
			return err
		}
	}
	t.cron.Start()
	logger.Info("schedule trigger started", zap.Int("schedules", len(online)))
	return nil
}

func (t *Trigger) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	logger.Info("schedule trigger stopped")
}

func jobKey(scheduleId int64, projectId int64) string {
	return fmt.Sprintf("%d_%d", scheduleId, projectId)
}

// SetSchedule registers the cron job for a schedule, replacing any existing
// entry for the same key.
func (t *Trigger) SetSchedule(projectId int64, scheduleId int64) error {
	schedule, err := t.container.GetStorage().Schedules().FindById(scheduleId)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := jobKey(scheduleId, projectId)
	if entryId, ok := t.entries[key]; ok {
		t.cron.Remove(entryId)
		delete(t.entries, key)
	}
	entryId, err := t.cron.AddFunc(schedule.Crontab, t.fire(*schedule))
	if err != nil {
		return fmt.Errorf("invalid crontab %q for schedule %d: %w", schedule.Crontab, scheduleId, err)
	}
	t.entries[key] = entryId
	logger.Info("schedule registered", zap.Int64("schedule", scheduleId),
		zap.Int64("project", projectId), zap.String("crontab", schedule.Crontab))
	return nil
}

// DeleteSchedule removes the cron job for a schedule. A missing entry is an
// error, the offline path relies on knowing the job really existed.
func (t *Trigger) DeleteSchedule(projectId int64, scheduleId int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := jobKey(scheduleId, projectId)
	entryId, ok := t.entries[key]
	if !ok {
		return fmt.Errorf("no cron entry registered for schedule %d in project %d", scheduleId, projectId)
	}
	t.cron.Remove(entryId)
	delete(t.entries, key)
	logger.Info("schedule removed", zap.Int64("schedule", scheduleId), zap.Int64("project", projectId))
	return nil
}

// fire builds the job closure for one schedule. The validity window is
// re-checked on every tick, a registered job outside its window is a no-op.
// The tick time travels on the command as its schedule time, the runtime
// needs it to know which tick produced the run.
func (t *Trigger) fire(schedule model.Schedule) func() {
	return func() {
		now := time.Now()
		if now.Before(schedule.StartTime) || now.After(schedule.EndTime) {
			logger.Debug("schedule outside validity window, skipping",
				zap.Int64("schedule", schedule.Id))
			return
		}
		count, err := t.commandService.CreateCommand(service.CommandBuildRequest{
			CommandType:         model.CMD_SCHEDULER,
			ProcessDefinitionId: schedule.ProcessDefinitionId,
			FailureStrategy:     schedule.FailureStrategy,
			Schedule:            util.FormatTime(now),
			ScheduleTimezone:    now.Location().String(),
			WarningType:         schedule.WarningType,
			WarningGroupId:      schedule.WarningGroupId,
			ExecutorId:          schedule.UserId,
			Priority:            schedule.Priority,
			WorkerGroupId:       schedule.WorkerGroupId,
		})
		if err != nil {
			logger.Error("scheduled command creation failed",
				zap.Int64("schedule", schedule.Id), zap.Error(err))
			return
		}
		logger.Info("scheduled command created", zap.Int64("schedule", schedule.Id),
			zap.Int64("definition", schedule.ProcessDefinitionId), zap.Int("count", count))
	}
}

// ValidateCrontab rejects expressions the cron runtime cannot parse.
func ValidateCrontab(expression string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := parser.Parse(expression)
	return err
}

// CreateSchedule validates and persists a new schedule, always OFFLINE.
func (t *Trigger) CreateSchedule(schedule *model.Schedule) model.Result {
	if result := t.validateSchedule(schedule); !result.Ok() {
		return result
	}
	schedule.ReleaseState = model.RELEASE_OFFLINE
	if err := t.container.GetStorage().Schedules().Save(schedule); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	return model.OkResult()
}

// UpdateSchedule rewrites a schedule in place. Online schedules keep their
// running job until they are cycled offline and online again.
func (t *Trigger) UpdateSchedule(schedule *model.Schedule) model.Result {
	if result := t.validateSchedule(schedule); !result.Ok() {
		return result
	}
	if _, err := t.container.GetStorage().Schedules().FindById(schedule.Id); err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.SCHEDULE_NOT_EXIST, "schedule %d not found", schedule.Id)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if err := t.container.GetStorage().Schedules().Update(schedule); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	return model.OkResult()
}

func (t *Trigger) validateSchedule(schedule *model.Schedule) model.Result {
	if err := ValidateCrontab(schedule.Crontab); err != nil {
		return model.ErrResult(model.SCHEDULE_CRON_INVALID, "invalid crontab %q: %v", schedule.Crontab, err)
	}
	if !schedule.EndTime.After(schedule.StartTime) {
		return model.ErrResult(model.SCHEDULE_TIME_RANGE_INVALID,
			"schedule end time must be after start time")
	}
	return model.OkResult()
}

// SetOnline validates the target definition chain, registers the cron job
// and only then flips the schedule ONLINE. Registering first mirrors
// SetOffline's remove-then-flip ordering, a stored-ONLINE schedule always
// has a job behind it.
func (t *Trigger) SetOnline(projectId int64, scheduleId int64) model.Result {
	schedule, err := t.container.GetStorage().Schedules().FindById(scheduleId)
	if err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.SCHEDULE_NOT_EXIST, "schedule %d not found", scheduleId)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	def, result := t.processService.FindById(schedule.ProcessDefinitionId)
	if !result.Ok() {
		return result
	}
	if result := t.processService.CheckDefinitionReleased(def); !result.Ok() {
		return result
	}
	if err := t.SetSchedule(projectId, scheduleId); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if err := t.container.GetStorage().Schedules().UpdateReleaseState(scheduleId, model.RELEASE_ONLINE); err != nil {
		if deleteErr := t.DeleteSchedule(projectId, scheduleId); deleteErr != nil {
			logger.Error("rollback of cron registration failed",
				zap.Int64("schedule", scheduleId), zap.Error(deleteErr))
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	return model.OkResult()
}

// SetOffline removes the cron job first so no tick can fire against a
// schedule already marked offline, then flips the release state.
func (t *Trigger) SetOffline(projectId int64, scheduleId int64) model.Result {
	if _, err := t.container.GetStorage().Schedules().FindById(scheduleId); err != nil {
		if persistence.IsNotFound(err) {
			return model.ErrResult(model.SCHEDULE_NOT_EXIST, "schedule %d not found", scheduleId)
		}
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if err := t.DeleteSchedule(projectId, scheduleId); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	if err := t.container.GetStorage().Schedules().UpdateReleaseState(scheduleId, model.RELEASE_OFFLINE); err != nil {
		return model.ErrResult(model.INTERNAL_ERROR, "%v", err)
	}
	return model.OkResult()
}
