package mysql

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
)

type taskDao struct {
	db *sqlx.DB
}

type taskRow struct {
	Id                int64     `db:"id"`
	Name              string    `db:"name"`
	TaskType          string    `db:"task_type"`
	ProcessInstanceId int64     `db:"process_instance_id"`
	State             int       `db:"state"`
	Host              string    `db:"host"`
	StartTime         time.Time `db:"start_time"`
	EndTime           time.Time `db:"end_time"`
	Priority          int       `db:"task_instance_priority"`
	WorkerGroup       string    `db:"worker_group"`
	LogPath           string    `db:"log_path"`
	RetryTimes        int       `db:"retry_times"`
	Flag              int       `db:"flag"`
}

func (r *taskRow) toModel() *model.TaskInstance {
	return &model.TaskInstance{
		Id:                r.Id,
		Name:              r.Name,
		TaskType:          r.TaskType,
		ProcessInstanceId: r.ProcessInstanceId,
		State:             model.ExecutionStatus(r.State),
		Host:              r.Host,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		Priority:          model.Priority(r.Priority),
		WorkerGroup:       r.WorkerGroup,
		LogPath:           r.LogPath,
		RetryTimes:        r.RetryTimes,
		Flag:              model.Flag(r.Flag),
	}
}

func (d *taskDao) Insert(task *model.TaskInstance) error {
	row := &taskRow{
		Name:              task.Name,
		TaskType:          task.TaskType,
		ProcessInstanceId: task.ProcessInstanceId,
		State:             int(task.State),
		Host:              task.Host,
		StartTime:         task.StartTime,
		EndTime:           task.EndTime,
		Priority:          int(task.Priority),
		WorkerGroup:       task.WorkerGroup,
		LogPath:           task.LogPath,
		RetryTimes:        task.RetryTimes,
		Flag:              int(task.Flag),
	}
	res, err := d.db.NamedExec(`INSERT INTO t_task_instance
		(name, task_type, process_instance_id, state, host, start_time, end_time, task_instance_priority, worker_group, log_path, retry_times, flag)
		VALUES (:name, :task_type, :process_instance_id, :state, :host, :start_time, :end_time, :task_instance_priority, :worker_group, :log_path, :retry_times, :flag)`, row)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	task.Id = id
	return nil
}

func (d *taskDao) FindById(id int64) (*model.TaskInstance, error) {
	var row taskRow
	err := d.db.Get(&row, `SELECT * FROM t_task_instance WHERE id=?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NotFoundError{Entity: "task instance", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return row.toModel(), nil
}

func (d *taskDao) FindValidByProcessInstance(processInstanceId int64) ([]model.TaskInstance, error) {
	var rows []taskRow
	err := d.db.Select(&rows, `SELECT * FROM t_task_instance WHERE process_instance_id=? AND flag=? ORDER BY id`, processInstanceId, int(model.FLAG_YES))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	tasks := make([]model.TaskInstance, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, *rows[i].toModel())
	}
	return tasks, nil
}
