package mysql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
)

type commandDao struct {
	db *sqlx.DB
}

type commandRow struct {
	Id              int64     `db:"id"`
	CommandType     string    `db:"command_type"`
	DefinitionId    int64     `db:"process_definition_id"`
	CommandParam    string    `db:"command_param"`
	TaskDependType  string    `db:"task_depend_type"`
	FailureStrategy string    `db:"failure_strategy"`
	WarningType     string    `db:"warning_type"`
	WarningGroupId  int64     `db:"warning_group_id"`
	ScheduleTime    time.Time `db:"schedule_time"`
	ExecutorId      int64     `db:"executor_id"`
	Priority        int       `db:"process_instance_priority"`
	WorkerGroupId   int64     `db:"worker_group_id"`
	StartTime       time.Time `db:"start_time"`
	UpdateTime      time.Time `db:"update_time"`
}

func toCommandRow(cmd *model.Command) (*commandRow, error) {
	param, err := json.Marshal(cmd.CommandParam)
	if err != nil {
		return nil, err
	}
	return &commandRow{
		Id:              cmd.Id,
		CommandType:     string(cmd.CommandType),
		DefinitionId:    cmd.ProcessDefinitionId,
		CommandParam:    string(param),
		TaskDependType:  string(cmd.TaskDependType),
		FailureStrategy: string(cmd.FailureStrategy),
		WarningType:     string(cmd.WarningType),
		WarningGroupId:  cmd.WarningGroupId,
		ScheduleTime:    cmd.ScheduleTime,
		ExecutorId:      cmd.ExecutorId,
		Priority:        int(cmd.Priority),
		WorkerGroupId:   cmd.WorkerGroupId,
		StartTime:       cmd.StartTime,
		UpdateTime:      cmd.UpdateTime,
	}, nil
}

func (r *commandRow) toModel() (*model.Command, error) {
	param := make(map[string]string)
	if r.CommandParam != "" {
		if err := json.Unmarshal([]byte(r.CommandParam), &param); err != nil {
			return nil, err
		}
	}
	return &model.Command{
		Id:                  r.Id,
		CommandType:         model.CommandType(r.CommandType),
		ProcessDefinitionId: r.DefinitionId,
		CommandParam:        param,
		TaskDependType:      model.TaskDependType(r.TaskDependType),
		FailureStrategy:     model.FailureStrategy(r.FailureStrategy),
		WarningType:         model.WarningType(r.WarningType),
		WarningGroupId:      r.WarningGroupId,
		ScheduleTime:        r.ScheduleTime,
		ExecutorId:          r.ExecutorId,
		Priority:            model.Priority(r.Priority),
		WorkerGroupId:       r.WorkerGroupId,
		StartTime:           r.StartTime,
		UpdateTime:          r.UpdateTime,
	}, nil
}

const insertCommandSQL = `INSERT INTO t_command
	(command_type, process_definition_id, command_param, task_depend_type, failure_strategy, warning_type,
	 warning_group_id, schedule_time, executor_id, process_instance_priority, worker_group_id, start_time, update_time)
	VALUES (:command_type, :process_definition_id, :command_param, :task_depend_type, :failure_strategy, :warning_type,
	 :warning_group_id, :schedule_time, :executor_id, :process_instance_priority, :worker_group_id, :start_time, :update_time)`

func (d *commandDao) Insert(cmd *model.Command) error {
	row, err := toCommandRow(cmd)
	if err != nil {
		return err
	}
	res, err := d.db.NamedExec(insertCommandSQL, row)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	cmd.Id = id
	return nil
}

// InsertIfAbsent locks the pending commands of the definition with
// SELECT ... FOR UPDATE so the equivalence check and the insert commit as
// one serializable unit.
func (d *commandDao) InsertIfAbsent(cmd *model.Command) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	defer tx.Rollback()

	var rows []commandRow
	err = tx.Select(&rows, `SELECT * FROM t_command WHERE process_definition_id=? FOR UPDATE`, cmd.ProcessDefinitionId)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	for i := range rows {
		pending, err := rows[i].toModel()
		if err != nil {
			return err
		}
		if pending.CommandType == cmd.CommandType && pending.RecoverProcessId() == cmd.RecoverProcessId() {
			return persistence.DuplicateCommandError{ProcessDefinitionId: cmd.ProcessDefinitionId}
		}
	}
	row, err := toCommandRow(cmd)
	if err != nil {
		return err
	}
	res, err := tx.NamedExec(insertCommandSQL, row)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	cmd.Id = id
	if err := tx.Commit(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *commandDao) Delete(id int64) error {
	res, err := d.db.Exec(`DELETE FROM t_command WHERE id=?`, id)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return persistence.NotFoundError{Entity: "command", Id: id}
	}
	return nil
}

func (d *commandDao) FindPending(processDefinitionId int64) ([]model.Command, error) {
	var rows []commandRow
	err := d.db.Select(&rows, `SELECT * FROM t_command WHERE process_definition_id=? ORDER BY id`, processDefinitionId)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	cmds := make([]model.Command, 0, len(rows))
	for i := range rows {
		cmd, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, *cmd)
	}
	return cmds, nil
}
