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

type instanceDao struct {
	db *sqlx.DB
}

type instanceRow struct {
	Id            int64     `db:"id"`
	Name          string    `db:"name"`
	DefinitionId  int64     `db:"process_definition_id"`
	State         int       `db:"state"`
	CommandType   string    `db:"command_type"`
	ScheduleTime  time.Time `db:"schedule_time"`
	StartTime     time.Time `db:"start_time"`
	EndTime       time.Time `db:"end_time"`
	GlobalParams  string    `db:"global_params"`
	Priority      int       `db:"process_instance_priority"`
	TenantId      int64     `db:"tenant_id"`
	WorkerGroupId int64     `db:"worker_group_id"`
	HistoryCmd    string    `db:"history_cmd"`
	IsSubProcess  bool      `db:"is_sub_process"`
	ParentTaskId  int64     `db:"parent_task_id"`
	ExecutorId    int64     `db:"executor_id"`
	RunTimes      int       `db:"run_times"`
}

func toInstanceRow(p *model.ProcessInstance) (*instanceRow, error) {
	globals, err := json.Marshal(p.GlobalParams)
	if err != nil {
		return nil, err
	}
	return &instanceRow{
		Id:            p.Id,
		Name:          p.Name,
		DefinitionId:  p.ProcessDefinitionId,
		State:         int(p.State),
		CommandType:   string(p.CommandType),
		ScheduleTime:  p.ScheduleTime,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		GlobalParams:  string(globals),
		Priority:      int(p.Priority),
		TenantId:      p.TenantId,
		WorkerGroupId: p.WorkerGroupId,
		HistoryCmd:    p.HistoryCmd,
		IsSubProcess:  p.IsSubProcess,
		ParentTaskId:  p.ParentTaskId,
		ExecutorId:    p.ExecutorId,
		RunTimes:      p.RunTimes,
	}, nil
}

func (r *instanceRow) toModel() (*model.ProcessInstance, error) {
	var globals []model.Property
	if r.GlobalParams != "" {
		if err := json.Unmarshal([]byte(r.GlobalParams), &globals); err != nil {
			return nil, err
		}
	}
	return &model.ProcessInstance{
		Id:                  r.Id,
		Name:                r.Name,
		ProcessDefinitionId: r.DefinitionId,
		State:               model.ExecutionStatus(r.State),
		CommandType:         model.CommandType(r.CommandType),
		ScheduleTime:        r.ScheduleTime,
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		GlobalParams:        globals,
		Priority:            model.Priority(r.Priority),
		TenantId:            r.TenantId,
		WorkerGroupId:       r.WorkerGroupId,
		HistoryCmd:          r.HistoryCmd,
		IsSubProcess:        r.IsSubProcess,
		ParentTaskId:        r.ParentTaskId,
		ExecutorId:          r.ExecutorId,
		RunTimes:            r.RunTimes,
	}, nil
}

func (d *instanceDao) Insert(instance *model.ProcessInstance) error {
	row, err := toInstanceRow(instance)
	if err != nil {
		return err
	}
	res, err := d.db.NamedExec(`INSERT INTO t_process_instance
		(name, process_definition_id, state, command_type, schedule_time, start_time, end_time, global_params,
		 process_instance_priority, tenant_id, worker_group_id, history_cmd, is_sub_process, parent_task_id, executor_id, run_times)
		VALUES (:name, :process_definition_id, :state, :command_type, :schedule_time, :start_time, :end_time, :global_params,
		 :process_instance_priority, :tenant_id, :worker_group_id, :history_cmd, :is_sub_process, :parent_task_id, :executor_id, :run_times)`, row)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	instance.Id = id
	return nil
}

func (d *instanceDao) FindById(id int64) (*model.ProcessInstance, error) {
	var row instanceRow
	err := d.db.Get(&row, `SELECT * FROM t_process_instance WHERE id=?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NotFoundError{Entity: "process instance", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return row.toModel()
}

func (d *instanceDao) Update(instance *model.ProcessInstance) error {
	row, err := toInstanceRow(instance)
	if err != nil {
		return err
	}
	_, err = d.db.NamedExec(`UPDATE t_process_instance SET
		name=:name, state=:state, command_type=:command_type, schedule_time=:schedule_time, start_time=:start_time,
		end_time=:end_time, global_params=:global_params, process_instance_priority=:process_instance_priority,
		tenant_id=:tenant_id, worker_group_id=:worker_group_id, history_cmd=:history_cmd, run_times=:run_times
		WHERE id=:id`, row)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *instanceDao) UpdateStatus(id int64, status model.ExecutionStatus) error {
	if _, err := d.db.Exec(`UPDATE t_process_instance SET state=? WHERE id=?`, int(status), id); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *instanceDao) FindLatestByDefinition(processDefinitionId int64, limit int) ([]model.ProcessInstance, error) {
	var rows []instanceRow
	err := d.db.Select(&rows, `SELECT * FROM t_process_instance WHERE process_definition_id=? ORDER BY id DESC LIMIT ?`,
		processDefinitionId, limit)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	instances := make([]model.ProcessInstance, 0, len(rows))
	for i := range rows {
		instance, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		instances = append(instances, *instance)
	}
	return instances, nil
}

func (d *instanceDao) Delete(id int64) error {
	res, err := d.db.Exec(`DELETE FROM t_process_instance WHERE id=?`, id)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return persistence.NotFoundError{Entity: "process instance", Id: id}
	}
	return nil
}
