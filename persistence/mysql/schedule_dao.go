package mysql

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
)

type scheduleDao struct {
	db *sqlx.DB
}

type scheduleRow struct {
	Id              int64     `db:"id"`
	ProjectId       int64     `db:"project_id"`
	DefinitionId    int64     `db:"process_definition_id"`
	Crontab         string    `db:"crontab"`
	StartTime       time.Time `db:"start_time"`
	EndTime         time.Time `db:"end_time"`
	ReleaseState    int       `db:"release_state"`
	FailureStrategy string    `db:"failure_strategy"`
	WarningType     string    `db:"warning_type"`
	WarningGroupId  int64     `db:"warning_group_id"`
	Priority        int       `db:"process_instance_priority"`
	WorkerGroupId   int64     `db:"worker_group_id"`
	UserId          int64     `db:"user_id"`
}

func toScheduleRow(s *model.Schedule) *scheduleRow {
	return &scheduleRow{
		Id:              s.Id,
		ProjectId:       s.ProjectId,
		DefinitionId:    s.ProcessDefinitionId,
		Crontab:         s.Crontab,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		ReleaseState:    int(s.ReleaseState),
		FailureStrategy: string(s.FailureStrategy),
		WarningType:     string(s.WarningType),
		WarningGroupId:  s.WarningGroupId,
		Priority:        int(s.Priority),
		WorkerGroupId:   s.WorkerGroupId,
		UserId:          s.UserId,
	}
}

func (r *scheduleRow) toModel() *model.Schedule {
	return &model.Schedule{
		Id:                  r.Id,
		ProjectId:           r.ProjectId,
		ProcessDefinitionId: r.DefinitionId,
		Crontab:             r.Crontab,
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		ReleaseState:        model.ReleaseState(r.ReleaseState),
		FailureStrategy:     model.FailureStrategy(r.FailureStrategy),
		WarningType:         model.WarningType(r.WarningType),
		WarningGroupId:      r.WarningGroupId,
		Priority:            model.Priority(r.Priority),
		WorkerGroupId:       r.WorkerGroupId,
		UserId:              r.UserId,
	}
}

func (d *scheduleDao) Save(schedule *model.Schedule) error {
	res, err := d.db.NamedExec(`INSERT INTO t_schedule
		(project_id, process_definition_id, crontab, start_time, end_time, release_state, failure_strategy,
		 warning_type, warning_group_id, process_instance_priority, worker_group_id, user_id)
		VALUES (:project_id, :process_definition_id, :crontab, :start_time, :end_time, :release_state, :failure_strategy,
		 :warning_type, :warning_group_id, :process_instance_priority, :worker_group_id, :user_id)`, toScheduleRow(schedule))
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	schedule.Id = id
	return nil
}

func (d *scheduleDao) FindById(id int64) (*model.Schedule, error) {
	var row scheduleRow
	err := d.db.Get(&row, `SELECT * FROM t_schedule WHERE id=?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NotFoundError{Entity: "schedule", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return row.toModel(), nil
}

func (d *scheduleDao) Update(schedule *model.Schedule) error {
	_, err := d.db.NamedExec(`UPDATE t_schedule SET
		crontab=:crontab, start_time=:start_time, end_time=:end_time, release_state=:release_state,
		failure_strategy=:failure_strategy, warning_type=:warning_type, warning_group_id=:warning_group_id,
		process_instance_priority=:process_instance_priority, worker_group_id=:worker_group_id
		WHERE id=:id`, toScheduleRow(schedule))
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *scheduleDao) UpdateReleaseState(id int64, state model.ReleaseState) error {
	res, err := d.db.Exec(`UPDATE t_schedule SET release_state=? WHERE id=?`, int(state), id)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	_ = res
	return nil
}

func (d *scheduleDao) FindOnline() ([]model.Schedule, error) {
	var rows []scheduleRow
	err := d.db.Select(&rows, `SELECT * FROM t_schedule WHERE release_state=? ORDER BY id`, int(model.RELEASE_ONLINE))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	online := make([]model.Schedule, 0, len(rows))
	for _, row := range rows {
		online = append(online, *row.toModel())
	}
	return online, nil
}

type tenantDao struct {
	db *sqlx.DB
}

type tenantRow struct {
	Id      int64  `db:"id"`
	Code    string `db:"tenant_code"`
	Name    string `db:"tenant_name"`
	QueueId int64  `db:"queue_id"`
}

func (d *tenantDao) Save(tenant *model.Tenant) error {
	res, err := d.db.NamedExec(`INSERT INTO t_tenant (tenant_code, tenant_name, queue_id)
		VALUES (:tenant_code, :tenant_name, :queue_id)`,
		&tenantRow{Code: tenant.Code, Name: tenant.Name, QueueId: tenant.QueueId})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	tenant.Id = id
	return nil
}

func (d *tenantDao) FindById(id int64) (*model.Tenant, error) {
	var row tenantRow
	err := d.db.Get(&row, `SELECT * FROM t_tenant WHERE id=?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NotFoundError{Entity: "tenant", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return &model.Tenant{Id: row.Id, Code: row.Code, Name: row.Name, QueueId: row.QueueId}, nil
}

// taskQueue stores queue members as rows; the primary key ordering gives
// the same lexical member order as the redis sorted set.
type taskQueue struct {
	db *sqlx.DB
}

var _ persistence.TaskQueue = new(taskQueue)

func (q *taskQueue) Insert(queueName string, node string) error {
	_, err := q.db.Exec(`INSERT IGNORE INTO t_task_queue (queue_name, node) VALUES (?, ?)`, queueName, node)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (q *taskQueue) Remove(queueName string, node string) error {
	res, err := q.db.Exec(`DELETE FROM t_task_queue WHERE queue_name=? AND node=?`, queueName, node)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return persistence.NodeNotFoundError{Node: node}
	}
	return nil
}

func (q *taskQueue) List(queueName string) ([]string, error) {
	var nodes []string
	err := q.db.Select(&nodes, `SELECT node FROM t_task_queue WHERE queue_name=? ORDER BY node`, queueName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return nodes, nil
}
