package mysql

import (
	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"

	"github.com/taskwing/taskwing/persistence"
)

type Config struct {
	DSN string
}

// Storage is the mysql implementation of every dao, built on sqlx. The
// duplicate suppressed command insert runs inside a single transaction.
type Storage struct {
	db          *sqlx.DB
	definitions *definitionDao
	commands    *commandDao
	instances   *instanceDao
	tasks       *taskDao
	schedules   *scheduleDao
	tenants     *tenantDao
	queue       *taskQueue
}

var _ persistence.Storage = new(Storage)

func NewStorage(conf Config) (*Storage, error) {
	db, err := sqlx.Connect("mysql", conf.DSN)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return &Storage{
		db:          db,
		definitions: &definitionDao{db: db},
		commands:    &commandDao{db: db},
		instances:   &instanceDao{db: db},
		tasks:       &taskDao{db: db},
		schedules:   &scheduleDao{db: db},
		tenants:     &tenantDao{db: db},
		queue:       &taskQueue{db: db},
	}, nil
}

func (s *Storage) ProcessDefinitions() persistence.ProcessDefinitionDao { return s.definitions }
func (s *Storage) Commands() persistence.CommandDao                    { return s.commands }
func (s *Storage) ProcessInstances() persistence.ProcessInstanceDao    { return s.instances }
func (s *Storage) TaskInstances() persistence.TaskInstanceDao          { return s.tasks }
func (s *Storage) Schedules() persistence.ScheduleDao                  { return s.schedules }
func (s *Storage) Tenants() persistence.TenantDao                      { return s.tenants }
func (s *Storage) TaskQueue() persistence.TaskQueue                    { return s.queue }

// Schema is the DDL the storage expects, applied by the operator.
const Schema = `
CREATE TABLE IF NOT EXISTS t_process_definition (
    id BIGINT NOT NULL AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    version INT NOT NULL DEFAULT 1,
    project_id BIGINT NOT NULL,
    release_state TINYINT NOT NULL DEFAULT 0,
    process_data LONGTEXT NOT NULL,
    receivers TEXT,
    receivers_cc TEXT,
    tenant_id BIGINT NOT NULL DEFAULT 0,
    user_id BIGINT NOT NULL DEFAULT 0,
    create_time DATETIME NOT NULL,
    update_time DATETIME NOT NULL,
    PRIMARY KEY (id),
    UNIQUE KEY uk_project_name (project_id, name)
);

CREATE TABLE IF NOT EXISTS t_command (
    id BIGINT NOT NULL AUTO_INCREMENT,
    command_type VARCHAR(64) NOT NULL,
    process_definition_id BIGINT NOT NULL,
    command_param TEXT,
    task_depend_type VARCHAR(32),
    failure_strategy VARCHAR(32),
    warning_type VARCHAR(32),
    warning_group_id BIGINT NOT NULL DEFAULT 0,
    schedule_time DATETIME,
    executor_id BIGINT NOT NULL DEFAULT 0,
    process_instance_priority INT NOT NULL DEFAULT 2,
    worker_group_id BIGINT NOT NULL DEFAULT 0,
    start_time DATETIME,
    update_time DATETIME,
    PRIMARY KEY (id),
    KEY idx_definition (process_definition_id)
);

CREATE TABLE IF NOT EXISTS t_process_instance (
    id BIGINT NOT NULL AUTO_INCREMENT,
    name VARCHAR(255),
    process_definition_id BIGINT NOT NULL,
    state INT NOT NULL DEFAULT 0,
    command_type VARCHAR(64),
    schedule_time DATETIME,
    start_time DATETIME,
    end_time DATETIME,
    global_params TEXT,
    process_instance_priority INT NOT NULL DEFAULT 2,
    tenant_id BIGINT NOT NULL DEFAULT 0,
    worker_group_id BIGINT NOT NULL DEFAULT 0,
    history_cmd TEXT,
    is_sub_process TINYINT NOT NULL DEFAULT 0,
    parent_task_id BIGINT NOT NULL DEFAULT 0,
    executor_id BIGINT NOT NULL DEFAULT 0,
    run_times INT NOT NULL DEFAULT 0,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS t_task_instance (
    id BIGINT NOT NULL AUTO_INCREMENT,
    name VARCHAR(255) NOT NULL,
    task_type VARCHAR(64) NOT NULL,
    process_instance_id BIGINT NOT NULL,
    state INT NOT NULL DEFAULT 0,
    host VARCHAR(255),
    start_time DATETIME,
    end_time DATETIME,
    task_instance_priority INT NOT NULL DEFAULT 2,
    worker_group VARCHAR(255),
    log_path VARCHAR(512),
    retry_times INT NOT NULL DEFAULT 0,
    flag TINYINT NOT NULL DEFAULT 1,
    PRIMARY KEY (id),
    KEY idx_process (process_instance_id)
);

CREATE TABLE IF NOT EXISTS t_schedule (
    id BIGINT NOT NULL AUTO_INCREMENT,
    project_id BIGINT NOT NULL,
    process_definition_id BIGINT NOT NULL,
    crontab VARCHAR(255) NOT NULL,
    start_time DATETIME NOT NULL,
    end_time DATETIME NOT NULL,
    release_state TINYINT NOT NULL DEFAULT 0,
    failure_strategy VARCHAR(32),
    warning_type VARCHAR(32),
    warning_group_id BIGINT NOT NULL DEFAULT 0,
    process_instance_priority INT NOT NULL DEFAULT 2,
    worker_group_id BIGINT NOT NULL DEFAULT 0,
    user_id BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS t_tenant (
    id BIGINT NOT NULL AUTO_INCREMENT,
    tenant_code VARCHAR(64) NOT NULL,
    tenant_name VARCHAR(255),
    queue_id BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS t_task_queue (
    queue_name VARCHAR(128) NOT NULL,
    node VARCHAR(255) NOT NULL,
    PRIMARY KEY (queue_name, node)
);
`

// InitSchema creates the tables, meant for tests and first boot.
func (s *Storage) InitSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
