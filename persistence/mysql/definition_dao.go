package mysql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
)

type definitionDao struct {
	db *sqlx.DB
}

type definitionRow struct {
	Id           int64     `db:"id"`
	Name         string    `db:"name"`
	Version      int       `db:"version"`
	ProjectId    int64     `db:"project_id"`
	ReleaseState int       `db:"release_state"`
	ProcessData  string    `db:"process_data"`
	Receivers    string    `db:"receivers"`
	ReceiversCc  string    `db:"receivers_cc"`
	TenantId     int64     `db:"tenant_id"`
	UserId       int64     `db:"user_id"`
	CreateTime   time.Time `db:"create_time"`
	UpdateTime   time.Time `db:"update_time"`
}

func toDefinitionRow(def *model.ProcessDefinition) (*definitionRow, error) {
	data, err := json.Marshal(def.ProcessData)
	if err != nil {
		return nil, err
	}
	return &definitionRow{
		Id:           def.Id,
		Name:         def.Name,
		Version:      def.Version,
		ProjectId:    def.ProjectId,
		ReleaseState: int(def.ReleaseState),
		ProcessData:  string(data),
		Receivers:    strings.Join(def.Receivers, ","),
		ReceiversCc:  strings.Join(def.ReceiversCc, ","),
		TenantId:     def.TenantId,
		UserId:       def.UserId,
		CreateTime:   def.CreateTime,
		UpdateTime:   def.UpdateTime,
	}, nil
}

func (r *definitionRow) toModel() (*model.ProcessDefinition, error) {
	var data model.ProcessData
	if err := json.Unmarshal([]byte(r.ProcessData), &data); err != nil {
		return nil, err
	}
	def := &model.ProcessDefinition{
		Id:           r.Id,
		Name:         r.Name,
		Version:      r.Version,
		ProjectId:    r.ProjectId,
		ReleaseState: model.ReleaseState(r.ReleaseState),
		ProcessData:  data,
		TenantId:     r.TenantId,
		UserId:       r.UserId,
		CreateTime:   r.CreateTime,
		UpdateTime:   r.UpdateTime,
	}
	if r.Receivers != "" {
		def.Receivers = strings.Split(r.Receivers, ",")
	}
	if r.ReceiversCc != "" {
		def.ReceiversCc = strings.Split(r.ReceiversCc, ",")
	}
	return def, nil
}

func (d *definitionDao) Save(def *model.ProcessDefinition) error {
	if def.Version == 0 {
		def.Version = 1
	}
	row, err := toDefinitionRow(def)
	if err != nil {
		return err
	}
	res, err := d.db.NamedExec(`INSERT INTO t_process_definition
		(name, version, project_id, release_state, process_data, receivers, receivers_cc, tenant_id, user_id, create_time, update_time)
		VALUES (:name, :version, :project_id, :release_state, :process_data, :receivers, :receivers_cc, :tenant_id, :user_id, :create_time, :update_time)`, row)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	def.Id = id
	return nil
}

func (d *definitionDao) Update(def *model.ProcessDefinition) error {
	stored, err := d.FindById(def.Id)
	if err != nil {
		return err
	}
	if stored.ReleaseState == model.RELEASE_ONLINE {
		return persistence.OnlineDefinitionError{Id: stored.Id}
	}
	def.Version = stored.Version + 1
	row, err := toDefinitionRow(def)
	if err != nil {
		return err
	}
	_, err = d.db.NamedExec(`UPDATE t_process_definition SET
		name=:name, version=:version, release_state=:release_state, process_data=:process_data,
		receivers=:receivers, receivers_cc=:receivers_cc, tenant_id=:tenant_id, update_time=:update_time
		WHERE id=:id`, row)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *definitionDao) FindById(id int64) (*model.ProcessDefinition, error) {
	var row definitionRow
	err := d.db.Get(&row, `SELECT * FROM t_process_definition WHERE id=?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NotFoundError{Entity: "process definition", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return row.toModel()
}

func (d *definitionDao) FindByName(projectId int64, name string) (*model.ProcessDefinition, error) {
	var row definitionRow
	err := d.db.Get(&row, `SELECT * FROM t_process_definition WHERE project_id=? AND name=?`, projectId, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NotFoundError{Entity: "process definition", Id: 0}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return row.toModel()
}

func (d *definitionDao) UpdateReleaseState(id int64, state model.ReleaseState) error {
	res, err := d.db.Exec(`UPDATE t_process_definition SET release_state=?, update_time=? WHERE id=?`, int(state), time.Now(), id)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return persistence.NotFoundError{Entity: "process definition", Id: id}
	}
	return nil
}
