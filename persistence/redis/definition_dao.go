package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/util"
	"go.uber.org/zap"
)

const PROCESS_DEF = "PROCESS_DEF"
const PROCESS_DEF_NAME = "PROCESS_DEF_NAME"

type definitionDao struct {
	*baseDao
}

var defEncDec = util.NewJsonEncoderDecoder[model.ProcessDefinition]()

func (d *definitionDao) Save(def *model.ProcessDefinition) error {
	if def.Id == 0 {
		id, err := d.nextId(PROCESS_DEF)
		if err != nil {
			return err
		}
		def.Id = id
	}
	return d.write(def)
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
	return d.write(def)
}

func (d *definitionDao) write(def *model.ProcessDefinition) error {
	ctx := context.Background()
	data, err := defEncDec.Encode(*def)
	if err != nil {
		return err
	}
	pipe := d.redisClient.Pipeline()
	pipe.Set(ctx, d.getNamespaceKey(PROCESS_DEF, formatId(def.Id)), data, 0)
	pipe.HSet(ctx, d.getNamespaceKey(PROCESS_DEF_NAME, formatId(def.ProjectId)), def.Name, formatId(def.Id))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error saving process definition", zap.Int64("id", def.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *definitionDao) FindById(id int64) (*model.ProcessDefinition, error) {
	ctx := context.Background()
	val, err := d.redisClient.Get(ctx, d.getNamespaceKey(PROCESS_DEF, formatId(id))).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Entity: "process definition", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return defEncDec.Decode([]byte(val))
}

func (d *definitionDao) FindByName(projectId int64, name string) (*model.ProcessDefinition, error) {
	ctx := context.Background()
	idStr, err := d.redisClient.HGet(ctx, d.getNamespaceKey(PROCESS_DEF_NAME, formatId(projectId)), name).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Entity: "process definition", Id: 0}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return d.FindById(parseId(idStr))
}

func (d *definitionDao) UpdateReleaseState(id int64, state model.ReleaseState) error {
	def, err := d.FindById(id)
	if err != nil {
		return err
	}
	def.ReleaseState = state
	return d.write(def)
}
