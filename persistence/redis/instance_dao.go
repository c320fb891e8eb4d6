package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/util"
)

const PROCESS_INSTANCE = "PROCESS_INSTANCE"
const PROCESS_INSTANCE_BY_DEF = "PROCESS_INSTANCE_BY_DEF"

type instanceDao struct {
	*baseDao
}

var instanceEncDec = util.NewJsonEncoderDecoder[model.ProcessInstance]()

func (d *instanceDao) Insert(instance *model.ProcessInstance) error {
	if instance.Id == 0 {
		id, err := d.nextId(PROCESS_INSTANCE)
		if err != nil {
			return err
		}
		instance.Id = id
	}
	if err := d.write(instance); err != nil {
		return err
	}
	ctx := context.Background()
	indexKey := d.getNamespaceKey(PROCESS_INSTANCE_BY_DEF, formatId(instance.ProcessDefinitionId))
	err := d.redisClient.ZAdd(ctx, indexKey, rd.Z{Score: float64(instance.Id), Member: formatId(instance.Id)}).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *instanceDao) write(instance *model.ProcessInstance) error {
	ctx := context.Background()
	data, err := instanceEncDec.Encode(*instance)
	if err != nil {
		return err
	}
	key := d.getNamespaceKey(PROCESS_INSTANCE, formatId(instance.Id))
	if err := d.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *instanceDao) FindById(id int64) (*model.ProcessInstance, error) {
	ctx := context.Background()
	val, err := d.redisClient.Get(ctx, d.getNamespaceKey(PROCESS_INSTANCE, formatId(id))).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Entity: "process instance", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return instanceEncDec.Decode([]byte(val))
}

func (d *instanceDao) Update(instance *model.ProcessInstance) error {
	if _, err := d.FindById(instance.Id); err != nil {
		return err
	}
	return d.write(instance)
}

func (d *instanceDao) UpdateStatus(id int64, status model.ExecutionStatus) error {
	instance, err := d.FindById(id)
	if err != nil {
		return err
	}
	instance.State = status
	return d.write(instance)
}

// FindLatestByDefinition walks the per-definition index newest first. Index
// entries whose instance was deleted concurrently are skipped.
func (d *instanceDao) FindLatestByDefinition(processDefinitionId int64, limit int) ([]model.ProcessInstance, error) {
	ctx := context.Background()
	indexKey := d.getNamespaceKey(PROCESS_INSTANCE_BY_DEF, formatId(processDefinitionId))
	members, err := d.redisClient.ZRevRange(ctx, indexKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	instances := make([]model.ProcessInstance, 0, len(members))
	for _, member := range members {
		instance, err := d.FindById(parseId(member))
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		instances = append(instances, *instance)
	}
	return instances, nil
}

func (d *instanceDao) Delete(id int64) error {
	instance, err := d.FindById(id)
	if err != nil {
		return err
	}
	ctx := context.Background()
	indexKey := d.getNamespaceKey(PROCESS_INSTANCE_BY_DEF, formatId(instance.ProcessDefinitionId))
	if err := d.redisClient.ZRem(ctx, indexKey, formatId(id)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	count, err := d.redisClient.Del(ctx, d.getNamespaceKey(PROCESS_INSTANCE, formatId(id))).Result()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if count == 0 {
		return persistence.NotFoundError{Entity: "process instance", Id: id}
	}
	return nil
}
