package redis

import (
	"context"
	"errors"
	"sort"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/util"
)

const TASK_INSTANCE = "TASK_INSTANCE"
const TASK_BY_PROCESS = "TASK_BY_PROCESS"

type taskDao struct {
	*baseDao
}

var taskEncDec = util.NewJsonEncoderDecoder[model.TaskInstance]()

func (d *taskDao) Insert(task *model.TaskInstance) error {
	if task.Id == 0 {
		id, err := d.nextId(TASK_INSTANCE)
		if err != nil {
			return err
		}
		task.Id = id
	}
	ctx := context.Background()
	data, err := taskEncDec.Encode(*task)
	if err != nil {
		return err
	}
	pipe := d.redisClient.Pipeline()
	pipe.Set(ctx, d.getNamespaceKey(TASK_INSTANCE, formatId(task.Id)), data, 0)
	pipe.SAdd(ctx, d.getNamespaceKey(TASK_BY_PROCESS, formatId(task.ProcessInstanceId)), formatId(task.Id))
	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *taskDao) FindById(id int64) (*model.TaskInstance, error) {
	ctx := context.Background()
	val, err := d.redisClient.Get(ctx, d.getNamespaceKey(TASK_INSTANCE, formatId(id))).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Entity: "task instance", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return taskEncDec.Decode([]byte(val))
}

func (d *taskDao) FindValidByProcessInstance(processInstanceId int64) ([]model.TaskInstance, error) {
	ctx := context.Background()
	ids, err := d.redisClient.SMembers(ctx, d.getNamespaceKey(TASK_BY_PROCESS, formatId(processInstanceId))).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	tasks := make([]model.TaskInstance, 0, len(ids))
	for _, idStr := range ids {
		task, err := d.FindById(parseId(idStr))
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if task.Flag == model.FLAG_YES {
			tasks = append(tasks, *task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Id < tasks[j].Id })
	return tasks, nil
}
