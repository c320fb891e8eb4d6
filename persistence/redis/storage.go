package redis

import (
	"context"
	"strconv"

	"github.com/taskwing/taskwing/persistence"
)

// Storage is the redis implementation of every dao. All entities live under
// the configured namespace, ids come from INCR sequences.
type Storage struct {
	definitions *definitionDao
	commands    *commandDao
	instances   *instanceDao
	tasks       *taskDao
	schedules   *scheduleDao
	tenants     *tenantDao
	queue       *taskQueue
}

var _ persistence.Storage = new(Storage)

func NewStorage(conf Config) *Storage {
	base := newBaseDao(conf)
	return &Storage{
		definitions: &definitionDao{baseDao: base},
		commands:    &commandDao{baseDao: base},
		instances:   &instanceDao{baseDao: base},
		tasks:       &taskDao{baseDao: base},
		schedules:   &scheduleDao{baseDao: base},
		tenants:     &tenantDao{baseDao: base},
		queue:       &taskQueue{baseDao: base},
	}
}

func (s *Storage) ProcessDefinitions() persistence.ProcessDefinitionDao { return s.definitions }
func (s *Storage) Commands() persistence.CommandDao                    { return s.commands }
func (s *Storage) ProcessInstances() persistence.ProcessInstanceDao    { return s.instances }
func (s *Storage) TaskInstances() persistence.TaskInstanceDao          { return s.tasks }
func (s *Storage) Schedules() persistence.ScheduleDao                  { return s.schedules }
func (s *Storage) Tenants() persistence.TenantDao                      { return s.tenants }
func (s *Storage) TaskQueue() persistence.TaskQueue                    { return s.queue }

func (bs *baseDao) nextId(entity string) (int64, error) {
	ctx := context.Background()
	id, err := bs.redisClient.Incr(ctx, bs.getNamespaceKey("SEQ", entity)).Result()
	if err != nil {
		return 0, persistence.StorageLayerError{Message: err.Error()}
	}
	return id, nil
}

func formatId(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseId(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}
