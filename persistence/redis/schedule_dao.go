package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/util"
)

const SCHEDULE = "SCHEDULE"
const SCHEDULE_IDS = "SCHEDULE_IDS"
const TENANT = "TENANT"

type scheduleDao struct {
	*baseDao
}

var scheduleEncDec = util.NewJsonEncoderDecoder[model.Schedule]()

func (d *scheduleDao) Save(schedule *model.Schedule) error {
	if schedule.Id == 0 {
		id, err := d.nextId(SCHEDULE)
		if err != nil {
			return err
		}
		schedule.Id = id
	}
	return d.write(schedule)
}

func (d *scheduleDao) write(schedule *model.Schedule) error {
	ctx := context.Background()
	data, err := scheduleEncDec.Encode(*schedule)
	if err != nil {
		return err
	}
	indexKey := d.getNamespaceKey(SCHEDULE_IDS, "ALL")
	if err := d.redisClient.ZAdd(ctx, indexKey, rd.Z{Score: float64(schedule.Id), Member: formatId(schedule.Id)}).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	key := d.getNamespaceKey(SCHEDULE, formatId(schedule.Id))
	if err := d.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *scheduleDao) FindById(id int64) (*model.Schedule, error) {
	ctx := context.Background()
	val, err := d.redisClient.Get(ctx, d.getNamespaceKey(SCHEDULE, formatId(id))).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Entity: "schedule", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return scheduleEncDec.Decode([]byte(val))
}

func (d *scheduleDao) Update(schedule *model.Schedule) error {
	if _, err := d.FindById(schedule.Id); err != nil {
		return err
	}
	return d.write(schedule)
}

func (d *scheduleDao) UpdateReleaseState(id int64, state model.ReleaseState) error {
	schedule, err := d.FindById(id)
	if err != nil {
		return err
	}
	schedule.ReleaseState = state
	return d.write(schedule)
}

func (d *scheduleDao) FindOnline() ([]model.Schedule, error) {
	ctx := context.Background()
	indexKey := d.getNamespaceKey(SCHEDULE_IDS, "ALL")
	members, err := d.redisClient.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	online := make([]model.Schedule, 0, len(members))
	for _, member := range members {
		schedule, err := d.FindById(parseId(member))
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if schedule.ReleaseState == model.RELEASE_ONLINE {
			online = append(online, *schedule)
		}
	}
	return online, nil
}

type tenantDao struct {
	*baseDao
}

var tenantEncDec = util.NewJsonEncoderDecoder[model.Tenant]()

func (d *tenantDao) Save(tenant *model.Tenant) error {
	if tenant.Id == 0 {
		id, err := d.nextId(TENANT)
		if err != nil {
			return err
		}
		tenant.Id = id
	}
	ctx := context.Background()
	data, err := tenantEncDec.Encode(*tenant)
	if err != nil {
		return err
	}
	key := d.getNamespaceKey(TENANT, formatId(tenant.Id))
	if err := d.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (d *tenantDao) FindById(id int64) (*model.Tenant, error) {
	ctx := context.Background()
	val, err := d.redisClient.Get(ctx, d.getNamespaceKey(TENANT, formatId(id))).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Entity: "tenant", Id: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return tenantEncDec.Decode([]byte(val))
}
