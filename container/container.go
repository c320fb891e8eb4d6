package container

import (
	"fmt"
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/taskwing/taskwing/config"
	"github.com/taskwing/taskwing/dispatch"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
	"github.com/taskwing/taskwing/persistence/memory"
	"github.com/taskwing/taskwing/persistence/mysql"
	rd "github.com/taskwing/taskwing/persistence/redis"
)

// Container wires the storage backend picked by configuration and the few
// shared helpers built on it.
type Container struct {
	initialized bool
	storage     persistence.Storage
	dispatcher  *dispatch.Dispatcher
	defCache    *c.Cache
}

func NewContainer() *Container {
	return &Container{
		defCache: c.New(5*time.Minute, 10*time.Minute),
	}
}

func (d *Container) Init(conf config.Config) error {
	switch conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		d.storage = rd.NewStorage(rd.Config{
			Addrs:     conf.RedisConfig.Addrs,
			Namespace: conf.RedisConfig.Namespace,
		})
	case config.STORAGE_TYPE_MYSQL:
		storage, err := mysql.NewStorage(mysql.Config{DSN: conf.MysqlConfig.DSN})
		if err != nil {
			return err
		}
		d.storage = storage
	case config.STORAGE_TYPE_MEMORY:
		d.storage = memory.NewStorage()
	default:
		return fmt.Errorf("unknown storage type %q", conf.StorageType)
	}
	d.dispatcher = dispatch.NewDispatcher(d.storage.TaskQueue())
	d.initialized = true
	return nil
}

// InitWithStorage injects a prebuilt storage, used by tests.
func (d *Container) InitWithStorage(storage persistence.Storage) {
	d.storage = storage
	d.dispatcher = dispatch.NewDispatcher(storage.TaskQueue())
	d.initialized = true
}

func (d *Container) GetStorage() persistence.Storage {
	if !d.initialized {
		panic("persistence not initialized")
	}
	return d.storage
}

func (d *Container) GetDispatcher() *dispatch.Dispatcher {
	if !d.initialized {
		panic("persistence not initialized")
	}
	return d.dispatcher
}

// FindDefinition reads through the definition cache. Definitions are
// immutable while ONLINE, so a short TTL is enough to keep edits visible.
func (d *Container) FindDefinition(id int64) (*model.ProcessDefinition, error) {
	key := fmt.Sprintf("%d", id)
	if cached, found := d.defCache.Get(key); found {
		def := cached.(model.ProcessDefinition)
		return &def, nil
	}
	def, err := d.GetStorage().ProcessDefinitions().FindById(id)
	if err != nil {
		return nil, err
	}
	d.defCache.Set(key, *def, c.DefaultExpiration)
	return def, nil
}

func (d *Container) InvalidateDefinition(id int64) {
	d.defCache.Delete(fmt.Sprintf("%d", id))
}
