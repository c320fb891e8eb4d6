package agent

import (
	"sync"

	"github.com/taskwing/taskwing/analytics"
	"github.com/taskwing/taskwing/config"
	"github.com/taskwing/taskwing/container"
	"github.com/taskwing/taskwing/logger"
	"github.com/taskwing/taskwing/rest"
	"github.com/taskwing/taskwing/scheduler"
	"github.com/taskwing/taskwing/service"
)

// Agent wires the storage container, services, schedule trigger and http
// server into one process lifecycle.
type Agent struct {
	Config         config.Config
	container      *container.Container
	commandService *service.CommandService
	processService *service.ProcessService
	executeService *service.ExecuteService
	trigger        *scheduler.Trigger
	httpServer     *rest.Server
	shutdown       bool
	shutdownLock   sync.Mutex
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupContainer,
		a.setupAnalytics,
		a.setupServices,
		a.setupTrigger,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupContainer() error {
	a.container = container.NewContainer()
	return a.container.Init(a.Config)
}

func (a *Agent) setupAnalytics() error {
	if a.Config.AuditLogFile == "" {
		return nil
	}
	return analytics.InitDataCollector(analytics.DataCollectorConfig{
		FileName:      a.Config.AuditLogFile,
		CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
	})
}

func (a *Agent) setupServices() error {
	a.commandService = service.NewCommandService(a.container)
	a.processService = service.NewProcessService(a.container)
	a.executeService = service.NewExecuteService(a.container, a.commandService, a.processService)
	return nil
}

func (a *Agent) setupTrigger() error {
	a.trigger = scheduler.NewTrigger(a.container, a.commandService, a.processService)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.processService, a.executeService, a.trigger)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	if err := a.trigger.Start(); err != nil {
		return err
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		func() error {
			a.trigger.Stop()
			return nil
		},
		a.httpServer.Stop,
		func() error {
			logger.Sync()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
