package root

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"plant-care/internal/config"
	"plant-care/internal/logging"
	"plant-care/internal/push"
	"plant-care/internal/repository"
	"plant-care/internal/service"
)

// app holds the wiring shared by every command.
type app struct {
	cfg config.Config
	log zerolog.Logger

	tasks    *repository.TaskRepository
	plants   *repository.PlantRepository
	settings *repository.SettingsRepository
	logs     *repository.NotificationLogRepository

	finder  *service.OverdueService
	taskSvc *service.TaskService
}

func openApp() (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewWithWriter(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr)

	db, err := repository.NewDB(cfg.Database.DSN, logging.GormLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	a := &app{
		cfg:      cfg,
		log:      logger,
		tasks:    repository.NewTaskRepository(db),
		plants:   repository.NewPlantRepository(db),
		settings: repository.NewSettingsRepository(db),
		logs:     repository.NewNotificationLogRepository(db),
	}
	a.finder = service.NewOverdueService(a.tasks, nil, logging.Component(logger, "overdue"))
	a.taskSvc = service.NewTaskService(a.tasks, a.plants, a.settings, nil, logging.Component(logger, "tasks"))
	return a, cleanup, nil
}

func (a *app) newSender(ctx context.Context) (push.Sender, error) {
	switch a.cfg.Push.Driver {
	case config.PushDriverFCM:
		sender, err := push.NewFCM(ctx, a.cfg.Push.FCM.ProjectID, a.cfg.Push.FCM.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("push: %w", err)
		}
		return sender, nil
	default:
		return push.NewLogSender(logging.Component(a.log, "push")), nil
	}
}

func (a *app) newScheduler(ctx context.Context) (*service.SchedulerService, error) {
	sender, err := a.newSender(ctx)
	if err != nil {
		return nil, err
	}
	dispatcher, err := service.NewDispatcher(a.settings, a.logs, sender, service.DispatcherOptions{
		SendSpacing: a.cfg.Dispatch.SendSpacing,
	}, logging.Component(a.log, "dispatcher"))
	if err != nil {
		return nil, err
	}
	return service.NewSchedulerService(a.finder, dispatcher, service.SchedulerOptions{
		Interval:     a.cfg.Scheduler.Interval,
		CycleTimeout: a.cfg.Scheduler.CycleTimeout,
	}, logging.Component(a.log, "scheduler"))
}
