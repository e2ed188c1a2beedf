package deck

import (
	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/colonyops/taskdeck/internal/data/stores"
	"github.com/rs/zerolog"
)

// Resource kinds stored in the resources table.
const (
	ResourceChecklist = "checklist"
	ResourceQueue     = "queue"
)

// App is the central entry point for all taskdeck operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Tasks         *TaskService
	Queue         *QueueService
	Checklists    *ChecklistService
	Notifications *NotificationService

	Config *config.Config
	Bus    *eventbus.EventBus
	DB     *db.DB
	KV     *stores.KVStore
}

// NewApp wires the services over database. bus may be nil, in which case no
// events are published.
func NewApp(cfg *config.Config, database *db.DB, bus *eventbus.EventBus, log zerolog.Logger) *App {
	ctrl := ControllerOptions{
		Policy: Policy(cfg.Reconcile.Policy),
		Logger: log,
		Bus:    bus,
	}

	taskStore := stores.NewTaskStore(database)
	kvStore := stores.NewKVStore(database)
	checklistResources := stores.NewResourceStore(database, ResourceChecklist)
	queueResources := stores.NewResourceStore(database, ResourceQueue)

	queueSvc := NewQueueService(cfg.Queue.Name, cfg.Queue.Capacity, stores.NewQueueStore(queueResources), taskStore, ctrl)
	checklistSvc := NewChecklistService(stores.NewChecklistStore(checklistResources), taskStore, kvStore, ChecklistOptions{
		MaxItems:       cfg.Checklist.MaxItems,
		CacheTTL:       cfg.Checklist.CacheTTL,
		PreloadWorkers: cfg.Checklist.PreloadWorkers,
		Stored:         checklistResources,
	}, ctrl)

	return &App{
		Tasks:         NewTaskService(taskStore, queueSvc, checklistSvc, checklistResources, log),
		Queue:         queueSvc,
		Checklists:    checklistSvc,
		Notifications: NewNotificationService(stores.NewNotifyStore(database), bus, cfg.Notifications.Keep, log),
		Config:        cfg,
		Bus:           bus,
		DB:            database,
		KV:            kvStore,
	}
}
