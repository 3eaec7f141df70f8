// Package composition is the environment-aware wiring point: it assembles
// the repository, the task service, and the UI-facing event subscriptions
// on a caller-provided event bus, and can self-verify that the wiring is
// complete.
package composition

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/events"
	"github.com/phrazzld/taskman-api/internal/platform/localstore"
	"github.com/phrazzld/taskman-api/internal/platform/memory"
	"github.com/phrazzld/taskman-api/internal/platform/storage"
	"github.com/phrazzld/taskman-api/internal/service"
	"github.com/phrazzld/taskman-api/internal/store"
)

// Environment selects the wiring profile.
type Environment string

// Recognized environments
const (
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// uiEventNames are the UI-facing events the container must keep subscribed.
var uiEventNames = []string{
	events.UITaskCreate,
	events.UITaskUpdate,
	events.UITaskToggle,
	events.UITaskDelete,
	events.UITaskClear,
}

// Container holds the assembled application core.
type Container struct {
	env     Environment
	bus     *events.Bus
	logger  *slog.Logger
	cfg     *config.Config
	backend storage.Storage
	durable *localstore.TaskStore

	taskStore   store.TaskStore
	taskService service.TaskService

	subs         []*events.Subscription
	configErrors []string
}

// New builds a Container for the environment named in cfg.Runtime.
//
// test wires the in-memory repository with deterministic timestamps;
// development and production wire the durable repository over the
// configured storage backend with silent in-memory fallback. The five
// UI.TASK.* events are subscribed to thin handlers forwarding to the
// service, and storage notifications are bridged onto the bus as
// STORAGE.TASKS.NOTIFY events.
func New(cfg *config.Config, bus *events.Bus, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("composition: config cannot be nil")
	}
	if bus == nil {
		return nil, fmt.Errorf("composition: event bus cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		env:    Environment(cfg.Runtime.Environment),
		bus:    bus,
		logger: logger.With(slog.String("component", "composition")),
		cfg:    cfg,
	}

	if err := c.buildStore(); err != nil {
		return nil, err
	}

	svc, err := service.NewTaskService(c.taskStore, bus, logger, service.Options{
		DeterministicTimestamps: c.env == EnvTest,
	})
	if err != nil {
		c.closeBackend()
		return nil, fmt.Errorf("composition: build service: %w", err)
	}
	c.taskService = svc

	c.subscribeUIHandlers()

	c.logger.Info("container assembled",
		slog.String("environment", string(c.env)),
		slog.String("repository", c.repositoryKind()))
	return c, nil
}

// buildStore constructs the repository for the environment.
func (c *Container) buildStore() error {
	if c.env == EnvTest {
		c.taskStore = memory.NewTaskStore()
		return nil
	}

	notify := func(n store.Notification) {
		c.logger.Warn("storage notification",
			slog.String("type", string(n.Type)),
			slog.String("details", n.Details))
		c.bus.Publish(context.Background(), events.StorageNotify,
			events.StorageNotifyPayload{Notification: n})
	}

	backend, err := c.buildBackend()
	if err != nil {
		return err
	}
	c.backend = backend

	if backend == nil {
		// The "memory" backend keeps nothing across restarts; useful for
		// development without a data directory, flagged by VerifyWiring
		// in production.
		if c.env == EnvProduction {
			c.configErrors = append(c.configErrors,
				"production environment configured with volatile memory backend")
		}
		c.taskStore = memory.NewTaskStore()
		return nil
	}

	durable, err := localstore.New(backend, localstore.Options{
		Key:            c.cfg.Storage.Key,
		CoalesceWindow: c.cfg.Storage.CoalesceWindow(),
		Notify:         notify,
		Logger:         c.logger,
	})
	if err != nil {
		c.closeBackend()
		return fmt.Errorf("composition: build durable store: %w", err)
	}
	c.durable = durable
	c.taskStore = durable
	return nil
}

// buildBackend opens the configured key-value backend. A nil return with
// nil error means the volatile memory profile was selected.
func (c *Container) buildBackend() (storage.Storage, error) {
	s := c.cfg.Storage
	switch s.Backend {
	case "file":
		return storage.NewFileStorage(s.Path, s.MaxBytes)
	case "sqlite":
		return storage.NewSQLiteStorage(filepath.Join(s.Path, "taskman.db"), s.MaxBytes)
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("composition: unknown storage backend %q", s.Backend)
	}
}

// subscribeUIHandlers wires the five UI.TASK.* events to the service.
func (c *Container) subscribeUIHandlers() {
	forward := map[string]events.Handler{
		events.UITaskCreate: c.handleUICreate,
		events.UITaskUpdate: c.handleUIUpdate,
		events.UITaskToggle: c.handleUIToggle,
		events.UITaskDelete: c.handleUIDelete,
		events.UITaskClear:  c.handleUIClear,
	}

	for _, name := range uiEventNames {
		c.subs = append(c.subs, c.bus.Subscribe(name, forward[name]))
	}
}

func (c *Container) handleUICreate(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.UICreatePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Name)
	}
	_, err := c.taskService.CreateTask(ctx, p.Description)
	return err
}

func (c *Container) handleUIUpdate(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.UIUpdatePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Name)
	}
	_, err := c.taskService.UpdateTask(ctx, p.ID, p.Updates)
	return err
}

func (c *Container) handleUIToggle(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.UITogglePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Name)
	}
	_, err := c.taskService.ToggleTaskCompletion(ctx, p.ID)
	return err
}

func (c *Container) handleUIDelete(ctx context.Context, e events.Event) error {
	p, ok := e.Payload.(events.UIDeletePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Name)
	}
	return c.taskService.DeleteTask(ctx, p.ID)
}

func (c *Container) handleUIClear(ctx context.Context, e events.Event) error {
	return c.taskService.ClearAllTasks(ctx)
}

// RefreshStorage re-probes the durable storage backend on demand. A
// container wired on the in-memory repository always reports available.
func (c *Container) RefreshStorage(ctx context.Context) bool {
	if c.durable == nil {
		return true
	}
	return c.durable.RefreshAvailability(ctx)
}

// Service returns the assembled task service.
func (c *Container) Service() service.TaskService { return c.taskService }

// Store returns the assembled repository.
func (c *Container) Store() store.TaskStore { return c.taskStore }

// Bus returns the event bus the container was wired on.
func (c *Container) Bus() *events.Bus { return c.bus }

// Environment returns the wiring profile.
func (c *Container) Environment() Environment { return c.env }

// repositoryKind names the concrete repository type for reporting.
func (c *Container) repositoryKind() string {
	switch c.taskStore.(type) {
	case *memory.TaskStore:
		return "memory"
	case *localstore.TaskStore:
		return "durable"
	default:
		return fmt.Sprintf("%T", c.taskStore)
	}
}

// Dispose unsubscribes every handler the container registered, flushes
// pending work, and closes the storage backend. The bus itself is owned
// by the caller and is left intact.
func (c *Container) Dispose() {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil

	if c.taskService != nil {
		if err := c.taskService.Flush(context.Background()); err != nil {
			c.logger.Error("flush on dispose failed", slog.String("error", err.Error()))
		}
	}

	c.closeBackend()
	c.logger.Info("container disposed")
}

func (c *Container) closeBackend() {
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			c.logger.Error("closing storage backend failed", slog.String("error", err.Error()))
		}
		c.backend = nil
	}
}
