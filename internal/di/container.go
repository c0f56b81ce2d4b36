package di

import (
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-documents/internal/commands"
	repaircmd "github.com/goliatone/go-documents/internal/commands/repair"
	"github.com/goliatone/go-documents/internal/documents"
	"github.com/goliatone/go-documents/internal/i18n"
	"github.com/goliatone/go-documents/internal/logging"
	"github.com/goliatone/go-documents/internal/logging/gologger"
	"github.com/goliatone/go-documents/internal/repair"
	"github.com/goliatone/go-documents/internal/runtimeconfig"
	"github.com/goliatone/go-documents/pkg/interfaces"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/pkg/storage/bunstore"
	"github.com/goliatone/go-documents/pkg/storage/memory"
	"github.com/goliatone/go-documents/schema"
)

// Container wires module dependencies. Defaults bind the in-memory store;
// host applications inject a bun database or their own collaborators through
// options.
type Container struct {
	Config   runtimeconfig.Config
	registry *schema.Registry

	store Store
	bunDB *bun.DB

	cacheTTL      time.Duration
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	loggerProvider interfaces.LoggerProvider
	emitter        interfaces.EventEmitter
	clock          func() time.Time

	localeRepo       i18n.LocaleRepository
	memoryLocaleRepo *i18n.MemoryLocaleRepository

	i18nSvc i18n.Service
	docSvc  documents.Service

	sweeper      *repair.Sweeper
	sweepHandler *repaircmd.SweepHandler
}

// Store is the storage contract the container binds services against.
type Store = storage.Store

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithStore overrides the default storage binding.
func WithStore(store Store) Option {
	return func(c *Container) {
		c.store = store
	}
}

// WithBunDB binds SQL-backed storage and repositories to db.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the default repository cache service.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithLoggerProvider overrides the default logger provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithEventEmitter binds a lifecycle event consumer.
func WithEventEmitter(emitter interfaces.EventEmitter) Option {
	return func(c *Container) {
		c.emitter = emitter
	}
}

// WithClock overrides the time source used for publication timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		c.clock = now
	}
}

// WithDocumentService overrides the default document service binding.
func WithDocumentService(svc documents.Service) Option {
	return func(c *Container) {
		c.docSvc = svc
	}
}

// WithI18nService overrides the default i18n service binding.
func WithI18nService(svc i18n.Service) Option {
	return func(c *Container) {
		c.i18nSvc = svc
	}
}

// WithLocaleRepository overrides the default locale repository binding.
func WithLocaleRepository(repo i18n.LocaleRepository) Option {
	return func(c *Container) {
		c.localeRepo = repo
	}
}

// NewContainer creates a container over cfg and the schema registry.
func NewContainer(cfg runtimeconfig.Config, registry *schema.Registry, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheTTL := cfg.Cache.DefaultTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	memoryLocaleRepo := i18n.NewMemoryLocaleRepository()

	c := &Container{
		Config:           cfg,
		registry:         registry,
		cacheTTL:         cacheTTL,
		localeRepo:       memoryLocaleRepo,
		memoryLocaleRepo: memoryLocaleRepo,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	if err := c.configureStorage(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.configureRepositories()
	c.seedLocales()

	localeCfg := i18n.FromModuleConfig(cfg.DefaultLocale, cfg.I18N.Locales)
	if c.i18nSvc == nil {
		c.i18nSvc = i18n.NewService(c.localeRepo, localeCfg, i18n.WithLogger(c.loggerProvider))
	}

	if c.docSvc == nil {
		docOpts := []documents.ServiceOption{
			documents.WithLogger(c.loggerProvider),
		}
		if c.clock != nil {
			docOpts = append(docOpts, documents.WithClock(c.clock))
		}
		if c.emitter != nil && cfg.Features.Events {
			docOpts = append(docOpts, documents.WithEventEmitter(c.emitter))
		}
		c.docSvc = documents.NewService(c.store, c.registry, c.i18nSvc, docOpts...)
	}

	if cfg.Features.Repair {
		c.sweeper = repair.NewSweeper(c.registry, c.store, repair.WithLogger(c.loggerProvider))

		handlerOpts := []repaircmd.SweepHandlerOption{}
		if cron := cfg.Commands.RepairSweepCron; cron != "" {
			handlerOpts = append(handlerOpts, repaircmd.SweepWithCronExpression(cron))
		}
		logger := commands.CommandLogger(c.loggerProvider, "repair")
		c.sweepHandler = repaircmd.NewSweepHandler(c.sweeper, logger, handlerOpts...)
	}

	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil {
		return nil
	}
	if !c.Config.Features.Logger || c.Config.Logging.Provider == "noop" {
		c.loggerProvider = noopProvider{}
		return nil
	}

	provider, err := gologger.NewProvider(gologger.Config{
		Level:     c.Config.Logging.Level,
		Format:    c.Config.Logging.Format,
		AddSource: c.Config.Logging.AddSource,
		Focus:     c.Config.Logging.Focus,
	})
	if err != nil {
		return err
	}
	c.loggerProvider = provider
	return nil
}

func (c *Container) configureStorage() error {
	if c.store != nil {
		return nil
	}

	if c.bunDB == nil && c.Config.Storage.Driver != "" && c.Config.Storage.Driver != "memory" {
		db, err := bunstore.Open(c.Config.Storage.Driver, c.Config.Storage.DSN)
		if err != nil {
			return err
		}
		c.bunDB = db
	}

	if c.bunDB != nil {
		c.store = bunstore.New(c.bunDB, c.registry)
		return nil
	}
	c.store = memory.New(c.registry)
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.cacheTTL > 0 {
			cfg.TTL = c.cacheTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRepositories() {
	if c.bunDB == nil {
		return
	}
	if c.memoryLocaleRepo != nil && c.localeRepo == i18n.LocaleRepository(c.memoryLocaleRepo) {
		c.localeRepo = i18n.NewBunLocaleRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	}
	c.memoryLocaleRepo = nil
}

func (c *Container) seedLocales() {
	if c.memoryLocaleRepo == nil {
		return
	}
	i18n.Seed(c.memoryLocaleRepo, i18n.FromModuleConfig(c.Config.DefaultLocale, c.Config.I18N.Locales))
}

// Registry exposes the schema registry the container was built over.
func (c *Container) Registry() *schema.Registry {
	return c.registry
}

// Store exposes the configured storage implementation.
func (c *Container) Store() Store {
	return c.store
}

// LoggerProvider exposes the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// LocaleRepository exposes the configured locale repository.
func (c *Container) LocaleRepository() i18n.LocaleRepository {
	return c.localeRepo
}

// I18nService returns the configured i18n service.
func (c *Container) I18nService() i18n.Service {
	return c.i18nSvc
}

// DocumentService returns the configured document service.
func (c *Container) DocumentService() documents.Service {
	return c.docSvc
}

// Sweeper returns the integrity sweeper, or nil when repair is disabled.
func (c *Container) Sweeper() *repair.Sweeper {
	return c.sweeper
}

// SweepHandler returns the repair command handler, or nil when repair is
// disabled.
func (c *Container) SweepHandler() *repaircmd.SweepHandler {
	return c.sweepHandler
}

// RegisterCron registers the container's scheduled commands with reg. It is a
// no-op unless commands and cron auto-registration are enabled.
func (c *Container) RegisterCron(reg repaircmd.CronRegistrar) error {
	if !c.Config.Commands.Enabled || !c.Config.Commands.AutoRegisterCron {
		return nil
	}
	if c.sweepHandler == nil {
		return nil
	}
	return repaircmd.RegisterSweepCron(reg, c.sweepHandler, repaircmd.SweepCommand{})
}

type noopProvider struct{}

func (noopProvider) GetLogger(string) interfaces.Logger { return logging.NoOp() }
