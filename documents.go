// Package documents is a document-oriented content engine: logical documents
// identified by a stable documentId fan out into physical rows per locale and
// publication status, with relation resolution, component cascades, and a
// draft/publish lifecycle layered on top of pluggable storage.
package documents

import (
	"github.com/goliatone/go-documents/internal/di"
	docsvc "github.com/goliatone/go-documents/internal/documents"
	"github.com/goliatone/go-documents/internal/i18n"
	"github.com/goliatone/go-documents/internal/repair"
	"github.com/goliatone/go-documents/pkg/interfaces"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// Service exports the document service contract for consumers of the package.
type Service = docsvc.Service

// Result is the logical-document shaped response of write operations.
type Result = docsvc.Result

// I18nService exports the locale service contract.
type I18nService = i18n.Service

// Parameter types for the document service operations.
type (
	CreateParams   = docsvc.CreateParams
	UpdateParams   = docsvc.UpdateParams
	DeleteParams   = docsvc.DeleteParams
	FindOneParams  = docsvc.FindOneParams
	FindManyParams = docsvc.FindManyParams
	PublishParams  = docsvc.PublishParams
	CloneParams    = docsvc.CloneParams
)

// Module is the top level runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a documents module over cfg and the model registry, with
// optional DI overrides.
func New(cfg Config, registry *schema.Registry, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, registry, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Documents returns the configured document service.
func (m *Module) Documents() Service {
	return m.container.DocumentService()
}

// Locales returns the configured locale service.
func (m *Module) Locales() I18nService {
	return m.container.I18nService()
}

// Schemas returns the model registry the module was built over.
func (m *Module) Schemas() *schema.Registry {
	return m.container.Registry()
}

// Store exposes the configured storage implementation.
func (m *Module) Store() storage.Store {
	return m.container.Store()
}

// Repair returns the integrity sweeper, or nil when the repair feature is
// disabled.
func (m *Module) Repair() *repair.Sweeper {
	return m.container.Sweeper()
}

// Logger returns the configured logger provider.
func (m *Module) Logger() interfaces.LoggerProvider {
	return m.container.LoggerProvider()
}
