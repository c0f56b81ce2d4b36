package di

import (
	"context"
	"errors"
	"testing"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-documents/internal/documents"
	"github.com/goliatone/go-documents/internal/runtimeconfig"
	"github.com/goliatone/go-documents/pkg/storage/memory"
	"github.com/goliatone/go-documents/schema"
)

func containerRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	registry, err := schema.NewRegistry(&schema.Model{
		UID:     "api::note.note",
		Kind:    schema.ModelContentType,
		Options: schema.Options{DraftAndPublish: true, Localized: true},
		Attributes: []schema.Attribute{
			{Name: "body", Kind: schema.KindString},
		},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

func TestNewContainerDefaults(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(runtimeconfig.DefaultConfig(), containerRegistry(t))
	if err != nil {
		t.Fatalf("new container: %v", err)
	}

	if c.Store() == nil {
		t.Fatal("store not bound")
	}
	if c.DocumentService() == nil || c.I18nService() == nil {
		t.Fatal("services not bound")
	}
	if c.LoggerProvider() == nil {
		t.Fatal("logger provider not bound")
	}

	code, err := c.I18nService().GetDefaultLocale(ctx)
	if err != nil || code != "en" {
		t.Fatalf("default locale = %q (%v), want en", code, err)
	}

	// The default wiring is complete enough to run a lifecycle operation.
	result, err := c.DocumentService().Create(ctx, documents.CreateParams{
		UID:  "api::note.note",
		Data: map[string]any{"body": "hello"},
	})
	if err != nil {
		t.Fatalf("create through container: %v", err)
	}
	if result.DocumentID == "" {
		t.Fatal("create returned no documentId")
	}
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.DefaultLocale = ""
	_, err := NewContainer(cfg, containerRegistry(t))
	if !errors.Is(err, runtimeconfig.ErrDefaultLocaleRequired) {
		t.Fatalf("expected config validation error, got %v", err)
	}
}

func TestNewContainerRepairFeature(t *testing.T) {
	t.Run("disabled leaves repair unbound", func(t *testing.T) {
		c, err := NewContainer(runtimeconfig.DefaultConfig(), containerRegistry(t))
		if err != nil {
			t.Fatalf("new container: %v", err)
		}
		if c.Sweeper() != nil || c.SweepHandler() != nil {
			t.Fatal("repair collaborators bound despite disabled feature")
		}
	})

	t.Run("enabled binds sweeper and handler", func(t *testing.T) {
		cfg := runtimeconfig.DefaultConfig()
		cfg.Features.Repair = true
		cfg.Commands.RepairSweepCron = "@hourly"

		c, err := NewContainer(cfg, containerRegistry(t))
		if err != nil {
			t.Fatalf("new container: %v", err)
		}
		if c.Sweeper() == nil || c.SweepHandler() == nil {
			t.Fatal("repair collaborators missing")
		}
		if got := c.SweepHandler().CronConfig().Expression; got != "@hourly" {
			t.Fatalf("cron expression = %q", got)
		}
	})
}

func TestRegisterCron(t *testing.T) {
	register := func(c *Container) int {
		calls := 0
		if err := c.RegisterCron(func(command.HandlerConfig, any) error {
			calls++
			return nil
		}); err != nil {
			t.Fatalf("register cron: %v", err)
		}
		return calls
	}

	t.Run("gated on commands and auto-registration", func(t *testing.T) {
		cfg := runtimeconfig.DefaultConfig()
		cfg.Features.Repair = true
		c, err := NewContainer(cfg, containerRegistry(t))
		if err != nil {
			t.Fatalf("new container: %v", err)
		}
		if calls := register(c); calls != 0 {
			t.Fatalf("cron registered without opt-in, %d calls", calls)
		}
	})

	t.Run("registers when fully enabled", func(t *testing.T) {
		cfg := runtimeconfig.DefaultConfig()
		cfg.Features.Repair = true
		cfg.Commands.Enabled = true
		cfg.Commands.AutoRegisterCron = true
		c, err := NewContainer(cfg, containerRegistry(t))
		if err != nil {
			t.Fatalf("new container: %v", err)
		}
		if calls := register(c); calls != 1 {
			t.Fatalf("expected one registration, got %d", calls)
		}
	})
}

func TestWithStoreOverride(t *testing.T) {
	registry := containerRegistry(t)
	store := memory.New(registry)
	c, err := NewContainer(runtimeconfig.DefaultConfig(), registry, WithStore(store))
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	if c.Store() != Store(store) {
		t.Fatal("store override not honoured")
	}
}
