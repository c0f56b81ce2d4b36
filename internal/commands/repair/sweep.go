package repaircmd

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-documents/internal/commands"
	"github.com/goliatone/go-documents/internal/logging"
	"github.com/goliatone/go-documents/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const sweepMessageType = "documents.repair.sweep"

// Sweeper is the repair collaborator the command delegates to.
type Sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (int64, error)
}

// SweepCommand runs the ghost join-row sweep. When DryRun is true ghosts are
// counted and logged without deleting anything.
type SweepCommand struct {
	DryRun bool `json:"dry_run,omitempty"`
}

// Type implements command.Message.
func (SweepCommand) Type() string { return sweepMessageType }

// Validate satisfies command.Message.
func (SweepCommand) Validate() error { return nil }

type sweepHandlerConfig struct {
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// SweepHandlerOption customises the sweep handler.
type SweepHandlerOption func(*sweepHandlerConfig)

// SweepWithCronConfig overrides the cron registration options.
func SweepWithCronConfig(config command.HandlerConfig) SweepHandlerOption {
	return func(cfg *sweepHandlerConfig) {
		cfg.cronConfig = config
	}
}

// SweepWithCronExpression overrides the cron expression.
func SweepWithCronExpression(expression string) SweepHandlerOption {
	return func(cfg *sweepHandlerConfig) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			cfg.cronConfig.Expression = trimmed
		}
	}
}

// SweepWithTimeout overrides the default execution timeout.
func SweepWithTimeout(timeout time.Duration) SweepHandlerOption {
	return func(cfg *sweepHandlerConfig) {
		cfg.timeout = timeout
	}
}

// SweepHandler runs the repair sweep via the supplied sweeper.
type SweepHandler struct {
	sweeper    Sweeper
	logger     interfaces.Logger
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// NewSweepHandler constructs a handler delegating to the provided sweeper.
func NewSweepHandler(sweeper Sweeper, logger interfaces.Logger, opts ...SweepHandlerOption) *SweepHandler {
	cfg := sweepHandlerConfig{
		cronConfig: command.HandlerConfig{
			Expression: "@daily",
		},
		timeout: commands.DefaultCommandTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &SweepHandler{
		sweeper:    sweeper,
		logger:     commands.EnsureLogger(logger),
		cronConfig: cfg.cronConfig,
		timeout:    cfg.timeout,
	}
}

// Execute satisfies command.Commander[SweepCommand].
func (h *SweepHandler) Execute(ctx context.Context, msg SweepCommand) error {
	if err := commands.WrapValidationError(command.ValidateMessage(msg)); err != nil {
		return err
	}
	ctx = commands.EnsureContext(ctx)
	ctx, cancel := commands.WithCommandTimeout(ctx, h.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return commands.WrapContextError(err)
	}

	cleaned, err := h.sweeper.Sweep(ctx, msg.DryRun)
	if err != nil {
		return commands.WrapExecuteError(err)
	}

	logging.WithFields(h.logger, map[string]any{
		"operation": "repair.sweep",
		"dry_run":   msg.DryRun,
		"cleaned":   cleaned,
	}).Info("repair.command.sweep.done")
	return nil
}

// CronConfig exposes the handler's cron registration options.
func (h *SweepHandler) CronConfig() command.HandlerConfig {
	return h.cronConfig
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// RegisterSweepCron wires the sweep handler into a cron registrar. The
// handler runs with a background context on every tick.
func RegisterSweepCron(reg CronRegistrar, handler *SweepHandler, msg SweepCommand) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(handler.CronConfig(), func() error {
		return handler.Execute(context.Background(), msg)
	})
}
