package repaircmd

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	command "github.com/goliatone/go-command"
)

type stubSweeper struct {
	cleaned int64
	err     error

	calls   int
	dryRuns []bool
}

func (s *stubSweeper) Sweep(_ context.Context, dryRun bool) (int64, error) {
	s.calls++
	s.dryRuns = append(s.dryRuns, dryRun)
	return s.cleaned, s.err
}

func TestSweepHandlerExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the sweeper", func(t *testing.T) {
		sweeper := &stubSweeper{cleaned: 3}
		handler := NewSweepHandler(sweeper, nil)

		if err := handler.Execute(ctx, SweepCommand{DryRun: true}); err != nil {
			t.Fatalf("execute: %v", err)
		}
		if sweeper.calls != 1 || !sweeper.dryRuns[0] {
			t.Fatalf("sweeper called %d times, dry runs %v", sweeper.calls, sweeper.dryRuns)
		}
	})

	t.Run("wraps sweeper failures as command errors", func(t *testing.T) {
		boom := errors.New("table corrupted")
		handler := NewSweepHandler(&stubSweeper{err: boom}, nil)

		err := handler.Execute(ctx, SweepCommand{})
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped sweeper error, got %v", err)
		}
		if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
			t.Fatalf("expected a command-category error, got %v", err)
		}
	})

	t.Run("rejects an already-cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		sweeper := &stubSweeper{}
		handler := NewSweepHandler(sweeper, nil)
		err := handler.Execute(cancelled, SweepCommand{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
		if sweeper.calls != 0 {
			t.Fatal("sweeper must not run under a dead context")
		}
	})
}

func TestSweepHandlerCronConfig(t *testing.T) {
	t.Run("defaults to daily", func(t *testing.T) {
		handler := NewSweepHandler(&stubSweeper{}, nil)
		if got := handler.CronConfig().Expression; got != "@daily" {
			t.Fatalf("default expression = %q", got)
		}
	})

	t.Run("expression override", func(t *testing.T) {
		handler := NewSweepHandler(&stubSweeper{}, nil, SweepWithCronExpression("0 3 * * *"))
		if got := handler.CronConfig().Expression; got != "0 3 * * *" {
			t.Fatalf("expression = %q", got)
		}
	})

	t.Run("blank override keeps the default", func(t *testing.T) {
		handler := NewSweepHandler(&stubSweeper{}, nil, SweepWithCronExpression("  "))
		if got := handler.CronConfig().Expression; got != "@daily" {
			t.Fatalf("expression = %q", got)
		}
	})

	t.Run("full config override", func(t *testing.T) {
		handler := NewSweepHandler(&stubSweeper{}, nil, SweepWithCronConfig(command.HandlerConfig{Expression: "@hourly"}))
		if got := handler.CronConfig().Expression; got != "@hourly" {
			t.Fatalf("expression = %q", got)
		}
	})
}

func TestRegisterSweepCron(t *testing.T) {
	sweeper := &stubSweeper{}
	handler := NewSweepHandler(sweeper, nil, SweepWithTimeout(time.Second))

	var registered command.HandlerConfig
	var job func() error
	reg := func(cfg command.HandlerConfig, fn any) error {
		registered = cfg
		job, _ = fn.(func() error)
		return nil
	}

	if err := RegisterSweepCron(reg, handler, SweepCommand{DryRun: false}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.Expression != "@daily" {
		t.Fatalf("registered expression = %q", registered.Expression)
	}
	if job == nil {
		t.Fatal("registrar did not receive a runnable job")
	}
	if err := job(); err != nil {
		t.Fatalf("job run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("cron tick should run the sweep once, got %d", sweeper.calls)
	}

	t.Run("nil registrar is a no-op", func(t *testing.T) {
		if err := RegisterSweepCron(nil, handler, SweepCommand{}); err != nil {
			t.Fatalf("nil registrar: %v", err)
		}
	})
}
