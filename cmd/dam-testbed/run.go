package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"dam-testbed/internal/field"
	"dam-testbed/internal/logging"
	"dam-testbed/internal/loop"
)

// instanceID identifies this process in status rows.
func instanceID() string {
	if id := os.Getenv("DEVICE_ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// signalContext returns a context canceled on SIGINT or SIGTERM, carrying the
// configured logger.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return logging.NewContext(ctx, logger), cancel
}

// task is one independently running loop of a subcommand.
type task struct {
	name string
	run  func(context.Context) error
}

// runTasks runs every task concurrently. A task that stops does not cancel
// the others; the first error is returned once all have stopped.
func runTasks(ctx context.Context, tasks ...task) error {
	var g errgroup.Group
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			err := t.run(ctx)
			if err != nil {
				logging.FromContext(ctx).Error("task stopped", "task", t.name, "err", err)
			}
			return err
		})
	}
	return g.Wait()
}

// supervised wraps a Modbus client loop with transient-error retries and
// reconnects.
func supervised(name string, client *field.Client, maxRetries int, run func(context.Context) error) task {
	s := loop.Supervisor{
		Name:       name,
		Strategy:   loop.DefaultBackoff,
		MaxRetries: maxRetries,
		Reset:      client.Reconnect,
	}
	return task{name: name, run: func(ctx context.Context) error {
		return s.Supervise(ctx, run)
	}}
}

// closeAll closes every resource and combines the errors.
func closeAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
