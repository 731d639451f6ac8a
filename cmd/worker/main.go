package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/straye-as/enquiry-api/internal/app"
	"github.com/straye-as/enquiry-api/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, "worker")
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.Config.Queue.Enabled {
		return errors.New("queue is disabled, set QUEUE_ENABLED=true to run the worker")
	}

	worker, err := queue.NewWorker(&rt.Config.Queue, rt.Services.Notifications, rt.Logger)
	if err != nil {
		return err
	}
	return worker.Run(ctx)
}
