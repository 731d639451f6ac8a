// Command notify runs the notification jobs once, for cron or manual use.
//
//	notify --type reminders|pending|digest|all [--dry-run]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/straye-as/enquiry-api/internal/app"
	"github.com/straye-as/enquiry-api/internal/jobs"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	jobType := flag.String("type", "all", "job to run: reminders, pending, digest or all")
	dryRun := flag.Bool("dry-run", false, "report what would be sent without sending")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, "notify")
	if err != nil {
		return err
	}
	defer rt.Close()
	svc := rt.Services

	notificationJobs := jobs.NewNotificationJobs(svc.FollowUps, svc.Notifications, svc.Clock, &rt.Config.Jobs, rt.Logger)
	results, runErr := notificationJobs.Run(ctx, *jobType, *dryRun)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		rt.Logger.Warn("failed to print results", zap.Error(err))
	}
	return runErr
}
