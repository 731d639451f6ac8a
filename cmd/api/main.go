package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/enquiry-api/internal/app"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/http/handler"
	"github.com/straye-as/enquiry-api/internal/http/middleware"
	"github.com/straye-as/enquiry-api/internal/http/router"
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
	ctx := context.Background()

	rt, err := app.Start(ctx, "api")
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, log, svc := rt.Config, rt.Logger, rt.Services

	if err := svc.References.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	authMiddleware := auth.NewMiddleware(&cfg.Auth, svc.Users, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	r := router.NewRouter(cfg, log, rt.DB, authMiddleware, rateLimiter, router.Handlers{
		Auth:         handler.NewAuthHandler(svc.Permissions, log),
		Enquiry:      handler.NewEnquiryHandler(svc.Enquiries, log),
		Assignment:   handler.NewAssignmentHandler(svc.Enquiries, svc.Assignments, log),
		FollowUp:     handler.NewFollowUpHandler(svc.FollowUps, log),
		Notification: handler.NewNotificationHandler(svc.Notifications, log),
		Reference:    handler.NewReferenceHandler(svc.References, log),
		User:         handler.NewUserHandler(svc.UserAdmin, log),
	})

	// Periodic notification jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		if rt.Locker != nil {
			scheduler.SetLocker(rt.Locker, cfg.Jobs.LockTTLDuration())
		} else {
			log.Warn("job locks disabled, run a single api replica with jobs enabled")
		}

		notificationJobs := jobs.NewNotificationJobs(svc.FollowUps, svc.Notifications, svc.Clock, &cfg.Jobs, log)
		if err := notificationJobs.Register(scheduler, &cfg.Jobs); err != nil {
			return fmt.Errorf("failed to register notification jobs: %w", err)
		}
		scheduler.Start()
	} else {
		log.Info("periodic notification jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      r.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown gracefully", zap.Error(err))
			return err
		}
		log.Info("server stopped gracefully")
	}

	return nil
}
