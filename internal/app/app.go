// Package app wires repositories, services and the event bus from config.
package app

import (
	"fmt"

	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/email"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/straye-as/enquiry-api/internal/phone"
	"github.com/straye-as/enquiry-api/internal/repository"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/straye-as/enquiry-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services holds every wired service
type Services struct {
	Bus           *events.InMemoryBus
	Clock         service.Clock
	Users         *repository.UserRepository
	Permissions   *service.PermissionService
	Enquiries     *service.EnquiryService
	Assignments   *service.AssignmentService
	FollowUps     *service.FollowUpService
	Notifications *service.NotificationService
	UserAdmin     *service.UserService
	References    *service.ReferenceService
}

// Options overrides pieces that differ between processes and tests
type Options struct {
	Clock  service.Clock
	Mailer email.Sender
	Queue  service.DeliveryQueue
}

// Build wires the services over db. Notification handlers are registered
// on the bus before it is returned.
func Build(cfg *config.Config, db *gorm.DB, logger *zap.Logger, opts Options) (*Services, error) {
	clock := opts.Clock
	if clock == nil {
		clock = service.SystemClock(cfg.App.Location())
	}
	bus := events.NewInMemoryBus(logger)

	enquiryRepo := repository.NewEnquiryRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	followUpRepo := repository.NewFollowUpRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	refRepo := repository.NewReferenceRepository(db)
	prefRepo := repository.NewNotificationPreferenceRepository(db)
	permissionRepo := repository.NewUserPermissionRepository(db)

	templates, err := storage.NewStorage(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize template storage: %w", err)
	}
	renderer, err := email.NewRenderer(templates, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = email.NewSender(&cfg.Email, logger)
	}

	permissions := service.NewPermissionService(permissionRepo, logger)
	contacts := service.NewContactResolver(
		repository.NewContactRepository(db),
		repository.NewAccountRepository(db),
		phone.NewNormalizer(cfg.App.PhoneRegion),
		logger,
	)

	notifications := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewNotificationTypeRepository(db),
		prefRepo,
		repository.NewNotificationLogRepository(db),
		userRepo,
		roleRepo,
		enquiryRepo,
		followUpRepo,
		service.NewDefaultSourceRegistry(enquiryRepo, followUpRepo, userRepo),
		clock,
		logger,
	)
	notifications.SetMailer(mailer, renderer, cfg.Email.RatePerSecond)
	notifications.SetBaseURL(cfg.Email.BaseURL)
	if cfg.Queue.Concurrency > 0 {
		notifications.SetConcurrency(cfg.Queue.Concurrency)
	}
	if templates != nil {
		notifications.SetTemplateStore(templates)
	}
	if opts.Queue != nil {
		notifications.SetQueue(opts.Queue)
	}
	notifications.RegisterHandlers(bus)

	return &Services{
		Bus:         bus,
		Clock:       clock,
		Users:       userRepo,
		Permissions: permissions,
		Enquiries: service.NewEnquiryService(
			enquiryRepo, activityRepo, refRepo, userRepo, contacts, permissions, bus, clock, logger, db),
		Assignments: service.NewAssignmentService(enquiryRepo, activityRepo, bus, clock, logger, db),
		FollowUps: service.NewFollowUpService(
			followUpRepo, enquiryRepo, userRepo, permissions, notifications, bus, clock, logger, db),
		Notifications: notifications,
		UserAdmin: service.NewUserService(
			userRepo, roleRepo, permissionRepo, prefRepo, bus, clock, logger, db),
		References: service.NewReferenceService(refRepo, logger, db),
	}, nil
}
