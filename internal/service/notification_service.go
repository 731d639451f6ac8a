package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/email"
	"github.com/straye-as/enquiry-api/internal/repository"
	"github.com/straye-as/enquiry-api/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TemplateRenderer renders email bodies for notification types
type TemplateRenderer interface {
	Render(ctx context.Context, name string, data *email.TemplateData) (string, error)
	Validate(body []byte) error
}

// DeliveryQueue hands email delivery of a notification to a background worker
type DeliveryQueue interface {
	EnqueueDelivery(ctx context.Context, notificationID uuid.UUID) error
}

// TemplateStore keeps admin-uploaded template overrides
type TemplateStore interface {
	Put(ctx context.Context, key, contentType string, data io.Reader) (int64, error)
}

// NotificationInput describes one notification to create
type NotificationInput struct {
	Type        domain.NotificationTypeName
	RecipientID uuid.UUID
	Title       string
	Message     string
	Source      *domain.SourceRef
	Data        map[string]any
	// DedupeKey makes creation idempotent; empty disables deduplication
	DedupeKey string
	// ScheduledFor defaults to now
	ScheduledFor time.Time
}

// NotificationService creates notifications for recipients and delivers
// them. The in-app record is always written first; email is a best-effort
// step whose failure is recorded on the row and never returned to callers
// of Notify.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	typeRepo         *repository.NotificationTypeRepository
	prefRepo         *repository.NotificationPreferenceRepository
	logRepo          *repository.NotificationLogRepository
	userRepo         *repository.UserRepository
	roleRepo         *repository.RoleRepository
	enquiryRepo      *repository.EnquiryRepository
	followUpRepo     *repository.FollowUpRepository
	sources          *SourceRegistry
	clock            Clock
	logger           *zap.Logger

	mailer      email.Sender
	renderer    TemplateRenderer
	limiter     *rate.Limiter
	queue       DeliveryQueue
	templates   TemplateStore
	baseURL     string
	concurrency int
}

func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	typeRepo *repository.NotificationTypeRepository,
	prefRepo *repository.NotificationPreferenceRepository,
	logRepo *repository.NotificationLogRepository,
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	enquiryRepo *repository.EnquiryRepository,
	followUpRepo *repository.FollowUpRepository,
	sources *SourceRegistry,
	clock Clock,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		typeRepo:         typeRepo,
		prefRepo:         prefRepo,
		logRepo:          logRepo,
		userRepo:         userRepo,
		roleRepo:         roleRepo,
		enquiryRepo:      enquiryRepo,
		followUpRepo:     followUpRepo,
		sources:          sources,
		clock:            clock,
		logger:           logger,
		concurrency:      4,
	}
}

// SetMailer enables email delivery. ratePerSecond <= 0 disables throttling.
func (s *NotificationService) SetMailer(mailer email.Sender, renderer TemplateRenderer, ratePerSecond float64) {
	s.mailer = mailer
	s.renderer = renderer
	s.limiter = nil
	if ratePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
}

// SetQueue moves delivery onto a background queue
func (s *NotificationService) SetQueue(queue DeliveryQueue) {
	s.queue = queue
}

// SetTemplateStore enables template overrides uploaded by administrators
func (s *NotificationService) SetTemplateStore(store TemplateStore) {
	s.templates = store
}

// SetBaseURL sets the web address used for links in emails
func (s *NotificationService) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimRight(baseURL, "/")
}

// SetConcurrency bounds parallel deliveries of SendPending
func (s *NotificationService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Create writes one pending notification. It returns nil (and false) when
// the type is inactive or the dedupe key was already used.
func (s *NotificationService) Create(ctx context.Context, in NotificationInput) (*domain.Notification, bool, error) {
	t, err := s.typeRepo.GetByName(ctx, in.Type)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load notification type %s: %w", in.Type, err)
	}
	if t == nil {
		s.logger.Debug("notification type inactive or missing", zap.String("type", string(in.Type)))
		return nil, false, nil
	}

	// Preferences only gate email, but every recipient gets a preference row
	if _, err := s.prefRepo.GetOrCreate(ctx, in.RecipientID); err != nil {
		return nil, false, err
	}

	scheduled := in.ScheduledFor
	if scheduled.IsZero() {
		scheduled = s.clock.Now()
	}
	n := &domain.Notification{
		TypeID:       t.ID,
		RecipientID:  in.RecipientID,
		Title:        in.Title,
		Message:      in.Message,
		Status:       domain.NotificationStatusPending,
		ScheduledFor: scheduled,
		Data:         in.Data,
	}
	if in.Source != nil {
		n.SourceKind = in.Source.Kind
		id := in.Source.ID
		n.SourceID = &id
	}
	if in.DedupeKey != "" {
		key := in.DedupeKey
		n.DedupeKey = &key
	}

	created, err := s.notificationRepo.Create(ctx, n)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create notification: %w", err)
	}
	if !created {
		return nil, false, nil
	}
	n.Type = t

	if err := s.logRepo.Create(ctx, n.ID, domain.NotificationActionCreated, string(t.Name)); err != nil {
		s.logger.Warn("failed to write notification log", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}
	return n, true, nil
}

// Notify creates the notification and starts its delivery. Failures are
// logged; created reports whether a new row was written.
func (s *NotificationService) Notify(ctx context.Context, in NotificationInput) bool {
	n, created, err := s.Create(ctx, in)
	if err != nil {
		s.logger.Error("failed to create notification",
			zap.String("type", string(in.Type)),
			zap.String("recipient_id", in.RecipientID.String()),
			zap.Error(err))
		return false
	}
	if !created {
		return false
	}
	s.Send(ctx, n)
	return true
}

// Send delivers n now, or enqueues it when a queue is configured.
// Notifications scheduled in the future are left for SendPending.
func (s *NotificationService) Send(ctx context.Context, n *domain.Notification) {
	if n.ScheduledFor.After(s.clock.Now()) {
		return
	}
	if s.queue != nil {
		err := s.queue.EnqueueDelivery(ctx, n.ID)
		if err == nil {
			return
		}
		s.logger.Warn("failed to enqueue notification, delivering inline",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err))
	}
	if err := s.Deliver(ctx, n.ID); err != nil {
		s.logger.Error("notification delivery failed",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err))
	}
}

// Deliver makes the single delivery attempt of a pending notification.
// Notifications that already left pending are ignored.
func (s *NotificationService) Deliver(ctx context.Context, id uuid.UUID) error {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if n.Status != domain.NotificationStatusPending {
		return nil
	}
	t := n.Type
	if t == nil {
		return errors.New("notification has no type")
	}

	emailAttempted := false
	var emailErr error
	if s.shouldEmail(ctx, n) {
		emailAttempted = true
		emailErr = s.sendEmail(ctx, n)
	}

	now := s.clock.Now().UTC()
	n.SentAt = &now
	switch {
	case t.SendInApp:
		n.Status = domain.NotificationStatusSent
	case emailAttempted && emailErr != nil:
		n.Status = domain.NotificationStatusFailed
	default:
		n.Status = domain.NotificationStatusRead
	}
	if emailAttempted {
		if emailErr != nil {
			n.EmailError = emailErr.Error()
		} else {
			n.EmailSent = true
			n.EmailSentAt = &now
			n.EmailError = ""
		}
	}
	n.Type, n.Recipient = nil, nil
	if err := s.notificationRepo.Save(ctx, n); err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	action, details := domain.NotificationActionSent, "in-app"
	if emailAttempted {
		details = "in-app and email"
		if emailErr != nil {
			action, details = domain.NotificationActionFailed, emailErr.Error()
		}
	}
	if err := s.logRepo.Create(ctx, n.ID, action, details); err != nil {
		s.logger.Warn("failed to write notification log", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}
	if emailErr != nil {
		s.logger.Warn("notification email failed",
			zap.String("notification_id", n.ID.String()),
			zap.Error(emailErr))
	}
	return nil
}

func (s *NotificationService) shouldEmail(ctx context.Context, n *domain.Notification) bool {
	if s.mailer == nil || !n.Type.SendEmail || n.Recipient == nil || n.Recipient.Email == "" {
		return false
	}
	pref, err := s.prefRepo.GetOrCreate(ctx, n.RecipientID)
	if err != nil {
		s.logger.Warn("failed to load notification preferences", zap.String("user_id", n.RecipientID.String()), zap.Error(err))
		return false
	}
	return pref.EmailEnabled(n.Type.Category, n.Type.Name)
}

func (s *NotificationService) sendEmail(ctx context.Context, n *domain.Notification) error {
	data := &email.TemplateData{
		Title:         n.Title,
		Message:       n.Message,
		RecipientName: n.Recipient.Name,
		Data:          n.Data,
	}
	if ref := n.Source(); ref != nil {
		source, err := s.resolveSource(ctx, ref)
		if err != nil {
			s.logger.Debug("notification source not resolvable",
				zap.String("kind", string(ref.Kind)),
				zap.String("id", ref.ID.String()),
				zap.Error(err))
		} else {
			data.Source = source
		}
		if s.baseURL != "" {
			data.ActionURL = s.baseURL + sourcePath(ref)
		}
	}

	body := n.Message
	if s.renderer != nil {
		html, err := s.renderer.Render(ctx, n.Type.EmailTemplate, data)
		if err != nil {
			return err
		}
		body = html
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return s.mailer.Send(ctx, &email.Message{
		To:       n.Recipient.Email,
		ToName:   n.Recipient.Name,
		Subject:  n.Title,
		HTMLBody: body,
		TextBody: n.Message,
	})
}

func (s *NotificationService) resolveSource(ctx context.Context, ref *domain.SourceRef) (any, error) {
	if s.sources == nil {
		return nil, errors.New("no source registry configured")
	}
	return s.sources.Resolve(ctx, ref)
}

// recipients dedupes ids, appends the active holders of roles, drops nil
// ids and those in exclude, and keeps only active users. Order is preserved.
func (s *NotificationService) recipients(ctx context.Context, ids []*uuid.UUID, roles []domain.UserRoleType, exclude ...*uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	for _, id := range exclude {
		if id != nil {
			seen[*id] = true
		}
	}

	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range ids {
		if id != nil {
			add(*id)
		}
	}
	if len(roles) > 0 {
		holders, err := s.userRepo.ActiveIDsByRoles(ctx, roles)
		if err != nil {
			s.logger.Error("failed to load role recipients", zap.Error(err))
		}
		for _, id := range holders {
			add(id)
		}
	}

	active, err := s.userRepo.FilterActive(ctx, out)
	if err != nil {
		s.logger.Error("failed to filter active recipients", zap.Error(err))
		return nil
	}
	isActive := make(map[uuid.UUID]bool, len(active))
	for _, id := range active {
		isActive[id] = true
	}
	filtered := out[:0]
	for _, id := range out {
		if isActive[id] {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// UploadTemplate stores an email template override for a notification type
func (s *NotificationService) UploadTemplate(ctx context.Context, name domain.NotificationTypeName, body []byte) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return permissionDenied("Only administrators can upload email templates")
	}
	if s.templates == nil {
		return validationError("", "Template storage is not configured")
	}
	t, err := s.typeRepo.GetByName(ctx, name)
	if err != nil {
		return internalError("failed to load notification type", err)
	}
	if t == nil || t.EmailTemplate == "" {
		return notFound("Notification type")
	}
	if s.renderer != nil {
		if err := s.renderer.Validate(body); err != nil {
			return validationError("", fmt.Sprintf("Invalid template: %v", err))
		}
	}
	if _, err := s.templates.Put(ctx, storage.TemplateKey(t.EmailTemplate), "text/html", strings.NewReader(string(body))); err != nil {
		return internalError("failed to store template", err)
	}
	s.logger.Info("email template override uploaded",
		zap.String("type", string(name)),
		zap.String("template", t.EmailTemplate))
	return nil
}
