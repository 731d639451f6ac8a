package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/straye-as/enquiry-api/internal/mapper"
	"github.com/straye-as/enquiry-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnquiryService is the enquiry lifecycle engine. Every mutation reads the
// enquiry under a row lock, validates, derives auto-transitions and writes
// back in one transaction. Events are published only after commit.
type EnquiryService struct {
	enquiryRepo  *repository.EnquiryRepository
	activityRepo *repository.ActivityRepository
	refRepo      *repository.ReferenceRepository
	userRepo     *repository.UserRepository
	contacts     *ContactResolver
	permissions  PermissionChecker
	bus          events.Bus
	clock        Clock
	logger       *zap.Logger
	db           *gorm.DB
}

func NewEnquiryService(
	enquiryRepo *repository.EnquiryRepository,
	activityRepo *repository.ActivityRepository,
	refRepo *repository.ReferenceRepository,
	userRepo *repository.UserRepository,
	contacts *ContactResolver,
	permissions PermissionChecker,
	bus events.Bus,
	clock Clock,
	logger *zap.Logger,
	db *gorm.DB,
) *EnquiryService {
	return &EnquiryService{
		enquiryRepo:  enquiryRepo,
		activityRepo: activityRepo,
		refRepo:      refRepo,
		userRepo:     userRepo,
		contacts:     contacts,
		permissions:  permissions,
		bus:          bus,
		clock:        clock,
		logger:       logger,
		db:           db,
	}
}

// authorize checks the module capability and row-level access of actor on e
func (s *EnquiryService) authorize(ctx context.Context, actor *auth.UserContext, e *domain.Enquiry, action domain.PermissionAction) error {
	if err := s.requireCapability(ctx, actor, action); err != nil {
		return err
	}
	return requireAccess(actor, e)
}

// requireCapability reads permission overrides on the root connection, so it
// must run before a transaction is opened.
func (s *EnquiryService) requireCapability(ctx context.Context, actor *auth.UserContext, action domain.PermissionAction) error {
	if !s.permissions.Can(ctx, actor, domain.ModuleEnquiries, action) {
		return permissionDenied(fmt.Sprintf("You do not have permission to %s enquiries", action))
	}
	return nil
}

func requireAccess(actor *auth.UserContext, e *domain.Enquiry) error {
	if !canAccessEnquiry(actor, e) {
		return permissionDenied("You do not have access to this enquiry")
	}
	return nil
}

func (s *EnquiryService) logActivity(ctx context.Context, tx *gorm.DB, e *domain.Enquiry, actor *auth.UserContext, kind domain.ActivityType, subject, description string, metadata map[string]any) error {
	activity := &domain.ActivityLog{
		EnquiryID:    &e.ID,
		ContactID:    e.ContactID,
		ActivityType: kind,
		Subject:      subject,
		Description:  description,
		UserID:       actor.ActorID(),
		Metadata:     metadata,
	}
	if err := s.activityRepo.WithTx(tx).Create(ctx, activity); err != nil {
		return internalError("failed to record activity", err)
	}
	return nil
}

// Create validates the input, resolves the contact by phone number and
// inserts the enquiry at stage received.
func (s *EnquiryService) Create(ctx context.Context, req *domain.CreateEnquiryRequest) (*domain.EnquiryDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.permissions.Can(ctx, actor, domain.ModuleEnquiries, domain.ActionCreate) {
		return nil, permissionDenied("You do not have permission to create enquiries")
	}

	name := strings.TrimSpace(req.ContactName)
	if name == "" {
		return nil, validationError(CodeRequiredField, "Contact name is required")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, validationError(CodeRequiredField, "Phone number is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, validationError("", fmt.Sprintf("Invalid priority: %s", priority))
	}

	actorID := actor.ActorID()
	enquiry := &domain.Enquiry{
		ContactName:           name,
		Email:                 strings.TrimSpace(req.Email),
		CompanyName:           strings.TrimSpace(req.CompanyName),
		Country:               strings.TrimSpace(req.Country),
		Priority:              priority,
		Notes:                 req.Notes,
		NextAction:            req.NextAction,
		LeadSourceID:          req.LeadSourceID,
		CategoryID:            req.CategoryID,
		SubcategoryID:         req.SubcategoryID,
		AssignedSalesPersonID: req.AssignedSalesPersonID,
		CreatedByID:           actorID,
		Stage:                 domain.StageReceived,
		Status:                domain.StatusNotFulfilled,
	}
	if enquiry.AssignedSalesPersonID != nil {
		enquiry.AssignedByID = actorID
		if actorID == nil || *enquiry.AssignedSalesPersonID != *actorID {
			pending := domain.AssignmentPending
			enquiry.AssignmentStatus = &pending
		}
	}

	var (
		contact        *domain.Contact
		contactCreated bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contact, contactCreated, err = s.contacts.Resolve(ctx, tx, name, req.PhoneNumber, enquiry.CompanyName, actorID)
		if err != nil {
			return err
		}
		enquiry.ContactID = &contact.ID
		enquiry.PhoneNumber = contact.PhoneNumber

		if err := s.insertWithRetry(ctx, tx, enquiry); err != nil {
			return err
		}

		now := s.clock.Now()
		history := &domain.EnquiryStageHistory{
			EnquiryID:   enquiry.ID,
			ToStage:     enquiry.Stage,
			ChangedByID: actorID,
			Notes:       "Enquiry created",
			ChangedAt:   now.UTC(),
		}
		if err := s.activityRepo.WithTx(tx).CreateStageHistory(ctx, history); err != nil {
			return internalError("failed to record stage history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("enquiry created",
		zap.String("enquiry_id", enquiry.ID.String()),
		zap.String("contact_id", contact.ID.String()),
		zap.Bool("contact_created", contactCreated))

	now := s.clock.Now()
	s.bus.Publish(ctx, events.EnquiryCreated{BaseEvent: events.NewBaseEvent(now), Enquiry: *enquiry, ActorID: actorID})
	if contactCreated {
		s.bus.Publish(ctx, events.ContactAutoCreated{
			BaseEvent: events.NewBaseEvent(now),
			Contact:   *contact,
			EnquiryID: enquiry.ID,
			ActorID:   actorID,
		})
	}

	dto := mapper.ToEnquiryDTO(enquiry)
	return &dto, nil
}

// insertWithRetry inserts enquiry inside a savepoint. When the insert fails
// because a reference points at a missing row, those references are cleared
// and the insert is retried once.
func (s *EnquiryService) insertWithRetry(ctx context.Context, tx *gorm.DB, enquiry *domain.Enquiry) error {
	insert := func() error {
		return tx.Transaction(func(sp *gorm.DB) error {
			return s.enquiryRepo.WithTx(sp).Create(ctx, enquiry)
		})
	}

	firstErr := insert()
	if firstErr == nil {
		return nil
	}

	invalid, err := s.enquiryRepo.WithTx(tx).InvalidReferences(ctx, enquiry)
	if err != nil || len(invalid) == 0 {
		return &Error{Kind: KindInvalidReference, Message: MsgInvalidReference, Err: firstErr}
	}

	s.logger.Warn("clearing invalid enquiry references",
		zap.Strings("columns", invalid),
		zap.Error(firstErr))
	clearReferences(enquiry, invalid)

	if err := insert(); err != nil {
		return &Error{Kind: KindInvalidReference, Message: MsgInvalidReference, Err: err}
	}
	return nil
}

func clearReferences(e *domain.Enquiry, columns []string) {
	for _, column := range columns {
		switch column {
		case "lead_source_id":
			e.LeadSourceID = nil
		case "category_id":
			e.CategoryID = nil
		case "subcategory_id":
			e.SubcategoryID = nil
		case "reason_id":
			e.ReasonID = nil
		case "assigned_sales_person_id":
			e.AssignedSalesPersonID = nil
			e.AssignedByID = nil
			e.AssignmentStatus = nil
		}
	}
}

// applyStage validates the stage transition on e and applies it together
// with the auto-fulfill derivation. e is left untouched on error.
func applyStage(e *domain.Enquiry, req *domain.UpdateStageRequest) error {
	pi := strings.TrimSpace(e.ProformaInvoiceNumber)
	invoice := strings.TrimSpace(e.InvoiceNumber)
	requested := func(v *string) string {
		if v == nil {
			return ""
		}
		return strings.TrimSpace(*v)
	}

	switch req.Stage {
	case domain.StageProformaInvoiceSent:
		if v := requested(req.ProformaInvoiceNumber); v != "" {
			pi = v
		}
		if pi == "" {
			return validationError(CodePIRequired, MsgPIRequired)
		}
	case domain.StageInvoiceSent:
		// The PI must already be on record; it cannot be supplied together with the invoice
		if pi == "" {
			return validationError(CodePIRequiredFirst, MsgPIRequiredFirst)
		}
		if v := requested(req.InvoiceNumber); v != "" {
			invoice = v
		}
		switch {
		case invoice == "":
			return validationError(CodeInvoiceRequired, MsgInvoiceRequired)
		case len(invoice) != domain.InvoiceNumberLength:
			return validationError(CodeInvoiceLength, MsgInvoiceLength)
		case !strings.HasPrefix(invoice, domain.InvoiceNumberPrefix):
			return validationError(CodeInvoicePrefix, MsgInvoicePrefix)
		}
	default:
		if v := requested(req.ProformaInvoiceNumber); v != "" {
			pi = v
		}
		if v := requested(req.InvoiceNumber); v != "" {
			invoice = v
		}
	}

	e.Stage = req.Stage
	e.ProformaInvoiceNumber = pi
	e.InvoiceNumber = invoice

	if e.Stage == domain.StageInvoiceSent && e.InvoiceNumber != "" {
		if e.Status != domain.StatusFulfilled {
			e.Status = domain.StatusFulfilled
			e.ReasonID = nil
		}
		e.IsLocked = true
	}
	return nil
}

// UpdateStage moves an enquiry to a new stage. The sequence is fixed: lock
// check, stage validation, PI and invoice validation, auto-fulfill, persist,
// then events.
func (s *EnquiryService) UpdateStage(ctx context.Context, id uuid.UUID, req *domain.UpdateStageRequest) (*domain.Enquiry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireCapability(ctx, actor, domain.ActionEdit); err != nil {
		return nil, err
	}

	var (
		enquiry       *domain.Enquiry
		oldStage      domain.EnquiryStage
		oldStatus     domain.EnquiryStatus
		stageChanged  bool
		statusChanged bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.enquiryRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Enquiry")
		}
		if err := requireAccess(actor, e); err != nil {
			return err
		}
		enquiry = e

		if e.IsLocked {
			if req.Stage != e.Stage {
				return lockedError()
			}
			return nil
		}
		if !req.Stage.IsValid() {
			return newError(KindInvalidStage, "", fmt.Sprintf("Invalid stage: %s", req.Stage))
		}

		oldStage, oldStatus = e.Stage, e.Status
		if err := applyStage(e, req); err != nil {
			return err
		}
		stageChanged = e.Stage != oldStage
		statusChanged = e.Status != oldStatus

		if err := s.enquiryRepo.WithTx(tx).Save(ctx, e); err != nil {
			return internalError("failed to update enquiry stage", err)
		}

		if stageChanged {
			from := oldStage
			history := &domain.EnquiryStageHistory{
				EnquiryID:   e.ID,
				FromStage:   &from,
				ToStage:     e.Stage,
				ChangedByID: actor.ActorID(),
				Notes:       req.Notes,
				ChangedAt:   s.clock.Now().UTC(),
			}
			if err := s.activityRepo.WithTx(tx).CreateStageHistory(ctx, history); err != nil {
				return internalError("failed to record stage history", err)
			}
			if err := s.logActivity(ctx, tx, e, actor, domain.ActivityTypeStageChange,
				"Stage changed",
				fmt.Sprintf("Stage changed from %s to %s", oldStage.Label(), e.Stage.Label()),
				map[string]any{"from": string(oldStage), "to": string(e.Stage)},
			); err != nil {
				return err
			}
		}
		if statusChanged {
			if err := s.logActivity(ctx, tx, e, actor, domain.ActivityTypeStatusChange,
				"Enquiry fulfilled",
				fmt.Sprintf("Status changed to %s and enquiry locked on invoice %s", e.Status.Label(), e.InvoiceNumber),
				map[string]any{"from": string(oldStatus), "to": string(e.Status), "auto": true},
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if stageChanged {
		s.logger.Info("enquiry stage changed",
			zap.String("enquiry_id", enquiry.ID.String()),
			zap.String("from", string(oldStage)),
			zap.String("to", string(enquiry.Stage)),
			zap.Bool("locked", enquiry.IsLocked))
		s.bus.Publish(ctx, events.EnquiryStageChanged{
			BaseEvent: events.NewBaseEvent(now),
			Enquiry:   *enquiry,
			OldStage:  oldStage,
			NewStage:  enquiry.Stage,
			ActorID:   actor.ActorID(),
		})
	}
	if statusChanged {
		s.bus.Publish(ctx, events.EnquiryStatusChanged{
			BaseEvent: events.NewBaseEvent(now),
			Enquiry:   *enquiry,
			OldStatus: oldStatus,
			NewStatus: enquiry.Status,
			ActorID:   actor.ActorID(),
		})
	}
	return enquiry, nil
}

// UpdateStatus sets the fulfillment status. A reason may accompany
// not_fulfilled; fulfilled always clears the reason.
func (s *EnquiryService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateStatusRequest) (*domain.Enquiry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireCapability(ctx, actor, domain.ActionEdit); err != nil {
		return nil, err
	}

	var (
		enquiry   *domain.Enquiry
		oldStatus domain.EnquiryStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.enquiryRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Enquiry")
		}
		if err := requireAccess(actor, e); err != nil {
			return err
		}
		if e.IsLocked {
			return lockedError()
		}
		if !req.Status.IsValid() {
			return newError(KindInvalidStatus, "", fmt.Sprintf("Invalid status: %s", req.Status))
		}

		oldStatus = e.Status
		switch req.Status {
		case domain.StatusFulfilled:
			e.ReasonID = nil
		case domain.StatusNotFulfilled:
			if req.ReasonID != nil {
				if err := s.checkReason(ctx, tx, *req.ReasonID); err != nil {
					return err
				}
				e.ReasonID = req.ReasonID
			}
		}
		e.Status = req.Status

		if err := s.enquiryRepo.WithTx(tx).Save(ctx, e); err != nil {
			return internalError("failed to update enquiry status", err)
		}
		metadata := map[string]any{"from": string(oldStatus), "to": string(e.Status)}
		if e.ReasonID != nil {
			metadata["reason_id"] = e.ReasonID.String()
		}
		if err := s.logActivity(ctx, tx, e, actor, domain.ActivityTypeStatusChange,
			"Status updated",
			fmt.Sprintf("Status changed from %s to %s", oldStatus.Label(), e.Status.Label()),
			metadata,
		); err != nil {
			return err
		}
		enquiry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if enquiry.Status != oldStatus {
		s.bus.Publish(ctx, events.EnquiryStatusChanged{
			BaseEvent: events.NewBaseEvent(s.clock.Now()),
			Enquiry:   *enquiry,
			OldStatus: oldStatus,
			NewStatus: enquiry.Status,
			ActorID:   actor.ActorID(),
		})
	}
	return enquiry, nil
}

func (s *EnquiryService) checkReason(ctx context.Context, tx *gorm.DB, reasonID uuid.UUID) error {
	reason, err := s.refRepo.WithTx(tx).GetReason(ctx, reasonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindInvalidReason, "", MsgInvalidReason)
		}
		return internalError("failed to load reason", err)
	}
	if !reason.IsActive {
		return newError(KindInvalidReason, "", MsgInvalidReason)
	}
	return nil
}

// UpdateReason sets the not-fulfilled reason of an enquiry
func (s *EnquiryService) UpdateReason(ctx context.Context, id uuid.UUID, reasonID uuid.UUID) (*domain.Enquiry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.requireCapability(ctx, actor, domain.ActionEdit); err != nil {
		return nil, err
	}

	var enquiry *domain.Enquiry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.enquiryRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Enquiry")
		}
		if err := requireAccess(actor, e); err != nil {
			return err
		}
		if e.IsLocked {
			return lockedError()
		}
		if err := s.checkReason(ctx, tx, reasonID); err != nil {
			return err
		}
		e.ReasonID = &reasonID
		if err := s.enquiryRepo.WithTx(tx).Save(ctx, e); err != nil {
			return internalError("failed to update enquiry reason", err)
		}
		if err := s.logActivity(ctx, tx, e, actor, domain.ActivityTypeReasonUpdate,
			"Reason updated", "", map[string]any{"reason_id": reasonID.String()},
		); err != nil {
			return err
		}
		enquiry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enquiry, nil
}

// UpdateAssignment reassigns an enquiry. Only administrators may reassign.
// Assigning someone other than the actor starts the acceptance handshake.
func (s *EnquiryService) UpdateAssignment(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (*domain.Enquiry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, permissionDenied("Only administrators can reassign enquiries")
	}

	var (
		enquiry  *domain.Enquiry
		previous *uuid.UUID
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.enquiryRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Enquiry")
		}
		if assigneeID != nil {
			user, err := s.userRepo.WithTx(tx).GetActiveByID(ctx, *assigneeID)
			if err != nil {
				return internalError("failed to load assignee", err)
			}
			if user == nil {
				return notFound("User")
			}
		}

		previous = e.AssignedSalesPersonID
		e.AssignedSalesPersonID = assigneeID
		e.AssignedByID = actor.ActorID()
		if assigneeID == nil || *assigneeID == actor.UserID {
			e.AssignmentStatus = nil
		} else {
			pending := domain.AssignmentPending
			e.AssignmentStatus = &pending
		}

		if err := s.enquiryRepo.WithTx(tx).Save(ctx, e); err != nil {
			return internalError("failed to update assignment", err)
		}
		metadata := map[string]any{}
		if previous != nil {
			metadata["from"] = previous.String()
		}
		if assigneeID != nil {
			metadata["to"] = assigneeID.String()
		}
		subject := "Assignment cleared"
		if assigneeID != nil {
			subject = "Enquiry assigned"
		}
		if err := s.logActivity(ctx, tx, e, actor, domain.ActivityTypeAssignment, subject, "", metadata); err != nil {
			return err
		}
		enquiry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !sameID(previous, assigneeID) {
		s.bus.Publish(ctx, events.EnquiryAssigned{
			BaseEvent:          events.NewBaseEvent(s.clock.Now()),
			Enquiry:            *enquiry,
			PreviousAssigneeID: previous,
			ActorID:            actor.ActorID(),
		})
	}
	return enquiry, nil
}

// Delete hard-deletes an unlocked enquiry with its follow-ups and audit trail
func (s *EnquiryService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if err := s.requireCapability(ctx, actor, domain.ActionDelete); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.enquiryRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Enquiry")
		}
		if err := requireAccess(actor, e); err != nil {
			return err
		}
		if e.IsLocked {
			return lockedError()
		}
		if err := s.activityRepo.WithTx(tx).DeleteByEnquiry(ctx, id); err != nil {
			return internalError("failed to delete enquiry history", err)
		}
		if err := s.enquiryRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return internalError("failed to delete enquiry", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("enquiry deleted", zap.String("enquiry_id", id.String()))
	return nil
}

// GetByID returns an enquiry visible to the actor
func (s *EnquiryService) GetByID(ctx context.Context, id uuid.UUID) (*domain.EnquiryDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.enquiryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Enquiry")
	}
	if err := s.authorize(ctx, actor, e, domain.ActionView); err != nil {
		return nil, err
	}
	dto := mapper.ToEnquiryDTO(e)
	return &dto, nil
}

// List returns a page of enquiries visible to the actor
func (s *EnquiryService) List(ctx context.Context, filter domain.EnquiryFilter, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := s.listActor(ctx, filter)
	if err != nil {
		return nil, err
	}
	page, pageSize = repository.NormalizePage(page, pageSize)
	enquiries, total, err := s.enquiryRepo.List(ctx, filter, visibilityFor(actor), actor.UserID, sort, page, pageSize)
	if err != nil {
		return nil, internalError("failed to list enquiries", err)
	}
	return mapper.Paginate(mapper.ToEnquiryDTOs(enquiries), total, page, pageSize), nil
}

func (s *EnquiryService) listActor(ctx context.Context, filter domain.EnquiryFilter) (*auth.UserContext, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.permissions.Can(ctx, actor, domain.ModuleEnquiries, domain.ActionView) {
		return nil, permissionDenied("You do not have permission to view enquiries")
	}
	if filter.Tab == domain.TabAssigned && !actor.IsAdmin() {
		return nil, permissionDenied("Only administrators can view assigned enquiries")
	}
	return actor, nil
}

// StageBoard groups the visible enquiries by stage in funnel order
func (s *EnquiryService) StageBoard(ctx context.Context, filter domain.EnquiryFilter) ([]domain.StageColumnDTO, error) {
	actor, err := s.listActor(ctx, filter)
	if err != nil {
		return nil, err
	}
	enquiries, err := s.enquiryRepo.ListAll(ctx, filter, visibilityFor(actor), actor.UserID)
	if err != nil {
		return nil, internalError("failed to list enquiries", err)
	}

	byStage := make(map[domain.EnquiryStage][]domain.EnquiryDTO, len(domain.EnquiryStages))
	for i := range enquiries {
		e := &enquiries[i]
		byStage[e.Stage] = append(byStage[e.Stage], mapper.ToEnquiryDTO(e))
	}

	columns := make([]domain.StageColumnDTO, 0, len(domain.EnquiryStages))
	for _, stage := range domain.EnquiryStages {
		items := byStage[stage]
		if items == nil {
			items = []domain.EnquiryDTO{}
		}
		columns = append(columns, domain.StageColumnDTO{
			Stage:     stage,
			Label:     stage.Label(),
			Count:     len(items),
			Enquiries: items,
		})
	}
	return columns, nil
}

// History returns the stage transitions and activities of an enquiry
func (s *EnquiryService) History(ctx context.Context, id uuid.UUID) (*domain.EnquiryHistoryDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.enquiryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Enquiry")
	}
	if err := s.authorize(ctx, actor, e, domain.ActionView); err != nil {
		return nil, err
	}

	stages, err := s.activityRepo.ListStageHistory(ctx, id)
	if err != nil {
		return nil, internalError("failed to load stage history", err)
	}
	activities, err := s.activityRepo.ListByEnquiry(ctx, id)
	if err != nil {
		return nil, internalError("failed to load activities", err)
	}

	history := &domain.EnquiryHistoryDTO{
		Stages:     make([]domain.StageHistoryDTO, len(stages)),
		Activities: make([]domain.ActivityDTO, len(activities)),
	}
	for i := range stages {
		history.Stages[i] = mapper.ToStageHistoryDTO(&stages[i])
	}
	for i := range activities {
		history.Activities[i] = mapper.ToActivityDTO(&activities[i])
	}
	return history, nil
}
