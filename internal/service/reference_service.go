package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/mapper"
	"github.com/straye-as/enquiry-api/internal/repository"
	"github.com/straye-as/enquiry-api/internal/seed"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReferenceService manages reasons, lead sources and categories
type ReferenceService struct {
	refRepo *repository.ReferenceRepository
	logger  *zap.Logger
	db      *gorm.DB
}

func NewReferenceService(refRepo *repository.ReferenceRepository, logger *zap.Logger, db *gorm.DB) *ReferenceService {
	return &ReferenceService{
		refRepo: refRepo,
		logger:  logger,
		db:      db,
	}
}

// EnsureDefaults inserts the default roles, reasons, lead sources and
// notification types that are missing
func (s *ReferenceService) EnsureDefaults(ctx context.Context) error {
	if err := seed.Apply(ctx, s.db); err != nil {
		return internalError("failed to seed reference data", err)
	}
	return nil
}

func requireAdmin(ctx context.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return permissionDenied("Only administrators can manage reference data")
	}
	return nil
}

func duplicateName(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newError(KindConflict, "", what+" with this name already exists")
	}
	return internalError("failed to save "+strings.ToLower(what), err)
}

// Reasons

func (s *ReferenceService) ListReasons(ctx context.Context, includeInactive bool) ([]domain.ReasonDTO, error) {
	reasons, err := s.refRepo.ListReasons(ctx, !includeInactive)
	if err != nil {
		return nil, internalError("failed to list reasons", err)
	}
	dtos := make([]domain.ReasonDTO, len(reasons))
	for i := range reasons {
		dtos[i] = mapper.ToReasonDTO(&reasons[i])
	}
	return dtos, nil
}

func (s *ReferenceService) CreateReason(ctx context.Context, req *domain.ReasonRequest) (*domain.ReasonDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	reason := &domain.Reason{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if reason.Name == "" {
		return nil, validationError(CodeRequiredField, "Reason name is required")
	}
	if err := s.refRepo.CreateReason(ctx, reason); err != nil {
		return nil, duplicateName(err, "Reason")
	}
	dto := mapper.ToReasonDTO(reason)
	return &dto, nil
}

func (s *ReferenceService) UpdateReasonEntry(ctx context.Context, id uuid.UUID, req *domain.ReasonRequest) (*domain.ReasonDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	reason, err := s.refRepo.GetReason(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Reason")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		reason.Name = name
	}
	reason.Description = req.Description
	if req.IsActive != nil {
		reason.IsActive = *req.IsActive
	}
	if err := s.refRepo.SaveReason(ctx, reason); err != nil {
		return nil, duplicateName(err, "Reason")
	}
	dto := mapper.ToReasonDTO(reason)
	return &dto, nil
}

// DeleteReason removes a reason. Reasons still referenced by enquiries are
// deactivated instead so historical records keep their reason.
func (s *ReferenceService) DeleteReason(ctx context.Context, id uuid.UUID) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	reason, err := s.refRepo.GetReason(ctx, id)
	if err != nil {
		return lookupErr(err, "Reason")
	}
	inUse, err := s.refRepo.ReasonInUse(ctx, id)
	if err != nil {
		return internalError("failed to check reason usage", err)
	}
	if inUse {
		reason.IsActive = false
		if err := s.refRepo.SaveReason(ctx, reason); err != nil {
			return internalError("failed to deactivate reason", err)
		}
		s.logger.Info("reason in use, deactivated", zap.String("reason_id", id.String()))
		return nil
	}
	if err := s.refRepo.DeleteReason(ctx, id); err != nil {
		return internalError("failed to delete reason", err)
	}
	return nil
}

// Lead sources

func (s *ReferenceService) ListLeadSources(ctx context.Context, includeInactive bool) ([]domain.LeadSourceDTO, error) {
	sources, err := s.refRepo.ListLeadSources(ctx, !includeInactive)
	if err != nil {
		return nil, internalError("failed to list lead sources", err)
	}
	dtos := make([]domain.LeadSourceDTO, len(sources))
	for i := range sources {
		dtos[i] = mapper.ToLeadSourceDTO(&sources[i])
	}
	return dtos, nil
}

func (s *ReferenceService) CreateLeadSource(ctx context.Context, req *domain.LeadSourceRequest) (*domain.LeadSourceDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	source := &domain.LeadSource{
		Name:     strings.TrimSpace(req.Name),
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if source.Name == "" {
		return nil, validationError(CodeRequiredField, "Lead source name is required")
	}
	if err := s.refRepo.CreateLeadSource(ctx, source); err != nil {
		return nil, duplicateName(err, "Lead source")
	}
	dto := mapper.ToLeadSourceDTO(source)
	return &dto, nil
}

func (s *ReferenceService) UpdateLeadSource(ctx context.Context, id uuid.UUID, req *domain.LeadSourceRequest) (*domain.LeadSourceDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	source, err := s.refRepo.GetLeadSource(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Lead source")
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		source.Name = name
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}
	if err := s.refRepo.SaveLeadSource(ctx, source); err != nil {
		return nil, duplicateName(err, "Lead source")
	}
	dto := mapper.ToLeadSourceDTO(source)
	return &dto, nil
}

func (s *ReferenceService) DeleteLeadSource(ctx context.Context, id uuid.UUID) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	source, err := s.refRepo.GetLeadSource(ctx, id)
	if err != nil {
		return lookupErr(err, "Lead source")
	}
	inUse, err := s.refRepo.LeadSourceInUse(ctx, id)
	if err != nil {
		return internalError("failed to check lead source usage", err)
	}
	if inUse {
		source.IsActive = false
		if err := s.refRepo.SaveLeadSource(ctx, source); err != nil {
			return internalError("failed to deactivate lead source", err)
		}
		return nil
	}
	if err := s.refRepo.DeleteLeadSource(ctx, id); err != nil {
		return internalError("failed to delete lead source", err)
	}
	return nil
}

// Categories

func (s *ReferenceService) ListCategories(ctx context.Context) ([]domain.CategoryDTO, error) {
	categories, err := s.refRepo.ListCategories(ctx, true)
	if err != nil {
		return nil, internalError("failed to list categories", err)
	}
	dtos := make([]domain.CategoryDTO, len(categories))
	for i := range categories {
		dtos[i] = mapper.ToCategoryDTO(&categories[i])
	}
	return dtos, nil
}

// ListSubcategories returns the active subcategories of an active category
func (s *ReferenceService) ListSubcategories(ctx context.Context, categoryID uuid.UUID) ([]domain.SubcategoryDTO, error) {
	category, err := s.refRepo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, lookupErr(err, "Category")
	}
	if !category.IsActive {
		return nil, notFound("Category")
	}
	subs, err := s.refRepo.ListSubcategories(ctx, categoryID)
	if err != nil {
		return nil, internalError("failed to list subcategories", err)
	}
	dtos := make([]domain.SubcategoryDTO, len(subs))
	for i := range subs {
		dtos[i] = mapper.ToSubcategoryDTO(&subs[i])
	}
	return dtos, nil
}
