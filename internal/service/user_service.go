package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/straye-as/enquiry-api/internal/mapper"
	"github.com/straye-as/enquiry-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService handles user administration
type UserService struct {
	userRepo       *repository.UserRepository
	roleRepo       *repository.RoleRepository
	permissionRepo *repository.UserPermissionRepository
	prefRepo       *repository.NotificationPreferenceRepository
	bus            events.Bus
	clock          Clock
	logger         *zap.Logger
	db             *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	permissionRepo *repository.UserPermissionRepository,
	prefRepo *repository.NotificationPreferenceRepository,
	bus events.Bus,
	clock Clock,
	logger *zap.Logger,
	db *gorm.DB,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		roleRepo:       roleRepo,
		permissionRepo: permissionRepo,
		prefRepo:       prefRepo,
		bus:            bus,
		clock:          clock,
		logger:         logger,
		db:             db,
	}
}

func requireUserAdmin(ctx context.Context) (uuid.UUID, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if !actor.IsAdmin() {
		return uuid.Nil, permissionDenied("Only administrators can manage users")
	}
	return actor.UserID, nil
}

func (s *UserService) roleByName(ctx context.Context, name domain.UserRoleType) (*domain.Role, error) {
	if !name.IsValid() {
		return nil, validationError(CodeRequiredField, "Invalid role")
	}
	role, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, lookupErr(err, "Role")
	}
	return role, nil
}

func (s *UserService) load(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	return user, nil
}

// Create adds an active user and its default notification preferences
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserDTO, error) {
	if _, err := requireUserAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || addr == "" {
		return nil, validationError(CodeRequiredField, "Name and email are required")
	}
	role, err := s.roleByName(ctx, req.Role)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:        name,
		Email:       addr,
		RoleID:      &role.ID,
		IsActive:    true,
		IsSuperuser: req.IsSuperuser,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		_, err := s.prefRepo.WithTx(tx).GetOrCreate(ctx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newError(KindConflict, "", "A user with this email already exists")
		}
		return nil, internalError("failed to create user", err)
	}
	user.Role = role

	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role.Name)))
	s.bus.Publish(ctx, events.UserCreated{BaseEvent: events.NewBaseEvent(s.clock.Now()), User: *user})

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// ChangeRole moves a user to another role
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, roleName domain.UserRoleType) (*domain.UserDTO, error) {
	if _, err := requireUserAdmin(ctx); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.roleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	oldRoleID := user.RoleID
	if sameID(oldRoleID, &role.ID) {
		dto := mapper.ToUserDTO(user)
		return &dto, nil
	}
	user.RoleID = &role.ID
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, internalError("failed to update user role", err)
	}
	user.Role = role

	s.logger.Info("user role changed",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role.Name)))
	s.bus.Publish(ctx, events.UserRoleChanged{
		BaseEvent: events.NewBaseEvent(s.clock.Now()),
		User:      *user,
		OldRoleID: oldRoleID,
		NewRoleID: &role.ID,
	})

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// SetActive activates or deactivates a user. Administrators cannot
// deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.UserDTO, error) {
	actorID, err := requireUserAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !active && actorID == id {
		return nil, newError(KindConflict, "", "You cannot deactivate your own account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		dto := mapper.ToUserDTO(user)
		return &dto, nil
	}

	user.IsActive = active
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, internalError("failed to update user", err)
	}

	s.logger.Info("user activation changed",
		zap.String("user_id", user.ID.String()),
		zap.Bool("active", active))
	s.bus.Publish(ctx, events.UserActivationChanged{
		BaseEvent: events.NewBaseEvent(s.clock.Now()),
		User:      *user,
		Active:    active,
	})

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func (s *UserService) List(ctx context.Context, includeInactive bool) ([]domain.UserDTO, error) {
	if _, err := requireUserAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx, includeInactive)
	if err != nil {
		return nil, internalError("failed to list users", err)
	}
	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}
	return dtos, nil
}

// Get returns a user. Users may always read their own record.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, permissionDenied("Only administrators can view other users")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func (s *UserService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, internalError("failed to list roles", err)
	}
	return roles, nil
}

// Permissions returns the per-module overrides of a user
func (s *UserService) Permissions(ctx context.Context, id uuid.UUID) ([]domain.UserPermissionDTO, error) {
	if _, err := requireUserAdmin(ctx); err != nil {
		return nil, err
	}
	perms, err := s.permissionRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, internalError("failed to list permissions", err)
	}
	dtos := make([]domain.UserPermissionDTO, len(perms))
	for i := range perms {
		dtos[i] = mapper.ToUserPermissionDTO(&perms[i])
	}
	return dtos, nil
}

// SetPermission replaces the override of one module for a user
func (s *UserService) SetPermission(ctx context.Context, id uuid.UUID, module domain.PermissionModule, req *domain.PermissionOverrideRequest) (*domain.UserPermissionDTO, error) {
	if _, err := requireUserAdmin(ctx); err != nil {
		return nil, err
	}
	if !module.IsValid() {
		return nil, validationError(CodeRequiredField, "Invalid permission module")
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	perm := &domain.UserPermission{
		UserID:    id,
		Module:    module,
		CanView:   req.CanView,
		CanCreate: req.CanCreate,
		CanEdit:   req.CanEdit,
		CanDelete: req.CanDelete,
		CanImport: req.CanImport,
		CanExport: req.CanExport,
	}
	if err := s.permissionRepo.Upsert(ctx, perm); err != nil {
		return nil, internalError("failed to save permission", err)
	}
	s.logger.Info("permission override saved",
		zap.String("user_id", id.String()),
		zap.String("module", string(module)))

	dto := mapper.ToUserPermissionDTO(perm)
	return &dto, nil
}

// ClearPermission drops a module override so the role defaults apply again
func (s *UserService) ClearPermission(ctx context.Context, id uuid.UUID, module domain.PermissionModule) error {
	if _, err := requireUserAdmin(ctx); err != nil {
		return err
	}
	if err := s.permissionRepo.Delete(ctx, id, module); err != nil {
		return internalError("failed to delete permission", err)
	}
	return nil
}
