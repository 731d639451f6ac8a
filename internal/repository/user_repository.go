package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Preload("Role").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetActiveByID returns the user when it exists and is active, else nil
func (r *UserRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Preload("Role").Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, includeInactive bool) ([]domain.User, error) {
	var users []domain.User
	query := r.db.WithContext(ctx).Preload("Role").Order("name ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&users).Error
	return users, err
}

// ActiveIDsByRoles returns ids of active users holding any of roles.
// Superusers are included when RoleSuperuser is requested even without a role row.
func (r *UserRepository) ActiveIDsByRoles(ctx context.Context, roles []domain.UserRoleType) ([]uuid.UUID, error) {
	includeSuper := false
	for _, role := range roles {
		if role == domain.RoleSuperuser {
			includeSuper = true
		}
	}

	query := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Joins("LEFT JOIN roles ON roles.id = users.role_id").
		Where("users.is_active = ?", true)
	if includeSuper {
		query = query.Where("roles.name IN ? OR users.is_superuser = ?", roles, true)
	} else {
		query = query.Where("roles.name IN ?", roles)
	}

	var ids []uuid.UUID
	err := query.Order("users.created_at ASC").Pluck("users.id", &ids).Error
	return ids, err
}

// FilterActive returns the subset of ids that belong to active users
func (r *UserRepository) FilterActive(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var active []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Pluck("id", &active).Error
	return active, err
}

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetByName(ctx context.Context, name domain.UserRoleType) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	err := r.db.WithContext(ctx).Order("level DESC").Find(&roles).Error
	return roles, err
}

// UserPermissionRepository handles per-user permission overrides
type UserPermissionRepository struct {
	db *gorm.DB
}

func NewUserPermissionRepository(db *gorm.DB) *UserPermissionRepository {
	return &UserPermissionRepository{db: db}
}

// GetOverride returns the user's override for module, or nil when none exists
func (r *UserPermissionRepository) GetOverride(ctx context.Context, userID uuid.UUID, module domain.PermissionModule) (*domain.UserPermission, error) {
	var perm domain.UserPermission
	err := r.db.WithContext(ctx).Where("user_id = ? AND module = ?", userID, module).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *UserPermissionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UserPermission, error) {
	var perms []domain.UserPermission
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("module ASC").Find(&perms).Error
	return perms, err
}

// Upsert creates or replaces the override for (user, module)
func (r *UserPermissionRepository) Upsert(ctx context.Context, perm *domain.UserPermission) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module"}},
			DoUpdates: clause.AssignmentColumns([]string{"can_view", "can_create", "can_edit", "can_delete", "can_import", "can_export", "updated_at"}),
		}).
		Create(perm).Error
}

func (r *UserPermissionRepository) Delete(ctx context.Context, userID uuid.UUID, module domain.PermissionModule) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND module = ?", userID, module).
		Delete(&domain.UserPermission{}).Error
}
