package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) WithTx(tx *gorm.DB) *ContactRepository {
	return &ContactRepository{db: tx}
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(contact).Error
}

// CreateIfAbsent inserts contact unless one with the same phone number
// exists. It reports whether a row was inserted.
func (r *ContactRepository) CreateIfAbsent(ctx context.Context, contact *domain.Contact) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "phone_number"}}, DoNothing: true}).
		Create(contact)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	if err := r.db.WithContext(ctx).Preload("Account").First(&contact, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByPhone returns the contact with the given normalised phone number, or
// nil when there is none.
func (r *ContactRepository) GetByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) WithTx(tx *gorm.DB) *AccountRepository {
	return &AccountRepository{db: tx}
}

// GetOrCreateByName returns the account called name, creating it if needed
func (r *AccountRepository) GetOrCreateByName(ctx context.Context, name string, createdBy *uuid.UUID) (*domain.Account, error) {
	account := domain.Account{Name: name, CreatedByID: createdBy}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&account).Error
	if err != nil {
		return nil, err
	}

	var existing domain.Account
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}
