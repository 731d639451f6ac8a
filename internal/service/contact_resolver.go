package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/phone"
	"github.com/straye-as/enquiry-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContactResolver finds or creates the canonical contact for an enquiry's
// phone number.
type ContactResolver struct {
	contactRepo *repository.ContactRepository
	accountRepo *repository.AccountRepository
	normalizer  *phone.Normalizer
	logger      *zap.Logger
}

func NewContactResolver(
	contactRepo *repository.ContactRepository,
	accountRepo *repository.AccountRepository,
	normalizer *phone.Normalizer,
	logger *zap.Logger,
) *ContactResolver {
	return &ContactResolver{
		contactRepo: contactRepo,
		accountRepo: accountRepo,
		normalizer:  normalizer,
		logger:      logger,
	}
}

// Resolve returns the contact owning phoneNumber, creating it (and its account
// when companyName is set) if none exists. tx may be nil to run outside a
// transaction. created is true only when this call inserted the contact.
func (r *ContactResolver) Resolve(ctx context.Context, tx *gorm.DB, name, phoneNumber, companyName string, actorID *uuid.UUID) (*domain.Contact, bool, error) {
	contacts, accounts := r.contactRepo, r.accountRepo
	if tx != nil {
		contacts, accounts = contacts.WithTx(tx), accounts.WithTx(tx)
	}

	normalized := r.normalizer.Normalize(phoneNumber)
	if normalized == "" {
		return nil, false, validationError(CodeRequiredField, "Phone number is required")
	}

	existing, err := contacts.GetByPhone(ctx, normalized)
	if err != nil {
		return nil, false, internalError("failed to look up contact", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	contact := &domain.Contact{
		FullName:    strings.TrimSpace(name),
		PhoneNumber: normalized,
		CreatedByID: actorID,
	}
	if company := strings.TrimSpace(companyName); company != "" {
		account, err := accounts.GetOrCreateByName(ctx, company, actorID)
		if err != nil {
			return nil, false, internalError("failed to resolve account", err)
		}
		contact.AccountID = &account.ID
	}

	created, err := contacts.CreateIfAbsent(ctx, contact)
	if err != nil {
		return nil, false, internalError("failed to create contact", err)
	}
	if !created {
		// Lost a race with a concurrent insert of the same phone number
		existing, err := contacts.GetByPhone(ctx, normalized)
		if err != nil || existing == nil {
			return nil, false, internalError("failed to reload contact", fmt.Errorf("phone %s: %w", normalized, err))
		}
		return existing, false, nil
	}

	r.logger.Info("contact auto-created",
		zap.String("contact_id", contact.ID.String()),
		zap.String("phone", normalized))
	return contact, true, nil
}

// Normalize exposes the phone normalisation used for lookups
func (r *ContactResolver) Normalize(phoneNumber string) string {
	return r.normalizer.Normalize(phoneNumber)
}
