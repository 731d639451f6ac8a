package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/repository"
	"gorm.io/gorm"
)

func actorFrom(ctx context.Context) (*auth.UserContext, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, permissionDenied("Authentication required")
	}
	return userCtx, nil
}

func visibilityFor(actor *auth.UserContext) repository.Visibility {
	if actor.IsManagement() {
		return repository.SeeAll
	}
	return repository.Visibility{UserID: actor.UserID}
}

// canAccessEnquiry reports whether actor may read or work on e
func canAccessEnquiry(actor *auth.UserContext, e *domain.Enquiry) bool {
	if actor.IsManagement() {
		return true
	}
	return e.IsCreatedBy(actor.UserID) || e.IsAssignedTo(actor.UserID)
}

func sameID(a *uuid.UUID, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// lookupErr maps a missing row to a NotFound error naming what
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return internalError("failed to load "+what, err)
}
