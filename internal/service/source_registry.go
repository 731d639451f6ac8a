package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/repository"
)

// SourceLoader loads the entity a notification refers to
type SourceLoader func(ctx context.Context, id uuid.UUID) (any, error)

// SourceRegistry resolves tagged source references through one loader per kind
type SourceRegistry struct {
	mu      sync.RWMutex
	loaders map[domain.SourceKind]SourceLoader
}

func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{loaders: make(map[domain.SourceKind]SourceLoader)}
}

// NewDefaultSourceRegistry registers loaders for enquiries, follow-ups and users
func NewDefaultSourceRegistry(
	enquiryRepo *repository.EnquiryRepository,
	followUpRepo *repository.FollowUpRepository,
	userRepo *repository.UserRepository,
) *SourceRegistry {
	r := NewSourceRegistry()
	r.Register(domain.SourceEnquiry, func(ctx context.Context, id uuid.UUID) (any, error) {
		return enquiryRepo.GetByID(ctx, id)
	})
	r.Register(domain.SourceFollowUp, func(ctx context.Context, id uuid.UUID) (any, error) {
		return followUpRepo.GetByID(ctx, id)
	})
	r.Register(domain.SourceUser, func(ctx context.Context, id uuid.UUID) (any, error) {
		return userRepo.GetByID(ctx, id)
	})
	return r
}

func (r *SourceRegistry) Register(kind domain.SourceKind, loader SourceLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[kind] = loader
}

// Resolve loads the entity behind ref. A nil ref resolves to nil.
func (r *SourceRegistry) Resolve(ctx context.Context, ref *domain.SourceRef) (any, error) {
	if ref == nil {
		return nil, nil
	}
	r.mu.RLock()
	loader, ok := r.loaders[ref.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no loader registered for source kind %q", ref.Kind)
	}
	return loader(ctx, ref.ID)
}

// sourcePath is the web path of the entity behind ref
func sourcePath(ref *domain.SourceRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case domain.SourceEnquiry:
		return "/enquiries/" + ref.ID.String()
	case domain.SourceFollowUp:
		return "/follow-ups/" + ref.ID.String()
	case domain.SourceUser:
		return "/users/" + ref.ID.String()
	}
	return ""
}
