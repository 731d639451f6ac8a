package handler

import (
	"net/http"

	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

// ReferenceHandler serves reasons, lead sources and the category tree
type ReferenceHandler struct {
	referenceService *service.ReferenceService
	logger           *zap.Logger
}

func NewReferenceHandler(referenceService *service.ReferenceService, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		referenceService: referenceService,
		logger:           logger,
	}
}

func includeInactive(r *http.Request) bool {
	return r.URL.Query().Get("includeInactive") == "true"
}

func (h *ReferenceHandler) ListReasons(w http.ResponseWriter, r *http.Request) {
	reasons, err := h.referenceService.ListReasons(r.Context(), includeInactive(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list reasons")
		return
	}
	respondJSON(w, http.StatusOK, reasons)
}

func (h *ReferenceHandler) CreateReason(w http.ResponseWriter, r *http.Request) {
	var req domain.ReasonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	reason, err := h.referenceService.CreateReason(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create reason")
		return
	}
	respondJSON(w, http.StatusCreated, reason)
}

func (h *ReferenceHandler) UpdateReason(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "reason")
	if !ok {
		return
	}

	var req domain.ReasonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	reason, err := h.referenceService.UpdateReasonEntry(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update reason")
		return
	}
	respondJSON(w, http.StatusOK, reason)
}

// DeleteReason removes an unused reason; one still referenced by an
// enquiry is deactivated instead
func (h *ReferenceHandler) DeleteReason(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "reason")
	if !ok {
		return
	}

	if err := h.referenceService.DeleteReason(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete reason")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReferenceHandler) ListLeadSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.referenceService.ListLeadSources(r.Context(), includeInactive(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "list lead sources")
		return
	}
	respondJSON(w, http.StatusOK, sources)
}

func (h *ReferenceHandler) CreateLeadSource(w http.ResponseWriter, r *http.Request) {
	var req domain.LeadSourceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	source, err := h.referenceService.CreateLeadSource(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create lead source")
		return
	}
	respondJSON(w, http.StatusCreated, source)
}

func (h *ReferenceHandler) UpdateLeadSource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "lead source")
	if !ok {
		return
	}

	var req domain.LeadSourceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	source, err := h.referenceService.UpdateLeadSource(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update lead source")
		return
	}
	respondJSON(w, http.StatusOK, source)
}

func (h *ReferenceHandler) DeleteLeadSource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "lead source")
	if !ok {
		return
	}

	if err := h.referenceService.DeleteLeadSource(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete lead source")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReferenceHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.referenceService.ListCategories(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *ReferenceHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "category")
	if !ok {
		return
	}

	subcategories, err := h.referenceService.ListSubcategories(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "list subcategories")
		return
	}
	respondJSON(w, http.StatusOK, subcategories)
}
