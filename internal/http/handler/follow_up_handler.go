package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

// FollowUpHandler handles HTTP requests for follow-ups
type FollowUpHandler struct {
	followUpService *service.FollowUpService
	logger          *zap.Logger
}

func NewFollowUpHandler(followUpService *service.FollowUpService, logger *zap.Logger) *FollowUpHandler {
	return &FollowUpHandler{
		followUpService: followUpService,
		logger:          logger,
	}
}

// List handles GET /follow-ups and returns the overdue, today, tomorrow and
// upcoming buckets for the caller
func (h *FollowUpHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.FollowUpFilter{Type: domain.FollowUpType(q.Get("type"))}

	if v := q.Get("enquiryId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid enquiry ID: must be a valid UUID")
			return
		}
		filter.EnquiryID = &id
	}
	if v := q.Get("assignedToId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user ID: must be a valid UUID")
			return
		}
		filter.AssignedToID = &id
	}

	buckets, err := h.followUpService.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "list follow-ups")
		return
	}
	respondJSON(w, http.StatusOK, buckets)
}

// ListByEnquiry handles GET /enquiries/{id}/follow-ups
func (h *FollowUpHandler) ListByEnquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	items, err := h.followUpService.ListByEnquiry(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "list enquiry follow-ups")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Create handles POST /enquiries/{id}/follow-ups
func (h *FollowUpHandler) Create(w http.ResponseWriter, r *http.Request) {
	enquiryID, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	var req domain.CreateFollowUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	followUp, err := h.followUpService.Create(r.Context(), enquiryID, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create follow-up")
		return
	}
	respondJSON(w, http.StatusCreated, followUp)
}

// Update handles PUT /follow-ups/{id}
func (h *FollowUpHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "follow-up")
	if !ok {
		return
	}

	var req domain.UpdateFollowUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	followUp, err := h.followUpService.Edit(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update follow-up")
		return
	}
	respondJSON(w, http.StatusOK, followUp)
}

// UpdateStatus handles POST /follow-ups/{id}/status
func (h *FollowUpHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "follow-up")
	if !ok {
		return
	}

	var req domain.UpdateFollowUpStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	followUp, err := h.followUpService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update follow-up status")
		return
	}
	respondJSON(w, http.StatusOK, followUp)
}

// Complete handles POST /follow-ups/{id}/complete
func (h *FollowUpHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "follow-up")
	if !ok {
		return
	}

	followUp, err := h.followUpService.MarkCompleted(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "complete follow-up")
		return
	}
	respondJSON(w, http.StatusOK, followUp)
}

// Delete handles DELETE /follow-ups/{id}
func (h *FollowUpHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "follow-up")
	if !ok {
		return
	}

	if err := h.followUpService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete follow-up")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
