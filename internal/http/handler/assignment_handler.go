package handler

import (
	"net/http"

	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

// AssignmentHandler handles reassignment and the accept/reject handshake
type AssignmentHandler struct {
	enquiryService    *service.EnquiryService
	assignmentService *service.AssignmentService
	logger            *zap.Logger
}

func NewAssignmentHandler(enquiryService *service.EnquiryService, assignmentService *service.AssignmentService, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		enquiryService:    enquiryService,
		assignmentService: assignmentService,
		logger:            logger,
	}
}

// Update handles POST /enquiries/{id}/assignment. A null userId clears the
// assignee. Admin only.
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	var req domain.UpdateAssignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.enquiryService.UpdateAssignment(r.Context(), id, req.UserID)
	respondResult(w, h.logger, err, "update assignment", service.ActionResultOf(err))
}

// Accept handles POST /enquiries/{id}/assignment/accept
func (h *AssignmentHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	_, err := h.assignmentService.Accept(r.Context(), id)
	respondResult(w, h.logger, err, "accept assignment", service.ActionResultOf(err))
}

// Reject handles POST /enquiries/{id}/assignment/reject
func (h *AssignmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	_, err := h.assignmentService.Reject(r.Context(), id)
	respondResult(w, h.logger, err, "reject assignment", service.ActionResultOf(err))
}
