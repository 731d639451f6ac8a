package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/repository"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

// EnquiryHandler handles HTTP requests for enquiries and their lifecycle
type EnquiryHandler struct {
	enquiryService *service.EnquiryService
	logger         *zap.Logger
}

func NewEnquiryHandler(enquiryService *service.EnquiryService, logger *zap.Logger) *EnquiryHandler {
	return &EnquiryHandler{
		enquiryService: enquiryService,
		logger:         logger,
	}
}

// parseEnquiryFilter reads list filters from the query string. Dates are
// calendar days (2006-01-02); "to" includes the whole day.
func parseEnquiryFilter(r *http.Request) (domain.EnquiryFilter, bool) {
	q := r.URL.Query()
	filter := domain.EnquiryFilter{
		Status:  domain.EnquiryStatus(q.Get("status")),
		Stage:   domain.EnquiryStage(q.Get("stage")),
		Country: q.Get("country"),
		Search:  q.Get("search"),
		Tab:     domain.EnquiryTab(q.Get("tab")),
	}

	if v := q.Get("ownerId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, false
		}
		filter.OwnerID = &id
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, false
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, false
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	return filter, true
}

// List handles GET /enquiries
func (h *EnquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseEnquiryFilter(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid filter: ownerId must be a UUID and dates YYYY-MM-DD")
		return
	}

	sort := repository.DefaultSortConfig()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}

	page, pageSize := parsePagination(r)
	result, err := h.enquiryService.List(r.Context(), filter, sort, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "list enquiries")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Board handles GET /enquiries/board
func (h *EnquiryHandler) Board(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseEnquiryFilter(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid filter: ownerId must be a UUID and dates YYYY-MM-DD")
		return
	}

	columns, err := h.enquiryService.StageBoard(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "build stage board")
		return
	}
	respondJSON(w, http.StatusOK, columns)
}

// Create handles POST /enquiries
func (h *EnquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEnquiryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	enquiry, err := h.enquiryService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create enquiry")
		return
	}

	w.Header().Set("Location", "/api/v1/enquiries/"+enquiry.ID.String())
	respondJSON(w, http.StatusCreated, enquiry)
}

// GetByID handles GET /enquiries/{id}
func (h *EnquiryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	enquiry, err := h.enquiryService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get enquiry")
		return
	}
	respondJSON(w, http.StatusOK, enquiry)
}

// History handles GET /enquiries/{id}/history
func (h *EnquiryHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	history, err := h.enquiryService.History(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get enquiry history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Delete handles DELETE /enquiries/{id}
func (h *EnquiryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	err := h.enquiryService.Delete(r.Context(), id)
	respondResult(w, h.logger, err, "delete enquiry", service.ActionResultOf(err))
}

// UpdateStage handles POST /enquiries/{id}/stage
func (h *EnquiryHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	var req domain.UpdateStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	enquiry, err := h.enquiryService.UpdateStage(r.Context(), id, &req)
	respondResult(w, h.logger, err, "update enquiry stage", service.StageResultOf(enquiry, err))
}

// UpdateStatus handles POST /enquiries/{id}/status
func (h *EnquiryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	var req domain.UpdateStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	enquiry, err := h.enquiryService.UpdateStatus(r.Context(), id, &req)
	respondResult(w, h.logger, err, "update enquiry status", service.StatusResultOf(enquiry, err))
}

// UpdateReason handles POST /enquiries/{id}/reason
func (h *EnquiryHandler) UpdateReason(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "enquiry")
	if !ok {
		return
	}

	var req domain.UpdateEnquiryReasonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	enquiry, err := h.enquiryService.UpdateReason(r.Context(), id, req.ReasonID)
	respondResult(w, h.logger, err, "update enquiry reason", service.StatusResultOf(enquiry, err))
}
