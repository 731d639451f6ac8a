package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

// maxTemplateSize bounds uploaded email templates
const maxTemplateSize = 256 << 10

// NotificationHandler handles HTTP requests for the notification inbox,
// preferences and email template overrides
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// List handles GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	result, err := h.notificationService.List(r.Context(), unreadOnly, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "list notifications")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Unread handles GET /notifications/unread
func (h *NotificationHandler) Unread(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	summary, err := h.notificationService.Unread(r.Context(), limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "list unread notifications")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetUnreadCount handles GET /notifications/count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.UnreadCount(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "get unread count")
		return
	}
	respondJSON(w, http.StatusOK, domain.UnreadCountDTO{Count: count})
}

// MarkAsRead handles POST /notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "notification")
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "mark notification as read")
		return
	}
	respondJSON(w, http.StatusOK, notification)
}

// MarkAllAsRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notificationService.MarkAllRead(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "mark all notifications as read")
		return
	}
	respondJSON(w, http.StatusOK, domain.MarkAllReadDTO{Updated: n})
}

// Delete handles DELETE /notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "notification")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPreferences handles GET /notifications/preferences
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.notificationService.GetPreferences(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "get notification preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /notifications/preferences. Omitted flags
// keep their value.
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNotificationPreferencesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	prefs, err := h.notificationService.UpdatePreferences(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update notification preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// ListTypes handles GET /notification-types
func (h *NotificationHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.notificationService.ListTypes(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list notification types")
		return
	}
	respondJSON(w, http.StatusOK, types)
}

// UploadTemplate handles PUT /notification-types/{name}/template. The body
// is the raw html template.
func (h *NotificationHandler) UploadTemplate(w http.ResponseWriter, r *http.Request) {
	name := domain.NotificationTypeName(chi.URLParam(r, "name"))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateSize+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read template body")
		return
	}
	if len(body) == 0 {
		respondWithError(w, http.StatusBadRequest, "Template body is required")
		return
	}
	if len(body) > maxTemplateSize {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Template exceeds 256 KB")
		return
	}

	if err := h.notificationService.UploadTemplate(r.Context(), name, body); err != nil {
		respondServiceError(w, h.logger, err, "upload email template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
