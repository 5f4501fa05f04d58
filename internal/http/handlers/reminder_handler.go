// Reminder HTTP handlers.
//
// This file exposes REST endpoints for the reminder resource:
//   - POST   /reminders              (create)
//   - GET    /reminders              (list, filtered + paginated)
//   - GET    /reminders/{id}         (fetch one)
//   - PATCH  /reminders/{id}         (partial update)
//   - POST   /reminders/{id}/cancel  (cancel)
//   - DELETE /reminders/{id}         (delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/remindkit/go-reminder-backend/internal/domain"
	"github.com/remindkit/go-reminder-backend/internal/repo"
	"github.com/remindkit/go-reminder-backend/internal/services"
	"github.com/remindkit/go-reminder-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ReminderService defines the reminder lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReminderService interface {
	// Create persists a new reminder for userID.
	Create(ctx context.Context, userID string, in services.CreateReminderInput) (*domain.Reminder, error)
	// CreateExpiryReminder creates a product-expiry reminder with generated content.
	CreateExpiryReminder(ctx context.Context, userID string, in services.ExpiryReminderInput) (*domain.Reminder, error)
	// BulkCreateExpiryReminders creates many expiry reminders, tolerating per-item failures.
	BulkCreateExpiryReminders(ctx context.Context, userID string, specs []services.ExpiryReminderInput) ([]domain.Reminder, []services.BulkError)
	// Get fetches one reminder owned by userID.
	Get(ctx context.Context, userID, id string) (*domain.Reminder, error)
	// List returns a page of userID's reminders and the total match count.
	List(ctx context.Context, userID string, f services.ListFilter) ([]domain.Reminder, int64, error)
	// Upcoming returns ACTIVE reminders due within the next N days.
	Upcoming(ctx context.Context, userID string, days int) ([]domain.Reminder, error)
	// Update applies a partial update to a reminder owned by userID.
	Update(ctx context.Context, userID, id string, in services.UpdateReminderInput) (*domain.Reminder, error)
	// Cancel transitions an ACTIVE reminder to CANCELLED.
	Cancel(ctx context.Context, userID, id string) (*domain.Reminder, error)
	// Delete removes a reminder and its execution logs.
	Delete(ctx context.Context, userID, id string) error
	// Stats aggregates counts across userID's reminders.
	Stats(ctx context.Context, userID string) (*repo.ReminderStats, error)
	// Logs returns a page of execution log entries for userID's reminders.
	Logs(ctx context.Context, userID string, f services.LogFilter) ([]domain.ReminderLog, int64, error)
	// RetentionSweep purges (or counts, when dryRun) old terminal reminders.
	RetentionSweep(ctx context.Context, olderThanDays int, dryRun bool) (*services.RetentionResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for reminders, execution logs, stats,
// and retention administration. It depends on an abstract service interface
// to keep transport concerns separate from business logic.
type Handlers struct {
	svc ReminderService
}

// New constructs and returns a Handlers instance bound to the given service.
func New(svc ReminderService) *Handlers {
	return &Handlers{svc: svc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateReminderRequest is the JSON payload for creating a reminder.
type CreateReminderRequest struct {
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`

	SupermarketID     *string `json:"supermarket_id"`
	RelatedObjectType *string `json:"related_object_type"`
	RelatedObjectID   *string `json:"related_object_id"`

	TargetDate *string `json:"target_date"` // date or RFC3339
	DaysBefore *int    `json:"days_before"`
	RemindAt   *string `json:"remind_at"` // RFC3339

	IsRecurring bool   `json:"is_recurring"`
	Frequency   string `json:"frequency"`

	SendEmail    *bool   `json:"send_email"`
	EmailSubject *string `json:"email_subject"`
	EmailBody    *string `json:"email_body"`
}

// UpdateReminderRequest is the JSON payload for partially updating a reminder.
// Absent fields are left untouched; target_date may be cleared explicitly.
type UpdateReminderRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Metadata    map[string]string `json:"metadata"`

	TargetDate      *string `json:"target_date"` // date or RFC3339
	ClearTargetDate bool    `json:"clear_target_date"`
	DaysBefore      *int    `json:"days_before"`
	RemindAt        *string `json:"remind_at"` // RFC3339

	SendEmail    *bool   `json:"send_email"`
	EmailSubject *string `json:"email_subject"`
	EmailBody    *string `json:"email_body"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListRemindersResponse wraps a page of reminders and pagination information.
type ListRemindersResponse struct {
	Reminders  []domain.Reminder `json:"reminders"`
	Pagination Pagination        `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// boolQuery reports whether the query param q is set to a truthy value.
func boolQuery(c *gin.Context, q string) bool {
	v := c.Query(q)
	return strings.EqualFold(v, "true") || v == "1"
}

// parseTimestamp accepts RFC3339 or a bare date ("2006-01-02", midnight UTC).
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// parseOptionalTimestamp maps a possibly-absent string field to *time.Time.
func parseOptionalTimestamp(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseTimestamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// serviceError translates service-layer errors into an HTTP response.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrReminderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reminder not found")
	case errors.Is(err, services.ErrInvalidState):
		fail(c, http.StatusConflict, ErrCodeInvalidState, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrProductNameRequired),
		errors.Is(err, services.ErrInvalidType),
		errors.Is(err, services.ErrInvalidFrequency),
		errors.Is(err, services.ErrFrequencyRequired),
		errors.Is(err, services.ErrLeadTimeNegative),
		errors.Is(err, services.ErrScheduleUnresolved):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// CreateReminder handles POST /reminders.
func (h *Handlers) CreateReminder(c *gin.Context) {
	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	target, err := parseOptionalTimestamp(req.TargetDate)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "target_date must be a date or RFC3339 timestamp")
		return
	}
	remindAt, err := parseOptionalTimestamp(req.RemindAt)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "remind_at must be an RFC3339 timestamp")
		return
	}

	in := services.CreateReminderInput{
		Type:              domain.ReminderType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Title:             req.Title,
		Description:       req.Description,
		Metadata:          req.Metadata,
		SupermarketID:     req.SupermarketID,
		RelatedObjectType: req.RelatedObjectType,
		RelatedObjectID:   req.RelatedObjectID,
		TargetDate:        target,
		DaysBefore:        req.DaysBefore,
		RemindAt:          remindAt,
		IsRecurring:       req.IsRecurring,
		Frequency:         domain.Frequency(strings.ToUpper(strings.TrimSpace(req.Frequency))),
		SendEmail:         req.SendEmail,
		EmailSubject:      req.EmailSubject,
		EmailBody:         req.EmailBody,
	}

	r, err := h.svc.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListReminders handles GET /reminders with optional status, type, from, to,
// and upcoming_only filters.
func (h *Handlers) ListReminders(c *gin.Context) {
	page, pageSize := clampPagination(c)
	f := services.ListFilter{Page: page, PageSize: pageSize}

	if s := strings.ToUpper(strings.TrimSpace(c.Query("status"))); s != "" {
		st := domain.ReminderStatus(s)
		if !domain.ValidStatus(st) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status filter")
			return
		}
		f.Status = &st
	}
	if s := strings.ToUpper(strings.TrimSpace(c.Query("type"))); s != "" {
		ty := domain.ReminderType(s)
		if !domain.ValidType(ty) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown type filter")
			return
		}
		f.Type = &ty
	}
	// start_date/end_date are accepted as aliases of from/to; the canonical
	// name wins when both are supplied.
	for _, w := range []struct {
		keys []string
		dst  **time.Time
	}{
		{[]string{"from", "start_date"}, &f.From},
		{[]string{"to", "end_date"}, &f.To},
	} {
		for _, q := range w.keys {
			s := c.Query(q)
			if s == "" {
				continue
			}
			t, err := parseTimestamp(s)
			if err != nil {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, q+" must be a date or RFC3339 timestamp")
				return
			}
			*w.dst = &t
			break
		}
	}
	f.UpcomingOnly = boolQuery(c, "upcoming_only") || boolQuery(c, "upcoming")

	items, total, err := h.svc.List(c.Request.Context(), userID(c), f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListRemindersResponse{
		Reminders: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetReminder handles GET /reminders/:id.
func (h *Handlers) GetReminder(c *gin.Context) {
	id, okID := reminderID(c)
	if !okID {
		return
	}
	r, err := h.svc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateReminder handles PATCH /reminders/:id.
func (h *Handlers) UpdateReminder(c *gin.Context) {
	id, okID := reminderID(c)
	if !okID {
		return
	}

	var req UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	target, err := parseOptionalTimestamp(req.TargetDate)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "target_date must be a date or RFC3339 timestamp")
		return
	}
	remindAt, err := parseOptionalTimestamp(req.RemindAt)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "remind_at must be an RFC3339 timestamp")
		return
	}

	in := services.UpdateReminderInput{
		Title:           req.Title,
		Description:     req.Description,
		Metadata:        req.Metadata,
		TargetDate:      target,
		ClearTargetDate: req.ClearTargetDate,
		DaysBefore:      req.DaysBefore,
		RemindAt:        remindAt,
		SendEmail:       req.SendEmail,
		EmailSubject:    req.EmailSubject,
		EmailBody:       req.EmailBody,
	}

	r, err := h.svc.Update(c.Request.Context(), userID(c), id, in)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// CancelReminder handles POST /reminders/:id/cancel.
func (h *Handlers) CancelReminder(c *gin.Context) {
	id, okID := reminderID(c)
	if !okID {
		return
	}
	r, err := h.svc.Cancel(c.Request.Context(), userID(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteReminder handles DELETE /reminders/:id.
func (h *Handlers) DeleteReminder(c *gin.Context) {
	id, okID := reminderID(c)
	if !okID {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID(c), id); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// reminderID validates the :id path parameter as a UUID. It writes the error
// response itself and reports false when validation fails.
func reminderID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reminder id must be a UUID")
		return "", false
	}
	return id, true
}
