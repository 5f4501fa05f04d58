// Reporting HTTP handlers.
//
// This file exposes the read-only reporting endpoints:
//   - GET /reminders/stats     (aggregate counts)
//   - GET /reminders/upcoming  (ACTIVE reminders due soon)
//   - GET /reminder-logs       (execution history, filtered + paginated)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/remindkit/go-reminder-backend/internal/domain"
	"github.com/remindkit/go-reminder-backend/internal/services"
	"github.com/remindkit/go-reminder-backend/internal/utils"
)

// UpcomingResponse wraps the upcoming-reminders window.
type UpcomingResponse struct {
	Days      int               `json:"days"`
	Reminders []domain.Reminder `json:"reminders"`
}

// ListLogsResponse wraps a page of execution log entries.
type ListLogsResponse struct {
	Logs       []domain.ReminderLog `json:"logs"`
	Pagination Pagination           `json:"pagination"`
}

// ReminderStats handles GET /reminders/stats.
func (h *Handlers) ReminderStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// UpcomingReminders handles GET /reminders/upcoming?days=N (default 7).
func (h *Handlers) UpcomingReminders(c *gin.Context) {
	days := utils.AtoiDefault(c.Query("days"), 7)
	if days < 1 || days > 365 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "days must be between 1 and 365")
		return
	}

	items, err := h.svc.Upcoming(c.Request.Context(), userID(c), days)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, UpcomingResponse{Days: days, Reminders: items})
}

// ListReminderLogs handles GET /reminder-logs with optional reminder_id and
// status filters.
func (h *Handlers) ListReminderLogs(c *gin.Context) {
	page, pageSize := clampPagination(c)
	f := services.LogFilter{Page: page, PageSize: pageSize}

	if id := strings.TrimSpace(c.Query("reminder_id")); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reminder_id must be a UUID")
			return
		}
		f.ReminderID = &id
	}
	if s := strings.ToUpper(strings.TrimSpace(c.Query("status"))); s != "" {
		st := domain.LogStatus(s)
		if !domain.ValidLogStatus(st) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status filter")
			return
		}
		f.Status = &st
	}

	logs, total, err := h.svc.Logs(c.Request.Context(), userID(c), f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListLogsResponse{
		Logs: logs,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
