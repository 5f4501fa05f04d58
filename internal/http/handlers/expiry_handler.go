// Product-expiry HTTP handlers.
//
// This file exposes the convenience endpoints that generate expiry reminders
// from product data:
//   - POST /reminders/expiry       (one product)
//   - POST /reminders/expiry/bulk  (many products, partial failure tolerated)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/remindkit/go-reminder-backend/internal/domain"
	"github.com/remindkit/go-reminder-backend/internal/services"
)

// ExpiryReminderRequest is the JSON payload describing one product whose
// expiry should produce a reminder.
type ExpiryReminderRequest struct {
	ProductName string `json:"product_name"`
	ExpiryDate  string `json:"expiry_date"` // date or RFC3339

	DaysBefore    *int    `json:"days_before"`
	ProductID     *string `json:"product_id"`
	SupermarketID *string `json:"supermarket_id"`
	CustomMessage *string `json:"custom_message"`
}

// BulkExpiryRequest wraps the item list for the bulk endpoint.
type BulkExpiryRequest struct {
	Items []ExpiryReminderRequest `json:"items"`
}

// BulkExpiryResponse reports created reminders alongside per-item failures.
// Error indexes refer to positions in the submitted items array.
type BulkExpiryResponse struct {
	Created []domain.Reminder    `json:"created"`
	Errors  []services.BulkError `json:"errors"`
}

// toExpiryInput converts the transport payload to a service input. The expiry
// date is parsed here so the index of a malformed item is still reportable.
func toExpiryInput(req ExpiryReminderRequest) (services.ExpiryReminderInput, error) {
	expiry, err := parseTimestamp(req.ExpiryDate)
	if err != nil {
		return services.ExpiryReminderInput{}, err
	}
	return services.ExpiryReminderInput{
		ProductName:   strings.TrimSpace(req.ProductName),
		ExpiryDate:    expiry,
		DaysBefore:    req.DaysBefore,
		ProductID:     req.ProductID,
		SupermarketID: req.SupermarketID,
		CustomMessage: req.CustomMessage,
	}, nil
}

// CreateExpiryReminder handles POST /reminders/expiry.
func (h *Handlers) CreateExpiryReminder(c *gin.Context) {
	var req ExpiryReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	in, err := toExpiryInput(req)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "expiry_date must be a date or RFC3339 timestamp")
		return
	}

	r, err := h.svc.CreateExpiryReminder(c.Request.Context(), userID(c), in)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// BulkCreateExpiryReminders handles POST /reminders/expiry/bulk.
//
// The response is 201 when at least one reminder was created and 400 when
// every item failed; either way the body lists both outcomes so callers can
// retry just the failed indexes.
func (h *Handlers) BulkCreateExpiryReminders(c *gin.Context) {
	var req BulkExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "items must not be empty")
		return
	}

	// Parse dates up front; unparseable items join the service-level errors
	// with their original index preserved.
	inputs := make([]services.ExpiryReminderInput, 0, len(req.Items))
	indexes := make([]int, 0, len(req.Items))
	var parseErrs []services.BulkError
	for i, item := range req.Items {
		in, err := toExpiryInput(item)
		if err != nil {
			parseErrs = append(parseErrs, services.BulkError{
				Index:   i,
				Message: "expiry_date must be a date or RFC3339 timestamp",
			})
			continue
		}
		inputs = append(inputs, in)
		indexes = append(indexes, i)
	}

	created, svcErrs := h.svc.BulkCreateExpiryReminders(c.Request.Context(), userID(c), inputs)

	// Re-map service error indexes back to the submitted positions.
	allErrs := parseErrs
	for _, e := range svcErrs {
		allErrs = append(allErrs, services.BulkError{Index: indexes[e.Index], Message: e.Message})
	}

	status := http.StatusCreated
	if len(created) == 0 {
		status = http.StatusBadRequest
	}
	ok(c, status, BulkExpiryResponse{Created: created, Errors: allErrs})
}
