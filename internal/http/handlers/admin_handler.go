// Administrative HTTP handlers.
//
// This file exposes operational endpoints that are not part of the
// per-user API surface:
//   - POST /admin/retention-sweep (purge old terminal reminders)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/remindkit/go-reminder-backend/internal/utils"
)

// RetentionSweepRequest is the JSON payload for the retention sweep.
// older_than_days <= 0 applies the configured default window; dry_run
// reports what would be deleted without touching the store.
type RetentionSweepRequest struct {
	OlderThanDays int  `json:"older_than_days"`
	DryRun        bool `json:"dry_run"`
}

// RetentionSweep handles POST /admin/retention-sweep.
//
// Parameters may arrive as a JSON body or as days/dry_run query params; an
// empty request runs a real sweep with the default window.
func (h *Handlers) RetentionSweep(c *gin.Context) {
	var req RetentionSweepRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	if s := c.Query("days"); s != "" {
		req.OlderThanDays = utils.AtoiDefault(s, req.OlderThanDays)
	}
	if s := c.Query("dry_run"); s != "" {
		req.DryRun = strings.EqualFold(s, "true") || s == "1"
	}

	res, err := h.svc.RetentionSweep(c.Request.Context(), req.OlderThanDays, req.DryRun)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}
