// Package repo implements the data persistence layer for reminders, backed
// by GORM. This file provides the aggregate statistics query backing the
// reminder dashboard. Each count is a lightweight scoped query; the whole
// aggregate is read-only.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/remindkit/go-reminder-backend/internal/domain"
)

// ReminderStats is the aggregate view of one user's reminders.
type ReminderStats struct {
	Total     int64 `json:"total_reminders"`
	Active    int64 `json:"active_reminders"`
	Completed int64 `json:"completed_reminders"`
	Cancelled int64 `json:"cancelled_reminders"`
	Failed    int64 `json:"failed_reminders"`

	// Upcoming are ACTIVE reminders not yet due; Overdue are ACTIVE
	// reminders whose trigger time has passed without a dispatch.
	Upcoming int64 `json:"upcoming_reminders"`
	Overdue  int64 `json:"overdue_reminders"`

	Expiry   int64 `json:"expiry_reminders"`
	LowStock int64 `json:"low_stock_reminders"`
	Custom   int64 `json:"custom_reminders"`

	SentToday     int64 `json:"reminders_sent_today"`
	SentThisWeek  int64 `json:"reminders_sent_this_week"`
	SentThisMonth int64 `json:"reminders_sent_this_month"`
}

// GetReminderStats computes the aggregate counts for userID relative to now.
//
// Sent windows follow the original dashboard semantics: today is the current
// calendar day in now's location, the week and month windows are rolling
// 7-day and 30-day lookbacks.
func GetReminderStats(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*ReminderStats, error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Reminder{}).Where("user_id = ?", userID)
	}

	s := &ReminderStats{}

	count := func(q *gorm.DB, dst *int64) error {
		return q.Count(dst).Error
	}

	if err := count(base(), &s.Total); err != nil {
		return nil, err
	}
	if err := count(base().Where("status = ?", domain.StatusActive), &s.Active); err != nil {
		return nil, err
	}
	if err := count(base().Where("status = ?", domain.StatusCompleted), &s.Completed); err != nil {
		return nil, err
	}
	if err := count(base().Where("status = ?", domain.StatusCancelled), &s.Cancelled); err != nil {
		return nil, err
	}
	if err := count(base().Where("status = ?", domain.StatusFailed), &s.Failed); err != nil {
		return nil, err
	}

	if err := count(base().Where("status = ? AND remind_at >= ?", domain.StatusActive, now), &s.Upcoming); err != nil {
		return nil, err
	}
	if err := count(base().Where("status = ? AND remind_at < ?", domain.StatusActive, now), &s.Overdue); err != nil {
		return nil, err
	}

	if err := count(base().Where("reminder_type = ?", domain.TypeExpiry), &s.Expiry); err != nil {
		return nil, err
	}
	if err := count(base().Where("reminder_type = ?", domain.TypeLowStock), &s.LowStock); err != nil {
		return nil, err
	}
	if err := count(base().Where("reminder_type = ?", domain.TypeCustom), &s.Custom); err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := count(base().Where("sent_at >= ?", dayStart), &s.SentToday); err != nil {
		return nil, err
	}
	if err := count(base().Where("sent_at >= ?", now.AddDate(0, 0, -7)), &s.SentThisWeek); err != nil {
		return nil, err
	}
	if err := count(base().Where("sent_at >= ?", now.AddDate(0, 0, -30)), &s.SentThisMonth); err != nil {
		return nil, err
	}

	return s, nil
}
