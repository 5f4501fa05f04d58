// Package repo implements the data persistence layer for reminders, backed
// by GORM. This file provides the execution log: an append-only record of
// dispatch attempts. There are deliberately no update or single-row delete
// functions here; rows leave the table only when their reminder is purged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/remindkit/go-reminder-backend/internal/domain"
)

// LogFilter narrows ListLogs/CountLogs. Zero values mean "no constraint".
type LogFilter struct {
	ReminderID *string
	Status     *domain.LogStatus

	Offset int
	Limit  int
}

// AppendLog inserts one dispatch-attempt record. A missing ID is assigned a
// random UUID and a missing ExecutedAt is set to UTC now.
func AppendLog(ctx context.Context, db *gorm.DB, l *domain.ReminderLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.ExecutedAt.IsZero() {
		l.ExecutedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// ownedLogs scopes a query to log rows whose reminder belongs to userID.
func ownedLogs(ctx context.Context, db *gorm.DB, userID string) *gorm.DB {
	sub := db.Model(&domain.Reminder{}).Select("id").Where("user_id = ?", userID)
	return db.WithContext(ctx).Model(&domain.ReminderLog{}).Where("reminder_id IN (?)", sub)
}

// ListLogs returns execution log entries for userID's reminders matching f,
// newest first.
func ListLogs(ctx context.Context, db *gorm.DB, userID string, f LogFilter) ([]domain.ReminderLog, error) {
	var out []domain.ReminderLog
	q := ownedLogs(ctx, db, userID)
	if f.ReminderID != nil {
		q = q.Where("reminder_id = ?", *f.ReminderID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	q = q.Order("executed_at desc")
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountLogs returns the total number of log entries matching f, ignoring
// pagination.
func CountLogs(ctx context.Context, db *gorm.DB, userID string, f LogFilter) (int64, error) {
	var total int64
	q := ownedLogs(ctx, db, userID)
	if f.ReminderID != nil {
		q = q.Where("reminder_id = ?", *f.ReminderID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	err := q.Count(&total).Error
	return total, err
}
