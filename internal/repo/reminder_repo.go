// Package repo implements the data persistence layer for reminders, backed
// by GORM. This file provides repository functions for the Reminder model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a reminder is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Concurrency:
//   - ClaimDue is the per-reminder atomicity guard the dispatcher relies on.
//     It performs a conditional update that only succeeds while the reminder
//     is still ACTIVE with the observed trigger time, so two workers racing
//     over the same due reminder resolve to exactly one claim.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/remindkit/go-reminder-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ReminderFilter narrows ListReminders/CountReminders. Zero values mean
// "no constraint". UpcomingOnly additionally requires Now to be set.
type ReminderFilter struct {
	Status *domain.ReminderStatus
	Type   *domain.ReminderType

	// From/To bound remind_at (inclusive).
	From *time.Time
	To   *time.Time

	// UpcomingOnly keeps ACTIVE reminders with remind_at >= Now.
	UpcomingOnly bool
	Now          time.Time

	Offset int
	Limit  int
}

// CreateReminder inserts r. A missing ID is assigned a random UUID and a
// missing CreatedAt is set to UTC now.
func CreateReminder(ctx context.Context, db *gorm.DB, r *domain.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// GetReminder fetches a single reminder by its ID and owner. If the record
// does not exist (or belongs to another user), it returns ErrNotFound.
func GetReminder(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Reminder, error) {
	var r domain.Reminder
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// applyFilter composes the WHERE clauses shared by list and count queries.
func applyFilter(q *gorm.DB, userID string, f ReminderFilter) *gorm.DB {
	q = q.Where("user_id = ?", userID)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Type != nil {
		q = q.Where("reminder_type = ?", *f.Type)
	}
	if f.From != nil {
		q = q.Where("remind_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("remind_at <= ?", *f.To)
	}
	if f.UpcomingOnly {
		q = q.Where("status = ? AND remind_at >= ?", domain.StatusActive, f.Now)
	}
	return q
}

// ListReminders returns the reminders owned by userID matching f, ordered by
// trigger time ascending (soonest first).
func ListReminders(ctx context.Context, db *gorm.DB, userID string, f ReminderFilter) ([]domain.Reminder, error) {
	var out []domain.Reminder
	q := applyFilter(db.WithContext(ctx), userID, f).Order("remind_at asc")
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountReminders returns the total number of reminders matching f, ignoring
// pagination. Used for pagination metadata.
func CountReminders(ctx context.Context, db *gorm.DB, userID string, f ReminderFilter) (int64, error) {
	var total int64
	f.Offset, f.Limit = 0, 0
	err := applyFilter(db.WithContext(ctx).Model(&domain.Reminder{}), userID, f).
		Count(&total).Error
	return total, err
}

// UpdateReminderFields applies the given column updates to a reminder owned
// by userID. If no rows are affected (missing or not owned), it returns
// ErrNotFound.
func UpdateReminderFields(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetTaskID stores (or clears) the external scheduler handle for a reminder.
// Unowned update: the scheduler registration runs on behalf of the system,
// not the end user.
func SetTaskID(ctx context.Context, db *gorm.DB, id string, taskID *string) error {
	return db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Update("task_id", taskID).Error
}

// DeleteReminder removes a reminder owned by userID together with its
// execution logs. Returns ErrNotFound when nothing was deleted.
func DeleteReminder(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Reminder{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("reminder_id = ?", id).Delete(&domain.ReminderLog{}).Error
	})
}

// ListDue returns ACTIVE reminders whose trigger time has passed, ordered by
// trigger time ascending. limit <= 0 means no limit.
func ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Reminder, error) {
	var out []domain.Reminder
	q := db.WithContext(ctx).
		Where("status = ? AND remind_at <= ?", domain.StatusActive, now).
		Order("remind_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ClaimDue attempts to take ownership of one due occurrence of r.
//
// The update only succeeds while the row is still ACTIVE with the trigger
// time the caller observed, which makes the claim atomic per reminder: of
// two workers racing over the same occurrence, exactly one wins.
//
//   - next != nil (recurring): the trigger time is advanced to *next and the
//     reminder stays ACTIVE for its following occurrence.
//   - next == nil (non-recurring): the reminder is provisionally marked
//     COMPLETED; a delivery failure afterwards flips it to FAILED via
//     MarkDispatchFailed.
//
// It returns true when this caller won the claim.
func ClaimDue(ctx context.Context, db *gorm.DB, r *domain.Reminder, next *time.Time) (bool, error) {
	fields := map[string]any{}
	if next != nil {
		fields["remind_at"] = *next
	} else {
		fields["status"] = domain.StatusCompleted
	}
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ? AND status = ? AND remind_at = ?", r.ID, domain.StatusActive, r.RemindAt).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkDispatchSent records a successful delivery: is_sent becomes true and
// sent_at is set to the delivery time.
func MarkDispatchSent(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_sent": true, "sent_at": at}).Error
}

// MarkDispatchFailed moves a claimed non-recurring reminder to FAILED after
// a delivery error. The caller must hold the claim.
func MarkDispatchFailed(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Update("status", domain.StatusFailed).Error
}

// CancelReminder conditionally transitions an ACTIVE reminder owned by
// userID to CANCELLED. It returns true when the transition happened; false
// means the reminder was missing or had already left ACTIVE (the caller
// decides whether that is an error).
func CancelReminder(ctx context.Context, db *gorm.DB, id, userID string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, domain.StatusActive).
		Update("status", domain.StatusCancelled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListRetentionCandidates returns terminal reminders last touched before
// cutoff, oldest first. limit <= 0 means no limit.
func ListRetentionCandidates(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.Reminder, error) {
	var out []domain.Reminder
	q := db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", terminalStatuses(), cutoff).
		Order("updated_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountRetentionCandidates counts the reminders a sweep at cutoff would
// remove, without removing anything.
func CountRetentionCandidates(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("status IN ? AND updated_at < ?", terminalStatuses(), cutoff).
		Count(&total).Error
	return total, err
}

// PurgeTerminalBefore permanently deletes terminal reminders last touched
// before cutoff, together with their execution logs, and returns how many
// reminders were removed. Logs are deleted explicitly so the purge does not
// depend on the driver having foreign-key cascades enabled.
func PurgeTerminalBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&domain.Reminder{}).
			Select("id").
			Where("status IN ? AND updated_at < ?", terminalStatuses(), cutoff)
		if err := tx.Where("reminder_id IN (?)", sub).Delete(&domain.ReminderLog{}).Error; err != nil {
			return err
		}
		res := tx.Where("status IN ? AND updated_at < ?", terminalStatuses(), cutoff).
			Delete(&domain.Reminder{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func terminalStatuses() []domain.ReminderStatus {
	return []domain.ReminderStatus{domain.StatusCompleted, domain.StatusCancelled, domain.StatusFailed}
}
