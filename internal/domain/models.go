// Package domain defines the persistence models for reminders and their
// execution logs. These types are mapped with GORM and form the core data
// layer of the reminder backend.
package domain

import (
	"time"
)

// ReminderType classifies what a reminder is about.
type ReminderType string

// Reminder types.
const (
	TypeExpiry      ReminderType = "EXPIRY"
	TypeLowStock    ReminderType = "LOW_STOCK"
	TypeCustom      ReminderType = "CUSTOM"
	TypeMaintenance ReminderType = "MAINTENANCE"
	TypeOther       ReminderType = "OTHER"
)

// ValidType reports whether t is one of the supported reminder types.
func ValidType(t ReminderType) bool {
	switch t {
	case TypeExpiry, TypeLowStock, TypeCustom, TypeMaintenance, TypeOther:
		return true
	}
	return false
}

// Frequency is the recurrence rule governing how a reminder's trigger time
// advances after it fires.
type Frequency string

// Recurrence frequencies.
const (
	FreqNone    Frequency = "NONE"
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
)

// ValidFrequency reports whether f is one of the supported frequencies.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FreqNone, FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// ReminderStatus is the lifecycle state of a reminder.
//
// ACTIVE is the only non-terminal state. COMPLETED, CANCELLED and FAILED are
// terminal: once a reminder leaves ACTIVE no further transition occurs. A
// recurring reminder stays ACTIVE across occurrences until cancelled.
type ReminderStatus string

// Reminder statuses.
const (
	StatusActive    ReminderStatus = "ACTIVE"
	StatusCompleted ReminderStatus = "COMPLETED"
	StatusCancelled ReminderStatus = "CANCELLED"
	StatusFailed    ReminderStatus = "FAILED"
)

// ValidStatus reports whether s is one of the supported statuses.
func ValidStatus(s ReminderStatus) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s ReminderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Metadata is an opaque string-keyed payload attached to a reminder by its
// creator (e.g. product id/name for expiry reminders). It is passed through
// to the notification template layer and never interpreted by the dispatcher.
type Metadata map[string]string

// Reminder represents a scheduled notification intent owned by a user.
//
// Scheduling: RemindAt is the absolute trigger time. It is either supplied
// directly or derived as TargetDate minus DaysBefore days; a reminder with
// neither is invalid and is rejected before it ever reaches this table.
//
// Recurrence: when IsRecurring is set (Frequency != NONE), a dispatched
// reminder computes a new RemindAt and remains ACTIVE instead of reaching a
// terminal status.
type Reminder struct {
	ID     string `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID string `json:"user_id" gorm:"type:varchar(64);not null;index:idx_user_reminders"`

	// SupermarketID optionally scopes the reminder to one store of a
	// multi-tenant account.
	SupermarketID *string `json:"supermarket_id,omitempty" gorm:"type:char(36)"`

	Type        ReminderType `json:"reminder_type" gorm:"column:reminder_type;type:varchar(20);not null;check:reminder_type IN ('EXPIRY','LOW_STOCK','CUSTOM','MAINTENANCE','OTHER')"`
	Title       string       `json:"title"         gorm:"type:varchar(255);not null"`
	Description string       `json:"description"   gorm:"type:text"`
	Metadata    Metadata     `json:"metadata"      gorm:"serializer:json"`

	// RelatedObjectType/RelatedObjectID reference the record the reminder is
	// about (e.g. "product" plus a product id). Opaque to this subsystem.
	RelatedObjectType *string `json:"related_object_type,omitempty" gorm:"type:varchar(50)"`
	RelatedObjectID   *string `json:"related_object_id,omitempty"   gorm:"type:varchar(100)"`

	TargetDate *time.Time `json:"target_date,omitempty"`
	DaysBefore int        `json:"days_before" gorm:"not null;default:30"`
	RemindAt   time.Time  `json:"remind_at"   gorm:"not null;index:idx_status_due,priority:2"`

	IsRecurring bool      `json:"is_recurring" gorm:"not null;default:false"`
	Frequency   Frequency `json:"frequency"    gorm:"type:varchar(10);not null;default:'NONE';check:frequency IN ('NONE','DAILY','WEEKLY','MONTHLY')"`

	SendEmail bool `json:"send_email" gorm:"not null;default:true"`

	// EmailSubject/EmailBody override the generated email content when set.
	EmailSubject *string `json:"email_subject,omitempty" gorm:"type:varchar(255)"`
	EmailBody    *string `json:"email_body,omitempty"    gorm:"type:text"`

	Status ReminderStatus `json:"status" gorm:"type:varchar(10);not null;default:'ACTIVE';index:idx_status_due,priority:1;check:status IN ('ACTIVE','COMPLETED','CANCELLED','FAILED')"`

	// IsSent records whether at least one dispatch succeeded; SentAt is the
	// time of the most recent successful dispatch.
	IsSent bool       `json:"is_sent" gorm:"not null;default:false"`
	SentAt *time.Time `json:"sent_at,omitempty"`

	// TaskID is the handle returned by the external scheduler when the
	// trigger was registered. Nullable; registration is best-effort.
	TaskID *string `json:"task_id,omitempty" gorm:"type:char(36)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

// TableName returns the database table name for Reminder.
func (Reminder) TableName() string { return "reminders" }

// LogStatus is the outcome of a single dispatch attempt.
type LogStatus string

// Execution log statuses.
const (
	LogSuccess LogStatus = "SUCCESS"
	LogFailed  LogStatus = "FAILED"
	LogSkipped LogStatus = "SKIPPED"
)

// ValidLogStatus reports whether s is one of the supported log statuses.
func ValidLogStatus(s LogStatus) bool {
	switch s {
	case LogSuccess, LogFailed, LogSkipped:
		return true
	}
	return false
}

// ReminderLog is one append-only record per dispatch attempt. Rows are never
// mutated after write; deletion happens only via cascade when the owning
// reminder is purged.
type ReminderLog struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ReminderID string    `json:"reminder_id" gorm:"type:char(36);not null;index:idx_reminder_logs,priority:1"`
	ExecutedAt time.Time `json:"executed_at" gorm:"not null;index:idx_reminder_logs,priority:2"`

	Status       LogStatus `json:"status" gorm:"type:varchar(10);not null;check:status IN ('SUCCESS','FAILED','SKIPPED')"`
	ErrorMessage *string   `json:"error_message,omitempty" gorm:"type:text"`

	// Delivery detail for diagnostics.
	EmailSent      bool    `json:"email_sent" gorm:"not null;default:false"`
	EmailRecipient *string `json:"email_recipient,omitempty" gorm:"type:varchar(255)"`
	DurationMS     int64   `json:"duration_ms" gorm:"not null;default:0"`

	// Reminder is the parent record. Logs are cascade-deleted when their
	// reminder is removed.
	Reminder Reminder `json:"-" gorm:"foreignKey:ReminderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReminderLog.
func (ReminderLog) TableName() string { return "reminder_logs" }
