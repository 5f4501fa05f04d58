// Package services – ReminderService
//
// This file implements the ReminderService, the facade every other subsystem
// goes through to create, query, update and cancel reminders. It validates
// input, resolves the trigger time via the schedule calculator, persists
// records through the repo layer, and registers triggers with the backing
// scheduler. Dispatch itself lives in the dispatch package; this service
// never delivers notifications.
//
// Service-level errors (e.g., ErrReminderNotFound, ErrScheduleUnresolved)
// are returned for predictable cases so handlers can map them to HTTP
// results consistently. Scheduler registration is best-effort: a failure is
// logged and leaves task_id empty, it never rolls back the reminder.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/remindkit/go-reminder-backend/internal/clock"
	"github.com/remindkit/go-reminder-backend/internal/domain"
	"github.com/remindkit/go-reminder-backend/internal/repo"
	"github.com/remindkit/go-reminder-backend/internal/schedule"
)

// DefaultDaysBefore is the lead time applied when a caller supplies a
// target date without one.
const DefaultDaysBefore = 30

// Scheduler is the durable trigger registry consumed by the service. Any
// implementation satisfying schedule/cancel is conformant; the in-tree one
// is the store-polling dispatcher, for which handles are bookkeeping only.
type Scheduler interface {
	// Schedule registers a trigger for reminderID at the given time and
	// returns an opaque handle.
	Schedule(ctx context.Context, reminderID string, at time.Time) (string, error)

	// Cancel unregisters a previously returned handle. Best-effort.
	Cancel(ctx context.Context, handle string) error
}

// ReminderService provides the reminder use-cases. All methods scope data
// access to the owning user.
type ReminderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Clock supplies the current time; injected for deterministic tests.
	Clock clock.Clock
	// Sched registers/unregisters dispatch triggers. May be nil, in which
	// case reminders rely solely on the store-polling dispatcher.
	Sched Scheduler
	// Log receives best-effort failure diagnostics.
	Log zerolog.Logger
	// TitleLocale selects the locale used when casing generated titles.
	// language.Und means English.
	TitleLocale language.Tag
	// RetentionDays is the sweep window applied when a caller passes none.
	// Zero means DefaultRetentionDays.
	RetentionDays int
}

// NewReminderService constructs a ReminderService.
func NewReminderService(db *gorm.DB, clk clock.Clock, sched Scheduler, log zerolog.Logger) *ReminderService {
	return &ReminderService{DB: db, Clock: clk, Sched: sched, Log: log}
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *ReminderService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// CreateReminderInput carries the caller-supplied fields for a new reminder.
// Pointer fields distinguish "absent" from zero values.
type CreateReminderInput struct {
	Type        domain.ReminderType
	Title       string
	Description string
	Metadata    domain.Metadata

	SupermarketID     *string
	RelatedObjectType *string
	RelatedObjectID   *string

	TargetDate *time.Time
	DaysBefore *int
	RemindAt   *time.Time

	IsRecurring bool
	Frequency   domain.Frequency

	SendEmail    *bool
	EmailSubject *string
	EmailBody    *string
}

// Create validates in and persists a new ACTIVE reminder for userID.
//
// Validation:
//   - title must be non-empty after trimming
//   - type must be a supported ReminderType (empty defaults to CUSTOM)
//   - days_before must be >= 0 (absent defaults to 30)
//   - remind_at must be resolvable: given directly, or derived as
//     target_date - days_before days
//   - a recurring reminder must carry a frequency other than NONE; a
//     non-recurring one has its frequency normalized to NONE
//
// A remind_at in the past is allowed: the reminder is created and becomes
// eligible for dispatch on the next scan. On success the trigger is
// registered with the scheduler and the returned handle stored as task_id;
// registration failure is logged, not returned.
func (s *ReminderService) Create(ctx context.Context, userID string, in CreateReminderInput) (*domain.Reminder, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	typ := in.Type
	if typ == "" {
		typ = domain.TypeCustom
	}
	if !domain.ValidType(typ) {
		return nil, ErrInvalidType
	}

	daysBefore := DefaultDaysBefore
	if in.DaysBefore != nil {
		daysBefore = *in.DaysBefore
	}
	if daysBefore < 0 {
		return nil, ErrLeadTimeNegative
	}

	freq := in.Frequency
	if freq == "" {
		freq = domain.FreqNone
	}
	if !domain.ValidFrequency(freq) {
		return nil, ErrInvalidFrequency
	}
	if in.IsRecurring && freq == domain.FreqNone {
		return nil, ErrFrequencyRequired
	}
	if !in.IsRecurring {
		freq = domain.FreqNone
	}

	remindAt, err := s.resolveRemindAt(in.RemindAt, in.TargetDate, daysBefore)
	if err != nil {
		return nil, err
	}

	sendEmail := true
	if in.SendEmail != nil {
		sendEmail = *in.SendEmail
	}

	r := &domain.Reminder{
		UserID:            userID,
		SupermarketID:     in.SupermarketID,
		Type:              typ,
		Title:             title,
		Description:       in.Description,
		Metadata:          in.Metadata,
		RelatedObjectType: in.RelatedObjectType,
		RelatedObjectID:   in.RelatedObjectID,
		TargetDate:        in.TargetDate,
		DaysBefore:        daysBefore,
		RemindAt:          remindAt,
		IsRecurring:       in.IsRecurring,
		Frequency:         freq,
		SendEmail:         sendEmail,
		EmailSubject:      in.EmailSubject,
		EmailBody:         in.EmailBody,
		Status:            domain.StatusActive,
	}
	if err := repo.CreateReminder(ctx, s.DB, r); err != nil {
		return nil, err
	}

	s.register(ctx, r)
	return r, nil
}

// resolveRemindAt picks the direct trigger time or derives it from the
// target date, and normalizes it to UTC.
func (s *ReminderService) resolveRemindAt(direct, target *time.Time, daysBefore int) (time.Time, error) {
	if direct != nil {
		return direct.UTC(), nil
	}
	at, err := schedule.ComputeRemindAt(target, daysBefore)
	if err != nil {
		return time.Time{}, ErrScheduleUnresolved
	}
	return at.UTC(), nil
}

// register stores a scheduler handle for r. Best-effort: failures are
// logged and the reminder keeps a nil task_id.
func (s *ReminderService) register(ctx context.Context, r *domain.Reminder) {
	if s.Sched == nil {
		return
	}
	handle, err := s.Sched.Schedule(ctx, r.ID, r.RemindAt)
	if err != nil {
		s.Log.Warn().Err(err).Str("reminder_id", r.ID).Msg("scheduler registration failed")
		return
	}
	if err := repo.SetTaskID(ctx, s.DB, r.ID, &handle); err != nil {
		s.Log.Warn().Err(err).Str("reminder_id", r.ID).Msg("storing task handle failed")
		return
	}
	r.TaskID = &handle
}

// unregister drops the scheduler handle of r, if any. Best-effort.
func (s *ReminderService) unregister(ctx context.Context, r *domain.Reminder) {
	if s.Sched == nil || r.TaskID == nil {
		return
	}
	if err := s.Sched.Cancel(ctx, *r.TaskID); err != nil {
		s.Log.Warn().Err(err).Str("reminder_id", r.ID).Str("task_id", *r.TaskID).Msg("scheduler unregistration failed")
	}
}

// ExpiryReminderInput is one product spec for expiry reminder creation.
type ExpiryReminderInput struct {
	ProductName string
	ExpiryDate  time.Time

	DaysBefore    *int
	ProductID     *string
	SupermarketID *string
	CustomMessage *string
}

// CreateExpiryReminder creates an EXPIRY reminder for a product. Title and
// description are generated from the product name and expiry date; the
// trigger time is derived via the schedule calculator. A derived trigger
// already in the past is accepted — the reminder is created anyway and
// becomes due on the next scan, so history is preserved.
func (s *ReminderService) CreateExpiryReminder(ctx context.Context, userID string, in ExpiryReminderInput) (*domain.Reminder, error) {
	name := strings.TrimSpace(in.ProductName)
	if name == "" {
		return nil, ErrProductNameRequired
	}
	// Word-initial casing only; NoLower keeps units and acronyms ("1L",
	// "UHT") intact.
	name = cases.Title(s.TitleLocaleOrDefault(), cases.NoLower).String(name)

	description := fmt.Sprintf("The product %q will expire on %s", name, in.ExpiryDate.Format(time.DateOnly))
	if in.CustomMessage != nil && strings.TrimSpace(*in.CustomMessage) != "" {
		description = *in.CustomMessage
	}

	target := in.ExpiryDate
	subject := "Product Expiry Alert: " + name
	objType := "product"

	return s.Create(ctx, userID, CreateReminderInput{
		Type:        domain.TypeExpiry,
		Title:       subject,
		Description: description,
		Metadata: domain.Metadata{
			"product_name": name,
			"expiry_date":  in.ExpiryDate.Format(time.RFC3339),
		},
		SupermarketID:     in.SupermarketID,
		RelatedObjectType: &objType,
		RelatedObjectID:   in.ProductID,
		TargetDate:        &target,
		DaysBefore:        in.DaysBefore,
		EmailSubject:      &subject,
	})
}

// BulkError reports one failed spec of a bulk operation, referencing the
// spec's position in the request.
type BulkError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BulkCreateExpiryReminders creates expiry reminders for multiple product
// specs with partial-failure semantics: each spec is validated and created
// independently, an invalid spec never aborts the batch, and the result
// separates persisted reminders from per-item errors.
func (s *ReminderService) BulkCreateExpiryReminders(ctx context.Context, userID string, specs []ExpiryReminderInput) ([]domain.Reminder, []BulkError) {
	created := make([]domain.Reminder, 0, len(specs))
	var failures []BulkError

	for i, spec := range specs {
		r, err := s.CreateExpiryReminder(ctx, userID, spec)
		if err != nil {
			failures = append(failures, BulkError{Index: i, Message: err.Error()})
			continue
		}
		created = append(created, *r)
	}
	return created, failures
}

// Get fetches a reminder owned by userID.
func (s *ReminderService) Get(ctx context.Context, userID, id string) (*domain.Reminder, error) {
	r, err := repo.GetReminder(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	return r, nil
}

// ListFilter narrows List. Nil pointers mean "no constraint".
type ListFilter struct {
	Status *domain.ReminderStatus
	Type   *domain.ReminderType
	From   *time.Time
	To     *time.Time

	// UpcomingOnly keeps ACTIVE reminders that are not yet due.
	UpcomingOnly bool

	Page     int
	PageSize int
}

// List returns a page of userID's reminders matching f, ordered by trigger
// time ascending, plus the total match count. Invalid page/page_size fall
// back to 1/20.
func (s *ReminderService) List(ctx context.Context, userID string, f ListFilter) ([]domain.Reminder, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}

	rf := repo.ReminderFilter{
		Status:       f.Status,
		Type:         f.Type,
		From:         f.From,
		To:           f.To,
		UpcomingOnly: f.UpcomingOnly,
		Now:          s.Clock.Now(),
		Offset:       (f.Page - 1) * f.PageSize,
		Limit:        f.PageSize,
	}

	total, err := repo.CountReminders(ctx, s.DB, userID, rf)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Reminder{}, 0, nil
	}
	items, err := repo.ListReminders(ctx, s.DB, userID, rf)
	return items, total, err
}

// Upcoming returns ACTIVE reminders due within the next days days (default
// 7 when days <= 0), soonest first.
func (s *ReminderService) Upcoming(ctx context.Context, userID string, days int) ([]domain.Reminder, error) {
	if days <= 0 {
		days = 7
	}
	now := s.Clock.Now()
	end := now.AddDate(0, 0, days)
	active := domain.StatusActive
	return repo.ListReminders(ctx, s.DB, userID, repo.ReminderFilter{
		Status: &active,
		From:   &now,
		To:     &end,
	})
}

// UpdateReminderInput carries a partial update. Nil fields are untouched.
// ClearTargetDate removes the target date entirely (a nil TargetDate alone
// means "leave as is").
type UpdateReminderInput struct {
	Title       *string
	Description *string
	Metadata    domain.Metadata

	TargetDate      *time.Time
	ClearTargetDate bool
	DaysBefore      *int
	RemindAt        *time.Time

	SendEmail    *bool
	EmailSubject *string
	EmailBody    *string
}

// Update applies a partial update to a reminder owned by userID.
//
// Content fields (title, description, metadata, email overrides) may be
// edited in any state. Schedule fields (target_date, days_before,
// remind_at) require the reminder to still be ACTIVE; editing them on a
// terminal reminder fails with ErrInvalidState. When schedule inputs change
// the trigger time is recomputed, and if it moved the old scheduler handle
// is dropped and a new one registered (both best-effort).
func (s *ReminderService) Update(ctx context.Context, userID, id string, in UpdateReminderInput) (*domain.Reminder, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		fields["title"] = title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Metadata != nil {
		fields["metadata"] = in.Metadata
	}
	if in.SendEmail != nil {
		fields["send_email"] = *in.SendEmail
	}
	if in.EmailSubject != nil {
		fields["email_subject"] = *in.EmailSubject
	}
	if in.EmailBody != nil {
		fields["email_body"] = *in.EmailBody
	}

	scheduleTouched := in.TargetDate != nil || in.ClearTargetDate || in.DaysBefore != nil || in.RemindAt != nil
	newRemindAt := current.RemindAt

	if scheduleTouched {
		if current.Status != domain.StatusActive {
			return nil, ErrInvalidState
		}

		target := current.TargetDate
		if in.ClearTargetDate {
			target = nil
			fields["target_date"] = nil
		} else if in.TargetDate != nil {
			t := in.TargetDate.UTC()
			target = &t
			fields["target_date"] = t
		}

		daysBefore := current.DaysBefore
		if in.DaysBefore != nil {
			daysBefore = *in.DaysBefore
			if daysBefore < 0 {
				return nil, ErrLeadTimeNegative
			}
			fields["days_before"] = daysBefore
		}

		switch {
		case in.RemindAt != nil:
			newRemindAt = in.RemindAt.UTC()
		case target != nil:
			at, err := schedule.ComputeRemindAt(target, daysBefore)
			if err != nil {
				return nil, ErrScheduleUnresolved
			}
			newRemindAt = at.UTC()
		default:
			return nil, ErrScheduleUnresolved
		}
		fields["remind_at"] = newRemindAt
	}

	if len(fields) == 0 {
		return current, nil
	}

	if err := repo.UpdateReminderFields(ctx, s.DB, id, userID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}

	updated, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// Reschedule when the trigger moved and the reminder can still fire.
	if scheduleTouched && !newRemindAt.Equal(current.RemindAt) && updated.Status == domain.StatusActive {
		s.unregister(ctx, current)
		s.register(ctx, updated)
	}
	return updated, nil
}

// Cancel transitions an ACTIVE reminder owned by userID to CANCELLED and
// best-effort unregisters its scheduled trigger.
//
// Cancelling an already-CANCELLED reminder is an idempotent no-op.
// Cancelling a COMPLETED or FAILED reminder fails with ErrInvalidState and
// leaves the record unchanged. The transition is guarded at the store, so a
// cancel racing a concurrent dispatch resolves to whichever write lands
// first; both outcomes are terminal-or-advancing and acceptable.
func (s *ReminderService) Cancel(ctx context.Context, userID, id string) (*domain.Reminder, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	switch r.Status {
	case domain.StatusCancelled:
		return r, nil
	case domain.StatusCompleted, domain.StatusFailed:
		return nil, ErrInvalidState
	}

	ok, err := repo.CancelReminder(ctx, s.DB, id, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with a dispatch or another cancel; report the state
		// the reminder actually landed in.
		r2, err := s.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if r2.Status == domain.StatusCancelled {
			return r2, nil
		}
		return nil, ErrInvalidState
	}

	s.unregister(ctx, r)
	return s.Get(ctx, userID, id)
}

// Delete permanently removes a reminder owned by userID together with its
// execution logs, and best-effort unregisters its trigger.
func (s *ReminderService) Delete(ctx context.Context, userID, id string) error {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := repo.DeleteReminder(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReminderNotFound
		}
		return err
	}
	s.unregister(ctx, r)
	return nil
}

// Stats returns the aggregate reminder counts for userID.
func (s *ReminderService) Stats(ctx context.Context, userID string) (*repo.ReminderStats, error) {
	return repo.GetReminderStats(ctx, s.DB, userID, s.Clock.Now())
}

// LogFilter narrows Logs.
type LogFilter struct {
	ReminderID *string
	Status     *domain.LogStatus
	Page       int
	PageSize   int
}

// Logs returns a page of execution log entries for userID's reminders,
// newest first, plus the total match count.
func (s *ReminderService) Logs(ctx context.Context, userID string, f LogFilter) ([]domain.ReminderLog, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	lf := repo.LogFilter{
		ReminderID: f.ReminderID,
		Status:     f.Status,
		Offset:     (f.Page - 1) * f.PageSize,
		Limit:      f.PageSize,
	}
	total, err := repo.CountLogs(ctx, s.DB, userID, lf)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ReminderLog{}, 0, nil
	}
	items, err := repo.ListLogs(ctx, s.DB, userID, lf)
	return items, total, err
}
