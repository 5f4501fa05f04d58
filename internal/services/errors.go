// Package services defines the business logic of the reminder subsystem.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Validation errors (malformed or incomplete input).
var (
	// ErrTitleRequired is returned when a reminder is created or updated
	// without a non-empty title.
	ErrTitleRequired = errors.New("title is required")

	// ErrProductNameRequired is returned when an expiry reminder spec has no
	// product name to build the title from.
	ErrProductNameRequired = errors.New("product name is required")

	// ErrInvalidType is returned when the reminder type is outside the
	// supported set.
	ErrInvalidType = errors.New("invalid reminder type")

	// ErrInvalidFrequency is returned when the recurrence frequency is
	// outside the supported set.
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")

	// ErrFrequencyRequired is returned when a reminder is marked recurring
	// without a recurrence frequency.
	ErrFrequencyRequired = errors.New("recurring reminder requires a frequency")

	// ErrLeadTimeNegative is returned when days_before is negative.
	ErrLeadTimeNegative = errors.New("days_before must not be negative")

	// ErrScheduleUnresolved is returned when neither remind_at nor a
	// target_date to derive it from was supplied.
	ErrScheduleUnresolved = errors.New("remind_at is required, directly or via target_date")
)

// State errors.
var (
	// ErrReminderNotFound indicates that the requested reminder does not
	// exist or is not accessible to the current user.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrInvalidState is returned for an illegal lifecycle transition, such
	// as cancelling a COMPLETED reminder.
	ErrInvalidState = errors.New("reminder is in a terminal state")
)
