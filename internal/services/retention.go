// Package services – retention sweep
//
// Terminal reminders accumulate forever unless something removes them. The
// sweep permanently deletes COMPLETED/CANCELLED/FAILED reminders (and their
// execution logs) whose last update is older than a configurable age. A
// dry-run mode reports what would be removed without touching the store.
package services

import (
	"context"

	"github.com/remindkit/go-reminder-backend/internal/domain"
	"github.com/remindkit/go-reminder-backend/internal/repo"
)

// DefaultRetentionDays is the age threshold applied when a sweep is invoked
// without one.
const DefaultRetentionDays = 90

// retentionSampleSize caps how many candidate rows a dry run returns.
const retentionSampleSize = 10

// RetentionResult reports the outcome of one sweep.
type RetentionResult struct {
	// DryRun echoes the requested mode.
	DryRun bool `json:"dry_run"`
	// OlderThanDays echoes the applied age threshold.
	OlderThanDays int `json:"older_than_days"`
	// Candidates is the number of reminders matching the threshold.
	Candidates int64 `json:"candidates"`
	// Deleted is the number actually removed (0 on a dry run).
	Deleted int64 `json:"deleted"`
	// Sample holds up to ten candidates for inspection on a dry run.
	Sample []domain.Reminder `json:"sample,omitempty"`
}

// RetentionSweep removes terminal reminders last touched more than
// olderThanDays days ago. When <= 0 the service's configured RetentionDays
// applies, then DefaultRetentionDays. With dryRun set, it only counts and
// samples the candidates; the store is not modified.
func (s *ReminderService) RetentionSweep(ctx context.Context, olderThanDays int, dryRun bool) (*RetentionResult, error) {
	if olderThanDays <= 0 {
		olderThanDays = s.RetentionDays
	}
	if olderThanDays <= 0 {
		olderThanDays = DefaultRetentionDays
	}
	cutoff := s.Clock.Now().AddDate(0, 0, -olderThanDays)

	res := &RetentionResult{DryRun: dryRun, OlderThanDays: olderThanDays}

	count, err := repo.CountRetentionCandidates(ctx, s.DB, cutoff)
	if err != nil {
		return nil, err
	}
	res.Candidates = count

	if dryRun {
		if count > 0 {
			sample, err := repo.ListRetentionCandidates(ctx, s.DB, cutoff, retentionSampleSize)
			if err != nil {
				return nil, err
			}
			res.Sample = sample
		}
		return res, nil
	}

	deleted, err := repo.PurgeTerminalBefore(ctx, s.DB, cutoff)
	if err != nil {
		return nil, err
	}
	res.Deleted = deleted

	s.Log.Info().
		Int("older_than_days", olderThanDays).
		Int64("deleted", deleted).
		Msg("retention sweep completed")
	return res, nil
}
