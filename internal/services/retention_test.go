package services

import (
	"context"
	"testing"
	"time"

	"github.com/remindkit/go-reminder-backend/internal/domain"
)

// seedTerminal creates a reminder, forces it into the given terminal status
// and backdates its updated_at. UpdateColumn skips GORM's auto-touch so the
// backdated timestamp sticks.
func seedTerminal(t *testing.T, svc *ReminderService, title string, status domain.ReminderStatus, updatedAt time.Time) string {
	t.Helper()
	at := svc.Clock.Now()
	r, err := svc.Create(context.Background(), "u1", CreateReminderInput{Title: title, RemindAt: &at})
	if err != nil {
		t.Fatalf("seed %s: %v", title, err)
	}
	if err := svc.DB.Model(&domain.Reminder{}).Where("id = ?", r.ID).
		UpdateColumn("status", status).Error; err != nil {
		t.Fatalf("force status: %v", err)
	}
	if err := svc.DB.Model(&domain.Reminder{}).Where("id = ?", r.ID).
		UpdateColumn("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	return r.ID
}

func TestRetentionSweep_DryRunCountsWithoutDeleting(t *testing.T) {
	svc, _, clk := newTestService(t)
	now := clk.Now()

	seedTerminal(t, svc, "old completed", domain.StatusCompleted, now.AddDate(0, 0, -120))
	seedTerminal(t, svc, "old cancelled", domain.StatusCancelled, now.AddDate(0, 0, -200))
	seedTerminal(t, svc, "fresh failed", domain.StatusFailed, now.AddDate(0, 0, -10))

	res, err := svc.RetentionSweep(context.Background(), 0, true)
	if err != nil {
		t.Fatalf("RetentionSweep: %v", err)
	}
	if !res.DryRun || res.OlderThanDays != DefaultRetentionDays {
		t.Fatalf("mode/threshold wrong: %+v", res)
	}
	if res.Candidates != 2 || res.Deleted != 0 {
		t.Fatalf("candidates=%d deleted=%d, want 2/0", res.Candidates, res.Deleted)
	}
	if len(res.Sample) != 2 {
		t.Fatalf("sample size = %d, want 2", len(res.Sample))
	}

	var total int64
	if err := svc.DB.Model(&domain.Reminder{}).Count(&total).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 3 {
		t.Fatalf("dry run deleted rows: %d left", total)
	}
}

func TestRetentionSweep_ConfiguredWindowBeatsConstDefault(t *testing.T) {
	svc, _, clk := newTestService(t)
	svc.RetentionDays = 30
	now := clk.Now()

	seedTerminal(t, svc, "past configured window", domain.StatusCompleted, now.AddDate(0, 0, -45))
	seedTerminal(t, svc, "inside configured window", domain.StatusFailed, now.AddDate(0, 0, -10))

	// No explicit window: the service-level 30-day setting applies, not the
	// 90-day constant.
	res, err := svc.RetentionSweep(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("RetentionSweep: %v", err)
	}
	if res.OlderThanDays != 30 {
		t.Fatalf("window = %d, want 30", res.OlderThanDays)
	}
	if res.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", res.Deleted)
	}

	// An explicit request window still beats the configured one.
	res, err = svc.RetentionSweep(context.Background(), 5, true)
	if err != nil {
		t.Fatalf("RetentionSweep: %v", err)
	}
	if res.OlderThanDays != 5 || res.Candidates != 1 {
		t.Fatalf("explicit window: %+v", res)
	}
}

func TestRetentionSweep_DeletesOldTerminalOnly(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	now := clk.Now()

	oldID := seedTerminal(t, svc, "old failed", domain.StatusFailed, now.AddDate(0, 0, -45))
	seedTerminal(t, svc, "fresh completed", domain.StatusCompleted, now.AddDate(0, 0, -5))

	// An ACTIVE reminder is never a candidate regardless of age.
	at := now.Add(time.Hour)
	active, err := svc.Create(ctx, "u1", CreateReminderInput{Title: "still active", RemindAt: &at})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.DB.Model(&domain.Reminder{}).Where("id = ?", active.ID).
		UpdateColumn("updated_at", now.AddDate(0, 0, -400)).Error; err != nil {
		t.Fatalf("backdate active: %v", err)
	}

	res, err := svc.RetentionSweep(ctx, 30, false)
	if err != nil {
		t.Fatalf("RetentionSweep: %v", err)
	}
	if res.Candidates != 1 || res.Deleted != 1 {
		t.Fatalf("candidates=%d deleted=%d, want 1/1", res.Candidates, res.Deleted)
	}
	if len(res.Sample) != 0 {
		t.Fatalf("real sweep returned a sample: %+v", res.Sample)
	}

	var gone int64
	if err := svc.DB.Model(&domain.Reminder{}).Where("id = ?", oldID).Count(&gone).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if gone != 0 {
		t.Fatalf("old terminal reminder survived the sweep")
	}

	var left int64
	if err := svc.DB.Model(&domain.Reminder{}).Count(&left).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 2 {
		t.Fatalf("remaining = %d, want 2", left)
	}
}
