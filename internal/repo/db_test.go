package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/remindkit/go-reminder-backend/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "reminders.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	// Be tolerant across platforms/drivers:
	// - Windows: *os.PathError ("CreateFile … cannot find the file specified")
	// - SQLite:  "unable to open database file" / "out of memory (14)"
	// - Unix:    "no such file or directory"
	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_MigratesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, table := range []string{"reminders", "reminder_logs"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %q missing after migration", table)
		}
	}

	// WAL journal mode sticks to the database file.
	var mode string
	if err := db.Raw("PRAGMA journal_mode;").Scan(&mode).Error; err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}

	// Schema accepts a minimal valid row.
	r := &domain.Reminder{
		ID: "00000000-0000-0000-0000-000000000001", UserID: "u1",
		Type: domain.TypeCustom, Title: "smoke",
		Status: domain.StatusActive, Frequency: domain.FreqNone,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("insert after migration: %v", err)
	}
}
