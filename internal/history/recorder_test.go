package history

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"chatwire/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.CallRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRecorderLifecycle(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := time.Unix(1700000000, 0)
	r.CallStarted("alice_bob_1.1", "alice", "bob", "video", start)

	var rec models.CallRecord
	if err := db.First(&rec, "call_id = ?", "alice_bob_1.1").Error; err != nil {
		t.Fatalf("load started record: %v", err)
	}
	if rec.CallerID != "alice" || rec.CalleeID != "bob" || rec.Type != "video" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.EndedAt != nil {
		t.Fatalf("fresh record already finalized")
	}

	r.CallEnded("alice_bob_1.1", start.Add(42*time.Second))

	if err := db.First(&rec, "call_id = ?", "alice_bob_1.1").Error; err != nil {
		t.Fatalf("load finalized record: %v", err)
	}
	if rec.EndedAt == nil {
		t.Fatalf("record not finalized")
	}
	if rec.Duration != 42 {
		t.Fatalf("duration = %v, want 42", rec.Duration)
	}
}

func TestRecorderEndIsIdempotent(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := time.Unix(1700000000, 0)
	r.CallStarted("alice_bob_1.1", "alice", "bob", "voice", start)
	r.CallEnded("alice_bob_1.1", start.Add(10*time.Second))
	// A peer hanging up after the disconnect teardown already finalized.
	r.CallEnded("alice_bob_1.1", start.Add(99*time.Second))

	var rec models.CallRecord
	if err := db.First(&rec, "call_id = ?", "alice_bob_1.1").Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Duration != 10 {
		t.Fatalf("duration = %v after duplicate end, want 10", rec.Duration)
	}

	var count int64
	db.Model(&models.CallRecord{}).Count(&count)
	if count != 1 {
		t.Fatalf("%d records, want 1", count)
	}
}

func TestRecorderEndUnknownCall(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must be a silent no-op.
	r.CallEnded("never_started_1.1", time.Unix(1700000000, 0))

	var count int64
	db.Model(&models.CallRecord{}).Count(&count)
	if count != 0 {
		t.Fatalf("%d records created by ending an unknown call", count)
	}
}

func TestRecorderClampsNegativeDuration(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := time.Unix(1700000000, 0)
	r.CallStarted("alice_bob_1.1", "alice", "bob", "voice", start)
	r.CallEnded("alice_bob_1.1", start.Add(-5*time.Second))

	var rec models.CallRecord
	if err := db.First(&rec, "call_id = ?", "alice_bob_1.1").Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Duration != 0 {
		t.Fatalf("duration = %v, want 0 (clamped)", rec.Duration)
	}
}
