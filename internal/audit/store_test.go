package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "uplink.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := NewEntry("Zone1", true)
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// Strictly later timestamp keeps the DESC ordering deterministic.
	second := Entry{
		Command:    "Zone9",
		Accepted:   false,
		ReceivedAt: first.ReceivedAt.Add(time.Second),
	}
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(entries))
	}
	if entries[0].Command != "Zone9" {
		t.Errorf("newest entry = %q, want Zone9 first", entries[0].Command)
	}
	if entries[0].Accepted {
		t.Error("Zone9 entry Accepted = true, want false")
	}
	if !entries[1].Accepted {
		t.Error("Zone1 entry Accepted = false, want true")
	}
	if entries[1].ID == "" {
		t.Error("entry ID not assigned")
	}
}

func TestRecord_FillsDefaults(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Entry{Command: "Zone1", Accepted: true}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("Record() did not assign an ID")
	}
	if entries[0].ReceivedAt.IsZero() {
		t.Error("Record() did not assign a timestamp")
	}
}

func TestRecent_LimitClamped(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		entry := NewEntry("Zone1", true)
		entry.ReceivedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Recent(3) returned %d entries, want 3", len(entries))
	}

	// Zero limit falls back to the default.
	entries, err = store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) error = %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("Recent(0) returned %d entries, want all 5", len(entries))
	}
}

func TestHealthCheck(t *testing.T) {
	store := testStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "uplink.db")

	store, err := Open(Config{Path: path, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store.Close()
}
