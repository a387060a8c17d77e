package repositories

import (
	"testing"
	"time"
)

func TestUsageRepositoryCountSince(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewUsageRepository(db)
	now := time.Now().Unix()

	seed := func(id string, createdAt int64) {
		if _, err := db.Exec(`INSERT INTO usage_events (id, api_key_id, created_at) VALUES (?, ?, ?)`, id, "key_1", createdAt); err != nil {
			t.Fatalf("Failed to seed usage: %v", err)
		}
	}

	seed("use_1", now-10)   // inside window
	seed("use_2", now-3599) // just inside
	seed("use_3", now-3601) // just outside
	seed("use_4", now-7200) // far outside

	count, err := repo.CountSince("key_1", now-3600)
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events in window, got %d", count)
	}

	count, err = repo.CountSince("key_other", now-3600)
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 events for a different key, got %d", count)
	}
}

func TestUsageRepositoryRecordAndPrune(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewUsageRepository(db)
	now := time.Now().Unix()

	if err := repo.Record("key_1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO usage_events (id, api_key_id, created_at) VALUES (?, ?, ?)`, "use_old", "key_1", now-100000); err != nil {
		t.Fatalf("Failed to seed usage: %v", err)
	}

	pruned, err := repo.PruneBefore(now - 86400)
	if err != nil {
		t.Fatalf("PruneBefore failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned row, got %d", pruned)
	}

	count, err := repo.CountSince("key_1", 0)
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected the fresh event to survive, got %d", count)
	}
}
