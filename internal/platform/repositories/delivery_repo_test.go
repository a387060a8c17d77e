package repositories

import (
	"testing"
	"time"

	"stitch/internal/platform/models"
)

func TestDeliveryRepositoryRecordAndList(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewDeliveryRepository(db)

	for i := 1; i <= 3; i++ {
		status := models.DeliveryStatusFailed
		if i == 3 {
			status = models.DeliveryStatusDelivered
		}
		attempt := &models.DeliveryAttempt{
			EndpointID:   "wh_1",
			TenantID:     "tnt_1",
			Event:        "newsletter.sent",
			Payload:      `{"event":"newsletter.sent"}`,
			Status:       status,
			Attempt:      i,
			ResponseCode: 200,
		}
		if err := repo.Record(attempt); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if attempt.ID == "" {
			t.Fatal("Expected generated attempt id")
		}
	}

	attempts, err := repo.ListByEndpoint("tnt_1", "wh_1", 2)
	if err != nil {
		t.Fatalf("ListByEndpoint failed: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("Expected limit of 2 rows, got %d", len(attempts))
	}
	if attempts[0].Attempt != 3 {
		t.Errorf("Expected newest attempt first, got attempt %d", attempts[0].Attempt)
	}

	if cross, _ := repo.ListByEndpoint("tnt_2", "wh_1", 0); len(cross) != 0 {
		t.Error("Attempts must not be visible to another tenant")
	}
}

func TestDeliveryRepositoryPrune(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewDeliveryRepository(db)
	now := time.Now().Unix()

	old := &models.DeliveryAttempt{
		EndpointID: "wh_1", TenantID: "tnt_1", Event: "newsletter.sent",
		Payload: "{}", Status: models.DeliveryStatusFailed, Attempt: 1,
		CreatedAt: now - 100000,
	}
	fresh := &models.DeliveryAttempt{
		EndpointID: "wh_1", TenantID: "tnt_1", Event: "newsletter.sent",
		Payload: "{}", Status: models.DeliveryStatusDelivered, Attempt: 2,
	}
	if err := repo.Record(old); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := repo.Record(fresh); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	pruned, err := repo.PruneBefore(now - 86400)
	if err != nil {
		t.Fatalf("PruneBefore failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned row, got %d", pruned)
	}

	remaining, _ := repo.ListByEndpoint("tnt_1", "wh_1", 0)
	if len(remaining) != 1 || remaining[0].Attempt != 2 {
		t.Errorf("Expected only the fresh attempt to survive, got %+v", remaining)
	}
}
