package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"

	apiContext "stitch/internal/api/context"
	"stitch/internal/engine/admission"
	"stitch/internal/platform/models"
	"stitch/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// Each pooled connection would get its own empty in-memory database.
	db.SetMaxOpenConns(1)

	query := `
	CREATE TABLE api_keys (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		key_hash TEXT UNIQUE NOT NULL,
		key_prefix TEXT NOT NULL,
		scopes TEXT NOT NULL,
		rate_limit INTEGER NOT NULL,
		last_used_at INTEGER,
		created_at INTEGER NOT NULL,
		revoked_at INTEGER
	);
	CREATE TABLE usage_events (
		id TEXT PRIMARY KEY,
		api_key_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return db
}

func issueKey(t *testing.T, db *sql.DB, rawKey string, rateLimit int) {
	key := &models.APIKey{
		TenantID:  "tnt_1",
		Name:      "test",
		KeyHash:   admission.HashKey(rawKey),
		KeyPrefix: "stc_live_...",
		Scopes:    []string{"events:publish"},
		RateLimit: rateLimit,
	}
	if err := repositories.NewAPIKeyRepository(db).Create(key); err != nil {
		t.Fatalf("Failed to create key: %v", err)
	}
}

func newMiddleware(db *sql.DB) *APIKeyMiddleware {
	gateway := admission.NewGateway(repositories.NewAPIKeyRepository(db), repositories.NewUsageRepository(db), 3600)
	return NewAPIKeyMiddleware(gateway)
}

func TestAPIKeyMiddleware(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	issueKey(t, db, "stc_live_good", 1)
	middleware := newMiddleware(db)

	handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
		decision := r.Context().Value(apiContext.Admission).(*admission.Decision)
		if decision.TenantID != "tnt_1" {
			t.Errorf("Expected tenant tnt_1 in context, got %s", decision.TenantID)
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rr.Code)
		}

		var body map[string]interface{}
		json.Unmarshal(rr.Body.Bytes(), &body)
		if body["valid"] != false {
			t.Errorf("Expected valid=false, got %v", body["valid"])
		}
	})

	t.Run("unknown key has the same shape", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-API-Key", "stc_live_unknown")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rr.Code)
		}

		missing := httptest.NewRequest("GET", "/", nil)
		mrr := httptest.NewRecorder()
		handler.ServeHTTP(mrr, missing)

		if rr.Body.String() != mrr.Body.String() {
			t.Errorf("Unknown-key and missing-key responses must be indistinguishable: %q vs %q", rr.Body.String(), mrr.Body.String())
		}
	})

	t.Run("admitted via header then rate limited", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-API-Key", "stc_live_good")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		// rate_limit is 1, so the second request trips the window
		req = httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer stc_live_good")
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("Expected 429, got %d", rr.Code)
		}
		if rr.Header().Get("Retry-After") != "3600" {
			t.Errorf("Expected Retry-After 3600, got %q", rr.Header().Get("Retry-After"))
		}

		var body struct {
			Valid        bool   `json:"valid"`
			Error        string `json:"error"`
			RateLimit    int    `json:"rate_limit"`
			CurrentUsage int    `json:"current_usage"`
			RetryAfter   int    `json:"retry_after"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("Invalid response body: %v", err)
		}
		if body.Valid || body.RateLimit != 1 || body.CurrentUsage != 1 || body.RetryAfter != 3600 {
			t.Errorf("Unexpected rate-limit body: %+v", body)
		}
	})
}

func TestAPIKeyMiddlewareFailsClosed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM api_keys WHERE key_hash = ?").
		WillReturnError(errors.New("db gone"))

	middleware := newMiddleware(db)
	handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run when the store is down")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", "stc_live_good")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on store failure, got %d", rr.Code)
	}
}
