package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wagerboard/internal/board"
	"wagerboard/internal/observability"
	"wagerboard/internal/server"
	"wagerboard/internal/store"
)

func newTestServer(t *testing.T) (http.Handler, *store.MemoryStore, *store.Records) {
	t.Helper()
	mem := store.NewMemoryStore()
	records := store.NewRecords(mem)
	health := observability.NewHealthChecker()
	health.SetReady(true)
	srv := server.New(":0", records, health, nil, zerolog.Nop())
	return srv.Handler(), mem, records
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedCurrent(t *testing.T, records *store.Records) board.Snapshot {
	t.Helper()
	raw := []byte(`[{"username":"alice","wager":123456},{"username":"bob","wager":99}]`)
	var recs []board.WagerRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		t.Fatalf("unmarshal records: %v", err)
	}
	end := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	snap := board.Build(end, recs)
	if err := records.SetCurrent(context.Background(), snap); err != nil {
		t.Fatalf("seed current: %v", err)
	}
	return snap
}

func TestLeaderboard_NotFound(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := get(t, h, "/leaderboard")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Leaderboard not found" {
		t.Errorf("error message: got %q", body["error"])
	}
}

func TestLeaderboard_ServesCurrentSnapshot(t *testing.T) {
	h, _, records := newTestServer(t)
	seedCurrent(t, records)

	rec := get(t, h, "/leaderboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var body struct {
		CountdownEndTime int64             `json:"countdownEndTime"`
		SummarizedBets   []json.RawMessage `json:"summarizedBets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.CountdownEndTime != 1741392000000 {
		t.Errorf("countdownEndTime: got %d", body.CountdownEndTime)
	}
	if len(body.SummarizedBets) != 2 {
		t.Fatalf("entries: got %d, want 2", len(body.SummarizedBets))
	}

	var top struct {
		Username string `json:"username"`
		Wager    string `json:"wager"`
	}
	if err := json.Unmarshal(body.SummarizedBets[0], &top); err != nil {
		t.Fatalf("decode top entry: %v", err)
	}
	if top.Username != "alice" || top.Wager != "1234.56" {
		t.Errorf("top entry: got %+v", top)
	}
}

func TestLeaderboard_StorageFailureIs500(t *testing.T) {
	h, mem, records := newTestServer(t)
	seedCurrent(t, records)
	mem.SetError(errors.New("disk on fire"))

	rec := get(t, h, "/leaderboard")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Failed to read leaderboard" {
		t.Errorf("error message: got %q", body["error"])
	}
}

func TestPreviousLeaderboards_NotFound(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := get(t, h, "/previous-leaderboards")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "No archived leaderboards found" {
		t.Errorf("error message: got %q", body["error"])
	}
}

func TestPreviousLeaderboards_ServesOneElementArray(t *testing.T) {
	h, _, records := newTestServer(t)
	snap := seedCurrent(t, records)
	if err := records.SetArchived(context.Background(), snap); err != nil {
		t.Fatalf("seed archive: %v", err)
	}

	rec := get(t, h, "/previous-leaderboards")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var body []struct {
		CountdownEndTime int64             `json:"countdownEndTime"`
		SummarizedBets   []json.RawMessage `json:"summarizedBets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("array length: got %d, want 1", len(body))
	}
	if body[0].CountdownEndTime != 1741392000000 || len(body[0].SummarizedBets) != 2 {
		t.Errorf("archived snapshot: got %+v", body[0])
	}
}

func TestHealthEndpoints(t *testing.T) {
	h, _, _ := newTestServer(t)

	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz: got %d, want 200", rec.Code)
	}
	if rec := get(t, h, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz: got %d, want 200", rec.Code)
	}
}

func TestReadyz_BeforeStartupIs503(t *testing.T) {
	mem := store.NewMemoryStore()
	health := observability.NewHealthChecker()
	srv := server.New(":0", store.NewRecords(mem), health, nil, zerolog.Nop())
	h := srv.Handler()

	if rec := get(t, h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz: got %d, want 503", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/leaderboard", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}
