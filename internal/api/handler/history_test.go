package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iconidentify/streamcache/internal/domain"
)

func TestHistory_ReturnsRecords(t *testing.T) {
	env := newTestEnv(t)
	env.history.records = []domain.FetchRecord{
		{
			ID:         "fetch_11111111",
			Identifier: "abc123XYZ_q",
			Kind:       domain.KindAudio,
			Status:     domain.FetchCompleted,
			CacheHit:   false,
			DurationMS: 1200,
			CreatedAt:  time.Now(),
		},
		{
			ID:         "fetch_22222222",
			Identifier: "def456UVW_r",
			Kind:       domain.KindVideo,
			Status:     domain.FetchFailed,
			Error:      "yt-dlp exited 1",
			CreatedAt:  time.Now(),
		},
	}

	h := NewHistoryHandler(env.svc, silentLogger())
	w := httptest.NewRecorder()

	h.History(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Records []FetchRecordResponse `json:"records"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d", resp.Count)
	}
	if resp.Records[0].Identifier != "abc123XYZ_q" || resp.Records[0].Status != "completed" {
		t.Errorf("record[0] = %+v", resp.Records[0])
	}
	if resp.Records[1].Error != "yt-dlp exited 1" {
		t.Errorf("record[1].Error = %q", resp.Records[1].Error)
	}
}

func TestHistory_LimitParam(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.history.records = append(env.history.records, domain.FetchRecord{
			ID:     "fetch_0000000" + string(rune('0'+i)),
			Status: domain.FetchCompleted,
		})
	}

	h := NewHistoryHandler(env.svc, silentLogger())
	w := httptest.NewRecorder()

	h.History(w, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=3", nil))

	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
}

func TestHistory_InvalidLimit(t *testing.T) {
	env := newTestEnv(t)
	h := NewHistoryHandler(env.svc, silentLogger())

	for _, limit := range []string{"abc", "0", "-5"} {
		w := httptest.NewRecorder()
		h.History(w, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit="+limit, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want 400", limit, w.Code)
		}
	}
}

func TestHistory_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.history.listErr = errors.New("db locked")
	h := NewHistoryHandler(env.svc, silentLogger())

	w := httptest.NewRecorder()
	h.History(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestHistory_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	h := NewHistoryHandler(env.svc, silentLogger())

	w := httptest.NewRecorder()
	h.History(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(resp["records"]) != "[]" {
		t.Errorf("records = %s, want []", resp["records"])
	}
}
