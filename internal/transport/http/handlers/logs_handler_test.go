package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/enums"
	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
	auditsvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/audit"
)

type fakeLogStore struct {
	gotFilter pgrepo.ActionFilter
	out       []model.ModerationAction
}

func (f *fakeLogStore) ListByBot(_ context.Context, _ string, filter pgrepo.ActionFilter) ([]model.ModerationAction, error) {
	f.gotFilter = filter
	return f.out, nil
}

func logsRouter(store *fakeLogStore) *chi.Mux {
	h := NewLogsHandler(auditsvc.NewService(store, nil), nil)
	r := chi.NewRouter()
	r.Get("/api/bots/{botID}/logs", h.Handle)
	return r
}

func TestLogsHandlerReturnsEntries(t *testing.T) {
	store := &fakeLogStore{out: []model.ModerationAction{{
		ID:           "a1",
		BotID:        "bot1",
		ChatID:       -100,
		UserID:       42,
		MessageID:    7,
		ActionType:   enums.ActionTypeWarning,
		RuleViolated: "no_spam",
		AIConfidence: 0.9,
		AIReasoning:  "spam",
		CreatedAt:    time.Now().UTC(),
	}}}
	router := logsRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/bot1/logs?chat_id=-100&action_type=warning&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	if store.gotFilter.ChatID != -100 || store.gotFilter.ActionType != enums.ActionTypeWarning || store.gotFilter.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", store.gotFilter)
	}

	var payload struct {
		Logs []struct {
			ID           string  `json:"id"`
			ActionType   string  `json:"action_type"`
			RuleViolated string  `json:"rule_violated"`
			AIConfidence float64 `json:"ai_confidence"`
		} `json:"logs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Logs) != 1 {
		t.Fatalf("unexpected log count: %d", len(payload.Logs))
	}
	entry := payload.Logs[0]
	if entry.ID != "a1" || entry.ActionType != "warning" || entry.RuleViolated != "no_spam" || entry.AIConfidence != 0.9 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestLogsHandlerReturnsEmptyArrayNotNull(t *testing.T) {
	router := logsRouter(&fakeLogStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/bots/bot1/logs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(payload["logs"]) != "[]" {
		t.Fatalf("expected empty array, got %s", payload["logs"])
	}
}

func TestLogsHandlerRejectsBadActionType(t *testing.T) {
	router := logsRouter(&fakeLogStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/bots/bot1/logs?action_type=smite", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code: %s", payload.Code)
	}
}

func TestLogsHandlerRejectsBadChatID(t *testing.T) {
	router := logsRouter(&fakeLogStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/bots/bot1/logs?chat_id=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestLogsHandlerDateOnlyToCoversWholeDay(t *testing.T) {
	store := &fakeLogStore{}
	router := logsRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/bot1/logs?from=2026-08-01&to=2026-08-31", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	wantFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !store.gotFilter.From.Equal(wantFrom) {
		t.Fatalf("unexpected from: %v", store.gotFilter.From)
	}

	// An action created late on the named end day must match created_at <= to.
	lateOnEndDay := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	if store.gotFilter.To.Before(lateOnEndDay) {
		t.Fatalf("date-only to must cover the whole end day, got %v", store.gotFilter.To)
	}
	nextDay := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !store.gotFilter.To.Before(nextDay) {
		t.Fatalf("to must not spill into the next day, got %v", store.gotFilter.To)
	}
}

func TestLogsHandlerRFC3339ToPassesThrough(t *testing.T) {
	store := &fakeLogStore{}
	router := logsRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/bot1/logs?to=2026-08-31T10%3A30%3A00Z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	want := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	if !store.gotFilter.To.Equal(want) {
		t.Fatalf("explicit timestamp must pass through untouched, got %v", store.gotFilter.To)
	}
}
