package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
)

type fakeResolver struct {
	bot        model.Bot
	botErr     error
	chatCfg    model.ChatConfig
	chatErr    error
	botCalls   int
	chatCalls  int
	lastChatID int64
}

func (f *fakeResolver) FindActiveByID(_ context.Context, _ string) (model.Bot, error) {
	f.botCalls++
	return f.bot, f.botErr
}

func (f *fakeResolver) FindChatConfig(_ context.Context, _ string, chatID int64) (model.ChatConfig, error) {
	f.chatCalls++
	f.lastChatID = chatID
	return f.chatCfg, f.chatErr
}

type fakeDispatcher struct {
	events []model.InboundEvent
	full   bool
}

func (f *fakeDispatcher) Enqueue(_ model.Bot, _ model.ChatConfig, event model.InboundEvent) bool {
	if f.full {
		return false
	}
	f.events = append(f.events, event)
	return true
}

func webhookRouter(h *WebhookHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/webhook/{botID}", h.Handle)
	return r
}

func performWebhook(t *testing.T, router http.Handler, botID string, update map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook/"+botID, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func textUpdate(chatID, userID, messageID int64, text string) map[string]any {
	return map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"message_id": messageID,
			"date":       1756600000,
			"text":       text,
			"chat":       map[string]any{"id": chatID, "type": "supergroup"},
			"from": map[string]any{
				"id":         userID,
				"username":   "offender",
				"first_name": "Иван",
			},
		},
	}
}

func TestWebhookEnqueuesNormalizedEvent(t *testing.T) {
	resolver := &fakeResolver{
		bot:     model.Bot{ID: "bot1", Token: "token", IsActive: true},
		chatCfg: model.ChatConfig{BotID: "bot1", ChatID: -100},
	}
	dispatcher := &fakeDispatcher{}
	router := webhookRouter(NewWebhookHandler(resolver, dispatcher, nil))

	rec := performWebhook(t, router, "bot1", textUpdate(-100, 42, 7, "hello"))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("expected one enqueued event, got %d", len(dispatcher.events))
	}
	ev := dispatcher.events[0]
	if ev.BotID != "bot1" || ev.ChatID != -100 || ev.UserID != 42 || ev.MessageID != 7 || ev.Text != "hello" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.User.Username != "offender" || ev.User.FirstName != "Иван" {
		t.Fatalf("user info not carried over: %+v", ev.User)
	}
	if ev.SentAt.IsZero() {
		t.Fatal("sent_at not set from message date")
	}
}

func TestWebhookDropsTextlessUpdateSilently(t *testing.T) {
	resolver := &fakeResolver{}
	dispatcher := &fakeDispatcher{}
	router := webhookRouter(NewWebhookHandler(resolver, dispatcher, nil))

	update := map[string]any{
		"update_id": 2,
		"message": map[string]any{
			"message_id": 8,
			"chat":       map[string]any{"id": -100, "type": "supergroup"},
			"from":       map[string]any{"id": 42},
			"sticker":    map[string]any{"file_id": "abc"},
		},
	}
	rec := performWebhook(t, router, "bot1", update)
	if rec.Code != http.StatusOK {
		t.Fatalf("textless update must be acknowledged, got %d", rec.Code)
	}
	if resolver.botCalls != 0 || len(dispatcher.events) != 0 {
		t.Fatalf("textless update must not be processed: %d resolver calls, %d events", resolver.botCalls, len(dispatcher.events))
	}
}

func TestWebhookDropsUnknownBotWith200(t *testing.T) {
	resolver := &fakeResolver{botErr: pgrepo.ErrBotNotFound}
	dispatcher := &fakeDispatcher{}
	router := webhookRouter(NewWebhookHandler(resolver, dispatcher, nil))

	rec := performWebhook(t, router, "ghost", textUpdate(-100, 42, 9, "hi"))
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown bot must be acknowledged, got %d", rec.Code)
	}
	if len(dispatcher.events) != 0 {
		t.Fatal("unknown bot update must not be enqueued")
	}
}

func TestWebhookDropsUntrackedChatWith200(t *testing.T) {
	resolver := &fakeResolver{
		bot:     model.Bot{ID: "bot1", IsActive: true},
		chatErr: pgrepo.ErrChatNotTracked,
	}
	dispatcher := &fakeDispatcher{}
	router := webhookRouter(NewWebhookHandler(resolver, dispatcher, nil))

	rec := performWebhook(t, router, "bot1", textUpdate(-555, 42, 10, "hi"))
	if rec.Code != http.StatusOK {
		t.Fatalf("untracked chat must be acknowledged, got %d", rec.Code)
	}
	if resolver.lastChatID != -555 {
		t.Fatalf("unexpected chat lookup: %d", resolver.lastChatID)
	}
	if len(dispatcher.events) != 0 {
		t.Fatal("untracked chat update must not be enqueued")
	}
}

func TestWebhookAcknowledgesWhenQueueFull(t *testing.T) {
	resolver := &fakeResolver{
		bot:     model.Bot{ID: "bot1", IsActive: true},
		chatCfg: model.ChatConfig{BotID: "bot1", ChatID: -100},
	}
	dispatcher := &fakeDispatcher{full: true}
	router := webhookRouter(NewWebhookHandler(resolver, dispatcher, nil))

	rec := performWebhook(t, router, "bot1", textUpdate(-100, 42, 11, "hi"))
	if rec.Code != http.StatusOK {
		t.Fatalf("full queue must still acknowledge, got %d", rec.Code)
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	router := webhookRouter(NewWebhookHandler(&fakeResolver{}, &fakeDispatcher{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/bot1", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body must be rejected, got %d", rec.Code)
	}
}
