package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	pgrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/postgres"
	redisrepo "github.com/tikhomirovv/tg-moderator-ai/internal/repo/redis"
)

type fakeMessageStore struct {
	mu       sync.Mutex
	inserted []model.Message
	recent   []string
	reads    int
	failNext error
}

func (f *fakeMessageStore) Insert(_ context.Context, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.inserted = append(f.inserted, msg)
	return nil
}

func (f *fakeMessageStore) RecentTexts(_ context.Context, _ string, _, _ int64, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeMessageStore) MarkDeleted(_ context.Context, _ string, _, _ int64, _ string) error {
	return nil
}

func (f *fakeMessageStore) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type fakeContextStore struct{}

func (fakeContextStore) GetOrCreate(_ context.Context, botID string, chatID, userID int64, info model.UserInfo) (model.UserContext, bool, error) {
	return model.UserContext{BotID: botID, ChatID: chatID, UserID: userID, Username: info.Username}, true, nil
}

func (fakeContextStore) IncrementWarnings(context.Context, string, int64, int64) (int, error) {
	return 1, nil
}

func (fakeContextStore) Ban(context.Context, string, int64, int64, string) (bool, error) {
	return true, nil
}

func newTestCache(t *testing.T) (*redisrepo.HistoryRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisrepo.NewHistoryRepo(client, HistoryWindow, time.Hour), mr
}

func testMessage(id int64, text string) model.Message {
	return model.Message{
		BotID:     "bot1",
		ChatID:    -100,
		UserID:    42,
		MessageID: id,
		Text:      text,
		SentAt:    time.Now(),
	}
}

func TestSaveMessagePopulatesCache(t *testing.T) {
	cache, _ := newTestCache(t)
	messages := &fakeMessageStore{}
	svc := NewService(fakeContextStore{}, messages, cache, nil)
	ctx := context.Background()

	if err := svc.SaveMessage(ctx, testMessage(1, "first")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.SaveMessage(ctx, testMessage(2, "second")); err != nil {
		t.Fatalf("save: %v", err)
	}

	texts, err := svc.RecentTexts(ctx, "bot1", -100, 42)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(texts) != 2 || texts[0] != "second" || texts[1] != "first" {
		t.Fatalf("unexpected cached history: %v", texts)
	}
	if messages.readCount() != 0 {
		t.Fatalf("warm cache must not hit the message store, got %d reads", messages.readCount())
	}
}

func TestSaveMessagePassesThroughDuplicate(t *testing.T) {
	cache, _ := newTestCache(t)
	messages := &fakeMessageStore{failNext: pgrepo.ErrMessageDuplicate}
	svc := NewService(fakeContextStore{}, messages, cache, nil)

	err := svc.SaveMessage(context.Background(), testMessage(1, "again"))
	if !errors.Is(err, pgrepo.ErrMessageDuplicate) {
		t.Fatalf("expected ErrMessageDuplicate, got %v", err)
	}

	// A rejected insert must not poison the history window.
	texts, err := svc.RecentTexts(context.Background(), "bot1", -100, 42)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(texts) != 0 {
		t.Fatalf("duplicate insert leaked into history: %v", texts)
	}
}

func TestRecentTextsColdCacheFallsBackAndWarms(t *testing.T) {
	cache, _ := newTestCache(t)
	messages := &fakeMessageStore{recent: []string{"newest", "older", "oldest"}}
	svc := NewService(fakeContextStore{}, messages, cache, nil)
	ctx := context.Background()

	texts, err := svc.RecentTexts(ctx, "bot1", -100, 42)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(texts) != 3 || texts[0] != "newest" {
		t.Fatalf("unexpected fallback history: %v", texts)
	}
	if messages.readCount() != 1 {
		t.Fatalf("expected one store read, got %d", messages.readCount())
	}

	// Second read is served from the warmed cache.
	texts, err = svc.RecentTexts(ctx, "bot1", -100, 42)
	if err != nil {
		t.Fatalf("recent after warm: %v", err)
	}
	if len(texts) != 3 || texts[0] != "newest" || texts[2] != "oldest" {
		t.Fatalf("warmed cache lost order: %v", texts)
	}
	if messages.readCount() != 1 {
		t.Fatalf("warmed cache still hit the store, got %d reads", messages.readCount())
	}
}

func TestRecentTextsSurvivesCacheOutage(t *testing.T) {
	cache, mr := newTestCache(t)
	messages := &fakeMessageStore{recent: []string{"pg only"}}
	svc := NewService(fakeContextStore{}, messages, cache, nil)

	// Kill redis; history must come from the message store.
	mr.Close()

	texts, err := svc.RecentTexts(context.Background(), "bot1", -100, 42)
	if err != nil {
		t.Fatalf("recent during outage: %v", err)
	}
	if len(texts) != 1 || texts[0] != "pg only" {
		t.Fatalf("unexpected history during outage: %v", texts)
	}
}

func TestSaveMessageSurvivesCacheOutage(t *testing.T) {
	cache, mr := newTestCache(t)
	messages := &fakeMessageStore{}
	svc := NewService(fakeContextStore{}, messages, cache, nil)

	mr.Close()

	if err := svc.SaveMessage(context.Background(), testMessage(1, "still saved")); err != nil {
		t.Fatalf("save during outage: %v", err)
	}
	if len(messages.inserted) != 1 {
		t.Fatalf("message not persisted during cache outage: %d", len(messages.inserted))
	}
}

func TestServiceWorksWithoutCache(t *testing.T) {
	messages := &fakeMessageStore{recent: []string{"direct"}}
	svc := NewService(fakeContextStore{}, messages, nil, nil)
	ctx := context.Background()

	if err := svc.SaveMessage(ctx, testMessage(1, "direct")); err != nil {
		t.Fatalf("save: %v", err)
	}
	texts, err := svc.RecentTexts(ctx, "bot1", -100, 42)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(texts) != 1 || texts[0] != "direct" {
		t.Fatalf("unexpected history without cache: %v", texts)
	}
}
