package botapp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	"github.com/tikhomirovv/tg-moderator-ai/internal/services/escalation"
)

type countingProcessor struct {
	mu     sync.Mutex
	seen   map[int64]int
	notify chan struct{}
}

func newCountingProcessor(capacity int) *countingProcessor {
	return &countingProcessor{
		seen:   make(map[int64]int),
		notify: make(chan struct{}, capacity),
	}
}

func (p *countingProcessor) ProcessEvent(_ context.Context, _ model.Bot, _ model.ChatConfig, event model.InboundEvent) (escalation.Result, error) {
	p.mu.Lock()
	p.seen[event.MessageID]++
	p.mu.Unlock()
	p.notify <- struct{}{}
	return escalation.Result{Outcome: escalation.OutcomeNoViolation}, nil
}

func (p *countingProcessor) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.seen {
		n += c
	}
	return n
}

func TestDispatcherProcessesEveryEnqueuedEventOnce(t *testing.T) {
	const events = 20

	processor := newCountingProcessor(events)
	d := NewDispatcher(processor, DispatcherConfig{Workers: 3, QueueSize: events}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := int64(1); i <= events; i++ {
		if !d.Enqueue(model.Bot{ID: "bot1"}, model.ChatConfig{}, model.InboundEvent{BotID: "bot1", MessageID: i, Text: "x"}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	for i := 0; i < events; i++ {
		select {
		case <-processor.notify:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d processed events", i)
		}
	}

	cancel()
	d.Wait()

	if processor.total() != events {
		t.Fatalf("expected %d processed events, got %d", events, processor.total())
	}
	processor.mu.Lock()
	defer processor.mu.Unlock()
	for id, count := range processor.seen {
		if count != 1 {
			t.Fatalf("event %d processed %d times", id, count)
		}
	}
}

func TestDispatcherRejectsWhenQueueFull(t *testing.T) {
	processor := newCountingProcessor(4)
	d := NewDispatcher(processor, DispatcherConfig{Workers: 1, QueueSize: 2}, nil)
	// Workers not started: the queue fills up and stays full.

	ev := model.InboundEvent{BotID: "bot1", Text: "x"}
	if !d.Enqueue(model.Bot{ID: "bot1"}, model.ChatConfig{}, ev) {
		t.Fatal("first enqueue rejected")
	}
	if !d.Enqueue(model.Bot{ID: "bot1"}, model.ChatConfig{}, ev) {
		t.Fatal("second enqueue rejected")
	}
	if d.Enqueue(model.Bot{ID: "bot1"}, model.ChatConfig{}, ev) {
		t.Fatal("enqueue into a full queue must report false")
	}
}

func TestDispatcherDrainsQueueOnShutdown(t *testing.T) {
	const events = 5

	processor := newCountingProcessor(events)
	d := NewDispatcher(processor, DispatcherConfig{Workers: 2, QueueSize: events}, nil)

	for i := int64(1); i <= events; i++ {
		if !d.Enqueue(model.Bot{ID: "bot1"}, model.ChatConfig{}, model.InboundEvent{BotID: "bot1", MessageID: i, Text: "x"}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	// Start with an already-cancelled context: workers must still drain.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	if processor.total() != events {
		t.Fatalf("shutdown lost events: processed %d of %d", processor.total(), events)
	}
}
