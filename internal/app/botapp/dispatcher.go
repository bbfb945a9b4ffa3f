package botapp

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
	"github.com/tikhomirovv/tg-moderator-ai/internal/services/escalation"
)

const (
	defaultWorkers      = 4
	defaultQueueSize    = 256
	defaultEventTimeout = 60 * time.Second
)

// Processor runs the moderation pipeline for one event.
type Processor interface {
	ProcessEvent(ctx context.Context, bot model.Bot, chatCfg model.ChatConfig, event model.InboundEvent) (escalation.Result, error)
}

type queuedEvent struct {
	bot     model.Bot
	chatCfg model.ChatConfig
	event   model.InboundEvent
}

// Dispatcher decouples webhook ingestion from processing: events land in a
// bounded queue and a fixed pool of workers drains it. Events for the same
// user may be processed concurrently; the stores make that safe.
type Dispatcher struct {
	processor    Processor
	logger       *zap.Logger
	queue        chan queuedEvent
	workers      int
	eventTimeout time.Duration
	wg           sync.WaitGroup
}

type DispatcherConfig struct {
	Workers      int
	QueueSize    int
	EventTimeout time.Duration
}

func NewDispatcher(processor Processor, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = defaultEventTimeout
	}
	return &Dispatcher{
		processor:    processor,
		logger:       logger,
		queue:        make(chan queuedEvent, cfg.QueueSize),
		workers:      cfg.Workers,
		eventTimeout: cfg.EventTimeout,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled and the
// queue is drained; Wait blocks until then.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue is non-blocking: a full queue rejects the event and reports false.
func (d *Dispatcher) Enqueue(bot model.Bot, chatCfg model.ChatConfig, event model.InboundEvent) bool {
	select {
	case d.queue <- queuedEvent{bot: bot, chatCfg: chatCfg, event: event}:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case qe := <-d.queue:
					d.process(qe)
				default:
					return
				}
			}
		case qe := <-d.queue:
			d.process(qe)
		}
	}
}

func (d *Dispatcher) process(qe queuedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.eventTimeout)
	defer cancel()

	result, err := d.processor.ProcessEvent(ctx, qe.bot, qe.chatCfg, qe.event)
	if err != nil {
		d.logger.Error("process event failed",
			zap.String("bot_id", qe.event.BotID),
			zap.Int64("chat_id", qe.event.ChatID),
			zap.Int64("message_id", qe.event.MessageID),
			zap.Error(err))
		return
	}

	d.logger.Debug("event processed",
		zap.String("bot_id", qe.event.BotID),
		zap.Int64("chat_id", qe.event.ChatID),
		zap.Int64("message_id", qe.event.MessageID),
		zap.String("outcome", string(result.Outcome)))
}
