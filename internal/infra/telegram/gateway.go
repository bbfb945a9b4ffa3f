package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Gateway executes outbound moderation effects against the Bot API. It serves
// many bots at once, so API clients are created per token on first use and
// reused afterwards.
type Gateway struct {
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	clients map[string]*tgbotapi.BotAPI
}

func NewGateway(httpClient *http.Client, logger *zap.Logger) *Gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		httpClient: httpClient,
		logger:     logger,
		clients:    make(map[string]*tgbotapi.BotAPI),
	}
}

func (g *Gateway) api(token string) (*tgbotapi.BotAPI, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("bot token is empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if api, ok := g.clients[token]; ok {
		return api, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, g.httpClient)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}
	g.clients[token] = api

	g.logger.Debug("telegram client created", zap.String("bot_username", api.Self.UserName))
	return api, nil
}

// SendMessage posts an HTML-formatted message, optionally as a reply.
func (g *Gateway) SendMessage(ctx context.Context, token string, chatID int64, text string, replyToMessageID int64) error {
	api, err := g.api(token)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if replyToMessageID > 0 {
		msg.ReplyToMessageID = int(replyToMessageID)
	}

	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (g *Gateway) DeleteMessage(ctx context.Context, token string, chatID, messageID int64) error {
	api, err := g.api(token)
	if err != nil {
		return err
	}

	if _, err := api.Request(tgbotapi.NewDeleteMessage(chatID, int(messageID))); err != nil {
		return fmt.Errorf("delete telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (g *Gateway) BanUser(ctx context.Context, token string, chatID, userID int64) error {
	api, err := g.api(token)
	if err != nil {
		return err
	}

	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	}
	if _, err := api.Request(cfg); err != nil {
		return fmt.Errorf("ban telegram user: %w", err)
	}

	_ = ctx
	return nil
}
