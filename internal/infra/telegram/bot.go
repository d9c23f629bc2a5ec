// Package telegram connects the bot to the Telegram Bot API: it long-polls
// for chat commands and delivers notifications.
package telegram

import (
	"context"
	"net/http"
	"time"

	"github.com/gabapcia/walletbot/internal/commands"
	"github.com/gabapcia/walletbot/internal/pkg/logger"
	"github.com/gabapcia/walletbot/internal/scanloop"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// CommandHandler produces the reply for a chat command. An empty reply is not sent.
type CommandHandler interface {
	Handle(ctx context.Context, req commands.Request) string
}

type config struct {
	serverURL   string
	pollTimeout time.Duration
	httpClient  *http.Client
	skipGetMe   bool
}

// Option customizes the Bot API client.
type Option func(*config)

// WithServerURL points the client at a different Bot API server.
func WithServerURL(url string) Option {
	return func(c *config) {
		c.serverURL = url
	}
}

// WithPollTimeout sets the long polling timeout and the matching HTTP client.
func WithPollTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollTimeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used for Bot API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithSkipGetMe skips the token check performed on creation.
func WithSkipGetMe() Option {
	return func(c *config) {
		c.skipGetMe = true
	}
}

// Bot wraps a Telegram bot.
type Bot struct {
	api      *bot.Bot
	commands CommandHandler
}

var _ scanloop.MessageSender = (*Bot)(nil)

// New creates the bot. Unless WithSkipGetMe is given, the token is checked
// against the API.
func New(token string, handler CommandHandler, opts ...Option) (*Bot, error) {
	cfg := config{
		pollTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.pollTimeout + 10*time.Second}
	}

	b := &Bot{commands: handler}

	botOpts := []bot.Option{
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithHTTPClient(cfg.pollTimeout, cfg.httpClient),
		bot.WithErrorsHandler(func(err error) {
			logger.Warn(context.Background(), "telegram api error", "error", err)
		}),
	}
	if cfg.serverURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(cfg.serverURL))
	}
	if cfg.skipGetMe {
		botOpts = append(botOpts, bot.WithSkipGetMe())
	}

	api, err := bot.New(token, botOpts...)
	if err != nil {
		return nil, err
	}

	b.api = api
	return b, nil
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	logger.Info(ctx, "telegram polling started")
	b.api.Start(ctx)
	logger.Info(ctx, "telegram polling stopped")
}

// SendMessage implements scanloop.MessageSender. text is sent as HTML with
// link previews disabled.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, api *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}

	req := commands.Request{
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if msg.From != nil {
		req.UserID = msg.From.ID
	} else {
		req.UserID = msg.Chat.ID
	}

	reply := b.commands.Handle(ctx, req)
	if reply == "" {
		return
	}

	if _, err := api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   reply,
	}); err != nil {
		logger.Error(ctx, "failed to reply to command", "chat.id", msg.Chat.ID, "error", err)
	}
}
