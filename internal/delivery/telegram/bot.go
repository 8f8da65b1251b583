// Package telegram delivers the price conversation over a Telegram bot.
package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/resilience"
)

const (
	transportName      = "telegram"
	defaultMaxInFlight = 32
	pollTimeoutSeconds = 60
)

// Sender is the part of *tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatService handles one chat message.
type ChatService interface {
	HandleIncomingText(ctx context.Context, userID string, channel domain.Channel, text string) domain.Reply
}

// Renderer turns replies into message text.
type Renderer interface {
	Reply(reply domain.Reply) string
	Regions() string
}

// Config controls which chats are served and how many updates run at once.
type Config struct {
	// ChatID restricts the bot to one chat. Zero serves every chat.
	ChatID      int64
	MaxInFlight int
}

// Bot routes Telegram updates into the conversation.
type Bot struct {
	sender   Sender
	chat     ChatService
	render   Renderer
	cfg      Config
	bulkhead *resilience.Bulkhead
	gaugeMu  sync.Mutex
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// New creates a Bot.
func New(sender Sender, chat ChatService, render Renderer, cfg Config, metrics *observability.Metrics, logger *zap.Logger) *Bot {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}
	return &Bot{
		sender:   sender,
		chat:     chat,
		render:   render,
		cfg:      cfg,
		bulkhead: resilience.NewBulkhead(cfg.MaxInFlight),
		metrics:  metrics,
		logger:   logger,
	}
}

// Updates starts long polling on api.
func Updates(api *tgbotapi.BotAPI) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	return api.GetUpdatesChan(u)
}

// Run handles updates until ctx is cancelled or the channel closes. It
// waits for in-flight messages before returning.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	b.logger.Info("telegram bot started", zap.Int64("chat_id", b.cfg.ChatID))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			if err := b.bulkhead.Acquire(ctx); err != nil {
				return ctx.Err()
			}
			b.reportInFlight()
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				defer func() {
					b.bulkhead.Release()
					b.reportInFlight()
				}()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

// reportInFlight publishes the bulkhead occupancy. The lock keeps a stale
// read from overwriting a newer one.
func (b *Bot) reportInFlight() {
	b.gaugeMu.Lock()
	defer b.gaugeMu.Unlock()
	b.metrics.SetInFlight(transportName, b.bulkhead.InFlight())
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot || msg.Chat == nil {
		return
	}
	if b.cfg.ChatID != 0 && msg.Chat.ID != b.cfg.ChatID {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "!") || strings.HasPrefix(text, "/") {
		if command(text) == "countries" {
			b.send(msg, b.render.Regions())
		}
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	channel := domain.Channel{Transport: transportName, ID: strconv.FormatInt(msg.Chat.ID, 10)}

	reply := b.chat.HandleIncomingText(ctx, userID, channel, text)
	if reply.Kind == domain.ReplyRateLimited {
		b.logger.Debug("rate limited message dropped",
			zap.String("user_id", userID),
			zap.Int("retry_after", reply.RetryAfterSeconds),
		)
		return
	}

	b.send(msg, b.render.Reply(reply))
}

func (b *Bot) send(to *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(to.Chat.ID, text)
	out.ReplyToMessageID = to.MessageID
	out.DisableWebPagePreview = true

	if _, err := b.sender.Send(out); err != nil {
		b.logger.Warn("telegram send failed",
			zap.Int64("chat_id", to.Chat.ID),
			zap.Error(err),
		)
	}
}

// command returns the lower-cased name of a "/name@bot" or "!name" command.
func command(text string) string {
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
