package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

type fakeChat struct {
	mu    sync.Mutex
	calls []string
	kind  domain.ReplyKind
}

func (f *fakeChat) HandleIncomingText(_ context.Context, userID string, ch domain.Channel, text string) domain.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+"|"+ch.ID+"|"+text)
	kind := f.kind
	if kind == "" {
		kind = domain.ReplyNoResults
	}
	return domain.Reply{Kind: kind, RetryAfterSeconds: 2}
}

type fakeRenderer struct{}

func (fakeRenderer) Reply(r domain.Reply) string { return "reply:" + string(r.Kind) }
func (fakeRenderer) Regions() string             { return "regions" }

func message(chatID, userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}}
}

func runAll(t *testing.T, b *Bot, updates ...tgbotapi.Update) {
	t.Helper()
	ch := make(chan tgbotapi.Update, len(updates))
	for _, u := range updates {
		ch <- u
	}
	close(ch)
	require.NoError(t, b.Run(context.Background(), ch))
}

func TestBot_RepliesToText(t *testing.T) {
	sender, chat := &fakeSender{}, &fakeChat{}
	b := New(sender, chat, fakeRenderer{}, Config{}, observability.NewMetrics(), zap.NewNop())

	runAll(t, b, message(100, 5, "  elden ring turkey "))

	require.Equal(t, []string{"5|100|elden ring turkey"}, chat.calls)
	sent := sender.messages()
	require.Len(t, sent, 1)
	require.Equal(t, "reply:no_results", sent[0].Text)
	require.Equal(t, int64(100), sent[0].ChatID)
	require.Equal(t, 7, sent[0].ReplyToMessageID)
}

func TestBot_Countries(t *testing.T) {
	for _, text := range []string{"/countries", "/countries@PriceBot", "!countries", "!Countries extra"} {
		t.Run(text, func(t *testing.T) {
			sender, chat := &fakeSender{}, &fakeChat{}
			runAll(t, New(sender, chat, fakeRenderer{}, Config{}, observability.NewMetrics(), zap.NewNop()), message(1, 2, text))

			require.Empty(t, chat.calls)
			sent := sender.messages()
			require.Len(t, sent, 1)
			require.Equal(t, "regions", sent[0].Text)
		})
	}
}

func TestBot_Ignores(t *testing.T) {
	bot := message(1, 2, "hades")
	bot.Message.From.IsBot = true

	sender, chat := &fakeSender{}, &fakeChat{}
	b := New(sender, chat, fakeRenderer{}, Config{ChatID: 1}, observability.NewMetrics(), zap.NewNop())

	runAll(t, b,
		bot,
		message(99, 2, "hades"), // other chat
		message(1, 2, "/start"),
		message(1, 2, "!help"),
		message(1, 2, "   "),
		tgbotapi.Update{},
	)

	require.Empty(t, chat.calls)
	require.Empty(t, sender.messages())
}

func TestBot_DropsRateLimited(t *testing.T) {
	sender, chat := &fakeSender{}, &fakeChat{kind: domain.ReplyRateLimited}
	runAll(t, New(sender, chat, fakeRenderer{}, Config{}, observability.NewMetrics(), zap.NewNop()), message(1, 2, "hades"))

	require.Len(t, chat.calls, 1)
	require.Empty(t, sender.messages())
}

func TestBot_SendErrorIsLogged(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	runAll(t, New(sender, &fakeChat{}, fakeRenderer{}, Config{}, observability.NewMetrics(), zap.NewNop()), message(1, 2, "hades"))
	require.Len(t, sender.messages(), 1)
}

func TestBot_StopsOnCancel(t *testing.T) {
	b := New(&fakeSender{}, &fakeChat{}, fakeRenderer{}, Config{}, observability.NewMetrics(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, make(chan tgbotapi.Update)) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestCommand(t *testing.T) {
	require.Equal(t, "countries", command("/Countries@bot now"))
	require.Equal(t, "countries", command("!countries"))
	require.Equal(t, "start", command("/start"))
}

type blockingChat struct {
	release chan struct{}
}

func (c blockingChat) HandleIncomingText(context.Context, string, domain.Channel, string) domain.Reply {
	<-c.release
	return domain.Reply{Kind: domain.ReplyNoResults}
}

func inFlight(t *testing.T, m *observability.Metrics) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "pricebot_messages_in_flight" {
			continue
		}
		for _, metric := range f.GetMetric() {
			return metric.GetGauge().GetValue()
		}
	}
	return 0
}

func TestBot_ReportsMessagesInFlight(t *testing.T) {
	chat := blockingChat{release: make(chan struct{})}
	metrics := observability.NewMetrics()
	b := New(&fakeSender{}, chat, fakeRenderer{}, Config{}, metrics, zap.NewNop())

	updates := make(chan tgbotapi.Update, 2)
	updates <- message(1, 2, "hades")
	updates <- message(1, 3, "elden ring")

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background(), updates) }()

	require.Eventually(t, func() bool { return inFlight(t, metrics) == 2 }, 2*time.Second, time.Millisecond)

	close(chat.release)
	close(updates)
	require.NoError(t, <-done)
	require.Zero(t, inFlight(t, metrics))
}
