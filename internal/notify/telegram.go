package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Greeting is the reply to /start.
const Greeting = "سلام! «طلا» یا «/gold» را بفرست."

const (
	DefaultTelegramAPI = "https://api.telegram.org"
	sendAttempts       = 3
)

type TelegramConfig struct {
	APIURL      string
	Token       string
	PollTimeout time.Duration
	// RetryDelay is the base of the linear back-off between send attempts.
	RetryDelay time.Duration
}

// TelegramBot long-polls the Bot API and answers /start, /gold and plain text.
type TelegramBot struct {
	cfg      TelegramConfig
	api      *tgbotapi.BotAPI
	reporter Reporter
	logger   *zap.Logger
	stop     sync.Once
}

// NewTelegramBot authenticates against the Bot API with getMe. Errors never
// contain the token.
func NewTelegramBot(cfg TelegramConfig, reporter Reporter, logger *zap.Logger) (*TelegramBot, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultTelegramAPI
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.PollTimeout < 0 {
		cfg.PollTimeout = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redactingClient{
		client: &http.Client{Timeout: cfg.PollTimeout + 15*time.Second},
		token:  cfg.Token,
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIURL+"/bot%s/%s", client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", redact(err, cfg.Token))
	}

	return &TelegramBot{
		cfg:      cfg,
		api:      api,
		reporter: reporter,
		logger:   logger.With(zap.String("bot", api.Self.UserName)),
	}, nil
}

// Run drops updates queued while the bot was down, then polls until ctx is
// cancelled. Replies are sent concurrently; Run waits for them before
// returning. Run must be called at most once.
func (b *TelegramBot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("drop pending updates: %w", redact(err, b.cfg.Token))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.cfg.PollTimeout / time.Second)
	u.AllowedUpdates = []string{"message"}
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("telegram polling started")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.stop.Do(b.api.StopReceivingUpdates)
			b.logger.Info("telegram polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handle(ctx, upd)
			}()
		}
	}
}

func (b *TelegramBot) handle(ctx context.Context, u tgbotapi.Update) {
	if u.Message == nil || u.Message.Chat == nil || u.Message.Text == "" {
		return
	}
	chatID := u.Message.Chat.ID
	log := b.logger.With(zap.Int64("chat_id", chatID), zap.Int("update_id", u.UpdateID))

	reply := b.Reply(ctx, u.Message.Text)
	if reply == "" {
		log.Debug("ignoring message")
		return
	}
	if err := b.SendMessage(ctx, chatID, reply); err != nil {
		log.Error("reply failed", zap.Error(err))
	}
}

// Reply returns the answer to text, or "" when the message is ignored.
func (b *TelegramBot) Reply(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return b.reporter.BuildReport(ctx)
	}

	cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	switch strings.ToLower(cmd) {
	case "/start":
		return Greeting
	case "/gold":
		return b.reporter.BuildReport(ctx)
	default:
		return ""
	}
}

// SendMessage posts text to chatID, retrying with linear back-off.
func (b *TelegramBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * b.cfg.RetryDelay):
			}
		}

		_, lastErr = b.api.Send(msg)
		if lastErr == nil {
			return nil
		}
		lastErr = redact(lastErr, b.cfg.Token)
		b.logger.Warn("sendMessage attempt failed", zap.Int("attempt", attempt+1), zap.Error(lastErr))
	}
	return fmt.Errorf("telegram retries exhausted: %w", lastErr)
}

// redactingClient strips the token from transport errors, which embed the
// request URL. The library logs polling errors as they come back from here.
type redactingClient struct {
	client *http.Client
	token  string
}

func (c redactingClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, redact(err, c.token)
	}
	return resp, nil
}

func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
