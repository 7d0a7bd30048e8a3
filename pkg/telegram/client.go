// Package telegram is the messaging transport for the delivery stage. A
// destination is a phone number; the client resolves it to a Telegram chat
// ID through a configured recipients map, so a number without a mapping is
// an unregistered destination.
package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUnregistered is returned when the destination phone has no chat mapping.
var ErrUnregistered = eris.New("telegram: unregistered destination")

// Client is the messaging transport contract the delivery stage depends on.
type Client interface {
	// Ready reports whether the session is authenticated and usable. The
	// orchestrator checks this before the delivery stage starts.
	Ready() error
	// Send delivers text to the destination phone number. Errors on
	// unregistered destinations and transport failures.
	Send(ctx context.Context, destination, text string) error
	// Close releases the session.
	Close() error
}

// sender is the slice of tgbotapi.BotAPI used by botClient. Swappable in tests.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

type botClient struct {
	bot        sender
	username   string
	recipients map[string]int64
}

// NewClient authenticates a bot session once; the session is a singleton
// resource held for the whole run.
func NewClient(token string, recipients map[string]int64) (Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, eris.Wrap(err, "telegram: authorize bot")
	}

	zap.L().Info("telegram session ready", zap.String("account", bot.Self.UserName))

	return &botClient{
		bot:        bot,
		username:   bot.Self.UserName,
		recipients: normalizeRecipients(recipients),
	}, nil
}

func (c *botClient) Ready() error {
	if c.bot == nil {
		return eris.New("telegram: session not established")
	}
	if len(c.recipients) == 0 {
		return eris.New("telegram: no recipients configured")
	}
	return nil
}

// Send attempts delivery exactly once. A timed-out call may have reached the
// recipient, so a transport error is reported to the caller, never retried.
func (c *botClient) Send(ctx context.Context, destination, text string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "telegram: send cancelled")
	}

	chatID, ok := c.recipients[normalizePhone(destination)]
	if !ok {
		return eris.Wrapf(ErrUnregistered, "%s", destination)
	}

	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return eris.Wrapf(err, "telegram: send to %s", destination)
	}
	return nil
}

func (c *botClient) Close() error {
	c.bot.StopReceivingUpdates()
	return nil
}

// normalizePhone strips formatting so "+1 (555) 010-2030" and "15550102030"
// resolve to the same recipient.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeRecipients(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for phone, chatID := range in {
		out[normalizePhone(phone)] = chatID
	}
	return out
}
