package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramSender is the part of the bot API the transport needs.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramTransport delivers messages to a chat id held in the recipient handle.
type TelegramTransport struct {
	api telegramSender
}

// NewTelegramTransport authorizes against the Bot API with token.
func NewTelegramTransport(token string) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &TelegramTransport{api: api}, nil
}

func (t *TelegramTransport) Send(_ context.Context, to Recipient, msg Message) error {
	chatID, err := strconv.ParseInt(to.Handle, 10, 64)
	if err != nil {
		return fmt.Errorf("user %d: invalid telegram chat id %q", to.UserID, to.Handle)
	}
	m := tgbotapi.NewMessage(chatID, "<b>"+html.EscapeString(msg.Title)+"</b>\n"+html.EscapeString(msg.Body))
	m.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(m); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
