// Package telegram implements the launcher bot that points players at the
// Mini App.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	startText = "👾 Welcome to Bugman!\n\nTap «Play» to open the game."
	helpText  = "Send /start to get the game button."
	playLabel = "🎮 Play"
)

// Sender delivers outgoing messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers commands with a button opening the Mini App.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	appURL string
	logger *zap.Logger
}

// NewBot authorises against the Bot API with token.
func NewBot(token, appURL string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api, sender: api, appURL: appURL, logger: logger}, nil
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("authorised on account", zap.String("username", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	chatID := update.Message.Chat.ID

	var msg tgbotapi.MessageConfig
	switch update.Message.Command() {
	case "start":
		msg = StartMessage(chatID, b.appURL)
	default:
		msg = tgbotapi.NewMessage(chatID, helpText)
	}

	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// StartMessage builds the reply to /start: a greeting with an inline button
// linking to appURL.
func StartMessage(chatID int64, appURL string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, startText)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(playLabel, appURL),
		),
	)
	return msg
}
