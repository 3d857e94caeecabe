package telegram

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSender records outgoing messages.
type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(text)},
		},
	}}
}

func TestStartMessage(t *testing.T) {
	msg := StartMessage(7, "https://game.example/")

	assert.Equal(t, int64(7), msg.ChatID)
	assert.Equal(t, startText, msg.Text)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)

	button := markup.InlineKeyboard[0][0]
	assert.Equal(t, playLabel, button.Text)
	require.NotNil(t, button.URL)
	assert.Equal(t, "https://game.example/", *button.URL)
}

func TestHandleUpdate(t *testing.T) {
	tests := []struct {
		name     string
		update   tgbotapi.Update
		wantSent int
		wantText string
	}{
		{"start", command(1, "/start"), 1, startText},
		{"other command", command(1, "/help"), 1, helpText},
		{"plain text", tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi", Chat: &tgbotapi.Chat{ID: 1}}}, 0, ""},
		{"no message", tgbotapi.Update{}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			b := &Bot{sender: sender, appURL: "https://game.example/", logger: zap.NewNop()}
			b.handleUpdate(tt.update)

			require.Len(t, sender.sent, tt.wantSent)
			if tt.wantSent > 0 {
				msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
				require.True(t, ok)
				assert.Equal(t, tt.wantText, msg.Text)
				assert.Equal(t, int64(1), msg.ChatID)
			}
		})
	}
}

func TestHandleUpdate_SendErrorIsLogged(t *testing.T) {
	sender := &fakeSender{err: errors.New("network")}
	b := &Bot{sender: sender, appURL: "https://game.example/", logger: zap.NewNop()}

	assert.NotPanics(t, func() { b.handleUpdate(command(3, "/start")) })
	assert.Len(t, sender.sent, 1)
}
