package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// telegramTransport delivers triage messages through the bot API. Sends
// are synchronous: the relay decides whether to clear pending markers
// based on the delivery result, so fire-and-forget is not an option
// here.
type telegramTransport struct {
	bot     *tele.Bot
	adminID int64
}

func newTelegramTransport(bot *tele.Bot, adminID int64) *telegramTransport {
	return &telegramTransport{bot: bot, adminID: adminID}
}

func (t *telegramTransport) send(recipientID int64, text string, markdown bool) error {
	rcpt := &tele.User{ID: recipientID}
	if markdown {
		_, err := t.bot.Send(rcpt, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
		return err
	}
	_, err := t.bot.Send(rcpt, text)
	return err
}

func (t *telegramTransport) SendToUser(_ context.Context, userID int64, text string, markdown bool) error {
	return t.send(userID, text, markdown)
}

func (t *telegramTransport) SendToAdmin(_ context.Context, text string, markdown bool) error {
	return t.send(t.adminID, text, markdown)
}
