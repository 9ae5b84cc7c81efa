package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
	appURL string
}

// NewStartHandler creates a new start command handler. appURL is linked in
// the welcome message when set.
func NewStartHandler(appURL string, logger *logrus.Logger) *StartHandler {
	return &StartHandler{logger: logger, appURL: appURL}
}

// Handle processes the /start command
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	welcomeText := `🎁 *Welcome to WishShare!*

I post what happens on your shared wishlists to this chat: new items, new members and new comments. Claims are announced without saying who claimed, so surprises stay surprises.

Use /chatid to get the id of this chat and set it as TELEGRAM_CHAT_ID on the server.`
	if h.appURL != "" {
		welcomeText += fmt.Sprintf("\n\nOpen WishShare: %s", h.appURL)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, welcomeText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithField("chat_id", message.Chat.ID).Info("Sent start message")
	return nil
}

// ChatIDHandler handles the /chatid command
type ChatIDHandler struct{}

// NewChatIDHandler creates a new chatid command handler
func NewChatIDHandler() *ChatIDHandler {
	return &ChatIDHandler{}
}

// Handle replies with the id of the chat
func (h *ChatIDHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("This chat id is %d", message.Chat.ID))
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send chat id: %w", err)
	}
	return nil
}
