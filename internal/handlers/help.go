package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishShare/internal/telegram"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger   *logrus.Logger
	commands func() []telegram.Command
}

// NewHelpHandler lists the commands returned by commands
func NewHelpHandler(commands func() []telegram.Command, logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger, commands: commands}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, HelpText(h.commands()))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}
	return nil
}

// HelpText renders the command list
func HelpText(commands []telegram.Command) string {
	var b strings.Builder
	b.WriteString("📚 *WishShare Help*\n\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "• /%s - %s\n", c.Name, c.Description)
	}
	b.WriteString("\nWishlists are managed in the app; this bot only reports activity.")
	return b.String()
}
