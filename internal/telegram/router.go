package telegram

import (
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error
}

// Command describes a registered bot command
type Command struct {
	Name        string
	Description string
}

// Router handles message routing and command parsing
type Router struct {
	logger   *logrus.Logger
	handlers map[string]CommandHandler
	commands []Command
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:   logger,
		handlers: make(map[string]CommandHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command, description string, handler CommandHandler) {
	if _, exists := r.handlers[command]; !exists {
		r.commands = append(r.commands, Command{Name: command, Description: description})
		sort.Slice(r.commands, func(i, j int) bool { return r.commands[i].Name < r.commands[j].Name })
	}
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// Commands returns the registered commands sorted by name
func (r *Router) Commands() []Command {
	return append([]Command(nil), r.commands...)
}

// HandleMessage dispatches a command message to its handler
func (r *Router) HandleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	if message.Text == "" || !message.IsCommand() {
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())
	log := r.logger.WithFields(logrus.Fields{
		"command": command,
		"chat_id": message.Chat.ID,
	})

	handler, exists := r.handlers[command]
	if !exists {
		log.Debug("Unknown command")
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❓ Unknown command. Use /help to see available commands."))
		return
	}

	if err := handler.Handle(bot, message, args); err != nil {
		log.WithError(err).Error("Command handler failed")
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ Something went wrong. Please try again."))
	}
}
