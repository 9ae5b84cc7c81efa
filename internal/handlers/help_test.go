package handlers

import (
	"strings"
	"testing"

	"github.com/Kerhoff/WishShare/internal/telegram"
)

func TestHelpTextListsCommands(t *testing.T) {
	t.Parallel()

	text := HelpText([]telegram.Command{
		{Name: "chatid", Description: "Show this chat's id"},
		{Name: "start", Description: "Welcome message"},
	})

	for _, want := range []string{"/chatid - Show this chat's id", "/start - Welcome message"} {
		if !strings.Contains(text, want) {
			t.Errorf("help text missing %q:\n%s", want, text)
		}
	}
}
