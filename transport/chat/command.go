package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

var (
	startPattern   = regexp.MustCompile(`^::(snake|solo) *(.*?) *$`)
	helpPattern    = regexp.MustCompile(`^::help *$`)
	mentionPattern = regexp.MustCompile(`\s*?<@!?([&]?)([0-9]*)>\s*?`)
)

// Kind tells what a chat message asks for
type Kind int

const (
	None Kind = iota
	Start
	Help
)

// Command is a parsed chat message
type Command struct {
	Kind     Kind
	Mode     string
	Mentions []service.Mention
}

// ParseCommand recognizes "::snake @a @b", "::solo" and "::help". Mentions
// are read in order; parsing stops at the first role mention, which is kept
// so the round manager can reject it. A mention without a usable id fails
// with ErrInvalidMention.
func ParseCommand(text string) (Command, error) {
	if helpPattern.MatchString(text) {
		return Command{Kind: Help}, nil
	}

	m := startPattern.FindStringSubmatch(text)
	if m == nil {
		return Command{Kind: None}, nil
	}

	cmd := Command{Kind: Start, Mode: m[1]}
	for _, mention := range mentionPattern.FindAllStringSubmatch(m[2], -1) {
		if mention[1] != "" {
			cmd.Mentions = append(cmd.Mentions, service.Mention{IsRole: true})
			break
		}
		id, err := strconv.ParseUint(mention[2], 10, 64)
		if err != nil {
			return cmd, service.ErrInvalidMention
		}
		cmd.Mentions = append(cmd.Mentions, service.Mention{ID: id})
	}
	return cmd, nil
}

var emojiActions = map[string]engine.Action{
	"⬆": engine.ActionUp,
	"➡": engine.ActionRight,
	"⬇": engine.ActionDown,
	"⬅": engine.ActionLeft,
	"❌": engine.ActionCancel,
}

// Reactions lists the control emoji in the order they are offered
var Reactions = []string{"⬆", "➡", "⬇", "⬅", "❌"}

// ActionForEmoji maps a reaction to an action. The variation selector some
// clients append is ignored.
func ActionForEmoji(emoji string) (engine.Action, bool) {
	if a, ok := emojiActions[emoji]; ok {
		return a, true
	}
	a, ok := emojiActions[trimVariation(emoji)]
	return a, ok
}

func trimVariation(s string) string {
	return strings.TrimSuffix(s, "\uFE0F")
}
