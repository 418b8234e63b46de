package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/gridsnake/game/config"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
)

func newTestBot(t *testing.T) (*Bot, *Directory) {
	t.Helper()
	directory := NewDirectory()
	manager := session.NewManager(nil, session.WithTickInterval(time.Hour), session.WithResolver(directory))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		manager.Shutdown(ctx)
	})

	svc := service.NewGameService(manager, config.NewBuiltinManager(), nil)
	bot := NewBot(svc, directory)
	manager.Subscribe(bot)
	return bot, directory
}

func TestBot_HandleMessage(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()
	alice := Author{ID: 1, Name: "alice"}
	defaults := config.DefaultCatalog()

	reply, err := bot.HandleMessage(ctx, "general", alice, "just chatting")
	if err != nil || reply != "" {
		t.Errorf("Expected no reply to plain chat, got %q %v", reply, err)
	}

	reply, _ = bot.HandleMessage(ctx, "general", alice, "::help")
	if reply != defaults.Help {
		t.Errorf("Expected help text, got %q", reply)
	}

	rejections := []struct {
		text     string
		expected string
	}{
		{"::snake <@2> <@&9>", ":x: A role can't play snake"},
		{"::snake <@>", ":x: Invalid mention"},
		{"::snake <@2> <@2>", ":x: Repeating users"},
		{"::snake <@2>", ":x: Please enter at least 2 users"},
		{"::snake <@1> <@2> <@3> <@4> <@5> <@6>", ":x: Play is currently limited to 5 users"},
	}
	for _, r := range rejections {
		reply, err := bot.HandleMessage(ctx, "general", alice, r.text)
		if err != nil || reply != r.expected {
			t.Errorf("%s: expected %q, got %q %v", r.text, r.expected, reply, err)
		}
	}

	reply, err = bot.HandleMessage(ctx, "general", alice, "::snake <@1> <@2>")
	if err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if !strings.Contains(reply, "```\n") || !strings.Contains(reply, "<@1>") {
		t.Errorf("Expected initial board and ranking, got %q", reply)
	}
	if status, ok := bot.Status("general"); !ok || status != reply {
		t.Error("Expected status message to match the reply")
	}

	busy := ":x: Round already in progress in channel <#general>"
	for _, text := range []string{"::solo", "::snake <@>"} {
		reply, _ = bot.HandleMessage(ctx, "general", alice, text)
		if reply != busy {
			t.Errorf("%s: expected %q, got %q", text, busy, reply)
		}
	}
}

func TestBot_HandleReaction(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()

	queued, err := bot.HandleReaction(ctx, "general", 1, "⬆")
	if err != nil || queued {
		t.Errorf("Expected reaction without a round to be dropped, got %v %v", queued, err)
	}

	bot.HandleMessage(ctx, "general", Author{ID: 1}, "::solo")

	if queued, _ := bot.HandleReaction(ctx, "general", 1, "🍕"); queued {
		t.Error("Expected unmapped emoji to be ignored")
	}
	if queued, _ := bot.HandleReaction(ctx, "general", 1, "⬅"); !queued {
		t.Error("Expected control emoji to be queued")
	}
}

func TestBot_Sink(t *testing.T) {
	bot, directory := newTestBot(t)
	directory.Remember(1, "alice")

	bot.Publish(&service.Frame{Location: "arena", Board: "-O-", Rankings: []service.RankEntry{{Place: 1, ID: 1, Alive: true}}})
	status, ok := bot.Status("arena")
	if !ok || !strings.HasSuffix(status, "```\n-O-\n```") {
		t.Errorf("Expected frame status, got %q", status)
	}

	bot.Conclude(&service.Summary{Location: "arena", OutcomeNames: []string{"alice"}})
	status, _ = bot.Status("arena")
	if !strings.Contains(status, "Congrats!") || !strings.Contains(status, "Lasted the longest: alice") {
		t.Errorf("Expected summary status, got %q", status)
	}
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	if d.DisplayName(7) != "7" {
		t.Errorf("Expected decimal fallback, got %q", d.DisplayName(7))
	}

	d.Remember(7, "seven")
	d.Remember(7, "")
	if d.DisplayName(7) != "seven" {
		t.Errorf("Expected remembered name, got %q", d.DisplayName(7))
	}
}
