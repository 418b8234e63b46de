package chat

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/gridsnake/game/service"
)

// Author is the sender of a chat message
type Author struct {
	ID   uint64 `json:"id,string"`
	Name string `json:"name"`
}

// Directory remembers the display names of everyone who talked to the bot.
// It implements service.NameResolver.
type Directory struct {
	mu    sync.RWMutex
	names map[uint64]string
}

func NewDirectory() *Directory {
	return &Directory{names: make(map[uint64]string)}
}

func (d *Directory) Remember(id uint64, name string) {
	if name == "" {
		return
	}
	d.mu.Lock()
	d.names[id] = name
	d.mu.Unlock()
}

// DisplayName returns the remembered name, or the id in decimal
func (d *Directory) DisplayName(id uint64) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[id]; ok {
		return name
	}
	return strconv.FormatUint(id, 10)
}

// Bot turns chat messages and reactions into game operations. As a
// service.Sink it keeps the status message of every location up to date.
type Bot struct {
	svc       service.GameService
	directory *Directory

	mu       sync.RWMutex
	statuses map[string]string
}

func NewBot(svc service.GameService, directory *Directory) *Bot {
	return &Bot{
		svc:       svc,
		directory: directory,
		statuses:  make(map[string]string),
	}
}

// HandleMessage reacts to one chat message and returns the reply to post,
// or "" when there is nothing to say.
func (b *Bot) HandleMessage(ctx context.Context, location string, author Author, content string) (string, error) {
	b.directory.Remember(author.ID, author.Name)

	cmd, err := ParseCommand(content)
	catalog := b.svc.Catalog()

	if errors.Is(err, service.ErrInvalidMention) {
		// a running round is reported before anything about the mentions
		if _, getErr := b.svc.GetSession(ctx, location); getErr == nil {
			return service.RejectionMessage(catalog, service.ErrRoundInProgress, location), nil
		}
		return service.RejectionMessage(catalog, err, location), nil
	}

	switch cmd.Kind {
	case Help:
		return catalog.Help, nil
	case Start:
		info, err := b.svc.StartRound(ctx, service.StartRequest{
			Location:  location,
			Mode:      cmd.Mode,
			Requester: author.ID,
			Mentions:  cmd.Mentions,
		})
		var rejected *service.RejectedError
		if errors.As(err, &rejected) {
			return rejected.Message, nil
		}
		if err != nil {
			return "", err
		}

		status := FormatFrame(catalog, &service.Frame{
			Location: info.Location,
			Round:    info.Round,
			Board:    info.State.Board,
			Rankings: info.Rankings,
		})
		b.setStatus(location, status)
		return status, nil
	default:
		return "", nil
	}
}

// HandleReaction forwards a control emoji as input. Reactions being added and
// removed both count. It reports whether the input was queued.
func (b *Bot) HandleReaction(ctx context.Context, location string, user uint64, emoji string) (bool, error) {
	action, ok := ActionForEmoji(emoji)
	if !ok {
		return false, nil
	}
	return b.svc.SendInput(ctx, location, service.Input{PlayerID: user, Action: action})
}

// Status returns the latest status message of a location
func (b *Bot) Status(location string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.statuses[location]
	return s, ok
}

func (b *Bot) setStatus(location, text string) {
	b.mu.Lock()
	b.statuses[location] = text
	b.mu.Unlock()
}

// Publish implements service.Sink
func (b *Bot) Publish(frame *service.Frame) {
	b.setStatus(frame.Location, FormatFrame(b.svc.Catalog(), frame))
}

// Conclude implements service.Sink
func (b *Bot) Conclude(summary *service.Summary) {
	b.setStatus(summary.Location, FormatSummary(b.svc.Catalog(), summary))
	log.Debug().Str("location", summary.Location).Str("round", summary.ID).Msg("Status message finalized")
}
