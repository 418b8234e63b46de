package session

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

// Session binds one running Game to its location and inbox.
// Only the session's own goroutine touches the Game.
type Session struct {
	Location  string
	Round     string
	Mode      string
	Stage     uint64
	StartedAt time.Time

	game   *engine.Game
	inbox  chan service.Input
	done   chan struct{}
	cancel context.CancelFunc

	// published after every tick, never mutated afterwards
	mu       sync.RWMutex
	snapshot *engine.GameState
	rankings []service.RankEntry
}

// send queues an input without blocking. Inputs for an ended round or a
// full inbox are dropped.
func (s *Session) send(in service.Input) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.inbox <- in:
		return true
	default:
		return false
	}
}

// drain applies every queued input. Later inputs from the same player win.
func (s *Session) drain() {
	for {
		select {
		case in := <-s.inbox:
			s.game.ApplyInput(in.PlayerID, in.Action)
		default:
			return
		}
	}
}

func (s *Session) publish(state *engine.GameState, rankings []service.RankEntry) {
	s.mu.Lock()
	s.snapshot = state
	s.rankings = rankings
	s.mu.Unlock()
}

// Info returns the latest published view of the round
func (s *Session) Info() *service.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]uint64, 0, len(s.snapshot.Players))
	for _, p := range s.snapshot.Players {
		players = append(players, p.ID)
	}

	return &service.SessionInfo{
		Location:  s.Location,
		Round:     s.Round,
		Mode:      s.Mode,
		StartedAt: s.StartedAt,
		Players:   players,
		State:     s.snapshot,
		Rankings:  s.rankings,
	}
}

// Done is closed once the session goroutine has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func rankEntries(ranking []engine.Player, names service.NameResolver) []service.RankEntry {
	entries := make([]service.RankEntry, 0, len(ranking))
	for i := range ranking {
		p := &ranking[i]
		entries = append(entries, service.RankEntry{
			Place: i + 1,
			ID:    p.ID,
			Name:  names.DisplayName(p.ID),
			Score: p.EffectiveScore(),
			Fruit: p.Score,
			Kills: p.Kills,
			Alive: !p.IsDead(),
		})
	}
	return entries
}
