package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

var (
	ErrRoundInProgress = service.ErrRoundInProgress
	ErrRoleNotAllowed  = service.ErrRoleNotAllowed
	ErrRepeatedPlayers = service.ErrRepeatedPlayers
	ErrUnknownMode     = service.ErrUnknownMode
	ErrTooFewPlayers   = service.ErrTooFewPlayers
	ErrTooManyPlayers  = service.ErrTooManyPlayers
	ErrSessionNotFound = service.ErrSessionNotFound

	ErrManagerClosed = errors.New("session manager is shut down")
)

const (
	// DefaultTickInterval is the pause between two ticks of a round
	DefaultTickInterval = 1001 * time.Millisecond

	defaultInboxSize = 64
)

// Option configures a Manager
type Option func(*Manager)

func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.interval = d
	}
}

func WithInboxSize(n int) Option {
	return func(m *Manager) {
		m.inboxSize = n
	}
}

// WithSink adds a receiver for frames and summaries
func WithSink(s service.Sink) Option {
	return func(m *Manager) {
		m.sinks = append(m.sinks, s)
	}
}

func WithResolver(r service.NameResolver) Option {
	return func(m *Manager) {
		m.names = r
	}
}

// WithGameOptions passes engine options to every new round
func WithGameOptions(opts ...engine.Option) Option {
	return func(m *Manager) {
		m.gameOpts = append(m.gameOpts, opts...)
	}
}

// idNames renders ids as decimal strings
type idNames struct{}

func (idNames) DisplayName(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// Manager runs at most one round per location
type Manager struct {
	sessions map[string]*Session
	archive  service.ResultArchive
	sinks    service.Sinks
	names    service.NameResolver
	gameOpts []engine.Option

	interval  time.Duration
	inboxSize int
	closed    bool
	mu        sync.RWMutex
}

// NewManager creates a session manager. archive may be nil.
func NewManager(archive service.ResultArchive, opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		archive:   archive,
		names:     idNames{},
		interval:  DefaultTickInterval,
		inboxSize: defaultInboxSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe adds a sink after construction
func (m *Manager) Subscribe(s service.Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Start validates a request and launches the round. The checks run in a
// fixed order and the first failure wins without changing any state.
func (m *Manager) Start(ctx context.Context, req service.StartRequest) (*service.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if _, running := m.sessions[req.Location]; running {
		return nil, fmt.Errorf("location %s: %w", req.Location, ErrRoundInProgress)
	}

	ids, err := roster(req)
	if err != nil {
		return nil, err
	}

	opts := append(append([]engine.Option(nil), m.gameOpts...), engine.WithStage(req.Stage))
	game, err := engine.NewGame(req.Mode, req.Requester, ids, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		Location:  req.Location,
		Round:     uuid.NewString(),
		Mode:      req.Mode,
		Stage:     req.Stage,
		StartedAt: time.Now(),
		game:      game,
		inbox:     make(chan service.Input, m.inboxSize),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	s.publish(game.State(), rankEntries(game.Rankings(), m.names))

	m.sessions[req.Location] = s
	go m.run(loopCtx, s)

	log.Info().
		Str("location", s.Location).
		Str("round", s.Round).
		Str("mode", s.Mode).
		Int("players", game.PlayerCount()).
		Msg("Round started")

	return s.Info(), nil
}

// roster validates the mentions and returns the player ids of the round
func roster(req service.StartRequest) ([]uint64, error) {
	seen := make(map[uint64]bool, len(req.Mentions))
	for _, mention := range req.Mentions {
		if mention.IsRole {
			return nil, ErrRoleNotAllowed
		}
	}
	for _, mention := range req.Mentions {
		if seen[mention.ID] {
			return nil, fmt.Errorf("player %d: %w", mention.ID, ErrRepeatedPlayers)
		}
		seen[mention.ID] = true
	}

	switch req.Mode {
	case engine.ModeSolo:
		return []uint64{req.Requester}, nil
	case engine.ModeSnake:
	default:
		return nil, service.UnknownMode(req.Mode)
	}

	ids := req.Players()
	if len(ids) < service.MinPlayers {
		return nil, fmt.Errorf("%d players: %w", len(ids), ErrTooFewPlayers)
	}
	if len(ids) > engine.MaxPlayers {
		return nil, fmt.Errorf("%d players: %w", len(ids), ErrTooManyPlayers)
	}
	return ids, nil
}

// run is the only goroutine touching s.game
func (m *Manager) run(ctx context.Context, s *Session) {
	defer close(s.done)
	defer s.cancel()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.release(s)
			log.Warn().Str("location", s.Location).Str("round", s.Round).Msg("Round aborted")
			return
		case <-ticker.C:
		}

		s.drain()
		result := s.game.Tick()

		rankings := rankEntries(s.game.Rankings(), m.names)
		s.publish(s.game.State(), rankings)

		m.currentSinks().Publish(&service.Frame{
			Location:   s.Location,
			Round:      s.Round,
			Stage:      s.Stage,
			Tick:       result.Tick,
			Board:      result.Board,
			Rankings:   rankings,
			Casualties: result.Casualties,
			Kills:      result.Kills,
		})

		if result.Done() {
			m.conclude(s, result, rankings)
			return
		}
	}
}

func (m *Manager) conclude(s *Session, result engine.TickResult, rankings []service.RankEntry) {
	summary := &service.Summary{
		ID:        s.Round,
		Location:  s.Location,
		Mode:      s.Mode,
		Stage:     s.Stage,
		StartedAt: s.StartedAt,
		EndedAt:   time.Now(),
		Ticks:     result.Tick,
		Outcome:   result.Outcome,
		Rankings:  rankings,
		Board:     result.Board,
	}
	for _, id := range result.Outcome {
		summary.OutcomeNames = append(summary.OutcomeNames, m.names.DisplayName(id))
	}

	m.currentSinks().Conclude(summary)

	if m.archive != nil {
		if err := m.archive.Save(summary); err != nil {
			log.Error().Err(err).Str("round", s.Round).Msg("Failed to archive result")
		}
	}

	m.release(s)

	log.Info().
		Str("location", s.Location).
		Str("round", s.Round).
		Int("ticks", result.Tick).
		Strs("outcome", summary.OutcomeNames).
		Msg("Round ended")
}

// release frees the location if s still holds it
func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.Location] == s {
		delete(m.sessions, s.Location)
	}
}

func (m *Manager) currentSinks() service.Sinks {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(service.Sinks(nil), m.sinks...)
}

// Send queues an input for the round at location. It never blocks and
// reports false when the input was dropped.
func (m *Manager) Send(location string, in service.Input) bool {
	m.mu.RLock()
	s, exists := m.sessions[location]
	m.mu.RUnlock()

	if !exists {
		return false
	}
	return s.send(in)
}

// Get returns the latest view of the round at location
func (m *Manager) Get(location string) (*service.SessionInfo, error) {
	s, err := m.Session(location)
	if err != nil {
		return nil, err
	}
	return s.Info(), nil
}

// Session returns the running session at location
func (m *Manager) Session(location string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[location]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns every running round
func (m *Manager) List() []*service.SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	result := make([]*service.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, s.Info())
	}
	return result
}

// Count returns the number of running rounds
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops every running round and waits for the loops to exit.
// Loops still running when ctx expires are reported together.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}

	var result *multierror.Error
	for _, s := range sessions {
		select {
		case <-s.done:
		case <-ctx.Done():
			result = multierror.Append(result, fmt.Errorf("location %s: %w", s.Location, ctx.Err()))
		}
	}
	return result.ErrorOrNil()
}
