package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/gridsnake/game/engine"
)

// RejectedError is a start request turned down with a user-facing message
type RejectedError struct {
	Reason  error
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

func (e *RejectedError) Unwrap() error {
	return e.Reason
}

// RejectionMessage renders the catalog text for a start rejection
func RejectionMessage(c *Catalog, err error, location string) string {
	switch {
	case errors.Is(err, ErrRoundInProgress):
		return fmt.Sprintf(c.RoundInProgress, location)
	case errors.Is(err, ErrRoleNotAllowed):
		return c.RoleNotAllowed
	case errors.Is(err, ErrInvalidMention):
		return c.InvalidMention
	case errors.Is(err, ErrRepeatedPlayers):
		return c.RepeatedPlayers
	case errors.Is(err, ErrUnknownMode), errors.Is(err, engine.ErrUnknownMode):
		return fmt.Sprintf(c.UnknownMode, modeOf(err))
	case errors.Is(err, ErrTooFewPlayers):
		return fmt.Sprintf(c.TooFewPlayers, MinPlayers)
	case errors.Is(err, ErrTooManyPlayers), errors.Is(err, engine.ErrTooManyPlayers):
		return fmt.Sprintf(c.TooManyPlayers, engine.MaxPlayers)
	default:
		return err.Error()
	}
}

// modeError carries the rejected mode name
type modeError struct {
	mode string
}

func (e *modeError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownMode, e.mode)
}

func (e *modeError) Unwrap() error {
	return ErrUnknownMode
}

// UnknownMode returns an ErrUnknownMode carrying the offending mode
func UnknownMode(mode string) error {
	return &modeError{mode: mode}
}

func modeOf(err error) string {
	var me *modeError
	if errors.As(err, &me) {
		return me.mode
	}
	return ""
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithCatalogName selects a named catalog instead of the default one
func WithCatalogName(name string) Option {
	return func(s *gameServiceImpl) {
		s.catalogName = name
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions    SessionManager
	catalogs    CatalogManager
	archive     ResultArchive
	catalogName string
}

// NewGameService creates a new game service instance. archive may be nil.
func NewGameService(sessions SessionManager, catalogs CatalogManager, archive ResultArchive, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		catalogs: catalogs,
		archive:  archive,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRound validates and starts a round, turning rejections into catalog messages
func (s *gameServiceImpl) StartRound(ctx context.Context, req StartRequest) (*SessionInfo, error) {
	info, err := s.sessions.Start(ctx, req)
	if err != nil {
		log.Debug().Err(err).Str("location", req.Location).Str("mode", req.Mode).Msg("Start rejected")
		return nil, &RejectedError{
			Reason:  err,
			Message: RejectionMessage(s.Catalog(), err, req.Location),
		}
	}
	return info, nil
}

// SendInput queues an input for the round at location. Unknown locations
// and full inboxes report false without an error.
func (s *gameServiceImpl) SendInput(ctx context.Context, location string, in Input) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.sessions.Send(location, in), nil
}

func (s *gameServiceImpl) GetSession(ctx context.Context, location string) (*SessionInfo, error) {
	info, err := s.sessions.Get(location)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", location, err)
	}
	return info, nil
}

// ListSessions returns running rounds sorted by start time
func (s *gameServiceImpl) ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error) {
	sessions := s.sessions.List()

	sort.Slice(sessions, func(i, j int) bool {
		if opts.Order == "desc" {
			return sessions[i].StartedAt.After(sessions[j].StartedAt)
		}
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	if opts.Limit > 0 && len(sessions) > opts.Limit {
		sessions = sessions[:opts.Limit]
	}
	return sessions, nil
}

func (s *gameServiceImpl) GetRankings(ctx context.Context, location string) ([]RankEntry, error) {
	info, err := s.GetSession(ctx, location)
	if err != nil {
		return nil, err
	}
	return info.Rankings, nil
}

func (s *gameServiceImpl) GetBoard(ctx context.Context, location string) (string, error) {
	info, err := s.GetSession(ctx, location)
	if err != nil {
		return "", err
	}
	return info.State.Board, nil
}

// ListResults returns archived summaries, newest first unless asked otherwise
func (s *gameServiceImpl) ListResults(ctx context.Context, opts ListOptions) ([]*Summary, error) {
	if s.archive == nil {
		return []*Summary{}, nil
	}

	ids, err := s.archive.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	results := make([]*Summary, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary, err := s.archive.Load(id)
		if err != nil {
			log.Warn().Err(err).Str("round", id).Msg("Skipping unreadable result")
			continue
		}
		results = append(results, summary)
	}

	sort.Slice(results, func(i, j int) bool {
		if opts.Order == "asc" {
			return results[i].EndedAt.Before(results[j].EndedAt)
		}
		return results[i].EndedAt.After(results[j].EndedAt)
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (s *gameServiceImpl) GetResult(ctx context.Context, id string) (*Summary, error) {
	if s.archive == nil {
		return nil, ErrResultNotFound
	}
	summary, err := s.archive.Load(id)
	if err != nil {
		return nil, fmt.Errorf("result %s: %w", id, err)
	}
	return summary, nil
}

// Catalog returns the active message catalog
func (s *gameServiceImpl) Catalog() *Catalog {
	if s.catalogName != "" {
		c, err := s.catalogs.LoadCatalog(s.catalogName)
		if err == nil {
			return c
		}
		log.Warn().Err(err).Str("catalog", s.catalogName).Msg("Falling back to default catalog")
	}
	return s.catalogs.GetDefault()
}

func (s *gameServiceImpl) Help(ctx context.Context) string {
	return s.Catalog().Help
}
