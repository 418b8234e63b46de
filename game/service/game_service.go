package service

import (
	"context"
	"errors"
	"time"
)

// Start rejections, checked in this order
var (
	ErrRoundInProgress = errors.New("round already in progress")
	ErrRoleNotAllowed  = errors.New("a role can't play")
	ErrInvalidMention  = errors.New("invalid mention")
	ErrRepeatedPlayers = errors.New("repeated players")
	ErrUnknownMode     = errors.New("unknown mode")
	ErrTooFewPlayers   = errors.New("too few players")
	ErrTooManyPlayers  = errors.New("too many players")

	ErrSessionNotFound = errors.New("no round running at location")
	ErrResultNotFound  = errors.New("result not found")
)

// MinPlayers is the smallest multiplayer roster
const MinPlayers = 2

// GameService defines all game-related operations
type GameService interface {
	// Rounds
	StartRound(ctx context.Context, req StartRequest) (*SessionInfo, error)
	SendInput(ctx context.Context, location string, in Input) (bool, error)
	GetSession(ctx context.Context, location string) (*SessionInfo, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error)
	GetRankings(ctx context.Context, location string) ([]RankEntry, error)
	GetBoard(ctx context.Context, location string) (string, error)

	// Finished rounds
	ListResults(ctx context.Context, opts ListOptions) ([]*Summary, error)
	GetResult(ctx context.Context, id string) (*Summary, error)

	// Texts
	Catalog() *Catalog
	Help(ctx context.Context) string
}

// SessionManager runs rounds, one per location
type SessionManager interface {
	Start(ctx context.Context, req StartRequest) (*SessionInfo, error)
	Send(location string, in Input) bool
	Get(location string) (*SessionInfo, error)
	List() []*SessionInfo
}

// CatalogManager loads message catalogs
type CatalogManager interface {
	LoadCatalog(name string) (*Catalog, error)
	ListCatalogs() ([]*CatalogInfo, error)
	GetDefault() *Catalog
	SaveCatalog(name string, catalog *Catalog) error
}

// ResultArchive stores summaries of finished rounds
type ResultArchive interface {
	Save(summary *Summary) error
	Load(id string) (*Summary, error)
	Delete(id string) error
	ListAll() ([]string, error)
	Exists(id string) bool
	Prune(maxAge time.Duration) (int, error)
}

// Sink receives what a running round produces
type Sink interface {
	Publish(frame *Frame)
	Conclude(summary *Summary)
}

// Sinks fans out to every sink in order
type Sinks []Sink

func (s Sinks) Publish(frame *Frame) {
	for _, sink := range s {
		sink.Publish(frame)
	}
}

func (s Sinks) Conclude(summary *Summary) {
	for _, sink := range s {
		sink.Conclude(summary)
	}
}

// NameResolver maps a player id to a display name
type NameResolver interface {
	DisplayName(id uint64) string
}
