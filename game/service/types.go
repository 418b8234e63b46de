package service

import (
	"time"

	"github.com/wricardo/gridsnake/game/engine"
)

// Mention is a user or role reference attached to a start request
type Mention struct {
	ID     uint64 `json:"id,string"`
	IsRole bool   `json:"is_role,omitempty"`
}

// StartRequest asks for a new round at a location
type StartRequest struct {
	Location  string    `json:"location"`
	Mode      string    `json:"mode"`
	Requester uint64    `json:"requester,string"`
	Mentions  []Mention `json:"mentions,omitempty"`
	Stage     uint64    `json:"stage,omitempty,string"`
}

// Players returns the mentioned ids in order
func (r StartRequest) Players() []uint64 {
	ids := make([]uint64, 0, len(r.Mentions))
	for _, m := range r.Mentions {
		ids = append(ids, m.ID)
	}
	return ids
}

// Input is one asynchronous direction (or cancel) event
type Input struct {
	PlayerID uint64        `json:"player_id,string"`
	Action   engine.Action `json:"action"`
}

// RankEntry is one line of a ranking
type RankEntry struct {
	Place int    `json:"place"`
	ID    uint64 `json:"id,string"`
	Name  string `json:"name,omitempty"`
	Score int    `json:"score"`
	Fruit int    `json:"fruit"`
	Kills int    `json:"kills"`
	Alive bool   `json:"alive"`
}

// SessionInfo provides information about a running round
type SessionInfo struct {
	Location  string            `json:"location"`
	Round     string            `json:"round"`
	Mode      string            `json:"mode"`
	StartedAt time.Time         `json:"started_at"`
	Players   []uint64          `json:"players"`
	State     *engine.GameState `json:"state"`
	Rankings  []RankEntry       `json:"rankings"`
}

// Frame is published after every tick of a running round
type Frame struct {
	Location   string             `json:"location"`
	Round      string             `json:"round"`
	Stage      uint64             `json:"stage,omitempty,string"`
	Tick       int                `json:"tick"`
	Board      string             `json:"board"`
	Rankings   []RankEntry        `json:"rankings"`
	Casualties []uint64           `json:"casualties,omitempty"`
	Kills      []engine.KillEvent `json:"kills,omitempty"`
}

// Summary is the terminal payload of a finished round
type Summary struct {
	ID           string      `json:"id"`
	Location     string      `json:"location"`
	Mode         string      `json:"mode"`
	Stage        uint64      `json:"stage,omitempty,string"`
	StartedAt    time.Time   `json:"started_at"`
	EndedAt      time.Time   `json:"ended_at"`
	Ticks        int         `json:"ticks"`
	Outcome      []uint64    `json:"outcome"`
	OutcomeNames []string    `json:"outcome_names"`
	Rankings     []RankEntry `json:"rankings"`
	Board        string      `json:"board"`
}

// Duration returns how long the round ran
func (s *Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Catalog holds every user-visible text. RoundInProgress, UnknownMode and
// LastedLongest take one %s; TooFewPlayers, TooManyPlayers and RankingHeader
// take one %d.
type Catalog struct {
	Name            string `json:"name" yaml:"name"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	Help            string `json:"help" yaml:"help"`
	GameOver        string `json:"game_over" yaml:"game_over"`
	RoundInProgress string `json:"round_in_progress" yaml:"round_in_progress"`
	RoleNotAllowed  string `json:"role_not_allowed" yaml:"role_not_allowed"`
	InvalidMention  string `json:"invalid_mention" yaml:"invalid_mention"`
	RepeatedPlayers string `json:"repeated_players" yaml:"repeated_players"`
	UnknownMode     string `json:"unknown_mode" yaml:"unknown_mode"`
	TooFewPlayers   string `json:"too_few_players" yaml:"too_few_players"`
	TooManyPlayers  string `json:"too_many_players" yaml:"too_many_players"`
	Congrats        string `json:"congrats" yaml:"congrats"`
	LastedLongest   string `json:"lasted_longest" yaml:"lasted_longest"`
	RankingHeader   string `json:"ranking_header" yaml:"ranking_header"`
	Alive           string `json:"alive" yaml:"alive"`
	Dead            string `json:"dead" yaml:"dead"`
}

// CatalogInfo describes a catalog file on disk
type CatalogInfo struct {
	Filename    string `json:"filename"`
	CatalogID   string `json:"catalog_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListOptions configures session and result listings
type ListOptions struct {
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}
