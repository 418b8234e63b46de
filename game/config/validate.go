package config

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-multierror"

	"github.com/wricardo/gridsnake/game/service"
)

// verbPattern matches a single fmt verb, "%%" included
var verbPattern = regexp.MustCompile(`%[-+# 0]*[0-9]*(?:\.[0-9]+)?[a-zA-Z%]`)

type field struct {
	name  string
	value string
	verbs string // expected verb letters, in order
}

func catalogFields(c *service.Catalog) []field {
	return []field{
		{"help", c.Help, ""},
		{"game_over", c.GameOver, ""},
		{"round_in_progress", c.RoundInProgress, "s"},
		{"role_not_allowed", c.RoleNotAllowed, ""},
		{"invalid_mention", c.InvalidMention, ""},
		{"repeated_players", c.RepeatedPlayers, ""},
		{"unknown_mode", c.UnknownMode, "s"},
		{"too_few_players", c.TooFewPlayers, "d"},
		{"too_many_players", c.TooManyPlayers, "d"},
		{"congrats", c.Congrats, ""},
		{"lasted_longest", c.LastedLongest, "s"},
		{"ranking_header", c.RankingHeader, "d"},
		{"alive", c.Alive, ""},
		{"dead", c.Dead, ""},
	}
}

// ValidateCatalog checks that every text is present and that format strings
// take exactly the arguments they are rendered with. All problems are reported.
func ValidateCatalog(c *service.Catalog) error {
	if c == nil {
		return fmt.Errorf("catalog cannot be nil")
	}

	var result *multierror.Error
	for _, f := range catalogFields(c) {
		if f.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s: text is required", f.name))
			continue
		}

		got := ""
		for _, verb := range verbPattern.FindAllString(f.value, -1) {
			if verb == "%%" {
				continue
			}
			got += verb[len(verb)-1:]
		}
		if got != f.verbs {
			result = multierror.Append(result, fmt.Errorf("%s: expected verbs %q, got %q", f.name, f.verbs, got))
		}
	}
	return result.ErrorOrNil()
}
