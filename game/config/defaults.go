package config

import (
	"strings"

	"github.com/wricardo/gridsnake/game/service"
)

var gameOverBanner = strings.Join([]string{
	"   _____                         ____",
	" / ____|                       / __ \\",
	"| |  __  __ _ _ __ ___   ___  | |  | |_   _____ _ __",
	"| | |_ |/ _` | '_ ` _ \\ / _ \\ | |  | \\ \\ / / _ \\ '__|",
	"| |__| | (_| | | | | | |  __/ | |__| |\\ V /  __/ |",
	" \\_____|\\__,_|_| |_| |_|\\___|  \\____/  \\_/ \\___|_|",
}, "\n")

const helpText = "**Welcome to the wonderful world of Grid Snake!**\n" +
	"\n" +
	"> **Commands**\n" +
	"\n" +
	"Normal (multiplayer)\n" +
	"`::snake @you @someoneElse @up-to-5-people! @you-get-the-idea`\n" +
	"\n" +
	"Solo\n" +
	"`::solo`\n" +
	"\n" +
	"Help\n" +
	"`::help` (I think that's intuitive enough)\n" +
	"\n" +
	"Steer with ⬆ ➡ ⬇ ⬅ and give up with ❌"

// DefaultCatalog returns a fresh copy of the built-in catalog
func DefaultCatalog() *service.Catalog {
	return &service.Catalog{
		Name:            "default",
		Description:     "Built-in English texts",
		Help:            helpText,
		GameOver:        gameOverBanner,
		RoundInProgress: ":x: Round already in progress in channel <#%s>",
		RoleNotAllowed:  ":x: A role can't play snake",
		InvalidMention:  ":x: Invalid mention",
		RepeatedPlayers: ":x: Repeating users",
		UnknownMode:     ":x: Unknown mode %s",
		TooFewPlayers:   ":x: Please enter at least %d users",
		TooManyPlayers:  ":x: Play is currently limited to %d users",
		Congrats:        "Congrats!",
		LastedLongest:   "Lasted the longest: %s",
		RankingHeader:   "**Ranking** (`fruit = 1 | kill = %d`)",
		Alive:           ":white_check_mark: alive",
		Dead:            ":x: dead",
	}
}
