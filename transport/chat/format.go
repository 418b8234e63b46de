package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

var medals = map[int]string{
	1: ":first_place:",
	2: ":second_place:",
	3: ":third_place:",
}

// FormatRanking renders the ranking block shown above the board
func FormatRanking(c *service.Catalog, entries []service.RankEntry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(c.RankingHeader, engine.PointsPerKill))
	sb.WriteByte('\n')

	for _, e := range entries {
		place, ok := medals[e.Place]
		if !ok {
			place = strconv.Itoa(e.Place)
		}
		status := c.Alive
		if !e.Alive {
			status = c.Dead
		}
		fmt.Fprintf(&sb, "    %s: <@%d>, %d points | %d kills, %s\n", place, e.ID, e.Score, e.Kills, status)
	}
	return sb.String()
}

// FormatFrame renders a running round: ranking, then the board in a code block
func FormatFrame(c *service.Catalog, frame *service.Frame) string {
	return FormatRanking(c, frame.Rankings) + "\n```\n" + frame.Board + "\n```"
}

// FormatSummary renders the final message of a round
func FormatSummary(c *service.Catalog, summary *service.Summary) string {
	var sb strings.Builder
	sb.WriteString("```\n")
	sb.WriteString(c.GameOver)
	sb.WriteString("\n```\n")
	sb.WriteString(c.Congrats)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(c.LastedLongest, strings.Join(summary.OutcomeNames, ", ")))
	sb.WriteString("\n\n")
	sb.WriteString(FormatRanking(c, summary.Rankings))
	return sb.String()
}
