// Command analyze prints quick, human-readable statistics about archived
// rounds: rounds per mode, average round length, and per player rounds,
// wins, average score and kills.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
)

// PlayerStats accumulates one player's archived rounds
type PlayerStats struct {
	ID         uint64
	Name       string
	Rounds     int
	Wins       int
	TotalScore int
	TotalFruit int
	TotalKills int
}

func (p *PlayerStats) AverageScore() float64 {
	if p.Rounds == 0 {
		return 0
	}
	return float64(p.TotalScore) / float64(p.Rounds)
}

func (p *PlayerStats) AverageKills() float64 {
	if p.Rounds == 0 {
		return 0
	}
	return float64(p.TotalKills) / float64(p.Rounds)
}

// Report is the aggregate over every archived round
type Report struct {
	Rounds        int
	Modes         map[string]int
	TotalTicks    int
	TotalDuration time.Duration
	Players       []*PlayerStats
}

func (r *Report) AverageTicks() float64 {
	if r.Rounds == 0 {
		return 0
	}
	return float64(r.TotalTicks) / float64(r.Rounds)
}

func (r *Report) AverageDuration() time.Duration {
	if r.Rounds == 0 {
		return 0
	}
	return r.TotalDuration / time.Duration(r.Rounds)
}

// analyze aggregates summaries. Players are ordered by wins, then average
// score, then id.
func analyze(summaries []*service.Summary) *Report {
	report := &Report{Modes: make(map[string]int)}
	players := make(map[uint64]*PlayerStats)

	for _, s := range summaries {
		report.Rounds++
		report.Modes[s.Mode]++
		report.TotalTicks += s.Ticks
		if !s.StartedAt.IsZero() && s.EndedAt.After(s.StartedAt) {
			report.TotalDuration += s.Duration()
		}

		winners := make(map[uint64]bool, len(s.Outcome))
		for _, id := range s.Outcome {
			winners[id] = true
		}

		for _, entry := range s.Rankings {
			p, ok := players[entry.ID]
			if !ok {
				p = &PlayerStats{ID: entry.ID, Name: strconv.FormatUint(entry.ID, 10)}
				players[entry.ID] = p
			}
			if entry.Name != "" {
				p.Name = entry.Name
			}
			p.Rounds++
			p.TotalScore += entry.Score
			p.TotalFruit += entry.Fruit
			p.TotalKills += entry.Kills
			if winners[entry.ID] {
				p.Wins++
			}
		}
	}

	for _, p := range players {
		report.Players = append(report.Players, p)
	}
	sort.Slice(report.Players, func(i, j int) bool {
		a, b := report.Players[i], report.Players[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.AverageScore() != b.AverageScore() {
			return a.AverageScore() > b.AverageScore()
		}
		return a.ID < b.ID
	})

	return report
}

// loadSummaries reads every readable result in dir
func loadSummaries(dir string) ([]*service.Summary, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("results directory: %w", err)
	}

	archive, err := session.NewFileArchive(dir)
	if err != nil {
		return nil, err
	}

	ids, err := archive.ListAll()
	if err != nil {
		return nil, err
	}

	summaries := make([]*service.Summary, 0, len(ids))
	for _, id := range ids {
		s, err := archive.Load(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", id, err)
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func printReport(w io.Writer, r *Report, top int) {
	fmt.Fprintf(w, "Rounds: %d\n", r.Rounds)
	if r.Rounds == 0 {
		return
	}

	modes := make([]string, 0, len(r.Modes))
	for mode := range r.Modes {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	for _, mode := range modes {
		fmt.Fprintf(w, "  %s: %d\n", mode, r.Modes[mode])
	}

	fmt.Fprintf(w, "Average length: %.1f ticks (%s)\n\n", r.AverageTicks(), r.AverageDuration().Round(time.Second))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tROUNDS\tWINS\tAVG SCORE\tAVG KILLS\tFRUIT")
	for i, p := range r.Players {
		if top > 0 && i >= top {
			break
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%.1f\t%d\n", p.Name, p.Rounds, p.Wins, p.AverageScore(), p.AverageKills(), p.TotalFruit)
	}
	tw.Flush()
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Summarize archived Grid Snake rounds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "results-dir",
				Value:   "results",
				Usage:   "Directory of archived rounds",
				Sources: cli.EnvVars("RESULTS_DIR"),
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Only list the best N players (0 lists everyone)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			summaries, err := loadSummaries(cmd.String("results-dir"))
			if err != nil {
				return err
			}
			printReport(os.Stdout, analyze(summaries), int(cmd.Int("top")))
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
