package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/crtools/cr-companion/internal/history"
	"github.com/crtools/cr-companion/internal/stats"
)

// HistoryCmd prints recent matches from the history database.
type HistoryCmd struct {
	Limit int    `short:"n" default:"10" help:"Number of matches to show."`
	DB    string `help:"Path to the history database (defaults to the configured one)."`
	Stats bool   `help:"Print aggregate statistics instead of the match list."`
}

// Run implements the kong command.
func (h *HistoryCmd) Run(rc *runContext) error {
	path := h.DB
	if path == "" {
		path = historyPath(rc.config)
	}

	store, err := history.Open(history.DefaultConfig(path))
	if err != nil {
		return err
	}
	defer store.Close()

	matches, err := store.RecentMatches(h.Limit)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Println("no matches recorded yet")
		return nil
	}

	if h.Stats {
		return printStats(matches)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tPLAYS\tARCHETYPE\tDECK")
	for _, m := range matches {
		deck := ""
		for i, c := range m.Deck {
			if i > 0 {
				deck += ", "
			}
			deck += c.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			m.ID, m.StartedAt.Local().Format("2006-01-02 15:04"), m.Plays, m.Archetype, deck)
	}
	return w.Flush()
}

func printStats(matches []history.Match) error {
	s := stats.Summarize(matches)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Matches\t%d\n", s.Matches)
	fmt.Fprintf(w, "Completed\t%d\n", s.Completed)
	fmt.Fprintf(w, "Total plays\t%d\n", s.TotalPlays)
	fmt.Fprintf(w, "Avg plays per match\t%.1f\n", s.AvgPlays)
	if s.Completed > 0 {
		fmt.Fprintf(w, "Avg match duration\t%s\n", s.AvgDuration.Round(time.Second))
	}
	fmt.Fprintf(w, "Decks fully revealed\t%d (%.0f%%)\n", s.DecksRevealed, s.RevealedShare*100)
	if len(s.Archetypes) > 0 {
		fmt.Fprintln(w, "\nARCHETYPE\tMATCHES")
		for _, a := range s.Archetypes {
			fmt.Fprintf(w, "%s\t%d\n", a.Archetype, a.Matches)
		}
	}
	return w.Flush()
}
