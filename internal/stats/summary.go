// Package stats computes aggregate statistics over persisted match history.
package stats

import (
	"sort"
	"time"

	"github.com/crtools/cr-companion/internal/history"
)

// ArchetypeCount is one entry of the archetype frequency table.
type ArchetypeCount struct {
	Archetype string
	Matches   int
}

// Summary aggregates a set of matches.
type Summary struct {
	Matches         int
	Completed       int // matches with a recorded end time
	TotalPlays      int
	AvgPlays        float64
	AvgDuration     time.Duration // over completed matches only
	Archetypes      []ArchetypeCount
	DecksRevealed   int
	RevealedShare   float64 // share of matches with a fully revealed deck, 0-1
}

// Summarize computes aggregates over matches. Order does not matter.
func Summarize(matches []history.Match) Summary {
	s := Summary{Matches: len(matches)}
	if len(matches) == 0 {
		return s
	}

	var totalDuration time.Duration
	byArchetype := make(map[string]int)

	for _, m := range matches {
		s.TotalPlays += m.Plays

		if m.EndedAt != nil {
			s.Completed++
			totalDuration += m.EndedAt.Sub(m.StartedAt)
		}
		if len(m.Deck) > 0 {
			s.DecksRevealed++
		}
		if m.Archetype != "" && m.Archetype != "Unknown" {
			byArchetype[m.Archetype]++
		}
	}

	s.AvgPlays = float64(s.TotalPlays) / float64(len(matches))
	if s.Completed > 0 {
		s.AvgDuration = totalDuration / time.Duration(s.Completed)
	}
	s.RevealedShare = float64(s.DecksRevealed) / float64(len(matches))

	s.Archetypes = make([]ArchetypeCount, 0, len(byArchetype))
	for name, count := range byArchetype {
		s.Archetypes = append(s.Archetypes, ArchetypeCount{Archetype: name, Matches: count})
	}
	sort.Slice(s.Archetypes, func(i, j int) bool {
		if s.Archetypes[i].Matches != s.Archetypes[j].Matches {
			return s.Archetypes[i].Matches > s.Archetypes[j].Matches
		}
		return s.Archetypes[i].Archetype < s.Archetypes[j].Archetype
	})

	return s
}
