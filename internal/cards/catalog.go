// Package cards provides card metadata lookup for the companion: a catalog
// mapping card names to elixir cost and card type, loaded from a JSON file
// with an embedded fallback table.
package cards

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// CardType is a coarse card classification. It is informational only; the
// estimator never branches on it.
type CardType string

const (
	TypeTroop    CardType = "troop"
	TypeSpell    CardType = "spell"
	TypeBuilding CardType = "building"
)

// Card is an immutable catalog entry.
type Card struct {
	Name   string   `json:"name"`
	Elixir int      `json:"elixir"`
	Type   CardType `json:"type"`
}

// Catalog maps card names to their metadata. Lookups are case-insensitive;
// the canonical name is the one the catalog was loaded with.
//
// The catalog may be swapped wholesale when the backing file changes (see
// Watcher); individual entries are never mutated.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]Card // keyed by lowercase name
}

// NewCatalog creates a catalog from a list of cards. Entries with an empty
// name or a non-positive elixir cost are skipped: a zero-cost card cannot be
// priced by the estimator and would poison the dedup filter.
func NewCatalog(entries []Card) *Catalog {
	c := &Catalog{byName: make(map[string]Card, len(entries))}
	c.replace(entries)
	return c
}

// Lookup returns the card for the given name, case-insensitively.
func (c *Catalog) Lookup(name string) (Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	card, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return card, ok
}

// Len returns the number of cards in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

// Cards returns all catalog entries sorted by name.
func (c *Catalog) Cards() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Card, 0, len(c.byName))
	for _, card := range c.byName {
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) replace(entries []Card) {
	byName := make(map[string]Card, len(entries))
	for _, card := range entries {
		if card.Name == "" || card.Elixir <= 0 {
			continue
		}
		byName[strings.ToLower(card.Name)] = card
	}

	c.mu.Lock()
	c.byName = byName
	c.mu.Unlock()
}

// ReloadFromFile re-reads the catalog file and swaps the card table
// atomically. The previous table stays in place if the file cannot be parsed.
func (c *Catalog) ReloadFromFile(path string) error {
	entries, err := parseCatalogFile(path)
	if err != nil {
		return err
	}
	c.replace(entries)
	return nil
}

// catalogFile matches the on-disk catalog shape. The file may be either a
// bare JSON array of cards or an object with a "cards" key; both occur in
// the wild.
type catalogFile struct {
	Cards []fileCard `json:"cards"`
}

type fileCard struct {
	Name   string `json:"name"`
	Elixir int    `json:"elixir"`
	Type   string `json:"type"`
}

func parseCatalogFile(path string) ([]Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var list []fileCard
	if err := json.Unmarshal(data, &list); err != nil {
		var wrapped catalogFile
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
		}
		list = wrapped.Cards
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no cards", path)
	}

	entries := make([]Card, 0, len(list))
	for _, fc := range list {
		entries = append(entries, Card{
			Name:   fc.Name,
			Elixir: fc.Elixir,
			Type:   normalizeType(fc.Type),
		})
	}
	return entries, nil
}

// normalizeType folds the catalog file's finer-grained labels (melee,
// ranged, tank, ...) into the three types the companion cares about.
func normalizeType(t string) CardType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "spell":
		return TypeSpell
	case "building":
		return TypeBuilding
	default:
		return TypeTroop
	}
}
