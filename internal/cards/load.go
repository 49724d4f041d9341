package cards

import (
	"github.com/charmbracelet/log"
)

// Load builds a catalog from the file at path. If the file is missing or
// unparseable the embedded fallback table is used instead so the companion
// keeps working in degraded mode; that case is logged as a warning, not
// returned as an error.
func Load(path string, logger *log.Logger) *Catalog {
	if path != "" {
		entries, err := parseCatalogFile(path)
		if err == nil {
			logger.Info("card catalog loaded", "path", path, "cards", len(entries))
			return NewCatalog(entries)
		}
		logger.Warn("card catalog unavailable, using built-in fallback", "path", path, "error", err)
	} else {
		logger.Warn("no card catalog configured, using built-in fallback")
	}
	return NewCatalog(fallbackCards())
}

// fallbackCards returns the embedded catalog of common cards. It covers
// enough of the roster that tracking stays useful when the real catalog
// file is absent. Costs follow the live game.
func fallbackCards() []Card {
	return []Card{
		{Name: "Knight", Elixir: 3, Type: TypeTroop},
		{Name: "Archers", Elixir: 3, Type: TypeTroop},
		{Name: "Giant", Elixir: 5, Type: TypeTroop},
		{Name: "Golem", Elixir: 8, Type: TypeTroop},
		{Name: "P.E.K.K.A", Elixir: 7, Type: TypeTroop},
		{Name: "Mini P.E.K.K.A", Elixir: 4, Type: TypeTroop},
		{Name: "Mega Knight", Elixir: 7, Type: TypeTroop},
		{Name: "Prince", Elixir: 5, Type: TypeTroop},
		{Name: "Wizard", Elixir: 5, Type: TypeTroop},
		{Name: "Witch", Elixir: 5, Type: TypeTroop},
		{Name: "Musketeer", Elixir: 4, Type: TypeTroop},
		{Name: "Hog Rider", Elixir: 4, Type: TypeTroop},
		{Name: "Valkyrie", Elixir: 4, Type: TypeTroop},
		{Name: "Baby Dragon", Elixir: 4, Type: TypeTroop},
		{Name: "Skeletons", Elixir: 1, Type: TypeTroop},
		{Name: "Ice Spirit", Elixir: 1, Type: TypeTroop},
		{Name: "Fireball", Elixir: 4, Type: TypeSpell},
		{Name: "Arrows", Elixir: 3, Type: TypeSpell},
		{Name: "Zap", Elixir: 2, Type: TypeSpell},
		{Name: "The Log", Elixir: 2, Type: TypeSpell},
		{Name: "Lightning", Elixir: 6, Type: TypeSpell},
		{Name: "Rocket", Elixir: 6, Type: TypeSpell},
		{Name: "Inferno Tower", Elixir: 5, Type: TypeBuilding},
		{Name: "Cannon", Elixir: 3, Type: TypeBuilding},
		{Name: "Tesla", Elixir: 4, Type: TypeBuilding},
		{Name: "Elixir Collector", Elixir: 6, Type: TypeBuilding},
	}
}
