package archetype

import (
	"math"
	"testing"

	"github.com/crtools/cr-companion/internal/cards"
)

// deck builds an eight-card deck from name/cost pairs.
func deck(entries ...any) []cards.Card {
	var out []cards.Card
	for i := 0; i < len(entries); i += 2 {
		out = append(out, cards.Card{
			Name:   entries[i].(string),
			Elixir: entries[i+1].(int),
		})
	}
	return out
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		deck []cards.Card
		want Archetype
	}{
		{
			name: "golem beatdown",
			deck: deck(
				"Golem", 8, "Night Witch", 4, "Baby Dragon", 4, "Lumberjack", 4,
				"Mega Minion", 3, "Tornado", 3, "Lightning", 6, "Elixir Collector", 6,
			),
			want: Beatdown,
		},
		{
			name: "hog cycle",
			deck: deck(
				"Hog Rider", 4, "Ice Spirit", 1, "Skeletons", 1, "Cannon", 3,
				"Musketeer", 4, "Fireball", 4, "The Log", 2, "Ice Golem", 2,
			),
			want: Cycle,
		},
		{
			name: "cheap deck without cycle enablers",
			deck: deck(
				"Goblins", 2, "Spear Goblins", 2, "Archers", 3, "Knight", 3,
				"Minions", 3, "Arrows", 3, "Goblin Gang", 3, "Bats", 2,
			),
			want: FastCycle,
		},
		{
			name: "midrange xbow siege",
			deck: deck(
				"X-Bow", 6, "Tesla", 4, "Archers", 3, "Knight", 3,
				"Fireball", 4, "Arrows", 3, "Mega Minion", 3, "Valkyrie", 4,
			),
			want: Siege,
		},
		{
			name: "midrange miner control",
			deck: deck(
				"Miner", 3, "Bowler", 5, "Electro Wizard", 4, "Tornado", 3,
				"Poison", 4, "Inferno Tower", 5, "Mega Minion", 3, "Valkyrie", 4,
			),
			want: Control,
		},
		{
			name: "no rule matches",
			deck: deck(
				"Knight", 3, "Valkyrie", 4, "Musketeer", 4, "Wizard", 5,
				"Witch", 5, "Arrows", 3, "Tesla", 4, "Minions", 3,
			),
			want: Hybrid,
		},
		{
			name: "incomplete deck",
			deck: deck("Hog Rider", 4, "Ice Spirit", 1),
			want: Unknown,
		},
		{
			name: "empty deck",
			deck: nil,
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.deck); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifier_OrderBreaksTies(t *testing.T) {
	c := NewClassifier(nil)

	// A cheap X-Bow deck matches both the cheap-deck rule and the siege
	// rule; the list order awards it to the earlier one.
	xbowCycle := deck(
		"X-Bow", 6, "Tesla", 4, "Ice Spirit", 1, "Skeletons", 1,
		"Archers", 3, "The Log", 2, "Fireball", 4, "Ice Golem", 2,
	)
	a := c.Analyze(xbowCycle)
	if a.SiegeCards == 0 {
		t.Fatal("test deck should count a siege card")
	}
	if got := c.Classify(xbowCycle); got != Cycle {
		t.Errorf("Classify() = %v, want Cycle to win the tie against Siege", got)
	}

	// A heavy siege deck matches both Beatdown and Siege; Beatdown is
	// listed first.
	heavySiege := deck(
		"X-Bow", 6, "P.E.K.K.A", 7, "Wizard", 5, "Bowler", 5,
		"Baby Dragon", 4, "Lightning", 6, "Tornado", 3, "Mega Minion", 3,
	)
	if got := c.Classify(heavySiege); got != Beatdown {
		t.Errorf("Classify() = %v, want Beatdown to win the tie against Siege", got)
	}
}

func TestClassifier_Analyze(t *testing.T) {
	c := NewClassifier(nil)

	d := deck(
		"Hog Rider", 4, "Ice Spirit", 1, "Skeletons", 1, "Cannon", 3,
		"Musketeer", 4, "Fireball", 4, "The Log", 2, "Ice Golem", 2,
	)
	a := c.Analyze(d)

	if a.WinConditions != 1 {
		t.Errorf("WinConditions = %d, want 1", a.WinConditions)
	}
	if a.CycleCards != 3 {
		t.Errorf("CycleCards = %d, want 3", a.CycleCards)
	}
	if a.SiegeCards != 0 {
		t.Errorf("SiegeCards = %d, want 0", a.SiegeCards)
	}
	if math.Abs(a.AverageElixir-2.625) > 1e-9 {
		t.Errorf("AverageElixir = %v, want 2.625", a.AverageElixir)
	}
}

func TestClassifier_CustomConfig(t *testing.T) {
	c := NewClassifier(&Config{
		WinConditions: []string{"Battering Ram"},
		SiegeCards:    []string{"Goblin Drill"},
	})

	d := deck(
		"Battering Ram", 4, "Bandit", 3, "Minions", 3, "Zap", 2,
		"Musketeer", 4, "Fireball", 4, "Knight", 3, "Archers", 3,
	)
	a := c.Analyze(d)
	if a.WinConditions != 1 {
		t.Errorf("WinConditions = %d, want 1 from custom list", a.WinConditions)
	}
	if a.CycleCards != 0 {
		t.Errorf("CycleCards = %d, want 0 with empty custom list", a.CycleCards)
	}
}

func TestClassifier_CaseInsensitiveRoles(t *testing.T) {
	c := NewClassifier(nil)

	d := deck(
		"hog rider", 4, "ICE SPIRIT", 1, "skeletons", 1, "Cannon", 3,
		"Musketeer", 4, "Fireball", 4, "the log", 2, "Ice Golem", 2,
	)
	a := c.Analyze(d)
	if a.WinConditions != 1 || a.CycleCards != 3 {
		t.Errorf("role counting is case-sensitive: %+v", a)
	}
}
