// Package strategy provides automated players that drive a blackjack table
// in simulations.
package strategy

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/lox/densistedon/internal/blackjack"
)

// Decision is what a strategy wants to do next, with a short reason for logs
type Decision struct {
	Action    blackjack.Action
	Reasoning string
}

// Strategy decides the player's next action during the Player phase
type Strategy interface {
	Name() string
	Decide(view blackjack.Snapshot, valid []blackjack.Action) Decision
}

var registry = map[string]func(rng *rand.Rand) Strategy{
	"basic":    func(*rand.Rand) Strategy { return Basic{} },
	"dealer":   func(*rand.Rand) Strategy { return DealerMimic{} },
	"cautious": func(*rand.Rand) Strategy { return Cautious{} },
	"random":   func(rng *rand.Rand) Strategy { return NewRandom(rng) },
}

// Names lists the registered strategy names
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName resolves a strategy. The rng is only used by strategies that need one.
func ByName(name string, rng *rand.Rand) (Strategy, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(rng), nil
}

// choose returns preferred if it is valid, otherwise fallback
func choose(preferred, fallback blackjack.Action, valid []blackjack.Action, reasoning string) Decision {
	if slices.Contains(valid, preferred) {
		return Decision{Action: preferred, Reasoning: reasoning}
	}
	return Decision{Action: fallback, Reasoning: reasoning + " (fallback)"}
}

func upCard(view blackjack.Snapshot) int {
	if len(view.Dealer) == 0 {
		return 0
	}
	return view.Dealer[0].Rank.Points()
}

// DealerMimic plays the dealer's own rule: hit below 17, never double
type DealerMimic struct{}

func (DealerMimic) Name() string { return "dealer" }

func (DealerMimic) Decide(view blackjack.Snapshot, valid []blackjack.Action) Decision {
	if view.PlayerValue.Total < 17 {
		return choose(blackjack.ActionHit, blackjack.ActionStand, valid, "below 17")
	}
	return choose(blackjack.ActionStand, blackjack.ActionHit, valid, "17 or more")
}

// Cautious never risks a bust: it only hits when no single card can break it
type Cautious struct{}

func (Cautious) Name() string { return "cautious" }

func (Cautious) Decide(view blackjack.Snapshot, valid []blackjack.Action) Decision {
	v := view.PlayerValue
	if v.Total <= 11 || (v.Soft && v.Total <= 17) {
		return choose(blackjack.ActionHit, blackjack.ActionStand, valid, "cannot bust")
	}
	return choose(blackjack.ActionStand, blackjack.ActionHit, valid, "could bust")
}

// Basic follows a condensed S17 basic strategy chart without splits
type Basic struct{}

func (Basic) Name() string { return "basic" }

func (Basic) Decide(view blackjack.Snapshot, valid []blackjack.Action) Decision {
	total, soft, up := view.PlayerValue.Total, view.PlayerValue.Soft, upCard(view)
	canDouble := slices.Contains(valid, blackjack.ActionDouble)

	if soft {
		switch {
		case total >= 19:
			return choose(blackjack.ActionStand, blackjack.ActionHit, valid, "soft 19+")
		case total == 18 && canDouble && up >= 3 && up <= 6:
			return choose(blackjack.ActionDouble, blackjack.ActionStand, valid, "soft 18 vs weak dealer")
		case total == 18 && up <= 8:
			return choose(blackjack.ActionStand, blackjack.ActionHit, valid, "soft 18")
		case total == 17 && canDouble && up >= 3 && up <= 6:
			return choose(blackjack.ActionDouble, blackjack.ActionHit, valid, "soft 17 vs weak dealer")
		default:
			return choose(blackjack.ActionHit, blackjack.ActionStand, valid, "soft total")
		}
	}

	switch {
	case total >= 17:
		return choose(blackjack.ActionStand, blackjack.ActionHit, valid, "hard 17+")
	case total >= 13 && up <= 6:
		return choose(blackjack.ActionStand, blackjack.ActionHit, valid, "stiff vs weak dealer")
	case total == 12 && up >= 4 && up <= 6:
		return choose(blackjack.ActionStand, blackjack.ActionHit, valid, "12 vs 4-6")
	case total == 11 && canDouble && up <= 10:
		return choose(blackjack.ActionDouble, blackjack.ActionHit, valid, "double 11")
	case total == 10 && canDouble && up <= 9:
		return choose(blackjack.ActionDouble, blackjack.ActionHit, valid, "double 10")
	case total == 9 && canDouble && up >= 3 && up <= 6:
		return choose(blackjack.ActionDouble, blackjack.ActionHit, valid, "double 9")
	default:
		return choose(blackjack.ActionHit, blackjack.ActionStand, valid, "hit")
	}
}

// Random picks uniformly among the valid actions
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random strategy; a nil rng uses the global source
func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Decide(view blackjack.Snapshot, valid []blackjack.Action) Decision {
	if len(valid) == 0 {
		return Decision{Action: blackjack.ActionStand, Reasoning: "no valid actions"}
	}
	var i int
	if r.rng != nil {
		i = r.rng.IntN(len(valid))
	} else {
		i = rand.IntN(len(valid))
	}
	return Decision{Action: valid[i], Reasoning: "random"}
}
