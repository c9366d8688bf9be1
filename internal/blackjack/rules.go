package blackjack

import (
	"fmt"

	"github.com/lox/densistedon/internal/deck"
)

// Rules are the table limits and house rules
type Rules struct {
	DeckCount int
	MinWager  int
	// ReshuffleThreshold rebuilds the shoe at a round boundary when fewer
	// cards than this remain
	ReshuffleThreshold int
	// DealerStandsOn is the total at which the dealer stops drawing
	DealerStandsOn int
}

// DefaultRules returns six decks, a 100 minimum, reshuffle under one deck
// and a dealer standing on all 17s.
func DefaultRules() Rules {
	return Rules{
		DeckCount:          deck.DefaultDeckCount,
		MinWager:           100,
		ReshuffleThreshold: deck.CardsPerDeck,
		DealerStandsOn:     17,
	}
}

// Validate checks that the rules are usable
func (r Rules) Validate() error {
	if r.DeckCount < 1 {
		return fmt.Errorf("deck count must be at least 1, got %d", r.DeckCount)
	}
	if r.MinWager < 1 {
		return fmt.Errorf("minimum wager must be positive, got %d", r.MinWager)
	}
	if r.ReshuffleThreshold < 0 || r.ReshuffleThreshold > r.DeckCount*deck.CardsPerDeck {
		return fmt.Errorf("reshuffle threshold %d outside shoe of %d cards", r.ReshuffleThreshold, r.DeckCount*deck.CardsPerDeck)
	}
	if r.DealerStandsOn < 2 || r.DealerStandsOn > BlackjackTotal {
		return fmt.Errorf("dealer stand total must be between 2 and 21, got %d", r.DealerStandsOn)
	}
	return nil
}

func (r Rules) validateWager(wager, available int) error {
	if wager < r.MinWager {
		return fmt.Errorf("%w: %d is below the table minimum of %d", ErrInvalidWager, wager, r.MinWager)
	}
	if wager > available {
		return fmt.Errorf("%w: %d exceeds available balance of %d", ErrInvalidWager, wager, available)
	}
	return nil
}
