package blackjack

import (
	"strings"

	"github.com/lox/densistedon/internal/deck"
)

const (
	// BlackjackTotal is the best possible hand total
	BlackjackTotal = 21
	// aceDemotion is the difference between an ace counted high and low
	aceDemotion = 10
)

// HandValue is the scored total of a hand
type HandValue struct {
	Total int
	// Soft is true when at least one ace is still counted as 11
	Soft bool
}

// Evaluate scores cards: aces start at 11 and are demoted to 1, one at a
// time, while the total exceeds 21. The result is the best total not over 21
// when one exists, otherwise the smallest bust total.
func Evaluate(cards []deck.Card) HandValue {
	total, highAces := 0, 0
	for _, c := range cards {
		total += c.Rank.Points()
		if c.IsAce() {
			highAces++
		}
	}
	for total > BlackjackTotal && highAces > 0 {
		total -= aceDemotion
		highAces--
	}
	return HandValue{Total: total, Soft: highAces > 0}
}

// IsBlackjack reports whether cards are a natural: exactly two cards worth 21
func IsBlackjack(cards []deck.Card) bool {
	return len(cards) == 2 && Evaluate(cards).Total == BlackjackTotal
}

// Hand is an ordered set of cards held by the player or the dealer
type Hand []deck.Card

// Value returns the scored total of the hand
func (h Hand) Value() HandValue {
	return Evaluate(h)
}

// IsBlackjack reports whether the hand is a two card 21
func (h Hand) IsBlackjack() bool {
	return IsBlackjack(h)
}

// IsBust reports whether the hand total exceeds 21
func (h Hand) IsBust() bool {
	return h.Value().Total > BlackjackTotal
}

// String renders the hand as space separated cards
func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Role identifies who holds a hand
type Role int

const (
	PlayerRole Role = iota
	DealerRole
)

// String returns the string representation of a role
func (r Role) String() string {
	switch r {
	case PlayerRole:
		return "player"
	case DealerRole:
		return "dealer"
	default:
		return "unknown"
	}
}

// dealerHits applies the stand-on rule: the dealer draws below standOn,
// soft totals included, so a soft 17 stands under the default rules.
func dealerHits(v HandValue, standOn int) bool {
	return v.Total < standOn
}
