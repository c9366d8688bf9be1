package blackjack

import (
	"testing"

	"github.com/lox/densistedon/internal/deck"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		cards string
		want  HandValue
	}{
		{"empty", "", HandValue{Total: 0}},
		{"single ace", "As", HandValue{Total: 11, Soft: true}},
		{"two aces", "AsAh", HandValue{Total: 12, Soft: true}},
		{"two aces and nine", "AsAh9c", HandValue{Total: 21, Soft: true}},
		{"natural", "AsKd", HandValue{Total: 21, Soft: true}},
		{"ace demoted", "As6dKc", HandValue{Total: 17}},
		{"four aces", "AsAhAdAc", HandValue{Total: 14, Soft: true}},
		{"two aces both low", "As5dAcTh", HandValue{Total: 17}},
		{"hard eleven", "5s6h", HandValue{Total: 11}},
		{"faces", "KsQh", HandValue{Total: 20}},
		{"bust", "KsQh5c", HandValue{Total: 25}},
		{"bust with low ace", "KsQhAc5d", HandValue{Total: 26}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(deck.MustParseCards(tt.cards)))
		})
	}
}

func TestIsBlackjack(t *testing.T) {
	tests := []struct {
		cards string
		want  bool
	}{
		{"AsKh", true},
		{"TdAc", true},
		{"7s7h7d", false},
		{"AsAh", false},
		{"5sAhTd", false},
		{"As", false},
	}

	for _, tt := range tests {
		t.Run(tt.cards, func(t *testing.T) {
			cards := deck.MustParseCards(tt.cards)
			assert.Equal(t, tt.want, IsBlackjack(cards))
			assert.Equal(t, tt.want, Hand(cards).IsBlackjack())
		})
	}
}

func TestHandIsBust(t *testing.T) {
	assert.False(t, Hand(deck.MustParseCards("KsQhAc")).IsBust())
	assert.True(t, Hand(deck.MustParseCards("KsQh2c")).IsBust())
}

func TestDealerHits(t *testing.T) {
	assert.False(t, dealerHits(Evaluate(deck.MustParseCards("As6d")), 17), "soft 17 stands")
	assert.True(t, dealerHits(Evaluate(deck.MustParseCards("Ts6d")), 17), "hard 16 draws")
	assert.False(t, dealerHits(Evaluate(deck.MustParseCards("Ts7d")), 17))
	assert.True(t, dealerHits(Evaluate(deck.MustParseCards("As5d")), 17), "soft 16 draws")
}

func TestPayout(t *testing.T) {
	assert.Equal(t, 1250, payout(OutcomePlayerBlackjack, 500, 500))
	assert.Equal(t, 252, payout(OutcomePlayerBlackjack, 101, 101), "3:2 rounds down")
	assert.Equal(t, 4000, payout(OutcomeWin, 1000, 2000))
	assert.Equal(t, 2000, payout(OutcomeDealerBust, 1000, 1000))
	assert.Equal(t, 2000, payout(OutcomePush, 1000, 2000))
	for _, o := range []Outcome{OutcomeLoss, OutcomePlayerBust, OutcomeDealerBlackjack} {
		assert.Zero(t, payout(o, 1000, 1000), o.String())
	}
}

func TestCompareTotals(t *testing.T) {
	assert.Equal(t, OutcomeDealerBust, compareTotals(HandValue{Total: 12}, HandValue{Total: 22}))
	assert.Equal(t, OutcomeWin, compareTotals(HandValue{Total: 20}, HandValue{Total: 19}))
	assert.Equal(t, OutcomeLoss, compareTotals(HandValue{Total: 18}, HandValue{Total: 19}))
	assert.Equal(t, OutcomePush, compareTotals(HandValue{Total: 19}, HandValue{Total: 19}))
}
