package deck

import (
	rand "math/rand/v2"

	"github.com/lox/densistedon/internal/randutil"
)

const (
	// CardsPerDeck is the size of one standard deck
	CardsPerDeck = 52
	// DefaultDeckCount is the number of decks in a casino shoe
	DefaultDeckCount = 6
)

// Shoe is the draw pile for a table: several standard decks shuffled together.
// A Shoe is not safe for concurrent use; it belongs to exactly one table.
type Shoe struct {
	cards     []Card
	deckCount int
	rng       *rand.Rand
	shuffles  int
}

// NewShoe builds and shuffles a shoe of deckCount decks. A nil rng gets a
// randomly seeded source; deckCount below one uses DefaultDeckCount.
func NewShoe(deckCount int, rng *rand.Rand) *Shoe {
	if deckCount < 1 {
		deckCount = DefaultDeckCount
	}
	if rng == nil {
		rng = randutil.New(randutil.RandomSeed())
	}
	s := &Shoe{
		cards:     make([]Card, 0, deckCount*CardsPerDeck),
		deckCount: deckCount,
		rng:       rng,
	}
	s.Replenish()
	return s
}

// NewStackedShoe returns a freshly shuffled shoe whose first draws are top,
// in order. The stacked cards are pulled out of the shoe so that its
// composition stays that of deckCount real decks.
func NewStackedShoe(deckCount int, rng *rand.Rand, top ...Card) *Shoe {
	s := NewShoe(deckCount, rng)
	rest := s.cards
	for _, c := range top {
		for i := range rest {
			if rest[i] == c {
				rest = append(rest[:i], rest[i+1:]...)
				break
			}
		}
	}
	cards := make([]Card, 0, len(top)+len(rest))
	cards = append(cards, top...)
	cards = append(cards, rest...)
	s.cards = cards
	return s
}

// Replenish rebuilds the full shoe and shuffles it
func (s *Shoe) Replenish() {
	s.cards = s.cards[:0]
	if cap(s.cards) < s.deckCount*CardsPerDeck {
		s.cards = make([]Card, 0, s.deckCount*CardsPerDeck)
	}
	for range s.deckCount {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				s.cards = append(s.cards, NewCard(suit, rank))
			}
		}
	}
	s.shuffle()
	s.shuffles++
}

// shuffle performs an in-place Fisher-Yates shuffle
func (s *Shoe) shuffle() {
	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// Draw removes and returns the top card. An empty shoe is rebuilt first, so
// Draw always succeeds.
func (s *Shoe) Draw() Card {
	if len(s.cards) == 0 {
		s.Replenish()
	}
	card := s.cards[0]
	s.cards = s.cards[1:]
	return card
}

// Remaining returns the number of cards left in the shoe
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// DeckCount returns the number of decks the shoe is built from
func (s *Shoe) DeckCount() int {
	return s.deckCount
}

// Size returns the number of cards in a full shoe
func (s *Shoe) Size() int {
	return s.deckCount * CardsPerDeck
}

// Shuffles returns how many times the shoe has been built
func (s *Shoe) Shuffles() int {
	return s.shuffles
}

// NeedsReplenish reports whether fewer than threshold cards remain
func (s *Shoe) NeedsReplenish(threshold int) bool {
	return len(s.cards) < threshold
}
