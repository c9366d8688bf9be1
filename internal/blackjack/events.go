package blackjack

import (
	"time"

	"github.com/lox/densistedon/internal/deck"
)

// EventType represents a table event type with type safety
type EventType string

const (
	EventTypeRoundStarted    EventType = "round_started"
	EventTypeCardDealt       EventType = "card_dealt"
	EventTypeHoleRevealed    EventType = "hole_revealed"
	EventTypePlayerActed     EventType = "player_acted"
	EventTypeRoundSettled    EventType = "round_settled"
	EventTypeShoeReplenished EventType = "shoe_replenished"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything a Table reports while it plays
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// EventSink receives table events synchronously, while the table is locked.
// Implementations must not call back into the Table.
type EventSink interface {
	OnEvent(event Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

// OnEvent calls f(event)
func (f EventSinkFunc) OnEvent(event Event) { f(event) }

// RoundStartedEvent is published once the stake has been debited
type RoundStartedEvent struct {
	RoundID   string
	Wager     int
	timestamp time.Time
}

func (e RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }
func (e RoundStartedEvent) Timestamp() time.Time { return e.timestamp }

// CardDealtEvent is published for every card leaving the shoe. The dealer's
// hole card is reported with Hidden set and a zero Card.
type CardDealtEvent struct {
	RoundID   string
	Role      Role
	Card      deck.Card
	Hidden    bool
	timestamp time.Time
}

func (e CardDealtEvent) EventType() EventType { return EventTypeCardDealt }
func (e CardDealtEvent) Timestamp() time.Time { return e.timestamp }

// HoleRevealedEvent is published when the dealer's hole card is turned over
type HoleRevealedEvent struct {
	RoundID   string
	Card      deck.Card
	timestamp time.Time
}

func (e HoleRevealedEvent) EventType() EventType { return EventTypeHoleRevealed }
func (e HoleRevealedEvent) Timestamp() time.Time { return e.timestamp }

// PlayerActedEvent is published after a hit, stand or double is accepted
type PlayerActedEvent struct {
	RoundID   string
	Action    Action
	timestamp time.Time
}

func (e PlayerActedEvent) EventType() EventType { return EventTypePlayerActed }
func (e PlayerActedEvent) Timestamp() time.Time { return e.timestamp }

// RoundSettledEvent is published when a round reaches Settled
type RoundSettledEvent struct {
	Settlement Settlement
	Player     Hand
	Dealer     Hand
	timestamp  time.Time
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }
func (e RoundSettledEvent) Timestamp() time.Time { return e.timestamp }

// ShoeReplenishedEvent is published when the shoe is rebuilt at a round boundary
type ShoeReplenishedEvent struct {
	Remaining int
	Shuffles  int
	timestamp time.Time
}

func (e ShoeReplenishedEvent) EventType() EventType { return EventTypeShoeReplenished }
func (e ShoeReplenishedEvent) Timestamp() time.Time { return e.timestamp }
