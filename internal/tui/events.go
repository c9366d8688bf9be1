package tui

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/densistedon/internal/blackjack"
)

// EventLog buffers table events until the model drains them. It is handed to
// the table with blackjack.WithEventSink.
type EventLog struct {
	mu      sync.Mutex
	pending []blackjack.Event
}

// NewEventLog creates an empty event buffer
func NewEventLog() *EventLog {
	return &EventLog{}
}

// OnEvent implements blackjack.EventSink
func (l *EventLog) OnEvent(event blackjack.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, event)
}

// Drain returns and clears the buffered events
func (l *EventLog) Drain() []blackjack.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := l.pending
	l.pending = nil
	return events
}

type logEntry struct {
	text  string
	style lipgloss.Style
}

func describeEvent(event blackjack.Event) (logEntry, bool) {
	switch e := event.(type) {
	case blackjack.RoundStartedEvent:
		return logEntry{
			text:  fmt.Sprintf("*** ROUND %s *** wager %d", shortID(e.RoundID), e.Wager),
			style: HeaderStyle,
		}, true
	case blackjack.CardDealtEvent:
		if e.Hidden {
			return logEntry{text: fmt.Sprintf("%s is dealt a face-down card", roleName(e.Role)), style: InfoStyle}, true
		}
		return logEntry{text: fmt.Sprintf("%s is dealt %s", roleName(e.Role), e.Card), style: GameLogStyle}, true
	case blackjack.HoleRevealedEvent:
		return logEntry{text: fmt.Sprintf("Dealer turns over %s", e.Card), style: GameLogStyle}, true
	case blackjack.PlayerActedEvent:
		return logEntry{text: fmt.Sprintf("You %s", e.Action), style: ActionsStyle}, true
	case blackjack.RoundSettledEvent:
		return describeSettlement(e), true
	case blackjack.ShoeReplenishedEvent:
		return logEntry{text: fmt.Sprintf("Shoe reshuffled, %d cards", e.Remaining), style: InfoStyle}, true
	default:
		return logEntry{}, false
	}
}

func describeSettlement(e blackjack.RoundSettledEvent) logEntry {
	s := e.Settlement
	text := fmt.Sprintf("%s: you %d, dealer %d", outcomeHeadline(s.Outcome), e.Player.Value().Total, e.Dealer.Value().Total)
	switch {
	case s.Net > 0:
		return logEntry{text: fmt.Sprintf("%s, won %d", text, s.Net), style: SuccessStyle}
	case s.Net < 0:
		return logEntry{text: fmt.Sprintf("%s, lost %d", text, -s.Net), style: ErrorStyle}
	default:
		return logEntry{text: text + ", stake returned", style: WarningStyle}
	}
}

func outcomeHeadline(o blackjack.Outcome) string {
	switch o {
	case blackjack.OutcomePlayerBlackjack:
		return "Blackjack!"
	case blackjack.OutcomeDealerBlackjack:
		return "Dealer has blackjack"
	case blackjack.OutcomePlayerBust:
		return "Bust"
	case blackjack.OutcomeDealerBust:
		return "Dealer busts"
	case blackjack.OutcomeWin:
		return "You win"
	case blackjack.OutcomeLoss:
		return "Dealer wins"
	case blackjack.OutcomePush:
		return "Push"
	default:
		return o.String()
	}
}

func roleName(r blackjack.Role) string {
	if r == blackjack.DealerRole {
		return "Dealer"
	}
	return "Player"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
