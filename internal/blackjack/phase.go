package blackjack

// Phase is the state of a round
type Phase int

const (
	// Betting is the state before a stake has been accepted
	Betting Phase = iota
	// Dealt is the moment after the initial four cards, before naturals are checked
	Dealt
	// Player is waiting on hit, stand or double
	Player
	// Dealer is drawing to its stand total
	Dealer
	// Settled is terminal; the round's settlement is final
	Settled
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case Betting:
		return "betting"
	case Dealt:
		return "dealt"
	case Player:
		return "player"
	case Dealer:
		return "dealer"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Outcome is how a settled round ended
type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomePlayerBlackjack pays 3:2 on the initial deal
	OutcomePlayerBlackjack
	// OutcomeDealerBlackjack loses the stake on the initial deal
	OutcomeDealerBlackjack
	// OutcomePush returns the stake
	OutcomePush
	// OutcomePlayerBust loses the stake without the dealer playing
	OutcomePlayerBust
	// OutcomeDealerBust pays 1:1
	OutcomeDealerBust
	// OutcomeWin pays 1:1 on a higher total
	OutcomeWin
	// OutcomeLoss loses the stake to a higher dealer total
	OutcomeLoss
)

// String returns the string representation of an outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomePlayerBlackjack:
		return "blackjack"
	case OutcomeDealerBlackjack:
		return "dealer blackjack"
	case OutcomePush:
		return "push"
	case OutcomePlayerBust:
		return "bust"
	case OutcomeDealerBust:
		return "dealer bust"
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "unknown"
	}
}

// PlayerWins reports whether the outcome returns more than the stake
func (o Outcome) PlayerWins() bool {
	return o == OutcomePlayerBlackjack || o == OutcomeDealerBust || o == OutcomeWin
}

// Action is a player request forwarded by a front end
type Action int

const (
	ActionDeal Action = iota
	ActionHit
	ActionStand
	ActionDouble
	ActionNewRound
)

// String returns the string representation of an action
func (a Action) String() string {
	switch a {
	case ActionDeal:
		return "deal"
	case ActionHit:
		return "hit"
	case ActionStand:
		return "stand"
	case ActionDouble:
		return "double"
	case ActionNewRound:
		return "new round"
	default:
		return "unknown"
	}
}
