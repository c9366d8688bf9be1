package simulator

import (
	"fmt"
	"math"
	"strings"

	"github.com/lox/densistedon/internal/blackjack"
)

// Report aggregates the results of a simulation
type Report struct {
	Strategy      string
	Rounds        int
	Outcomes      map[blackjack.Outcome]int
	Staked        int
	Returned      int
	Net           int
	Doubles       int
	BrokeSessions int

	// Per-round net in wager units, for variance
	sumUnits  float64
	sumUnits2 float64
}

func newReport(strategyName string) Report {
	return Report{
		Strategy: strategyName,
		Outcomes: make(map[blackjack.Outcome]int),
	}
}

func (r *Report) add(s blackjack.Settlement, doubled bool) {
	r.Rounds++
	r.Outcomes[s.Outcome]++
	r.Staked += s.Staked
	r.Returned += s.Credit
	r.Net += s.Net
	if doubled {
		r.Doubles++
	}
	base := s.Staked
	if doubled {
		base /= 2
	}
	if base > 0 {
		u := float64(s.Net) / float64(base)
		r.sumUnits += u
		r.sumUnits2 += u * u
	}
}

func (r *Report) merge(o Report) {
	r.Rounds += o.Rounds
	for k, v := range o.Outcomes {
		r.Outcomes[k] += v
	}
	r.Staked += o.Staked
	r.Returned += o.Returned
	r.Net += o.Net
	r.Doubles += o.Doubles
	r.BrokeSessions += o.BrokeSessions
	r.sumUnits += o.sumUnits
	r.sumUnits2 += o.sumUnits2
}

// ReturnToPlayer is the fraction of staked money paid back
func (r Report) ReturnToPlayer() float64 {
	if r.Staked == 0 {
		return 0
	}
	return float64(r.Returned) / float64(r.Staked)
}

// Mean returns the average net result per round in units of the base wager
func (r Report) Mean() float64 {
	if r.Rounds == 0 {
		return 0
	}
	return r.sumUnits / float64(r.Rounds)
}

// StdDev returns the sample standard deviation of the per-round result
func (r Report) StdDev() float64 {
	if r.Rounds < 2 {
		return 0
	}
	mean := r.Mean()
	variance := (r.sumUnits2 - float64(r.Rounds)*mean*mean) / float64(r.Rounds-1)
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (r Report) ConfidenceInterval95() (float64, float64) {
	if r.Rounds == 0 {
		return 0, 0
	}
	margin := 1.96 * r.StdDev() / math.Sqrt(float64(r.Rounds))
	mean := r.Mean()
	return mean - margin, mean + margin
}

var reportOrder = []blackjack.Outcome{
	blackjack.OutcomePlayerBlackjack,
	blackjack.OutcomeWin,
	blackjack.OutcomeDealerBust,
	blackjack.OutcomePush,
	blackjack.OutcomeLoss,
	blackjack.OutcomePlayerBust,
	blackjack.OutcomeDealerBlackjack,
}

// String renders a human readable summary
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(&b, "Rounds:   %d\n", r.Rounds)
	for _, o := range reportOrder {
		n := r.Outcomes[o]
		pct := 0.0
		if r.Rounds > 0 {
			pct = 100 * float64(n) / float64(r.Rounds)
		}
		fmt.Fprintf(&b, "  %-17s %7d  %5.1f%%\n", o.String(), n, pct)
	}
	fmt.Fprintf(&b, "Doubles:  %d\n", r.Doubles)
	fmt.Fprintf(&b, "Staked:   %d\n", r.Staked)
	fmt.Fprintf(&b, "Returned: %d\n", r.Returned)
	fmt.Fprintf(&b, "Net:      %d\n", r.Net)
	lo, hi := r.ConfidenceInterval95()
	fmt.Fprintf(&b, "RTP:      %.2f%%\n", 100*r.ReturnToPlayer())
	fmt.Fprintf(&b, "Mean:     %+.4f units/round (95%% CI %+.4f .. %+.4f)\n", r.Mean(), lo, hi)
	if r.BrokeSessions > 0 {
		fmt.Fprintf(&b, "Broke:    %d sessions ran out of money\n", r.BrokeSessions)
	}
	return b.String()
}

// Summary is the machine readable form of a Report
type Summary struct {
	Strategy       string         `json:"strategy"`
	Rounds         int            `json:"rounds"`
	Outcomes       map[string]int `json:"outcomes"`
	Staked         int            `json:"staked"`
	Returned       int            `json:"returned"`
	Net            int            `json:"net"`
	Doubles        int            `json:"doubles"`
	BrokeSessions  int            `json:"broke_sessions"`
	ReturnToPlayer float64        `json:"return_to_player"`
	Mean           float64        `json:"mean_units"`
	StdDev         float64        `json:"stddev_units"`
	CI95           [2]float64     `json:"ci95_units"`
}

// Summary flattens the report for JSON output
func (r Report) Summary() Summary {
	outcomes := make(map[string]int, len(r.Outcomes))
	for o, n := range r.Outcomes {
		outcomes[o.String()] = n
	}
	lo, hi := r.ConfidenceInterval95()
	return Summary{
		Strategy:       r.Strategy,
		Rounds:         r.Rounds,
		Outcomes:       outcomes,
		Staked:         r.Staked,
		Returned:       r.Returned,
		Net:            r.Net,
		Doubles:        r.Doubles,
		BrokeSessions:  r.BrokeSessions,
		ReturnToPlayer: r.ReturnToPlayer(),
		Mean:           r.Mean(),
		StdDev:         r.StdDev(),
		CI95:           [2]float64{lo, hi},
	}
}
