// Package statistics keeps per-player session results for each table.
package statistics

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// HandResult is one player's outcome in a single hand.
type HandResult struct {
	NetBB          float64 // chips won or lost, in big blinds
	Position       int     // seats after the button, 0 is the button
	WentToShowdown bool
	FinalPotSize   int // chips, rake included
	PotBB          float64
	Voluntary      bool // called, bet or raised preflop
	Raised         bool // bet or raised preflop
}

// PositionStats tracks results from one position.
type PositionStats struct {
	Hands  int     `json:"hands"`
	SumBB  float64 `json:"sum_bb"`
	SumBB2 float64 `json:"-"`
}

// Statistics accumulates one player's results at one table.
type Statistics struct {
	Hands  int     `json:"hands"`
	SumBB  float64 `json:"sum_bb"`
	SumBB2 float64 `json:"-"` // sum of squares for the variance

	ShowdownWins    int     `json:"showdown_wins"`
	NonShowdownWins int     `json:"non_showdown_wins"`
	ShowdownBB      float64 `json:"showdown_bb"`
	NonShowdownBB   float64 `json:"non_showdown_bb"`

	VoluntaryHands int `json:"vpip_hands"`
	RaisedHands    int `json:"pfr_hands"`

	Positions map[int]*PositionStats `json:"positions"`

	MaxPotChips int     `json:"max_pot"`
	BigPots     int     `json:"big_pots"` // pots of at least 50bb
	BigPotsBB   float64 `json:"big_pots_bb"`
}

// Mean returns big blinds won per hand.
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumBB / float64(s.Hands)
}

// Variance returns the sample variance of per-hand results.
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return max(0, (s.SumBB2-float64(s.Hands)*mean*mean)/float64(s.Hands-1))
}

func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean.
func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// VPIP is the share of hands where the player put money in voluntarily.
func (s *Statistics) VPIP() float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.VoluntaryHands) / float64(s.Hands)
}

// PFR is the share of hands where the player bet or raised preflop.
func (s *Statistics) PFR() float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.RaisedHands) / float64(s.Hands)
}

// PositionMean returns the mean result from position, 0 when unseen.
func (s *Statistics) PositionMean(position int) float64 {
	ps := s.Positions[position]
	if ps == nil || ps.Hands == 0 {
		return 0
	}
	return ps.SumBB / float64(ps.Hands)
}

// Add incorporates a hand.
func (s *Statistics) Add(r HandResult) {
	s.Hands++
	s.SumBB += r.NetBB
	s.SumBB2 += r.NetBB * r.NetBB

	if r.NetBB > 0 {
		if r.WentToShowdown {
			s.ShowdownWins++
		} else {
			s.NonShowdownWins++
		}
	}
	if r.WentToShowdown {
		s.ShowdownBB += r.NetBB
	} else {
		s.NonShowdownBB += r.NetBB
	}

	if r.Voluntary {
		s.VoluntaryHands++
	}
	if r.Raised {
		s.RaisedHands++
	}

	if s.Positions == nil {
		s.Positions = map[int]*PositionStats{}
	}
	ps := s.Positions[r.Position]
	if ps == nil {
		ps = &PositionStats{}
		s.Positions[r.Position] = ps
	}
	ps.Hands++
	ps.SumBB += r.NetBB
	ps.SumBB2 += r.NetBB * r.NetBB

	s.MaxPotChips = max(s.MaxPotChips, r.FinalPotSize)
	if r.PotBB >= 50 {
		s.BigPots++
		s.BigPotsBB += r.NetBB
	}
}

// IsLedgerBalanced reports whether the showdown split adds up to the total.
func (s *Statistics) IsLedgerBalanced() bool {
	return math.Abs(s.SumBB-s.ShowdownBB-s.NonShowdownBB) <= 1e-6
}

func (s *Statistics) clone() *Statistics {
	c := *s
	c.Positions = make(map[int]*PositionStats, len(s.Positions))
	for k, v := range s.Positions {
		ps := *v
		c.Positions[k] = &ps
	}
	return &c
}

// Summary is the reported form of a player's statistics.
type Summary struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name,omitempty"`
	Hands    int     `json:"hands"`
	NetBB    float64 `json:"net_bb"`
	BBPer100 float64 `json:"bb_per_100"`
	StdDev   float64 `json:"stddev_bb"`
	CI95Low  float64 `json:"ci95_low"`
	CI95High float64 `json:"ci95_high"`
	VPIP     float64 `json:"vpip"`
	PFR      float64 `json:"pfr"`

	*Statistics
}

func summarize(playerID, name string, s *Statistics) Summary {
	lo, hi := s.ConfidenceInterval95()
	return Summary{
		PlayerID:   playerID,
		Name:       name,
		Hands:      s.Hands,
		NetBB:      s.SumBB,
		BBPer100:   s.Mean() * 100,
		StdDev:     s.StdDev(),
		CI95Low:    lo,
		CI95High:   hi,
		VPIP:       s.VPIP(),
		PFR:        s.PFR(),
		Statistics: s,
	}
}

func sortSummaries(out []Summary) {
	slices.SortFunc(out, func(a, b Summary) int {
		if c := cmp.Compare(b.NetBB, a.NetBB); c != 0 {
			return c
		}
		return strings.Compare(a.PlayerID, b.PlayerID)
	})
}
