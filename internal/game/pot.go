package game

import "sort"

// Pot is one layer of the pot structure. Eligible lists every seat that
// contributed at least Level, folded or not; folded seats fund the pot but
// cannot win it.
type Pot struct {
	Amount   int   `json:"amount"`
	Level    int   `json:"level"`
	Eligible []int `json:"eligible"`
}

// BuildPots derives the main pot and side pots from per-seat contributions.
// Contributions are sorted ascending; each distinct level L contributes
// (L - previous level) times the number of seats that put in at least L, and
// exactly those seats are eligible for it.
func BuildPots(contributions map[int]int) []Pot {
	type contribution struct {
		seat   int
		amount int
	}

	list := make([]contribution, 0, len(contributions))
	for seat, amount := range contributions {
		if amount > 0 {
			list = append(list, contribution{seat, amount})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].amount != list[j].amount {
			return list[i].amount < list[j].amount
		}
		return list[i].seat < list[j].seat
	})

	var pots []Pot
	prev := 0
	for i, c := range list {
		if c.amount == prev {
			continue
		}
		contributors := list[i:]
		eligible := make([]int, len(contributors))
		for j, e := range contributors {
			eligible[j] = e.seat
		}
		sort.Ints(eligible)
		pots = append(pots, Pot{
			Amount:   (c.amount - prev) * len(contributors),
			Level:    c.amount,
			Eligible: eligible,
		})
		prev = c.amount
	}
	return pots
}

// PotTotal sums pot amounts.
func PotTotal(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

// contested reports whether more than one seat funded the pot. A single
// contributor pot is an uncalled bet being returned.
func (p Pot) contested() bool {
	return len(p.Eligible) > 1
}

func (p Pot) eligible(seat int) bool {
	for _, s := range p.Eligible {
		if s == seat {
			return true
		}
	}
	return false
}
