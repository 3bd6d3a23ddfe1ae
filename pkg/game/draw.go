package game

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// Outcome is the server-drawn result of one scratch card.
type Outcome struct {
	Won   bool
	Prize decimal.Decimal
}

// Draw picks an outcome from the game's weighted prize table.
// A nil result table is impossible for catalog games; the losing outcome
// carries LoseWeight.
func (g *Game) Draw(rng *rand.Rand) Outcome {
	total := g.LoseWeight
	for _, tier := range g.Prizes {
		total += tier.Weight
	}

	roll := rng.Intn(total)
	if roll < g.LoseWeight {
		return Outcome{Won: false, Prize: decimal.Zero}
	}

	roll -= g.LoseWeight
	for _, tier := range g.Prizes {
		if roll < tier.Weight {
			return Outcome{Won: true, Prize: tier.Amount}
		}
		roll -= tier.Weight
	}

	// Unreachable: roll < total by construction.
	return Outcome{Won: false, Prize: decimal.Zero}
}

// MaxPrize returns the largest prize in the game's table.
func (g *Game) MaxPrize() decimal.Decimal {
	max := decimal.Zero
	for _, tier := range g.Prizes {
		if tier.Amount.GreaterThan(max) {
			max = tier.Amount
		}
	}
	return max
}

// PickVaultPrize decides a cofre payout for the given balance.
// It refuses when the balance is below the configured floor, and when no
// candidate prize fits inside the available slice of the balance; the
// boundary case of a balance exactly at the floor still pays only if a
// candidate fits.
func (v *VaultConfig) PickVaultPrize(balance decimal.Decimal, rng *rand.Rand) (decimal.Decimal, bool) {
	if balance.LessThan(v.MinAmount) {
		return decimal.Zero, false
	}

	available := balance.Mul(v.AvailablePct).Div(decimal.NewFromInt(100))

	candidates := make([]decimal.Decimal, 0, len(v.Prizes))
	for _, prize := range v.Prizes {
		if prize.LessThanOrEqual(available) {
			candidates = append(candidates, prize)
		}
	}
	if len(candidates) == 0 {
		return decimal.Zero, false
	}

	return candidates[rng.Intn(len(candidates))], true
}

// RollVaultChance reports whether this play triggers a cofre payout attempt.
func (v *VaultConfig) RollVaultChance(rng *rand.Rand) bool {
	return rng.Float64()*100 < v.PrizeChance
}
