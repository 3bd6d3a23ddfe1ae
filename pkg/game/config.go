// Package game defines the scratch-card catalog: fixed prices, weighted
// prize tables and cofre tuning per game. Outcomes are always drawn
// server-side from these tables; the client only animates the result.
package game

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PrizeTier is one winnable prize with its draw weight.
type PrizeTier struct {
	Amount decimal.Decimal
	Weight int
}

// VaultConfig tunes the shared cofre for one game.
type VaultConfig struct {
	// PrizeChance is the flat per-play percentage chance of a cofre roll
	// paying out, independent of the accumulated play count.
	PrizeChance float64
	// MinAmount is the floor below which the cofre never pays.
	MinAmount decimal.Decimal
	// AvailablePct caps a single payout at this percentage of the cofre
	// balance.
	AvailablePct decimal.Decimal
	// Prizes is the candidate payout list; only values within the available
	// slice of the balance can be drawn.
	Prizes []decimal.Decimal
}

// Game is one scratch-card product.
type Game struct {
	Name  string
	Title string
	Price decimal.Decimal
	// LoseWeight is the weight of the losing outcome relative to the prize
	// tiers.
	LoseWeight int
	Prizes     []PrizeTier
	Vault      VaultConfig
}

func reais(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var catalog = map[string]*Game{
	"raspe-da-esperanca": {
		Name:       "raspe-da-esperanca",
		Title:      "Raspe da Esperança",
		Price:      reais("1.00"),
		LoseWeight: 700,
		Prizes: []PrizeTier{
			{Amount: reais("0.50"), Weight: 150},
			{Amount: reais("1.00"), Weight: 90},
			{Amount: reais("2.00"), Weight: 40},
			{Amount: reais("5.00"), Weight: 15},
			{Amount: reais("10.00"), Weight: 4},
			{Amount: reais("50.00"), Weight: 1},
		},
		Vault: VaultConfig{
			PrizeChance:  1.5,
			MinAmount:    reais("100.00"),
			AvailablePct: reais("30"),
			Prizes: []decimal.Decimal{
				reais("10.00"), reais("25.00"), reais("50.00"), reais("100.00"),
			},
		},
	},
	"raspe-da-alegria": {
		Name:       "raspe-da-alegria",
		Title:      "Raspe da Alegria",
		Price:      reais("5.00"),
		LoseWeight: 720,
		Prizes: []PrizeTier{
			{Amount: reais("2.00"), Weight: 140},
			{Amount: reais("5.00"), Weight: 85},
			{Amount: reais("10.00"), Weight: 35},
			{Amount: reais("25.00"), Weight: 14},
			{Amount: reais("100.00"), Weight: 5},
			{Amount: reais("250.00"), Weight: 1},
		},
		Vault: VaultConfig{
			PrizeChance:  1.0,
			MinAmount:    reais("250.00"),
			AvailablePct: reais("30"),
			Prizes: []decimal.Decimal{
				reais("25.00"), reais("50.00"), reais("100.00"), reais("250.00"),
			},
		},
	},
	"raspe-da-fortuna": {
		Name:       "raspe-da-fortuna",
		Title:      "Raspe da Fortuna",
		Price:      reais("10.00"),
		LoseWeight: 740,
		Prizes: []PrizeTier{
			{Amount: reais("5.00"), Weight: 130},
			{Amount: reais("10.00"), Weight: 80},
			{Amount: reais("25.00"), Weight: 32},
			{Amount: reais("50.00"), Weight: 12},
			{Amount: reais("200.00"), Weight: 5},
			{Amount: reais("500.00"), Weight: 1},
		},
		Vault: VaultConfig{
			PrizeChance:  0.8,
			MinAmount:    reais("500.00"),
			AvailablePct: reais("25"),
			Prizes: []decimal.Decimal{
				reais("50.00"), reais("100.00"), reais("250.00"), reais("500.00"),
			},
		},
	},
}

// Get returns the game with the given name.
func Get(name string) (*Game, bool) {
	g, ok := catalog[name]
	return g, ok
}

// Names returns all game names in stable order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
