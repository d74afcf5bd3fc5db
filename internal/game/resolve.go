package game

import "math"

// ResolveTurn applies every pending order to a copy of the game and
// returns the next turn's state. The input is never mutated, so callers
// may keep handing out the old snapshot until the result is committed.
//
// Steps run in a fixed order: economy sliders, research spend,
// construction, production, fleet movement, turn advance. Each per-action
// legality check (ownership, affordability, capacity, non-negativity) is
// a silent skip rather than an error: one player's malformed order never
// blocks the turn from resolving.
func ResolveTurn(g *GameState) *GameState {
	next := g.Clone()

	next.Orders.Each(applySliders(next))
	next.Orders.Each(applyResearch(next))
	next.Orders.Each(applyConstruction(next))
	applyProduction(next)
	next.Orders.Each(applyMoves(next))

	next.Turn++
	next.Orders = NewOrderBuffer()
	return next
}

func applySliders(g *GameState) func(*PlayerOrder) {
	return func(o *PlayerOrder) {
		for planetID, value := range o.SliderByPlanet {
			planet := g.OwnedPlanet(planetID, o.PlayerID)
			if planet == nil {
				continue
			}
			planet.EconomySlider = clamp(value, 0, 1)
		}
	}
}

func applyResearch(g *GameState) func(*PlayerOrder) {
	return func(o *PlayerOrder) {
		player := g.PlayerByID(o.PlayerID)
		if player == nil {
			return
		}
		spend := o.ResearchSpend
		if spend > player.Gold {
			spend = player.Gold
		}
		player.Gold -= spend
		player.ResearchPoints += spend
	}
}

func applyConstruction(g *GameState) func(*PlayerOrder) {
	return func(o *PlayerOrder) {
		player := g.PlayerByID(o.PlayerID)
		if player == nil {
			return
		}
		for _, build := range o.BuildOrders {
			planet := g.OwnedPlanet(build.PlanetID, o.PlayerID)
			if planet == nil {
				continue
			}
			if len(planet.Structures) >= planet.BuildSlots {
				continue
			}
			cost, ok := build.Structure.Cost()
			if !ok || player.Gold < cost {
				continue
			}
			player.Gold -= cost
			planet.Structures = append(planet.Structures, build.Structure)
		}
	}
}

// applyProduction converts each owned planet's productivity into gold and
// ships according to its economy slider. Unowned planets produce nothing.
func applyProduction(g *GameState) {
	for _, planet := range g.Planets {
		if planet.OwnerID == "" {
			continue
		}
		owner := g.PlayerByID(planet.OwnerID)
		if owner == nil {
			continue
		}
		econGold := int(math.Floor(float64(planet.Productivity) * planet.EconomySlider))
		shipsBuilt := (planet.Productivity - econGold) / 10
		owner.Gold += econGold
		planet.ShipsDocked += shipsBuilt
	}
}

func applyMoves(g *GameState) func(*PlayerOrder) {
	return func(o *PlayerOrder) {
		for _, move := range o.Moves {
			from := g.PlanetByID(move.FromPlanetID)
			to := g.PlanetByID(move.ToPlanetID)
			if from == nil || to == nil || from.OwnerID != o.PlayerID {
				continue
			}
			if move.ShipCount <= 0 || from.ShipsDocked < move.ShipCount {
				continue
			}
			from.ShipsDocked -= move.ShipCount

			if to.OwnerID == o.PlayerID || to.OwnerID == "" {
				// Reinforcement, or capture of neutral territory.
				to.OwnerID = o.PlayerID
				to.ShipsDocked += move.ShipCount
				continue
			}

			// Defenders absorb the attack one for one. The planet only
			// flips when the attack exceeds the garrison; the survivors
			// become the new garrison.
			to.ShipsDocked -= move.ShipCount
			if to.ShipsDocked < 0 {
				to.OwnerID = o.PlayerID
				to.ShipsDocked = -to.ShipsDocked
			}
		}
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
