package game

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// EncodeSnapshot serializes a game state to its canonical JSON form, the
// representation used both on the wire and at rest.
func EncodeSnapshot(g *GameState) ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", g.ID, err)
	}
	return data, nil
}

// DecodeSnapshot rebuilds a game state from its JSON form. The orders
// buffer is always non-nil on return.
func DecodeSnapshot(data []byte) (*GameState, error) {
	var g GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if g.Orders == nil {
		g.Orders = NewOrderBuffer()
	}
	return &g, nil
}

// Checksum computes a deterministic digest of a game state. The digest is
// independent of map iteration order, so identical states always hash
// identically; it guards stored snapshots against silent corruption.
func Checksum(g *GameState) string {
	sum := blake3.Sum256([]byte(canonicalRepresentation(g)))
	return hex.EncodeToString(sum[:])
}

// canonicalRepresentation renders the state as a stable line-oriented
// string: players and planets in list order, orders in submission order,
// slider maps walked in sorted key order.
func canonicalRepresentation(g *GameState) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%d|%s\n", g.ID, g.Turn, g.MaxPlayers, g.Status)

	for _, p := range g.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%d\n", p.ID, p.Name, p.Gold, p.ResearchPoints)
	}

	for _, p := range g.Planets {
		structures := make([]string, len(p.Structures))
		for i, s := range p.Structures {
			structures[i] = string(s)
		}
		fmt.Fprintf(&buf, "PLANET:%s|%s|%d|%d|%s|%d|%d|%s|%d|%g\n",
			p.ID, p.Name, p.X, p.Y, p.OwnerID, p.Productivity, p.BuildSlots,
			strings.Join(structures, ","), p.ShipsDocked, p.EconomySlider)
	}

	g.Orders.Each(func(o *PlayerOrder) {
		fmt.Fprintf(&buf, "ORDER:%s|%d\n", o.PlayerID, o.ResearchSpend)

		planetIDs := make([]string, 0, len(o.SliderByPlanet))
		for id := range o.SliderByPlanet {
			planetIDs = append(planetIDs, id)
		}
		sort.Strings(planetIDs)
		for _, id := range planetIDs {
			fmt.Fprintf(&buf, "  SLIDER:%s=%g\n", id, o.SliderByPlanet[id])
		}

		for _, b := range o.BuildOrders {
			fmt.Fprintf(&buf, "  BUILD:%s|%s\n", b.PlanetID, b.Structure)
		}
		for _, m := range o.Moves {
			fmt.Fprintf(&buf, "  MOVE:%s|%s|%d\n", m.FromPlanetID, m.ToPlanetID, m.ShipCount)
		}
	})

	return buf.String()
}

// ValidateRoundtrip checks that a state survives encode/decode without
// field loss by comparing checksums.
func ValidateRoundtrip(g *GameState) error {
	data, err := EncodeSnapshot(g)
	if err != nil {
		return err
	}
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	if before, after := Checksum(g), Checksum(decoded); before != after {
		return fmt.Errorf("snapshot roundtrip mismatch for %s: %s != %s", g.ID, before, after)
	}
	return nil
}
