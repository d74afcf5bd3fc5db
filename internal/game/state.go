package game

import (
	"fmt"
	"math/rand"
)

// Status represents the lifecycle state of a game.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Structure is a one-time planet upgrade occupying a build slot.
type Structure string

const (
	StructureMine     Structure = "mine"
	StructureLab      Structure = "lab"
	StructureShipyard Structure = "shipyard"
)

var structureCosts = map[Structure]int{
	StructureMine:     120,
	StructureLab:      140,
	StructureShipyard: 180,
}

// Cost returns the gold cost of a structure. The second return is false
// for unknown structure types.
func (s Structure) Cost() (int, bool) {
	cost, ok := structureCosts[s]
	return cost, ok
}

// Player is one participant in a game. IDs are opaque strings, unique
// within the game, stable for its lifetime.
type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Gold           int    `json:"gold"`
	ResearchPoints int    `json:"researchPoints"`
}

// Planet is one world on the map. Position is display-only. An empty
// OwnerID means the planet is unowned.
type Planet struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	X             int         `json:"x"`
	Y             int         `json:"y"`
	OwnerID       string      `json:"ownerId"`
	Productivity  int         `json:"productivity"`
	BuildSlots    int         `json:"buildSlots"`
	Structures    []Structure `json:"structures"`
	ShipsDocked   int         `json:"shipsDocked"`
	EconomySlider float64     `json:"economySlider"`
}

// GameState is the authoritative snapshot of one match. Once the game is
// active, planet ownership and ship counts are only mutated by ResolveTurn.
type GameState struct {
	ID         string       `json:"id"`
	Turn       int          `json:"turn"`
	MaxPlayers int          `json:"maxPlayers"`
	Status     Status       `json:"status"`
	Players    []*Player    `json:"players"`
	Planets    []*Planet    `json:"planets"`
	Orders     *OrderBuffer `json:"orders"`
}

const (
	minPlayers = 2
	maxPlayers = 6

	planetCountMin = 12
	planetCountMax = 18

	startingGold  = 800
	startingShips = 5
	homeShips     = 20
)

func init() {
	// The name pool must cover the largest possible map. Running out of
	// names is a configuration error, not a runtime condition.
	if planetCountMax > len(planetNames) {
		panic(fmt.Sprintf("planet name pool holds %d names, need %d", len(planetNames), planetCountMax))
	}
}

// NewGame creates a game in the lobby state with a freshly generated,
// unowned map. maxPlayers is clamped to [2,6].
func NewGame(players int) *GameState {
	if players < minPlayers {
		players = minPlayers
	}
	if players > maxPlayers {
		players = maxPlayers
	}

	return &GameState{
		ID:         NewGameID(),
		Turn:       1,
		MaxPlayers: players,
		Status:     StatusLobby,
		Players:    make([]*Player, 0, players),
		Planets:    generatePlanets(),
		Orders:     NewOrderBuffer(),
	}
}

func generatePlanets() []*Planet {
	count := planetCountMin + rand.Intn(planetCountMax-planetCountMin+1)
	planets := make([]*Planet, count)
	for i := range planets {
		planets[i] = &Planet{
			ID:            fmt.Sprintf("planet-%d", i+1),
			Name:          planetNames[i],
			X:             rand.Intn(101),
			Y:             rand.Intn(101),
			Productivity:  80 + rand.Intn(50),
			BuildSlots:    2 + rand.Intn(3),
			Structures:    []Structure{},
			ShipsDocked:   startingShips,
			EconomySlider: 0.5,
		}
	}
	return planets
}

// NewPlayer creates a player with starting resources.
func NewPlayer(name string) *Player {
	return &Player{
		ID:   NewPlayerID(),
		Name: name,
		Gold: startingGold,
	}
}

// AssignStartingPlanets gives each player, in join order, the planet at
// the same index with a reinforced garrison. Players beyond the planet
// count receive nothing; the map always holds at least planetCountMin
// planets so with maxPlayers capped at 6 that branch never fires.
func AssignStartingPlanets(g *GameState) {
	for i, player := range g.Players {
		if i >= len(g.Planets) {
			return
		}
		g.Planets[i].OwnerID = player.ID
		g.Planets[i].ShipsDocked = homeShips
	}
}

// PlayerByID returns the player with the given id, or nil.
func (g *GameState) PlayerByID(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlanetByID returns the planet with the given id, or nil.
func (g *GameState) PlanetByID(id string) *Planet {
	for _, p := range g.Planets {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// OwnedPlanet returns the planet with the given id only when it is owned
// by the given player, or nil.
func (g *GameState) OwnedPlanet(planetID, playerID string) *Planet {
	p := g.PlanetByID(planetID)
	if p == nil || p.OwnerID != playerID {
		return nil
	}
	return p
}

// IsMember reports whether the given player id belongs to the game.
func (g *GameState) IsMember(playerID string) bool {
	return g.PlayerByID(playerID) != nil
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (g *GameState) Clone() *GameState {
	next := &GameState{
		ID:         g.ID,
		Turn:       g.Turn,
		MaxPlayers: g.MaxPlayers,
		Status:     g.Status,
		Players:    make([]*Player, len(g.Players)),
		Planets:    make([]*Planet, len(g.Planets)),
		Orders:     g.Orders.Clone(),
	}
	for i, p := range g.Players {
		cp := *p
		next.Players[i] = &cp
	}
	for i, p := range g.Planets {
		cp := *p
		cp.Structures = make([]Structure, len(p.Structures))
		copy(cp.Structures, p.Structures)
		next.Planets[i] = &cp
	}
	return next
}
