package game

import "encoding/json"

// BuildOrder requests construction of a structure on a planet.
type BuildOrder struct {
	PlanetID  string    `json:"planetId"`
	Structure Structure `json:"structure"`
}

// ShipMove requests moving a fleet between two planets.
type ShipMove struct {
	FromPlanetID string `json:"fromPlanetId"`
	ToPlanetID   string `json:"toPlanetId"`
	ShipCount    int    `json:"shipCount"`
}

// PlayerOrder is one player's complete intent for the current turn.
// Clients may omit any of the optional fields; Normalize fills them in.
type PlayerOrder struct {
	PlayerID       string             `json:"playerId"`
	SliderByPlanet map[string]float64 `json:"sliderByPlanet"`
	BuildOrders    []BuildOrder       `json:"buildOrders"`
	ResearchSpend  int                `json:"researchSpend"`
	Moves          []ShipMove         `json:"moves"`
}

// Normalize fills absent optional fields with empty defaults so a partial
// client payload is always a complete order, and floors a negative
// research spend at zero. Called once at submission time so the
// resolution pipeline never null-checks.
func (o *PlayerOrder) Normalize() {
	if o.SliderByPlanet == nil {
		o.SliderByPlanet = map[string]float64{}
	}
	if o.BuildOrders == nil {
		o.BuildOrders = []BuildOrder{}
	}
	if o.Moves == nil {
		o.Moves = []ShipMove{}
	}
	if o.ResearchSpend < 0 {
		o.ResearchSpend = 0
	}
}

// OrderBuffer accumulates the pending orders for one turn. Iteration
// follows submission order, not player join order: a re-submission
// overwrites the payload but keeps the original slot, so multi-attacker
// combat on a contested planet resolves first-submitted-first.
type OrderBuffer struct {
	byPlayer map[string]*PlayerOrder
	sequence []string
}

// NewOrderBuffer returns an empty buffer.
func NewOrderBuffer() *OrderBuffer {
	return &OrderBuffer{byPlayer: map[string]*PlayerOrder{}}
}

// Len returns the number of distinct players with a stored order.
func (b *OrderBuffer) Len() int {
	return len(b.sequence)
}

// Has reports whether the player has a stored order.
func (b *OrderBuffer) Has(playerID string) bool {
	_, ok := b.byPlayer[playerID]
	return ok
}

// Get returns the stored order for the player, or nil.
func (b *OrderBuffer) Get(playerID string) *PlayerOrder {
	return b.byPlayer[playerID]
}

// Put stores or overwrites the order for its player.
func (b *OrderBuffer) Put(o *PlayerOrder) {
	if _, ok := b.byPlayer[o.PlayerID]; !ok {
		b.sequence = append(b.sequence, o.PlayerID)
	}
	b.byPlayer[o.PlayerID] = o
}

// Each calls fn for every stored order in submission order.
func (b *OrderBuffer) Each(fn func(*PlayerOrder)) {
	for _, id := range b.sequence {
		fn(b.byPlayer[id])
	}
}

// Clone returns a deep copy of the buffer.
func (b *OrderBuffer) Clone() *OrderBuffer {
	next := NewOrderBuffer()
	for _, id := range b.sequence {
		next.Put(cloneOrder(b.byPlayer[id]))
	}
	return next
}

func cloneOrder(o *PlayerOrder) *PlayerOrder {
	cp := &PlayerOrder{
		PlayerID:       o.PlayerID,
		SliderByPlanet: make(map[string]float64, len(o.SliderByPlanet)),
		BuildOrders:    make([]BuildOrder, len(o.BuildOrders)),
		ResearchSpend:  o.ResearchSpend,
		Moves:          make([]ShipMove, len(o.Moves)),
	}
	for k, v := range o.SliderByPlanet {
		cp.SliderByPlanet[k] = v
	}
	copy(cp.BuildOrders, o.BuildOrders)
	copy(cp.Moves, o.Moves)
	return cp
}

// MarshalJSON encodes the buffer as an array in submission order so the
// order that drives combat resolution survives a save/load round trip.
func (b *OrderBuffer) MarshalJSON() ([]byte, error) {
	orders := make([]*PlayerOrder, 0, len(b.sequence))
	for _, id := range b.sequence {
		orders = append(orders, b.byPlayer[id])
	}
	return json.Marshal(orders)
}

// UnmarshalJSON rebuilds the buffer from its array encoding.
func (b *OrderBuffer) UnmarshalJSON(data []byte) error {
	var orders []*PlayerOrder
	if err := json.Unmarshal(data, &orders); err != nil {
		return err
	}
	b.byPlayer = map[string]*PlayerOrder{}
	b.sequence = nil
	for _, o := range orders {
		o.Normalize()
		b.Put(o)
	}
	return nil
}

// OrdersComplete reports whether every player has submitted an order for
// the current turn. A game with no players is never complete.
func (g *GameState) OrdersComplete() bool {
	if len(g.Players) == 0 {
		return false
	}
	for _, p := range g.Players {
		if !g.Orders.Has(p.ID) {
			return false
		}
	}
	return true
}
