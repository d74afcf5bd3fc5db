package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	o := &PlayerOrder{PlayerID: "p1"}
	o.Normalize()

	require.NotNil(t, o.SliderByPlanet)
	require.NotNil(t, o.BuildOrders)
	require.NotNil(t, o.Moves)
	assert.Empty(t, o.SliderByPlanet)
	assert.Empty(t, o.BuildOrders)
	assert.Empty(t, o.Moves)
	assert.Equal(t, 0, o.ResearchSpend)
}

func TestNormalizeFloorsNegativeResearchSpend(t *testing.T) {
	o := &PlayerOrder{PlayerID: "p1", ResearchSpend: -500}
	o.Normalize()
	assert.Equal(t, 0, o.ResearchSpend)
}

func TestOrderBufferKeepsSubmissionOrder(t *testing.T) {
	b := NewOrderBuffer()
	b.Put(&PlayerOrder{PlayerID: "p2", ResearchSpend: 1})
	b.Put(&PlayerOrder{PlayerID: "p1", ResearchSpend: 2})
	b.Put(&PlayerOrder{PlayerID: "p3", ResearchSpend: 3})

	var seen []string
	b.Each(func(o *PlayerOrder) { seen = append(seen, o.PlayerID) })
	assert.Equal(t, []string{"p2", "p1", "p3"}, seen)
}

// A re-submission replaces the payload but keeps the original slot, so a
// player cannot improve their combat priority by submitting twice.
func TestOrderBufferOverwriteKeepsSlot(t *testing.T) {
	b := NewOrderBuffer()
	b.Put(&PlayerOrder{PlayerID: "p2", ResearchSpend: 1})
	b.Put(&PlayerOrder{PlayerID: "p1", ResearchSpend: 2})
	b.Put(&PlayerOrder{PlayerID: "p2", ResearchSpend: 9})

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 9, b.Get("p2").ResearchSpend)

	var seen []string
	b.Each(func(o *PlayerOrder) { seen = append(seen, o.PlayerID) })
	assert.Equal(t, []string{"p2", "p1"}, seen)
}

func TestOrdersComplete(t *testing.T) {
	g := testGame()
	assert.False(t, g.OrdersComplete(), "no orders yet")

	g.Orders.Put(&PlayerOrder{PlayerID: "p1"})
	assert.False(t, g.OrdersComplete(), "p2 still missing")

	g.Orders.Put(&PlayerOrder{PlayerID: "stranger"})
	assert.False(t, g.OrdersComplete(), "non-member orders do not count")

	g.Orders.Put(&PlayerOrder{PlayerID: "p2"})
	assert.True(t, g.OrdersComplete())
}

func TestOrdersCompleteEmptyGame(t *testing.T) {
	g := NewGame(4)
	assert.False(t, g.OrdersComplete(), "a game with no players is never complete")
}
