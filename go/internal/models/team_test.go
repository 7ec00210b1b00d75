package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeam_Acquire(t *testing.T) {
	team := NewTeam("MI", "Mumbai", decimal.NewFromInt(100), 2, 2)
	item := &Item{ID: "p1", Name: "One", Category: CategoryBatter, BasePrice: decimal.NewFromInt(2), Status: ItemPending}

	p, err := team.Acquire(item, decimal.NewFromInt(4), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ItemID)
	assert.True(t, team.RemainingBudget.Equal(decimal.NewFromInt(96)))
	assert.Equal(t, ItemSold, item.Status)
	require.NotNil(t, item.OwnerTeamID)
	assert.Equal(t, "MI", *item.OwnerTeamID)
	require.NoError(t, team.CheckInvariants(8))

	// resolution fields are written once
	_, err = team.Acquire(item, decimal.NewFromInt(4), time.Now())
	require.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Equal(t, 1, team.RosterSize())
}

func TestTeam_AcquireGuards(t *testing.T) {
	team := NewTeam("CSK", "Chennai", decimal.NewFromInt(5), 1, 2)

	_, err := team.Acquire(&Item{ID: "a", Status: ItemPending}, decimal.NewFromInt(6), time.Now())
	require.ErrorIs(t, err, ErrNegativeBudget)

	_, err = team.Acquire(&Item{ID: "b", Status: ItemPending}, decimal.NewFromInt(1), time.Now())
	require.NoError(t, err)

	_, err = team.Acquire(&Item{ID: "c", Status: ItemPending}, decimal.NewFromInt(1), time.Now())
	require.ErrorIs(t, err, ErrRosterOverflow)
}

func TestTeam_CheckInvariants(t *testing.T) {
	team := NewTeam("RCB", "Bengaluru", decimal.NewFromInt(10), 5, 2)
	team.RemainingBudget = decimal.NewFromInt(9)
	require.ErrorIs(t, team.CheckInvariants(8), ErrBudgetMismatch)

	team.RemainingBudget = decimal.NewFromInt(-1)
	require.ErrorIs(t, team.CheckInvariants(8), ErrNegativeBudget)

	team = NewTeam("RCB", "Bengaluru", decimal.NewFromInt(10), 5, 2)
	for _, id := range []string{"x", "y"} {
		_, err := team.Acquire(&Item{ID: id, Overseas: true, Status: ItemPending}, decimal.NewFromInt(1), time.Now())
		require.NoError(t, err)
	}
	require.ErrorIs(t, team.CheckInvariants(1), ErrOverseasOverrun)
	require.NoError(t, team.CheckInvariants(2))

	one := NewTeam("GT", "Gujarat", decimal.NewFromInt(10), 5, 2)
	require.NoError(t, one.CheckInvariants(0))
	_, err := one.Acquire(&Item{ID: "z", Overseas: true, Status: ItemPending}, decimal.NewFromInt(1), time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, one.CheckInvariants(0), ErrOverseasOverrun, "a zero quota allows no overseas players")
}

func TestExactMoney(t *testing.T) {
	assert.True(t, ExactMoney(decimal.RequireFromString("2.12")))
	assert.True(t, ExactMoney(decimal.RequireFromString("2.10000")))
	assert.True(t, ExactMoney(decimal.NewFromInt(7)))
	assert.False(t, ExactMoney(decimal.RequireFromString("2.123456")))
	assert.False(t, ExactMoney(decimal.RequireFromString("0.005")))
}

func TestItem_MarkUnsold(t *testing.T) {
	item := &Item{ID: "u", Status: ItemPending}
	require.NoError(t, item.MarkUnsold())
	assert.True(t, item.Resolved())
	require.ErrorIs(t, item.MarkSold("MI", decimal.NewFromInt(1)), ErrAlreadyResolved)
	assert.Nil(t, item.OwnerTeamID)
}
