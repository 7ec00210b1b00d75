package catalogue

import (
	"testing"

	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.Franchises, 10)
	assert.Len(t, c.Items, 48)
	assert.Equal(t, "p001", c.Items[0].ID)
	assert.Equal(t, "Marquee", c.Items[0].Set)
	assert.Equal(t, "2", c.Items[0].BasePrice.String())
	for _, item := range c.Items {
		assert.Equal(t, models.ItemPending, item.Status)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"one_franchise", `
franchises: [{id: A, name: A}]
items: [{id: x, name: X, category: batter, base_price: "1"}]`},
		{"duplicate_item", `
franchises: [{id: A, name: A}, {id: B, name: B}]
items:
  - {id: x, name: X, category: batter, base_price: "1"}
  - {id: x, name: Y, category: bowler, base_price: "1"}`},
		{"bad_category", `
franchises: [{id: A, name: A}, {id: B, name: B}]
items: [{id: x, name: X, category: goalkeeper, base_price: "1"}]`},
		{"zero_price", `
franchises: [{id: A, name: A}, {id: B, name: B}]
items: [{id: x, name: X, category: batter, base_price: "0"}]`},
		{"sub_cent_price", `
franchises: [{id: A, name: A}, {id: B, name: B}]
items: [{id: x, name: X, category: batter, base_price: "1.255"}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.ErrorIs(t, err, ErrInvalidCatalogue)
		})
	}

	_, err := Parse([]byte("franchises: ["))
	require.Error(t, err)
}

func TestFreshItems_Independent(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	first := c.FreshItems()
	require.NoError(t, first[0].MarkUnsold())

	second := c.FreshItems()
	assert.Equal(t, models.ItemPending, second[0].Status)
	assert.Equal(t, models.ItemPending, c.Items[0].Status)
}
