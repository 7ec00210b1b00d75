package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Category is the playing role used for roster balance heuristics
type Category string

const (
	CategoryBatter       Category = "batter"
	CategoryBowler       Category = "bowler"
	CategoryAllRounder   Category = "all-rounder"
	CategoryWicketKeeper Category = "wicket-keeper"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryBatter,
	CategoryBowler,
	CategoryAllRounder,
	CategoryWicketKeeper,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ItemStatus is the resolution state of an auctionable item
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemSold    ItemStatus = "sold"
	ItemUnsold  ItemStatus = "unsold"
)

var ErrAlreadyResolved = errors.New("item already resolved")

// Item represents a player put up for auction
type Item struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Category  Category        `json:"category" yaml:"category"`
	Overseas  bool            `json:"overseas" yaml:"overseas"`
	Set       string          `json:"set" yaml:"set"`
	BasePrice decimal.Decimal `json:"base_price" yaml:"base_price"`

	// Resolution fields, written exactly once
	Status      ItemStatus       `json:"status" yaml:"-"`
	FinalPrice  *decimal.Decimal `json:"final_price,omitempty" yaml:"-"`
	OwnerTeamID *string          `json:"owner_team_id,omitempty" yaml:"-"`
}

// Resolved reports whether the item has reached a terminal state
func (i *Item) Resolved() bool {
	return i.Status == ItemSold || i.Status == ItemUnsold
}

// MarkSold records the sale of the item to teamID at price
func (i *Item) MarkSold(teamID string, price decimal.Decimal) error {
	if i.Resolved() {
		return fmt.Errorf("mark %s sold: %w", i.ID, ErrAlreadyResolved)
	}
	owner := teamID
	i.Status = ItemSold
	i.FinalPrice = &price
	i.OwnerTeamID = &owner
	return nil
}

// MarkUnsold records that the item closed without a buyer
func (i *Item) MarkUnsold() error {
	if i.Resolved() {
		return fmt.Errorf("mark %s unsold: %w", i.ID, ErrAlreadyResolved)
	}
	i.Status = ItemUnsold
	return nil
}

// Composition is the target number of players per category
type Composition map[Category]int

// DefaultComposition is the ideal eighteen-player squad
func DefaultComposition() Composition {
	return Composition{
		CategoryBatter:       6,
		CategoryBowler:       6,
		CategoryAllRounder:   4,
		CategoryWicketKeeper: 2,
	}
}

// Total returns the number of players the composition asks for
func (c Composition) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}
