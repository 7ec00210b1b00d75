// Package catalogue holds the franchises and the ordered player pool every
// new room is seeded from.
package catalogue

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/mcdev12/auctionroom/go/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var embedded []byte

var ErrInvalidCatalogue = errors.New("invalid catalogue")

// Franchise is a team slot participants can claim
type Franchise struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Catalogue is the static setup for a room. Items are auctioned in order.
type Catalogue struct {
	Franchises []Franchise   `yaml:"franchises" json:"franchises"`
	Items      []models.Item `yaml:"items" json:"items"`
}

// Default returns the built-in catalogue
func Default() (Catalogue, error) {
	return Parse(embedded)
}

// Load reads a catalogue from a YAML file
func Load(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("failed to read catalogue file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalogue
func Parse(data []byte) (Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalogue{}, fmt.Errorf("failed to parse catalogue: %w", err)
	}
	for i := range c.Items {
		c.Items[i].Status = models.ItemPending
	}
	if err := c.Validate(); err != nil {
		return Catalogue{}, err
	}
	return c, nil
}

// Validate checks ids are unique and every item is auctionable
func (c Catalogue) Validate() error {
	if len(c.Franchises) < 2 {
		return fmt.Errorf("%w: need at least two franchises", ErrInvalidCatalogue)
	}
	seen := make(map[string]bool)
	for _, f := range c.Franchises {
		if f.ID == "" || seen[f.ID] {
			return fmt.Errorf("%w: franchise id %q missing or duplicated", ErrInvalidCatalogue, f.ID)
		}
		seen[f.ID] = true
	}

	if len(c.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidCatalogue)
	}
	seen = make(map[string]bool)
	for _, item := range c.Items {
		if item.ID == "" || seen[item.ID] {
			return fmt.Errorf("%w: item id %q missing or duplicated", ErrInvalidCatalogue, item.ID)
		}
		seen[item.ID] = true
		if !item.Category.Valid() {
			return fmt.Errorf("%w: item %s has unknown category %q", ErrInvalidCatalogue, item.ID, item.Category)
		}
		if !item.BasePrice.IsPositive() {
			return fmt.Errorf("%w: item %s needs a positive base price", ErrInvalidCatalogue, item.ID)
		}
		if !models.ExactMoney(item.BasePrice) {
			return fmt.Errorf("%w: item %s base price has more than %d decimal places", ErrInvalidCatalogue, item.ID, models.MoneyPlaces)
		}
	}
	return nil
}

// FreshItems returns unresolved copies of the items for a new room
func (c Catalogue) FreshItems() []*models.Item {
	out := make([]*models.Item, 0, len(c.Items))
	for _, item := range c.Items {
		fresh := item
		fresh.Status = models.ItemPending
		fresh.FinalPrice = nil
		fresh.OwnerTeamID = nil
		out = append(out, &fresh)
	}
	return out
}
