package craft

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/horizon/go-controller/internal/inventory"
)

// #region types
// Station names the block a recipe must be made at.
type Station string

const (
	StationHand          Station = "hand"
	StationCraftingTable Station = "crafting_table"
	StationFurnace       Station = "furnace"
)

// Recipe is one craftable or smeltable item. ID is the simulator's craft argument.
type Recipe struct {
	Item    string                 `yaml:"item"`
	ID      int                    `yaml:"id"`
	Station Station                `yaml:"station"`
	Inputs  inventory.Requirements `yaml:"inputs"`
}

// Catalogue indexes recipes by output item.
type Catalogue struct {
	byItem map[string]Recipe
}
// #endregion types

// #region load
// ParseCatalogue decodes a YAML list of recipes.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var doc struct {
		Recipes []Recipe `yaml:"recipes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}

	c := &Catalogue{byItem: make(map[string]Recipe, len(doc.Recipes))}
	for _, r := range doc.Recipes {
		if r.Item == "" {
			return nil, fmt.Errorf("parse recipes: recipe with id %d has no item", r.ID)
		}
		if _, dup := c.byItem[r.Item]; dup {
			return nil, fmt.Errorf("parse recipes: duplicate item %q", r.Item)
		}
		if r.Station == "" {
			r.Station = StationHand
		}
		r.Inputs = r.Inputs.Clone()
		c.byItem[r.Item] = r
	}
	return c, nil
}

// LoadCatalogue reads and parses a recipe file.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}
	return ParseCatalogue(data)
}
// #endregion load

// #region lookup
// Lookup returns the recipe producing item.
func (c *Catalogue) Lookup(item string) (Recipe, bool) {
	r, ok := c.byItem[item]
	return r, ok
}

// Items lists every catalogued item in sorted order.
func (c *Catalogue) Items() []string {
	out := make([]string, 0, len(c.byItem))
	for item := range c.byItem {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of recipes.
func (c *Catalogue) Len() int { return len(c.byItem) }
// #endregion lookup
