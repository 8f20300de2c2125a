package scraper

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Locators lists, per field, the selectors tried in rank order.
// Keeping them in one place makes markup drift a data change, not a code change.
type Locators struct {
	Containers  []string `yaml:"containers"`
	Anchor      []string `yaml:"anchor"`
	Image       []string `yaml:"image"`
	Title       []string `yaml:"title"`
	Price       []string `yaml:"price"`
	Mileage     []string `yaml:"mileage"`
	Description []string `yaml:"description"`
	Location    []string `yaml:"location"`
	Condition   []string `yaml:"condition"`
	VIN         []string `yaml:"vin"`
	Features    []string `yaml:"features"`
}

// DefaultLocators returns the built-in selector lists for the dealership inventory page.
func DefaultLocators() Locators {
	return Locators{
		Containers: []string{
			".vehicle-card",
			".inventory-item",
			".car-listing",
			"article.vehicle",
			"[data-vehicle]",
			".listing-item",
		},
		Anchor: []string{"a[href]"},
		Image:  []string{"img[src]", "img[data-src]"},
		Title: []string{
			"h2", "h3", "h4",
			".title", ".vehicle-title", ".car-title",
			"[data-title]",
		},
		Price: []string{
			".price", ".vehicle-price", "[data-price]",
			"span.price", "div.price",
		},
		Mileage: []string{
			".mileage", ".miles", "[data-mileage]",
			"span.mileage", "div.mileage",
		},
		Description: []string{".description", ".details", "[data-description]"},
		Location:    []string{".location", ".dealer-location", "[data-location]"},
		Condition:   []string{".condition", ".stock-type", "[data-condition]"},
		VIN:         []string{".vin", "[data-vin]"},
		Features:    []string{".specs li", ".vehicle-specs li", "ul.features li"},
	}
}

// LoadLocators reads a YAML override file on top of the defaults. Lists
// present in the file replace the corresponding default list; omitted lists
// keep their defaults. A missing file yields the defaults unchanged.
func LoadLocators(path string) (Locators, error) {
	locators := DefaultLocators()
	if path == "" {
		return locators, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return locators, nil
	}
	if err != nil {
		return locators, fmt.Errorf("scraper: read locators %q: %w", path, err)
	}

	var override Locators
	if err := yaml.UnmarshalStrict(data, &override); err != nil {
		return locators, fmt.Errorf("scraper: parse locators %q: %w", path, err)
	}

	merge := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	merge(&locators.Containers, override.Containers)
	merge(&locators.Anchor, override.Anchor)
	merge(&locators.Image, override.Image)
	merge(&locators.Title, override.Title)
	merge(&locators.Price, override.Price)
	merge(&locators.Mileage, override.Mileage)
	merge(&locators.Description, override.Description)
	merge(&locators.Location, override.Location)
	merge(&locators.Condition, override.Condition)
	merge(&locators.VIN, override.VIN)
	merge(&locators.Features, override.Features)
	return locators, nil
}
