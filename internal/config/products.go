package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProductDefaults supplies the fields merged into a product submission when
// the queued task does not carry them.
type ProductDefaults struct {
	Vendor            string `yaml:"vendor"`
	ProductType       string `yaml:"product_type"`
	Price             string `yaml:"price"`
	SKU               string `yaml:"sku"`
	InventoryQuantity int    `yaml:"inventory_quantity"`
}

// LoadProductDefaults reads defaults from a YAML file. A missing file is not
// an error; built-in defaults are returned instead.
func LoadProductDefaults(path string) (ProductDefaults, error) {
	defaults := ProductDefaults{
		Vendor:            "default",
		Price:             "0.00",
		SKU:               "default-sku",
		InventoryQuantity: 1,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("read product defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, fmt.Errorf("parse product defaults: %w", err)
	}

	return defaults, nil
}
