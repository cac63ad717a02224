package decode

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// EnumTable maps the numeric order-type and request-type fields to names.
// The program's schema does not publish these assignments, so they are
// lookup tables that deployments can override, not hard invariants.
type EnumTable struct {
	OrderTypes   map[uint8]string `toml:"order_types"`
	RequestTypes map[uint8]string `toml:"request_types"`
}

// DefaultEnumTable returns the mappings observed on mainnet.
func DefaultEnumTable() *EnumTable {
	return &EnumTable{
		OrderTypes: map[uint8]string{
			0: "take_profit",
			1: "stop_loss",
			2: "limit",
		},
		RequestTypes: map[uint8]string{
			0: "market",
			1: "trigger",
			2: "decrease",
		},
	}
}

// enumOverrideFile is the TOML shape accepted by LoadEnumOverrides. TOML
// table keys are strings, so values arrive keyed by decimal string.
type enumOverrideFile struct {
	OrderTypes   map[string]string `toml:"order_types"`
	RequestTypes map[string]string `toml:"request_types"`
}

// LoadEnumOverrides merges a TOML override file into the defaults. Entries
// replace or extend the built-in table; absent sections leave it untouched.
func LoadEnumOverrides(path string) (*EnumTable, error) {
	table := DefaultEnumTable()

	var file enumOverrideFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode enum overrides %s: %w", path, err)
	}

	if err := mergeEnum(table.OrderTypes, file.OrderTypes); err != nil {
		return nil, fmt.Errorf("order_types: %w", err)
	}
	if err := mergeEnum(table.RequestTypes, file.RequestTypes); err != nil {
		return nil, fmt.Errorf("request_types: %w", err)
	}

	return table, nil
}

func mergeEnum(dst map[uint8]string, src map[string]string) error {
	for key, name := range src {
		var value uint8
		if _, err := fmt.Sscanf(key, "%d", &value); err != nil {
			return fmt.Errorf("enum key %q is not a number", key)
		}
		dst[value] = name
	}
	return nil
}

// OrderTypeName resolves an order-type value, or an explicit unknown marker
// so unexpected values are visible instead of mis-rendered.
func (t *EnumTable) OrderTypeName(v uint8) string {
	if name, ok := t.OrderTypes[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", v)
}

// RequestTypeName resolves a request-type value.
func (t *EnumTable) RequestTypeName(v uint8) string {
	if name, ok := t.RequestTypes[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", v)
}
