package weapon

import (
	"fmt"
	"sort"
)

// Catalog maps weapon names to their details.
type Catalog map[string]Details

func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loadout builds a holster with a fresh weapon per name, in order.
func (c Catalog) Loadout(names []string) (*Holster, error) {
	if len(names) == 0 {
		return nil, ErrEmptyHolster
	}

	slots := make([]Slot, 0, len(names))
	for _, name := range names {
		details, ok := c[name]
		if !ok {
			return nil, fmt.Errorf("unknown weapon %q in loadout", name)
		}
		slots = append(slots, Slot{Name: name, Weapon: New(details)})
	}
	return NewHolster(slots...)
}
