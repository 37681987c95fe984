package weapon

import (
	"fmt"
	"time"
)

type Slot struct {
	Name   string
	Weapon *Weapon
}

// Holster is an ordered set of weapons with exactly one active slot.
type Holster struct {
	slots  []Slot
	active int
}

func NewHolster(slots ...Slot) (*Holster, error) {
	if len(slots) == 0 {
		return nil, ErrEmptyHolster
	}
	for i, s := range slots {
		if s.Weapon == nil {
			return nil, fmt.Errorf("holster slot %d (%s) has no weapon", i, s.Name)
		}
	}

	return &Holster{slots: append([]Slot(nil), slots...)}, nil
}

func (h *Holster) Active() Slot {
	return h.slots[h.active]
}

func (h *Holster) ActiveIndex() int {
	return h.active
}

func (h *Holster) Len() int {
	return len(h.slots)
}

func (h *Holster) Slot(index int) (Slot, bool) {
	if index < 0 || index >= len(h.slots) {
		return Slot{}, false
	}
	return h.slots[index], true
}

// Switch makes index the active slot. It reports false when index is out
// of range or already active. A reload running on the outgoing or incoming
// weapon restarts at now.
func (h *Holster) Switch(index int, now time.Duration) (Slot, bool) {
	if index < 0 || index >= len(h.slots) || index == h.active {
		return Slot{}, false
	}

	h.slots[h.active].Weapon.RestartReload(now)
	h.active = index
	h.slots[h.active].Weapon.RestartReload(now)

	return h.slots[h.active], true
}
