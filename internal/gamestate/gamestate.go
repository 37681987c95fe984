package gamestate

import (
	"sort"
)

// World stores entities by id. Ids are allocated monotonically and never
// reused, so iteration in allocation order is ascending id order.
type World struct {
	entities map[EntityID]*Entity
	order    []EntityID
	nextID   EntityID
}

func NewWorld() *World {
	return &World{
		entities: make(map[EntityID]*Entity),
		order:    make([]EntityID, 0, 64),
	}
}

// Spawn stores a copy of e under a fresh id and returns it.
func (w *World) Spawn(e Entity) *Entity {
	w.nextID++
	e.ID = w.nextID

	stored := &e
	w.entities[e.ID] = stored
	w.order = append(w.order, e.ID)
	return stored
}

func (w *World) Get(id EntityID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Despawn removes id. Removing an absent entity is a no-op.
func (w *World) Despawn(id EntityID) bool {
	if _, ok := w.entities[id]; !ok {
		return false
	}
	delete(w.entities, id)

	i := sort.Search(len(w.order), func(i int) bool { return w.order[i] >= id })
	if i < len(w.order) && w.order[i] == id {
		w.order = append(w.order[:i], w.order[i+1:]...)
	}
	return true
}

// Query returns the entities carrying every capability in mask, ascending
// by id.
func (w *World) Query(mask Capability) []*Entity {
	out := make([]*Entity, 0, len(w.order))
	for _, id := range w.order {
		if e := w.entities[id]; e.Has(mask) {
			out = append(out, e)
		}
	}
	return out
}

// Each calls fn for every entity matching mask. Entities despawned by fn
// before they are reached are skipped.
func (w *World) Each(mask Capability, fn func(*Entity)) {
	ids := append([]EntityID(nil), w.order...)
	for _, id := range ids {
		e, ok := w.entities[id]
		if !ok || !e.Has(mask) {
			continue
		}
		fn(e)
	}
}

func (w *World) Len() int {
	return len(w.entities)
}
