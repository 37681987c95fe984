package gamestate

import (
	"testing"
	"time"
)

func TestWorldSpawnDespawn(t *testing.T) {
	w := NewWorld()
	a := w.Spawn(Entity{Caps: CapTransform | CapBounds})
	b := w.Spawn(Entity{Caps: CapTransform | CapVelocity | CapBounds})
	c := w.Spawn(Entity{Caps: CapTransform | CapProjectile})

	if !(a.ID < b.ID && b.ID < c.ID) {
		t.Fatalf("ids not ascending: %d %d %d", a.ID, b.ID, c.ID)
	}

	movers := w.Query(CapVelocity | CapBounds)
	if len(movers) != 1 || movers[0].ID != b.ID {
		t.Fatalf("movers = %v", movers)
	}

	if !w.Despawn(b.ID) {
		t.Fatalf("despawn of live entity returned false")
	}
	if w.Despawn(b.ID) {
		t.Fatalf("second despawn returned true")
	}
	if _, ok := w.Get(b.ID); ok {
		t.Fatalf("despawned entity still present")
	}

	d := w.Spawn(Entity{Caps: CapTransform})
	if d.ID <= c.ID {
		t.Fatalf("id %d reused or not monotonic after %d", d.ID, c.ID)
	}

	var seen []EntityID
	w.Each(CapTransform, func(e *Entity) { seen = append(seen, e.ID) })
	want := []EntityID{a.ID, c.ID, d.ID}
	if len(seen) != len(want) {
		t.Fatalf("Each visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Each visited %v, want %v", seen, want)
		}
	}
}

func TestEachSkipsEntitiesDespawnedDuringIteration(t *testing.T) {
	w := NewWorld()
	first := w.Spawn(Entity{Caps: CapTransform})
	second := w.Spawn(Entity{Caps: CapTransform})

	visited := 0
	w.Each(CapTransform, func(e *Entity) {
		visited++
		if e.ID == first.ID {
			w.Despawn(second.ID)
		}
	})
	if visited != 1 {
		t.Fatalf("visited = %d, want 1", visited)
	}
}

func TestCapabilityHas(t *testing.T) {
	e := Entity{}
	e.Add(CapHealth | CapClient)
	if !e.Has(CapHealth) || !e.Has(CapHealth|CapClient) {
		t.Fatalf("missing added capabilities")
	}
	if e.Has(CapHealth | CapHolster) {
		t.Fatalf("Has reported a partial mask as present")
	}
	e.Remove(CapClient)
	if _, ok := e.ClientID(); ok {
		t.Fatalf("client id reported after removal")
	}
}

func TestManualClockAndLifespan(t *testing.T) {
	clock := NewManualClock(time.Second)
	l := Lifespan{SpawnedAt: clock.Now(), TTL: 600 * time.Millisecond}

	clock.Advance(599 * time.Millisecond)
	if l.Expired(clock.Now()) {
		t.Fatalf("expired early")
	}
	clock.Advance(time.Millisecond)
	if !l.Expired(clock.Now()) {
		t.Fatalf("not expired at ttl")
	}
}
