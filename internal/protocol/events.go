package protocol

type EventKind uint8

const (
	EventKindHealthUpdate EventKind = iota + 1
	EventKindWeaponSwitch
	EventKindAmmoUpdate
	EventKindShot
	EventKindInputState
	EventKindEntityState
)

// Event is one of the wire-level payloads exchanged with clients.
type Event interface {
	Kind() EventKind
}

type HealthUpdate struct {
	Health uint32 `msgpack:"health"`
	Max    uint32 `msgpack:"max"`
}

type WeaponSwitch struct {
	Name           string `msgpack:"name"`
	MagazineSize   uint32 `msgpack:"magazine_size"`
	AmmoInMagazine uint32 `msgpack:"ammo"`
}

type AmmoUpdate struct {
	AmmoInMagazine uint32 `msgpack:"ammo"`
}

type ShotEvent struct {
	Position Vector2f `msgpack:"pos"`
	Velocity Vector2f `msgpack:"vel"`
	// BulletTimeLimit is the projectile lifetime in seconds.
	BulletTimeLimit float32 `msgpack:"ttl"`
}

// InputState is sent by clients every frame on StreamInputState.
type InputState struct {
	Flags  InputFlags `msgpack:"flags"`
	Cursor Vector2f   `msgpack:"cursor"`
}

type EntitySnapshot struct {
	ID       uint32   `msgpack:"id"`
	Position Vector2f `msgpack:"pos"`
	Rotation float32  `msgpack:"rot"`
}

type EntityState struct {
	Entities []EntitySnapshot `msgpack:"entities"`
}

func (HealthUpdate) Kind() EventKind { return EventKindHealthUpdate }
func (WeaponSwitch) Kind() EventKind { return EventKindWeaponSwitch }
func (AmmoUpdate) Kind() EventKind   { return EventKindAmmoUpdate }
func (ShotEvent) Kind() EventKind    { return EventKindShot }
func (InputState) Kind() EventKind   { return EventKindInputState }
func (EntityState) Kind() EventKind  { return EventKindEntityState }

func (k EventKind) String() string {
	switch k {
	case EventKindHealthUpdate:
		return "health_update"
	case EventKindWeaponSwitch:
		return "weapon_switch"
	case EventKindAmmoUpdate:
		return "ammo_update"
	case EventKindShot:
		return "shot"
	case EventKindInputState:
		return "input_state"
	case EventKindEntityState:
		return "entity_state"
	default:
		return "unknown"
	}
}
