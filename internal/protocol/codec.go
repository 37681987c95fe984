package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownEvent = errors.New("unknown event kind")

// Codec turns events into transport payloads and back.
type Codec interface {
	Name() string
	Encode(ev Event) ([]byte, error)
	Decode(data []byte) (Event, error)
}

func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "binary":
		return BinaryCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}

// BinaryCodec writes a kind byte followed by the little-endian fields of
// the event. Strings are CP437 with a uint8 length prefix.
type BinaryCodec struct{}

func (BinaryCodec) Name() string { return "binary" }

func (BinaryCodec) Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encode: nil event")
	}

	ds := NewDataStreamWriter()
	if err := ds.WriteUint8(uint8(ev.Kind())); err != nil {
		return nil, err
	}

	var err error
	switch e := ev.(type) {
	case HealthUpdate:
		if err = ds.WriteUint32(e.Health); err == nil {
			err = ds.WriteUint32(e.Max)
		}
	case WeaponSwitch:
		if err = ds.WriteString(e.Name); err == nil {
			if err = ds.WriteUint32(e.MagazineSize); err == nil {
				err = ds.WriteUint32(e.AmmoInMagazine)
			}
		}
	case AmmoUpdate:
		err = ds.WriteUint32(e.AmmoInMagazine)
	case ShotEvent:
		if err = ds.WriteVector2f(e.Position); err == nil {
			if err = ds.WriteVector2f(e.Velocity); err == nil {
				err = ds.WriteFloat32(e.BulletTimeLimit)
			}
		}
	case InputState:
		if err = ds.WriteUint16(uint16(e.Flags)); err == nil {
			err = ds.WriteVector2f(e.Cursor)
		}
	case EntityState:
		err = writeEntityState(ds, e)
	default:
		return nil, fmt.Errorf("encode %T: %w", ev, ErrUnknownEvent)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}

	return ds.Bytes(), nil
}

func writeEntityState(ds *DataStream, e EntityState) error {
	if len(e.Entities) > 0xFFFF {
		return fmt.Errorf("too many entities: %d", len(e.Entities))
	}
	if err := ds.WriteUint16(uint16(len(e.Entities))); err != nil {
		return err
	}
	for _, snap := range e.Entities {
		if err := ds.WriteUint32(snap.ID); err != nil {
			return err
		}
		if err := ds.WriteVector2f(snap.Position); err != nil {
			return err
		}
		if err := ds.WriteFloat32(snap.Rotation); err != nil {
			return err
		}
	}
	return nil
}

func (BinaryCodec) Decode(data []byte) (Event, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("payload too short for event kind")
	}

	kind := EventKind(data[0])
	ds := NewDataStream(data[1:])

	ev, err := readEvent(kind, ds)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return ev, nil
}

func readEvent(kind EventKind, ds *DataStream) (Event, error) {
	switch kind {
	case EventKindHealthUpdate:
		var e HealthUpdate
		var err error
		if e.Health, err = ds.ReadUint32(); err != nil {
			return nil, err
		}
		if e.Max, err = ds.ReadUint32(); err != nil {
			return nil, err
		}
		return e, nil

	case EventKindWeaponSwitch:
		var e WeaponSwitch
		var err error
		if e.Name, err = ds.ReadString(); err != nil {
			return nil, err
		}
		if e.MagazineSize, err = ds.ReadUint32(); err != nil {
			return nil, err
		}
		if e.AmmoInMagazine, err = ds.ReadUint32(); err != nil {
			return nil, err
		}
		return e, nil

	case EventKindAmmoUpdate:
		ammo, err := ds.ReadUint32()
		if err != nil {
			return nil, err
		}
		return AmmoUpdate{AmmoInMagazine: ammo}, nil

	case EventKindShot:
		var e ShotEvent
		var err error
		if e.Position, err = ds.ReadVector2f(); err != nil {
			return nil, err
		}
		if e.Velocity, err = ds.ReadVector2f(); err != nil {
			return nil, err
		}
		if e.BulletTimeLimit, err = ds.ReadFloat32(); err != nil {
			return nil, err
		}
		return e, nil

	case EventKindInputState:
		flags, err := ds.ReadUint16()
		if err != nil {
			return nil, err
		}
		cursor, err := ds.ReadVector2f()
		if err != nil {
			return nil, err
		}
		return InputState{Flags: InputFlags(flags), Cursor: cursor}, nil

	case EventKindEntityState:
		count, err := ds.ReadUint16()
		if err != nil {
			return nil, err
		}
		if !ds.CanRead(int(count) * 16) {
			return nil, fmt.Errorf("entity state truncated")
		}
		e := EntityState{Entities: make([]EntitySnapshot, count)}
		for i := range e.Entities {
			snap := &e.Entities[i]
			if snap.ID, err = ds.ReadUint32(); err != nil {
				return nil, err
			}
			if snap.Position, err = ds.ReadVector2f(); err != nil {
				return nil, err
			}
			if snap.Rotation, err = ds.ReadFloat32(); err != nil {
				return nil, err
			}
		}
		return e, nil

	default:
		return nil, ErrUnknownEvent
	}
}

// MsgpackCodec wraps each event in a {k, d} envelope.
type MsgpackCodec struct{}

type envelope struct {
	Kind EventKind          `msgpack:"k"`
	Data msgpack.RawMessage `msgpack:"d"`
}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	if err := validateEvent(ev); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}

	data, err := msgpack.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}

	payload, err := msgpack.Marshal(envelope{Kind: ev.Kind(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return payload, nil
}

func (MsgpackCodec) Decode(data []byte) (Event, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var err error
	var ev Event
	switch env.Kind {
	case EventKindHealthUpdate:
		var e HealthUpdate
		err = msgpack.Unmarshal(env.Data, &e)
		ev = e
	case EventKindWeaponSwitch:
		var e WeaponSwitch
		err = msgpack.Unmarshal(env.Data, &e)
		ev = e
	case EventKindAmmoUpdate:
		var e AmmoUpdate
		err = msgpack.Unmarshal(env.Data, &e)
		ev = e
	case EventKindShot:
		var e ShotEvent
		err = msgpack.Unmarshal(env.Data, &e)
		ev = e
	case EventKindInputState:
		var e InputState
		err = msgpack.Unmarshal(env.Data, &e)
		ev = e
	case EventKindEntityState:
		var e EntityState
		err = msgpack.Unmarshal(env.Data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("decode kind %d: %w", env.Kind, ErrUnknownEvent)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	return ev, nil
}

// validateEvent applies the wire constraints shared by every codec.
func validateEvent(ev Event) error {
	switch e := ev.(type) {
	case WeaponSwitch:
		encoded, err := StringToCP437(e.Name)
		if err != nil {
			return fmt.Errorf("name %q is not cp437: %w", e.Name, err)
		}
		if len(encoded) > MaxNameLen {
			return fmt.Errorf("name too long: %d bytes", len(encoded))
		}
	case HealthUpdate, AmmoUpdate, ShotEvent, InputState, EntityState:
	default:
		return ErrUnknownEvent
	}
	return nil
}
