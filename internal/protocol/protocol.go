package protocol

import (
	"bytes"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
)

const (
	MaxClients = 32
	MaxNameLen = 255
)

// Stream identifies an independently sequenced delivery channel.
type Stream uint8

const (
	StreamInputState Stream = iota + 1
	StreamHealthUpdate
	StreamWeaponSwitch
	StreamShotEvent
	StreamAmmoUpdate
)

// StreamCount is the number of sequenced streams. Stream numbers double as
// transport channel ids, channel 0 is reserved for unreliable traffic.
const StreamCount = 5

func (s Stream) String() string {
	switch s {
	case StreamInputState:
		return "input_state"
	case StreamHealthUpdate:
		return "health_update"
	case StreamWeaponSwitch:
		return "weapon_switch"
	case StreamShotEvent:
		return "shot_event"
	case StreamAmmoUpdate:
		return "ammo_update"
	default:
		return fmt.Sprintf("stream(%d)", uint8(s))
	}
}

type Reliability uint8

const (
	ReliabilityUnreliable Reliability = iota
	ReliabilitySequenced
)

type Delivery struct {
	Reliability Reliability
	Stream      Stream
}

// ReliableSequenced guarantees in-order, duplicate-free delivery within stream.
func ReliableSequenced(stream Stream) Delivery {
	return Delivery{Reliability: ReliabilitySequenced, Stream: stream}
}

func Unreliable() Delivery {
	return Delivery{Reliability: ReliabilityUnreliable}
}

func (d Delivery) Reliable() bool {
	return d.Reliability == ReliabilitySequenced
}

func (d Delivery) String() string {
	if d.Reliable() {
		return "reliable_sequenced(" + d.Stream.String() + ")"
	}
	return "unreliable"
}

type Urgency uint8

const (
	UrgencyOnTick Urgency = iota
	UrgencyImmediate
)

func (u Urgency) String() string {
	if u == UrgencyImmediate {
		return "immediate"
	}
	return "on_tick"
}

type InputFlags uint16

const (
	InputUp InputFlags = 1 << iota
	InputDown
	InputLeft
	InputRight
	InputShoot
	InputReload
	InputSelect1
	InputSelect2
	InputSelect3
	InputSelect4
	InputSelect5
)

var selectFlags = [...]InputFlags{InputSelect1, InputSelect2, InputSelect3, InputSelect4, InputSelect5}

// SelectSlots is the number of holster slots input can address.
const SelectSlots = len(selectFlags)

func (f InputFlags) Has(flag InputFlags) bool {
	return f&flag != 0
}

// SelectedSlot returns the zero-based holster slot requested by the lowest
// SELECT flag that is held.
func (f InputFlags) SelectedSlot() (int, bool) {
	for i, flag := range selectFlags {
		if f.Has(flag) {
			return i, true
		}
	}
	return 0, false
}

type Vector2f struct {
	X float32 `msgpack:"x"`
	Y float32 `msgpack:"y"`
}

func (v Vector2f) Add(o Vector2f) Vector2f {
	return Vector2f{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector2f) Sub(o Vector2f) Vector2f {
	return Vector2f{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector2f) Scale(s float32) Vector2f {
	return Vector2f{X: v.X * s, Y: v.Y * s}
}

func (v Vector2f) Length() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

func (v Vector2f) Normalize() Vector2f {
	length := v.Length()
	if length == 0 {
		return Vector2f{}
	}
	return Vector2f{X: v.X / length, Y: v.Y / length}
}

// Rotate turns v counter-clockwise by angle radians.
func (v Vector2f) Rotate(angle float64) Vector2f {
	sin, cos := math.Sincos(angle)
	x, y := float64(v.X), float64(v.Y)
	return Vector2f{
		X: float32(x*cos - y*sin),
		Y: float32(x*sin + y*cos),
	}
}

func (v Vector2f) IsFinite() bool {
	for _, c := range [2]float32{v.X, v.Y} {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

var cp437Decoder = charmap.CodePage437.NewDecoder()
var cp437Encoder = charmap.CodePage437.NewEncoder()

func StringToCP437(s string) ([]byte, error) {
	return cp437Encoder.Bytes([]byte(s))
}

func CP437ToString(b []byte) (string, error) {
	trimmed := bytes.TrimRight(b, "\x00")
	decoded, err := cp437Decoder.Bytes(trimmed)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// DisconnectReason is the ENet disconnect data the server sends.
type DisconnectReason uint32

const (
	DisconnectReasonUndefined DisconnectReason = iota
	DisconnectReasonServerFull
	DisconnectReasonBanned
	DisconnectReasonKicked
	DisconnectReasonShutdown
	DisconnectReasonAddressInUse
)
