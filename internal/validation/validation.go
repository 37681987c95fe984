// Package validation rejects client input the simulation must not see.
package validation

import (
	"math"

	"github.com/siohaza/sundown/internal/protocol"
)

// MaxCoordinate bounds cursor and spawn coordinates.
const MaxCoordinate = 1e6

const knownInputFlags = protocol.InputUp | protocol.InputDown | protocol.InputLeft | protocol.InputRight |
	protocol.InputShoot | protocol.InputReload |
	protocol.InputSelect1 | protocol.InputSelect2 | protocol.InputSelect3 | protocol.InputSelect4 | protocol.InputSelect5

func IsValidPosition(v protocol.Vector2f) bool {
	for _, c := range []float32{v.X, v.Y} {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
		if f < -MaxCoordinate || f > MaxCoordinate {
			return false
		}
	}
	return true
}

func IsValidInputFlags(flags protocol.InputFlags) bool {
	return flags&^knownInputFlags == 0
}

func IsValidInput(in protocol.InputState) bool {
	return IsValidInputFlags(in.Flags) && IsValidPosition(in.Cursor)
}

func IsValidName(name string) bool {
	if name == "" || len(name) > protocol.MaxNameLen {
		return false
	}
	_, err := protocol.StringToCP437(name)
	return err == nil
}
