package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/siohaza/sundown/internal/protocol"
)

func TestIsValidInput(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		in   protocol.InputState
		want bool
	}{
		{"idle", protocol.InputState{}, true},
		{"aiming", protocol.InputState{Flags: protocol.InputShoot | protocol.InputUp, Cursor: protocol.Vector2f{X: 3, Y: -4}}, true},
		{"nan cursor", protocol.InputState{Cursor: protocol.Vector2f{X: nan}}, false},
		{"inf cursor", protocol.InputState{Cursor: protocol.Vector2f{Y: inf}}, false},
		{"far cursor", protocol.InputState{Cursor: protocol.Vector2f{X: 2e6}}, false},
		{"unknown flag", protocol.InputState{Flags: 1 << 15}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidInput(tt.in); got != tt.want {
				t.Fatalf("IsValidInput(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidName(t *testing.T) {
	if !IsValidName("Doc Holliday") {
		t.Fatalf("plain name rejected")
	}
	if IsValidName("") || IsValidName(strings.Repeat("a", 256)) || IsValidName("日本刀") {
		t.Fatalf("invalid name accepted")
	}
}
