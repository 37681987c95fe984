package broadcast_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/siohaza/sundown/internal/broadcast"
	"github.com/siohaza/sundown/internal/broadcast/mocks"
	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
	"go.uber.org/mock/gomock"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRegistry(t *testing.T, addrs ...registry.Address) *registry.Registry {
	t.Helper()
	r, err := registry.New(8)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	for _, addr := range addrs {
		if _, err := r.Register(addr, string(addr)); err != nil {
			t.Fatalf("register %s: %v", addr, err)
		}
	}
	return r
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := mocks.NewMockTransport(ctrl)
	clients := newRegistry(t, "a:1", "b:1", "c:1")
	b := broadcast.New(tr, protocol.BinaryCodec{}, clients, quietLogger())

	delivery := protocol.ReliableSequenced(protocol.StreamShotEvent)
	for _, addr := range []registry.Address{"a:1", "b:1", "c:1"} {
		tr.EXPECT().
			SendWithRequirements(addr, gomock.Any(), delivery, protocol.UrgencyOnTick).
			Return(nil).
			Times(1)
	}

	sent := b.Broadcast(protocol.ShotEvent{BulletTimeLimit: 1}, delivery, protocol.UrgencyOnTick)
	if sent != 3 {
		t.Fatalf("sent = %d, want 3", sent)
	}
}

func TestEncodeFailureDropsOnlyThatMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := mocks.NewMockTransport(ctrl)
	clients := newRegistry(t, "a:1")
	b := broadcast.New(tr, protocol.BinaryCodec{}, clients, quietLogger())

	delivery := protocol.ReliableSequenced(protocol.StreamWeaponSwitch)
	tr.EXPECT().
		SendWithRequirements(registry.Address("a:1"), gomock.Any(), delivery, protocol.UrgencyOnTick).
		Return(nil).
		Times(1)

	if b.Send("a:1", protocol.WeaponSwitch{Name: "☃ snowman"}, delivery, protocol.UrgencyOnTick) {
		t.Fatalf("unencodable event reported as sent")
	}
	if !b.Send("a:1", protocol.WeaponSwitch{Name: "Shotgun", MagazineSize: 2}, delivery, protocol.UrgencyOnTick) {
		t.Fatalf("valid event was not sent")
	}
}

func TestTransportErrorIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := mocks.NewMockTransport(ctrl)
	clients := newRegistry(t, "a:1", "b:1")
	b := broadcast.New(tr, protocol.BinaryCodec{}, clients, quietLogger())

	tr.EXPECT().
		SendWithRequirements(registry.Address("a:1"), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("peer gone"))
	tr.EXPECT().
		SendWithRequirements(registry.Address("b:1"), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	sent := b.Broadcast(protocol.AmmoUpdate{AmmoInMagazine: 3}, protocol.Unreliable(), protocol.UrgencyImmediate)
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
}

func TestSendToUnknownClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := mocks.NewMockTransport(ctrl)
	b := broadcast.New(tr, protocol.BinaryCodec{}, newRegistry(t), quietLogger())

	err := b.SendToClient(5, protocol.HealthUpdate{Health: 10, Max: 100},
		protocol.ReliableSequenced(protocol.StreamHealthUpdate), protocol.UrgencyOnTick)
	if !errors.Is(err, registry.ErrUnknownClient) {
		t.Fatalf("expected ErrUnknownClient, got %v", err)
	}
}

func TestFlushForwardsToTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Flush().Return(errors.New("host not started")).Times(1)

	b := broadcast.New(tr, nil, newRegistry(t), quietLogger())
	b.Flush()
}
