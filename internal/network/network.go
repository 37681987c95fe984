// Package network carries protocol messages over ENet. Each reliable
// stream gets its own sequenced channel; unreliable traffic shares
// channel 0 and is sent unsequenced.
package network

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"

	"github.com/codecat/go-enet"
)

var (
	ErrNotStarted  = errors.New("server not started")
	ErrUnknownPeer = errors.New("no peer for address")
)

// ChannelCount is one unreliable channel plus one per reliable stream.
const ChannelCount = protocol.StreamCount + 1

type Server struct {
	host     enet.Host
	port     uint16
	maxPeers int
	logger   *slog.Logger

	mu      sync.Mutex
	peers   map[registry.Address]enet.Peer
	pending []outgoing

	send func(peer enet.Peer, data []byte, channel uint8, flags enet.PacketFlags) error
}

type outgoing struct {
	addr    registry.Address
	data    []byte
	channel uint8
	flags   enet.PacketFlags
}

type Event struct {
	Type      EventType
	Address   registry.Address
	Peer      enet.Peer
	Data      []byte
	ChannelID uint8
}

type EventType int

const (
	EventTypeNone EventType = iota
	EventTypeConnect
	EventTypeDisconnect
	EventTypeReceive
)

func NewServer(port int, maxPeers int, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}

	s := &Server{
		port:     uint16(port),
		maxPeers: maxPeers,
		logger:   logger,
		peers:    make(map[registry.Address]enet.Peer),
	}
	s.send = sendPacket
	return s, nil
}

func (s *Server) Start() error {
	address := enet.NewListenAddress(s.port)

	var err error
	s.host, err = enet.NewHost(address, uint64(s.maxPeers), ChannelCount, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to create ENet host: %w", err)
	}

	if err := s.host.CompressWithRangeCoder(); err != nil {
		return fmt.Errorf("failed to setup range coder compression: %w", err)
	}

	s.logger.Info("server started", "port", s.port, "max_peers", s.maxPeers, "channels", ChannelCount)
	return nil
}

func (s *Server) Stop() {
	if s.host != nil {
		s.host.Destroy()
		s.host = nil
		s.logger.Info("server stopped")
	}
}

// Service waits up to timeout for one network event. Connected peers are
// tracked by address so that sends can be addressed without a peer handle.
func (s *Server) Service(timeout time.Duration) (*Event, error) {
	if s.host == nil {
		return nil, ErrNotStarted
	}

	enetEvent := s.host.Service(uint32(timeout.Milliseconds()))
	if enetEvent == nil || enetEvent.GetType() == enet.EventNone {
		return &Event{Type: EventTypeNone}, nil
	}

	peer := enetEvent.GetPeer()
	event := &Event{
		Peer:    peer,
		Address: registry.Address(peer.GetAddress().String()),
	}

	switch enetEvent.GetType() {
	case enet.EventConnect:
		event.Type = EventTypeConnect
		s.addPeer(event.Address, peer)
		s.logger.Debug("peer connected", "peer", event.Address)

	case enet.EventDisconnect:
		event.Type = EventTypeDisconnect
		s.removePeer(event.Address)
		s.logger.Debug("peer disconnected", "peer", event.Address)

	case enet.EventReceive:
		event.Type = EventTypeReceive
		packet := enetEvent.GetPacket()
		if packet != nil {
			// copy out before the packet memory is released
			event.Data = append([]byte(nil), packet.GetData()...)
			event.ChannelID = enetEvent.GetChannelID()
			packet.Destroy()
		}
	}

	return event, nil
}

func (s *Server) addPeer(addr registry.Address, peer enet.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[addr] = peer
}

func (s *Server) removePeer(addr registry.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, addr)

	kept := s.pending[:0]
	for _, o := range s.pending {
		if o.addr != addr {
			kept = append(kept, o)
		}
	}
	s.pending = kept
}

// SendWithRequirements sends immediate messages right away and queues
// on-tick messages until Flush.
func (s *Server) SendWithRequirements(addr registry.Address, payload []byte, delivery protocol.Delivery, urgency protocol.Urgency) error {
	channel, flags := channelFor(delivery), flagsFor(delivery)

	s.mu.Lock()
	peer, ok := s.peers[addr]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPeer, addr)
	}
	if urgency == protocol.UrgencyOnTick {
		s.pending = append(s.pending, outgoing{
			addr:    addr,
			data:    append([]byte(nil), payload...),
			channel: channel,
			flags:   flags,
		})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.send(peer, payload, channel, flags)
}

// Flush sends every queued message in submission order. Messages for peers
// that left are dropped; the first send error is returned after all
// messages were attempted.
func (s *Server) Flush() error {
	s.mu.Lock()
	queue := s.pending
	s.pending = nil
	peers := make(map[registry.Address]enet.Peer, len(s.peers))
	for addr, peer := range s.peers {
		peers[addr] = peer
	}
	s.mu.Unlock()

	var firstErr error
	for _, o := range queue {
		peer, ok := peers[o.addr]
		if !ok {
			continue
		}
		if err := s.send(peer, o.data, o.channel, o.flags); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush to %s: %w", o.addr, err)
		}
	}
	return firstErr
}

func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Server) Disconnect(addr registry.Address, reason uint32) {
	s.mu.Lock()
	peer, ok := s.peers[addr]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.DisconnectPeerWithReason(peer, false, reason)
}

func (s *Server) DisconnectPeerWithReason(peer enet.Peer, immediate bool, reason uint32) {
	if peer == nil {
		return
	}

	if immediate {
		peer.DisconnectNow(reason)
	} else {
		peer.Disconnect(reason)
	}
}

func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func channelFor(d protocol.Delivery) uint8 {
	if !d.Reliable() {
		return 0
	}
	return uint8(d.Stream)
}

func flagsFor(d protocol.Delivery) enet.PacketFlags {
	if d.Reliable() {
		return enet.PacketFlagReliable
	}
	return enet.PacketFlagUnsequenced
}

func sendPacket(peer enet.Peer, data []byte, channel uint8, flags enet.PacketFlags) error {
	if peer == nil {
		return fmt.Errorf("peer is nil")
	}

	packet, err := enet.NewPacket(data, flags)
	if err != nil {
		return fmt.Errorf("failed to create packet: %w", err)
	}

	if err := peer.SendPacket(packet, channel); err != nil {
		return fmt.Errorf("failed to send packet: %w", err)
	}

	return nil
}
