// Package server wires the network, the client registry and the tick
// pipeline into a running game server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/siohaza/sundown/internal/bans"
	"github.com/siohaza/sundown/internal/broadcast"
	"github.com/siohaza/sundown/internal/callbacks"
	"github.com/siohaza/sundown/internal/combat"
	"github.com/siohaza/sundown/internal/gamemode"
	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/network"
	"github.com/siohaza/sundown/internal/ping"
	"github.com/siohaza/sundown/internal/protocol"
	"github.com/siohaza/sundown/internal/registry"
	"github.com/siohaza/sundown/internal/simulation"
	"github.com/siohaza/sundown/internal/validation"
	"github.com/siohaza/sundown/pkg/config"
	"github.com/siohaza/sundown/pkg/lua"
)

// Version is reported by the status responder and the CLI.
var Version = "dev"

// Network is the transport the server drives. *network.Server implements it.
type Network interface {
	broadcast.Transport
	Start() error
	Stop()
	Service(timeout time.Duration) (*network.Event, error)
	Disconnect(addr registry.Address, reason uint32)
	PeerCount() int
}

// shutdownGrace bounds how long Stop services the host so queued
// disconnects reach clients before it is destroyed.
const shutdownGrace = 200 * time.Millisecond

type Server struct {
	config      *config.Config
	network     Network
	registry    *registry.Registry
	world       *gamestate.World
	broadcaster *broadcast.Broadcaster
	pipeline    *simulation.Pipeline
	players     *Players
	callbacks   *callbacks.CallbackChain
	gameModes   []gamemode.GameMode
	banManager  *bans.Manager
	pingHandler *ping.Handler
	clock       gamestate.Clock
	logger      *slog.Logger

	tickRate  time.Duration
	worldRate time.Duration
	lastTick  time.Duration
	started   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	net, err := network.NewServer(cfg.Server.Port, cfg.Server.MaxClients, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create network server: %w", err)
	}

	srv, err := newServer(cfg, net, gamestate.NewSystemClock(), logger)
	if err != nil {
		return nil, err
	}

	if cfg.Server.Status {
		srv.pingHandler = ping.NewHandler(fmt.Sprintf(":%d", cfg.Server.Port+1), ping.ServerInfo{
			Name:       cfg.Server.Name,
			MaxClients: cfg.Server.MaxClients,
			TickRate:   cfg.Server.TickRate,
			Codec:      cfg.Server.Codec,
			Version:    Version,
		}, logger)
	}

	return srv, nil
}

func newServer(cfg *config.Config, net Network, clock gamestate.Clock, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	codec, err := protocol.NewCodec(cfg.Server.Codec)
	if err != nil {
		return nil, err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	points, err := cfg.SpawnPoints()
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(cfg.Server.MaxClients)
	if err != nil {
		return nil, err
	}

	seed := cfg.Server.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	world := gamestate.NewWorld()
	chain := callbacks.NewCallbackChain()
	broadcaster := broadcast.New(net, codec, reg, logger)

	damage := combat.NewDamageResolver(world, broadcaster, chain, logger)
	weapons := combat.NewWeaponController(world, broadcaster, rand.New(rand.NewPCG(seed, 1)), chain, logger)

	players := NewPlayers(world, catalog, PlayerTemplate{
		Radius:       cfg.Player.Radius,
		MaxHealth:    cfg.Player.MaxHealth,
		Speed:        cfg.Player.Speed,
		RespawnDelay: cfg.RespawnDelay(),
		Loadout:      cfg.Player.Loadout,
	}, gamestate.NewSpawnPoints(points, rand.New(rand.NewPCG(seed, 2))), broadcaster, chain, logger)

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:      cfg,
		network:     net,
		registry:    reg,
		world:       world,
		broadcaster: broadcaster,
		pipeline:    simulation.New(world, damage, weapons, broadcaster, logger),
		players:     players,
		callbacks:   chain,
		banManager:  bans.NewManager(cfg.Server.BansFile),
		clock:       clock,
		logger:      logger,
		tickRate:    cfg.TickInterval(),
		worldRate:   cfg.WorldUpdateInterval(),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}, nil
}

// RegisterCallbacks adds an observer of simulation events.
func (s *Server) RegisterCallbacks(cb callbacks.Hooks) {
	s.callbacks.Register(cb)
}

func (s *Server) loadScripts() error {
	api := lua.NewGameAPI(s.world, s.registry, s.logger)
	api.SetServer(s)

	for _, path := range s.config.Server.Scripts {
		if !lua.FileExists(path) {
			s.logger.Warn("script not found, skipping", "path", path)
			continue
		}
		mode, err := gamemode.NewLuaGameMode(path, api, s.logger)
		if err != nil {
			return fmt.Errorf("failed to load script %s: %w", path, err)
		}
		s.gameModes = append(s.gameModes, mode)
		s.callbacks.Register(mode)
		s.logger.Info("loaded script", "path", path, "mode", mode.Name())
	}
	return nil
}

func (s *Server) Start() error {
	if err := s.banManager.Load(); err != nil {
		s.logger.Warn("failed to load bans", "error", err)
	}

	if err := s.loadScripts(); err != nil {
		return err
	}

	if err := s.network.Start(); err != nil {
		return fmt.Errorf("failed to start network: %w", err)
	}

	if s.pingHandler != nil {
		if err := s.pingHandler.Start(); err != nil {
			s.logger.Warn("failed to start status handler", "error", err)
			s.pingHandler = nil
		}
	}

	s.lastTick = s.clock.Now()
	s.started = true
	s.logger.Info("server started",
		"name", s.config.Server.Name,
		"tick_rate", s.config.Server.TickRate,
		"codec", s.broadcaster.Codec().Name(),
	)

	go s.run()
	return nil
}

// Stop ends the run loop, disconnects every client and releases the
// network.
func (s *Server) Stop() {
	s.logger.Info("stopping server")

	if s.cancel != nil {
		s.cancel()
	}
	if !s.started {
		return
	}
	<-s.done

	s.disconnectAll(protocol.DisconnectReasonShutdown, shutdownGrace)

	for _, mode := range s.gameModes {
		mode.Close()
	}

	s.network.Stop()

	if s.pingHandler != nil {
		s.pingHandler.Stop()
	}

	s.logger.Info("server stopped")
}

// Wait blocks until the run loop has exited.
func (s *Server) Wait() {
	<-s.done
}

func (s *Server) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	worldUpdateTicker := time.NewTicker(s.worldRate)
	defer worldUpdateTicker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("server context cancelled, exiting run loop")
			return

		case <-ticker.C:
			s.update()

		case <-worldUpdateTicker.C:
			s.sendWorldUpdate()
		}

		s.handleNetworkEvents()
	}
}

// update runs one tick at the current clock time.
func (s *Server) update() simulation.Report {
	now := s.clock.Now()
	dt := now - s.lastTick
	s.lastTick = now

	s.players.Respawn(now)

	report := s.pipeline.Step(now, dt)

	for _, mode := range s.gameModes {
		if err := mode.Update(now); err != nil {
			s.logger.Error("failed to update game mode", "mode", mode.Name(), "error", err)
		}
	}
	return report
}

func (s *Server) sendWorldUpdate() int {
	return s.broadcaster.Broadcast(Snapshot(s.world), protocol.Unreliable(), protocol.UrgencyImmediate)
}

// disconnectAll disconnects every client and keeps servicing the host until
// the peers acknowledge or grace runs out.
func (s *Server) disconnectAll(reason protocol.DisconnectReason, grace time.Duration) {
	for _, h := range s.registry.List() {
		s.network.Disconnect(h.Address, uint32(reason))
	}

	deadline := time.Now().Add(grace)
	for s.network.PeerCount() > 0 && time.Now().Before(deadline) {
		event, err := s.network.Service(10 * time.Millisecond)
		if err != nil {
			s.logger.Warn("network service error during shutdown", "error", err)
			return
		}
		if event.Type == network.EventTypeDisconnect {
			s.handleDisconnect(event.Address)
		}
	}

	if n := s.network.PeerCount(); n > 0 {
		s.logger.Warn("peers still connected at shutdown", "peers", n)
	}
}

func (s *Server) handleNetworkEvents() {
	for i := 0; i < 100; i++ {
		event, err := s.network.Service(0)
		if err != nil {
			s.logger.Error("network service error", "error", err)
			return
		}

		if event.Type == network.EventTypeNone {
			break
		}

		s.handleEvent(event)
	}
}

func (s *Server) handleEvent(event *network.Event) {
	switch event.Type {
	case network.EventTypeConnect:
		s.handleConnect(event.Address)

	case network.EventTypeDisconnect:
		s.handleDisconnect(event.Address)

	case network.EventTypeReceive:
		s.handlePacket(event.Address, event.Data)
	}
}

func (s *Server) handleConnect(addr registry.Address) {
	if banned, ban := s.banManager.IsBanned(string(addr)); banned {
		s.logger.Info("banned client attempted to connect", "address", addr, "reason", ban.Reason)
		s.network.Disconnect(addr, uint32(protocol.DisconnectReasonBanned))
		return
	}

	name := "drifter@" + bans.HostOf(string(addr))
	id, err := s.registry.Register(addr, name)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrCapacityExceeded):
			s.logger.Warn("server full, rejecting connection", "address", addr)
			s.network.Disconnect(addr, uint32(protocol.DisconnectReasonServerFull))
		case errors.Is(err, registry.ErrAddressInUse):
			s.logger.Warn("address already has a client, rejecting connection", "address", addr)
			s.network.Disconnect(addr, uint32(protocol.DisconnectReasonAddressInUse))
		default:
			s.logger.Error("failed to register client", "address", addr, "error", err)
			s.network.Disconnect(addr, uint32(protocol.DisconnectReasonUndefined))
		}
		return
	}

	s.callbacks.OnConnect(id, name)

	if _, err := s.players.Spawn(id, s.clock.Now()); err != nil {
		s.logger.Error("failed to spawn player", "client", id, "error", err)
	}

	s.updateStatus()
	s.logger.Info("client connected", "client", id, "address", addr)
}

func (s *Server) handleDisconnect(addr registry.Address) {
	h, ok := s.registry.FindByAddress(addr)
	if !ok {
		return
	}

	s.players.Despawn(h.ID)
	s.registry.Remove(h.ID)
	s.callbacks.OnDisconnect(h.ID)

	s.updateStatus()
	s.logger.Info("client disconnected", "client", h.ID, "name", h.Name)
}

func (s *Server) handlePacket(addr registry.Address, data []byte) {
	h, ok := s.registry.FindByAddress(addr)
	if !ok {
		s.logger.Debug("packet from unregistered address", "address", addr)
		return
	}

	ev, err := s.broadcaster.Codec().Decode(data)
	if err != nil {
		s.logger.Debug("failed to decode packet", "client", h.ID, "error", err)
		return
	}

	switch msg := ev.(type) {
	case protocol.InputState:
		if !validation.IsValidInput(msg) {
			s.logger.Warn("invalid input state", "client", h.ID)
			return
		}
		s.players.SetInput(h.ID, msg)

	default:
		s.logger.Debug("unexpected event from client", "client", h.ID, "event", ev.Kind())
	}
}

func (s *Server) updateStatus() {
	if s.pingHandler != nil {
		s.pingHandler.UpdateClients(s.registry.Count())
	}
}

// KickClient disconnects a registered client. The registry entry is
// removed when the disconnect event arrives.
func (s *Server) KickClient(id registry.ClientID, reason uint32) bool {
	h, ok := s.registry.Find(id)
	if !ok {
		return false
	}
	if reason == 0 {
		reason = uint32(protocol.DisconnectReasonKicked)
	}
	s.logger.Info("kicking client", "client", id, "reason", reason)
	s.network.Disconnect(h.Address, reason)
	return true
}

// BanClient bans the host of a registered client and kicks it. A zero
// duration bans permanently.
func (s *Server) BanClient(id registry.ClientID, reason string, duration time.Duration) error {
	h, ok := s.registry.Find(id)
	if !ok {
		return fmt.Errorf("ban client %d: %w", id, registry.ErrUnknownClient)
	}
	if err := s.banManager.AddBan(string(h.Address), h.Name, reason, "script", duration); err != nil {
		return err
	}
	s.network.Disconnect(h.Address, uint32(protocol.DisconnectReasonBanned))
	return nil
}

func (s *Server) Registry() *registry.Registry {
	return s.registry
}

func (s *Server) World() *gamestate.World {
	return s.world
}
