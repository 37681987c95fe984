// Package ping answers server browser queries over UDP.
package ping

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

type Handler struct {
	conn          *net.UDPConn
	logger        *slog.Logger
	stopChan      chan struct{}
	listenAddress string

	mu         sync.RWMutex
	serverInfo ServerInfo
}

type ServerInfo struct {
	Name       string `json:"name"`
	Clients    int    `json:"clients"`
	MaxClients int    `json:"max_clients"`
	TickRate   int    `json:"tick_rate"`
	Codec      string `json:"codec"`
	Version    string `json:"version"`
}

func NewHandler(address string, info ServerInfo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		serverInfo:    info,
		logger:        logger,
		stopChan:      make(chan struct{}),
		listenAddress: address,
	}
}

func (h *Handler) Start() error {
	addr, err := net.ResolveUDPAddr("udp", h.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	h.conn = conn
	h.logger.Info("status handler started", "address", conn.LocalAddr().String())

	go h.handlePackets()

	return nil
}

func (h *Handler) Stop() {
	close(h.stopChan)
	if h.conn != nil {
		h.conn.Close()
	}
	h.logger.Info("status handler stopped")
}

// Addr is the bound address, or nil before Start.
func (h *Handler) Addr() net.Addr {
	if h.conn == nil {
		return nil
	}
	return h.conn.LocalAddr()
}

func (h *Handler) UpdateClients(clients int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.serverInfo.Clients = clients
}

func (h *Handler) Info() ServerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.serverInfo
}

func (h *Handler) handlePackets() {
	buffer := make([]byte, 1024)

	for {
		n, addr, err := h.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-h.stopChan:
				return
			default:
				h.logger.Error("failed to read UDP packet", "error", err)
				continue
			}
		}

		response := h.respond(buffer[:n])
		if response == nil {
			continue
		}
		if _, err := h.conn.WriteToUDP(response, addr); err != nil {
			h.logger.Error("failed to send status response", "error", err, "addr", addr)
			continue
		}
		h.logger.Debug("sent status response", "addr", addr, "bytes", len(response))
	}
}

// respond returns the reply to a query, or nil for unknown datagrams.
func (h *Handler) respond(data []byte) []byte {
	switch string(data) {
	case "HELLO":
		return []byte("HI")
	case "STATUS":
		jsonData, err := json.Marshal(h.Info())
		if err != nil {
			h.logger.Error("failed to marshal server info", "error", err)
			return nil
		}
		return jsonData
	default:
		return nil
	}
}
