package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrCapacityExceeded = errors.New("client registry is full")
	ErrAddressInUse     = errors.New("address already registered")
	ErrUnknownClient    = errors.New("client not found")
)

// MaxCapacity is bounded by the width of ClientID.
const MaxCapacity = 256

type ClientID uint8

// Address is the transport-level endpoint of a client, e.g. "10.0.0.4:32887".
type Address string

type Handle struct {
	ID      ClientID
	Address Address
	Name    string
}

// Registry maps client ids to addresses and names. Ids and addresses are
// unique among live entries.
type Registry struct {
	clients   map[ClientID]Handle
	byAddress map[Address]ClientID
	capacity  int
	mu        sync.RWMutex
}

func New(capacity int) (*Registry, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("registry capacity must be in 1..%d, got %d", MaxCapacity, capacity)
	}

	return &Registry{
		clients:   make(map[ClientID]Handle, capacity),
		byAddress: make(map[Address]ClientID, capacity),
		capacity:  capacity,
	}, nil
}

// Register assigns the lowest free id to addr.
func (r *Registry) Register(addr Address, name string) (ClientID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddress[addr]; exists {
		return 0, fmt.Errorf("register %s: %w", addr, ErrAddressInUse)
	}

	id, ok := r.findFreeID()
	if !ok {
		return 0, fmt.Errorf("register %s: %w", addr, ErrCapacityExceeded)
	}

	r.clients[id] = Handle{ID: id, Address: addr, Name: name}
	r.byAddress[addr] = id
	return id, nil
}

func (r *Registry) findFreeID() (ClientID, bool) {
	for id := 0; id < r.capacity; id++ {
		if _, exists := r.clients[ClientID(id)]; !exists {
			return ClientID(id), true
		}
	}
	return 0, false
}

func (r *Registry) Find(id ClientID) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.clients[id]
	return h, ok
}

func (r *Registry) FindByAddress(addr Address) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAddress[addr]
	if !ok {
		return Handle{}, false
	}
	return r.clients[id], true
}

func (r *Registry) Remove(id ClientID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.clients[id]
	if !ok {
		return false
	}
	delete(r.clients, id)
	delete(r.byAddress, h.Address)
	return true
}

// List returns a snapshot of all entries ordered by id.
func (r *Registry) List() []Handle {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.clients))
	for _, h := range r.clients {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].ID < handles[j].ID })
	return handles
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) Capacity() int {
	return r.capacity
}
