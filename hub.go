package main

import "sync"

const (
	maxConnsPerIP = 8
	maxTotalConns = 1000
)

// Hub manages all connected clients and hands them to rooms
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      *RoomRegistry
	// per-IP and global slots, taken from HTTP handlers
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	stop       chan struct{}
}

// NewHub creates a new Hub routing clients into rooms
func NewHub(rooms *RoomRegistry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		rooms:      rooms,
		ipConns:    make(map[string]int),
		stop:       make(chan struct{}),
	}
}

// Admit reserves a connection slot for ip. It reports false when the
// per-address or global limit is reached.
func (h *Hub) Admit(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns || h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	h.ipConns[ip]++
	h.totalConns++
	return true
}

// Release frees a slot taken by Admit
func (h *Hub) Release(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if n := h.ipConns[ip] - 1; n > 0 {
		h.ipConns[ip] = n
	} else {
		delete(h.ipConns, ip)
	}
	if h.totalConns > 0 {
		h.totalConns--
	}
}

// Run processes register/unregister events until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.disconnect()
			}
			h.mu.Unlock()
			// A disconnect is a leave for the client's room
			client.leaveRoom()

		case <-h.stop:
			return
		}
	}
}

// Stop terminates the Run loop
func (h *Hub) Stop() {
	close(h.stop)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
