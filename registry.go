package main

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"
)

const DefaultMaxRooms = 4

// JoinError is a user-facing rejection returned as the joinError reason
type JoinError string

func (e JoinError) Error() string { return string(e) }

const (
	ErrInvalidName  JoinError = "Invalid username"
	ErrInvalidCode  JoinError = "Room code must be 4 digits"
	ErrMissingCode  JoinError = "Please enter a room code"
	ErrRoomExists   JoinError = "Room code already exists"
	ErrRoomNotFound JoinError = "Room not found"
	ErrRoomFull     JoinError = "Lobby is full (maximum 4 players)"
	ErrNameTaken    JoinError = "Username already taken"
	ErrMatchOver    JoinError = "Match already finished"
	ErrAlreadyIn    JoinError = "Already in this room"
)

// ServerFullError reports that the room cap has been reached
type ServerFullError struct {
	Max int
}

func (e ServerFullError) Error() string {
	return "Server is full (max " + strconv.Itoa(e.Max) + " rooms)"
}

var roomCodeRe = regexp.MustCompile(`^\d{4}$`)

// ValidRoomCode reports whether code is exactly four digits
func ValidRoomCode(code string) bool {
	return roomCodeRe.MatchString(code)
}

// RoomRegistry creates, finds and destroys rooms by code
type RoomRegistry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	maxRooms int
	tracker  Tracker
}

// NewRoomRegistry creates an empty registry
func NewRoomRegistry(maxRooms int, tracker Tracker) *RoomRegistry {
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}
	if tracker == nil {
		tracker = nopTracker{}
	}
	return &RoomRegistry{
		rooms:    make(map[string]*Room),
		maxRooms: maxRooms,
		tracker:  tracker,
	}
}

// Create registers a new room under code and starts its goroutine
func (rr *RoomRegistry) Create(code string) (*Room, error) {
	if !ValidRoomCode(code) {
		return nil, ErrInvalidCode
	}

	rr.mu.Lock()
	if _, ok := rr.rooms[code]; ok {
		rr.mu.Unlock()
		return nil, ErrRoomExists
	}
	if len(rr.rooms) >= rr.maxRooms {
		rr.mu.Unlock()
		return nil, ServerFullError{Max: rr.maxRooms}
	}
	room := NewRoom(code, rr.tracker)
	room.OnEmpty = rr.remove
	rr.rooms[code] = room
	rr.mu.Unlock()

	go room.Run()
	rr.tracker.Track(EvtRoomCreated, code, map[string]any{"room": code})
	log.Printf("room %s: created", code)
	return room, nil
}

// Get looks up a room by code
func (rr *RoomRegistry) Get(code string) (*Room, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	rr.mu.RLock()
	room, ok := rr.rooms[code]
	rr.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// DiscardIfEmpty asks a room to destroy itself when nobody joined it
func (rr *RoomRegistry) DiscardIfEmpty(room *Room) {
	room.Submit(emptyCheckCmd{})
}

// remove unregisters and stops a room. Called from the room's own goroutine.
func (rr *RoomRegistry) remove(room *Room) {
	rr.mu.Lock()
	if cur, ok := rr.rooms[room.Code]; ok && cur == room {
		delete(rr.rooms, room.Code)
	}
	rr.mu.Unlock()
	room.Stop()
	log.Printf("room %s: destroyed", room.Code)
}

// Count returns the number of live rooms
func (rr *RoomRegistry) Count() int {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return len(rr.rooms)
}

// List returns a summary of every room ordered by code
func (rr *RoomRegistry) List() []RoomInfo {
	rr.mu.RLock()
	list := make([]RoomInfo, 0, len(rr.rooms))
	for _, room := range rr.rooms {
		list = append(list, RoomInfo{
			Code:    room.Code,
			Players: room.PlayerCount(),
			Phase:   room.Phase().String(),
		})
	}
	rr.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}

// Shutdown tears down every room, ending running matches
func (rr *RoomRegistry) Shutdown(timeout time.Duration) {
	rr.mu.Lock()
	rooms := make([]*Room, 0, len(rr.rooms))
	for code, room := range rr.rooms {
		rooms = append(rooms, room)
		delete(rr.rooms, code)
	}
	rr.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, room := range rooms {
		if !room.Submit(closeCmd{reason: ReasonShutdown}) {
			continue
		}
		select {
		case <-room.Done():
		case <-ctx.Done():
			log.Printf("room %s: shutdown timed out", room.Code)
			room.Stop()
		}
	}
}
