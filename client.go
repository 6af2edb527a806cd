package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120 // inputs may arrive every frame
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{} // closed on disconnect; send itself is never closed
	doneOnce   sync.Once
	id         string
	remoteAddr string
	binary     bool
	msgCount   int
	msgResetAt time.Time
	// Set once a join succeeds; only touched by ReadPump and, after it exits, the hub
	room *Room
}

// NewClient creates a new Client. binary selects msgpack state frames.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, binary bool) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		done:       make(chan struct{}),
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
		binary:     binary,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Release(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	c.enqueue(data)
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	c.enqueue(msg)
}

// enqueue drops the message when the client is gone or too slow
func (c *Client) enqueue(msg []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	case <-c.done:
	default:
	}
}

// disconnect stops delivery and lets WritePump send the close frame
func (c *Client) disconnect() {
	c.doneOnce.Do(func() { close(c.done) })
}

// WantsBinary reports whether state frames go out as msgpack
func (c *Client) WantsBinary() bool {
	return c.binary
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgCreateRoom:
		c.handleCreate(env.D)
	case MsgJoinRoom:
		c.handleJoin(env.D)
	case MsgLeaveRoom:
		c.leaveRoom()
	case MsgInput:
		c.handleInput(env.D)
	case MsgTogglePause:
		c.submit(pauseCmd{playerID: c.id})
	case MsgRequestStart:
		c.handleStart(env.D)
	case MsgAddBot:
		c.handleAddBot(env.D)
	case MsgRemoveBot:
		c.handleRemoveBot(env.D)
	}
}

func (c *Client) sendJoinError(err error) {
	c.SendJSON(Envelope{T: MsgJoinError, Data: JoinErrorMsg{Reason: err.Error()}})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var req RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendJoinError(ErrInvalidName)
		return
	}
	name, ok := NormalizeName(req.Username)
	if !ok {
		c.sendJoinError(ErrInvalidName)
		return
	}

	room, err := c.hub.rooms.Create(req.Code)
	if err != nil {
		c.sendJoinError(err)
		return
	}
	c.leaveRoom()
	if err := room.Join(c, c.id, name, req.Hat); err != nil {
		c.hub.rooms.DiscardIfEmpty(room)
		c.sendJoinError(err)
		return
	}
	c.room = room
	c.SendJSON(Envelope{T: MsgCreateSuccess, Data: CreateSuccessMsg{Code: room.Code}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var req RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendJoinError(ErrInvalidName)
		return
	}
	name, ok := NormalizeName(req.Username)
	if !ok {
		c.sendJoinError(ErrInvalidName)
		return
	}

	room, err := c.hub.rooms.Get(req.Code)
	if err != nil {
		c.sendJoinError(err)
		return
	}
	if room == c.room {
		c.sendJoinError(ErrAlreadyIn)
		return
	}
	c.leaveRoom()
	if err := room.Join(c, c.id, name, req.Hat); err != nil {
		c.sendJoinError(err)
		return
	}
	c.room = room
}

// leaveRoom detaches the client from its current room, if any
func (c *Client) leaveRoom() {
	if c.room == nil {
		return
	}
	c.room.Submit(leaveCmd{playerID: c.id})
	c.room = nil
}

func (c *Client) submit(cmd any) {
	if c.room == nil {
		return
	}
	c.room.Submit(cmd)
}

func (c *Client) handleInput(data json.RawMessage) {
	if c.room == nil {
		return
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return
	}
	c.room.Submit(inputCmd{playerID: c.id, input: in})
}

func (c *Client) handleStart(data json.RawMessage) {
	var req StartRequest
	if len(data) > 0 {
		// Malformed settings fall back to defaults inside the room
		_ = json.Unmarshal(data, &req)
	}
	c.submit(startCmd{playerID: c.id, req: req})
}

func (c *Client) handleAddBot(data json.RawMessage) {
	var req AddBotRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			// Older clients send the difficulty as a bare string
			_ = json.Unmarshal(data, &req.Difficulty)
		}
	}
	c.submit(addBotCmd{playerID: c.id, difficulty: ParseDifficulty(req.Difficulty)})
}

func (c *Client) handleRemoveBot(data json.RawMessage) {
	var req RemoveBotRequest
	if err := json.Unmarshal(data, &req); err != nil {
		if err := json.Unmarshal(data, &req.BotID); err != nil {
			return
		}
	}
	c.submit(removeBotCmd{playerID: c.id, botID: req.BotID})
}
