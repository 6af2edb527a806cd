package main

import "encoding/json"

// Client -> Server message types
const (
	MsgCreateRoom   = "createRoom"
	MsgJoinRoom     = "joinRoom"
	MsgLeaveRoom    = "leaveRoom"
	MsgInput        = "input"
	MsgTogglePause  = "togglePause"
	MsgRequestStart = "requestStartGame"
	MsgAddBot       = "addBot"
	MsgRemoveBot    = "removeBot"
)

// Server -> Client message types
const (
	MsgJoinError     = "joinError"
	MsgJoinSuccess   = "joinSuccess"
	MsgCreateSuccess = "createSuccess"
	MsgLobbyUpdate   = "lobbyUpdate"
	MsgPlayerJoined  = "playerJoined"
	MsgPlayerLeft    = "playerLeft"
	MsgGameStart     = "gameStart"
	MsgStateUpdate   = "stateUpdate"
	MsgGamePaused    = "gamePaused"
	MsgPlayerHit     = "playerHit"
	MsgPlayerKO      = "playerKO"
	MsgGameEnd       = "gameEnd"
	MsgServerMessage = "serverMessage"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// RoomRequest is sent to create or join a room
type RoomRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
	Hat      int    `json:"hat"`
}

// StartRequest asks the host's room to begin a match
type StartRequest struct {
	Duration int    `json:"duration"`
	MapID    string `json:"mapId"`
}

// AddBotRequest asks for a bot of the given difficulty
type AddBotRequest struct {
	Difficulty string `json:"difficulty"`
}

// RemoveBotRequest names the bot to remove
type RemoveBotRequest struct {
	BotID string `json:"botId"`
}

// JoinErrorMsg carries a human-readable rejection reason
type JoinErrorMsg struct {
	Reason string `json:"reason"`
}

// JoinSuccessMsg confirms membership to the joiner
type JoinSuccessMsg struct {
	PlayerID string `json:"playerId"`
	Code     string `json:"code"`
}

// CreateSuccessMsg confirms a newly created room
type CreateSuccessMsg struct {
	Code string `json:"code"`
}

// LobbyUpdate describes room membership
type LobbyUpdate struct {
	Players  []*Player `json:"players"`
	HostID   string    `json:"hostId"`
	CanStart bool      `json:"canStart"`
	Phase    string    `json:"phase"`
}

// PlayerLeftMsg names a departed player
type PlayerLeftMsg struct {
	PlayerID string `json:"playerId"`
}

// GameStartMsg announces the map of a starting match
type GameStartMsg struct {
	MapID    string  `json:"mapId"`
	Duration float64 `json:"duration"`
	Map      *Map    `json:"map"`
}

// StateUpdate is the full snapshot sent every tick
type StateUpdate struct {
	Players  []*Player  `json:"players"`
	Powerups []*Powerup `json:"powerups"`
	Time     int64      `json:"time"`
	Timer    float64    `json:"timer"`
}

// PauseState is the single shape of the pause notification. Pauser is nil
// while the game runs.
type PauseState struct {
	IsPaused bool    `json:"isPaused"`
	Pauser   *string `json:"pauser"`
}

// PlayerHitMsg reports a landed attack
type PlayerHitMsg struct {
	VictimID string `json:"victimId"`
	Type     Action `json:"type"`
}

// PlayerKOMsg reports a knockout
type PlayerKOMsg struct {
	VictimID   string `json:"victimId"`
	AttackerID string `json:"attackerId"`
}

// ScoreEntry is one row of the final leaderboard
type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Color string `json:"color"`
}

// GameEndMsg reports the outcome of a match
type GameEndMsg struct {
	Reason string       `json:"reason"`
	Winner string       `json:"winner"`
	Scores []ScoreEntry `json:"scores"`
}

// ServerMessage is a transient notice shown to every member
type ServerMessage struct {
	Text string `json:"text"`
}

// RoomInfo is the admin view of a room
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}
