package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	MaxPlayersPerRoom = 4
	MinPlayersToStart = 2
	DefaultDuration   = 180
	roomInboxSize     = 256
)

// End-of-match reasons
const (
	ReasonTimeUp    = "Time Limit Reached"
	ReasonNotEnough = "Not enough players"
	ReasonHostLeft  = "Host left"
	ReasonShutdown  = "Server shutting down"
)

// ValidDurations are the accepted match lengths in seconds
var ValidDurations = []int{180, 300, 600}

// ColorPalette is handed out in order, first free color wins
var ColorPalette = []string{
	"#FF0000", "#00FF00", "#0000FF", "#FFFF00", "#00FFFF",
	"#FF00FF", "#FFA500", "#800080", "#FFC0CB", "#FFFFFF",
}

// Phase is the room lifecycle state
type Phase int32

const (
	PhaseLobby Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return "lobby"
	}
}

// Broadcaster is the outbound side of a member connection
type Broadcaster interface {
	SendRaw(data []byte)
	SendBinary(data []byte)
	WantsBinary() bool
}

// Room inbox commands
type (
	joinCmd struct {
		conn  Broadcaster
		id    string
		name  string
		hat   int
		reply chan error
	}
	leaveCmd struct {
		playerID string
	}
	inputCmd struct {
		playerID string
		input    Input
	}
	pauseCmd struct {
		playerID string
	}
	startCmd struct {
		playerID string
		req      StartRequest
	}
	addBotCmd struct {
		playerID   string
		difficulty Difficulty
	}
	removeBotCmd struct {
		playerID string
		botID    string
	}
	closeCmd struct {
		reason string
	}
	emptyCheckCmd struct{}
)

// Room is one isolated match. All of its state is owned by the Run
// goroutine; other goroutines talk to it through Inbox.
type Room struct {
	Code    string
	Inbox   chan any
	OnEmpty func(r *Room)

	sim        *Simulation
	conns      map[string]Broadcaster
	usedColors map[string]bool
	hostID     string
	phase      Phase
	paused     bool
	pauser     string
	duration   float64
	startedAt  time.Time
	ticker     *time.Ticker
	sched      *Scheduler
	rng        *rand.Rand
	now        func() time.Time
	tracker    Tracker
	// set once the room is being torn down; joins are refused from then on
	closing bool

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// mirrors for readers outside the room goroutine
	playerCount atomic.Int32
	phaseView   atomic.Int32
}

// NewRoom creates a room in the lobby phase. Call Run to start processing.
func NewRoom(code string, tracker Tracker) *Room {
	return newRoom(code, tracker, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

func newRoom(code string, tracker Tracker, rng *rand.Rand, now func() time.Time) *Room {
	if tracker == nil {
		tracker = nopTracker{}
	}
	r := &Room{
		Code:       code,
		Inbox:      make(chan any, roomInboxSize),
		conns:      make(map[string]Broadcaster),
		usedColors: make(map[string]bool),
		rng:        rng,
		now:        now,
		tracker:    tracker,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	r.sim = NewSimulation(rng, r)
	r.sched = NewScheduler(r.Submit)
	return r
}

// Run processes inbox commands and ticks until the room is stopped
func (r *Room) Run() {
	defer close(r.done)
	for {
		select {
		case msg := <-r.Inbox:
			r.handle(msg)
		case <-r.tickC():
			r.tick(r.now())
		case <-r.quit:
			r.stopTicker()
			r.sched.CancelAll()
			return
		}
	}
}

// Stop terminates the Run loop
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done is closed once the Run loop has exited
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Submit queues a command for the room goroutine. Returns false once the
// room has shut down.
func (r *Room) Submit(msg any) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.Inbox <- msg:
		return true
	case <-r.done:
		return false
	}
}

// Join adds a member and waits for the room's verdict
func (r *Room) Join(conn Broadcaster, id, name string, hat int) error {
	reply := make(chan error, 1)
	if !r.Submit(joinCmd{conn: conn, id: id, name: name, hat: hat, reply: reply}) {
		return ErrRoomNotFound
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomNotFound
	}
}

// PlayerCount returns the member count, safe from any goroutine
func (r *Room) PlayerCount() int {
	return int(r.playerCount.Load())
}

// Phase returns the lifecycle phase, safe from any goroutine
func (r *Room) Phase() Phase {
	return Phase(r.phaseView.Load())
}

func (r *Room) handle(msg any) {
	switch m := msg.(type) {
	case joinCmd:
		err := r.addPlayer(m)
		m.reply <- err
		if err == nil {
			r.announceJoin(m.id)
		}
	case leaveCmd:
		r.removePlayer(m.playerID)
	case inputCmd:
		if p, ok := r.sim.Players[m.playerID]; ok && !p.IsBot {
			p.Inputs = m.input
		}
	case pauseCmd:
		r.togglePause(m.playerID)
	case startCmd:
		r.requestStart(m.playerID, m.req)
	case addBotCmd:
		r.addBot(m.playerID, m.difficulty)
	case removeBotCmd:
		r.removeBot(m.playerID, m.botID)
	case closeCmd:
		r.closing = true
		r.endMatch(m.reason)
		r.Stop()
	case emptyCheckCmd:
		if len(r.sim.Players) == 0 {
			r.empty()
		}
	case timerFired:
		r.sched.Fire(m.id)
	}
}

func (r *Room) tickC() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C
}

func (r *Room) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Room) syncViews() {
	r.playerCount.Store(int32(len(r.sim.Players)))
	r.phaseView.Store(int32(r.phase))
}

// --- membership ---

func (r *Room) addPlayer(m joinCmd) error {
	if r.closing {
		return ErrRoomNotFound
	}
	if r.phase == PhaseEnded {
		return ErrMatchOver
	}
	if len(r.sim.Players) >= MaxPlayersPerRoom {
		return ErrRoomFull
	}
	if r.nameTaken(m.name) {
		return ErrNameTaken
	}

	p := NewPlayer(m.id, m.name, r.assignColor(), m.hat, r.rng)
	if r.phase == PhaseRunning {
		p.IsWaiting = true
		p.HP = 0
	}
	r.sim.Players[p.ID] = p
	r.conns[p.ID] = m.conn
	if r.hostID == "" {
		r.hostID = p.ID
	}
	r.syncViews()
	return nil
}

// announceJoin runs after the joiner has been told it is in
func (r *Room) announceJoin(id string) {
	p := r.sim.Players[id]
	r.send(id, MsgJoinSuccess, JoinSuccessMsg{PlayerID: id, Code: r.Code})
	if r.phase == PhaseRunning {
		r.send(id, MsgGameStart, r.gameStartMsg())
		if r.paused {
			r.send(id, MsgGamePaused, r.pauseState())
		}
	}
	r.broadcast(MsgPlayerJoined, p)
	r.broadcastLobby()
	r.tracker.Track(EvtPlayerJoined, id, map[string]any{
		"room":    r.Code,
		"name":    p.Name,
		"waiting": p.IsWaiting,
	})
}

func (r *Room) removePlayer(id string) {
	p, ok := r.sim.Players[id]
	if !ok {
		return
	}
	r.dropPlayer(p)
	if !p.IsWaiting {
		r.broadcast(MsgServerMessage, ServerMessage{Text: fmt.Sprintf("%s left the game.", p.Name)})
	}
	r.broadcast(MsgPlayerLeft, PlayerLeftMsg{PlayerID: id})

	if r.hostID == id {
		r.hostID = r.pickHost()
	}

	if r.humanCount() == 0 && len(r.sim.Bots) > 0 {
		r.clearBots()
		r.endMatch(ReasonHostLeft)
	} else if r.phase == PhaseRunning && len(r.sim.Players) < MinPlayersToStart {
		r.endMatch(ReasonNotEnough)
	}

	r.syncViews()
	r.broadcastLobby()
	if len(r.sim.Players) == 0 {
		r.empty()
	}
}

// dropPlayer removes a player and releases its color
func (r *Room) dropPlayer(p *Player) {
	delete(r.sim.Players, p.ID)
	delete(r.sim.Bots, p.ID)
	delete(r.conns, p.ID)
	delete(r.usedColors, p.Color)
}

func (r *Room) clearBots() {
	for id := range r.sim.Bots {
		if p, ok := r.sim.Players[id]; ok {
			r.dropPlayer(p)
			r.broadcast(MsgPlayerLeft, PlayerLeftMsg{PlayerID: id})
		}
	}
}

func (r *Room) empty() {
	r.closing = true
	r.stopTicker()
	r.sched.CancelAll()
	if r.OnEmpty != nil {
		r.OnEmpty(r)
		return
	}
	r.Stop()
}

func (r *Room) nameTaken(name string) bool {
	for _, p := range r.sim.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (r *Room) assignColor() string {
	for _, c := range ColorPalette {
		if !r.usedColors[c] {
			r.usedColors[c] = true
			return c
		}
	}
	c := fmt.Sprintf("hsl(%d, 70%%, 50%%)", r.rng.Intn(360))
	r.usedColors[c] = true
	return c
}

// pickHost returns a remaining human, or "" when none is left
func (r *Room) pickHost() string {
	for _, p := range r.sim.SortedPlayers() {
		if !p.IsBot {
			return p.ID
		}
	}
	return ""
}

func (r *Room) humanCount() int {
	n := 0
	for _, p := range r.sim.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// --- bots ---

func (r *Room) addBot(requester string, d Difficulty) {
	if requester != r.hostID || r.phase != PhaseLobby {
		return
	}
	if len(r.sim.Players) >= MaxPlayersPerRoom {
		return
	}
	id := "bot-" + GenerateID(4)
	p := NewPlayer(id, r.botName(d), r.assignColor(), HatNone, r.rng)
	p.IsBot = true
	r.sim.Players[id] = p
	r.sim.Bots[id] = NewBot(id, d)
	r.syncViews()

	r.broadcast(MsgPlayerJoined, p)
	r.broadcastLobby()
	r.tracker.Track(EvtBotAdded, id, map[string]any{
		"room":       r.Code,
		"difficulty": string(d),
	})
}

func (r *Room) botName(d Difficulty) string {
	label := BotTunings[d].Label
	for n := 1; ; n++ {
		name := fmt.Sprintf("Bot %d (%s)", n, label)
		if !r.nameTaken(name) {
			return name
		}
	}
}

func (r *Room) removeBot(requester, botID string) {
	if requester != r.hostID {
		return
	}
	p, ok := r.sim.Players[botID]
	if !ok || !p.IsBot {
		return
	}
	r.dropPlayer(p)
	r.broadcast(MsgPlayerLeft, PlayerLeftMsg{PlayerID: botID})
	if r.phase == PhaseRunning && len(r.sim.Players) < MinPlayersToStart {
		r.endMatch(ReasonNotEnough)
	}
	r.syncViews()
	r.broadcastLobby()
}

// --- match lifecycle ---

func (r *Room) canStart() bool {
	n := len(r.sim.Players)
	return r.phase == PhaseLobby && n >= MinPlayersToStart && n <= MaxPlayersPerRoom
}

func (r *Room) requestStart(requester string, req StartRequest) {
	if requester != r.hostID || !r.canStart() {
		return
	}
	r.startMatch(NormalizeDuration(req.Duration), LookupMap(req.MapID))
}

// NormalizeDuration falls back to the default for unsupported lengths
func NormalizeDuration(d int) int {
	for _, v := range ValidDurations {
		if v == d {
			return d
		}
	}
	return DefaultDuration
}

func (r *Room) startMatch(duration int, m *Map) {
	now := r.now()
	r.phase = PhaseRunning
	r.paused = false
	r.pauser = ""
	r.duration = float64(duration)
	r.startedAt = now
	r.sim.Reset(float64(duration), m, now)
	r.ticker = time.NewTicker(TickDuration)
	r.syncViews()

	r.broadcast(MsgGameStart, r.gameStartMsg())
	r.broadcastLobby()
	r.tracker.Track(EvtMatchStarted, r.Code, map[string]any{
		"room":     r.Code,
		"map":      m.ID,
		"duration": duration,
		"players":  len(r.sim.Players),
		"bots":     len(r.sim.Bots),
	})
	log.Printf("room %s: match started on %s for %ds", r.Code, m.ID, duration)
}

// endMatch moves a running room to Ended. Pending respawns are cancelled.
func (r *Room) endMatch(reason string) {
	if r.phase != PhaseRunning {
		return
	}
	r.phase = PhaseEnded
	r.paused = false
	r.pauser = ""
	r.stopTicker()
	r.sched.CancelAll()
	r.syncViews()

	result := MatchResult(reason, r.sim.SortedPlayers())
	r.broadcast(MsgGameEnd, result)
	r.broadcastLobby()
	r.tracker.Track(EvtMatchEnded, r.Code, map[string]any{
		"room":     r.Code,
		"map":      r.sim.Map.ID,
		"reason":   reason,
		"winner":   result.Winner,
		"duration": r.now().Sub(r.startedAt).Seconds(),
		"scores":   result.Scores,
	})
	log.Printf("room %s: match ended (%s): %s", r.Code, reason, result.Winner)
}

// MatchResult ranks players by score and describes the winner
func MatchResult(reason string, players []*Player) GameEndMsg {
	ranked := make([]*Player, len(players))
	copy(ranked, players)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	winner := "No Winner"
	if len(ranked) > 0 {
		winner = ranked[0].Name + " Wins!"
		if len(ranked) > 1 && ranked[1].Score == ranked[0].Score {
			winner = "It's a Draw!"
		}
	}
	scores := make([]ScoreEntry, 0, len(ranked))
	for _, p := range ranked {
		scores = append(scores, ScoreEntry{Name: p.Name, Score: p.Score, Color: p.Color})
	}
	return GameEndMsg{Reason: reason, Winner: winner, Scores: scores}
}

func (r *Room) togglePause(requester string) {
	if r.phase != PhaseRunning {
		return
	}
	p, ok := r.sim.Players[requester]
	if !ok || p.IsBot {
		return
	}
	r.paused = !r.paused
	verb := "resumed"
	if r.paused {
		r.pauser = p.Name
		verb = "paused"
	} else {
		r.pauser = ""
		r.sim.Freeze(r.now())
	}
	r.broadcast(MsgGamePaused, r.pauseState())
	r.broadcast(MsgServerMessage, ServerMessage{Text: fmt.Sprintf("%s %s the game", p.Name, verb)})
}

func (r *Room) pauseState() PauseState {
	st := PauseState{IsPaused: r.paused}
	if r.paused {
		name := r.pauser
		st.Pauser = &name
	}
	return st
}

func (r *Room) gameStartMsg() GameStartMsg {
	return GameStartMsg{MapID: r.sim.Map.ID, Duration: r.duration, Map: r.sim.Map}
}

// tick runs one simulation step and broadcasts the snapshot
func (r *Room) tick(now time.Time) {
	if r.phase != PhaseRunning {
		return
	}
	if r.paused {
		r.sim.Freeze(now)
		return
	}
	if !r.sim.Tick(now) {
		return
	}
	r.broadcastState(now)
}

func (r *Room) respawn(id string) {
	if r.phase != PhaseRunning {
		return
	}
	if p, ok := r.sim.Players[id]; ok {
		p.Respawn(r.rng)
	}
}

// --- simulation events ---

func (r *Room) PlayerHit(victim *Player, kind Action) {
	r.broadcast(MsgPlayerHit, PlayerHitMsg{VictimID: victim.ID, Type: kind})
}

func (r *Room) PlayerKO(victim, attacker *Player) {
	r.broadcast(MsgPlayerKO, PlayerKOMsg{VictimID: victim.ID, AttackerID: attacker.ID})
	id := victim.ID
	r.sched.After(RespawnDelay, func() { r.respawn(id) })
}

func (r *Room) PowerupCollected(p *Player, pu *Powerup) {
	r.broadcast(MsgServerMessage, ServerMessage{Text: fmt.Sprintf("%s collected %s!", p.Name, pu.Type.Label())})
}

func (r *Room) TimeUp() {
	r.endMatch(ReasonTimeUp)
}

// --- outbound ---

func (r *Room) broadcastLobby() {
	r.broadcast(MsgLobbyUpdate, LobbyUpdate{
		Players:  r.sim.SortedPlayers(),
		HostID:   r.hostID,
		CanStart: r.canStart(),
		Phase:    r.phase.String(),
	})
}

func (r *Room) broadcast(t string, data any) {
	raw, err := json.Marshal(Envelope{T: t, Data: data})
	if err != nil {
		log.Printf("room %s: marshal %s: %v", r.Code, t, err)
		return
	}
	for _, c := range r.conns {
		c.SendRaw(raw)
	}
}

func (r *Room) send(id, t string, data any) {
	c, ok := r.conns[id]
	if !ok {
		return
	}
	raw, err := json.Marshal(Envelope{T: t, Data: data})
	if err != nil {
		log.Printf("room %s: marshal %s: %v", r.Code, t, err)
		return
	}
	c.SendRaw(raw)
}

// broadcastState encodes the snapshot at most once per wire format
func (r *Room) broadcastState(now time.Time) {
	env := Envelope{T: MsgStateUpdate, Data: r.sim.Snapshot(now)}
	var text, bin []byte
	for _, c := range r.conns {
		if c.WantsBinary() {
			if bin == nil {
				var err error
				if bin, err = EncodeBinary(env); err != nil {
					log.Printf("room %s: encode state: %v", r.Code, err)
					return
				}
			}
			c.SendBinary(bin)
			continue
		}
		if text == nil {
			var err error
			if text, err = json.Marshal(env); err != nil {
				log.Printf("room %s: marshal state: %v", r.Code, err)
				return
			}
		}
		c.SendRaw(text)
	}
}
