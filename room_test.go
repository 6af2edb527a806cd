package main

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []InEnvelope
	binary   [][]byte
	wantsBin bool
}

func (m *mockBroadcaster) SendRaw(data []byte) {
	var env InEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockBroadcaster) WantsBinary() bool { return m.wantsBin }

func (m *mockBroadcaster) count(t string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, env := range m.messages {
		if env.T == t {
			n++
		}
	}
	return n
}

// last decodes the most recent message of type t into v
func (m *mockBroadcaster) last(tb testing.TB, t string, v any) bool {
	tb.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].T != t {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(m.messages[i].D, v); err != nil {
				tb.Fatalf("decode %s: %v", t, err)
			}
		}
		return true
	}
	return false
}

func (m *mockBroadcaster) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.binary = nil
}

// fakeClock is a manually advanced time source
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRoom(t *testing.T) (*Room, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	r := newRoom("1234", nil, rand.New(rand.NewSource(42)), clock.Now)
	r.OnEmpty = func(*Room) {}
	t.Cleanup(func() {
		r.stopTicker()
		r.sched.CancelAll()
	})
	return r, clock
}

func joinRoom(r *Room, id, name string) (*mockBroadcaster, error) {
	mb := &mockBroadcaster{}
	reply := make(chan error, 1)
	r.handle(joinCmd{conn: mb, id: id, name: name, reply: reply})
	return mb, <-reply
}

func mustJoin(t *testing.T, r *Room, id, name string) *mockBroadcaster {
	t.Helper()
	mb, err := joinRoom(r, id, name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return mb
}

// fireAll runs every pending scheduled task
func fireAll(r *Room) {
	for id := range r.sched.tasks {
		r.sched.Fire(id)
	}
}

func TestRoomJoinAssignsHostAndColors(t *testing.T) {
	r, _ := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")

	if r.hostID != "a" {
		t.Errorf("expected host a, got %s", r.hostID)
	}
	if r.sim.Players["a"].Color != ColorPalette[0] || r.sim.Players["b"].Color != ColorPalette[1] {
		t.Error("colors should be handed out in palette order")
	}
	if r.PlayerCount() != 2 {
		t.Errorf("expected 2 players, got %d", r.PlayerCount())
	}

	var js JoinSuccessMsg
	if !a.last(t, MsgJoinSuccess, &js) || js.PlayerID != "a" || js.Code != "1234" {
		t.Errorf("unexpected joinSuccess %+v", js)
	}
	var lobby LobbyUpdate
	if !a.last(t, MsgLobbyUpdate, &lobby) {
		t.Fatal("expected a lobbyUpdate")
	}
	if len(lobby.Players) != 2 || lobby.HostID != "a" || !lobby.CanStart || lobby.Phase != "lobby" {
		t.Errorf("unexpected lobby %+v", lobby)
	}
	if a.count(MsgPlayerJoined) != 2 {
		t.Errorf("expected 2 playerJoined, got %d", a.count(MsgPlayerJoined))
	}
}

func TestRoomRejectsDuplicateName(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	if _, err := joinRoom(r, "b", "ALICE"); err != ErrNameTaken {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}
}

func TestRoomRejectsFifthPlayer(t *testing.T) {
	r, _ := newTestRoom(t)
	for i, name := range []string{"A", "B", "C", "D"} {
		mustJoin(t, r, string(rune('a'+i)), name)
	}
	if _, err := joinRoom(r, "e", "E"); err != ErrRoomFull {
		t.Errorf("expected ErrRoomFull, got %v", err)
	}
	if r.PlayerCount() != 4 {
		t.Errorf("expected 4 players, got %d", r.PlayerCount())
	}
}

func TestRoomColorReleasedOnLeave(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	mustJoin(t, r, "c", "Carol")

	r.handle(leaveCmd{playerID: "b"})
	mustJoin(t, r, "d", "Dave")

	if got := r.sim.Players["d"].Color; got != ColorPalette[1] {
		t.Errorf("expected freed color %s, got %s", ColorPalette[1], got)
	}
}

func TestRoomColorFallbackPastPalette(t *testing.T) {
	r, _ := newTestRoom(t)
	for _, c := range ColorPalette {
		r.usedColors[c] = true
	}
	c := r.assignColor()
	if len(c) < 4 || c[:4] != "hsl(" {
		t.Errorf("expected hsl fallback, got %s", c)
	}
}

func TestRoomHostReassignedOnLeave(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	c := mustJoin(t, r, "c", "Carol")
	mustJoin(t, r, "b", "Bob")

	r.handle(leaveCmd{playerID: "a"})

	if r.hostID != "b" {
		t.Errorf("expected host b (first remaining by id), got %s", r.hostID)
	}
	var lobby LobbyUpdate
	c.last(t, MsgLobbyUpdate, &lobby)
	if lobby.HostID != "b" {
		t.Errorf("lobby should announce the new host, got %s", lobby.HostID)
	}
	var left PlayerLeftMsg
	if !c.last(t, MsgPlayerLeft, &left) || left.PlayerID != "a" {
		t.Errorf("expected playerLeft for a, got %+v", left)
	}
	var notice ServerMessage
	if !c.last(t, MsgServerMessage, &notice) || notice.Text != "Alice left the game." {
		t.Errorf("unexpected notice %q", notice.Text)
	}
}

func TestRoomStartRequiresHostAndPlayers(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")

	r.handle(startCmd{playerID: "a"})
	if r.phase != PhaseLobby {
		t.Fatal("a lone player must not start a match")
	}

	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "b"})
	if r.phase != PhaseLobby {
		t.Fatal("only the host may start")
	}

	r.handle(startCmd{playerID: "a"})
	if r.phase != PhaseRunning {
		t.Fatal("host start with two players should run")
	}
	if r.Phase() != PhaseRunning {
		t.Error("phase mirror not updated")
	}
}

func TestRoomStartSettings(t *testing.T) {
	tests := []struct {
		req     StartRequest
		wantDur float64
		wantMap string
	}{
		{StartRequest{}, 180, "classic"},
		{StartRequest{Duration: 300, MapID: "towers"}, 300, "towers"},
		{StartRequest{Duration: 600, MapID: "skybridge"}, 600, "skybridge"},
		{StartRequest{Duration: 42, MapID: "moon"}, 180, "classic"},
	}
	for _, tt := range tests {
		r, _ := newTestRoom(t)
		a := mustJoin(t, r, "a", "Alice")
		mustJoin(t, r, "b", "Bob")

		r.handle(startCmd{playerID: "a", req: tt.req})

		var gs GameStartMsg
		if !a.last(t, MsgGameStart, &gs) {
			t.Fatalf("%+v: expected gameStart", tt.req)
		}
		if gs.Duration != tt.wantDur || gs.MapID != tt.wantMap || gs.Map == nil || gs.Map.ID != tt.wantMap {
			t.Errorf("%+v: got duration %v map %s", tt.req, gs.Duration, gs.MapID)
		}
		if r.sim.Timer != tt.wantDur {
			t.Errorf("%+v: timer %v, want %v", tt.req, r.sim.Timer, tt.wantDur)
		}
	}
}

func TestRoomStartResetsPlayers(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.sim.Players["a"].Score = 5
	r.sim.Players["b"].HP = 30

	r.handle(startCmd{playerID: "a"})

	for _, p := range r.sim.Players {
		if p.Score != 0 || p.HP != PlayerMaxHP || p.Y != SpawnY {
			t.Errorf("%s not reset: score %d hp %d y %v", p.ID, p.Score, p.HP, p.Y)
		}
	}
}

func TestRoomTickBroadcastsState(t *testing.T) {
	r, clock := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	b := mustJoin(t, r, "b", "Bob")
	b.wantsBin = true
	r.handle(startCmd{playerID: "a"})

	clock.Advance(time.Second)
	r.tick(clock.Now())

	var st StateUpdate
	if !a.last(t, MsgStateUpdate, &st) {
		t.Fatal("text client should receive stateUpdate")
	}
	if st.Timer < 178.9 || st.Timer > 179.1 {
		t.Errorf("expected timer ~179 after one second, got %v", st.Timer)
	}
	if len(st.Players) != 2 {
		t.Errorf("expected 2 players in state, got %d", len(st.Players))
	}
	if b.count(MsgStateUpdate) != 0 || len(b.binary) != 1 {
		t.Errorf("binary client should get one msgpack frame, got %d text %d binary", b.count(MsgStateUpdate), len(b.binary))
	}

	var env map[string]any
	if err := DecodeBinary(b.binary[0], &env); err != nil {
		t.Fatalf("decode binary state: %v", err)
	}
	if env["t"] != MsgStateUpdate {
		t.Errorf("binary frame type %v", env["t"])
	}
}

func TestRoomTimeLimitEndsMatch(t *testing.T) {
	r, clock := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})

	for i := 0; i < 3; i++ {
		clock.Advance(time.Minute)
		r.tick(clock.Now())
	}
	if r.phase != PhaseEnded {
		t.Fatalf("expected ended, got %s", r.phase)
	}
	var end GameEndMsg
	if !a.last(t, MsgGameEnd, &end) {
		t.Fatal("expected gameEnd")
	}
	if end.Reason != ReasonTimeUp {
		t.Errorf("expected reason %q, got %q", ReasonTimeUp, end.Reason)
	}
	if end.Winner != "It's a Draw!" {
		t.Errorf("expected draw, got %q", end.Winner)
	}
	if r.ticker != nil {
		t.Error("ticker should stop when the match ends")
	}

	// Ticks after the end do nothing
	n := a.count(MsgStateUpdate)
	clock.Advance(time.Second)
	r.tick(clock.Now())
	if a.count(MsgStateUpdate) != n {
		t.Error("ended room must not broadcast state")
	}
}

func TestRoomEndedRejectsJoinAndStart(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})
	r.endMatch(ReasonTimeUp)

	if _, err := joinRoom(r, "c", "Carol"); err != ErrMatchOver {
		t.Errorf("expected ErrMatchOver, got %v", err)
	}
	r.handle(startCmd{playerID: "a"})
	if r.phase != PhaseEnded {
		t.Error("an ended room cannot restart")
	}
}

func TestRoomLateJoinerWaits(t *testing.T) {
	r, clock := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a", req: StartRequest{MapID: "towers"}})

	c := mustJoin(t, r, "c", "Carol")
	p := r.sim.Players["c"]
	if !p.IsWaiting || p.HP != 0 {
		t.Errorf("late joiner should wait with 0 hp, got waiting=%v hp=%d", p.IsWaiting, p.HP)
	}
	var gs GameStartMsg
	if !c.last(t, MsgGameStart, &gs) || gs.MapID != "towers" {
		t.Error("late joiner should be told about the running match")
	}
	if a.count(MsgGameStart) != 1 {
		t.Error("existing members must not get a second gameStart")
	}

	y := p.Y
	clock.Advance(TickDuration)
	r.tick(clock.Now())
	if p.Y != y {
		t.Error("waiting player must not be simulated")
	}

	// Waiting players leave silently
	a.reset()
	r.handle(leaveCmd{playerID: "c"})
	if a.count(MsgServerMessage) != 0 {
		t.Error("waiting player's departure should not be announced")
	}
	if a.count(MsgPlayerLeft) != 1 {
		t.Error("expected playerLeft")
	}
}

func TestRoomLateJoinerSeesPause(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})
	r.handle(pauseCmd{playerID: "b"})

	c := mustJoin(t, r, "c", "Carol")
	var ps PauseState
	if !c.last(t, MsgGamePaused, &ps) || !ps.IsPaused || ps.Pauser == nil || *ps.Pauser != "Bob" {
		t.Errorf("late joiner should see the pause, got %+v", ps)
	}
}

func TestRoomPauseFreezesClock(t *testing.T) {
	r, clock := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})

	r.handle(pauseCmd{playerID: "b"})
	var ps PauseState
	if !a.last(t, MsgGamePaused, &ps) || !ps.IsPaused || ps.Pauser == nil || *ps.Pauser != "Bob" {
		t.Fatalf("expected paused by Bob, got %+v", ps)
	}
	var notice ServerMessage
	a.last(t, MsgServerMessage, &notice)
	if notice.Text != "Bob paused the game" {
		t.Errorf("unexpected notice %q", notice.Text)
	}

	states := a.count(MsgStateUpdate)
	for i := 0; i < 30; i++ {
		clock.Advance(time.Second)
		r.tick(clock.Now())
	}
	if a.count(MsgStateUpdate) != states {
		t.Error("paused room must not broadcast state")
	}

	r.handle(pauseCmd{playerID: "a"})
	ps = PauseState{}
	a.last(t, MsgGamePaused, &ps)
	if ps.IsPaused || ps.Pauser != nil {
		t.Errorf("expected resumed with no pauser, got %+v", ps)
	}

	clock.Advance(TickDuration)
	r.tick(clock.Now())
	if r.sim.Timer < 179.9 {
		t.Errorf("paused time leaked into the match clock: timer %v", r.sim.Timer)
	}
}

func TestRoomPauseIgnoredOutsideMatch(t *testing.T) {
	r, _ := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	r.handle(pauseCmd{playerID: "a"})
	if r.paused || a.count(MsgGamePaused) != 0 {
		t.Error("pause in the lobby should be ignored")
	}
}

func TestRoomInputReachesPlayer(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	r.handle(inputCmd{playerID: "a", input: Input{Right: true, Attack2: true}})
	if got := r.sim.Players["a"].Inputs; !got.Right || !got.Attack2 {
		t.Errorf("input not stored: %+v", got)
	}
	r.handle(inputCmd{playerID: "ghost", input: Input{Left: true}})
}

func TestRoomKnockoutRespawns(t *testing.T) {
	r, _ := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})

	attacker, victim := r.sim.Players["a"], r.sim.Players["b"]
	attacker.X, attacker.Y, attacker.Facing = 100, 400, FacingRight
	victim.X, victim.Y, victim.HP = 150, 400, 10
	r.sim.performAttack(attacker, ActionKick, UnixMilli(r.now()))

	var ko PlayerKOMsg
	if !a.last(t, MsgPlayerKO, &ko) || ko.VictimID != "b" || ko.AttackerID != "a" {
		t.Fatalf("expected playerKO b by a, got %+v", ko)
	}
	if a.count(MsgPlayerHit) != 1 {
		t.Error("expected a playerHit")
	}
	if attacker.Score != 1 {
		t.Errorf("expected score 1, got %d", attacker.Score)
	}
	if r.sched.Pending() != 1 {
		t.Fatalf("expected one pending respawn, got %d", r.sched.Pending())
	}

	fireAll(r)
	if victim.HP != PlayerMaxHP || victim.Y != SpawnY {
		t.Errorf("victim should respawn, hp %d y %v", victim.HP, victim.Y)
	}
}

func TestRoomEndCancelsRespawn(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})

	attacker, victim := r.sim.Players["a"], r.sim.Players["b"]
	attacker.X, attacker.Y, attacker.Facing = 100, 400, FacingRight
	victim.X, victim.Y, victim.HP = 150, 400, 5
	r.sim.performAttack(attacker, ActionPunch, UnixMilli(r.now()))
	ids := make([]uint64, 0)
	for id := range r.sched.tasks {
		ids = append(ids, id)
	}

	r.endMatch(ReasonTimeUp)
	if r.sched.Pending() != 0 {
		t.Errorf("respawn should be cancelled, %d pending", r.sched.Pending())
	}
	for _, id := range ids {
		r.handle(timerFired{id: id})
	}
	if victim.HP != 0 {
		t.Errorf("cancelled respawn ran, hp %d", victim.HP)
	}
}

func TestRoomLeaveEndsMatchWhenTooFew(t *testing.T) {
	r, _ := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})
	r.sim.Players["a"].Score = 2

	r.handle(leaveCmd{playerID: "b"})

	if r.phase != PhaseEnded {
		t.Fatalf("expected ended, got %s", r.phase)
	}
	var end GameEndMsg
	a.last(t, MsgGameEnd, &end)
	if end.Reason != ReasonNotEnough || end.Winner != "Alice Wins!" {
		t.Errorf("unexpected end %+v", end)
	}
}

func TestRoomBotsClearedWhenLastHumanLeaves(t *testing.T) {
	r, _ := newTestRoom(t)
	emptied := false
	r.OnEmpty = func(*Room) { emptied = true }

	mustJoin(t, r, "a", "Alice")
	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyEasy})
	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyHard})
	if len(r.sim.Bots) != 2 || r.PlayerCount() != 3 {
		t.Fatalf("expected 2 bots, got %d bots %d players", len(r.sim.Bots), r.PlayerCount())
	}
	r.handle(startCmd{playerID: "a"})
	if r.phase != PhaseRunning {
		t.Fatal("host plus bots should be able to start")
	}

	r.handle(leaveCmd{playerID: "a"})

	if len(r.sim.Players) != 0 || len(r.sim.Bots) != 0 {
		t.Errorf("bots should be removed, %d players left", len(r.sim.Players))
	}
	if r.phase != PhaseEnded {
		t.Errorf("expected ended, got %s", r.phase)
	}
	if !emptied {
		t.Error("empty room should be handed to OnEmpty")
	}
}

func TestRoomBotsClearedReasonHostLeft(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	spectator := &mockBroadcaster{}
	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyNormal})
	r.handle(startCmd{playerID: "a"})
	// Keep a listener on the room to observe the end notice
	r.conns["listener"] = spectator

	r.handle(leaveCmd{playerID: "a"})

	var end GameEndMsg
	if !spectator.last(t, MsgGameEnd, &end) || end.Reason != ReasonHostLeft {
		t.Errorf("expected %q end, got %+v", ReasonHostLeft, end)
	}
}

func TestRoomBotNamesAndPermissions(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")

	r.handle(addBotCmd{playerID: "b", difficulty: DifficultyHard})
	if len(r.sim.Bots) != 0 {
		t.Fatal("non-host must not add bots")
	}

	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyHard})
	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyHard})
	names := map[string]bool{}
	var botID string
	for id := range r.sim.Bots {
		p := r.sim.Players[id]
		names[p.Name] = true
		if !p.IsBot || len(id) != len("bot-")+8 || id[:4] != "bot-" {
			t.Errorf("unexpected bot player %s %+v", id, p)
		}
		botID = id
	}
	if !names["Bot 1 (H)"] || !names["Bot 2 (H)"] {
		t.Errorf("unexpected bot names %v", names)
	}

	// Room is full now
	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyEasy})
	if len(r.sim.Bots) != 2 {
		t.Error("full room must not accept bots")
	}

	r.handle(removeBotCmd{playerID: "b", botID: botID})
	if len(r.sim.Bots) != 2 {
		t.Error("non-host must not remove bots")
	}
	r.handle(removeBotCmd{playerID: "a", botID: "b"})
	if _, ok := r.sim.Players["b"]; !ok {
		t.Error("removeBot must not remove humans")
	}
	r.handle(removeBotCmd{playerID: "a", botID: botID})
	if len(r.sim.Bots) != 1 {
		t.Error("host should remove a bot")
	}
}

func TestRoomBotsOnlyInLobby(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})
	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyEasy})
	if len(r.sim.Bots) != 0 {
		t.Error("bots cannot join a running match")
	}
}

func TestRoomBotsCannotPause(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	r.handle(addBotCmd{playerID: "a", difficulty: DifficultyEasy})
	r.handle(startCmd{playerID: "a"})
	for id := range r.sim.Bots {
		r.handle(pauseCmd{playerID: id})
	}
	if r.paused {
		t.Error("bots must not pause")
	}
}

func TestRoomEmptyInvokesOnEmpty(t *testing.T) {
	r, _ := newTestRoom(t)
	var got *Room
	r.OnEmpty = func(room *Room) { got = room }
	mustJoin(t, r, "a", "Alice")
	r.handle(leaveCmd{playerID: "a"})
	if got != r {
		t.Error("last leave should hand the room to OnEmpty")
	}
}

func TestRoomRefusesJoinOnceEmptied(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	r.handle(leaveCmd{playerID: "a"})

	// A join queued behind the last leave must not revive the room
	mb, err := joinRoom(r, "b", "Bob")
	if err != ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if r.PlayerCount() != 0 {
		t.Errorf("expected empty room, got %d players", r.PlayerCount())
	}
	if mb.count(MsgJoinSuccess) != 0 {
		t.Error("refused joiner must not receive joinSuccess")
	}
}

func TestRoomRefusesJoinAfterClose(t *testing.T) {
	r, _ := newTestRoom(t)
	mustJoin(t, r, "a", "Alice")
	r.handle(closeCmd{reason: ReasonShutdown})

	if _, err := joinRoom(r, "b", "Bob"); err != ErrRoomNotFound {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomCloseEndsAndStops(t *testing.T) {
	r, _ := newTestRoom(t)
	a := mustJoin(t, r, "a", "Alice")
	mustJoin(t, r, "b", "Bob")
	r.handle(startCmd{playerID: "a"})

	r.handle(closeCmd{reason: ReasonShutdown})

	var end GameEndMsg
	if !a.last(t, MsgGameEnd, &end) || end.Reason != ReasonShutdown {
		t.Errorf("expected shutdown end, got %+v", end)
	}
	select {
	case <-r.quit:
	default:
		t.Error("close should stop the room")
	}
}

func TestRoomRunLoop(t *testing.T) {
	r := NewRoom("5678", nil)
	go r.Run()
	defer r.Stop()

	mb := &mockBroadcaster{}
	if err := r.Join(mb, "a", "Alice", HatCowboy); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := r.Join(&mockBroadcaster{}, "b", "alice", HatNone); err != ErrNameTaken {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}
	if r.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", r.PlayerCount())
	}

	r.Stop()
	<-r.Done()
	if err := r.Join(&mockBroadcaster{}, "c", "Carol", HatNone); err != ErrRoomNotFound {
		t.Errorf("join after stop: expected ErrRoomNotFound, got %v", err)
	}
	if r.Submit(leaveCmd{playerID: "a"}) {
		t.Error("submit after stop should fail")
	}
}

func TestMatchResult(t *testing.T) {
	alice := &Player{ID: "a", Name: "Alice", Score: 3, Color: "#FF0000"}
	bob := &Player{ID: "b", Name: "Bob", Score: 5, Color: "#00FF00"}
	carol := &Player{ID: "c", Name: "Carol", Score: 5, Color: "#0000FF"}

	res := MatchResult(ReasonTimeUp, []*Player{alice, bob})
	if res.Winner != "Bob Wins!" {
		t.Errorf("expected Bob Wins!, got %q", res.Winner)
	}
	if res.Scores[0].Name != "Bob" || res.Scores[1].Name != "Alice" {
		t.Errorf("scores not sorted: %+v", res.Scores)
	}

	res = MatchResult(ReasonTimeUp, []*Player{alice, bob, carol})
	if res.Winner != "It's a Draw!" {
		t.Errorf("expected draw, got %q", res.Winner)
	}

	res = MatchResult(ReasonHostLeft, nil)
	if res.Winner != "No Winner" || len(res.Scores) != 0 {
		t.Errorf("expected no winner, got %+v", res)
	}
}

func TestNormalizeDuration(t *testing.T) {
	for in, want := range map[int]int{0: 180, 180: 180, 300: 300, 600: 600, 601: 180, -5: 180} {
		if got := NormalizeDuration(in); got != want {
			t.Errorf("NormalizeDuration(%d) = %d, want %d", in, got, want)
		}
	}
}
