package main

import (
	"math/rand"
	"sort"
	"time"
)

const (
	TickRate     = 60 // simulation ticks per second
	TickDuration = time.Second / TickRate
	tickMillis   = 1000.0 / TickRate
	tickSeconds  = 1.0 / TickRate
)

// Events receives the notifications produced while a tick runs
type Events interface {
	PlayerHit(victim *Player, kind Action)
	PlayerKO(victim, attacker *Player)
	PowerupCollected(p *Player, pu *Powerup)
	TimeUp()
}

// Simulation is the per-room match engine. It is driven by exactly one
// goroutine and holds no locks.
type Simulation struct {
	Players  map[string]*Player
	Bots     map[string]*Bot // keyed by player id
	Powerups *PowerupSpawner
	Map      *Map
	Timer    float64 // seconds remaining

	lastTick time.Time
	rng      *rand.Rand
	events   Events
}

// NewSimulation creates an idle simulation
func NewSimulation(rng *rand.Rand, events Events) *Simulation {
	return &Simulation{
		Players:  make(map[string]*Player),
		Bots:     make(map[string]*Bot),
		Powerups: NewPowerupSpawner(rng),
		Map:      LookupMap(DefaultMapID),
		rng:      rng,
		events:   events,
	}
}

// Reset prepares a new match: every player respawns with a zero score
func (s *Simulation) Reset(duration float64, m *Map, now time.Time) {
	s.Map = m
	s.Timer = duration
	s.lastTick = now
	s.Powerups.Reset(UnixMilli(now))
	for _, p := range s.Players {
		p.Respawn(s.rng)
		p.Score = 0
		p.Inputs = Input{}
		p.PunchCooldown = 0
		p.KickCooldown = 0
	}
	for _, b := range s.Bots {
		b.Reset()
	}
}

// Freeze advances wall-clock bookkeeping without simulating anything
func (s *Simulation) Freeze(now time.Time) {
	s.lastTick = now
}

// Tick runs one simulation step. Returns false when the match clock ran out.
func (s *Simulation) Tick(now time.Time) bool {
	elapsed := now.Sub(s.lastTick).Seconds()
	s.lastTick = now
	if elapsed > 0 {
		s.Timer -= elapsed
	}
	if s.Timer <= 0 {
		s.Timer = 0
		s.events.TimeUp()
		return false
	}

	nowMs := UnixMilli(now)
	s.Powerups.Update(nowMs)

	ordered := s.SortedPlayers()
	for _, p := range ordered {
		if b, ok := s.Bots[p.ID]; ok {
			p.Inputs = b.Update(tickSeconds, s.Players, s.rng)
		}
	}

	for _, p := range ordered {
		if !p.Active() {
			continue
		}
		s.updatePlayer(p, nowMs)
	}
	return true
}

// updatePlayer applies one player's input, attacks, pickups and physics
func (s *Simulation) updatePlayer(p *Player, now int64) {
	p.ExpireBuffs(now)
	p.tickTimers(tickMillis)
	mult := p.SpeedMultiplier(now)
	in := p.Inputs

	p.IsCrouching = in.Crouch && p.IsGrounded

	accel := MoveAccel * mult
	if p.IsCrouching {
		accel *= CrouchAccel
	}
	if in.Left {
		p.VX -= accel
		p.Facing = FacingLeft
	}
	if in.Right {
		p.VX += accel
		p.Facing = FacingRight
	}
	if in.Jump && p.IsGrounded && !p.IsCrouching {
		p.VY = JumpImpulse
		p.IsGrounded = false
	}

	if in.Attack1 && p.PunchCooldown <= 0 {
		s.performAttack(p, ActionPunch, now)
	} else if in.Attack2 && p.KickCooldown <= 0 {
		s.performAttack(p, ActionKick, now)
	}

	if pu := s.Powerups.Collect(p, now); pu != nil {
		s.events.PowerupCollected(p, pu)
	}

	Step(&p.Body, mult, s.Map.Platforms)
	p.tickAction(tickMillis)
}

// SortedPlayers returns the players ordered by id so snapshots are stable
func (s *Simulation) SortedPlayers() []*Player {
	list := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Snapshot builds the full state broadcast sent after every tick
func (s *Simulation) Snapshot(now time.Time) StateUpdate {
	return StateUpdate{
		Players:  s.SortedPlayers(),
		Powerups: s.Powerups.List(),
		Time:     UnixMilli(now),
		Timer:    s.Timer,
	}
}
