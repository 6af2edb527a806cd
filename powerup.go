package main

import (
	"math/rand"
	"sort"
)

const (
	PowerupSize         = 30.0
	PowerupLifetime     = 15000 // ms on the map before despawning
	PowerupBuffDuration = 10000 // ms
	PowerupFirstSpawn   = 5000  // ms after match start
	PowerupIntervalMin  = 15000
	PowerupIntervalMax  = 30000
	PowerupGroundOffset = 100.0
)

// PowerupType identifies the buff a powerup grants
type PowerupType string

const (
	PowerupSpeed  PowerupType = "speed_boost"
	PowerupDamage PowerupType = "damage_boost"
)

// Label is the human-readable name used in pickup notices
func (t PowerupType) Label() string {
	if t == PowerupSpeed {
		return "Speed Boost"
	}
	return "Damage Boost"
}

// Powerup is a collectible lying in the arena
type Powerup struct {
	ID          int         `json:"id"`
	Type        PowerupType `json:"type"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	DespawnTime int64       `json:"despawnTime"`
}

// Bounds returns the powerup's AABB
func (pu *Powerup) Bounds() Rect {
	return Rect{X: pu.X, Y: pu.Y, W: PowerupSize, H: PowerupSize}
}

// Apply grants the buff to p until now+PowerupBuffDuration
func (pu *Powerup) Apply(p *Player, now int64) {
	until := now + PowerupBuffDuration
	switch pu.Type {
	case PowerupSpeed:
		p.Buffs.Speed = until
	case PowerupDamage:
		p.Buffs.Damage = until
	}
}

// PowerupSpawner keeps at most one powerup alive in a room
type PowerupSpawner struct {
	Live      map[int]*Powerup
	nextID    int
	nextSpawn int64
	rng       *rand.Rand
}

// NewPowerupSpawner creates an idle spawner
func NewPowerupSpawner(rng *rand.Rand) *PowerupSpawner {
	return &PowerupSpawner{
		Live:   make(map[int]*Powerup),
		nextID: 1,
		rng:    rng,
	}
}

// Reset clears the arena and schedules the first spawn of a new match
func (ps *PowerupSpawner) Reset(now int64) {
	ps.Live = make(map[int]*Powerup)
	ps.nextSpawn = now + PowerupFirstSpawn
}

// Update spawns a powerup when due and removes expired ones
func (ps *PowerupSpawner) Update(now int64) {
	if len(ps.Live) == 0 && now >= ps.nextSpawn {
		ps.spawn(now)
		ps.nextSpawn = now + ps.interval()
	}
	for id, pu := range ps.Live {
		if now > pu.DespawnTime {
			delete(ps.Live, id)
		}
	}
}

func (ps *PowerupSpawner) interval() int64 {
	return PowerupIntervalMin + int64(ps.rng.Float64()*(PowerupIntervalMax-PowerupIntervalMin))
}

func (ps *PowerupSpawner) spawn(now int64) *Powerup {
	typ := PowerupSpeed
	if ps.rng.Float64() >= 0.5 {
		typ = PowerupDamage
	}
	pu := &Powerup{
		ID:          ps.nextID,
		Type:        typ,
		X:           ps.rng.Float64()*(ArenaWidth-2*SpawnMargin) + SpawnMargin,
		Y:           ArenaHeight - PowerupGroundOffset - PowerupSize,
		DespawnTime: now + PowerupLifetime,
	}
	ps.nextID++
	ps.Live[pu.ID] = pu
	return pu
}

// Collect hands any powerup overlapping p to p. Returns the collected
// powerup or nil.
func (ps *PowerupSpawner) Collect(p *Player, now int64) *Powerup {
	bounds := p.Bounds()
	for id, pu := range ps.Live {
		if !bounds.Overlaps(pu.Bounds()) {
			continue
		}
		pu.Apply(p, now)
		delete(ps.Live, id)
		return pu
	}
	return nil
}

// List returns the live powerups in id order
func (ps *PowerupSpawner) List() []*Powerup {
	list := make([]*Powerup, 0, len(ps.Live))
	for _, pu := range ps.Live {
		list = append(list, pu)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
