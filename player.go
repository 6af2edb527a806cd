package main

import (
	"math"
	"math/rand"
	"strings"
	"unicode/utf8"
)

const (
	PlayerMaxHP     = 100
	SpawnY          = 100.0
	SpawnMargin     = 50.0
	MaxNameLen      = 10
	ActionDuration  = 200.0 // ms an attack animation stays visible
	SpeedBuffFactor = 1.5
)

// Facing is the direction a player looks
type Facing string

const (
	FacingLeft  Facing = "left"
	FacingRight Facing = "right"
)

// Action is the attack animation currently playing
type Action string

const (
	ActionNone  Action = "none"
	ActionPunch Action = "punch"
	ActionKick  Action = "kick"
)

// Input is the latest control snapshot for a player
type Input struct {
	Left    bool `json:"left"`
	Right   bool `json:"right"`
	Jump    bool `json:"jump"`
	Crouch  bool `json:"crouch"`
	Attack1 bool `json:"attack1"`
	Attack2 bool `json:"attack2"`
}

// Buffs holds absolute expiry timestamps in unix ms, 0 when inactive
type Buffs struct {
	Speed  int64 `json:"speed"`
	Damage int64 `json:"damage"`
}

// Player is one fighter in a room, human or bot
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	HatID int    `json:"hatId"`
	Body
	Facing        Facing  `json:"facing"`
	HP            int     `json:"hp"`
	Score         int     `json:"score"`
	PunchCooldown float64 `json:"punchCooldown"`
	KickCooldown  float64 `json:"kickCooldown"`
	Action        Action  `json:"action"`
	ActionTimer   float64 `json:"actionTimer"`
	IsCrouching   bool    `json:"isCrouching"`
	Inputs        Input   `json:"inputs"`
	Buffs         Buffs   `json:"buffs"`
	IsWaiting     bool    `json:"isWaiting"`
	IsBot         bool    `json:"isBot"`
}

// NewPlayer creates a player at a random spawn point
func NewPlayer(id, name, color string, hat int, rng *rand.Rand) *Player {
	p := &Player{
		ID:     id,
		Name:   name,
		Color:  color,
		HatID:  NormalizeHat(hat),
		Body:   Body{W: PlayerWidth, H: PlayerHeight},
		Facing: FacingRight,
		HP:     PlayerMaxHP,
		Action: ActionNone,
	}
	p.X = randomSpawnX(rng)
	p.Y = SpawnY
	return p
}

func randomSpawnX(rng *rand.Rand) float64 {
	return rng.Float64()*(ArenaWidth-2*SpawnMargin) + SpawnMargin
}

// Respawn restores a knocked-out or waiting player to a fresh state
func (p *Player) Respawn(rng *rand.Rand) {
	p.HP = PlayerMaxHP
	p.X = randomSpawnX(rng)
	p.Y = SpawnY
	p.VX = 0
	p.VY = 0
	p.IsGrounded = false
	p.IsCrouching = false
	p.Action = ActionNone
	p.ActionTimer = 0
	p.IsWaiting = false
	p.Buffs = Buffs{}
}

// Active reports whether the player takes part in the simulation this tick
func (p *Player) Active() bool {
	return !p.IsWaiting && p.HP > 0
}

// SpeedBoosted reports whether the speed buff is live at now (unix ms)
func (p *Player) SpeedBoosted(now int64) bool {
	return p.Buffs.Speed > 0 && now < p.Buffs.Speed
}

// DamageBoosted reports whether the damage buff is live at now (unix ms)
func (p *Player) DamageBoosted(now int64) bool {
	return p.Buffs.Damage > 0 && now < p.Buffs.Damage
}

// ExpireBuffs clears buffs whose deadline has been reached
func (p *Player) ExpireBuffs(now int64) {
	if p.Buffs.Speed > 0 && now >= p.Buffs.Speed {
		p.Buffs.Speed = 0
	}
	if p.Buffs.Damage > 0 && now >= p.Buffs.Damage {
		p.Buffs.Damage = 0
	}
}

// SpeedMultiplier returns the horizontal speed factor at now
func (p *Player) SpeedMultiplier(now int64) float64 {
	if p.SpeedBoosted(now) {
		return SpeedBuffFactor
	}
	return 1.0
}

// TakeDamage subtracts hp, clamping at zero. Returns true on knockout.
func (p *Player) TakeDamage(dmg int) bool {
	p.HP -= dmg
	if p.HP < 0 {
		p.HP = 0
	}
	return p.HP == 0
}

// tickTimers counts cooldowns down by dt milliseconds
func (p *Player) tickTimers(dt float64) {
	if p.PunchCooldown > 0 {
		p.PunchCooldown = math.Max(0, p.PunchCooldown-dt)
	}
	if p.KickCooldown > 0 {
		p.KickCooldown = math.Max(0, p.KickCooldown-dt)
	}
}

// tickAction advances the attack animation, clearing it once elapsed
func (p *Player) tickAction(dt float64) {
	if p.ActionTimer <= 0 {
		return
	}
	p.ActionTimer -= dt
	if p.ActionTimer <= 0 {
		p.ActionTimer = 0
		p.Action = ActionNone
	}
}

// NormalizeName trims and truncates a requested display name. Returns false
// when nothing usable is left.
func NormalizeName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", false
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		name = string([]rune(name)[:MaxNameLen])
	}
	return name, true
}
