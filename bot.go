package main

import (
	"math"
	"math/rand"
	"strings"
)

const (
	BotEngageRange    = 100.0 // distance at which a bot considers attacking
	BotAlignTol       = 50.0  // max vertical gap for an attack
	BotCloseRange     = 20.0  // horizontal gap where facing no longer matters
	BotJumpGap        = -50.0 // target must be this far above to trigger a jump
	BotJumpCooldown   = 1.0   // seconds
	BotDecisionJitter = 0.1   // seconds added on top of reaction time
	BotStuckSpeed     = 0.1
)

// Difficulty selects a bot tuning
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// BotTuning holds the per-difficulty constants
type BotTuning struct {
	ReactionTime   float64 // seconds between decisions
	Aggressiveness float64 // probability of attacking when in range
	IdealDistance  float64 // horizontal gap the bot closes to
	JumpChance     float64 // probability of taking a jump toward a higher target
	WanderChance   float64 // probability of moving in a random direction
	StuckJump      bool
	DodgePunches   bool
	Label          string
}

// BotTunings is the closed difficulty table
var BotTunings = map[Difficulty]BotTuning{
	DifficultyEasy: {
		ReactionTime:   0.8,
		Aggressiveness: 0.2,
		IdealDistance:  60,
		JumpChance:     0.3,
		WanderChance:   0.2,
		Label:          "E",
	},
	DifficultyNormal: {
		ReactionTime:   0.3,
		Aggressiveness: 0.6,
		IdealDistance:  60,
		JumpChance:     1,
		StuckJump:      true,
		Label:          "N",
	},
	DifficultyHard: {
		ReactionTime:   0.1,
		Aggressiveness: 0.9,
		IdealDistance:  40,
		JumpChance:     1,
		StuckJump:      true,
		DodgePunches:   true,
		Label:          "H",
	},
}

// ParseDifficulty maps free-form input onto the table, defaulting to normal
func ParseDifficulty(s string) Difficulty {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := BotTunings[d]; ok {
		return d
	}
	return DifficultyNormal
}

// Bot drives one simulated player by id
type Bot struct {
	PlayerID      string
	Difficulty    Difficulty
	tuning        BotTuning
	decisionTimer float64
	jumpCooldown  float64
	inputs        Input
}

// NewBot creates a controller for the given player
func NewBot(playerID string, d Difficulty) *Bot {
	return &Bot{
		PlayerID:   playerID,
		Difficulty: d,
		tuning:     BotTunings[d],
	}
}

// Reset clears timers and inputs at the start of a match
func (b *Bot) Reset() {
	b.decisionTimer = 0
	b.jumpCooldown = 0
	b.inputs = Input{}
}

// Update advances the bot's timers by dt seconds and returns the input to
// apply this tick. A new decision is only taken when the decision timer runs out.
func (b *Bot) Update(dt float64, players map[string]*Player, rng *rand.Rand) Input {
	if b.decisionTimer > 0 {
		b.decisionTimer -= dt
	}
	if b.jumpCooldown > 0 {
		b.jumpCooldown -= dt
	}
	if b.decisionTimer <= 0 {
		b.inputs = b.decide(players, rng)
		b.decisionTimer = b.tuning.ReactionTime + rng.Float64()*BotDecisionJitter
	}
	return b.inputs
}

// nearestTarget picks the closest living, non-waiting opponent
func (b *Bot) nearestTarget(me *Player, players map[string]*Player) (*Player, float64) {
	var target *Player
	best := math.Inf(1)
	for _, p := range players {
		if p.ID == me.ID || !p.Active() {
			continue
		}
		d := Distance(me.X, me.Y, p.X, p.Y)
		if d < best || (d == best && target != nil && p.ID < target.ID) {
			best = d
			target = p
		}
	}
	return target, best
}

func (b *Bot) decide(players map[string]*Player, rng *rand.Rand) Input {
	var in Input
	me, ok := players[b.PlayerID]
	if !ok || me.HP <= 0 {
		return in
	}
	target, dist := b.nearestTarget(me, players)
	if target == nil {
		return in
	}
	t := b.tuning
	dx := target.X - me.X
	dy := target.Y - me.Y

	if t.WanderChance > 0 && rng.Float64() < t.WanderChance {
		if rng.Float64() < 0.5 {
			in.Left = true
		} else {
			in.Right = true
		}
	} else if math.Abs(dx) > t.IdealDistance {
		if dx > 0 {
			in.Right = true
		} else {
			in.Left = true
		}
	}

	if dy < BotJumpGap && me.IsGrounded && b.jumpCooldown <= 0 {
		if t.JumpChance >= 1 || rng.Float64() < t.JumpChance {
			in.Jump = true
			b.jumpCooldown = BotJumpCooldown
		}
	}

	moving := in.Left || in.Right
	if t.StuckJump && moving && math.Abs(me.VX) < BotStuckSpeed && me.IsGrounded && b.jumpCooldown <= 0 {
		in.Jump = true
		b.jumpCooldown = BotJumpCooldown
	}

	if dist < BotEngageRange && math.Abs(dy) < BotAlignTol {
		facing := (dx > 0 && me.Facing == FacingRight) || (dx < 0 && me.Facing == FacingLeft)
		if facing || math.Abs(dx) < BotCloseRange {
			if rng.Float64() < t.Aggressiveness {
				if rng.Float64() < 0.5 {
					in.Attack1 = true
				} else {
					in.Attack2 = true
				}
			}
		}
	}

	if t.DodgePunches && target.Action == ActionPunch && dist < BotEngageRange {
		facingUs := (target.Facing == FacingRight && target.X < me.X) ||
			(target.Facing == FacingLeft && target.X > me.X)
		if facingUs {
			in.Crouch = true
		}
	}
	return in
}
