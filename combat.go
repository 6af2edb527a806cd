package main

import "time"

const (
	DamageBuffFactor = 1.5
	RespawnDelay     = 2000 * time.Millisecond
)

// AttackSpec is the fixed tuning of one attack kind
type AttackSpec struct {
	Range    float64
	Damage   int
	Cooldown float64 // ms
	High     bool    // crouching defenders dodge high attacks
}

// Attacks maps each attack kind to its tuning
var Attacks = map[Action]AttackSpec{
	ActionPunch: {Range: 60, Damage: 10, Cooldown: 250, High: true},
	ActionKick:  {Range: 90, Damage: 15, Cooldown: 500},
}

// AttackDamage returns the damage an attack deals, with the damage buff applied
func AttackDamage(kind Action, boosted bool) int {
	dmg := Attacks[kind].Damage
	if boosted {
		dmg = int(float64(dmg) * DamageBuffFactor)
	}
	return dmg
}

// Hitbox returns the attack area in front of the attacker
func Hitbox(attacker *Player, reach float64) Rect {
	x := attacker.X + attacker.W
	if attacker.Facing == FacingLeft {
		x = attacker.X - reach
	}
	return Rect{X: x, Y: attacker.Y, W: reach, H: attacker.H}
}

// performAttack starts an attack and resolves hits against every other
// active player in range
func (s *Simulation) performAttack(attacker *Player, kind Action, now int64) {
	atk, ok := Attacks[kind]
	if !ok {
		return
	}
	dmg := AttackDamage(kind, attacker.DamageBoosted(now))

	if kind == ActionPunch {
		attacker.PunchCooldown = atk.Cooldown
	} else {
		attacker.KickCooldown = atk.Cooldown
	}
	attacker.Action = kind
	attacker.ActionTimer = ActionDuration

	box := Hitbox(attacker, atk.Range)
	for _, target := range s.Players {
		if target.ID == attacker.ID || !target.Active() {
			continue
		}
		if !box.Overlaps(target.Bounds()) {
			continue
		}
		if atk.High && target.IsCrouching {
			continue
		}
		s.applyDamage(target, attacker, dmg, kind)
	}
}

// applyDamage hurts the victim and handles the knockout
func (s *Simulation) applyDamage(victim, attacker *Player, amount int, kind Action) {
	ko := victim.TakeDamage(amount)
	s.events.PlayerHit(victim, kind)
	if !ko {
		return
	}
	attacker.Score++
	s.events.PlayerKO(victim, attacker)
}
