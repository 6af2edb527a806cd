package main

import "math"

const (
	ArenaWidth  = 1200.0
	ArenaHeight = 600.0

	Gravity      = 0.8
	Friction     = 0.82
	MoveAccel    = 0.8
	CrouchAccel  = 0.3 // fraction of MoveAccel while crouching
	MaxSpeed     = 6.0
	JumpImpulse  = -18.0
	PlayerWidth  = 40.0
	PlayerHeight = 80.0
)

// Rect is an axis-aligned bounding box
type Rect struct {
	X, Y, W, H float64
}

// Overlaps reports whether two boxes intersect. Touching edges do not count.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W &&
		o.X < r.X+r.W &&
		r.Y < o.Y+o.H &&
		o.Y < r.Y+r.H
}

// Body is the physical state the engine integrates
type Body struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	W          float64 `json:"-"`
	H          float64 `json:"-"`
	IsGrounded bool    `json:"isGrounded"`
}

// Bounds returns the body's AABB
func (b *Body) Bounds() Rect {
	return Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
}

// ApplyGravity accelerates the body downward
func ApplyGravity(b *Body) {
	b.VY += Gravity
}

// ApplyFriction damps horizontal velocity
func ApplyFriction(b *Body) {
	b.VX *= Friction
}

// CapSpeed clamps |vx| to MaxSpeed scaled by mult, keeping its sign
func CapSpeed(b *Body, mult float64) {
	limit := MaxSpeed * mult
	if math.Abs(b.VX) > limit {
		b.VX = math.Copysign(limit, b.VX)
	}
}

// Integrate moves the body by its velocity
func Integrate(b *Body) {
	b.X += b.VX
	b.Y += b.VY
}

// ConstrainToArena keeps the body inside the arena. Landing on the floor
// grounds it; any other outcome leaves it airborne until a platform says otherwise.
func ConstrainToArena(b *Body) {
	if b.Y+b.H > ArenaHeight {
		b.Y = ArenaHeight - b.H
		b.VY = 0
		b.IsGrounded = true
	} else {
		b.IsGrounded = false
	}

	if b.X < 0 {
		b.X = 0
		b.VX = 0
	} else if b.X+b.W > ArenaWidth {
		b.X = ArenaWidth - b.W
		b.VX = 0
	}
}

// LandOnPlatforms resolves one-way platforms. Only falling or resting bodies
// can land, and the first qualifying platform in list order wins.
func LandOnPlatforms(b *Body, platforms []Platform) {
	if b.VY < 0 {
		return
	}
	feet := b.Y + b.H
	for _, pl := range platforms {
		if b.X+b.W <= pl.X || b.X >= pl.X+pl.W {
			continue
		}
		if feet >= pl.Y && feet <= pl.Y+pl.H+b.VY {
			b.Y = pl.Y - b.H
			b.VY = 0
			b.IsGrounded = true
			return
		}
	}
}

// Step runs the full per-tick physics pipeline on a body
func Step(b *Body, speedMult float64, platforms []Platform) {
	ApplyGravity(b)
	ApplyFriction(b)
	CapSpeed(b, speedMult)
	Integrate(b)
	ConstrainToArena(b)
	LandOnPlatforms(b, platforms)
}
