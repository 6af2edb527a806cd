package main

// Platform is a one-way ledge players can land on from above
type Platform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Map is a named platform layout
type Map struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Platforms []Platform `json:"platforms"`
}

const DefaultMapID = "classic"

// Maps lists every playable layout keyed by id
var Maps = map[string]*Map{
	"classic": {
		ID:   "classic",
		Name: "Classic",
		Platforms: []Platform{
			{X: 300, Y: 400, W: 200, H: 20},
			{X: 700, Y: 400, W: 200, H: 20},
			{X: 500, Y: 250, W: 200, H: 20},
		},
	},
	"towers": {
		ID:   "towers",
		Name: "Towers",
		Platforms: []Platform{
			{X: 100, Y: 450, W: 150, H: 20},
			{X: 100, Y: 300, W: 150, H: 20},
			{X: 950, Y: 450, W: 150, H: 20},
			{X: 950, Y: 300, W: 150, H: 20},
			{X: 500, Y: 350, W: 200, H: 20},
		},
	},
	"skybridge": {
		ID:   "skybridge",
		Name: "Skybridge",
		Platforms: []Platform{
			{X: 200, Y: 420, W: 160, H: 20},
			{X: 840, Y: 420, W: 160, H: 20},
			{X: 300, Y: 220, W: 600, H: 20},
		},
	},
	"flat": {
		ID:   "flat",
		Name: "Flat",
	},
}

// LookupMap returns the layout for id, falling back to the default map
func LookupMap(id string) *Map {
	if m, ok := Maps[id]; ok {
		return m
	}
	return Maps[DefaultMapID]
}
