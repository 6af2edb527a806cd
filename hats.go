package main

// Hat ids, purely cosmetic
const (
	HatNone   = 0
	HatCowboy = 1
	HatTopHat = 2
	HatViking = 3
)

// Hat describes a cosmetic the client draws on top of a fighter
type Hat struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// HatCatalog lists every hat a player may pick on join
var HatCatalog = []Hat{
	{ID: HatNone, Name: "None"},
	{ID: HatCowboy, Name: "Cowboy"},
	{ID: HatTopHat, Name: "Top Hat"},
	{ID: HatViking, Name: "Viking"},
}

// NormalizeHat maps unknown hat ids to HatNone
func NormalizeHat(id int) int {
	for _, h := range HatCatalog {
		if h.ID == id {
			return id
		}
	}
	return HatNone
}
