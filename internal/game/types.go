package game

import "prospector.ai/internal/grid"

// Constants are the session parameters announced on the first protocol line.
type Constants struct {
	MaxTurns      int `json:"MAX_TURNS"`
	UnitCost      int `json:"NEW_ENTITY_ENERGY_COST"`
	BaseCost      int `json:"DROPOFF_COST"`
	Capacity      int `json:"MAX_ENERGY"`
	MoveCostRatio int `json:"MOVE_COST_RATIO"`
	ExtractRatio  int `json:"EXTRACT_RATIO"`
}

// WithDefaults fills ratios the engine may omit.
func (c Constants) WithDefaults() Constants {
	if c.MoveCostRatio <= 0 {
		c.MoveCostRatio = 10
	}
	if c.ExtractRatio <= 0 {
		c.ExtractRatio = 4
	}
	if c.Capacity <= 0 {
		c.Capacity = 1000
	}
	return c
}

type Unit struct {
	Owner int        `json:"owner"`
	ID    int        `json:"id"`
	Pos   grid.Point `json:"pos"`
	Cargo int        `json:"cargo"`
}

type Base struct {
	Owner int        `json:"owner"`
	ID    int        `json:"id"`
	Pos   grid.Point `json:"pos"`
}

// Init is the session header: constants, players, shipyards and the map.
type Init struct {
	Const     Constants `json:"constants"`
	Players   int       `json:"players"`
	Me        int       `json:"me"`
	Shipyards []Base    `json:"shipyards"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Cells     []int     `json:"cells"`
}

type PlayerFrame struct {
	ID      int    `json:"id"`
	Reserve int    `json:"reserve"`
	Units   []Unit `json:"units"`
	Bases   []Base `json:"bases"`
}

type CellUpdate struct {
	Pos   grid.Point `json:"pos"`
	Value int        `json:"value"`
}

// Frame is one turn's world snapshot. Turn is zero-based.
type Frame struct {
	Turn    int           `json:"turn"`
	Players []PlayerFrame `json:"players"`
	Updates []CellUpdate  `json:"updates"`
}

// Command is one unit's order for the turn: a move, or conversion into a
// base when Convert is set.
type Command struct {
	UnitID  int            `json:"unit_id"`
	Convert bool           `json:"convert,omitempty"`
	Dir     grid.Direction `json:"dir"`
}
