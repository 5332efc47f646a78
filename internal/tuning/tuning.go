package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	BotName string `yaml:"bot_name"`

	// Cargo at or above which a unit heads home.
	DepositCargo int `yaml:"deposit_cargo"`

	GoalPoolPerUnit int `yaml:"goal_pool_per_unit"`
	GoalPoolBase    int `yaml:"goal_pool_base"`

	Value    Value    `yaml:"value"`
	Moves    Moves    `yaml:"moves"`
	Endgame  Endgame  `yaml:"endgame"`
	Spawn    Spawn    `yaml:"spawn"`
	Dropoff  Dropoff  `yaml:"dropoff"`
	Forecast Forecast `yaml:"forecast"`

	SnapshotEveryTurns int `yaml:"snapshot_every_turns"`
}

// Value weights the goal valuation.
type Value struct {
	GoalShare        float64 `yaml:"goal_share"`
	TravelShare      float64 `yaml:"travel_share"`
	ReturnShare      float64 `yaml:"return_share"`
	LeaveRichPenalty float64 `yaml:"leave_rich_penalty"`
	LeavePoorFactor  float64 `yaml:"leave_poor_factor"`
	ToGoalTurnWeight float64 `yaml:"to_goal_turn_weight"`
	ToBaseTurnWeight float64 `yaml:"to_base_turn_weight"`
	TurnExponent     float64 `yaml:"turn_exponent"`
}

type Moves struct {
	ForbiddenPenalty float64 `yaml:"forbidden_penalty"`
	StayBonus        float64 `yaml:"stay_bonus"`
	StuckDecay       float64 `yaml:"stuck_decay"`
	RerouteMaxSteps  int     `yaml:"reroute_max_steps"`
}

type Endgame struct {
	MarginTwoPlayer  int `yaml:"margin_two_player"`
	MarginFourSmall  int `yaml:"margin_four_small"`
	MarginFourLarge  int `yaml:"margin_four_large"`
	LargeMapWidth    int `yaml:"large_map_width"`
	CrowdedUnits     int `yaml:"crowded_units"`
	CrowdedBonus     int `yaml:"crowded_bonus"`
	VeryCrowdedUnits int `yaml:"very_crowded_units"`
	VeryCrowdedBonus int `yaml:"very_crowded_bonus"`
}

type Spawn struct {
	StopMarginTwoPlayer int `yaml:"stop_margin_two_player"`
	StopMarginFour      int `yaml:"stop_margin_four"`
	StopMarginFourHuge  int `yaml:"stop_margin_four_huge"`
	HugeMapWidth        int `yaml:"huge_map_width"`
}

type Dropoff struct {
	SpacingSmall  int     `yaml:"spacing_small"`
	Spacing       int     `yaml:"spacing"`
	SmallMapWidth int     `yaml:"small_map_width"`
	LinkDist      int     `yaml:"link_dist"`
	MinGroup      int     `yaml:"min_group"`
	MaxRadius     int     `yaml:"max_radius"`
	DensityRadius int     `yaml:"density_radius"`
	DistWeight    float64 `yaml:"dist_weight"`
	AcceptScore   float64 `yaml:"accept_score"`
	RetainDensity float64 `yaml:"retain_density"`
	MinUnits      int     `yaml:"min_units"`
}

type Forecast struct {
	Weight       float64 `yaml:"weight"`
	HomeCargo    int     `yaml:"home_cargo"`
	RichCell     int     `yaml:"rich_cell"`
	CrowdDamping float64 `yaml:"crowd_damping"`
}

func Defaults() Tuning {
	return Tuning{
		BotName:         "prospector",
		DepositCargo:    950,
		GoalPoolPerUnit: 4,
		GoalPoolBase:    20,
		Value: Value{
			GoalShare:        0.8,
			TravelShare:      0.10,
			ReturnShare:      0.2,
			LeaveRichPenalty: 10000,
			LeavePoorFactor:  0.23,
			ToGoalTurnWeight: 1.2,
			ToBaseTurnWeight: 0.9,
			TurnExponent:     1.4,
		},
		Moves: Moves{
			ForbiddenPenalty: 1000,
			StayBonus:        4,
			StuckDecay:       0.87,
			RerouteMaxSteps:  256,
		},
		Endgame: Endgame{
			MarginTwoPlayer:  3,
			MarginFourSmall:  5,
			MarginFourLarge:  6,
			LargeMapWidth:    40,
			CrowdedUnits:     30,
			CrowdedBonus:     2,
			VeryCrowdedUnits: 50,
			VeryCrowdedBonus: 3,
		},
		Spawn: Spawn{
			StopMarginTwoPlayer: 200,
			StopMarginFour:      225,
			StopMarginFourHuge:  250,
			HugeMapWidth:        64,
		},
		Dropoff: Dropoff{
			SpacingSmall:  11,
			Spacing:       15,
			SmallMapWidth: 32,
			LinkDist:      2,
			MinGroup:      3,
			MaxRadius:     5,
			DensityRadius: 5,
			DistWeight:    3,
			AcceptScore:   310,
			RetainDensity: 150,
			MinUnits:      15,
		},
		Forecast: Forecast{
			Weight:       100,
			HomeCargo:    950,
			RichCell:     200,
			CrowdDamping: 0.03,
		},
		SnapshotEveryTurns: 50,
	}
}

// Load reads a tuning document. Keys it omits keep their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Save writes the effective tuning so a session can be replayed with it.
func Save(path string, t Tuning) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (t Tuning) Validate() error {
	switch {
	case t.GoalPoolPerUnit < 0 || t.GoalPoolBase < 0:
		return fmt.Errorf("goal pool sizes must be non-negative")
	case t.Value.TurnExponent <= 0:
		return fmt.Errorf("value.turn_exponent must be positive")
	case t.Moves.StuckDecay < 0 || t.Moves.StuckDecay > 1:
		return fmt.Errorf("moves.stuck_decay must be within [0,1]")
	case t.Moves.RerouteMaxSteps <= 0:
		return fmt.Errorf("moves.reroute_max_steps must be positive")
	case t.Dropoff.MinGroup < 1:
		return fmt.Errorf("dropoff.min_group must be at least 1")
	}
	return nil
}
