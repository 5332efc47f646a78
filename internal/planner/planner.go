package planner

import (
	"fmt"
	"io"
	"log"
	"sort"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/protocol"
	"prospector.ai/internal/tuning"
)

type Failure struct {
	UnitID int    `json:"unit_id"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// Plan is everything decided for one turn.
type Plan struct {
	Turn       int                `json:"turn"`
	Spawn      bool               `json:"spawn"`
	Commands   []game.Command     `json:"commands"`
	Targets    map[int]grid.Point `json:"targets,omitempty"`
	Intents    map[int]Intent     `json:"intents,omitempty"`
	Rerouted   []int              `json:"rerouted,omitempty"`
	Failures   []Failure          `json:"failures,omitempty"`
	Candidates []Candidate        `json:"candidates,omitempty"`
	Endgame    bool               `json:"endgame,omitempty"`
	Saving     bool               `json:"saving,omitempty"`
}

type Planner struct {
	cfg        tuning.Tuning
	mem        Memory
	assigner   Assigner
	forecaster Forecaster
	logger     *log.Logger
	search     *Searcher
}

func New(cfg tuning.Tuning, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Planner{
		cfg:        cfg,
		mem:        NewMemory(),
		assigner:   GreedyAssigner{},
		forecaster: HeuristicForecaster{Cfg: cfg.Forecast},
		logger:     logger,
	}
}

func (p *Planner) SetAssigner(a Assigner)     { p.assigner = a }
func (p *Planner) SetForecaster(f Forecaster) { p.forecaster = f }

// Memory returns a copy of the state carried between turns.
func (p *Planner) Memory() Memory { return p.mem.Clone() }

// Restore replaces the carried state, e.g. from a snapshot.
func (p *Planner) Restore(m Memory) {
	if m.Units == nil {
		m.Units = make(map[int]UnitMemory)
	}
	p.mem = m.Clone()
}

func (p *Planner) searcher(g *grid.Grid) *Searcher {
	if p.search == nil || p.search.g != g || len(p.search.cost) != g.Size() {
		p.search = NewSearcher(g)
	}
	return p.search
}

func (p *Planner) endgameMargin(s *game.State, units int) int {
	e := p.cfg.Endgame
	m := e.MarginTwoPlayer
	if s.Players == 4 {
		m = e.MarginFourSmall
		if s.Grid.W >= e.LargeMapWidth {
			m = e.MarginFourLarge
		}
	}
	// The crowding bonus holds for every turn of the closing window.
	if s.Turn >= s.Const.MaxTurns-2*s.Grid.W {
		switch {
		case units > e.VeryCrowdedUnits:
			m += e.VeryCrowdedBonus
		case units > e.CrowdedUnits:
			m += e.CrowdedBonus
		}
	}
	return m
}

func (p *Planner) stopSpawnMargin(s *game.State) int {
	sp := p.cfg.Spawn
	if s.Players != 4 {
		return sp.StopMarginTwoPlayer
	}
	if s.Grid.W >= sp.HugeMapWidth {
		return sp.StopMarginFourHuge
	}
	return sp.StopMarginFour
}

func (p *Planner) dropoffSpacing(s *game.State) int {
	d := p.cfg.Dropoff
	if s.Players == 4 && s.Grid.W <= d.SmallMapWidth {
		return d.SpacingSmall
	}
	return d.Spacing
}

// Step applies a frame to the state and plans the resulting turn.
func (p *Planner) Step(s *game.State, f game.Frame) (Plan, error) {
	if err := s.ApplyFrame(f); err != nil {
		return Plan{}, fmt.Errorf("apply frame: %w", err)
	}
	return p.PlanTurn(s)
}

// PlanTurn decides the spawn and every own unit's command for the turn in
// s. It fails only when s is inconsistent with itself.
func (p *Planner) PlanTurn(s *game.State) (Plan, error) {
	g := s.Grid
	plan := Plan{
		Turn:    s.Turn,
		Targets: make(map[int]grid.Point),
		Intents: make(map[int]Intent),
	}
	ids := s.MyUnitIDs()
	units := make([]game.Unit, 0, len(ids))
	for _, id := range ids {
		u, err := s.Unit(id)
		if err != nil {
			return Plan{}, err
		}
		units = append(units, u)
	}
	spacing := p.dropoffSpacing(s)
	margin := p.endgameMargin(s, len(ids))

	var threat map[grid.Point]float64
	if s.Players == 4 && p.forecaster != nil {
		threat = p.forecaster.Forecast(s)
	}

	if err := p.mem.reconcile(s); err != nil {
		return Plan{}, err
	}
	for _, id := range ids {
		if n := p.mem.Units[id].Stuck; n > 0 {
			p.logger.Printf("turn %d: unit %d stuck for %d turns", s.Turn, id, n)
		}
	}

	cands, dens := retainCandidates(s, p.cfg.Dropoff, p.mem.Candidates, spacing)
	p.mem.Candidates = cands
	saving := len(cands) > 0 && len(ids) > p.cfg.Dropoff.MinUnits &&
		s.Turn < s.Const.MaxTurns-g.W*3/2

	cmds := make(map[int]game.Command, len(ids))
	reserve := s.MyReserve()
	converter := -1
	if reserve >= s.Const.BaseCost && saving {
		if id, ok := pickConverter(s, p.cfg.Dropoff, units, cands, dens, spacing); ok {
			converter = id
			cmds[id] = game.Command{UnitID: id, Convert: true}
			reserve -= s.Const.BaseCost
			saving = false
			p.logger.Printf("turn %d: unit %d converts to base", s.Turn, id)
		}
	}

	var movable []game.Unit
	var immovable []grid.Point
	for _, u := range units {
		if u.ID == converter {
			continue
		}
		if !s.CanMove(u) {
			cmds[u.ID] = game.Command{UnitID: u.ID, Dir: grid.Still}
			immovable = append(immovable, u.Pos)
			continue
		}
		movable = append(movable, u)
	}

	for _, u := range movable {
		um := p.mem.Units[u.ID]
		collect := s.BaseDist(u.Pos)+margin >= s.TurnsLeft()
		if collect && !p.mem.Endgame {
			p.mem.Endgame = true
			p.logger.Printf("turn %d: endgame, all units head home", s.Turn)
		}
		um.Intent = advance(um.Intent, s, u, collect, p.mem.Endgame, p.cfg.DepositCargo)
		p.mem.Units[u.ID] = um
	}

	var miners []game.Unit
	for _, u := range movable {
		if p.mem.Units[u.ID].Intent != Depositing {
			miners = append(miners, u)
		}
	}
	if len(miners) > 0 {
		k := p.cfg.GoalPoolPerUnit*len(ids) + p.cfg.GoalPoolBase
		goals := SelectGoals(s, miners, k)
		values := make([][]float64, len(goals))
		for gi, gp := range goals {
			values[gi] = make([]float64, len(miners))
			for ui, u := range miners {
				values[gi][ui] = GoalValue(s, p.cfg.Value, u, p.mem.Units[u.ID].Intent, gp)
			}
		}
		var picked []grid.Point
		for _, pr := range p.assigner.Assign(values, len(miners)) {
			u, goal := miners[pr.Unit], goals[pr.Goal]
			plan.Targets[u.ID] = goal
			um := p.mem.Units[u.ID]
			if goal == u.Pos {
				um.Intent = Mining
			} else {
				um.Intent = Approaching
				if !s.IsMyBase(goal) {
					picked = append(picked, goal)
				}
			}
			p.mem.Units[u.ID] = um
		}
		p.mem.Candidates = clusterCandidates(s, p.cfg.Dropoff, picked, p.mem.Candidates, spacing)
	}

	intents := make(map[int]Intent, len(movable))
	for _, u := range movable {
		in := p.mem.Units[u.ID].Intent
		intents[u.ID] = in
		if in == Depositing {
			plan.Targets[u.ID], _ = s.NearestBase(u.Pos)
		} else if _, ok := plan.Targets[u.ID]; !ok {
			plan.Targets[u.ID] = u.Pos
		}
	}

	byID := make(map[int]game.Unit, len(movable))
	for _, u := range movable {
		byID[u.ID] = u
	}
	order := moveOrder(s, movable, intents, plan.Targets)
	reqs := make([]MoveRequest, 0, len(order))
	for _, id := range order {
		u := byID[id]
		reqs = append(reqs, MoveRequest{
			UnitID:  id,
			Pos:     u.Pos,
			Options: p.moveOptions(s, u, plan.Targets[id], p.mem.Units[id].Stuck, threat),
		})
	}

	endgame := p.mem.Endgame
	rv := Resolver{
		Grid:     g,
		Penalty:  grid.StepCost * p.cfg.Moves.ForbiddenPenalty,
		MaxChain: p.cfg.Moves.RerouteMaxSteps,
		Shared:   func(q grid.Point) bool { return endgame && s.IsMyBase(q) },
	}
	res := rv.Resolve(reqs, immovable)
	for _, q := range reqs {
		dir, ok := res.Dirs[q.UnitID]
		if !ok {
			dir = grid.Still
		}
		cmds[q.UnitID] = game.Command{UnitID: q.UnitID, Dir: dir}
	}
	plan.Rerouted = res.Rerouted
	for _, id := range res.Failed {
		f := Failure{UnitID: id, Code: protocol.ErrRerouteFailed, Detail: fmt.Sprintf("no feasible reroute from %v", byID[id].Pos)}
		plan.Failures = append(plan.Failures, f)
		p.logger.Printf("turn %d: unit %d: %s: %s", s.Turn, id, f.Code, f.Detail)
	}

	for _, u := range units {
		um := p.mem.Units[u.ID]
		um.Prev = u.Pos
		p.mem.Units[u.ID] = um
		plan.Intents[u.ID] = um.Intent
	}

	cost := s.Const.UnitCost
	if saving {
		cost += s.Const.BaseCost
	}
	plan.Spawn = !res.Reserved(s.MyShipyard()) &&
		s.Turn <= s.Const.MaxTurns-p.stopSpawnMargin(s) &&
		reserve >= cost

	plan.Commands = make([]game.Command, 0, len(cmds))
	for _, c := range cmds {
		plan.Commands = append(plan.Commands, c)
	}
	sort.Slice(plan.Commands, func(i, j int) bool { return plan.Commands[i].UnitID < plan.Commands[j].UnitID })
	plan.Candidates = append([]Candidate(nil), p.mem.Candidates...)
	plan.Endgame = p.mem.Endgame
	plan.Saving = saving
	return plan, nil
}
