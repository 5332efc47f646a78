package observer

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"prospector.ai/internal/game"
	"prospector.ai/internal/observerproto"
	"prospector.ai/internal/planner"
)

// Hub fans turn frames out to connected observers. Publish never blocks
// the caller: a client whose buffer is full misses that frame.
type Hub struct {
	session string

	mu         sync.Mutex
	clients    map[uint64]chan []byte
	latest     []byte
	latestTurn int
	nextID     uint64

	dropped atomic.Uint64
}

func NewHub(session string) *Hub {
	return &Hub{session: session, clients: make(map[uint64]chan []byte), latestTurn: -1}
}

func (h *Hub) Publish(msg observerproto.TurnMsg) {
	msg.Type = observerproto.TypeTurn
	msg.ProtocolVersion = observerproto.Version
	msg.Session = h.session
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = b
	h.latestTurn = msg.Turn
	for _, ch := range h.clients {
		select {
		case ch <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// Latest returns the last published frame.
func (h *Hub) Latest() ([]byte, int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.latestTurn, h.latest != nil
}

func (h *Hub) subscribe(buf int) (uint64, chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan []byte, buf)
	h.clients[h.nextID] = ch
	return h.nextID, ch
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *Hub) Health() observerproto.HealthResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	return observerproto.HealthResponse{
		Status:          "ok",
		ProtocolVersion: observerproto.Version,
		Session:         h.session,
		Turn:            h.latestTurn,
		Clients:         len(h.clients),
		Dropped:         h.dropped.Load(),
	}
}

// BuildTurn renders a planned turn as an observer frame.
func BuildTurn(s *game.State, plan planner.Plan, durationMs float64) observerproto.TurnMsg {
	msg := observerproto.TurnMsg{
		Turn:       plan.Turn,
		Width:      s.Grid.W,
		Height:     s.Grid.H,
		Reserve:    s.MyReserve(),
		Spawn:      plan.Spawn,
		Endgame:    plan.Endgame,
		Saving:     plan.Saving,
		DurationMs: durationMs,
	}
	ids := make([]int, 0, len(s.Units))
	for id := range s.Units {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		u := s.Units[id]
		us := observerproto.UnitState{ID: u.ID, Owner: u.Owner, X: u.Pos.X, Y: u.Pos.Y, Cargo: u.Cargo}
		if in, ok := plan.Intents[id]; ok {
			us.Intent = in.String()
		}
		if t, ok := plan.Targets[id]; ok {
			us.Target = &observerproto.Cell{X: t.X, Y: t.Y}
		}
		msg.Units = append(msg.Units, us)
	}
	for _, b := range s.MyBases {
		msg.Bases = append(msg.Bases, observerproto.Cell{X: b.X, Y: b.Y})
	}
	enemy := make([]int, 0, len(s.EnemyBases))
	for idx := range s.EnemyBases {
		enemy = append(enemy, idx)
	}
	sort.Ints(enemy)
	for _, idx := range enemy {
		p := s.Grid.PointAt(idx)
		msg.EnemyBases = append(msg.EnemyBases, observerproto.Cell{X: p.X, Y: p.Y})
	}
	for _, c := range plan.Commands {
		op := c.Dir.String()
		if c.Convert {
			op = "convert"
		}
		msg.Orders = append(msg.Orders, observerproto.Order{UnitID: c.UnitID, Op: op})
	}
	for _, f := range plan.Failures {
		msg.Failures = append(msg.Failures, observerproto.FailureState{UnitID: f.UnitID, Code: f.Code, Detail: f.Detail})
	}
	for _, c := range plan.Candidates {
		msg.Candidates = append(msg.Candidates, observerproto.Cell{X: c.Center.X, Y: c.Center.Y})
	}
	return msg
}
