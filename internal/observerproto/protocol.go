package observerproto

// Version is the observer protocol version (separate from the engine line protocol).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTurn      = "TURN"
)

// Client -> Server. Optional keepalive; a mismatched version closes the stream.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HTTP response for GET /healthz.
type HealthResponse struct {
	Status          string `json:"status"`
	ProtocolVersion string `json:"protocol_version"`
	Session         string `json:"session"`
	Turn            int    `json:"turn"`
	Clients         int    `json:"clients"`
	Dropped         uint64 `json:"dropped"`
}

// Server -> Client. Sent after every planned turn.
type TurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Session         string `json:"session"`
	Turn            int    `json:"turn"`

	Width   int `json:"width"`
	Height  int `json:"height"`
	Reserve int `json:"reserve"`

	Units      []UnitState    `json:"units"`
	Bases      []Cell         `json:"bases"`
	EnemyBases []Cell         `json:"enemy_bases,omitempty"`
	Spawn      bool           `json:"spawn"`
	Orders     []Order        `json:"orders"`
	Failures   []FailureState `json:"failures,omitempty"`
	Candidates []Cell         `json:"candidates,omitempty"`
	Endgame    bool           `json:"endgame,omitempty"`
	Saving     bool           `json:"saving,omitempty"`
	DurationMs float64        `json:"duration_ms"`
}

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type UnitState struct {
	ID     int    `json:"id"`
	Owner  int    `json:"owner"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Cargo  int    `json:"cargo"`
	Intent string `json:"intent,omitempty"`
	Target *Cell  `json:"target,omitempty"`
}

// Order is one unit command; Op is "convert" or a direction letter.
type Order struct {
	UnitID int    `json:"unit_id"`
	Op     string `json:"op"`
}

type FailureState struct {
	UnitID int    `json:"unit_id"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}
