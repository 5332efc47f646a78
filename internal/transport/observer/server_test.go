package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/observerproto"
	"prospector.ai/internal/planner"
)

func testState(t *testing.T) *game.State {
	t.Helper()
	s, err := game.NewState(game.Init{
		Const:   game.Constants{MaxTurns: 400, UnitCost: 1000, BaseCost: 4000},
		Players: 2,
		Me:      0,
		Shipyards: []game.Base{
			{Owner: 0, ID: -1, Pos: grid.Point{X: 1, Y: 1}},
			{Owner: 1, ID: -1, Pos: grid.Point{X: 6, Y: 6}},
		},
		Width:  8,
		Height: 8,
		Cells:  make([]int, 64),
	})
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	err = s.ApplyFrame(game.Frame{Turn: 3, Players: []game.PlayerFrame{
		{ID: 0, Reserve: 4000, Units: []game.Unit{{ID: 4, Pos: grid.Point{X: 2, Y: 1}, Cargo: 10}}},
		{ID: 1, Reserve: 1000, Units: []game.Unit{{ID: 1, Pos: grid.Point{X: 6, Y: 5}}}},
	}})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return s
}

func TestBuildTurn(t *testing.T) {
	s := testState(t)
	plan := planner.Plan{
		Turn:     3,
		Spawn:    true,
		Commands: []game.Command{{UnitID: 4, Dir: grid.East}},
		Targets:  map[int]grid.Point{4: {X: 3, Y: 1}},
		Intents:  map[int]planner.Intent{4: planner.Approaching},
		Failures: []planner.Failure{{UnitID: 4, Code: "E_REROUTE_FAILED"}},
	}
	msg := BuildTurn(s, plan, 2.5)
	if msg.Turn != 3 || msg.Reserve != 4000 || !msg.Spawn || msg.Width != 8 {
		t.Fatalf("header fields: %+v", msg)
	}
	if len(msg.Units) != 2 || msg.Units[0].ID != 1 || msg.Units[1].ID != 4 {
		t.Fatalf("units should be id ordered: %+v", msg.Units)
	}
	if u := msg.Units[1]; u.Intent != "approaching" || u.Target == nil || u.Target.X != 3 {
		t.Fatalf("own unit: %+v", u)
	}
	if len(msg.Orders) != 1 || msg.Orders[0].Op != "e" || len(msg.Failures) != 1 {
		t.Fatalf("orders: %+v failures: %+v", msg.Orders, msg.Failures)
	}
	if len(msg.EnemyBases) != 1 || msg.EnemyBases[0] != (observerproto.Cell{X: 6, Y: 6}) {
		t.Fatalf("enemy bases: %+v", msg.EnemyBases)
	}
}

func TestHubPublishDoesNotBlock(t *testing.T) {
	h := NewHub("s1")
	id, ch := h.subscribe(1)
	defer h.unsubscribe(id)
	for turn := 0; turn < 3; turn++ {
		h.Publish(observerproto.TurnMsg{Turn: turn})
	}
	if len(ch) != 1 {
		t.Fatalf("buffered=%d want 1", len(ch))
	}
	hr := h.Health()
	if hr.Dropped != 2 || hr.Clients != 1 || hr.Turn != 2 {
		t.Fatalf("health: %+v", hr)
	}
}

func TestRouterLatestAndStream(t *testing.T) {
	hub := NewHub("s1")
	srv := httptest.NewServer(NewServer(hub, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/turn/latest")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("latest before publish: %d", resp.StatusCode)
	}

	hub.Publish(BuildTurn(testState(t), planner.Plan{Turn: 3}, 1))

	resp, err = http.Get(srv.URL + "/v1/turn/latest")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var latest observerproto.TurnMsg
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if latest.Type != observerproto.TypeTurn || latest.Session != "s1" || latest.Turn != 3 {
		t.Fatalf("latest: %+v", latest)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() observerproto.TurnMsg {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var m observerproto.TurnMsg
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}
	if m := read(); m.Turn != 3 {
		t.Fatalf("replayed frame turn=%d", m.Turn)
	}
	hub.Publish(observerproto.TurnMsg{Turn: 4})
	if m := read(); m.Turn != 4 || m.Session != "s1" {
		t.Fatalf("streamed frame: %+v", m)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	var hr observerproto.HealthResponse
	_ = json.NewDecoder(resp.Body).Decode(&hr)
	resp.Body.Close()
	if hr.Status != "ok" || hr.Clients != 1 || hr.Turn != 4 {
		t.Fatalf("health: %+v", hr)
	}
}
