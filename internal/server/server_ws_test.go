package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"geoquiz/internal/host"
	"geoquiz/internal/reveal"

	"github.com/gorilla/websocket"
)

func dialGame(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func gameWSURL(tsURL, gameID string) string {
	return "ws" + strings.TrimPrefix(tsURL, "http") + "/ws/games/" + gameID
}

func TestWebsocketSnapshotThenEvents(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)

	conn := dialGame(t, gameWSURL(ts.URL, g.ID))
	first := readWSMessage(t, conn, 5*time.Second)
	if first["type"] != "snapshot" {
		t.Fatalf("expected first message snapshot, got %v", first["type"])
	}
	if _, ok := first["game"].(map[string]any)["host_id"]; ok {
		t.Fatal("host_id leaked in snapshot")
	}

	joinPlayer(t, ts, g.Code, "AB")

	msg := readWSMessage(t, conn, 5*time.Second)
	if msg["type"] != "event" {
		t.Fatalf("expected event, got %v", msg["type"])
	}
	ev := msg["event"].(map[string]any)
	if ev["table"] != "players" || ev["event_type"] != "INSERT" {
		t.Fatalf("expected player insert, got %v", ev)
	}
	if initials := ev["player"].(map[string]any)["initials"]; initials != "AB" {
		t.Fatalf("expected initials AB, got %v", initials)
	}
}

func TestWebsocketHostRequiresSecret(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)

	_, resp, err := websocket.DefaultDialer.Dial(gameWSURL(ts.URL, g.ID)+"?role=host&host_id=wrong", nil)
	if err == nil {
		t.Fatal("expected host dial with wrong secret to fail")
	}
	if resp == nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())

	_, resp, err := websocket.DefaultDialer.Dial(gameWSURL(ts.URL, "missing"), nil)
	if err == nil {
		t.Fatal("expected dial for unknown game to fail")
	}
	if resp == nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestWebsocketHostReceivesRevealSequence(t *testing.T) {
	opts := Options{Host: host.Options{AutoReveal: true, Timing: reveal.Timing{TopN: 3}}}
	_, ts := newTestApp(t, opts)
	g := createGame(t, ts, 1)

	hostConn := dialGame(t, gameWSURL(ts.URL, g.ID)+"?role=host&host_id="+g.HostID)
	playerConn := dialGame(t, gameWSURL(ts.URL, g.ID))
	if msg := readWSMessage(t, hostConn, 5*time.Second); msg["type"] != "snapshot" {
		t.Fatalf("expected host snapshot, got %v", msg["type"])
	}
	if msg := readWSMessage(t, playerConn, 5*time.Second); msg["type"] != "snapshot" {
		t.Fatalf("expected player snapshot, got %v", msg["type"])
	}

	ab := joinPlayer(t, ts, g.Code, "AB")
	hostAction(t, ts, g, "start")
	if resp := submitAnswer(t, ts, g.ID, ab, 0, 40.7, -74.0); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	var ops []string
	deadline := time.Now().Add(5 * time.Second)
	for len(ops) == 0 || ops[len(ops)-1] != "fit" {
		msg := readWSMessage(t, hostConn, time.Until(deadline))
		if msg["type"] != "map" {
			continue
		}
		op := msg["op"].(string)
		ops = append(ops, op)
		if op == "marker" && len(ops) == 4 {
			marker := msg["marker"].(map[string]any)
			if marker["label"] != "AB" || marker["rank"] != float64(1) {
				t.Fatalf("unexpected answer marker %v", marker)
			}
		}
	}
	want := []string{"center", "marker", "center", "marker", "fit"}
	if strings.Join(ops, ",") != strings.Join(want, ",") {
		t.Fatalf("expected map ops %v, got %v", want, ops)
	}

	for {
		msg, ok := tryReadWSMessage(t, playerConn, 300*time.Millisecond)
		if !ok {
			break
		}
		if msg["type"] == "map" {
			t.Fatal("player connection received a map command")
		}
	}
}

// nextEvent reads until an event message arrives and returns its payload.
func nextEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	for {
		msg := readWSMessage(t, conn, 5*time.Second)
		if msg["type"] == "event" {
			return msg["event"].(map[string]any)
		}
	}
}

func TestWebsocketPlayerSeesAnswersOnlyAfterReveal(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)
	ab := joinPlayer(t, ts, g.Code, "AB")
	cd := joinPlayer(t, ts, g.Code, "CD")
	hostAction(t, ts, g, "start")

	conn := dialGame(t, gameWSURL(ts.URL, g.ID))
	if msg := readWSMessage(t, conn, 5*time.Second); msg["type"] != "snapshot" {
		t.Fatalf("expected snapshot, got %v", msg["type"])
	}

	for _, player := range []string{ab, cd} {
		if resp := submitAnswer(t, ts, g.ID, player, 0, 10, 10); resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
		}
		for {
			ev := nextEvent(t, conn)
			if ev["table"] == "answers" {
				t.Fatal("answer relayed to a player before the reveal")
			}
			if ev["table"] == "players" && ev["player"].(map[string]any)["id"] == player {
				break
			}
		}
	}

	hostAction(t, ts, g, "reveal")
	for {
		ev := nextEvent(t, conn)
		if ev["table"] == "answers" {
			t.Fatal("answer relayed before the revealing game update")
		}
		if ev["table"] == "games" && ev["game"].(map[string]any)["status"] == "revealing" {
			break
		}
	}
	seen := map[any]bool{}
	for len(seen) < 2 {
		ev := nextEvent(t, conn)
		if ev["table"] != "answers" {
			t.Fatalf("expected held answers after reveal, got %v", ev["table"])
		}
		seen[ev["answer"].(map[string]any)["player_id"]] = true
	}
	if !seen[ab] || !seen[cd] {
		t.Fatalf("expected answers from both players, got %v", seen)
	}
}

func readWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return msg
}

// tryReadWSMessage returns false when nothing arrives within timeout.
func tryReadWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) (map[string]any, bool) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		netErr, ok := err.(net.Error)
		if !ok || !netErr.Timeout() {
			t.Fatalf("expected websocket timeout, got %v", err)
		}
		return nil, false
	}
	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return msg, true
}
