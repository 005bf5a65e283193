package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"geoquiz/internal/session"
)

func TestCreateGame(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())

	resp := doRequest(t, ts, http.MethodPost, "/api/games", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	assertString(t, body["game_id"])
	assertString(t, body["host_id"])
	code, _ := body["code"].(string)
	if len(code) != session.CodeLength {
		t.Fatalf("expected %d character code, got %q", session.CodeLength, code)
	}
	if rounds := body["rounds"].(float64); rounds != 3 {
		t.Fatalf("expected default 3 rounds, got %v", rounds)
	}
}

func TestCreateGameRejectsTooManyRounds(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())

	resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]int{"rounds": 99})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	if msg := decodeBody(t, resp)["error"]; msg != "rounds must be 20 or fewer" {
		t.Fatalf("unexpected error %v", msg)
	}
}

func TestHomePage(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())

	resp := doRequest(t, ts, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestJoinValidation(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)

	cases := []struct {
		name     string
		payload  map[string]string
		status   int
		contains string
	}{
		{"missing code", map[string]string{"initials": "AB"}, http.StatusBadRequest, "join code is required"},
		{"short code", map[string]string{"code": "ABC", "initials": "AB"}, http.StatusBadRequest, "join code must be"},
		{"long initials", map[string]string{"code": g.Code, "initials": "ABCD"}, http.StatusBadRequest, "initials must be"},
		{"unknown code", map[string]string{"code": "ZZZZZ9", "initials": "AB"}, http.StatusNotFound, "game not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/api/join", tc.payload)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, resp.StatusCode)
			}
			msg, _ := decodeBody(t, resp)["error"].(string)
			if !strings.Contains(msg, tc.contains) {
				t.Fatalf("expected error containing %q, got %q", tc.contains, msg)
			}
		})
	}
}

func TestJoinNormalizesInput(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)

	resp := doRequest(t, ts, http.MethodPost, "/api/join", map[string]string{
		"code":     " " + strings.ToLower(g.Code) + " ",
		"initials": "ab",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if initials := decodeBody(t, resp)["initials"]; initials != "AB" {
		t.Fatalf("expected initials AB, got %v", initials)
	}
}

func TestJoinAfterStartConflicts(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)
	joinPlayer(t, ts, g.Code, "AB")
	hostAction(t, ts, g, "start")

	resp := doRequest(t, ts, http.MethodPost, "/api/join", map[string]string{"code": g.Code, "initials": "CD"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestHostActionsRequireHostID(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)
	joinPlayer(t, ts, g.Code, "AB")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+g.ID+"/start", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing host_id: expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+g.ID+"/start", map[string]string{"host_id": "nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong host_id: expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/games/missing/start", map[string]string{"host_id": g.HostID})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown game: expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestStartWithoutPlayersConflicts(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+g.ID+"/start", map[string]string{"host_id": g.HostID})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestGameStateHidesHostID(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)
	joinPlayer(t, ts, g.Code, "AB")

	state := fetchState(t, ts, g.ID)
	gameBody := state["game"].(map[string]any)
	if _, ok := gameBody["host_id"]; ok {
		t.Fatalf("host_id leaked in game state: %v", gameBody)
	}
	if players := state["players"].([]any); len(players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(players))
	}
	if answers := state["answers"].([]any); len(answers) != 0 {
		t.Fatalf("expected no answers before reveal, got %d", len(answers))
	}
}

func TestGameFlow(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 2)
	ab := joinPlayer(t, ts, g.Code, "AB")
	cd := joinPlayer(t, ts, g.Code, "CD")

	started := hostAction(t, ts, g, "start")
	if status := started["game"].(map[string]any)["status"]; status != "playing" {
		t.Fatalf("expected playing, got %v", status)
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+g.ID+"/question", nil)
	question := decodeBody(t, resp)
	if question["location_visible"] != false {
		t.Fatalf("location visible before reveal: %v", question)
	}
	if lat := question["question"].(map[string]any)["latitude"]; lat != float64(0) {
		t.Fatalf("expected hidden latitude, got %v", lat)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+g.ID+"/reveal", map[string]string{"host_id": g.HostID})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("reveal before answers: expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodGet, "/api/games/"+g.ID+"/answers?round=0", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("answers before reveal: expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	if resp := submitAnswer(t, ts, g.ID, ab, 0, 48.85, 2.35); resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit AB: expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	if resp := submitAnswer(t, ts, g.ID, cd, 0, -33.86, 151.2); resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit CD: expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	revealed := hostAction(t, ts, g, "reveal")
	if revealed["fresh"] != true {
		t.Fatalf("expected fresh reveal, got %v", revealed["fresh"])
	}
	if answers := revealed["answers"].([]any); len(answers) != 2 {
		t.Fatalf("expected 2 revealed answers, got %d", len(answers))
	}
	again := hostAction(t, ts, g, "reveal")
	if again["fresh"] != false {
		t.Fatalf("expected repeated reveal to be a no-op, got %v", again["fresh"])
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/games/"+g.ID+"/answers", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answers after reveal: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if answers := decodeBody(t, resp)["answers"].([]any); len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}

	advanced := hostAction(t, ts, g, "advance")
	next := advanced["game"].(map[string]any)
	if next["status"] != "playing" || next["current_question"] != float64(1) {
		t.Fatalf("expected playing round 1, got %v", next)
	}
	for _, p := range fetchState(t, ts, g.ID)["players"].([]any) {
		if p.(map[string]any)["has_answered"] != false {
			t.Fatalf("has_answered not reset: %v", p)
		}
	}

	if resp := submitAnswer(t, ts, g.ID, ab, 0, 1, 1); resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale round: expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
	submitAnswer(t, ts, g.ID, ab, 1, 10, 10)
	submitAnswer(t, ts, g.ID, cd, 1, 20, 20)
	hostAction(t, ts, g, "reveal")
	finished := hostAction(t, ts, g, "advance")
	if status := finished["game"].(map[string]any)["status"]; status != "finished" {
		t.Fatalf("expected finished, got %v", status)
	}

	resp = doRequest(t, ts, http.MethodGet, "/games/"+g.ID+"/results", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	page, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"AB", "CD", "finished"} {
		if !strings.Contains(string(page), want) {
			t.Fatalf("results page missing %q", want)
		}
	}
}

func TestSubmitTwiceCountsOnce(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)
	ab := joinPlayer(t, ts, g.Code, "AB")
	joinPlayer(t, ts, g.Code, "CD")
	hostAction(t, ts, g, "start")

	first := submitAnswer(t, ts, g.ID, ab, 0, 10, 10)
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, first.StatusCode)
	}
	score := decodeBody(t, first)["answer"].(map[string]any)["score"].(float64)

	second := submitAnswer(t, ts, g.ID, ab, 0, 10, 10)
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, second.StatusCode)
	}
	for _, p := range fetchState(t, ts, g.ID)["players"].([]any) {
		player := p.(map[string]any)
		if player["id"] == ab && player["score"].(float64) != score {
			t.Fatalf("expected score %v, got %v", score, player["score"])
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	g := createGame(t, ts, 1)
	ab := joinPlayer(t, ts, g.Code, "AB")
	hostAction(t, ts, g, "start")

	cases := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"missing latitude", map[string]any{"player_id": ab, "question_id": 0, "longitude": 1}, "latitude is required"},
		{"latitude out of range", map[string]any{"player_id": ab, "question_id": 0, "latitude": 91, "longitude": 1}, "latitude must be between -90 and 90"},
		{"longitude out of range", map[string]any{"player_id": ab, "question_id": 0, "latitude": 1, "longitude": -181}, "longitude must be between -180 and 180"},
		{"missing round", map[string]any{"player_id": ab, "latitude": 1, "longitude": 1}, "question_id is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/api/games/"+g.ID+"/answers", tc.payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
			}
			if msg := decodeBody(t, resp)["error"]; msg != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, msg)
			}
		})
	}

	resp := submitAnswer(t, ts, g.ID, "ghost", 0, 1, 1)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown player: expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestResultsViewRedirectsMissingGame(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())

	resp := doRequest(t, ts, http.MethodGet, "/games/missing/results", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, resp.StatusCode)
	}
}

type failingCheck struct{}

func (failingCheck) Check(context.Context) error {
	return errors.New("down")
}

func TestHealth(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())
	resp := doRequest(t, ts, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["store"] != "ok" {
		t.Fatalf("expected store ok, got %v", body)
	}

	opts := manualOptions()
	opts.Checks = map[string]Checker{"feed": failingCheck{}}
	_, ts = newTestApp(t, opts)
	resp = doRequest(t, ts, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	_, ts := newTestApp(t, manualOptions())

	resp := doRequest(t, ts, http.MethodGet, "/openapi.json", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	paths, ok := decodeBody(t, resp)["paths"].(map[string]any)
	if !ok {
		t.Fatal("expected paths in document")
	}
	for _, path := range []string{"/api/join", "/api/games/{id}/answers", "/api/games/{id}/reveal"} {
		if _, ok := paths[path]; !ok {
			t.Fatalf("document missing %s", path)
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{session.ErrNotHost, http.StatusForbidden},
		{fmt.Errorf("%w: bad", session.ErrValidation), http.StatusBadRequest},
		{session.ErrNotFound, http.StatusNotFound},
		{session.ErrAlreadyAnswered, http.StatusConflict},
		{session.ErrCodeTaken, http.StatusConflict},
		{session.ErrSubscriptionClosed, http.StatusBadGateway},
		{session.ErrPartialWrite, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
