package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"geoquiz/internal/game"
	"geoquiz/internal/host"
	"geoquiz/internal/memstore"
	"geoquiz/internal/questions"
	"geoquiz/internal/reveal"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func manualOptions() Options {
	return Options{Host: host.Options{Timing: reveal.Timing{TopN: 3}}}
}

func newTestApp(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	store := memstore.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	machine := game.NewMachine(store, questions.Default(), log, 3)
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Checks == nil {
		opts.Checks = map[string]Checker{"store": store}
	}
	srv := New(ctx, machine, log, opts)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		cancel()
	})
	return srv, ts
}

type createdGame struct {
	ID     string
	Code   string
	HostID string
}

func createGame(t *testing.T, ts *httptest.Server, rounds int) createdGame {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]int{"rounds": rounds})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return createdGame{
		ID:     body["game_id"].(string),
		Code:   body["code"].(string),
		HostID: body["host_id"].(string),
	}
}

func joinPlayer(t *testing.T, ts *httptest.Server, code, initials string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/join", map[string]string{
		"code":     code,
		"initials": initials,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["player_id"].(string)
}

func hostAction(t *testing.T, ts *httptest.Server, g createdGame, action string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+g.ID+"/"+action, map[string]string{"host_id": g.HostID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s: expected status %d, got %d", action, http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func submitAnswer(t *testing.T, ts *httptest.Server, gameID, playerID string, round int, lat, lon float64) *http.Response {
	t.Helper()
	return doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/answers", map[string]any{
		"player_id":   playerID,
		"question_id": round,
		"latitude":    lat,
		"longitude":   lon,
	})
}

func fetchState(t *testing.T, ts *httptest.Server, gameID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+gameID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func assertString(t *testing.T, value any) {
	t.Helper()
	if _, ok := value.(string); !ok {
		t.Fatalf("expected string, got %T", value)
	}
}
