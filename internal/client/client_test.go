package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"geoquiz/internal/game"
	"geoquiz/internal/host"
	"geoquiz/internal/memstore"
	"geoquiz/internal/mirror"
	"geoquiz/internal/questions"
	"geoquiz/internal/reveal"
	"geoquiz/internal/server"
	"geoquiz/internal/session"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, autoReveal bool) *Client {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	machine := game.NewMachine(memstore.New(), questions.Default(), discard(), 2)
	ctx, cancel := context.WithCancel(context.Background())
	srv := server.New(ctx, machine, discard(), server.Options{
		Host: host.Options{AutoReveal: autoReveal, Timing: reveal.Timing{TopN: 3}},
	})
	ts := &httptest.Server{Listener: listener, Config: &http.Server{Handler: srv.Handler()}}
	ts.Start()
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		cancel()
	})
	return New(ts.URL, nil)
}

func TestClientGameFlow(t *testing.T) {
	c := newTestClient(t, false)
	ctx := context.Background()

	created, err := c.CreateGame(ctx, 1)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if created.Rounds != 1 || created.HostID == "" {
		t.Fatalf("unexpected create response %+v", created)
	}
	joined, err := c.Join(ctx, created.Code, "ab")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if joined.Initials != "AB" || joined.GameID != created.GameID {
		t.Fatalf("unexpected join response %+v", joined)
	}

	if _, err := c.Start(ctx, created.GameID, "not-the-host"); !errors.Is(err, session.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	g, err := c.Start(ctx, created.GameID, created.HostID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if g.Status != session.StatusPlaying || g.HostID != "" {
		t.Fatalf("unexpected started game %+v", g)
	}

	view, err := c.CurrentQuestion(ctx, created.GameID)
	if err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}
	if view.LocationVisible {
		t.Fatal("location visible while playing")
	}

	answer, err := c.Submit(ctx, game.Submission{
		PlayerID:   joined.PlayerID,
		GameID:     created.GameID,
		QuestionID: 0,
		Latitude:   10,
		Longitude:  20,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if answer.PlayerID != joined.PlayerID {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if _, err := c.ListAnswers(ctx, created.GameID, 0); !errors.Is(err, session.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition before reveal, got %v", err)
	}

	g, answers, err := c.Reveal(ctx, created.GameID, created.HostID)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if g.Status != session.StatusRevealing || len(answers) != 1 {
		t.Fatalf("unexpected reveal %+v %v", g, answers)
	}
	listed, err := c.ListAnswers(ctx, created.GameID, 0)
	if err != nil || len(listed) != 1 {
		t.Fatalf("ListAnswers = %v, %v", listed, err)
	}

	g, err = c.Advance(ctx, created.GameID, created.HostID)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if g.Status != session.StatusFinished {
		t.Fatalf("expected finished, got %s", g.Status)
	}
}

func TestClientErrorClasses(t *testing.T) {
	c := newTestClient(t, false)
	ctx := context.Background()

	if _, err := c.Join(ctx, "ABCDEF", "x"); !errors.Is(err, session.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := c.Join(ctx, "ZZZZZ9", "AB"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.GetGame(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Subscribe(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from subscribe, got %v", err)
	}

	down := New("http://127.0.0.1:1", nil)
	if _, err := down.GetGame(ctx, "x"); !errors.Is(err, session.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestMirrorFollowsRemoteGame(t *testing.T) {
	c := newTestClient(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := c.CreateGame(ctx, 1)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	changed := make(chan mirror.Snapshot, 64)
	m := mirror.New(c, created.GameID, discard(), mirror.Options{
		OnChange: func(s mirror.Snapshot) {
			select {
			case changed <- s:
			default:
			}
		},
	})
	go func() { _ = m.Run(ctx) }()

	waitFor(t, changed, func(s mirror.Snapshot) bool { return s.Loaded && s.Connected })
	if _, err := c.Join(ctx, created.Code, "AB"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	waitFor(t, changed, func(s mirror.Snapshot) bool { return len(s.Players) == 1 })
	if _, err := c.Start(ctx, created.GameID, created.HostID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitFor(t, changed, func(s mirror.Snapshot) bool { return s.Game.Status == session.StatusPlaying })
	if snap.Game.HostID != "" {
		t.Fatal("host id reached a remote mirror")
	}
}

func TestSubscribeHostReceivesMapCommands(t *testing.T) {
	c := newTestClient(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := c.CreateGame(ctx, 1)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	var mu sync.Mutex
	var ops []string
	fit := make(chan struct{})
	sub, err := c.SubscribeHost(ctx, created.GameID, created.HostID, func(cmd MapCommand) {
		mu.Lock()
		ops = append(ops, cmd.Op)
		mu.Unlock()
		if cmd.Op == "fit" {
			close(fit)
		}
	})
	if err != nil {
		t.Fatalf("SubscribeHost: %v", err)
	}
	defer sub.Close()

	joined, err := c.Join(ctx, created.Code, "AB")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := c.Start(ctx, created.GameID, created.HostID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.Submit(ctx, game.Submission{PlayerID: joined.PlayerID, GameID: created.GameID, Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-fit:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the reveal sequence")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ops) != 5 {
		t.Fatalf("expected 5 map commands, got %v", ops)
	}
}

func waitFor(t *testing.T, ch <-chan mirror.Snapshot, ok func(mirror.Snapshot) bool) mirror.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-ch:
			if ok(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for mirror state")
			return mirror.Snapshot{}
		}
	}
}
