package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geoquiz/internal/session"
)

func newGame(t *testing.T, s *Store) session.Game {
	t.Helper()
	g, err := s.CreateGame(context.Background(), session.Game{Code: "ABC123", HostID: "host-secret", QuestionIDs: []int{1, 2}})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return g
}

func TestCreateGameRejectsLiveCode(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGame(t, s)
	if g.Status != session.StatusWaiting || g.Version != 1 {
		t.Fatalf("new game = %+v", g)
	}
	if _, err := s.CreateGame(ctx, session.Game{Code: "ABC123"}); !errors.Is(err, session.ErrCodeTaken) {
		t.Fatalf("duplicate code err = %v, want ErrCodeTaken", err)
	}

	if _, err := s.UpdateGame(ctx, g.ID, session.GameUpdate{Status: session.Ptr(session.StatusFinished)}, nil); err != nil {
		t.Fatalf("UpdateGame: %v", err)
	}
	if _, err := s.FindGameByCode(ctx, "ABC123"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("finished game found by code: %v", err)
	}
	if _, err := s.CreateGame(ctx, session.Game{Code: "ABC123"}); err != nil {
		t.Fatalf("code of finished game not reusable: %v", err)
	}
}

func TestUpdateGameExpectedStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGame(t, s)

	_, err := s.UpdateGame(ctx, g.ID, session.GameUpdate{Status: session.Ptr(session.StatusRevealing)}, session.Ptr(session.StatusPlaying))
	if !errors.Is(err, session.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	got, _ := s.GetGame(ctx, g.ID)
	if got.Status != session.StatusWaiting || got.Version != 1 {
		t.Fatalf("guarded update changed game: %+v", got)
	}

	got, err = s.UpdateGame(ctx, g.ID, session.GameUpdate{Status: session.Ptr(session.StatusPlaying)}, session.Ptr(session.StatusWaiting))
	if err != nil {
		t.Fatalf("UpdateGame: %v", err)
	}
	if got.Status != session.StatusPlaying || got.Version != 2 {
		t.Fatalf("updated game = %+v", got)
	}
}

func TestUpdatePlayerConditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGame(t, s)
	p, err := s.InsertPlayer(ctx, session.Player{GameID: g.ID, Initials: "AB"})
	if err != nil {
		t.Fatalf("InsertPlayer: %v", err)
	}

	upd := session.PlayerUpdate{AddScore: 300, HasAnswered: session.Ptr(true), WhenAnswered: session.Ptr(false)}
	p, err = s.UpdatePlayer(ctx, p.ID, upd)
	if err != nil {
		t.Fatalf("UpdatePlayer: %v", err)
	}
	if p.Score != 300 || !p.HasAnswered {
		t.Fatalf("player = %+v", p)
	}
	if _, err := s.UpdatePlayer(ctx, p.ID, upd); !errors.Is(err, session.ErrConflict) {
		t.Fatalf("second update err = %v, want ErrConflict", err)
	}

	if err := s.ResetAnswered(ctx, g.ID); err != nil {
		t.Fatalf("ResetAnswered: %v", err)
	}
	players, _ := s.ListPlayers(ctx, g.ID)
	if len(players) != 1 || players[0].HasAnswered || players[0].Score != 300 {
		t.Fatalf("players after reset = %+v", players)
	}
}

func TestInsertAnswerUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGame(t, s)
	a := session.Answer{GameID: g.ID, PlayerID: "p1", QuestionID: 0, Score: 10}
	first, err := s.InsertAnswer(ctx, a)
	if err != nil {
		t.Fatalf("InsertAnswer: %v", err)
	}
	if _, err := s.InsertAnswer(ctx, a); !errors.Is(err, session.ErrAnswerExists) {
		t.Fatalf("duplicate err = %v, want ErrAnswerExists", err)
	}
	if _, err := s.InsertAnswer(ctx, session.Answer{GameID: g.ID, PlayerID: "p1", QuestionID: 1}); err != nil {
		t.Fatalf("next round answer: %v", err)
	}

	found, err := s.FindAnswer(ctx, g.ID, "p1", 0)
	if err != nil || found.ID != first.ID {
		t.Fatalf("FindAnswer = %+v, %v", found, err)
	}
	round0, _ := s.ListAnswers(ctx, g.ID, 0)
	if len(round0) != 1 {
		t.Fatalf("round 0 answers = %d, want 1", len(round0))
	}
}

func TestSubscribeSeesWrites(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := newGame(t, s)

	sub, err := s.Subscribe(ctx, g.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := s.InsertPlayer(ctx, session.Player{GameID: g.ID, Initials: "XY"}); err != nil {
		t.Fatalf("InsertPlayer: %v", err)
	}
	select {
	case ev := <-sub.Events():
		if ev.Table != session.TablePlayers || ev.Type != session.EventInsert || ev.Player.Initials != "XY" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	if _, err := s.UpdateGame(ctx, g.ID, session.GameUpdate{Status: session.Ptr(session.StatusPlaying)}, nil); err != nil {
		t.Fatalf("UpdateGame: %v", err)
	}
	ev := <-sub.Events()
	if ev.Game == nil || ev.Game.HostID != "" {
		t.Fatalf("game event leaks host id or is empty: %+v", ev)
	}
}

func TestConcurrentPlayerWritesArriveInWriteOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	g := newGame(t, s)
	p, err := s.InsertPlayer(ctx, session.Player{GameID: g.ID, Initials: "AB"})
	if err != nil {
		t.Fatalf("InsertPlayer: %v", err)
	}
	sub, err := s.Subscribe(ctx, g.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	const writes = 25
	var wg sync.WaitGroup
	for i := 0; i < writes; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.UpdatePlayer(ctx, p.ID, session.PlayerUpdate{AddScore: 1, HasAnswered: session.Ptr(true)})
		}()
		go func() {
			defer wg.Done()
			_ = s.ResetAnswered(ctx, g.ID)
		}()
	}
	wg.Wait()

	var last session.Player
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscription ended: %v", sub.Err())
			}
			if ev.Player == nil {
				continue
			}
			if ev.Player.Score < last.Score {
				t.Fatalf("score went back from %d to %d", last.Score, ev.Player.Score)
			}
			last = *ev.Player
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}

	players, err := s.ListPlayers(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if last != players[0] {
		t.Fatalf("last event %+v, stored %+v", last, players[0])
	}
	if last.Score != writes {
		t.Fatalf("score = %d, want %d", last.Score, writes)
	}
}
