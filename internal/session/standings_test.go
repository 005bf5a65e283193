package session

import "testing"

func TestStandings(t *testing.T) {
	players := []Player{
		{ID: "p3", Initials: "CC", Score: 500},
		{ID: "p1", Initials: "AA", Score: 1200},
		{ID: "p2", Initials: "BB", Score: 500},
		{ID: "p4", Initials: "DD", Score: 0},
	}
	got := Standings(players)
	want := []Standing{
		{Rank: 1, PlayerID: "p1", Initials: "AA", Score: 1200},
		{Rank: 2, PlayerID: "p2", Initials: "BB", Score: 500},
		{Rank: 2, PlayerID: "p3", Initials: "CC", Score: 500},
		{Rank: 4, PlayerID: "p4", Initials: "DD", Score: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d standings, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("standing %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if players[0].ID != "p3" {
		t.Fatal("Standings must not reorder its input")
	}
}

func TestAllAnswered(t *testing.T) {
	if AllAnswered(nil) {
		t.Fatal("no players must not count as all answered")
	}
	players := []Player{{ID: "a", HasAnswered: true}, {ID: "b"}}
	if AllAnswered(players) {
		t.Fatal("expected false with one player pending")
	}
	players[1].HasAnswered = true
	if !AllAnswered(players) {
		t.Fatal("expected true once everyone answered")
	}
}
