package server

import "geoquiz/internal/session"

// answerGate holds back a player socket's answer events for the round in
// play and releases them right after the game event that reveals it. Host
// sockets pass everything through.
type answerGate struct {
	host    bool
	round   int
	version int64
	open    bool
	held    []session.Event
}

func newAnswerGate(host bool, g session.Game) *answerGate {
	return &answerGate{
		host:    host,
		round:   g.CurrentQuestion,
		version: g.Version,
		open:    revealed(g.Status),
	}
}

func revealed(status session.Status) bool {
	return status == session.StatusRevealing || status == session.StatusFinished
}

// filter returns the events to relay for ev, in order.
func (a *answerGate) filter(ev session.Event) []session.Event {
	if a.host {
		return []session.Event{ev}
	}
	switch ev.Table {
	case session.TableGames:
		if ev.Game == nil || (ev.Game.Version != 0 && ev.Game.Version < a.version) {
			return []session.Event{ev}
		}
		g := ev.Game
		a.version = g.Version
		if g.CurrentQuestion != a.round {
			a.round = g.CurrentQuestion
			a.held = dropBefore(a.held, a.round)
		}
		a.open = revealed(g.Status)
		out := []session.Event{ev}
		if a.open {
			kept := a.held[:0]
			for _, h := range a.held {
				if h.Answer.QuestionID == a.round {
					out = append(out, h)
				} else {
					kept = append(kept, h)
				}
			}
			a.held = kept
		}
		return out
	case session.TableAnswers:
		if ev.Answer == nil || ev.Answer.QuestionID < a.round || (ev.Answer.QuestionID == a.round && a.open) {
			return []session.Event{ev}
		}
		a.held = append(a.held, ev)
		return nil
	}
	return []session.Event{ev}
}

func dropBefore(held []session.Event, round int) []session.Event {
	kept := held[:0]
	for _, h := range held {
		if h.Answer.QuestionID >= round {
			kept = append(kept, h)
		}
	}
	return kept
}
