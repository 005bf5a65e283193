package game

import (
	"fmt"

	"geoquiz/internal/session"
)

// transitions lists the statuses reachable from each status. finished is
// terminal.
var transitions = map[session.Status][]session.Status{
	session.StatusWaiting:   {session.StatusPlaying},
	session.StatusPlaying:   {session.StatusRevealing},
	session.StatusRevealing: {session.StatusPlaying, session.StatusFinished},
	session.StatusFinished:  nil,
}

func checkTransition(from, to session.Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", session.ErrInvalidTransition, from, to)
}
