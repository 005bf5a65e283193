package server

import (
	"errors"
	"net/http"

	"geoquiz/internal/session"
	"geoquiz/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleHome(c *gin.Context) {
	templ.Handler(web.Home()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleResultsView(c *gin.Context) {
	gameID := c.Param("id")
	state, err := s.gameState(c.Request.Context(), gameID)
	if errors.Is(err, session.ErrNotFound) {
		s.log.Debug("results view missing game", "game_id", gameID)
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	rows := make([]web.ResultRow, 0, len(state.Standings))
	for _, st := range state.Standings {
		rows = append(rows, web.ResultRow{Rank: st.Rank, Initials: st.Initials, Score: st.Score})
	}
	templ.Handler(web.Results(web.ResultsData{
		GameID:     state.Game.ID,
		Code:       state.Game.Code,
		Status:     string(state.Game.Status),
		Round:      state.Game.CurrentQuestion,
		RoundCount: state.Game.RoundCount(),
		CreatedAt:  state.Game.CreatedAt,
		Rows:       rows,
	})).ServeHTTP(c.Writer, c.Request)
}
