package server

import (
	"errors"
	"net/http"

	"geoquiz/internal/game"
	"geoquiz/internal/session"

	"github.com/gin-gonic/gin"
)

var joinMessages = bindMessages{
	"Code": {
		"required": "join code is required",
		"joincode": "join code must be 6 letters or digits",
	},
	"Initials": {
		"required": "initials are required",
		"initials": "initials must be 2-3 letters or digits",
	},
}

var answerMessages = bindMessages{
	"PlayerID":   {"required": "player_id is required"},
	"QuestionID": {"required": "question_id is required", "min": "question_id must not be negative"},
	"Latitude":   {"required": "latitude is required", "latitude": "latitude must be between -90 and 90"},
	"Longitude":  {"required": "longitude is required", "longitude": "longitude must be between -180 and 180"},
}

var hostMessages = bindMessages{
	"HostID": {"required": "host_id is required"},
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req CreateGameRequest
	if !bindOptionalJSON(c, &req, bindMessages{
		"Rounds": {"min": "rounds must be at least 1", "max": "rounds must be 20 or fewer"},
	}, "") {
		return
	}
	g, err := s.machine.CreateGame(c.Request.Context(), req.Rounds)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.hosts.Ensure(g.ID)
	c.JSON(http.StatusCreated, CreateGameResponse{
		GameID: g.ID,
		Code:   g.Code,
		HostID: g.HostID,
		Rounds: g.RoundCount(),
	})
}

func (s *Server) handleJoin(c *gin.Context) {
	var req JoinRequest
	if !bindJSON(c, &req, joinMessages, "") {
		return
	}
	g, p, err := s.machine.Join(c.Request.Context(), req.Code, req.Initials)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, JoinResponse{
		GameID:   g.ID,
		Code:     g.Code,
		PlayerID: p.ID,
		Initials: p.Initials,
	})
}

func (s *Server) handleGetGame(c *gin.Context) {
	state, err := s.gameState(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleQuestion(c *gin.Context) {
	view, err := s.machine.CurrentQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleListAnswers(c *gin.Context) {
	var query AnswersQuery
	if !bindQuery(c, &query, bindMessages{"Round": {"min": "round must not be negative"}}, "round must be a number") {
		return
	}
	ctx := c.Request.Context()
	round := 0
	if query.Round != nil {
		round = *query.Round
	} else {
		g, err := s.machine.Store().GetGame(ctx, c.Param("id"))
		if err != nil {
			s.fail(c, err)
			return
		}
		round = g.CurrentQuestion
	}
	answers, err := s.machine.RoundAnswers(ctx, c.Param("id"), round)
	if err != nil {
		s.fail(c, err)
		return
	}
	if answers == nil {
		answers = []session.Answer{}
	}
	c.JSON(http.StatusOK, AnswersResponse{Round: round, Answers: answers})
}

func (s *Server) handleSubmitAnswer(c *gin.Context) {
	var req AnswerRequest
	if !bindJSON(c, &req, answerMessages, "") {
		return
	}
	a, err := s.machine.Submit(c.Request.Context(), game.Submission{
		PlayerID:   req.PlayerID,
		GameID:     c.Param("id"),
		QuestionID: *req.QuestionID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, AnswerResponse{Answer: a})
}

func (s *Server) handleStart(c *gin.Context) {
	var req HostRequest
	if !bindJSON(c, &req, hostMessages, "") || !s.authorizeHost(c, req.HostID) {
		return
	}
	g, err := s.hosts.Ensure(c.Param("id")).Start(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{Game: g.Public()})
}

func (s *Server) handleReveal(c *gin.Context) {
	var req HostRequest
	if !bindJSON(c, &req, hostMessages, "") || !s.authorizeHost(c, req.HostID) {
		return
	}
	r, err := s.hosts.Ensure(c.Param("id")).Reveal(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	answers := r.Answers
	if answers == nil {
		answers = []session.Answer{}
	}
	c.JSON(http.StatusOK, RevealResponse{
		Game:     r.Game.Public(),
		Question: r.Question,
		Answers:  answers,
		Fresh:    r.Fresh,
	})
}

func (s *Server) handleAdvance(c *gin.Context) {
	var req HostRequest
	if !bindJSON(c, &req, hostMessages, "") || !s.authorizeHost(c, req.HostID) {
		return
	}
	g, err := s.hosts.Ensure(c.Param("id")).Advance(c.Request.Context())
	if errors.Is(err, session.ErrPartialWrite) {
		s.log.Warn("advance partly applied", "game_id", c.Param("id"), "error", err)
		c.JSON(http.StatusOK, TransitionResponse{Game: g.Public(), Warning: session.Message(err)})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{Game: g.Public()})
}
