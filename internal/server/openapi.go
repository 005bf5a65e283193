package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

type gamePath struct {
	ID string `path:"id"`
}

type answersQueryParams struct {
	ID    string `path:"id"`
	Round *int   `query:"round"`
}

type hostOperation struct {
	ID     string `path:"id"`
	HostID string `json:"host_id" required:"true"`
}

type answerOperation struct {
	ID         string  `path:"id"`
	PlayerID   string  `json:"player_id" required:"true"`
	QuestionID int     `json:"question_id" required:"true" minimum:"0"`
	Latitude   float64 `json:"latitude" required:"true" minimum:"-90" maximum:"90"`
	Longitude  float64 `json:"longitude" required:"true" minimum:"-180" maximum:"180"`
}

type websocketParams struct {
	ID     string `path:"id"`
	Role   string `query:"role" enum:"host,player"`
	HostID string `query:"host_id"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GeoQuiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the GeoQuiz location game.")

	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	postGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	postGame.SetSummary("Create a game")
	postGame.SetDescription("Creates a waiting game. The host_id in the response authorizes host actions.")
	postGame.AddReqStructure(CreateGameRequest{})
	postGame.AddRespStructure(CreateGameResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postGame)

	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	postJoin.SetSummary("Join a game")
	postJoin.SetDescription("Adds a player to the waiting game holding the join code.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postJoin)

	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{id}")
	getGame.SetSummary("Get game state")
	getGame.AddReqStructure(gamePath{})
	getGame.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	getQuestion, _ := r.NewOperationContext(http.MethodGet, "/api/games/{id}/question")
	getQuestion.SetSummary("Current question")
	getQuestion.SetDescription("The location is zero until the round is revealed.")
	getQuestion.AddReqStructure(gamePath{})
	getQuestion.AddRespStructure(QuestionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getQuestion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getQuestion)

	getAnswers, _ := r.NewOperationContext(http.MethodGet, "/api/games/{id}/answers")
	getAnswers.SetSummary("Answers of a revealed round")
	getAnswers.AddReqStructure(answersQueryParams{})
	getAnswers.AddRespStructure(AnswersResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getAnswers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getAnswers)

	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/games/{id}/answers")
	postAnswer.SetSummary("Submit an answer")
	postAnswer.SetDescription("Scores and records a guess for the current round. Retrying a submit is safe.")
	postAnswer.AddReqStructure(answerOperation{})
	postAnswer.AddRespStructure(AnswerResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	for _, op := range []struct {
		path, summary string
		resp          any
	}{
		{"/api/games/{id}/start", "Start the game", TransitionResponse{}},
		{"/api/games/{id}/reveal", "Reveal the current round", RevealResponse{}},
		{"/api/games/{id}/advance", "Advance to the next round", TransitionResponse{}},
	} {
		oc, _ := r.NewOperationContext(http.MethodPost, op.path)
		oc.SetSummary(op.summary)
		oc.AddReqStructure(hostOperation{})
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(http.StatusOK))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		_ = r.AddOperation(oc)
	}

	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws/games/{id}")
	getWS.SetSummary("Game change stream")
	getWS.SetDescription("Upgrades to a WebSocket that sends a snapshot, then every change to the game. Host connections also receive map commands.")
	getWS.AddReqStructure(websocketParams{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

var (
	openAPIOnce sync.Once
	openAPIData []byte
)

func (s *Server) handleOpenAPI(c *gin.Context) {
	openAPIOnce.Do(func() {
		openAPIData, _ = json.MarshalIndent(newOpenAPISpec(), "", "  ")
	})
	c.Data(http.StatusOK, "application/json; charset=utf-8", openAPIData)
}
