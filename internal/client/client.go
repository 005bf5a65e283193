// Package client talks to a geoquiz server over HTTP and websockets. It
// satisfies mirror.Source, so remote players and hosts can mirror a game the
// same way the server does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"geoquiz/internal/game"
	"geoquiz/internal/session"

	"github.com/gorilla/websocket"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	base   string
	http   *http.Client
	dialer *websocket.Dialer
}

// New returns a client for the server at baseURL. A nil httpClient uses a
// client with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   httpClient,
		dialer: &websocket.Dialer{HandshakeTimeout: defaultTimeout},
	}
}

type Created struct {
	GameID string `json:"game_id"`
	Code   string `json:"code"`
	HostID string `json:"host_id"`
	Rounds int    `json:"rounds"`
}

type Joined struct {
	GameID   string `json:"game_id"`
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Initials string `json:"initials"`
}

type state struct {
	Game    session.Game     `json:"game"`
	Players []session.Player `json:"players"`
	Answers []session.Answer `json:"answers"`
}

type transition struct {
	Game    session.Game `json:"game"`
	Warning string       `json:"warning"`
}

func (c *Client) CreateGame(ctx context.Context, rounds int) (Created, error) {
	var out Created
	err := c.do(ctx, http.MethodPost, "/api/games", map[string]int{"rounds": rounds}, &out)
	return out, err
}

func (c *Client) Join(ctx context.Context, code, initials string) (Joined, error) {
	var out Joined
	err := c.do(ctx, http.MethodPost, "/api/join", map[string]string{"code": code, "initials": initials}, &out)
	return out, err
}

func (c *Client) Start(ctx context.Context, gameID, hostID string) (session.Game, error) {
	return c.transition(ctx, gameID, "start", hostID)
}

// Reveal closes the current round. It returns the revealed answers.
func (c *Client) Reveal(ctx context.Context, gameID, hostID string) (session.Game, []session.Answer, error) {
	var out struct {
		Game    session.Game     `json:"game"`
		Answers []session.Answer `json:"answers"`
	}
	err := c.do(ctx, http.MethodPost, gamePath(gameID, "reveal"), map[string]string{"host_id": hostID}, &out)
	return out.Game, out.Answers, err
}

// Advance moves to the next round. A partly applied advance returns the new
// game together with an error wrapping session.ErrPartialWrite.
func (c *Client) Advance(ctx context.Context, gameID, hostID string) (session.Game, error) {
	return c.transition(ctx, gameID, "advance", hostID)
}

func (c *Client) transition(ctx context.Context, gameID, action, hostID string) (session.Game, error) {
	var out transition
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, action), map[string]string{"host_id": hostID}, &out); err != nil {
		return session.Game{}, err
	}
	if out.Warning != "" {
		return out.Game, fmt.Errorf("%w: %s", session.ErrPartialWrite, out.Warning)
	}
	return out.Game, nil
}

func (c *Client) Submit(ctx context.Context, sub game.Submission) (session.Answer, error) {
	var out struct {
		Answer session.Answer `json:"answer"`
	}
	err := c.do(ctx, http.MethodPost, gamePath(sub.GameID, "answers"), map[string]any{
		"player_id":   sub.PlayerID,
		"question_id": sub.QuestionID,
		"latitude":    sub.Latitude,
		"longitude":   sub.Longitude,
	}, &out)
	return out.Answer, err
}

func (c *Client) CurrentQuestion(ctx context.Context, gameID string) (game.QuestionView, error) {
	var out game.QuestionView
	err := c.do(ctx, http.MethodGet, gamePath(gameID, "question"), nil, &out)
	return out, err
}

func (c *Client) GetGame(ctx context.Context, id string) (session.Game, error) {
	var out state
	err := c.do(ctx, http.MethodGet, gamePath(id, ""), nil, &out)
	return out.Game, err
}

func (c *Client) ListPlayers(ctx context.Context, gameID string) ([]session.Player, error) {
	var out state
	err := c.do(ctx, http.MethodGet, gamePath(gameID, ""), nil, &out)
	return out.Players, err
}

// ListAnswers returns the answers of a revealed round.
func (c *Client) ListAnswers(ctx context.Context, gameID string, questionID int) ([]session.Answer, error) {
	var out struct {
		Answers []session.Answer `json:"answers"`
	}
	path := gamePath(gameID, "answers") + "?round=" + strconv.Itoa(questionID)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Answers, err
}

func gamePath(gameID, action string) string {
	path := "/api/games/" + url.PathEscape(gameID)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", session.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", session.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: decoding response: %v", session.ErrTransport, err)
	}
	return nil
}

// statusError maps an error response back to its session error class.
func statusError(status int, body []byte) error {
	var parsed struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)
	msg := parsed.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	var class error
	switch status {
	case http.StatusBadRequest:
		class = session.ErrValidation
	case http.StatusForbidden:
		class = session.ErrNotHost
	case http.StatusNotFound:
		class = session.ErrNotFound
	case http.StatusConflict:
		class = session.ErrPrecondition
	default:
		class = session.ErrTransport
	}
	return fmt.Errorf("%w: %s (%d)", class, msg, status)
}
