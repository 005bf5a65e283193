package session

type Table string

const (
	TableGames   Table = "games"
	TablePlayers Table = "players"
	TableAnswers Table = "answers"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one row change. Exactly one of Game, Player and Answer is set,
// matching Table.
type Event struct {
	Table  Table     `json:"table"`
	Type   EventType `json:"event_type"`
	GameID string    `json:"game_id"`
	Game   *Game     `json:"game,omitempty"`
	Player *Player   `json:"player,omitempty"`
	Answer *Answer   `json:"answer,omitempty"`
}

func GameEvent(typ EventType, g Game) Event {
	g = g.Public()
	return Event{Table: TableGames, Type: typ, GameID: g.ID, Game: &g}
}

func PlayerEvent(typ EventType, p Player) Event {
	return Event{Table: TablePlayers, Type: typ, GameID: p.GameID, Player: &p}
}

func AnswerEvent(typ EventType, a Answer) Event {
	return Event{Table: TableAnswers, Type: typ, GameID: a.GameID, Answer: &a}
}

// Subscription delivers change events for one game. Events is closed when
// the subscription ends, after which Err explains why. Delivery is at most
// once and unordered across tables; consumers refetch after a drop.
type Subscription interface {
	Events() <-chan Event
	Err() error
	Close() error
}
