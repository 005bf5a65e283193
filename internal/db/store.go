package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"geoquiz/internal/feed"
	"geoquiz/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the durable session.Store. Rows live in Postgres; every committed
// change is appended to the events table and then published on the feed.
type Store struct {
	conn *gorm.DB
	feed feed.Feed
	log  *slog.Logger
}

func NewStore(conn *gorm.DB, f feed.Feed, log *slog.Logger) *Store {
	return &Store{conn: conn, feed: f, log: log}
}

var _ session.Store = (*Store)(nil)

func (s *Store) CreateGame(ctx context.Context, game session.Game) (session.Game, error) {
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if game.Status == "" {
		game.Status = session.StatusWaiting
	}
	game.Version = 1
	game.CreatedAt = time.Now().UTC()
	record, err := gameRecord(game)
	if err != nil {
		return session.Game{}, fmt.Errorf("%w: %v", session.ErrValidation, err)
	}
	ev := session.GameEvent(session.EventInsert, game)
	err = s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			if isUniqueViolation(err) {
				return session.ErrCodeTaken
			}
			return err
		}
		return appendEvent(tx, ev)
	})
	if err != nil {
		return session.Game{}, translate(err)
	}
	s.publish(ctx, ev)
	return game, nil
}

func (s *Store) GetGame(ctx context.Context, id string) (session.Game, error) {
	var row Game
	if err := s.conn.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return session.Game{}, translate(err)
	}
	return row.session()
}

func (s *Store) FindGameByCode(ctx context.Context, code string) (session.Game, error) {
	var row Game
	err := s.conn.WithContext(ctx).
		Where("code = ? AND status <> ?", code, session.StatusFinished).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return session.Game{}, translate(err)
	}
	return row.session()
}

func (s *Store) UpdateGame(ctx context.Context, id string, update session.GameUpdate, expected *session.Status) (session.Game, error) {
	var out session.Game
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Game
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		if expected != nil && row.Status != string(*expected) {
			return fmt.Errorf("%w: game is %s, expected %s", session.ErrConflict, row.Status, *expected)
		}
		if update.Status != nil {
			row.Status = string(*update.Status)
		}
		if update.CurrentQuestion != nil {
			row.CurrentQuestion = *update.CurrentQuestion
		}
		row.Version++
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		g, err := row.session()
		if err != nil {
			return err
		}
		out = g
		return appendEvent(tx, session.GameEvent(session.EventUpdate, g))
	})
	if err != nil {
		return session.Game{}, translate(err)
	}
	s.publish(ctx, session.GameEvent(session.EventUpdate, out))
	return out, nil
}

func (s *Store) ListPlayers(ctx context.Context, gameID string) ([]session.Player, error) {
	var rows []Player
	err := s.conn.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]session.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.session())
	}
	return out, nil
}

func (s *Store) InsertPlayer(ctx context.Context, player session.Player) (session.Player, error) {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	player.CreatedAt = time.Now().UTC()
	record := Player{
		ID:          player.ID,
		GameID:      player.GameID,
		Initials:    player.Initials,
		Score:       player.Score,
		HasAnswered: player.HasAnswered,
		CreatedAt:   player.CreatedAt,
	}
	ev := session.PlayerEvent(session.EventInsert, player)
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Game{}).Where("id = ?", player.GameID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return session.ErrNotFound
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return appendEvent(tx, ev)
	})
	if err != nil {
		return session.Player{}, translate(err)
	}
	s.publish(ctx, ev)
	return player, nil
}

func (s *Store) UpdatePlayer(ctx context.Context, id string, update session.PlayerUpdate) (session.Player, error) {
	var out session.Player
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Player
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		if update.WhenAnswered != nil && row.HasAnswered != *update.WhenAnswered {
			return fmt.Errorf("%w: has_answered is %v", session.ErrConflict, row.HasAnswered)
		}
		row.Score += update.AddScore
		if update.HasAnswered != nil {
			row.HasAnswered = *update.HasAnswered
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		out = row.session()
		return appendEvent(tx, session.PlayerEvent(session.EventUpdate, out))
	})
	if err != nil {
		return session.Player{}, translate(err)
	}
	s.publish(ctx, session.PlayerEvent(session.EventUpdate, out))
	return out, nil
}

func (s *Store) ResetAnswered(ctx context.Context, gameID string) error {
	var changed []Player
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("game_id = ? AND has_answered", gameID).
			Order("created_at, id").
			Find(&changed).Error; err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		ids := make([]string, 0, len(changed))
		for i := range changed {
			ids = append(ids, changed[i].ID)
			changed[i].HasAnswered = false
		}
		if err := tx.Model(&Player{}).Where("id IN ?", ids).Update("has_answered", false).Error; err != nil {
			return err
		}
		for _, row := range changed {
			if err := appendEvent(tx, session.PlayerEvent(session.EventUpdate, row.session())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}
	for _, row := range changed {
		s.publish(ctx, session.PlayerEvent(session.EventUpdate, row.session()))
	}
	return nil
}

func (s *Store) InsertAnswer(ctx context.Context, answer session.Answer) (session.Answer, error) {
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	answer.CreatedAt = time.Now().UTC()
	record := Answer{
		ID:         answer.ID,
		PlayerID:   answer.PlayerID,
		GameID:     answer.GameID,
		QuestionID: answer.QuestionID,
		Latitude:   answer.Latitude,
		Longitude:  answer.Longitude,
		Distance:   answer.Distance,
		Score:      answer.Score,
		CreatedAt:  answer.CreatedAt,
	}
	ev := session.AnswerEvent(session.EventInsert, answer)
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			if isUniqueViolation(err) {
				return session.ErrAnswerExists
			}
			return err
		}
		return appendEvent(tx, ev)
	})
	if err != nil {
		return session.Answer{}, translate(err)
	}
	s.publish(ctx, ev)
	return answer, nil
}

func (s *Store) FindAnswer(ctx context.Context, gameID, playerID string, questionID int) (session.Answer, error) {
	var row Answer
	err := s.conn.WithContext(ctx).
		Where("game_id = ? AND player_id = ? AND question_id = ?", gameID, playerID, questionID).
		First(&row).Error
	if err != nil {
		return session.Answer{}, translate(err)
	}
	return row.session(), nil
}

func (s *Store) ListAnswers(ctx context.Context, gameID string, questionID int) ([]session.Answer, error) {
	var rows []Answer
	err := s.conn.WithContext(ctx).
		Where("game_id = ? AND question_id = ?", gameID, questionID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]session.Answer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.session())
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, gameID string) (session.Subscription, error) {
	sub, err := s.feed.Subscribe(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrTransport, err)
	}
	return sub, nil
}

func (s *Store) Check(ctx context.Context) error {
	return Ping(ctx, s.conn)
}

// publish sends a committed change to subscribers. A failed publish is only
// logged: mirrors refetch on their own schedule.
func (s *Store) publish(ctx context.Context, ev session.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.log.Warn("publish change event failed", "game_id", ev.GameID, "table", ev.Table, "error", err)
	}
}

func appendEvent(tx *gorm.DB, ev session.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return tx.Create(&Event{
		GameID:  ev.GameID,
		Table:   string(ev.Table),
		Type:    string(ev.Type),
		Payload: datatypes.JSON(payload),
	}).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// translate maps driver errors onto the session error classes. Errors that
// already carry a class pass through.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return session.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case classified(err):
		return err
	default:
		return fmt.Errorf("%w: %v", session.ErrTransport, err)
	}
}

func classified(err error) bool {
	for _, class := range []error{
		session.ErrValidation,
		session.ErrPrecondition,
		session.ErrConflict,
		session.ErrNotFound,
		session.ErrTransport,
		session.ErrPartialWrite,
	} {
		if errors.Is(err, class) {
			return true
		}
	}
	return false
}
