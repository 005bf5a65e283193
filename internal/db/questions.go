package db

import (
	"context"

	"geoquiz/internal/session"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoadQuestionBank upserts questions into the questions table by id and
// returns how many rows were written.
func LoadQuestionBank(ctx context.Context, conn *gorm.DB, questions []session.Question) (int, error) {
	if conn == nil {
		return 0, nil
	}
	written := 0
	for _, q := range questions {
		row := Question{
			ID:        q.ID,
			Text:      q.Text,
			Latitude:  q.Latitude,
			Longitude: q.Longitude,
			Hint:      q.Hint,
			Image:     q.Image,
		}
		err := conn.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "latitude", "longitude", "hint", "image", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ListQuestions returns the stored question bank ordered by id.
func ListQuestions(ctx context.Context, conn *gorm.DB) ([]session.Question, error) {
	var rows []Question
	if err := conn.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]session.Question, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.session())
	}
	return out, nil
}
