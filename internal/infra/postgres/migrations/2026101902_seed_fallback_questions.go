package migrations

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"
	"trivia-quiz-service/internal/dataset"
)

// Seeds the bundled dataset so a fresh database serves the same fallback
// questions as the binary does without Postgres.
func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			questions, err := dataset.Default()
			if err != nil {
				return err
			}
			for i, q := range questions {
				incorrect, err := json.Marshal(q.IncorrectAnswers)
				if err != nil {
					return err
				}
				if _, err := db.ExecContext(ctx, `INSERT INTO fallback_questions
					(position, category, difficulty, question, correct_answer, incorrect_answers)
					VALUES (?, ?, ?, ?, ?, ?::jsonb)
					ON CONFLICT (position) DO NOTHING`,
					i, q.Category, q.Difficulty, q.Question, q.CorrectAnswer, string(incorrect)); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DELETE FROM fallback_questions`)
			return err
		},
	)
}
