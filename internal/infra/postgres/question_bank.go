package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz-service/internal/domain"
)

// QuestionBank loads the fallback question set from the fallback_questions table.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) LoadQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	rows, err := b.pool.Query(ctx, `SELECT category, difficulty, question, correct_answer, incorrect_answers
		FROM fallback_questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load fallback questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.RawQuestion
	for rows.Next() {
		var (
			q   domain.RawQuestion
			raw []byte
		)
		if err := rows.Scan(&q.Category, &q.Difficulty, &q.Question, &q.CorrectAnswer, &raw); err != nil {
			return nil, fmt.Errorf("scan fallback question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.IncorrectAnswers); err != nil {
			return nil, fmt.Errorf("unmarshal incorrect answers: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load fallback questions: %w", err)
	}
	return questions, nil
}
