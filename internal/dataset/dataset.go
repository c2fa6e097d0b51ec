// Package dataset bundles the fallback question set used when the remote
// trivia API is unreachable or returns nothing usable.
package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"trivia-quiz-service/internal/domain"
)

//go:embed questions.json
var questionsJSON []byte

// Default decodes the bundled questions in their stored order.
func Default() ([]domain.RawQuestion, error) {
	var questions []domain.RawQuestion
	if err := json.Unmarshal(questionsJSON, &questions); err != nil {
		return nil, fmt.Errorf("decode bundled questions: %w", err)
	}
	return questions, nil
}
