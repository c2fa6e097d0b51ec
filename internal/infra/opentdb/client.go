// Package opentdb is a client for the Open Trivia Database question API.
package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trivia-quiz-service/internal/domain"
)

const DefaultBaseURL = "https://opentdb.com/api.php"

// response codes documented by the API
const (
	codeSuccess   = 0
	codeNoResults = 1
	codeInvalid   = 2
	codeRateLimit = 5
)

type apiResponse struct {
	ResponseCode int                  `json:"response_code"`
	Results      []domain.RawQuestion `json:"results"`
}

// Client fetches multiple-choice questions. Errors wrap domain.ErrNetworkFailure
// or domain.ErrDataFailure.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.RawQuestion, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base url: %v", domain.ErrNetworkFailure, err)
	}
	q := u.Query()
	q.Set("amount", strconv.Itoa(amount))
	q.Set("type", "multiple")
	if difficulty != "" && difficulty != domain.DifficultyAny {
		q.Set("difficulty", string(difficulty))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrNetworkFailure, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrDataFailure, err)
	}
	if payload.ResponseCode != codeSuccess {
		return nil, fmt.Errorf("%w: %s", domain.ErrDataFailure, describeCode(payload.ResponseCode))
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("%w: empty results", domain.ErrDataFailure)
	}
	for i, r := range payload.Results {
		if r.Question == "" || r.CorrectAnswer == "" || len(r.IncorrectAnswers) == 0 {
			return nil, fmt.Errorf("%w: result %d is incomplete", domain.ErrDataFailure, i)
		}
	}
	return payload.Results, nil
}

func describeCode(code int) string {
	switch code {
	case codeNoResults:
		return "not enough questions for query"
	case codeInvalid:
		return "invalid parameter"
	case codeRateLimit:
		return "rate limited"
	default:
		return "response code " + strconv.Itoa(code)
	}
}
