package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/clock"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

type playOptions struct {
	amount     int
	difficulty string
	player     string
	db         string
}

// NewPlayCmd runs a quiz in the terminal and records it in the local store.
func NewPlayCmd(configPath *string) *cobra.Command {
	opts := playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("amount") {
				opts.amount = cfg.Quiz.DefaultAmount
			}
			source, closeSource, err := newQuestionSource(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			store, closeStore, err := openSQLite(firstNonEmpty(opts.db, cfg.Storage.Path))
			if err != nil {
				return err
			}
			defer closeStore()

			recorder := app.NewRecorder(store, cfg.Quiz.HistoryLimit)
			service := app.NewQuizService(memory.NewSessionStore(), source, recorder, clock.Real{}, sessionConfig(cfg))
			return playQuiz(cmd.Context(), service, app.StartRequest{
				Amount:     opts.amount,
				Difficulty: opts.difficulty,
				Player:     opts.player,
			}, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.amount, "amount", 5, "number of questions (1-50)")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", "any", "any, easy, medium or hard")
	cmd.Flags().StringVar(&opts.player, "player", "", "player name for separate history and high score")
	cmd.Flags().StringVar(&opts.db, "db", "", "results database path (default ~/.trivia/quiz.db)")
	return cmd
}

// playQuiz drives one session from line-based input until it completes or
// the input ends.
func playQuiz(ctx context.Context, service *app.QuizService, req app.StartRequest, in io.Reader, out io.Writer) error {
	session, err := service.Create(req)
	if err != nil {
		return err
	}
	defer service.Close(session.ID())

	fmt.Fprintln(out, "Loading questions...")
	if err := service.Load(ctx, session); err != nil {
		if errors.Is(err, domain.ErrNoQuestions) {
			fmt.Fprintln(out, "No questions available right now. Try again later.")
			return nil
		}
		return err
	}

	updates, cancel := session.Subscribe()
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-session.Done():
				return
			}
		}
	}()

	screen := &terminalScreen{out: out}
	for {
		select {
		case view, ok := <-updates:
			if !ok {
				return nil
			}
			screen.render(view)
			if view.State == domain.StateComplete {
				return showFinal(ctx, service, session, req.Player, out)
			}
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "Quiz abandoned.")
				return nil
			}
			done, err := handleInput(service, session, screen.current, line)
			if err != nil {
				fmt.Fprintln(out, describeInputError(err))
			}
			if done {
				return showFinal(ctx, service, session, req.Player, out)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleInput applies one line of input and reports whether the session ended.
func handleInput(service *app.QuizService, session *app.Session, current domain.SessionView, line string) (bool, error) {
	switch strings.ToLower(line) {
	case "":
		return false, nil
	case "f":
		_, err := service.Finish(session.ID())
		return err == nil, err
	case "r":
		return false, service.Restart(session.ID())
	}
	n, err := strconv.Atoi(line)
	if err != nil || current.Question == nil || n < 1 || n > len(current.Question.Options) {
		return false, errBadChoice
	}
	_, err = service.Select(session.ID(), current.Question.Options[n-1])
	return false, err
}

var errBadChoice = errors.New("bad choice")

func describeInputError(err error) string {
	switch {
	case errors.Is(err, errBadChoice):
		return "Enter an option number, r to restart or f to finish."
	case errors.Is(err, domain.ErrQuestionLocked):
		return "Answer already locked in."
	case errors.Is(err, domain.ErrSessionComplete):
		return "The quiz is over."
	default:
		return err.Error()
	}
}

func showFinal(ctx context.Context, service *app.QuizService, session *app.Session, player string, out io.Writer) error {
	select {
	case <-session.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	result := session.View().Result
	if result == nil {
		return nil
	}
	best, err := service.HighScore(ctx, player)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	renderResult(out, *result, best)
	return nil
}

// terminalScreen prints a question once and then only the countdown warnings
// and lock feedback.
type terminalScreen struct {
	out     io.Writer
	current domain.SessionView
	shown   string
}

func (s *terminalScreen) render(view domain.SessionView) {
	s.current = view
	key := fmt.Sprintf("%s/%d/%d", view.State, view.Index, view.Answered)
	switch view.State {
	case domain.StateInProgress:
		if key != s.shown {
			s.shown = key
			fmt.Fprintf(s.out, "\nQuestion %d/%d  (%ds)\n%s\n", view.Index+1, view.Total, view.TimeLeft, view.Question.Prompt)
			for i, o := range view.Question.Options {
				fmt.Fprintf(s.out, "  %d) %s\n", i+1, o)
			}
			fmt.Fprintf(s.out, "Choose 1-%d, r to restart, f to finish: ", len(view.Question.Options))
			return
		}
		if view.TimeLeft == 10 || view.TimeLeft == 5 {
			fmt.Fprintf(s.out, "\n%d seconds left! ", view.TimeLeft)
		}
	case domain.StateLocked:
		if key == s.shown || view.LastAnswer == nil {
			return
		}
		s.shown = key
		fmt.Fprintln(s.out, "\n"+describeAnswer(*view.LastAnswer))
	}
}

func describeAnswer(a domain.AnswerRecord) string {
	switch {
	case a.TimedOut:
		return "Time's up! The answer was " + a.CorrectAnswer + "."
	case a.Correct:
		return "Correct!"
	default:
		return "Wrong, the answer was " + a.CorrectAnswer + "."
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
