package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

type recordFlags struct {
	player string
	db     string
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.player, "player", "", "player whose records to show")
	cmd.Flags().StringVar(&f.db, "db", "", "results database path (default ~/.trivia/quiz.db)")
}

// openRecorder opens the local results store scoped to the player.
func (f *recordFlags) openRecorder(configPath string) (*app.Recorder, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := openSQLite(firstNonEmpty(f.db, cfg.Storage.Path))
	if err != nil {
		return nil, nil, err
	}
	return app.NewRecorder(store, cfg.Quiz.HistoryLimit).ForPlayer(f.player), closeStore, nil
}

func NewResultsCmd(configPath *string) *cobra.Command {
	flags := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the latest quiz result",
		RunE: func(cmd *cobra.Command, args []string) error {
			recorder, closeStore, err := flags.openRecorder(*configPath)
			if err != nil {
				return err
			}
			defer closeStore()
			return showLatest(cmd.Context(), recorder, cmd.OutOrStdout())
		},
	}
	flags.bind(cmd)
	return cmd
}

func NewHistoryCmd(configPath *string) *cobra.Command {
	flags := &recordFlags{}
	var (
		view     int
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			recorder, closeStore, err := flags.openRecorder(*configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			switch {
			case clearAll:
				if err := recorder.ClearHistory(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "History cleared.")
				return nil
			case view > 0:
				// entries are listed from 1
				if _, err := recorder.ViewHistoryEntry(ctx, view-1); err != nil {
					return err
				}
				return showLatest(ctx, recorder, out)
			}
			history, err := recorder.History(ctx)
			if err != nil {
				return err
			}
			renderHistory(out, history)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&view, "view", 0, "show entry N of the list in full")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all history")
	return cmd
}

func NewHighScoreCmd(configPath *string) *cobra.Command {
	flags := &recordFlags{}
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "highscore",
		Short: "Show or reset the high score",
		RunE: func(cmd *cobra.Command, args []string) error {
			recorder, closeStore, err := flags.openRecorder(*configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			if clearAll {
				if err := recorder.ClearHighScore(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "High score reset.")
				return nil
			}
			best, err := recorder.HighScore(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "High score: %d\n", best)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&clearAll, "clear", false, "reset the high score to 0")
	return cmd
}

func showLatest(ctx context.Context, recorder *app.Recorder, out io.Writer) error {
	result, err := recorder.Latest(ctx)
	if errors.Is(err, domain.ErrResultNotFound) {
		fmt.Fprintln(out, "No results yet. Run `trivia play` first.")
		return nil
	}
	if err != nil {
		return err
	}
	best, err := recorder.HighScore(ctx)
	if err != nil {
		return err
	}
	renderResult(out, result, best)
	return nil
}

func renderResult(out io.Writer, result domain.SessionResult, highScore int) {
	fmt.Fprintf(out, "Score: %d/%d   High score: %d\n", result.Score, result.Total, highScore)
	if len(result.Answers) < result.Total {
		fmt.Fprintf(out, "Finished early after %d of %d questions.\n", len(result.Answers), result.Total)
	}
	for i, a := range result.Answers {
		mark := "x"
		if a.Correct {
			mark = "+"
		}
		fmt.Fprintf(out, "%2d. [%s] %s\n", i+1, mark, a.Prompt)
		selected := "(no answer)"
		if a.Selected != nil {
			selected = *a.Selected
		}
		fmt.Fprintf(out, "     your answer: %s   correct: %s\n", selected, a.CorrectAnswer)
	}
}

func renderHistory(out io.Writer, history []domain.SessionResult) {
	if len(history) == 0 {
		fmt.Fprintln(out, "No past attempts.")
		return
	}
	for i, r := range history {
		fmt.Fprintf(out, "%2d. %s  %d/%d  (%s, %d questions)\n",
			i+1, r.Timestamp.Local().Format("2006-01-02 15:04"), r.Score, r.Total, r.Difficulty, r.Amount)
	}
}
