package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stock-academy/internal/models"
	"stock-academy/internal/study"
	"stock-academy/pkg/utils"
)

func newReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Study investing terms with spaced repetition",
		Long: `Study investing terms with spaced-repetition flashcards.

Grade each review from 0 (blackout) to 5 (perfect recall). Terms you know
well come back less often; terms you miss come back tomorrow.`,
	}

	cmd.AddCommand(newGradeCmd(app))
	cmd.AddCommand(newShowTermCmd(app))
	cmd.AddCommand(newDueCmd(app))
	cmd.AddCommand(newReviewStatsCmd(app))

	return cmd
}

// progressView is the JSON form of a term's review progress.
type progressView struct {
	TermID         string     `json:"termId"`
	EaseFactor     float64    `json:"easeFactor"`
	Interval       int        `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	NextReviewAt   time.Time  `json:"nextReviewAt"`
	ReviewCount    int        `json:"reviewCount"`
	LastQuality    int        `json:"lastQuality"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
	Level          string     `json:"level"`
}

func newProgressView(p models.ReviewProgress) progressView {
	v := progressView{
		TermID:       p.TermID,
		EaseFactor:   p.EaseFactor,
		Interval:     p.Interval,
		Repetitions:  p.Repetitions,
		NextReviewAt: p.NextReviewAt,
		ReviewCount:  p.ReviewCount,
		LastQuality:  p.LastQuality,
		Level:        study.Level(p).String(),
	}
	if !p.LastReviewedAt.IsZero() {
		at := p.LastReviewedAt
		v.LastReviewedAt = &at
	}
	return v
}

func newGradeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade <term>",
		Short: "Record a review of a term",
		Example: `  academy review grade dividend --quality 4
  academy review grade p-e-ratio --correct --confident
  academy review grade etf --incorrect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := context.Background()

			svc, err := app.Study()
			if err != nil {
				return err
			}

			var p models.ReviewProgress
			switch {
			case cmd.Flags().Changed("quality"):
				q, _ := cmd.Flags().GetFloat64("quality")
				p, err = svc.Grade(ctx, args[0], q)
			case cmd.Flags().Changed("correct"):
				confident, _ := cmd.Flags().GetBool("confident")
				p, err = svc.GradeBinary(ctx, args[0], true, confident)
			default:
				p, err = svc.GradeBinary(ctx, args[0], false, false)
			}
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(newProgressView(p))
			}

			if p.Repetitions == 0 {
				output.Warning("↺ %s: back to the start, review again %s", p.TermID, formatDue(p.NextReviewAt))
			} else {
				output.Success("✓ %s: next review in %s (%s)", p.TermID, utils.FormatDays(p.Interval), formatDue(p.NextReviewAt))
			}
			output.Dim("Quality %d · ease %.2f · %s", p.LastQuality, p.EaseFactor, study.Level(p))
			return nil
		},
	}
	cmd.Flags().Float64("quality", 0, "recall quality from 0 (blackout) to 5 (perfect)")
	cmd.Flags().Bool("correct", false, "you knew the answer")
	cmd.Flags().Bool("incorrect", false, "you did not know the answer")
	cmd.Flags().Bool("confident", false, "with --correct: you answered without hesitation")
	cmd.MarkFlagsMutuallyExclusive("quality", "correct", "incorrect")
	cmd.MarkFlagsOneRequired("quality", "correct", "incorrect")
	return cmd
}

func formatDue(at time.Time) string {
	return "on " + at.Local().Format("Mon Jan 2 15:04")
}

func newShowTermCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <term>",
		Short: "Show review progress of a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Study()
			if err != nil {
				return err
			}
			p, err := svc.Progress(context.Background(), args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(newProgressView(p))
			}

			output.Bold(p.TermID)
			output.Printf("  Level:        %s\n", study.Level(p))
			output.Printf("  Reviews:      %d\n", p.ReviewCount)
			output.Printf("  Streak:       %d\n", p.Repetitions)
			output.Printf("  Ease:         %.2f\n", p.EaseFactor)
			if p.ReviewCount > 0 {
				output.Printf("  Interval:     %s\n", utils.FormatDays(p.Interval))
				output.Printf("  Last Quality: %d\n", p.LastQuality)
			}
			output.Printf("  Next Review:  %s\n", formatDue(p.NextReviewAt))
			return nil
		},
	}
}

func newDueCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List terms due for review, most overdue first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			window, err := app.Config.Review.Window()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("window") {
				window, _ = cmd.Flags().GetDuration("window")
				if window < 0 {
					return fmt.Errorf("window must not be negative")
				}
			}
			limit := app.Config.Review.SessionSize
			if cmd.Flags().Changed("limit") {
				limit, _ = cmd.Flags().GetInt("limit")
			}

			svc, err := app.Study()
			if err != nil {
				return err
			}
			due, err := svc.Due(context.Background(), window, limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				views := make([]progressView, 0, len(due))
				for _, p := range due {
					views = append(views, newProgressView(p))
				}
				return output.JSON(views)
			}
			if len(due) == 0 {
				output.Success("✓ Nothing due. Come back later!")
				return nil
			}

			table := NewTable(output, "TERM", "LEVEL", "DUE", "REVIEWS")
			for _, p := range due {
				table.AddRow(p.TermID, study.Level(p).String(), formatDue(p.NextReviewAt), fmt.Sprintf("%d", p.ReviewCount))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Duration("window", 0, "also list terms due within this window (default from config)")
	cmd.Flags().Int("limit", 0, "maximum terms to list (default from config, 0 for all)")
	return cmd
}

type statsView struct {
	TotalTerms    int            `json:"totalTerms"`
	TotalReviews  int            `json:"totalReviews"`
	DueNow        int            `json:"dueNow"`
	AvgEaseFactor float64        `json:"avgEaseFactor"`
	ByLevel       map[string]int `json:"byLevel"`
}

var levelOrder = []models.ConfidenceLevel{
	models.ConfidenceNew,
	models.ConfidenceLearning,
	models.ConfidenceFamiliar,
	models.ConfidenceConfident,
	models.ConfidenceAlmostMastered,
	models.ConfidenceMastered,
}

func newReviewStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize study progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Study()
			if err != nil {
				return err
			}
			stats, err := svc.Stats(context.Background())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				view := statsView{
					TotalTerms:    stats.TotalTerms,
					TotalReviews:  stats.TotalReviews,
					DueNow:        stats.DueNow,
					AvgEaseFactor: stats.AvgEaseFactor,
					ByLevel:       make(map[string]int, len(stats.ByLevel)),
				}
				for level, n := range stats.ByLevel {
					view.ByLevel[level.String()] = n
				}
				return output.JSON(view)
			}

			output.Bold("Study Progress")
			output.Printf("  Terms:        %d\n", stats.TotalTerms)
			output.Printf("  Reviews:      %d\n", stats.TotalReviews)
			output.Printf("  Due Now:      %d\n", stats.DueNow)
			if stats.TotalTerms > 0 {
				output.Printf("  Average Ease: %.2f\n", stats.AvgEaseFactor)
				output.Println()
				for _, level := range levelOrder {
					if n := stats.ByLevel[level]; n > 0 {
						output.Printf("  %-16s %d\n", level.String()+":", n)
					}
				}
			}
			return nil
		},
	}
}
