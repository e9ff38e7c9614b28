package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"workflowdesk/internal/api"
	"workflowdesk/internal/workflow"
)

func newStatsCommand(app *App) *cobra.Command {
	var from, to, period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show workflow statistics",
		Long: `Show template and workflow counts and the average completion time.

Example:
  workflowdesk stats --from 2024-01-01 --to 2024-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := statisticsOptions(from, to, period)
			if err != nil {
				return app.fail(err)
			}
			src, err := app.source()
			if err != nil {
				return app.fail(err)
			}

			raw, err := src.Statistics(cmd.Context(), opts)
			if err != nil {
				return app.fail(err)
			}
			stats := workflow.MapStatistics(raw)
			if app.flags.json {
				return app.printJSON(stats)
			}
			app.Printer.Statistics(stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&period, "period", "", "period name understood by the server, e.g. month")
	return cmd
}

func statisticsOptions(from, to, period string) (api.StatisticsOptions, error) {
	opts := api.StatisticsOptions{Period: period}
	var err error
	if from != "" {
		if opts.StartDate, err = time.Parse(time.DateOnly, from); err != nil {
			return opts, fmt.Errorf("invalid --from date %q: want YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if opts.EndDate, err = time.Parse(time.DateOnly, to); err != nil {
			return opts, fmt.Errorf("invalid --to date %q: want YYYY-MM-DD", to)
		}
	}
	if !opts.StartDate.IsZero() && !opts.EndDate.IsZero() && opts.EndDate.Before(opts.StartDate) {
		return opts, errors.New("--to is before --from")
	}
	return opts, nil
}
