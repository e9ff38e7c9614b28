package cli

import (
	"github.com/spf13/cobra"

	"workflowdesk/internal/model"
)

func newBoardCommand(app *App) *cobra.Command {
	var (
		templateID    string
		showCompleted bool
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the stage pipeline of a workflow template",
		Long: `Show every workflow of a template as cards in stage columns, with
the status summary and the next step each card offers.

The template comes from --template, then board.default_template in the
config, then the first active template.

Example:
  workflowdesk board --template tpl-1040`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.manager()
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			loadErr := m.RefreshAll(cmd.Context())
			snap := m.Snapshot()

			id := templateID
			if id == "" {
				id = app.Config.Board.DefaultTemplate
			}
			if id == "" {
				id = defaultTemplateID(snap.Templates)
			}
			board := snap.Board(id)

			if app.flags.json {
				if err := app.Printer.JSON(board); err != nil {
					return app.fail(err)
				}
			} else {
				show := app.Config.Board.ShowCompleted
				if cmd.Flags().Changed("completed") {
					show = showCompleted
				}
				app.Printer.Board(board, show)
			}

			// Whatever loaded is shown; a failed slice still fails the command.
			if loadErr != nil {
				return app.exit(loadErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", "workflow template id")
	cmd.Flags().BoolVar(&showCompleted, "completed", true, "list completed workflows below the board")
	return cmd
}

// defaultTemplateID picks the first active template, else the first one.
func defaultTemplateID(templates []model.Template) string {
	for _, t := range templates {
		if t.IsActive {
			return t.ID
		}
	}
	if len(templates) > 0 {
		return templates[0].ID
	}
	return ""
}
