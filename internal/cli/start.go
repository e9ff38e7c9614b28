package cli

import (
	"github.com/spf13/cobra"

	"workflowdesk/internal/model"
)

func newStartCommand(app *App) *cobra.Command {
	var req model.StartRequest

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a workflow for a tax case",
		Long: `Start a workflow of the given template for a tax case. The new
workflow begins at the template's first stage.

Example:
  workflowdesk start --template tpl-1040 --tax-case case-17 --preparer u-3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.manager()
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			inst, err := m.StartWorkflow(cmd.Context(), req)
			if err != nil {
				return app.exit(err)
			}
			if app.flags.json {
				return app.printJSON(inst)
			}
			app.Printer.Info("Workflow id: " + inst.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.TemplateID, "template", "t", "", "workflow template id")
	cmd.Flags().StringVar(&req.TaxCaseID, "tax-case", "", "tax case id")
	cmd.Flags().StringVar(&req.AssignedPreparerID, "preparer", "", "assigned preparer id")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "notes stored with the workflow")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("tax-case")
	return cmd
}
