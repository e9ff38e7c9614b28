package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"workflowdesk/internal/model"
	"workflowdesk/internal/pipeline"
	"workflowdesk/internal/transition"
	"workflowdesk/internal/workflow"
)

func newAdvanceCommand(app *App) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "advance <instance-id>",
		Short: "Move a workflow to its next stage",
		Long: `Move a workflow to the stage after its current one in the template.
--to sends an explicit target stage id instead; the server validates it.

Example:
  workflowdesk advance inst-42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			m, ctrl, err := app.transitions(cmd, nil)
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			target := to
			if target == "" {
				stage, err := planAdvance(cmd, m, id)
				if err != nil {
					return app.exit(err)
				}
				app.Logger.Debug("planned advance", "instance", id, "stage", stage)
				target = stage
			}

			if err := ctrl.Advance(cmd.Context(), id, target); err != nil {
				return app.exit(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target stage id")
	return cmd
}

// planAdvance loads the templates and instances and resolves the stage after
// the instance's current one.
func planAdvance(cmd *cobra.Command, m *workflow.Manager, id string) (string, error) {
	snap, inst, err := loadInstance(cmd, m, id)
	if err != nil {
		return "", err
	}
	next, err := pipeline.PlanAdvance(snap.Templates, inst)
	if err != nil {
		return "", fmt.Errorf("cannot advance %s: %w", id, err)
	}
	return next.ID, nil
}

// checkComplete loads the templates and instances and refuses a complete
// the board would not offer.
func checkComplete(cmd *cobra.Command, m *workflow.Manager, id string) error {
	snap, inst, err := loadInstance(cmd, m, id)
	if err != nil {
		return err
	}
	if err := pipeline.CheckComplete(snap.Templates, inst); err != nil {
		return fmt.Errorf("cannot complete %s: %w", id, err)
	}
	return nil
}

func loadInstance(cmd *cobra.Command, m *workflow.Manager, id string) (workflow.Snapshot, model.Instance, error) {
	_ = m.RefreshAll(cmd.Context())
	snap := m.Snapshot()
	if err := errors.Join(snap.TemplatesErr, snap.InstancesErr); err != nil {
		return snap, model.Instance{}, err
	}
	inst, ok := snap.Instance(id)
	if !ok {
		return snap, model.Instance{}, fmt.Errorf("workflow %s not found", id)
	}
	return snap, inst, nil
}

func newCompleteCommand(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "complete <instance-id>",
		Short: "Mark a workflow as completed",
		Long: `Mark a workflow as completed. Only an active workflow at the last
stage of its template can be completed; --force sends the request
without that check and leaves the decision to the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			m, ctrl, err := app.transitions(cmd, nil)
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			if !force {
				if err := checkComplete(cmd, m, id); err != nil {
					return app.exit(err)
				}
			}
			if err := ctrl.Complete(cmd.Context(), id); err != nil {
				return app.exit(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the local last-stage check")
	return cmd
}

func newDeleteCommand(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <instance-id>",
		Short: "Delete a workflow instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirmer transition.Confirmer
			if yes {
				confirmer = yesConfirmer{}
			}
			m, ctrl, err := app.transitions(cmd, confirmer)
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			err = ctrl.Delete(cmd.Context(), args[0])
			if errors.Is(err, transition.ErrCancelled) {
				app.Printer.Info("Delete cancelled.")
				return nil
			}
			if err != nil {
				return app.exit(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// transitions builds the manager and a controller that refreshes it.
func (app *App) transitions(cmd *cobra.Command, confirmer transition.Confirmer) (*workflow.Manager, *transition.Controller, error) {
	m, err := app.manager()
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := app.controller(cmd, m, confirmer)
	if err != nil {
		m.Close()
		return nil, nil, err
	}
	return m, ctrl, nil
}
