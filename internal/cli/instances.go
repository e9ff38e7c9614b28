package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"workflowdesk/internal/api"
	"workflowdesk/internal/model"
)

func newInstancesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instances",
		Aliases: []string{"instance", "inst"},
		Short:   "Inspect workflow instances",
	}
	cmd.AddCommand(
		newInstancesListCommand(app),
		newInstancesShowCommand(app),
	)
	return cmd
}

func newInstancesListCommand(app *App) *cobra.Command {
	var (
		templateID string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflow instances",
		Long: `List workflow instances, optionally for one template or one status
(active, paused, completed, cancelled).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := api.ListInstancesOptions{TemplateID: templateID}
			if status != "" {
				st := model.ParseStatus(status)
				if st == model.StatusUnknown {
					return app.fail(fmt.Errorf("unknown status %q (want one of %s)", status, statusNames()))
				}
				opts.Status = string(st)
			}

			src, err := app.source()
			if err != nil {
				return app.fail(err)
			}

			var (
				instances []model.Instance
				templates []model.Template
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				instances, err = src.ListInstances(ctx, opts)
				return err
			})
			g.Go(func() error {
				var err error
				templates, err = src.ListTemplates(ctx, api.ListTemplatesOptions{})
				return err
			})
			if err := g.Wait(); err != nil {
				return app.fail(err)
			}

			if app.flags.json {
				return app.printJSON(instances)
			}
			app.Printer.Instances(instances, templates)
			return nil
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "only instances of this template")
	cmd.Flags().StringVar(&status, "status", "", "only instances with this status")
	return cmd
}

func newInstancesShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id>",
		Short: "Show a workflow instance with its execution log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.manager()
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			// Templates give the stage names and the next step; the detail
			// still renders without them.
			if err := m.RefreshAll(cmd.Context()); err != nil {
				app.Logger.Debug("refresh before detail failed", "error", err)
			}

			detail, err := m.ViewInstance(cmd.Context(), args[0])
			if err != nil {
				return app.exit(err)
			}
			if app.flags.json {
				return app.printJSON(detail)
			}
			app.Printer.Instance(detail)
			return nil
		},
	}
}

func statusNames() string {
	statuses := model.Statuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
