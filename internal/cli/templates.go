package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"workflowdesk/internal/api"
	"workflowdesk/internal/manifest"
	"workflowdesk/internal/model"
	"workflowdesk/internal/pipeline"
	"workflowdesk/internal/workflow"
)

// ErrTemplateNameRequired is returned when a stage sheet is used without
// --name.
var ErrTemplateNameRequired = errors.New("template name is required (--name)")

func newTemplatesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template", "tpl"},
		Short:   "Manage workflow templates",
		Long: `List, inspect, create, update, clone and delete workflow templates.

Stages are read from a stage sheet CSV with the columns
name,user_type_group[,description], or from a YAML template file.`,
	}
	cmd.AddCommand(
		newTemplatesListCommand(app),
		newTemplatesShowCommand(app),
		newTemplatesCreateCommand(app),
		newTemplatesUpdateCommand(app),
		newTemplatesCloneCommand(app),
		newTemplatesDeleteCommand(app),
	)
	return cmd
}

func newTemplatesListCommand(app *App) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflow templates",
		Long: `List workflow templates. --active lists only active templates and
--active=false only inactive ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := app.source()
			if err != nil {
				return app.fail(err)
			}
			var opts api.ListTemplatesOptions
			if cmd.Flags().Changed("active") {
				opts.IsActive = &active
			}

			templates, err := src.ListTemplates(cmd.Context(), opts)
			if err != nil {
				return app.fail(err)
			}
			if app.flags.json {
				return app.printJSON(templates)
			}
			app.Printer.Templates(templates)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "filter by active flag")
	return cmd
}

func newTemplatesShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <template-id>",
		Short: "Show a template and its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := app.source()
			if err != nil {
				return app.fail(err)
			}
			tpl, err := findTemplate(cmd.Context(), src, args[0])
			if err != nil {
				return app.fail(err)
			}
			if app.flags.json {
				return app.printJSON(tpl)
			}
			app.Printer.Template(tpl)
			return nil
		},
	}
}

type templateFlags struct {
	name        string
	description string
	form        string
	stages      string
}

func (f *templateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "template name")
	cmd.Flags().StringVar(&f.description, "description", "", "template description")
	cmd.Flags().StringVar(&f.form, "form", "", "tax form type, e.g. 1040")
	cmd.Flags().StringVar(&f.stages, "stages", "", "stage sheet CSV or YAML template file")
}

func newTemplatesCreateCommand(app *App) *cobra.Command {
	var (
		f        templateFlags
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow template",
		Long: `Create a workflow template from a stage sheet or a YAML template file.

Examples:
  workflowdesk templates create --name "Individual 1040" --form 1040 --stages stages.csv
  workflowdesk templates create --stages individual-1040.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := manifest.Load(f.stages, f.name, f.description, f.form, !inactive)
			if err != nil {
				return app.fail(err)
			}
			if inactive {
				in.IsActive = false
			}
			if in.Name == "" {
				return app.fail(ErrTemplateNameRequired)
			}

			m, err := app.manager()
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			tpl, err := m.CreateTemplate(cmd.Context(), in)
			if err != nil {
				return app.exit(err)
			}
			return app.showTemplate(tpl)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the template as inactive")
	_ = cmd.MarkFlagRequired("stages")
	return cmd
}

func newTemplatesUpdateCommand(app *App) *cobra.Command {
	var (
		f      templateFlags
		active bool
	)

	cmd := &cobra.Command{
		Use:   "update <template-id>",
		Short: "Update a workflow template",
		Long: `Update a workflow template. Only the given flags change; --stages
replaces the whole stage list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.manager()
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()
			if !m.CanEdit() {
				return app.fail(workflow.ErrReadOnly)
			}

			src, err := app.source()
			if err != nil {
				return app.fail(err)
			}
			current, err := findTemplate(cmd.Context(), src, args[0])
			if err != nil {
				return app.fail(err)
			}

			in := current.Input()
			if f.stages != "" {
				sheet, err := manifest.Load(f.stages, in.Name, in.Description, in.TaxFormType, in.IsActive)
				if err != nil {
					return app.fail(err)
				}
				in.Stages = sheet.Stages
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = f.name
			}
			if flags.Changed("description") {
				in.Description = f.description
			}
			if flags.Changed("form") {
				in.TaxFormType = f.form
			}
			if flags.Changed("active") {
				in.IsActive = active
			}

			tpl, err := m.UpdateTemplate(cmd.Context(), args[0], in)
			if err != nil {
				return app.exit(err)
			}
			return app.showTemplate(tpl)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&active, "active", true, "set the active flag")
	return cmd
}

func newTemplatesCloneCommand(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "clone <template-id>",
		Short: "Copy a workflow template",
		Long:  `Copy a workflow template with all its stages. Without --name the server picks the name.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.manager()
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()

			tpl, err := m.CloneTemplate(cmd.Context(), args[0], name)
			if err != nil {
				return app.exit(err)
			}
			return app.showTemplate(tpl)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the copy")
	return cmd
}

func newTemplatesDeleteCommand(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <template-id>",
		Short: "Delete a workflow template",
		Long:  `Delete a workflow template. The server refuses while active workflows use it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.manager()
			if err != nil {
				return app.fail(err)
			}
			defer m.Close()
			if !m.CanEdit() {
				return app.fail(workflow.ErrReadOnly)
			}

			if !yes {
				prompt := fmt.Sprintf("Delete template %s? This cannot be undone.", args[0])
				ok, err := app.confirmer(cmd).Confirm(cmd.Context(), prompt)
				if err != nil {
					return app.fail(err)
				}
				if !ok {
					app.Printer.Info("Delete cancelled.")
					return nil
				}
			}

			if err := m.DeleteTemplate(cmd.Context(), args[0]); err != nil {
				return app.exit(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (app *App) showTemplate(tpl model.Template) error {
	if app.flags.json {
		return app.printJSON(tpl)
	}
	app.Printer.Template(tpl)
	return nil
}

func (app *App) printJSON(v any) error {
	if err := app.Printer.JSON(v); err != nil {
		return app.fail(err)
	}
	return nil
}

// findTemplate fetches one template, falling back to a list lookup for
// sources without a single-template call.
func findTemplate(ctx context.Context, src workflow.Source, id string) (model.Template, error) {
	if g, ok := src.(interface {
		GetTemplate(ctx context.Context, id string) (model.Template, error)
	}); ok {
		return g.GetTemplate(ctx, id)
	}

	templates, err := src.ListTemplates(ctx, api.ListTemplatesOptions{})
	if err != nil {
		return model.Template{}, err
	}
	if tpl := pipeline.SelectTemplate(templates, id); tpl != nil {
		return *tpl, nil
	}
	return model.Template{}, fmt.Errorf("template %s not found", id)
}
