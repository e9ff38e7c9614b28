package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflowdesk/internal/apitest"
	"workflowdesk/internal/model"
	"workflowdesk/internal/workflow"
)

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	require.Error(t, err)
	code, ok := IsExitError(err)
	require.True(t, ok, "error should be an ExitError, got %v", err)
	assert.Equal(t, want, code)
}

func TestBoardCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "explicit template", args: []string{"board", "--template", "tpl-1040"}},
		{name: "first active template", args: []string{"board"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			srv.SeedPipeline()
			srv.AddTemplate(model.Template{ID: "tpl-draft", Name: "Draft", IsActive: false})
			app, buf := newTestApp(t, srv)

			_, err := execute(app, "", tt.args...)

			require.NoError(t, err)
			out := buf.String()
			assert.Contains(t, out, "Individual 1040")
			assert.Contains(t, out, "Intake · 1")
			assert.Contains(t, out, "Filing · 0")
			assert.Contains(t, out, "Alice Smith")
			assert.Contains(t, out, "→ Review")
			assert.Contains(t, out, "Active 1")
		})
	}
}

func TestBoardCommand_ConfigDefaultTemplate(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	srv.AddTemplate(model.Template{
		ID: "tpl-1120", Name: "Corporate 1120", IsActive: true,
		Stages: []model.Stage{{ID: "c1", Name: "Books"}},
	})
	app, buf := newTestApp(t, srv)
	app.Config.Board.DefaultTemplate = "tpl-1120"

	_, err := execute(app, "", "board")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Corporate 1120")
	assert.Contains(t, buf.String(), "Books · 0")
	assert.NotContains(t, buf.String(), "Alice Smith")
}

func TestBoardCommand_JSON(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "board", "--json")

	require.NoError(t, err)
	var got struct {
		Template struct {
			ID string `json:"id"`
		} `json:"template"`
		Columns []struct {
			Cards []struct {
				Action string `json:"action"`
			} `json:"cards"`
		} `json:"columns"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "tpl-1040", got.Template.ID)
	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Columns, 3)
	require.Len(t, got.Columns[0].Cards, 1)
	assert.Equal(t, "advance", got.Columns[0].Cards[0].Action)
}

func TestBoardCommand_PartialFailure(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	srv.Fail(apitest.RouteStatistics, "Statistics are being rebuilt")
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "board")

	requireExitCode(t, err, 1)
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Statistics are being rebuilt"), "failure is reported once")
	assert.Contains(t, out, "Failed to load workflow statistics")
	assert.Contains(t, out, "Alice Smith", "loaded slices still render")
}

func TestBoardCommand_UnreachableAPI(t *testing.T) {
	app, buf := newTestApp(t, nil)
	app.Config.API.BaseURL = "not a url"

	_, err := execute(app, "", "board")

	requireExitCode(t, err, 1)
	assert.Contains(t, buf.String(), "invalid api.base_url")
}

func TestTemplatesListCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		contains    []string
		notContains []string
	}{
		{
			name:     "all",
			args:     []string{"templates", "list"},
			contains: []string{"Individual 1040", "Draft"},
		},
		{
			name:        "active only",
			args:        []string{"templates", "list", "--active"},
			contains:    []string{"Individual 1040"},
			notContains: []string{"Draft"},
		},
		{
			name:        "inactive only",
			args:        []string{"templates", "list", "--active=false"},
			contains:    []string{"Draft"},
			notContains: []string{"Individual 1040"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			srv.SeedPipeline()
			srv.AddTemplate(model.Template{ID: "tpl-draft", Name: "Draft"})
			app, buf := newTestApp(t, srv)

			_, err := execute(app, "", tt.args...)

			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestTemplatesShowCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "templates", "show", "tpl-1040")

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Individual 1040")
	assert.Less(t, strings.Index(out, "Intake"), strings.Index(out, "Filing"))
}

func TestTemplatesShowCommand_NotFound(t *testing.T) {
	srv := apitest.New(t)
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "templates", "show", "tpl-missing")

	requireExitCode(t, err, 1)
	assert.Contains(t, buf.String(), "template tpl-missing not found")
}

func TestTemplatesCreateCommand(t *testing.T) {
	srv := apitest.New(t)
	app, buf := newTestApp(t, srv)
	sheet := writeFile(t, "stages.csv", "name,user_type_group\nIntake,taxpayer\nReview,preparer\n")

	_, err := execute(app, "", "templates", "create", "--name", "Individual 1040", "--form", "1040", "--stages", sheet)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ "+workflow.MsgTemplateCreated)
	assert.Contains(t, buf.String(), "Review")
	assert.Equal(t, 1, srv.Calls(apitest.RouteCreateTemplate))
	assert.Equal(t, 1, srv.Calls(apitest.RouteListTemplates), "created template triggers a reload")
}

func TestTemplatesCreateCommand_YAML(t *testing.T) {
	srv := apitest.New(t)
	app, buf := newTestApp(t, srv)
	file := writeFile(t, "template.yaml", `name: Business 1065
tax_form_type: "1065"
stages:
  - {name: Intake, user_type_group: taxpayer}
`)

	_, err := execute(app, "", "templates", "create", "--stages", file, "--inactive", "--json")

	require.NoError(t, err)
	var got model.Template
	require.NoError(t, json.Unmarshal(buf.Bytes()[strings.Index(buf.String(), "{"):], &got))
	assert.Equal(t, "Business 1065", got.Name)
	assert.False(t, got.IsActive)
}

func TestTemplatesCreateCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(sheet string) []string
		wantMsg string
	}{
		{
			name:    "sheet without name",
			args:    func(sheet string) []string { return []string{"templates", "create", "--stages", sheet} },
			wantMsg: "template name is required",
		},
		{
			name:    "missing sheet",
			args:    func(string) []string { return []string{"templates", "create", "--name", "X", "--stages", "/nonexistent/stages.csv"} },
			wantMsg: "failed to open stage sheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			app, buf := newTestApp(t, srv)
			sheet := writeFile(t, "stages.csv", "name,user_type_group\nIntake,taxpayer\n")

			_, err := execute(app, "", tt.args(sheet)...)

			requireExitCode(t, err, 1)
			assert.Contains(t, buf.String(), tt.wantMsg)
			assert.Zero(t, srv.Calls(apitest.RouteCreateTemplate))
		})
	}
}

func TestTemplatesCreateCommand_ServerRejects(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(apitest.RouteCreateTemplate, "A template with this name already exists")
	app, buf := newTestApp(t, srv)
	sheet := writeFile(t, "stages.csv", "name,user_type_group\nIntake,taxpayer\n")

	_, err := execute(app, "", "templates", "create", "--name", "Dup", "--stages", sheet)

	requireExitCode(t, err, 1)
	assert.Equal(t, 1, strings.Count(buf.String(), "A template with this name already exists"))
}

func TestTemplatesUpdateCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, _ := newTestApp(t, srv)

	_, err := execute(app, "", "templates", "update", "tpl-1040", "--name", "Individual 1040 (2024)", "--active=false")

	require.NoError(t, err)
	tpl, ok := srv.Template("tpl-1040")
	require.True(t, ok)
	assert.Equal(t, "Individual 1040 (2024)", tpl.Name)
	assert.False(t, tpl.IsActive)
	require.Len(t, tpl.Stages, 3, "stages are kept without --stages")
	assert.Equal(t, "Filing", tpl.Stages[2].Name)
	assert.Equal(t, "1040", tpl.TaxFormType)
}

func TestTemplatesUpdateCommand_ReplaceStages(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, _ := newTestApp(t, srv)
	sheet := writeFile(t, "stages.csv", "name,user_type_group\nCollect,taxpayer\nFile,admin\n")

	_, err := execute(app, "", "templates", "update", "tpl-1040", "--stages", sheet)

	require.NoError(t, err)
	tpl, _ := srv.Template("tpl-1040")
	assert.Equal(t, "Individual 1040", tpl.Name)
	require.Len(t, tpl.Stages, 2)
	assert.Equal(t, "Collect", tpl.Stages[0].Name)
}

func TestTemplatesCloneCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "templates", "clone", "tpl-1040")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ "+workflow.MsgTemplateCloned)
	assert.Contains(t, buf.String(), "Individual 1040 (Copy)")
}

func TestTemplatesDeleteCommand(t *testing.T) {
	tests := []struct {
		name        string
		answer      bool
		setup       func(*apitest.Server)
		args        []string
		wantErr     bool
		wantMsg     string
		wantDeleted bool
	}{
		{
			name:        "confirmed",
			answer:      true,
			args:        []string{"templates", "delete", "tpl-draft"},
			wantMsg:     workflow.MsgTemplateDeleted,
			wantDeleted: true,
		},
		{
			name:    "declined",
			answer:  false,
			args:    []string{"templates", "delete", "tpl-draft"},
			wantMsg: "Delete cancelled.",
		},
		{
			name:        "yes flag skips prompt",
			answer:      false,
			args:        []string{"templates", "delete", "tpl-draft", "--yes"},
			wantMsg:     workflow.MsgTemplateDeleted,
			wantDeleted: true,
		},
		{
			name:    "server refuses",
			answer:  true,
			setup:   func(s *apitest.Server) { s.Fail(apitest.RouteDeleteTemplate, "Cannot delete a template with active workflows") },
			args:    []string{"templates", "delete", "tpl-draft"},
			wantErr: true,
			wantMsg: "Cannot delete a template with active workflows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			srv.AddTemplate(model.Template{ID: "tpl-draft", Name: "Draft"})
			if tt.setup != nil {
				tt.setup(srv)
			}
			app, buf := newTestApp(t, srv)
			confirmer := &MockConfirmer{Answer: tt.answer}
			app.Confirmer = confirmer

			_, err := execute(app, "", tt.args...)

			if tt.wantErr {
				requireExitCode(t, err, 1)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, strings.Count(buf.String(), tt.wantMsg))
			_, exists := srv.Template("tpl-draft")
			assert.Equal(t, !tt.wantDeleted, exists)
		})
	}
}

func TestInstancesListCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	srv.AddInstance(model.Instance{ID: "inst-p", TemplateID: "tpl-1040", CurrentStageID: "stage-b", Status: model.StatusPaused, TaxCaseName: "Bob Jones"})
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "instances", "list", "--status", "PAUSED")

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Bob Jones")
	assert.Contains(t, out, "Review")
	assert.Contains(t, out, "Individual 1040")
	assert.NotContains(t, out, "Alice Smith")
}

func TestInstancesListCommand_UnknownStatus(t *testing.T) {
	srv := apitest.New(t)
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "instances", "list", "--status", "archived")

	requireExitCode(t, err, 1)
	assert.Contains(t, buf.String(), `unknown status "archived"`)
	assert.Contains(t, buf.String(), "active, paused, completed, cancelled")
	assert.Zero(t, srv.Calls(apitest.RouteListInstances))
}

func TestInstancesListCommand_TransportFailure(t *testing.T) {
	srv := apitest.New(t)
	srv.Break(apitest.RouteListInstances)
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "instances", "list")

	requireExitCode(t, err, 1)
	assert.Contains(t, buf.String(), "Something went wrong. Please try again.")
}

func TestInstancesShowCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "instances", "show", "inst-x")

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Alice Smith")
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "Intake")
	assert.Contains(t, out, "Advance to Review")
	assert.Contains(t, out, "Execution log")
}

func TestInstancesShowCommand_NotFound(t *testing.T) {
	srv := apitest.New(t)
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "instances", "show", "inst-missing")

	requireExitCode(t, err, 1)
	assert.Equal(t, 1, strings.Count(buf.String(), "instance inst-missing not found"))
}

func TestStartCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "start", "--template", "tpl-1040", "--tax-case", "case-9", "--preparer", "u-3")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ "+workflow.MsgWorkflowStarted)
	assert.Contains(t, buf.String(), "Workflow id: ")
	assert.Equal(t, 1, srv.Calls(apitest.RouteStart))
}

func TestStartCommand_MissingFlag(t *testing.T) {
	srv := apitest.New(t)
	app, _ := newTestApp(t, srv)

	_, err := execute(app, "", "start", "--template", "tpl-1040")

	require.Error(t, err)
	_, isExit := IsExitError(err)
	assert.False(t, isExit, "flag errors come from cobra")
	assert.Contains(t, err.Error(), "tax-case")
	assert.Zero(t, srv.Calls(apitest.RouteStart))
}

func TestStatsCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "stats", "--from", "2024-01-01", "--to", "2024-03-31")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Workflow statistics")
	assert.Contains(t, buf.String(), "1 (1 active)")
}

func TestStatsCommand_JSON(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	srv.SetLegacyKeys(true)
	app, buf := newTestApp(t, srv)

	_, err := execute(app, "", "stats", "--json")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.EqualValues(t, 1, got["total_templates"])
	assert.EqualValues(t, 1, got["active_instances"])
}

func TestStatisticsOptions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{name: "empty"},
		{name: "range", from: "2024-01-01", to: "2024-01-31"},
		{name: "bad from", from: "01/02/2024", wantErr: "invalid --from"},
		{name: "bad to", to: "tomorrow", wantErr: "invalid --to"},
		{name: "reversed", from: "2024-02-01", to: "2024-01-01", wantErr: "--to is before --from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := statisticsOptions(tt.from, tt.to, "month")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "month", opts.Period)
			assert.Equal(t, tt.from == "", opts.StartDate.IsZero())
		})
	}
}

func TestVersionCommand(t *testing.T) {
	app, _ := newTestApp(t, nil)

	out, err := execute(app, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "workflowdesk "+Version)
	assert.Contains(t, out, "Git Commit:")
}

func TestGlobalFlags_APIURL(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, nil)

	_, err := execute(app, "", "--api-url", srv.URL(), "templates", "list")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Individual 1040")
}

func TestGlobalFlags_Config(t *testing.T) {
	srv := apitest.New(t)
	srv.SeedPipeline()
	app, buf := newTestApp(t, nil)
	path := writeFile(t, "config.yaml", "api:\n  base_url: "+srv.URL()+"\n  tenant_id: firm-7\n")

	_, err := execute(app, "", "--config", path, "templates", "list")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Individual 1040")
	assert.Equal(t, "firm-7", srv.LastHeader("X-Tenant-ID"))
}

func TestGlobalFlags_BadConfig(t *testing.T) {
	app, buf := newTestApp(t, nil)

	_, err := execute(app, "", "--config", "/nonexistent/config.yaml", "board")

	requireExitCode(t, err, 1)
	assert.Contains(t, buf.String(), "error reading config file")
}

const cliSnapshot = `templates:
  - id: tpl-1040
    name: Individual 1040
    is_active: true
    stages:
      - {id: s1, name: Intake, user_type_group: taxpayer}
      - {id: s2, name: Review, user_type_group: preparer}
instances:
  - id: inst-1
    workflow_template: tpl-1040
    current_stage: s1
    status: active
    tax_case_name: Alice Smith
`

func TestSnapshotMode(t *testing.T) {
	path := writeFile(t, "workflowdesk-snapshot.yaml", cliSnapshot)

	t.Run("board renders from the file", func(t *testing.T) {
		app, buf := newTestApp(t, nil)

		_, err := execute(app, "", "--snapshot", path, "board")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Intake · 1")
		assert.Contains(t, buf.String(), "Alice Smith")
	})

	t.Run("transitions are refused", func(t *testing.T) {
		app, buf := newTestApp(t, nil)

		_, err := execute(app, "", "--snapshot", path, "advance", "inst-1")

		requireExitCode(t, err, 1)
		assert.Contains(t, buf.String(), "snapshot mode is read-only")
	})

	t.Run("template edits are refused", func(t *testing.T) {
		app, buf := newTestApp(t, nil)

		_, err := execute(app, "", "--snapshot", path, "templates", "clone", "tpl-1040")

		requireExitCode(t, err, 1)
		assert.Contains(t, buf.String(), workflow.ErrReadOnly.Error())
	})

	t.Run("template show falls back to the list", func(t *testing.T) {
		app, buf := newTestApp(t, nil)

		_, err := execute(app, "", "--snapshot", path, "templates", "show", "tpl-1040")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Review")
	})
}

func TestDefaultTemplateID(t *testing.T) {
	tests := []struct {
		name      string
		templates []model.Template
		want      string
	}{
		{name: "none", want: ""},
		{name: "first active", templates: []model.Template{{ID: "a"}, {ID: "b", IsActive: true}, {ID: "c", IsActive: true}}, want: "b"},
		{name: "no active", templates: []model.Template{{ID: "a"}, {ID: "b"}}, want: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultTemplateID(tt.templates))
		})
	}
}
