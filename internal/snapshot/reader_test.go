package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflowdesk/internal/api"
	"workflowdesk/internal/model"
	"workflowdesk/internal/pipeline"
	"workflowdesk/internal/workflow"
)

const sampleSnapshot = `templates:
  - id: tpl-1040
    name: Individual 1040
    is_active: true
    stages:
      - {id: s1, name: Intake, user_type_group: taxpayer}
      - {id: s2, name: Review, user_type_group: preparer}
  - id: tpl-old
    name: Retired
    is_active: false
    stages: []
instances:
  - id: inst-1
    workflow_template: tpl-1040
    current_stage: s1
    status: active
    progress_percentage: 25
    tax_case_name: Alice Smith
  - id: inst-2
    workflow_template_id: tpl-1040
    current_stage_id: s2
    status: PAUSED
    tax_case_details: {name: Bob Jones, email: bob@example.com}
    created_at: 2024-02-01T10:00:00Z
statistics:
  value:
    total_templates: 2
  active_workflows: 1
  paused_workflows: 1
logs:
  inst-1:
    - id: log-1
      action: started
      notes: Created from intake form
      performed_by_name: Pat
      created_at: "2024-02-01T10:00:00Z"
`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReader_Read_Success(t *testing.T) {
	r := NewReader(writeSnapshot(t, sampleSnapshot))

	doc, err := r.Read()

	require.NoError(t, err)
	assert.Len(t, doc.Templates, 2)
	assert.Len(t, doc.Instances, 2)
	assert.Len(t, doc.Logs["inst-1"], 1)
}

func TestReader_Read_FileNotFound(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := r.Read()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read snapshot")
}

func TestReader_Read_InvalidYAML(t *testing.T) {
	r := NewReader(writeSnapshot(t, "templates: [unclosed"))

	_, err := r.Read()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse snapshot")
}

func TestReader_ListTemplates(t *testing.T) {
	r := NewReader(writeSnapshot(t, sampleSnapshot))
	ctx := context.Background()

	all, err := r.ListTemplates(ctx, api.ListTemplatesOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"s1", "s2"}, []string{all[0].Stages[0].ID, all[0].Stages[1].ID})

	active := true
	filtered, err := r.ListTemplates(ctx, api.ListTemplatesOptions{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "tpl-1040", filtered[0].ID)
}

func TestReader_ListInstances_NormalizesBothShapes(t *testing.T) {
	r := NewReader(writeSnapshot(t, sampleSnapshot))

	instances, err := r.ListInstances(context.Background(), api.ListInstancesOptions{})

	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, "tpl-1040", instances[0].TemplateID)
	assert.Equal(t, "s1", instances[0].CurrentStageID)
	assert.Equal(t, "Alice Smith", instances[0].ClientName())

	assert.Equal(t, "tpl-1040", instances[1].TemplateID)
	assert.Equal(t, "s2", instances[1].CurrentStageID)
	assert.Equal(t, model.StatusPaused, instances[1].Status)
	assert.Equal(t, "Bob Jones", instances[1].ClientName())
	assert.Equal(t, "bob@example.com", instances[1].ClientEmail())
	require.NotNil(t, instances[1].CreatedAt)
	assert.Equal(t, 2024, instances[1].CreatedAt.Year())
}

func TestReader_ListInstances_Filters(t *testing.T) {
	r := NewReader(writeSnapshot(t, sampleSnapshot))
	ctx := context.Background()

	paused, err := r.ListInstances(ctx, api.ListInstancesOptions{Status: "paused"})
	require.NoError(t, err)
	require.Len(t, paused, 1)
	assert.Equal(t, "inst-2", paused[0].ID)

	none, err := r.ListInstances(ctx, api.ListInstancesOptions{TemplateID: "tpl-old"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReader_Statistics(t *testing.T) {
	r := NewReader(writeSnapshot(t, sampleSnapshot))

	raw, err := r.Statistics(context.Background(), api.StatisticsOptions{Period: "month"})
	require.NoError(t, err)

	stats := workflow.MapStatistics(raw)
	assert.Equal(t, 2, stats.TotalTemplates)
	assert.Equal(t, 1, stats.ActiveInstances)
	assert.Equal(t, 1, stats.PausedInstances)

	empty := NewReader(writeSnapshot(t, "templates: []\n"))
	raw, err = empty.Statistics(context.Background(), api.StatisticsOptions{})
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestReader_Detail(t *testing.T) {
	r := NewReader(writeSnapshot(t, sampleSnapshot))
	ctx := context.Background()

	inst, err := r.GetInstance(ctx, "inst-2")
	require.NoError(t, err)
	assert.Equal(t, "inst-2", inst.ID)

	_, err = r.GetInstance(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, "instance missing not found in snapshot", api.UserMessage(err))

	logs, err := r.ExecutionLogs(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "started", logs[0].Action)
	assert.Equal(t, "Created from intake form", logs[0].Message)
	assert.Equal(t, "Pat", logs[0].ActorName)
	assert.Equal(t, "inst-1", logs[0].InstanceID)

	logs, err = r.ExecutionLogs(ctx, "inst-2")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestReader_AsManagerSource(t *testing.T) {
	r := NewReader(writeSnapshot(t, sampleSnapshot))
	m := workflow.NewManager(r, nopNotifier{})

	require.NoError(t, m.RefreshAll(context.Background()))
	assert.False(t, m.CanEdit(), "snapshots are read-only")

	board := m.Snapshot().Board("tpl-1040")
	require.Len(t, board.Columns, 2)
	require.Len(t, board.Columns[0].Cards, 1)
	assert.Equal(t, pipeline.ActionAdvance, board.Columns[0].Cards[0].Action)
	require.Len(t, board.Columns[1].Cards, 1)
	assert.Equal(t, pipeline.ActionNone, board.Columns[1].Cards[0].Action, "paused at last stage")
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

func TestResolvePath(t *testing.T) {
	t.Run("env var overrides explicit path", func(t *testing.T) {
		t.Setenv(EnvPath, "/env/snap.yaml")
		assert.Equal(t, "/env/snap.yaml", ResolvePath("", "/explicit.yaml"))
	})

	t.Run("explicit path", func(t *testing.T) {
		t.Setenv(EnvPath, "")
		assert.Equal(t, "/explicit.yaml", ResolvePath("", "/explicit.yaml"))
	})

	t.Run("discovers default file", func(t *testing.T) {
		t.Setenv(EnvPath, "")
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("{}"), 0644))
		assert.Equal(t, filepath.Join(dir, DefaultFile), ResolvePath(dir, ""))
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv(EnvPath, "")
		assert.Equal(t, "", ResolvePath(t.TempDir(), ""))
	})
}
