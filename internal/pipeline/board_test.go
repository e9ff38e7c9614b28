package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflowdesk/internal/model"
)

func TestAvailableAction(t *testing.T) {
	tests := []struct {
		name       string
		inst       model.Instance
		wantAction Action
		wantNext   string
	}{
		{name: "active at first stage", inst: model.Instance{CurrentStageID: "a", Status: model.StatusActive}, wantAction: ActionAdvance, wantNext: "b"},
		{name: "paused mid pipeline", inst: model.Instance{CurrentStageID: "b", Status: model.StatusPaused}, wantAction: ActionAdvance, wantNext: "c"},
		{name: "active at last stage", inst: model.Instance{CurrentStageID: "c", Status: model.StatusActive}, wantAction: ActionComplete},
		{name: "paused at last stage", inst: model.Instance{CurrentStageID: "c", Status: model.StatusPaused}, wantAction: ActionNone},
		{name: "completed mid pipeline", inst: model.Instance{CurrentStageID: "a", Status: model.StatusCompleted}, wantAction: ActionNone},
		{name: "cancelled", inst: model.Instance{CurrentStageID: "b", Status: model.StatusCancelled}, wantAction: ActionNone},
		{name: "unstaged", inst: model.Instance{Status: model.StatusActive}, wantAction: ActionNone},
		{name: "unknown status can advance", inst: model.Instance{CurrentStageID: "a", Status: "UNKNOWN_STATUS"}, wantAction: ActionAdvance, wantNext: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, next := AvailableAction(tt.inst, stagesABC)
			assert.Equal(t, tt.wantAction, action)
			if tt.wantNext == "" {
				assert.Nil(t, next)
				return
			}
			require.NotNil(t, next)
			assert.Equal(t, tt.wantNext, next.ID)
		})
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "advance", ActionAdvance.String())
	assert.Equal(t, "complete", ActionComplete.String())
	assert.Equal(t, "none", ActionNone.String())

	text, err := ActionAdvance.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "advance", string(text))
}

func TestPlanAdvance(t *testing.T) {
	templates := []model.Template{{ID: "t1", Stages: stagesABC}}

	stage, err := PlanAdvance(templates, model.Instance{TemplateID: "t1", CurrentStageID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "b", stage.ID)

	_, err = PlanAdvance(templates, model.Instance{TemplateID: "t1", CurrentStageID: "c"})
	assert.ErrorIs(t, err, ErrNoNextStage)

	_, err = PlanAdvance(templates, model.Instance{TemplateID: "t1"})
	assert.ErrorIs(t, err, ErrNoNextStage)

	_, err = PlanAdvance(templates, model.Instance{TemplateID: "t9", CurrentStageID: "a"})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestCheckComplete(t *testing.T) {
	templates := []model.Template{{ID: "t1", Stages: stagesABC}}

	tests := []struct {
		name string
		inst model.Instance
		want error
	}{
		{name: "active at last stage", inst: model.Instance{TemplateID: "t1", CurrentStageID: "c", Status: model.StatusActive}},
		{name: "mid pipeline", inst: model.Instance{TemplateID: "t1", CurrentStageID: "a", Status: model.StatusActive}, want: ErrNotCompletable},
		{name: "paused at last stage", inst: model.Instance{TemplateID: "t1", CurrentStageID: "c", Status: model.StatusPaused}, want: ErrNotCompletable},
		{name: "already completed", inst: model.Instance{TemplateID: "t1", CurrentStageID: "c", Status: model.StatusCompleted}, want: ErrNotCompletable},
		{name: "unstaged", inst: model.Instance{TemplateID: "t1", Status: model.StatusActive}, want: ErrNotCompletable},
		{name: "template not loaded", inst: model.Instance{TemplateID: "t9", CurrentStageID: "c", Status: model.StatusActive}, want: ErrTemplateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckComplete(templates, tt.inst)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuild(t *testing.T) {
	templates := []model.Template{
		{ID: "t1", Name: "Individual", Stages: stagesABC},
		{ID: "t2", Name: "Business", Stages: []model.Stage{{ID: "x"}}},
	}
	instances := []model.Instance{
		{ID: "1", TemplateID: "t1", CurrentStageID: "a", Status: model.StatusActive, ProgressPercentage: 10},
		{ID: "2", TemplateID: "t1", CurrentStageID: "c", Status: model.StatusActive, ProgressPercentage: 90},
		{ID: "3", TemplateID: "t1", Status: model.StatusCompleted, ProgressPercentage: 100},
		{ID: "4", TemplateID: "t2", CurrentStageID: "x", Status: model.StatusActive},
	}

	board := Build(templates, instances, "t1")

	require.NotNil(t, board.Template)
	assert.Equal(t, "Individual", board.Template.Name)
	assert.Equal(t, 3, board.Total)
	require.Len(t, board.Columns, 3)

	assert.Equal(t, "a", board.Columns[0].Stage.ID)
	require.Len(t, board.Columns[0].Cards, 1)
	assert.Equal(t, ActionAdvance, board.Columns[0].Cards[0].Action)
	assert.Equal(t, "b", board.Columns[0].Cards[0].Next.ID)

	assert.Empty(t, board.Columns[1].Cards)
	assert.NotNil(t, board.Columns[1].Cards)

	require.Len(t, board.Columns[2].Cards, 1)
	assert.Equal(t, ActionComplete, board.Columns[2].Cards[0].Action)

	assert.Empty(t, board.Unstaged)
	require.Len(t, board.Completed, 1)
	assert.Equal(t, "3", board.Completed[0].Instance.ID)

	assert.Equal(t, 2, board.Summary.ActiveCount)
	assert.Equal(t, 1, board.Summary.CompletedCount)
	assert.InDelta(t, 66.666, board.Summary.AverageProgress, 0.01)
}

func TestBuild_CompletedAtStage(t *testing.T) {
	templates := []model.Template{{ID: "t1", Stages: stagesABC}}
	instances := []model.Instance{
		{ID: "x", TemplateID: "t1", CurrentStageID: "c", Status: model.StatusCompleted},
		{ID: "y", TemplateID: "t1", CurrentStageID: "a", Status: "COMPLETED"},
		{ID: "z", TemplateID: "t1", CurrentStageID: "a", Status: model.StatusPaused},
	}

	board := Build(templates, instances, "t1")

	require.Len(t, board.Columns, 3)
	require.Len(t, board.Columns[0].Cards, 1)
	assert.Equal(t, "z", board.Columns[0].Cards[0].Instance.ID)
	assert.Empty(t, board.Columns[2].Cards)
	assert.Empty(t, board.Unstaged)
	require.Len(t, board.Completed, 2)
	assert.Equal(t, "x", board.Completed[0].Instance.ID)
	assert.Equal(t, "y", board.Completed[1].Instance.ID)
	assert.Equal(t, 3, board.Total)
}

func TestBuild_TemplatesNotLoaded(t *testing.T) {
	instances := []model.Instance{
		{ID: "1", TemplateID: "t1", CurrentStageID: "a"},
		{ID: "2", TemplateID: "t1", CurrentStageID: "b"},
	}

	board := Build(nil, instances, "t1")

	assert.Nil(t, board.Template)
	assert.Empty(t, board.Columns)
	assert.Len(t, board.Unstaged, 2)
	assert.Equal(t, 2, board.Total)
}

func TestBuild_DuplicateStageIDs(t *testing.T) {
	templates := []model.Template{{ID: "t1", Stages: []model.Stage{{ID: "a"}, {ID: "a"}, {ID: "b"}}}}
	instances := []model.Instance{{ID: "1", TemplateID: "t1", CurrentStageID: "a"}}

	board := Build(templates, instances, "t1")

	require.Len(t, board.Columns, 3)
	assert.Len(t, board.Columns[0].Cards, 1)
	assert.Empty(t, board.Columns[1].Cards)
}

func TestBuild_DoesNotMutateInputs(t *testing.T) {
	templates := []model.Template{{ID: "t1", Stages: stagesABC}}
	instances := []model.Instance{{ID: "1", TemplateID: "t1", CurrentStageID: "a", ProgressPercentage: 33.3}}
	before := instances[0]

	board := Build(templates, instances, "t1")
	board.Columns[0].Cards[0].Instance.CurrentStageID = "changed"
	board.Template.Stages[0].Name = "changed"

	assert.Equal(t, before, instances[0])
	assert.Equal(t, "Intake", templates[0].Stages[0].Name)
}
