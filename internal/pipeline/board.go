package pipeline

import (
	"errors"

	"workflowdesk/internal/model"
)

// Sentinel errors for transition planning.
var (
	// ErrTemplateNotFound indicates the instance's template is not loaded.
	ErrTemplateNotFound = errors.New("workflow template not found")

	// ErrNoNextStage indicates the instance is at its last stage, or not in
	// any stage of its template.
	ErrNoNextStage = errors.New("instance has no next stage")

	// ErrNotCompletable indicates the instance is not active at the last
	// stage of its template.
	ErrNotCompletable = errors.New("instance is not active at its last stage")
)

// Action is the transition a card offers.
type Action int

const (
	// ActionNone means no transition is offered.
	ActionNone Action = iota

	// ActionAdvance moves the instance to the next stage.
	ActionAdvance

	// ActionComplete marks an instance at its last stage completed.
	ActionComplete
)

// String returns the action verb.
func (a Action) String() string {
	switch a {
	case ActionAdvance:
		return "advance"
	case ActionComplete:
		return "complete"
	default:
		return "none"
	}
}

// MarshalText renders the action verb in JSON output.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Card is one instance on the board.
type Card struct {
	Instance model.Instance `json:"instance"`
	Action   Action         `json:"action"`
	Next     *model.Stage   `json:"next_stage,omitempty"`
}

// Column is one stage of the board.
type Column struct {
	Stage model.Stage `json:"stage"`
	Cards []Card      `json:"cards"`
}

// Board is the pipeline view model for one template.
//
// Columns, Unstaged and Completed partition the filtered instances: a
// completed instance goes to Completed even when it still reports a stage.
type Board struct {
	Template  *model.Template `json:"template,omitempty"`
	Columns   []Column        `json:"columns"`
	Unstaged  []Card          `json:"unstaged"`
	Completed []Card          `json:"completed"`
	Summary   Summary         `json:"summary"`
	Total     int             `json:"total"`
}

// AvailableAction returns what a user may do with inst given its template's
// stages.
//
// Advance is offered when a next stage exists and the instance is neither
// completed nor cancelled. Complete is offered when the instance sits at the
// last stage and is active. Unstaged instances get no action.
func AvailableAction(inst model.Instance, stages []model.Stage) (Action, *model.Stage) {
	idx := StageIndex(stages, inst.CurrentStageID)
	if idx < 0 {
		return ActionNone, nil
	}
	status := normalized(inst.Status)
	if next := NextStage(stages, idx); next != nil {
		if status.IsTerminal() {
			return ActionNone, nil
		}
		return ActionAdvance, next
	}
	if status == model.StatusActive {
		return ActionComplete, nil
	}
	return ActionNone, nil
}

// PlanAdvance resolves the stage an instance would advance to.
//
// The templates and instance come from a snapshot; nothing is fetched.
func PlanAdvance(templates []model.Template, inst model.Instance) (model.Stage, error) {
	tpl := SelectTemplate(templates, inst.TemplateID)
	if tpl == nil {
		return model.Stage{}, ErrTemplateNotFound
	}
	next := NextStage(tpl.Stages, StageIndex(tpl.Stages, inst.CurrentStageID))
	if next == nil {
		return model.Stage{}, ErrNoNextStage
	}
	return *next, nil
}

// CheckComplete reports whether inst may be completed: it must be active at
// the last stage of its template, the same rule [AvailableAction] applies.
func CheckComplete(templates []model.Template, inst model.Instance) error {
	tpl := SelectTemplate(templates, inst.TemplateID)
	if tpl == nil {
		return ErrTemplateNotFound
	}
	if action, _ := AvailableAction(inst, tpl.Stages); action != ActionComplete {
		return ErrNotCompletable
	}
	return nil
}

// Build assembles the board for templateID.
//
// Instances are filtered to the template first. Completed instances are
// taken out before stage bucketing. When the template is not
// loaded (not fetched yet, or unknown id) every filtered instance is unstaged
// and Template is nil.
func Build(templates []model.Template, instances []model.Instance, templateID string) Board {
	filtered := FilterInstancesByTemplate(instances, templateID)
	tpl := SelectTemplate(templates, templateID)

	var stages []model.Stage
	if tpl != nil {
		stages = tpl.Stages
	}

	open := make([]model.Instance, 0, len(filtered))
	for _, inst := range filtered {
		if normalized(inst.Status) != model.StatusCompleted {
			open = append(open, inst)
		}
	}

	board := Board{
		Template:  tpl,
		Columns:   make([]Column, 0, len(stages)),
		Unstaged:  cards(UnstagedInstances(open, stages), stages),
		Completed: cards(CompletedInstances(filtered), stages),
		Summary:   ComputeSummary(filtered),
		Total:     len(filtered),
	}

	groups := GroupByStage(open, stages)
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		col := Column{Stage: s, Cards: []Card{}}
		// A repeated stage id keeps its instances in the first column only.
		if !seen[s.ID] {
			seen[s.ID] = true
			col.Cards = cards(groups[s.ID], stages)
		}
		board.Columns = append(board.Columns, col)
	}
	return board
}

func cards(instances []model.Instance, stages []model.Stage) []Card {
	out := make([]Card, len(instances))
	for i, inst := range instances {
		action, next := AvailableAction(inst, stages)
		out[i] = Card{Instance: inst, Action: action, Next: next}
	}
	return out
}
