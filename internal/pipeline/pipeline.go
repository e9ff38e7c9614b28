// Package pipeline derives the stage board for a workflow template.
//
// Every function here is pure and total: inputs are never modified, nothing
// does I/O, and malformed data degrades to empty buckets or zero values
// instead of panicking. Bucket membership is a function of an instance's
// status, its current stage id and the template's stage list only.
//
// Stage progression is positional. The stage after stages[i] is stages[i+1];
// templates declare no transition graph.
//
// Key types:
//   - [Board] is the complete view model for one template
//   - [Column] is one stage with the cards currently in it
//   - [Card] is an instance plus the transition available to it
//   - [Summary] holds the status counts and average progress
package pipeline

import "workflowdesk/internal/model"

// SelectTemplate returns the template with the given id, or nil when id is
// empty or unknown. The returned template is a copy.
func SelectTemplate(templates []model.Template, id string) *model.Template {
	if id == "" {
		return nil
	}
	for _, t := range templates {
		if t.ID == id {
			c := t.Clone()
			return &c
		}
	}
	return nil
}

// FilterInstancesByTemplate returns the instances of one template. An empty
// id returns all instances. The result is always a new slice.
func FilterInstancesByTemplate(instances []model.Instance, templateID string) []model.Instance {
	out := make([]model.Instance, 0, len(instances))
	for _, inst := range instances {
		if templateID == "" || inst.TemplateID == templateID {
			out = append(out, inst)
		}
	}
	return out
}

// StageIndex returns the position of the stage with the given id, or -1.
func StageIndex(stages []model.Stage, id string) int {
	if id == "" {
		return -1
	}
	for i, s := range stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// NextStage returns the stage after currentIndex, or nil when currentIndex is
// the last index or out of range.
func NextStage(stages []model.Stage, currentIndex int) *model.Stage {
	if currentIndex < 0 || currentIndex+1 >= len(stages) {
		return nil
	}
	next := stages[currentIndex+1]
	return &next
}

// GroupByStage buckets instances by exact current stage id.
//
// Every stage id of the template is a key, possibly with an empty bucket. An
// instance lands in the first stage (in template order) whose id matches and
// in no other. Instances matching no stage are left out; see
// [UnstagedInstances].
func GroupByStage(instances []model.Instance, stages []model.Stage) map[string][]model.Instance {
	groups := make(map[string][]model.Instance, len(stages))
	for _, s := range stages {
		if _, ok := groups[s.ID]; !ok {
			groups[s.ID] = []model.Instance{}
		}
	}
	for _, inst := range instances {
		if i := StageIndex(stages, inst.CurrentStageID); i >= 0 {
			id := stages[i].ID
			groups[id] = append(groups[id], inst)
		}
	}
	return groups
}

// UnstagedInstances returns instances whose current stage is empty or not a
// stage of the template.
func UnstagedInstances(instances []model.Instance, stages []model.Stage) []model.Instance {
	out := []model.Instance{}
	for _, inst := range instances {
		if StageIndex(stages, inst.CurrentStageID) < 0 {
			out = append(out, inst)
		}
	}
	return out
}

// CompletedInstances returns instances whose status is completed. It is an
// overlay on top of the stage buckets, not a partition of them.
func CompletedInstances(instances []model.Instance) []model.Instance {
	out := []model.Instance{}
	for _, inst := range instances {
		if normalized(inst.Status) == model.StatusCompleted {
			out = append(out, inst)
		}
	}
	return out
}

// Summary holds the counts shown above the board.
type Summary struct {
	ActiveCount     int     `json:"active_count"`
	PausedCount     int     `json:"paused_count"`
	CompletedCount  int     `json:"completed_count"`
	AverageProgress float64 `json:"average_progress"`
}

// ComputeSummary counts instances by status, ignoring case, and averages
// progress over every instance given. An empty list yields a zero Summary.
func ComputeSummary(instances []model.Instance) Summary {
	var s Summary
	if len(instances) == 0 {
		return s
	}
	total := 0.0
	for _, inst := range instances {
		switch normalized(inst.Status) {
		case model.StatusActive:
			s.ActiveCount++
		case model.StatusPaused:
			s.PausedCount++
		case model.StatusCompleted:
			s.CompletedCount++
		}
		total += inst.ProgressPercentage
	}
	s.AverageProgress = total / float64(len(instances))
	return s
}

// normalized re-parses statuses so values built outside the api decoder
// (tests, snapshots) compare case-insensitively too.
func normalized(s model.Status) model.Status {
	return model.ParseStatus(string(s))
}
