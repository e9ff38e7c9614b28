package workflow

import (
	"workflowdesk/internal/model"
	"workflowdesk/internal/resolve"
)

// Key aliases per statistic, in priority order. Server versions disagree on
// naming and on whether counters sit under a "value" wrapper.
var (
	totalTemplatesKeys  = []string{"total_templates", "templates_total", "template_count"}
	activeTemplatesKeys = []string{"active_templates"}
	totalInstancesKeys  = []string{"total_instances", "total_workflows"}
	activeKeys          = []string{"active_workflows", "active_instances"}
	pausedKeys          = []string{"paused_workflows", "paused_instances"}
	completedKeys       = []string{"completed_workflows", "completed_instances"}
	cancelledKeys       = []string{"cancelled_workflows", "cancelled_instances"}
	avgHoursKeys        = []string{"average_completion_time_hours", "avg_completion_hours"}
)

// MapStatistics normalizes a raw statistics object.
//
// For every statistic the "value" wrapper is consulted first, then the flat
// key, alias by alias. Missing or non-numeric values map to zero.
func MapStatistics(raw map[string]any) model.Statistics {
	var avg float64
	if v, ok := resolve.Float(raw, statPaths(avgHoursKeys)...); ok {
		avg = v
	}
	return model.Statistics{
		TotalTemplates:         resolve.Int(raw, statPaths(totalTemplatesKeys)...),
		ActiveTemplates:        resolve.Int(raw, statPaths(activeTemplatesKeys)...),
		TotalInstances:         resolve.Int(raw, statPaths(totalInstancesKeys)...),
		ActiveInstances:        resolve.Int(raw, statPaths(activeKeys)...),
		PausedInstances:        resolve.Int(raw, statPaths(pausedKeys)...),
		CompletedInstances:     resolve.Int(raw, statPaths(completedKeys)...),
		CancelledInstances:     resolve.Int(raw, statPaths(cancelledKeys)...),
		AverageCompletionHours: avg,
	}
}

func statPaths(keys []string) []resolve.Path {
	paths := make([]resolve.Path, 0, len(keys)*2)
	for _, k := range keys {
		paths = append(paths, resolve.P("value", k), resolve.P(k))
	}
	return paths
}
