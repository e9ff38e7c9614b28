package api

import (
	"workflowdesk/internal/model"
	"workflowdesk/internal/resolve"
)

var p = resolve.P

// Field resolution orders. Flat fields come before nested detail objects,
// which come before embedded records.
var (
	templateRefPaths  = []resolve.Path{p("workflow_template"), p("workflow_template_id"), p("template"), p("template_id")}
	templateNamePaths = []resolve.Path{p("workflow_template_name"), p("template_name"), p("workflow_template", "name"), p("template", "name")}
	stageRefPaths     = []resolve.Path{p("current_stage"), p("current_stage_id")}
	stageNamePaths    = []resolve.Path{p("current_stage_name"), p("current_stage_details", "name"), p("current_stage", "name")}
	clientNamePaths   = []resolve.Path{p("tax_case_name"), p("tax_case_details", "name"), p("tax_case", "name")}
	clientEmailPaths  = []resolve.Path{p("tax_case_email"), p("tax_case_details", "email"), p("tax_case", "email"), p("taxpayer_email")}
	preparerPaths     = []resolve.Path{p("assigned_preparer_name"), p("assigned_preparer_details", "name"), p("assigned_preparer", "name")}
	taxCaseRefPaths   = []resolve.Path{p("tax_case"), p("tax_case_id")}
	progressPaths     = []resolve.Path{p("progress_percentage"), p("progress")}
)

// DecodeTemplate builds a [model.Template] from a raw API object.
// Missing fields fall back to zero values.
func DecodeTemplate(raw map[string]any) model.Template {
	t := model.Template{
		ID:          resolve.ID(raw, p("id")),
		Name:        resolve.String(raw, p("name")),
		Description: resolve.String(raw, p("description")),
		TaxFormType: resolve.String(raw, p("tax_form_type"), p("form_type")),
		CreatedAt:   resolve.Time(raw, p("created_at")),
		UpdatedAt:   resolve.Time(raw, p("updated_at")),
	}
	if active, ok := resolve.Bool(raw, p("is_active"), p("active")); ok {
		t.IsActive = active
	}

	if stages, ok := resolve.List(raw, p("stages"), p("workflow_stages")); ok {
		t.Stages = make([]model.Stage, 0, len(stages))
		for _, s := range stages {
			obj, ok := s.(map[string]any)
			if !ok {
				continue
			}
			t.Stages = append(t.Stages, decodeStage(obj))
		}
	}
	return t
}

func decodeStage(raw map[string]any) model.Stage {
	return model.Stage{
		ID:            resolve.ID(raw, p("id")),
		Name:          resolve.String(raw, p("name"), p("stage_name")),
		UserTypeGroup: resolve.String(raw, p("user_type_group"), p("user_type")),
		Description:   resolve.String(raw, p("description")),
	}
}

// DecodeInstance builds a [model.Instance] from a raw API object.
//
// Both spellings of the template and stage references are folded into
// TemplateID and CurrentStageID here, so filtering never has to look at the
// wire shape.
func DecodeInstance(raw map[string]any) model.Instance {
	progress, _ := resolve.Float(raw, progressPaths...)
	return model.Instance{
		ID:                 resolve.ID(raw, p("id")),
		TemplateID:         resolve.ID(raw, templateRefPaths...),
		TemplateName:       resolve.String(raw, templateNamePaths...),
		CurrentStageID:     resolve.ID(raw, stageRefPaths...),
		CurrentStageName:   resolve.String(raw, stageNamePaths...),
		Status:             model.ParseStatus(resolve.String(raw, p("status"))),
		ProgressPercentage: progress,
		TaxCaseID:          resolve.ID(raw, taxCaseRefPaths...),
		TaxCaseName:        resolve.String(raw, clientNamePaths...),
		TaxCaseEmail:       resolve.String(raw, clientEmailPaths...),
		PreparerName:       resolve.String(raw, preparerPaths...),
		CreatedAt:          resolve.Time(raw, p("created_at")),
		StartedAt:          resolve.Time(raw, p("started_at")),
		CompletedAt:        resolve.Time(raw, p("completed_at")),
	}
}

// DecodeExecutionLog builds a [model.ExecutionLog] from a raw API object.
func DecodeExecutionLog(raw map[string]any) model.ExecutionLog {
	return model.ExecutionLog{
		ID:         resolve.ID(raw, p("id")),
		InstanceID: resolve.ID(raw, p("workflow_instance"), p("instance_id"), p("instance")),
		StageName:  resolve.String(raw, p("stage_name"), p("stage", "name")),
		Action:     resolve.String(raw, p("action"), p("action_type")),
		Message:    resolve.String(raw, p("message"), p("notes"), p("description")),
		ActorName:  resolve.String(raw, p("performed_by_name"), p("user_name"), p("performed_by", "name")),
		CreatedAt:  resolve.Time(raw, p("created_at"), p("timestamp")),
	}
}

// Items extracts the list of objects from a list payload.
//
// The API answers list calls with a bare array or a page object holding the
// array under results, items or data. Non-object entries are skipped.
func Items(data any) []map[string]any {
	var list []any
	switch v := data.(type) {
	case []any:
		list = v
	case map[string]any:
		l, ok := resolve.List(v, p("results"), p("items"), p("data"))
		if !ok {
			return nil
		}
		list = l
	default:
		return nil
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// DecodeTemplates decodes every object of a list payload.
func DecodeTemplates(data any) []model.Template {
	items := Items(data)
	out := make([]model.Template, len(items))
	for i, raw := range items {
		out[i] = DecodeTemplate(raw)
	}
	return out
}

// DecodeInstances decodes every object of a list payload.
func DecodeInstances(data any) []model.Instance {
	items := Items(data)
	out := make([]model.Instance, len(items))
	for i, raw := range items {
		out[i] = DecodeInstance(raw)
	}
	return out
}

func object(data any) (map[string]any, bool) {
	obj, ok := data.(map[string]any)
	return obj, ok && len(obj) > 0
}

// instanceObject is object for instance payloads. Some servers answer
// mutations with the instance wrapped as {"instance": {...}} next to a
// status message; a payload with its own id is never unwrapped.
func instanceObject(data any) (map[string]any, bool) {
	obj, ok := object(data)
	if !ok {
		return nil, false
	}
	if _, hasID := obj["id"]; hasID {
		return obj, true
	}
	if inner, ok := resolve.Object(obj, p("instance"), p("workflow_instance")); ok && len(inner) > 0 {
		return inner, true
	}
	return obj, true
}
