// Package model defines the workflow data types shared by the API client,
// the pipeline aggregator and the terminal views.
//
// Values in this package are already normalized: whichever key spelling or
// nesting the server used, an [Instance] always carries its template reference
// in TemplateID and its stage reference in CurrentStageID. Normalization lives
// in the api package, at decode time.
//
// Key types:
//   - [Template] is a workflow definition with an ordered list of [Stage]s
//   - [Instance] is one tax case moving through a template's stages
//   - [Status] is the instance lifecycle state
//   - [ExecutionLog] is one entry of an instance's audit trail
//   - [Statistics] is the normalized dashboard statistics block
package model

import (
	"math"
	"time"
)

// Display fallbacks for fields the server left empty.
const (
	UnknownClient = "Unknown Client"
	NotAvailable  = "N/A"
)

// User type groups a stage can be assigned to. They are display-only.
const (
	GroupTaxpayer = "taxpayer"
	GroupPreparer = "preparer"
	GroupAdmin    = "admin"
	GroupOther    = "other"
)

// Stage is one step of a workflow template.
//
// Stage order inside [Template.Stages] is authoritative; there is no separate
// order field.
type Stage struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	UserTypeGroup string `json:"user_type_group" yaml:"user_type_group"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Template is a workflow definition.
type Template struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	Stages      []Stage    `json:"stages"`
	TaxFormType string     `json:"tax_form_type,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the template.
func (t Template) Clone() Template {
	out := t
	if t.Stages != nil {
		out.Stages = make([]Stage, len(t.Stages))
		copy(out.Stages, t.Stages)
	}
	out.CreatedAt = cloneTime(t.CreatedAt)
	out.UpdatedAt = cloneTime(t.UpdatedAt)
	return out
}

// Input returns the template's write shape. Stage order is numbered from 1
// in list order.
func (t Template) Input() TemplateInput {
	in := TemplateInput{
		Name:        t.Name,
		Description: t.Description,
		TaxFormType: t.TaxFormType,
		IsActive:    t.IsActive,
		Stages:      make([]StageInput, len(t.Stages)),
	}
	for i, st := range t.Stages {
		in.Stages[i] = StageInput{
			Name:          st.Name,
			UserTypeGroup: st.UserTypeGroup,
			Description:   st.Description,
			Order:         i + 1,
		}
	}
	return in
}

// Instance is a workflow in progress for one tax case.
type Instance struct {
	ID                 string     `json:"id"`
	TemplateID         string     `json:"template_id"`
	TemplateName       string     `json:"template_name,omitempty"`
	CurrentStageID     string     `json:"current_stage_id,omitempty"`
	CurrentStageName   string     `json:"current_stage_name,omitempty"`
	Status             Status     `json:"status"`
	ProgressPercentage float64    `json:"progress_percentage"`
	TaxCaseID          string     `json:"tax_case_id,omitempty"`
	TaxCaseName        string     `json:"tax_case_name,omitempty"`
	TaxCaseEmail       string     `json:"tax_case_email,omitempty"`
	PreparerName       string     `json:"assigned_preparer_name,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the instance.
func (i Instance) Clone() Instance {
	out := i
	out.CreatedAt = cloneTime(i.CreatedAt)
	out.StartedAt = cloneTime(i.StartedAt)
	out.CompletedAt = cloneTime(i.CompletedAt)
	return out
}

// DisplayProgress returns the progress clamped to [0, 100] and rounded to the
// nearest integer. ProgressPercentage itself is left at full precision.
func (i Instance) DisplayProgress() int {
	p := i.ProgressPercentage
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(math.Round(p))
}

// ClientName returns the tax case name or [UnknownClient].
func (i Instance) ClientName() string {
	return orDefault(i.TaxCaseName, UnknownClient)
}

// ClientEmail returns the tax case email or [NotAvailable].
func (i Instance) ClientEmail() string {
	return orDefault(i.TaxCaseEmail, NotAvailable)
}

// Preparer returns the assigned preparer name or [NotAvailable].
func (i Instance) Preparer() string {
	return orDefault(i.PreparerName, NotAvailable)
}

// ExecutionLog is one audit entry for an instance.
type ExecutionLog struct {
	ID         string     `json:"id"`
	InstanceID string     `json:"instance_id,omitempty"`
	StageName  string     `json:"stage_name,omitempty"`
	Action     string     `json:"action"`
	Message    string     `json:"message,omitempty"`
	ActorName  string     `json:"actor_name,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// Statistics is the normalized statistics block shown on the dashboard.
// Every field defaults to zero when the server omits it.
type Statistics struct {
	TotalTemplates         int     `json:"total_templates"`
	ActiveTemplates        int     `json:"active_templates"`
	TotalInstances         int     `json:"total_instances"`
	ActiveInstances        int     `json:"active_instances"`
	PausedInstances        int     `json:"paused_instances"`
	CompletedInstances     int     `json:"completed_instances"`
	CancelledInstances     int     `json:"cancelled_instances"`
	AverageCompletionHours float64 `json:"average_completion_hours"`
}

// StageInput is the write shape of a [Stage].
type StageInput struct {
	Name          string `json:"name"`
	UserTypeGroup string `json:"user_type_group"`
	Description   string `json:"description,omitempty"`
	Order         int    `json:"order"`
}

// TemplateInput is the create/update payload for a template.
type TemplateInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	TaxFormType string       `json:"tax_form_type,omitempty"`
	IsActive    bool         `json:"is_active"`
	Stages      []StageInput `json:"stages"`
}

// StartRequest starts a workflow for a tax case.
type StartRequest struct {
	TemplateID         string `json:"workflow_template_id"`
	TaxCaseID          string `json:"tax_case_id"`
	AssignedPreparerID string `json:"assigned_preparer_id,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
