package apitest

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workflowdesk/internal/model"
)

// ========== Templates ==========

func (s *Server) listTemplates(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filter *bool
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "is_active must be true or false")
			return
		}
		filter = &v
	}

	out := make([]gin.H, 0, len(s.templates))
	for _, t := range s.templates {
		if filter != nil && t.IsActive != *filter {
			continue
		}
		out = append(out, s.renderTemplate(t))
	}
	s.list(c, out)
}

func (s *Server) getTemplate(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.templateIndex(c.Param("id"))
	if i < 0 {
		notFound(c, "template", c.Param("id"))
		return
	}
	ok(c, s.renderTemplate(s.templates[i]))
}

type templateBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TaxFormType string `json:"tax_form_type"`
	IsActive    bool   `json:"is_active"`
	Stages      []struct {
		Name          string `json:"name"`
		UserTypeGroup string `json:"user_type_group"`
		Description   string `json:"description"`
	} `json:"stages"`
}

func (b templateBody) apply(t *model.Template) {
	t.Name = b.Name
	t.Description = b.Description
	t.TaxFormType = b.TaxFormType
	t.IsActive = b.IsActive
	t.Stages = make([]model.Stage, len(b.Stages))
	for i, st := range b.Stages {
		t.Stages[i] = model.Stage{
			ID:            uuid.NewString(),
			Name:          st.Name,
			UserTypeGroup: st.UserTypeGroup,
			Description:   st.Description,
		}
	}
	t.UpdatedAt = timePtr(time.Now().UTC())
}

func (s *Server) createTemplate(c *gin.Context) {
	var body templateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid template payload")
		return
	}
	if body.Name == "" {
		fail(c, http.StatusBadRequest, "Template name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := model.Template{ID: uuid.NewString(), CreatedAt: timePtr(time.Now().UTC())}
	body.apply(&t)
	s.templates = append(s.templates, t)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": s.renderTemplate(t)})
}

func (s *Server) updateTemplate(c *gin.Context) {
	var body templateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid template payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.templateIndex(c.Param("id"))
	if i < 0 {
		notFound(c, "template", c.Param("id"))
		return
	}
	body.apply(&s.templates[i])
	ok(c, s.renderTemplate(s.templates[i]))
}

func (s *Server) cloneTemplate(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.templateIndex(c.Param("id"))
	if i < 0 {
		notFound(c, "template", c.Param("id"))
		return
	}
	clone := s.templates[i].Clone()
	clone.ID = uuid.NewString()
	clone.Name = body.Name
	if clone.Name == "" {
		clone.Name = s.templates[i].Name + " (Copy)"
	}
	for j := range clone.Stages {
		clone.Stages[j].ID = uuid.NewString()
	}
	s.templates = append(s.templates, clone)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": s.renderTemplate(clone)})
}

func (s *Server) deleteTemplate(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	i := s.templateIndex(id)
	if i < 0 {
		notFound(c, "template", id)
		return
	}
	if slices.ContainsFunc(s.instances, func(inst model.Instance) bool {
		return inst.TemplateID == id && inst.Status == model.StatusActive
	}) {
		fail(c, http.StatusBadRequest, "Cannot delete a template with active workflows")
		return
	}
	s.templates = slices.Delete(s.templates, i, i+1)
	ok(c, nil)
}

// ========== Instances ==========

func (s *Server) listInstances(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	templateID := c.Query("workflow_template")
	status := c.Query("status")

	out := make([]gin.H, 0, len(s.instances))
	for _, inst := range s.instances {
		if templateID != "" && inst.TemplateID != templateID {
			continue
		}
		if status != "" && string(inst.Status) != status {
			continue
		}
		out = append(out, s.renderInstance(inst))
	}
	s.list(c, out)
}

func (s *Server) getInstance(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.instanceIndex(c.Param("id"))
	if i < 0 {
		notFound(c, "instance", c.Param("id"))
		return
	}
	ok(c, s.renderInstance(s.instances[i]))
}

func (s *Server) startWorkflow(c *gin.Context) {
	var body model.StartRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid start payload")
		return
	}
	if body.TaxCaseID == "" {
		fail(c, http.StatusBadRequest, "Tax case is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ti := s.templateIndex(body.TemplateID)
	if ti < 0 {
		notFound(c, "template", body.TemplateID)
		return
	}
	tpl := s.templates[ti]
	if !tpl.IsActive {
		fail(c, http.StatusBadRequest, "Template is not active")
		return
	}

	now := time.Now().UTC()
	inst := model.Instance{
		ID:          uuid.NewString(),
		TemplateID:  tpl.ID,
		Status:      model.StatusActive,
		TaxCaseID:   body.TaxCaseID,
		TaxCaseName: "Case " + body.TaxCaseID,
		CreatedAt:   timePtr(now),
		StartedAt:   timePtr(now),
	}
	if body.AssignedPreparerID != "" {
		inst.PreparerName = "Preparer " + body.AssignedPreparerID
	}
	if len(tpl.Stages) > 0 {
		inst.CurrentStageID = tpl.Stages[0].ID
	}
	s.instances = append(s.instances, inst)
	s.appendLog(inst, "started", body.Notes)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": s.renderInstance(inst)})
}

func (s *Server) advance(c *gin.Context) {
	var body struct {
		TargetStageID string `json:"target_stage_id"`
	}
	_ = c.ShouldBindJSON(&body)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.instanceIndex(c.Param("id"))
	if i < 0 {
		notFound(c, "instance", c.Param("id"))
		return
	}
	inst := &s.instances[i]
	if inst.Status.IsTerminal() {
		fail(c, http.StatusBadRequest, "Workflow is not active")
		return
	}

	ti := s.templateIndex(inst.TemplateID)
	if ti < 0 {
		fail(c, http.StatusBadRequest, "Workflow template no longer exists")
		return
	}
	stages := s.templates[ti].Stages
	idx := slices.IndexFunc(stages, func(st model.Stage) bool { return st.ID == body.TargetStageID })
	if idx < 0 {
		fail(c, http.StatusBadRequest, "Invalid target stage")
		return
	}

	inst.CurrentStageID = stages[idx].ID
	inst.ProgressPercentage = float64(idx) / float64(len(stages)) * 100
	s.appendLog(*inst, "advanced", "Moved to "+stages[idx].Name)
	ok(c, s.renderInstance(*inst))
}

func (s *Server) complete(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.instanceIndex(c.Param("id"))
	if i < 0 {
		notFound(c, "instance", c.Param("id"))
		return
	}
	inst := &s.instances[i]
	if inst.Status.IsTerminal() {
		fail(c, http.StatusBadRequest, "Workflow is already "+string(inst.Status))
		return
	}

	s.appendLog(*inst, "completed", "")
	inst.Status = model.StatusCompleted
	if !s.keepStage {
		inst.CurrentStageID = ""
	}
	inst.ProgressPercentage = 100
	inst.CompletedAt = timePtr(time.Now().UTC())
	ok(c, s.renderInstance(*inst))
}

func (s *Server) deleteInstance(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	i := s.instanceIndex(id)
	if i < 0 {
		notFound(c, "instance", id)
		return
	}
	s.instances = slices.Delete(s.instances, i, i+1)
	delete(s.logs, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) listLogs(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	if s.instanceIndex(id) < 0 {
		notFound(c, "instance", id)
		return
	}
	entries := s.logs[id]
	out := make([]gin.H, len(entries))
	for i, l := range entries {
		out[i] = gin.H{
			"id":                l.ID,
			"workflow_instance": l.InstanceID,
			"stage_name":        l.StageName,
			"action":            l.Action,
			"notes":             l.Message,
			"performed_by_name": l.ActorName,
			"created_at":        formatTime(l.CreatedAt),
		}
	}
	s.list(c, out)
}

// ========== Statistics ==========

func (s *Server) getStatistics(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.statistics != nil {
		ok(c, s.statistics)
		return
	}

	counts := map[model.Status]int{}
	for _, inst := range s.instances {
		counts[inst.Status]++
	}
	active := 0
	for _, t := range s.templates {
		if t.IsActive {
			active++
		}
	}

	if s.legacyKeys {
		ok(c, gin.H{
			"template_count":       len(s.templates),
			"active_templates":     active,
			"total_workflows":      len(s.instances),
			"active_instances":     counts[model.StatusActive],
			"paused_instances":     counts[model.StatusPaused],
			"completed_instances":  counts[model.StatusCompleted],
			"cancelled_instances":  counts[model.StatusCancelled],
			"avg_completion_hours": 0,
			"period":               c.DefaultQuery("period", "all"),
		})
		return
	}
	ok(c, gin.H{
		"value": gin.H{
			"total_templates":  len(s.templates),
			"active_templates": active,
		},
		"total_instances":               len(s.instances),
		"active_workflows":              counts[model.StatusActive],
		"paused_workflows":              counts[model.StatusPaused],
		"completed_workflows":           counts[model.StatusCompleted],
		"cancelled_workflows":           counts[model.StatusCancelled],
		"average_completion_time_hours": 0,
	})
}

// ========== Rendering ==========

func (s *Server) list(c *gin.Context, items []gin.H) {
	if s.legacyKeys {
		ok(c, gin.H{"count": len(items), "results": items})
		return
	}
	ok(c, items)
}

func (s *Server) renderTemplate(t model.Template) gin.H {
	stages := make([]gin.H, len(t.Stages))
	for i, st := range t.Stages {
		stages[i] = gin.H{
			"id":              st.ID,
			"name":            st.Name,
			"user_type_group": st.UserTypeGroup,
			"description":     st.Description,
			"order":           i + 1,
		}
	}
	return gin.H{
		"id":            t.ID,
		"name":          t.Name,
		"description":   t.Description,
		"is_active":     t.IsActive,
		"tax_form_type": t.TaxFormType,
		"stages":        stages,
		"created_at":    formatTime(t.CreatedAt),
		"updated_at":    formatTime(t.UpdatedAt),
	}
}

func (s *Server) renderInstance(inst model.Instance) gin.H {
	var stage any
	if inst.CurrentStageID != "" {
		stage = inst.CurrentStageID
	}
	out := gin.H{
		"id":                  inst.ID,
		"status":              string(inst.Status),
		"progress_percentage": inst.ProgressPercentage,
		"created_at":          formatTime(inst.CreatedAt),
		"started_at":          formatTime(inst.StartedAt),
		"completed_at":        formatTime(inst.CompletedAt),
	}

	if s.legacyKeys {
		out["workflow_template_id"] = inst.TemplateID
		out["current_stage_id"] = stage
		out["tax_case"] = gin.H{"id": inst.TaxCaseID}
		out["tax_case_details"] = gin.H{"name": inst.TaxCaseName, "email": inst.TaxCaseEmail}
		if inst.PreparerName != "" {
			out["assigned_preparer"] = gin.H{"name": inst.PreparerName}
		}
		return out
	}

	out["workflow_template"] = inst.TemplateID
	out["current_stage"] = stage
	out["current_stage_name"] = s.stageName(inst)
	out["tax_case"] = inst.TaxCaseID
	out["tax_case_name"] = inst.TaxCaseName
	out["tax_case_email"] = inst.TaxCaseEmail
	out["assigned_preparer_name"] = inst.PreparerName
	return out
}
