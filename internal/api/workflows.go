package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"workflowdesk/internal/model"
)

// ========== Templates ==========

// ListTemplates lists workflow templates.
func (c *Client) ListTemplates(ctx context.Context, opts ListTemplatesOptions) ([]model.Template, error) {
	q := url.Values{}
	if opts.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*opts.IsActive))
	}
	data, err := c.call(ctx, "list templates", http.MethodGet, "/templates/", q, nil)
	if err != nil {
		return nil, err
	}
	return DecodeTemplates(data), nil
}

// GetTemplate fetches one template with its stages.
func (c *Client) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	const op = "get template"
	data, err := c.call(ctx, op, http.MethodGet, "/templates/"+escape(id)+"/", nil, nil)
	if err != nil {
		return model.Template{}, err
	}
	return c.singleTemplate(op, data)
}

// CreateTemplate creates a template.
func (c *Client) CreateTemplate(ctx context.Context, in model.TemplateInput) (model.Template, error) {
	const op = "create template"
	data, err := c.call(ctx, op, http.MethodPost, "/templates/", nil, in)
	if err != nil {
		return model.Template{}, err
	}
	return c.singleTemplate(op, data)
}

// UpdateTemplate replaces a template's definition.
func (c *Client) UpdateTemplate(ctx context.Context, id string, in model.TemplateInput) (model.Template, error) {
	const op = "update template"
	data, err := c.call(ctx, op, http.MethodPut, "/templates/"+escape(id)+"/", nil, in)
	if err != nil {
		return model.Template{}, err
	}
	return c.singleTemplate(op, data)
}

// CloneTemplate copies a template under a new name.
func (c *Client) CloneTemplate(ctx context.Context, id, name string) (model.Template, error) {
	const op = "clone template"
	body := map[string]string{"name": name}
	data, err := c.call(ctx, op, http.MethodPost, "/templates/"+escape(id)+"/clone/", nil, body)
	if err != nil {
		return model.Template{}, err
	}
	return c.singleTemplate(op, data)
}

// DeleteTemplate deletes a template.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	_, err := c.call(ctx, "delete template", http.MethodDelete, "/templates/"+escape(id)+"/", nil, nil)
	return err
}

func (c *Client) singleTemplate(op string, data any) (model.Template, error) {
	obj, ok := object(data)
	if !ok {
		return model.Template{}, &APIError{Kind: KindTransport, Op: op, Err: errors.New("response carries no template")}
	}
	return DecodeTemplate(obj), nil
}

// ========== Instances ==========

// ListInstances lists workflow instances. Zero options list everything.
func (c *Client) ListInstances(ctx context.Context, opts ListInstancesOptions) ([]model.Instance, error) {
	q := url.Values{}
	if opts.TemplateID != "" {
		q.Set("workflow_template", opts.TemplateID)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	data, err := c.call(ctx, "list instances", http.MethodGet, "/instances/", q, nil)
	if err != nil {
		return nil, err
	}
	return DecodeInstances(data), nil
}

// GetInstance fetches one instance.
func (c *Client) GetInstance(ctx context.Context, id string) (model.Instance, error) {
	const op = "get instance"
	data, err := c.call(ctx, op, http.MethodGet, "/instances/"+escape(id)+"/", nil, nil)
	if err != nil {
		return model.Instance{}, err
	}
	obj, ok := instanceObject(data)
	if !ok {
		return model.Instance{}, &APIError{Kind: KindTransport, Op: op, Err: errors.New("response carries no instance")}
	}
	return DecodeInstance(obj), nil
}

// StartWorkflow starts a workflow for a tax case and returns the new instance.
func (c *Client) StartWorkflow(ctx context.Context, req model.StartRequest) (model.Instance, error) {
	const op = "start workflow"
	data, err := c.call(ctx, op, http.MethodPost, "/instances/start/", nil, req)
	if err != nil {
		return model.Instance{}, err
	}
	obj, ok := instanceObject(data)
	if !ok {
		return model.Instance{}, &APIError{Kind: KindTransport, Op: op, Err: errors.New("response carries no instance")}
	}
	return DecodeInstance(obj), nil
}

// AdvanceWorkflow moves an instance to targetStageID.
//
// The returned instance is nil when the server acknowledges without a body.
// The stage is not checked against the template; the server is authoritative.
func (c *Client) AdvanceWorkflow(ctx context.Context, id, targetStageID string) (*model.Instance, error) {
	body := map[string]string{"target_stage_id": targetStageID}
	data, err := c.call(ctx, "advance workflow", http.MethodPost, "/instances/"+escape(id)+"/advance/", nil, body)
	if err != nil {
		return nil, err
	}
	return optionalInstance(data), nil
}

// CompleteWorkflow marks an instance completed.
func (c *Client) CompleteWorkflow(ctx context.Context, id string) (*model.Instance, error) {
	data, err := c.call(ctx, "complete workflow", http.MethodPost, "/instances/"+escape(id)+"/complete/", nil, nil)
	if err != nil {
		return nil, err
	}
	return optionalInstance(data), nil
}

// DeleteInstance deletes an instance.
func (c *Client) DeleteInstance(ctx context.Context, id string) error {
	_, err := c.call(ctx, "delete instance", http.MethodDelete, "/instances/"+escape(id)+"/", nil, nil)
	return err
}

// ExecutionLogs returns the audit trail of an instance, oldest first as
// the server orders it.
func (c *Client) ExecutionLogs(ctx context.Context, id string) ([]model.ExecutionLog, error) {
	data, err := c.call(ctx, "execution logs", http.MethodGet, "/instances/"+escape(id)+"/logs/", nil, nil)
	if err != nil {
		return nil, err
	}
	items := Items(data)
	logs := make([]model.ExecutionLog, len(items))
	for i, raw := range items {
		logs[i] = DecodeExecutionLog(raw)
	}
	return logs, nil
}

// ========== Statistics ==========

// Statistics returns the raw statistics object. Its keys vary between server
// versions; see workflow.MapStatistics for normalization.
func (c *Client) Statistics(ctx context.Context, opts StatisticsOptions) (map[string]any, error) {
	data, err := c.call(ctx, "statistics", http.MethodGet, "/statistics/", opts.values(), nil)
	if err != nil {
		return nil, err
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return obj, nil
}

func optionalInstance(data any) *model.Instance {
	obj, ok := instanceObject(data)
	if !ok {
		return nil
	}
	inst := DecodeInstance(obj)
	return &inst
}
