package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"workflowdesk/internal/api"
	"workflowdesk/internal/model"
	"workflowdesk/internal/pipeline"
)

// User-facing messages for template and start operations.
const (
	MsgTemplateCreated = "Workflow template created"
	MsgTemplateUpdated = "Workflow template updated"
	MsgTemplateCloned  = "Workflow template cloned"
	MsgTemplateDeleted = "Workflow template deleted"
	MsgWorkflowStarted = "Workflow started"
)

// CanEdit reports whether the source supports mutations.
func (m *Manager) CanEdit() bool {
	return m.editor != nil
}

// CreateTemplate creates a template and reloads.
func (m *Manager) CreateTemplate(ctx context.Context, in model.TemplateInput) (model.Template, error) {
	return mutate(ctx, m, "create template", MsgTemplateCreated, func(ctx context.Context, e Editor) (model.Template, error) {
		return e.CreateTemplate(ctx, in)
	})
}

// UpdateTemplate replaces a template's fields and stages and reloads.
func (m *Manager) UpdateTemplate(ctx context.Context, id string, in model.TemplateInput) (model.Template, error) {
	return mutate(ctx, m, "update template", MsgTemplateUpdated, func(ctx context.Context, e Editor) (model.Template, error) {
		return e.UpdateTemplate(ctx, id, in)
	})
}

// CloneTemplate copies a template under a new name and reloads. An empty
// name lets the server choose one.
func (m *Manager) CloneTemplate(ctx context.Context, id, name string) (model.Template, error) {
	return mutate(ctx, m, "clone template", MsgTemplateCloned, func(ctx context.Context, e Editor) (model.Template, error) {
		return e.CloneTemplate(ctx, id, name)
	})
}

// DeleteTemplate deletes a template and reloads.
func (m *Manager) DeleteTemplate(ctx context.Context, id string) error {
	_, err := mutate(ctx, m, "delete template", MsgTemplateDeleted, func(ctx context.Context, e Editor) (struct{}, error) {
		return struct{}{}, e.DeleteTemplate(ctx, id)
	})
	return err
}

// StartWorkflow starts a new instance and reloads.
func (m *Manager) StartWorkflow(ctx context.Context, req model.StartRequest) (model.Instance, error) {
	return mutate(ctx, m, "start workflow", MsgWorkflowStarted, func(ctx context.Context, e Editor) (model.Instance, error) {
		return e.StartWorkflow(ctx, req)
	})
}

// mutate runs one editor call. Success is announced and followed by a full
// reload whose failure is logged only; failure is announced and returned.
func mutate[T any](ctx context.Context, m *Manager, op, successMsg string, call func(context.Context, Editor) (T, error)) (T, error) {
	var zero T
	if m.editor == nil {
		return zero, ErrReadOnly
	}

	result, err := call(ctx, m.editor)
	if err != nil {
		m.logger.Warn("mutation failed", "op", op, "error", err)
		m.notifier.Error(api.UserMessage(err))
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	m.logger.Info("mutation succeeded", "op", op)
	m.notifier.Success(successMsg)
	if err := m.RefreshAll(ctx); err != nil {
		m.logger.Warn("refresh after mutation failed", "op", op, "error", err)
	}
	return result, nil
}

// ViewInstance loads one instance with its execution log.
//
// The instance and the log are fetched concurrently. The template and the
// next available action come from the current snapshot, so they are empty
// when templates have not been loaded.
func (m *Manager) ViewInstance(ctx context.Context, id string) (InstanceDetail, error) {
	if m.detailer == nil {
		return m.viewFromSnapshot(id)
	}

	var (
		inst model.Instance
		logs []model.ExecutionLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inst, err = m.detailer.GetInstance(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = m.detailer.ExecutionLogs(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		m.notifier.Error(api.UserMessage(err))
		return InstanceDetail{}, fmt.Errorf("view instance %s: %w", id, err)
	}
	return m.detail(inst, logs), nil
}

func (m *Manager) viewFromSnapshot(id string) (InstanceDetail, error) {
	snap := m.Snapshot()
	inst, ok := snap.Instance(id)
	if !ok {
		return InstanceDetail{}, fmt.Errorf("instance %s: %w", id, ErrNotLoaded)
	}
	return m.detail(inst, nil), nil
}

func (m *Manager) detail(inst model.Instance, logs []model.ExecutionLog) InstanceDetail {
	if logs == nil {
		logs = []model.ExecutionLog{}
	}
	d := InstanceDetail{Instance: inst, Logs: logs}

	snap := m.Snapshot()
	tpl := pipeline.SelectTemplate(snap.Templates, inst.TemplateID)
	if tpl == nil {
		return d
	}
	d.Template = tpl
	d.Action, d.Next = pipeline.AvailableAction(inst, tpl.Stages)
	return d
}
