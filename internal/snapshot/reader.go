// Package snapshot serves workflow data from a YAML file instead of the API.
//
// A snapshot holds the raw payloads the API would return, in the same wire
// shapes, so a board can be rendered offline for support tickets or demos:
//
//	templates:
//	  - id: tpl-1040
//	    name: Individual 1040
//	    is_active: true
//	    stages:
//	      - {id: s1, name: Intake, user_type_group: taxpayer}
//	instances:
//	  - id: inst-1
//	    workflow_template: tpl-1040
//	    current_stage: s1
//	    status: active
//	    tax_case_name: Alice Smith
//	statistics:
//	  total_templates: 1
//	logs:
//	  inst-1:
//	    - {action: started, created_at: "2024-02-01T10:00:00Z"}
//
// The file is only ever read. Payloads go through the same decoding as live
// responses.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"workflowdesk/internal/api"
	"workflowdesk/internal/model"
)

// EnvPath overrides snapshot discovery when set.
const EnvPath = "WORKFLOWDESK_SNAPSHOT_PATH"

// DefaultFile is the snapshot file discovered in the base directory.
const DefaultFile = "workflowdesk-snapshot.yaml"

// ResolvePath finds the snapshot file.
//
// Resolution order:
//  1. WORKFLOWDESK_SNAPSHOT_PATH environment variable (used as-is if set)
//  2. Explicit path parameter (if non-empty)
//  3. DefaultFile under basePath, if it exists
//
// An empty result means no snapshot is configured and the API should be used.
func ResolvePath(basePath, path string) string {
	if envPath := os.Getenv(EnvPath); envPath != "" {
		return envPath
	}
	if path != "" {
		return path
	}
	candidate := filepath.Join(basePath, DefaultFile)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Document is the raw content of a snapshot file.
type Document struct {
	Templates  []any            `yaml:"templates"`
	Instances  []any            `yaml:"instances"`
	Statistics map[string]any   `yaml:"statistics"`
	Logs       map[string][]any `yaml:"logs"`
}

// Reader serves snapshot data through the same methods as the API client.
type Reader struct {
	path string
}

// NewReader creates a [Reader] for the snapshot at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the snapshot file path.
func (r *Reader) Path() string {
	return r.path
}

// Read reads and parses the snapshot file.
func (r *Reader) Read() (*Document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &doc, nil
}

// ListTemplates returns the snapshot's templates, filtered like the API.
func (r *Reader) ListTemplates(ctx context.Context, opts api.ListTemplatesOptions) ([]model.Template, error) {
	doc, err := r.Read()
	if err != nil {
		return nil, err
	}
	templates := api.DecodeTemplates(doc.Templates)
	if opts.IsActive == nil {
		return templates, nil
	}
	out := templates[:0]
	for _, t := range templates {
		if t.IsActive == *opts.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListInstances returns the snapshot's instances, filtered like the API.
func (r *Reader) ListInstances(ctx context.Context, opts api.ListInstancesOptions) ([]model.Instance, error) {
	doc, err := r.Read()
	if err != nil {
		return nil, err
	}
	instances := api.DecodeInstances(doc.Instances)
	out := instances[:0]
	for _, inst := range instances {
		if opts.TemplateID != "" && inst.TemplateID != opts.TemplateID {
			continue
		}
		if opts.Status != "" && inst.Status != model.ParseStatus(opts.Status) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

// Statistics returns the snapshot's raw statistics object. Date options are
// ignored; a snapshot is a single point in time.
func (r *Reader) Statistics(ctx context.Context, opts api.StatisticsOptions) (map[string]any, error) {
	doc, err := r.Read()
	if err != nil {
		return nil, err
	}
	if doc.Statistics == nil {
		return map[string]any{}, nil
	}
	return doc.Statistics, nil
}

// GetInstance returns one instance from the snapshot.
func (r *Reader) GetInstance(ctx context.Context, id string) (model.Instance, error) {
	instances, err := r.ListInstances(ctx, api.ListInstancesOptions{})
	if err != nil {
		return model.Instance{}, err
	}
	for _, inst := range instances {
		if inst.ID == id {
			return inst, nil
		}
	}
	return model.Instance{}, &api.APIError{
		Kind:    api.KindBusiness,
		Op:      "get instance",
		Message: fmt.Sprintf("instance %s not found in snapshot", id),
	}
}

// ExecutionLogs returns the instance's log entries from the snapshot, or an
// empty list when the snapshot has none.
func (r *Reader) ExecutionLogs(ctx context.Context, id string) ([]model.ExecutionLog, error) {
	doc, err := r.Read()
	if err != nil {
		return nil, err
	}
	items := api.Items(doc.Logs[id])
	logs := make([]model.ExecutionLog, len(items))
	for i, raw := range items {
		logs[i] = api.DecodeExecutionLog(raw)
		if logs[i].InstanceID == "" {
			logs[i].InstanceID = id
		}
	}
	return logs, nil
}
