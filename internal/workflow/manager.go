package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"workflowdesk/internal/api"
	"workflowdesk/internal/model"
	"workflowdesk/internal/pipeline"
)

// ErrReadOnly indicates the data source cannot perform mutations, e.g. an
// offline snapshot.
var ErrReadOnly = errors.New("data source is read-only")

// ErrNotLoaded indicates the detail view is unavailable for the data source.
var ErrNotLoaded = errors.New("instance details are not available from this source")

// Source lists workflow data. The [api.Client] type implements it.
type Source interface {
	ListTemplates(ctx context.Context, opts api.ListTemplatesOptions) ([]model.Template, error)
	ListInstances(ctx context.Context, opts api.ListInstancesOptions) ([]model.Instance, error)
	Statistics(ctx context.Context, opts api.StatisticsOptions) (map[string]any, error)
}

// Editor performs template and instance mutations.
// A [Source] that also implements Editor enables the mutating callbacks.
type Editor interface {
	CreateTemplate(ctx context.Context, in model.TemplateInput) (model.Template, error)
	UpdateTemplate(ctx context.Context, id string, in model.TemplateInput) (model.Template, error)
	CloneTemplate(ctx context.Context, id, name string) (model.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	StartWorkflow(ctx context.Context, req model.StartRequest) (model.Instance, error)
}

// Detailer fetches a single instance and its execution log.
type Detailer interface {
	GetInstance(ctx context.Context, id string) (model.Instance, error)
	ExecutionLogs(ctx context.Context, id string) ([]model.ExecutionLog, error)
}

// Notifier shows load and mutation outcomes to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Snapshot is an immutable copy of the Manager's state.
//
// Each slice keeps the last successfully loaded value; the matching error
// field reports the most recent failure for that slice, if any.
type Snapshot struct {
	Templates   []model.Template
	Instances   []model.Instance
	Statistics  model.Statistics
	Loading     bool
	RefreshedAt time.Time

	TemplatesErr  error
	InstancesErr  error
	StatisticsErr error
}

// Err joins the per-slice errors.
func (s Snapshot) Err() error {
	return errors.Join(s.TemplatesErr, s.InstancesErr, s.StatisticsErr)
}

// Board builds the pipeline board for a template from the snapshot.
func (s Snapshot) Board(templateID string) pipeline.Board {
	return pipeline.Build(s.Templates, s.Instances, templateID)
}

// Instance looks up an instance by id.
func (s Snapshot) Instance(id string) (model.Instance, bool) {
	for _, inst := range s.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return model.Instance{}, false
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Templates != nil {
		out.Templates = make([]model.Template, len(s.Templates))
		for i, t := range s.Templates {
			out.Templates[i] = t.Clone()
		}
	}
	if s.Instances != nil {
		out.Instances = make([]model.Instance, len(s.Instances))
		for i, inst := range s.Instances {
			out.Instances[i] = inst.Clone()
		}
	}
	return out
}

// InstanceDetail is the data behind the instance view.
type InstanceDetail struct {
	Instance model.Instance       `json:"instance"`
	Template *model.Template      `json:"template,omitempty"`
	Logs     []model.ExecutionLog `json:"logs"`
	Action   pipeline.Action      `json:"action"`
	Next     *model.Stage         `json:"next_stage,omitempty"`
}

// Manager owns templates, instances and statistics.
//
// Create with [NewManager]. A Manager is safe for concurrent use.
type Manager struct {
	source   Source
	editor   Editor
	detailer Detailer
	notifier Notifier
	logger   *slog.Logger
	group    singleflight.Group

	mu          sync.Mutex
	state       Snapshot
	statsOpts   api.StatisticsOptions
	closed      bool
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// NewManager creates a [Manager] reading from src. When src also implements
// [Editor] or [Detailer] those capabilities are enabled.
func NewManager(src Source, notifier Notifier) *Manager {
	m := &Manager{
		source:      src,
		notifier:    notifier,
		logger:      slog.New(slog.DiscardHandler),
		subscribers: make(map[int]func(Snapshot)),
	}
	if e, ok := src.(Editor); ok {
		m.editor = e
	}
	if d, ok := src.(Detailer); ok {
		m.detailer = d
	}
	return m
}

// SetLogger configures diagnostic logging.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetStatisticsOptions sets the date range and period used for statistics on
// subsequent refreshes.
func (m *Manager) SetStatisticsOptions(opts api.StatisticsOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsOpts = opts
}

// Snapshot returns a deep copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to receive a snapshot after every refresh.
// Callbacks run synchronously on the refreshing goroutine. The returned func
// removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Close stops the Manager from applying results. Fetches still in flight
// complete but their results are dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	clear(m.subscribers)
}

// Refresh reloads everything. It lets the Manager serve as the refresher of
// a transition controller.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.RefreshAll(ctx)
}

// RefreshAll fetches templates, instances and statistics concurrently.
//
// The three fetches are independent: a failure leaves the other slices
// updated and the failed slice at its previous value. Failures are reported
// to the Notifier and returned joined.
//
// Concurrent calls share one refresh. The shared fetch does not inherit the
// cancellation of whichever caller started it: a caller whose ctx ends
// returns ctx.Err() at once while the others still get the result.
func (m *Manager) RefreshAll(ctx context.Context) error {
	ch := m.group.DoChan("refresh", func() (any, error) {
		return nil, m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Shared {
			m.logger.Debug("joined in-progress refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context) error {
	if !m.update(func(s *Snapshot) { s.Loading = true }) {
		return nil
	}
	start := time.Now()

	m.mu.Lock()
	statsOpts := m.statsOpts
	m.mu.Unlock()

	// Plain Group: one failed fetch must not cancel the others.
	var g errgroup.Group

	g.Go(func() error {
		templates, err := m.source.ListTemplates(ctx, api.ListTemplatesOptions{})
		m.update(func(s *Snapshot) {
			s.TemplatesErr = err
			if err == nil {
				s.Templates = templates
			}
		})
		return m.reportLoad("workflow templates", err)
	})

	g.Go(func() error {
		instances, err := m.source.ListInstances(ctx, api.ListInstancesOptions{})
		m.update(func(s *Snapshot) {
			s.InstancesErr = err
			if err == nil {
				s.Instances = instances
			}
		})
		return m.reportLoad("workflow instances", err)
	})

	g.Go(func() error {
		raw, err := m.source.Statistics(ctx, statsOpts)
		m.update(func(s *Snapshot) {
			s.StatisticsErr = err
			if err == nil {
				s.Statistics = MapStatistics(raw)
			}
		})
		return m.reportLoad("workflow statistics", err)
	})

	_ = g.Wait()

	var snap Snapshot
	var subs []func(Snapshot)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("refresh finished after close, results dropped")
		return nil
	}
	m.state.Loading = false
	m.state.RefreshedAt = time.Now()
	snap = m.state.clone()
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	err := snap.Err()
	m.logger.Debug("refresh finished",
		"templates", len(snap.Templates),
		"instances", len(snap.Instances),
		"failed", err != nil,
		"duration", time.Since(start))

	for _, fn := range subs {
		fn(snap)
	}
	return err
}

// update applies fn to the state unless the Manager is closed. It reports
// whether fn ran.
func (m *Manager) update(fn func(*Snapshot)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	fn(&m.state)
	return true
}

func (m *Manager) reportLoad(what string, err error) error {
	if err == nil {
		return nil
	}
	m.logger.Warn("load failed", "resource", what, "error", err)
	if !m.isClosed() {
		m.notifier.Error(fmt.Sprintf("Failed to load %s: %s", what, api.UserMessage(err)))
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
