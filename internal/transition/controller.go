// Package transition dispatches user-triggered stage transitions.
//
// The [Controller] sends advance, complete and delete requests to the workflow
// API, one request per accepted call and no retries. While a request for an
// instance is outstanding, a second request of the same kind for that
// instance is rejected with [ErrInFlight] instead of being sent again. Other
// instances stay available.
//
// Outcomes go to a [Notifier]. On success the controller asks its [Refresher]
// for a full reload; it never patches local state itself.
//
// Key types:
//   - [Controller] runs transitions with per-instance in-flight tracking
//   - [Client] is the subset of the API client the controller needs
//   - [Notifier], [Confirmer] and [Refresher] are the injected collaborators
package transition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"workflowdesk/internal/api"
	"workflowdesk/internal/model"
)

// Sentinel errors returned by [Controller].
var (
	// ErrInFlight indicates the same operation is already running for the
	// instance. Nothing was sent.
	ErrInFlight = errors.New("operation already in progress for this workflow")

	// ErrCancelled indicates the user declined the confirmation prompt.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNoConfirmer indicates Delete was called without a [Confirmer].
	ErrNoConfirmer = errors.New("delete requires a confirmer")

	// ErrMissingID indicates an empty instance id.
	ErrMissingID = errors.New("instance id is required")
)

// Client is the API surface used for transitions.
// The [api.Client] type implements this interface.
type Client interface {
	AdvanceWorkflow(ctx context.Context, id, targetStageID string) (*model.Instance, error)
	CompleteWorkflow(ctx context.Context, id string) (*model.Instance, error)
	DeleteInstance(ctx context.Context, id string) error
}

// Notifier shows transition outcomes to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Confirmer asks the user to approve a destructive operation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Refresher reloads the data the views are built from.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Op identifies a kind of transition.
type Op string

// Transition kinds tracked by the controller.
const (
	OpAdvance  Op = "advance"
	OpComplete Op = "complete"
	OpDelete   Op = "delete"
)

// User-facing success messages.
const (
	MsgAdvanced  = "Workflow advanced to the next stage"
	MsgCompleted = "Workflow marked as completed"
	MsgDeleted   = "Workflow deleted"
)

// DeletePrompt is shown before an instance is deleted.
const DeletePrompt = "Delete this workflow instance? This cannot be undone."

type key struct {
	op Op
	id string
}

// Controller runs stage transitions.
//
// Create with [NewController]. A Controller is safe for concurrent use.
type Controller struct {
	client    Client
	notifier  Notifier
	refresher Refresher
	confirmer Confirmer
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[key]struct{}
}

// NewController creates a [Controller]. The refresher may be nil when the
// caller reloads on its own.
func NewController(client Client, notifier Notifier, refresher Refresher) *Controller {
	return &Controller{
		client:    client,
		notifier:  notifier,
		refresher: refresher,
		logger:    slog.New(slog.DiscardHandler),
		inFlight:  make(map[key]struct{}),
	}
}

// SetConfirmer configures the confirmation prompt used by [Controller.Delete].
func (c *Controller) SetConfirmer(cf Confirmer) {
	c.confirmer = cf
}

// SetLogger configures diagnostic logging.
func (c *Controller) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Advance moves an instance to targetStageID.
//
// The target is not validated against the template; callers pass the stage
// computed by pipeline.NextStage and the server has the final word.
func (c *Controller) Advance(ctx context.Context, instanceID, targetStageID string) error {
	return c.run(ctx, OpAdvance, instanceID, MsgAdvanced, func(ctx context.Context) error {
		_, err := c.client.AdvanceWorkflow(ctx, instanceID, targetStageID)
		return err
	}, "target_stage", targetStageID)
}

// Complete marks an instance completed.
func (c *Controller) Complete(ctx context.Context, instanceID string) error {
	return c.run(ctx, OpComplete, instanceID, MsgCompleted, func(ctx context.Context) error {
		_, err := c.client.CompleteWorkflow(ctx, instanceID)
		return err
	})
}

// Delete removes an instance after the user confirms.
//
// A declined prompt returns [ErrCancelled] and sends nothing.
func (c *Controller) Delete(ctx context.Context, instanceID string) error {
	if instanceID == "" {
		return ErrMissingID
	}
	if c.confirmer == nil {
		return ErrNoConfirmer
	}
	ok, err := c.confirmer.Confirm(ctx, DeletePrompt)
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return ErrCancelled
	}
	return c.run(ctx, OpDelete, instanceID, MsgDeleted, func(ctx context.Context) error {
		return c.client.DeleteInstance(ctx, instanceID)
	})
}

// InFlight reports whether any operation is running for the instance.
func (c *Controller) InFlight(instanceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.inFlight {
		if k.id == instanceID {
			return true
		}
	}
	return false
}

// InFlightOp reports whether op is running for the instance.
func (c *Controller) InFlightOp(op Op, instanceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[key{op: op, id: instanceID}]
	return ok
}

func (c *Controller) run(ctx context.Context, op Op, instanceID, successMsg string, call func(context.Context) error, attrs ...any) error {
	if instanceID == "" {
		return ErrMissingID
	}
	k := key{op: op, id: instanceID}
	if !c.acquire(k) {
		c.logger.Debug("transition skipped, already in flight", "op", op, "instance", instanceID)
		return ErrInFlight
	}
	defer c.release(k)

	log := c.logger.With(append([]any{"op", op, "instance", instanceID}, attrs...)...)

	if err := call(ctx); err != nil {
		log.Warn("transition failed", "error", err)
		c.notifier.Error(api.UserMessage(err))
		return fmt.Errorf("%s %s: %w", op, instanceID, err)
	}

	log.Info("transition succeeded")
	c.notifier.Success(successMsg)

	if c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			log.Warn("refresh after transition failed", "error", err)
		}
	}
	return nil
}

func (c *Controller) acquire(k key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[k]; busy {
		return false
	}
	c.inFlight[k] = struct{}{}
	return true
}

func (c *Controller) release(k key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, k)
}
