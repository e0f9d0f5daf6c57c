// Package upload owns the upload workflow: the selected file, the request to
// the analysis service and the state the view renders from.
package upload

import (
	"context"
	"errors"
	"sync"

	"github.com/KaramelBytes/eqviz-cli/internal/logging"
	"github.com/KaramelBytes/eqviz-cli/internal/result"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase is the upload state machine position.
type Phase int

const (
	Idle Phase = iota
	Loading
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Policy decides what happens when Submit is called while an upload is in flight.
type Policy int

const (
	// LastWriteWins lets overlapping submits race; whichever response
	// arrives last decides the final state.
	LastWriteWins Policy = iota
	// Serialized rejects a submit with ErrBusy while Loading.
	Serialized
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "last-write-wins":
		return LastWriteWins, nil
	case "serialized":
		return Serialized, nil
	}
	return LastWriteWins, errors.New("invalid submit policy: " + s + " (use last-write-wins or serialized)")
}

func (p Policy) String() string {
	if p == Serialized {
		return "serialized"
	}
	return "last-write-wins"
}

// State is a read-only snapshot of the controller.
type State struct {
	Phase Phase
	File  *SelectedFile
	// Result is set only in Succeeded.
	Result *result.Object
	// Err is set only in Failed.
	Err error
	// Degraded marks a 2xx response whose body was not a JSON object.
	Degraded bool
	// RequestID identifies the request that produced the current phase.
	RequestID string
	// InFlight counts requests that have not completed yet.
	InFlight int
}

// ErrorMessage returns the text the view shows for a Failed state.
func (s State) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.logger = logging.OrNop(l) } }

func WithPolicy(p Policy) Option { return func(c *Controller) { c.policy = p } }

// WithObserver registers a callback invoked with a snapshot after every transition.
// It runs outside the controller lock and may call back into the controller.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// Controller is the single owner of upload state.
type Controller struct {
	transport Transport
	policy    Policy
	logger    *zap.Logger
	observers []func(State)

	mu    sync.Mutex
	state State
}

func NewController(t Transport, opts ...Option) *Controller {
	c := &Controller{transport: t, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	if s.File != nil {
		f := *s.File
		s.File = &f
	}
	s.Result = s.Result.Clone()
	return s
}

// CanSubmit reports whether the submit action should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.File != nil && c.state.Phase != Loading
}

// SelectFile replaces the selection. Result and error are left as they are.
func (c *Controller) SelectFile(f SelectedFile) {
	c.mu.Lock()
	c.state.File = &f
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.logger.Debug("file selected", zap.String("file", f.Name), zap.Int("bytes", f.Size()))
	c.notify(snap)
}

// Submit runs one upload cycle and returns the error recorded in the state,
// or nil when the cycle ended in Succeeded (including degraded success).
// Under the Serialized policy ErrBusy is returned and the state is untouched.
func (c *Controller) Submit(ctx context.Context) error {
	_, err := c.submit(ctx)
	return err
}

// SubmitAsync runs Submit in the background. The channel receives the
// snapshot taken right after this request wrote its outcome, then closes.
func (c *Controller) SubmitAsync(ctx context.Context) <-chan State {
	done := make(chan State, 1)
	c.mu.Lock()
	busy := c.policy == Serialized && c.state.Phase == Loading
	c.mu.Unlock()
	if busy {
		done <- c.Snapshot()
		close(done)
		return done
	}
	go func() {
		defer close(done)
		s, _ := c.submit(ctx)
		done <- s
	}()
	return done
}

func (c *Controller) submit(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.policy == Serialized && c.state.Phase == Loading {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Debug("submit rejected while loading", zap.String("request_id", snap.RequestID))
		return snap, ErrBusy
	}
	c.state.Err = nil
	c.state.Result = nil
	c.state.Degraded = false
	if c.state.File == nil {
		c.state.Phase = Failed
		c.state.Err = &ValidationError{Reason: "no file selected"}
		c.state.RequestID = ""
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return snap, snap.Err
	}
	file := *c.state.File
	reqID := uuid.NewString()
	c.state.Phase = Loading
	c.state.RequestID = reqID
	c.state.InFlight++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.logger.Info("upload started", zap.String("request_id", reqID), zap.String("file", file.Name))
	c.notify(snap)

	resp, err := c.transport.Upload(ctx, file, reqID)

	c.mu.Lock()
	c.state.InFlight--
	c.state.RequestID = reqID
	c.state.Result = nil
	c.state.Err = nil
	c.state.Degraded = false
	if err != nil {
		c.state.Phase = Failed
		c.state.Err = classify(err)
	} else {
		c.state.Phase = Succeeded
		obj, perr := result.Parse(resp.Body)
		if perr != nil {
			c.logger.Debug("response is not a JSON object, showing raw text",
				zap.String("request_id", reqID), zap.Error(perr))
			obj = result.DegradedResult(resp.Body)
			c.state.Degraded = true
		} else if bad := result.NonNumericCounts(obj); len(bad) > 0 {
			c.logger.Debug("distribution counts are not numbers, charting them as 0",
				zap.String("request_id", reqID), zap.Strings("labels", bad))
		}
		c.state.Result = obj
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()

	if snap.Err != nil {
		c.logger.Warn("upload failed", zap.String("request_id", reqID), zap.Error(snap.Err))
	} else {
		c.logger.Info("upload finished", zap.String("request_id", reqID), zap.Bool("degraded", snap.Degraded))
	}
	c.notify(snap)
	return snap, snap.Err
}

// classify keeps typed upload errors and treats anything else as a transport failure.
func classify(err error) error {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr
	}
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr
	}
	return &ConnectionError{Err: err}
}

func (c *Controller) notify(s State) {
	for _, fn := range c.observers {
		fn(s)
	}
}
