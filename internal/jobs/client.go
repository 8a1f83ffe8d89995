package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"apexgrab/internal/domain"
	"apexgrab/internal/infra"
)

var (
	// ErrSubmission is returned by Start when /start could not be completed.
	ErrSubmission = errors.New("job submission failed")
	// ErrTransport ends a job after too many consecutive failed status polls.
	ErrTransport = errors.New("job status unreachable")
	// ErrRetrieval wraps a failed artifact retrieval of a ready job.
	ErrRetrieval = errors.New("artifact retrieval failed")
	// ErrNoActiveJob is returned when cancel or wait is requested for idle state.
	ErrNoActiveJob = errors.New("no active job")
	// ErrAborted is returned by Start when the job was cancelled, superseded
	// or the client closed before submission completed.
	ErrAborted = errors.New("job aborted")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("job client closed")
)

const (
	defaultPollInterval = time.Second
	abandonTimeout      = 5 * time.Second
)

// API is the job server contract.
type API interface {
	Submit(ctx context.Context, req domain.JobRequest) (domain.JobHandle, error)
	Status(ctx context.Context, handle domain.JobHandle) (domain.JobStatus, error)
	Cancel(ctx context.Context, handle domain.JobHandle) error
}

// Retriever fetches the artifact of a ready job.
type Retriever interface {
	Retrieve(ctx context.Context, handle domain.JobHandle) error
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, handle domain.JobHandle) error

// Retrieve calls f.
func (f RetrieverFunc) Retrieve(ctx context.Context, handle domain.JobHandle) error {
	return f(ctx, handle)
}

// Outcome classifies how a job session ended.
type Outcome string

const (
	OutcomeReady     Outcome = "ready"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeAborted   Outcome = "aborted"
	OutcomeFailed    Outcome = "failed"
)

// Result is the terminal report of one session.
type Result struct {
	Handle  domain.JobHandle
	Outcome Outcome
	Status  *domain.JobStatus
	Err     error
}

// State is the observable view of the client.
type State struct {
	Downloading bool
	Status      *domain.JobStatus
	Handle      domain.JobHandle
	Err         error
}

// Options tunes a Client.
type Options struct {
	PollInterval time.Duration
	// MaxPollFailures ends a job with ErrTransport after that many consecutive
	// failed polls. Zero retries forever.
	MaxPollFailures int
	Logger          *infra.Logger
	// OnChange observes every state transition in order. It runs with the
	// client lock held and must not call back into the Client.
	OnChange func(State)
}

// Client drives one job at a time from submission to a terminal outcome.
type Client struct {
	api         API
	retriever   Retriever
	interval    time.Duration
	maxFailures int
	logger      *infra.Logger
	onChange    func(State)

	mu      sync.Mutex
	state   State
	current *session
	last    *session
	closed  bool
}

// session is the scope of one Start call. Its context is the only way the
// poll goroutine is stopped, and done closes once nothing of the session is
// running anymore.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// New creates a client in idle state.
func New(api API, retriever Retriever, opts Options) *Client {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		api:         api,
		retriever:   retriever,
		interval:    interval,
		maxFailures: opts.MaxPollFailures,
		logger:      logger,
		onChange:    opts.OnChange,
	}
}

// State returns a snapshot of the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Start submits req and begins polling. A job already in flight is torn down
// first. Start blocks for the submission only; progress is reported through
// OnChange and Wait.
func (c *Client) Start(ctx context.Context, req domain.JobRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.detachLocked()
	sctx, cancel := context.WithCancel(context.Background())
	s := &session{ctx: sctx, cancel: cancel, done: make(chan struct{})}
	c.current, c.last = s, s
	c.state = State{Downloading: true, Status: &domain.JobStatus{}}
	c.notifyLocked()
	c.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	stop := context.AfterFunc(ctx, cancel)
	handle, err := c.api.Submit(sctx, req)
	stop()

	c.mu.Lock()
	if c.current != s {
		c.mu.Unlock()
		close(s.done)
		if err == nil {
			c.abandon(handle)
		}
		return ErrAborted
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSubmission, err)
		c.current = nil
		s.result = Result{Outcome: OutcomeFailed, Err: err}
		c.state = State{Err: err}
		c.notifyLocked()
		c.mu.Unlock()
		cancel()
		close(s.done)
		c.logger.Warn().Err(err).Str("tool", string(req.Tool)).Msg("jobs: submission failed")
		return err
	}
	c.state.Handle = handle
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Info().Str("job_id", string(handle)).Str("tool", string(req.Tool)).Msg("jobs: started")
	go c.poll(s, handle)
	return nil
}

// Cancel returns the client to idle immediately and then asks the server to
// stop the job. A failed server call is logged, never returned: the local
// cancellation stands either way.
func (c *Client) Cancel(ctx context.Context) error {
	c.mu.Lock()
	handle := c.state.Handle
	s := c.detachLocked()
	if s == nil {
		c.mu.Unlock()
		return ErrNoActiveJob
	}
	c.state = State{}
	c.notifyLocked()
	c.mu.Unlock()

	<-s.done
	if handle == "" {
		return nil
	}
	if err := c.api.Cancel(ctx, handle); err != nil {
		c.logger.Warn().Err(err).Str("job_id", string(handle)).Msg("jobs: cancel request failed")
		return nil
	}
	c.logger.Info().Str("job_id", string(handle)).Msg("jobs: cancelled")
	return nil
}

// Close stops any job without notifying the server. It is safe to call more
// than once.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	s := c.detachLocked()
	if s != nil {
		c.state = State{}
		c.notifyLocked()
	}
	c.mu.Unlock()
	if s != nil {
		<-s.done
	}
}

// Wait blocks until the most recent job ends and returns its result.
func (c *Client) Wait(ctx context.Context) (Result, error) {
	c.mu.Lock()
	s := c.last
	c.mu.Unlock()
	if s == nil {
		return Result{}, ErrNoActiveJob
	}
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Client) poll(s *session, handle domain.JobHandle) {
	defer close(s.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := c.api.Status(s.ctx, handle)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			failures++
			c.logger.Debug().Err(err).Str("job_id", string(handle)).Int("failures", failures).Msg("jobs: status poll failed")
			if c.maxFailures > 0 && failures >= c.maxFailures {
				err = fmt.Errorf("%w: %d consecutive failures: %w", ErrTransport, failures, err)
				c.end(s, Result{Handle: handle, Outcome: OutcomeFailed, Err: err})
				return
			}
			continue
		}
		failures = 0

		switch {
		case status.Cancelled:
			c.end(s, Result{Handle: handle, Outcome: OutcomeCancelled, Status: &status})
			return
		case status.Ready:
			if !c.publish(s, status) {
				return
			}
			result := Result{Handle: handle, Outcome: OutcomeReady, Status: &status}
			if err := c.retriever.Retrieve(s.ctx, handle); err != nil {
				if s.ctx.Err() != nil {
					return
				}
				result.Err = fmt.Errorf("%w: %w", ErrRetrieval, err)
			}
			c.end(s, result)
			return
		default:
			c.publish(s, status)
		}
	}
}

// publish records a progress update if s is still the active session.
func (c *Client) publish(s *session, status domain.JobStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != s {
		return false
	}
	c.state.Status = &status
	c.notifyLocked()
	return true
}

// end moves the client to idle with the terminal result of s.
func (c *Client) end(s *session, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != s {
		return
	}
	c.current = nil
	s.result = result
	s.cancel()
	next := State{Err: result.Err}
	if result.Outcome == OutcomeReady {
		next.Status = result.Status
	}
	c.state = next
	c.notifyLocked()

	event := c.logger.Info()
	if result.Err != nil {
		event = c.logger.Warn().Err(result.Err)
	}
	event.Str("job_id", string(result.Handle)).Str("outcome", string(result.Outcome)).Msg("jobs: finished")
}

// detachLocked stops the active session, if any, and records it as aborted.
// The caller waits on the returned session's done channel after unlocking.
func (c *Client) detachLocked() *session {
	s := c.current
	if s == nil {
		return nil
	}
	c.current = nil
	s.result = Result{Handle: c.state.Handle, Outcome: OutcomeAborted, Status: cloneStatus(c.state.Status), Err: ErrAborted}
	s.cancel()
	return s
}

// abandon cancels a job the server accepted after nobody was waiting for it.
func (c *Client) abandon(handle domain.JobHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
	defer cancel()
	if err := c.api.Cancel(ctx, handle); err != nil {
		c.logger.Warn().Err(err).Str("job_id", string(handle)).Msg("jobs: cancel of abandoned job failed")
	}
}

func (c *Client) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.snapshotLocked())
	}
}

func (c *Client) snapshotLocked() State {
	out := c.state
	out.Status = cloneStatus(c.state.Status)
	return out
}

func cloneStatus(s *domain.JobStatus) *domain.JobStatus {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
