package jobserver

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"apexgrab/internal/domain"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobNotReady  = errors.New("job not ready")
	ErrJobCancelled = errors.New("job cancelled")
)

// Clock returns the current time. Tests swap it for a manual clock.
type Clock func() time.Time

type job struct {
	id          string
	req         domain.JobRequest
	createdAt   time.Time
	cancelledAt time.Time
}

// Registry keeps simulated jobs in memory. Progress grows linearly from 0 to
// 100 over the configured duration and freezes when a job is cancelled.
type Registry struct {
	duration time.Duration
	ttl      time.Duration
	now      Clock

	mu   sync.Mutex
	jobs map[string]*job
}

// NewRegistry creates an empty registry. A nil clock uses time.Now.
func NewRegistry(duration, ttl time.Duration, now Clock) *Registry {
	if now == nil {
		now = time.Now
	}
	if duration <= 0 {
		duration = 10 * time.Second
	}
	return &Registry{
		duration: duration,
		ttl:      ttl,
		now:      now,
		jobs:     make(map[string]*job),
	}
}

// Create registers req and returns its job id.
func (r *Registry) Create(req domain.JobRequest) string {
	j := &job{id: uuid.NewString(), req: req, createdAt: r.now()}
	r.mu.Lock()
	r.jobs[j.id] = j
	r.mu.Unlock()
	return j.id
}

// Len reports how many jobs are tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Status reports the progress of id.
func (r *Registry) Status(id string) (domain.JobStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return domain.JobStatus{}, ErrJobNotFound
	}
	return r.statusLocked(j), nil
}

// Cancel marks id cancelled. Cancelling twice, or after the job finished, is
// not an error; a finished job stays downloadable.
func (r *Registry) Cancel(id string) (domain.JobStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return domain.JobStatus{}, ErrJobNotFound
	}
	if st := r.statusLocked(j); !st.Ready && j.cancelledAt.IsZero() {
		j.cancelledAt = r.now()
	}
	return r.statusLocked(j), nil
}

// Artifact returns the generated output of a finished job.
func (r *Registry) Artifact(id string) (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Artifact{}, ErrJobNotFound
	}
	st := r.statusLocked(j)
	switch {
	case st.Cancelled:
		return Artifact{}, ErrJobCancelled
	case !st.Ready:
		return Artifact{}, ErrJobNotReady
	}
	return renderArtifact(j.id, j.req, j.createdAt), nil
}

// Sweep evicts jobs created more than the TTL ago and returns how many were
// removed. A non-positive TTL keeps everything.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, j := range r.jobs {
		if j.createdAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration, evicted func(int)) {
	if interval <= 0 || r.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 && evicted != nil {
				evicted(n)
			}
		}
	}
}

func (r *Registry) statusLocked(j *job) domain.JobStatus {
	at := r.now()
	cancelled := !j.cancelledAt.IsZero()
	if cancelled {
		at = j.cancelledAt
	}
	elapsed := at.Sub(j.createdAt)
	percent := math.Floor(float64(elapsed) / float64(r.duration) * 100)
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return domain.JobStatus{
		Percent:   percent,
		Ready:     !cancelled && percent >= 100,
		Cancelled: cancelled,
	}
}
