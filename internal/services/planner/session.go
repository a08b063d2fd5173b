package planner

import (
	"context"
	"sync"

	"github.com/hxuan190/relay-swap/internal/common"
	"github.com/hxuan190/relay-swap/internal/domain"
	"github.com/hxuan190/relay-swap/internal/metrics"
)

// Session serializes the plans of one user. Starting a plan cancels the one in flight,
// and a superseded plan never returns its result.
type Session struct {
	planner *Planner

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

func NewSession(planner *Planner) *Session {
	return &Session{planner: planner}
}

// Plan fails with common.ErrSuperseded when a newer Plan started before this one finished.
func (s *Session) Plan(ctx context.Context, req domain.PlanRequest) (*domain.SwapPlan, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel(common.ErrSuperseded)
	}
	s.seq++
	mine := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	plan, err := s.planner.Plan(ctx, req)

	s.mu.Lock()
	current := s.seq == mine
	if current {
		s.cancel = nil
	}
	s.mu.Unlock()

	if !current {
		metrics.PlansSuperseded.Inc()
		return nil, common.ErrSuperseded
	}
	return plan, err
}

// Cancel supersedes the plan in flight, if any. The session stays usable.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.cancel != nil {
		s.cancel(common.ErrSuperseded)
		s.cancel = nil
	}
}
