package trial

import (
	"context"
	"sync"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/state"
	"golang.org/x/sync/errgroup"
)

// Member is one unit of work in a fan-out.
type Member interface {
	Run(ctx context.Context, store *state.Store, iteration int) error
}

// Group runs its members concurrently and waits for all of them.
type Group struct {
	members []Member
	logger  *logging.Logger
}

// NewGroup creates a fan-out over members.
func NewGroup(members ...Member) *Group {
	return &Group{
		members: members,
		logger:  logging.New().WithComponent("fanout"),
	}
}

// Run starts every member and blocks until all have returned. Members do not
// share a cancellable context, so one failure never cuts another short. The
// first error is returned; every failure is logged.
func (g *Group) Run(ctx context.Context, store *state.Store, iteration int) error {
	var (
		eg     errgroup.Group
		mu     sync.Mutex
		failed int
	)
	for i, m := range g.members {
		eg.Go(func() error {
			err := m.Run(ctx, store, iteration)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				g.logger.Error("fan-out member failed", map[string]interface{}{
					"member":    i,
					"iteration": iteration,
					"error":     err.Error(),
				})
			}
			return err
		})
	}
	err := eg.Wait()
	if err != nil {
		g.logger.Warn("fan-out incomplete", map[string]interface{}{
			"iteration": iteration,
			"failed":    failed,
			"members":   len(g.members),
		})
	}
	return err
}
