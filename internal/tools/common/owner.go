package common

import (
	"context"

	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
)

// TaskClient returns the task client for the authenticated caller in ctx.
func TaskClient(ctx context.Context, sc *server.ServerContext) (*tasks.Client, error) {
	owner, err := auth.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return sc.Tasks().ForOwner(owner)
}
