package projection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/maxpoletaev/gridclient/nodeapi"
	"github.com/maxpoletaev/gridclient/session"
	"github.com/maxpoletaev/gridclient/workerpool"
)

// Compute executes named tasks on the grid nodes.
type Compute struct {
	base
	balancer Balancer
}

func NewCompute(sess *session.Context, failures NodeFailureHandler, pool *workerpool.Pool, opts ...Option) *Compute {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.balancer == nil {
		o.balancer = &RoundRobin{}
	}

	c := &Compute{
		balancer: o.balancer,
	}

	c.init(sess, failures, pool, o)

	return c
}

// Execute runs the task with the given argument on one of the eligible nodes
// and returns its result.
func (c *Compute) Execute(ctx context.Context, task string, arg []byte) ([]byte, error) {
	if !c.IsValid() {
		return nil, ErrInvalidated
	}

	nodes := c.Nodes()
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}

	node := c.balancer.Pick(nodes)

	req := &nodeapi.TaskRequest{
		RequestID: uuid.New(),
		ClientID:  c.sess.ClientID(),
		TaskName:  task,
		Arg:       arg,
	}

	res, err := call(ctx, &c.base, node, func(ctx context.Context, exec nodeapi.Executor, addr string) (*nodeapi.TaskResult, error) {
		return exec.Task(ctx, addr, req)
	})

	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task, err)
	}

	return res.Result, nil
}
