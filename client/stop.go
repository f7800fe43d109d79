package client

import (
	"github.com/go-kit/log/level"
)

// Stop shuts the client down. The background refresher is stopped and every
// projection is invalidated. With wait, the requests already submitted to the
// worker pool are allowed to complete. Without it, the executor is stopped,
// aborting the in-flight requests including a running topology refresh.
// Stop may be called from a topology listener. Calling it again has no effect.
func (c *Client) Stop(wait bool) {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)

		c.invalidateProjections()

		if !wait {
			c.sess.Executor().Stop()
		}

		c.pool.Shutdown(wait)

		level.Info(c.logger).Log(
			"msg", "client stopped",
			"wait", wait,
			"data_projections", c.data.Len(),
		)
	})
}
