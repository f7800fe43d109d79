package client

import (
	"github.com/maxpoletaev/gridclient/projection"
)

// newDataProjection is replaced in tests to observe the constructions.
var newDataProjection = projection.NewData

// Data returns the projection of the default cache.
func (c *Client) Data() *projection.Data {
	return c.DataNamed("")
}

// DataNamed returns the projection of the named cache. The projection is
// created on first use and the same instance is returned afterwards.
func (c *Client) DataNamed(name string) *projection.Data {
	if d, ok := c.data.Load(name); ok {
		return d
	}

	v, _, _ := c.dataGroup.Do(name, func() (interface{}, error) {
		// Might have been created while we were waiting.
		if d, ok := c.data.Load(name); ok {
			return d, nil
		}

		d := newDataProjection(c.sess, c, c.pool, name,
			projection.WithFlags(c.sess.Config().CacheFlags),
		)

		c.data.Store(name, d)

		if c.closed.Load() {
			d.Invalidate()
		}

		return d, nil
	})

	return v.(*projection.Data)
}

// Compute returns the compute projection over all nodes of the grid.
func (c *Client) Compute() *projection.Compute {
	c.computeMut.Lock()
	defer c.computeMut.Unlock()

	if c.compute == nil {
		c.compute = projection.NewCompute(c.sess, c, c.pool)

		if c.closed.Load() {
			c.compute.Invalidate()
		}
	}

	return c.compute
}

func (c *Client) invalidateProjections() {
	c.data.Range(func(name string, d *projection.Data) bool {
		d.Invalidate()
		return true
	})

	c.computeMut.Lock()
	defer c.computeMut.Unlock()

	if c.compute != nil {
		c.compute.Invalidate()
	}
}
