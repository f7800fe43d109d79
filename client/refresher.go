package client

import (
	"time"
)

// startRefresher runs the periodic refresh until the stop channel is closed.
// Stop does not wait for the goroutine: a refresh that is already running is
// left to finish, and the closed flag keeps it from starting another one.
func (c *Client) startRefresher(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Refresh()
			case <-c.stop:
				return
			}
		}
	}()
}
