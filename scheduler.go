package featureflagshq

import (
	"context"
	"time"

	"github.com/featureflagshq/featureflagshq-go/internal/circuit"
)

// startBackground launches the polling and upload loops. Offline clients
// never call this.
func (c *Client) startBackground() {
	c.wg.Add(1)
	go c.pollLoop()

	if c.cfg.EnableAnalytics {
		c.wg.Add(1)
		go c.uploadLoop()
	}
}

// pollLoop refreshes the flag snapshot on the polling interval until
// shutdown.
func (c *Client) pollLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.requestBudget())
			if err := c.refresh(ctx); err != nil && !circuit.IsOpen(err) {
				c.logger.Warn().Err(err).Msg("background flag refresh failed")
			}
			cancel()
		}
	}
}

// uploadLoop flushes queued access logs on the upload interval until
// shutdown.
func (c *Client) uploadLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.LogUploadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.requestBudget())
			if err := c.flush(ctx); err != nil && !circuit.IsOpen(err) {
				c.logger.Warn().Err(err).Msg("background log upload failed")
			}
			cancel()
		}
	}
}

// requestBudget bounds one background cycle: the per-request timeout across
// all retry attempts, plus slack for backoff sleeps.
func (c *Client) requestBudget() time.Duration {
	return c.cfg.RequestTimeout*time.Duration(c.cfg.MaxRetries+1) + 5*time.Second
}
