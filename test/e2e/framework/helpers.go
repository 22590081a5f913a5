package framework

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/silobase/silohost/internal/logger"
)

// WaitForEndpoint polls path on the client's base URL until it answers 200 OK
// or the context expires. It uses a plain one-shot probe under exponential
// backoff rather than the client's own retry policy, so a host that is still
// booting is distinguishable from one that is failing.
func WaitForEndpoint(ctx context.Context, c *Client, path string) error {
	target := c.base.JoinPath(path).String()

	probe := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("endpoint %s not ready: %s", target, resp.Status)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0 // the context owns the deadline

	err := backoff.RetryNotify(probe, backoff.WithContext(bo, ctx),
		func(err error, next time.Duration) {
			logger.Debug("Endpoint %s not ready, retrying in %s: %v", target, next, err)
		})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", target, err)
	}

	return nil
}
