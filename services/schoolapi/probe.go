package schoolapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
)

// ProbeAPI checks plain reachability with a HEAD request. Any HTTP answer
// counts, auth rejections included; only transport failures error.
func (c *client) ProbeAPI(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/sessions/", nil)
	if err != nil {
		return 0, errors.Wrap(err, "building probe request")
	}

	start := time.Now()
	res, err := c.probeHC.Do(req)
	latency := time.Since(start)
	if err != nil {
		return latency, errors.Wrap(core.ErrUnavailable, err.Error())
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body) /* drain for connection reuse */
	return latency, nil
}

// ProbeAuth checks that the auth stack can reach a verdict. An unauthenticated
// call must come back 401; a 200 would mean the same thing. Timeouts and 5xx
// mean the auth machinery itself is in trouble.
func (c *client) ProbeAuth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me/", nil)
	if err != nil {
		return errors.Wrap(err, "building probe request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.probeHC.Do(req)
	if err != nil {
		return errors.Wrap(core.ErrUnavailable, err.Error())
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode >= http.StatusInternalServerError {
		return errors.Wrapf(core.ErrUnavailable, "auth answered %d", res.StatusCode)
	}
	return nil
}
