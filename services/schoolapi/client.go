// Package schoolapi is the typed HTTP client for the school management API.
// It implements the school.Client surface, identity.Authenticator and
// health.Prober on one underlying http.Client, and translates the API's
// failure modes into the portal's two error families: core.ErrUnavailable
// for anything short of a definitive answer, core.APIError for 4xx
// rejections passed through verbatim.
package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/health"
	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/core/school"
)

type client struct {
	baseURL string
	hc      *http.Client
	probeHC *http.Client
	logger  core.Logger
}

var (
	_ school.Client          = (*client)(nil)
	_ identity.Authenticator = (*client)(nil)
	_ health.Prober          = (*client)(nil)
)

func NewClient(conf *core.Config, logger core.Logger) *client {
	return &client{
		baseURL: strings.TrimRight(conf.Upstream.BaseURL, "/"),
		hc:      &http.Client{Timeout: conf.Upstream.Timeout},
		probeHC: &http.Client{Timeout: conf.Upstream.ProbeTimeout},
		logger:  logger,
	}
}

// do round-trips one JSON request. A nil `out` discards the response body;
// a nil `body` sends none.
func (c *client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		payload = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	c.setHeaders(req, token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrap(core.ErrUnavailable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return errors.Wrapf(core.ErrUnavailable, "school API answered %d", res.StatusCode)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return c.apiError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding school API response")
}

// download round-trips one binary request, keeping the upstream's content
// type and suggested filename.
func (c *client) download(ctx context.Context, path, token string) (school.PDF, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return school.PDF{}, errors.Wrap(err, "building request")
	}
	c.setHeaders(req, token)
	req.Header.Set("Accept", "application/pdf, application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return school.PDF{}, errors.Wrap(core.ErrUnavailable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return school.PDF{}, errors.Wrapf(core.ErrUnavailable, "school API answered %d", res.StatusCode)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return school.PDF{}, c.apiError(res)
	}

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return school.PDF{}, errors.Wrap(core.ErrUnavailable, err.Error())
	}

	pdf := school.PDF{Content: content, ContentType: res.Header.Get("Content-Type")}
	if pdf.ContentType == "" {
		pdf.ContentType = "application/pdf"
	}
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition")); err == nil {
		pdf.Filename = params["filename"]
	}
	return pdf, nil
}

func (c *client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := core.RequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
}

// apiError decodes a 4xx body. The school API answers in three shapes: the
// framework's {"detail": "..."}, its own {"error"/"message", "retry_after"},
// and serializer field maps {"name": ["..."]}.
func (c *client) apiError(res *http.Response) error {
	apiErr := &core.APIError{StatusCode: res.StatusCode}

	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	var body map[string]json.RawMessage
	if json.Unmarshal(b, &body) == nil {
		for _, key := range []string{"detail", "error", "message"} {
			var s string
			if raw, ok := body[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
				apiErr.Detail = s
				break
			}
		}
		var after int
		if raw, ok := body["retry_after"]; ok && json.Unmarshal(raw, &after) == nil {
			apiErr.RetryAfter = after
		}
		for key, raw := range body {
			var msgs []string
			if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
				if apiErr.Fields == nil {
					apiErr.Fields = make(map[string][]string)
				}
				apiErr.Fields[key] = msgs
			}
		}
	}

	if apiErr.RetryAfter == 0 {
		if after, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfter = after
		}
	}
	if apiErr.Detail == "" {
		apiErr.Detail = strings.ToLower(http.StatusText(res.StatusCode))
	}
	return apiErr
}
