package ethioguide

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/core/normalize"
)

// FetchProcedure walks the candidate detail paths in order. A transport
// error is recorded and the next path tried; a 2xx response whose payload is
// empty (or probes down to an empty object) is a soft-miss and advances
// without recording an error. The first non-empty payload wins. After
// exhaustion the last transport error surfaces (an upstream 404 maps to the
// not-found kind), or a synthetic 404-shaped not-found when every path
// completed cleanly but empty.
func (c *Client) FetchProcedure(ctx context.Context, id string) (any, error) {
	var lastErr error
	lastPath := ""

	for _, template := range c.procedurePaths {
		path := buildProcedurePath(template, id)
		lastPath = path

		payload, err := c.getJSON(ctx, "procedures.get", path, "")
		if err != nil {
			lastErr = err
			continue
		}
		if isSoftMiss(payload) {
			if c.observer != nil {
				c.observer.ObserveSoftMiss(path)
			}
			continue
		}
		return payload, nil
	}

	if lastErr != nil {
		var upstreamErr *Error
		if errors.As(lastErr, &upstreamErr) && upstreamErr.Status == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrProcedureNotFound, "fetch procedure", upstreamErr)
		}
		return nil, lastErr
	}
	notFound := &Error{
		Status: http.StatusNotFound,
		Path:   lastPath,
		Body:   "not found via any fallback path",
	}
	return nil, domain.WrapError(domain.ErrProcedureNotFound, "fetch procedure", notFound)
}

// isSoftMiss treats as unusable both literally empty payloads and envelopes
// that probe down to an empty object, such as {"data":[]} from the
// query-style fallback path.
func isSoftMiss(payload any) bool {
	if normalize.IsEmptyPayload(payload) {
		return true
	}
	return normalize.IsEmptyPayload(normalize.Probe(payload))
}

func buildProcedurePath(template, id string) string {
	if strings.Contains(template, "?") {
		return fmt.Sprintf(template, url.QueryEscape(id))
	}
	return fmt.Sprintf(template, url.PathEscape(id))
}

