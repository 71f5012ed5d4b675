package ratesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"valutatrade-hub/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// maxBodySize bounds how much of a source response is read.
const maxBodySize = 1 << 20

// httpClient is the transport shared by every source: a bounded client plus an
// outbound limiter. All failures surface as API_001.
type httpClient struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func newHTTPClient(name string, timeout time.Duration, requestsPerMinute int, log zerolog.Logger) *httpClient {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &httpClient{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With().Str("source", name).Logger(),
	}
}

// getJSON performs a GET and returns the parsed body.
func (c *httpClient) getJSON(ctx context.Context, url string) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, apperror.ErrAPIRequest(fmt.Sprintf("%s request throttled: %v", c.name, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, apperror.ErrAPIRequest(fmt.Sprintf("building %s request: %v", c.name, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return gjson.Result{}, apperror.ErrAPIRequest(fmt.Sprintf("network error accessing %s: %v", c.name, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return gjson.Result{}, apperror.ErrAPIRequest(fmt.Sprintf("reading %s response: %v", c.name, err))
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, apperror.ErrAPIRequest(fmt.Sprintf("%s returned HTTP %d", c.name, resp.StatusCode))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, apperror.ErrAPIRequest(fmt.Sprintf("invalid response format from %s", c.name))
	}

	c.log.Debug().Int("bytes", len(body)).Msg("rate source response received")
	return gjson.ParseBytes(body), nil
}

// positiveNumber returns the value when v is a number greater than zero.
func positiveNumber(v gjson.Result) (float64, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	f := v.Float()
	return f, f > 0
}
