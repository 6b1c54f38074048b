package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "curvewatch/1.0 (+https://github.com/curvewatch/curvewatch)"

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// DoGet performs an HTTP GET with the given extra headers and returns
// the response body (caller closes) and status code. Non-2xx responses
// are returned as an error with the body drained and closed.
func DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		resp.Body.Close()
		return nil, resp.StatusCode, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	return resp.Body, resp.StatusCode, nil
}
