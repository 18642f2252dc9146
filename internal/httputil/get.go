// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP helper shared by the page and archive
// fetch stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// StatusError reports a response whose status code is outside the 2xx range.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s for url: %s", e.Status, e.URL)
}

// Get issues a GET request for url with the given extra headers. A nil
// header sends the request as the client builds it.
//
// Responses with a non-2xx status are drained, closed, and reported as a
// *StatusError. On success the caller owns resp.Body. Requests are not
// retried.
func Get(ctx context.Context, client *http.Client, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		status := resp.Status
		if status == "" {
			status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: status, URL: url}
	}
	return resp, nil
}
