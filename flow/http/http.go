// Package http turns HTTP requests into jobs so that responses can be
// consumed in the order they arrive.
package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
	"github.com/lguimbarda/min-fanin/flow/transform"
)

// Response contains HTTP response data.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http: %s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Get starts a GET request and returns the job that completes with its
// response. A nil client means http.DefaultClient.
func Get(ctx context.Context, client *http.Client, url string) *job.Future[Response] {
	return Request(ctx, client, http.MethodGet, url, "", nil)
}

// Post starts a POST request with the given content type.
func Post(ctx context.Context, client *http.Client, url, contentType string, body io.Reader) *job.Future[Response] {
	return Request(ctx, client, http.MethodPost, url, contentType, body)
}

// PostJSON starts a POST request with a JSON body.
func PostJSON(ctx context.Context, client *http.Client, url, jsonBody string) *job.Future[Response] {
	return Post(ctx, client, url, "application/json", strings.NewReader(jsonBody))
}

// Request starts an HTTP request on its own goroutine. The body is read in
// full before the job completes.
func Request(ctx context.Context, client *http.Client, method, url, contentType string, body io.Reader) *job.Future[Response] {
	return job.Go(ctx, func(ctx context.Context) (Response, error) {
		return do(ctx, client, method, url, contentType, body)
	})
}

// GetAll issues a GET for every url, at most limit at a time (limit <= 0
// means no limit), and streams responses as they complete.
func GetAll(ctx context.Context, client *http.Client, urls []string, limit int) *core.FanIn[Response] {
	var opts []job.GroupOption
	if limit > 0 {
		opts = append(opts, job.WithLimit(limit))
	}
	g := job.NewGroup[Response](ctx, opts...)
	for _, url := range urls {
		g.Go(func(ctx context.Context) (Response, error) {
			return do(ctx, client, http.MethodGet, url, "", nil)
		})
	}
	return g.Stream()
}

// OK fails every response outside the 2xx range with a *StatusError.
func OK() core.Transformer[Response, Response] {
	return transform.TrySelect(func(r Response) (Response, error) {
		if r.StatusCode < 200 || r.StatusCode > 299 {
			return r, &StatusError{URL: r.URL, StatusCode: r.StatusCode}
		}
		return r, nil
	})
}

// Lines issues a GET and streams the response body line by line. The request
// is made on the first Next; closing the stream closes the body.
func Lines(client *http.Client, url string) core.Stream[string] {
	var (
		resp    *http.Response
		scanner *bufio.Scanner
		done    bool
	)
	next := func(ctx context.Context) (string, error) {
		if done {
			return "", core.ErrEndOfStream
		}
		if scanner == nil {
			r, err := send(ctx, client, http.MethodGet, url, "", nil)
			if err != nil {
				done = true
				return "", err
			}
			resp, scanner = r, bufio.NewScanner(r.Body)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		done = true
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", core.ErrEndOfStream
	}
	return core.Pull(next, func() error {
		if resp != nil {
			return resp.Body.Close()
		}
		return nil
	})
}

func do(ctx context.Context, client *http.Client, method, url, contentType string, body io.Reader) (Response, error) {
	resp, err := send(ctx, client, method, url, contentType, body)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func send(ctx context.Context, client *http.Client, method, url, contentType string, body io.Reader) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return client.Do(req)
}
