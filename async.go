package l402

import (
	"context"
	"io"
	"net/http"
)

// AsyncClient is a future-returning view over a Client. Both views drive
// the same orchestration and share one budget, credential cache, and
// spending log, so payments are deduplicated across sync and async callers.
type AsyncClient struct {
	client *Client
}

// NewAsync constructs a Client with the given options and returns its
// asynchronous view. The underlying Client is reachable via Sync.
func NewAsync(options ...Option) *AsyncClient {
	return New(options...).Async()
}

// Sync returns the underlying synchronous client.
func (a *AsyncClient) Sync() *Client {
	return a.client
}

// Do starts the request and returns immediately. The request proceeds in
// the background, payments included.
func (a *AsyncClient) Do(req *http.Request) *ResponseFuture {
	f := &ResponseFuture{done: make(chan struct{})}
	go func() {
		f.resp, f.err = a.client.Do(req)
		close(f.done)
	}()
	return f
}

// Get starts an HTTP GET with context.
func (a *AsyncClient) Get(ctx context.Context, url string) *ResponseFuture {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return resolvedFuture(nil, err)
	}
	return a.Do(req)
}

// Post starts an HTTP POST with the given content type.
func (a *AsyncClient) Post(ctx context.Context, url, contentType string, body io.Reader) *ResponseFuture {
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return resolvedFuture(nil, err)
	}
	req.Header.Set("Content-Type", contentType)
	return a.Do(req)
}

// ResponseFuture delivers the outcome of an asynchronous request.
type ResponseFuture struct {
	resp *http.Response
	err  error
	done chan struct{}
}

func resolvedFuture(resp *http.Response, err error) *ResponseFuture {
	f := &ResponseFuture{done: make(chan struct{}), resp: resp, err: err}
	close(f.done)
	return f
}

// Done is closed when the outcome is available.
func (f *ResponseFuture) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the request completes or ctx cancels. Abandoning the
// wait does not cancel the request or any payment it shares; cancel the
// request's own context for that.
func (f *ResponseFuture) Wait(ctx context.Context) (*http.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
