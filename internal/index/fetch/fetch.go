// Package fetch downloads catalog payloads with byte-level progress.
//
// HTTP(S) URLs go through a retrying client. file:// URLs read a local mirror
// of the catalog service with the same progress and status semantics, so a
// mirrored catalog indexes exactly like the live one.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ProgressFunc receives the expected total and the bytes read so far.
// max is -1 when the length is not known in advance.
type ProgressFunc func(max, read int64)

// Response is a fully read catalog payload.
type Response struct {
	URL        string
	Body       []byte
	StatusCode int
	Status     string
}

// OK reports whether the response status is 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// CheckStatus returns a *StatusError unless the response status is 200.
func (r *Response) CheckStatus() error {
	if r.OK() {
		return nil
	}
	return &StatusError{URL: r.URL, StatusCode: r.StatusCode, Status: r.Status}
}

// Fetcher performs a blocking GET of a catalog URL.
//
// Get returns an error only when no response was obtained. A response with a
// non-200 status is returned as is; callers decide whether it is a failure.
type Fetcher interface {
	Get(ctx context.Context, url string, progress ProgressFunc) (*Response, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	// RetryMax is the number of retries after the first attempt.
	RetryMax int
	// Timeout bounds a single attempt, including reading the body.
	Timeout time.Duration
	// UserAgent is sent with every request when set.
	UserAgent string
	// Logger receives retry diagnostics. Nil disables them.
	Logger *log.Logger
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		RetryMax:  3,
		Timeout:   60 * time.Second,
		UserAgent: "door43-client",
	}
}

// HTTPFetcher fetches http, https and file URLs.
type HTTPFetcher struct {
	client    *retryablehttp.Client
	userAgent string
}

var _ Fetcher = (*HTTPFetcher)(nil)

// New creates an HTTPFetcher.
func New(opts Options) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	// Hand the last response back instead of a synthetic "giving up" error so
	// its status reaches the caller.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = opts.Logger
	}

	return &HTTPFetcher{
		client:    client,
		userAgent: opts.UserAgent,
	}
}

// Get fetches rawURL and reads the whole body, reporting progress after every
// read.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, progress ProgressFunc) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url %q: %w", rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return getFile(ctx, rawURL, u, progress)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported url scheme %q in %s", u.Scheme, rawURL)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := readAll(resp.Body, resp.ContentLength, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}

	return &Response{
		URL:        rawURL,
		Body:       body,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}, nil
}

// maxPreallocate bounds how much of an announced length is allocated before
// any bytes arrive.
const maxPreallocate = 8 << 20

// readAll reads r to EOF. progress is called after every successful read.
func readAll(r io.Reader, max int64, progress ProgressFunc) ([]byte, error) {
	if max < 0 {
		max = -1
	}
	var buf bytes.Buffer
	if max > 0 {
		buf.Grow(int(min(max, maxPreallocate)))
	}

	chunk := make([]byte, 32*1024)
	var read int64
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			read += int64(n)
			if progress != nil {
				progress(max, read)
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
