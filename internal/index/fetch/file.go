package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// getFile serves a file:// URL. A missing file yields a 404 response, like a
// missing document on the catalog server.
func getFile(ctx context.Context, rawURL string, u *url.URL, progress ProgressFunc) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.FromSlash(u.Path)
	if path == "" {
		path = filepath.FromSlash(u.Opaque)
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Response{
			URL:        rawURL,
			StatusCode: http.StatusNotFound,
			Status:     statusLine(http.StatusNotFound),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return &Response{
			URL:        rawURL,
			StatusCode: http.StatusForbidden,
			Status:     statusLine(http.StatusForbidden),
		}, nil
	}

	body, err := readAll(f, info.Size(), progress)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Response{
		URL:        rawURL,
		Body:       body,
		StatusCode: http.StatusOK,
		Status:     statusLine(http.StatusOK),
	}, nil
}

func statusLine(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

// FileURL returns the file:// URL for a local path.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
