package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// IsRemote reports whether src is an http(s) URL rather than a local path.
func IsRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Open returns a reader for a local path or an http(s) URL.
func Open(ctx context.Context, f Fetcher, src string) (io.ReadCloser, error) {
	if IsRemote(src) {
		if f == nil {
			return nil, eris.Errorf("fetcher: no fetcher for remote source %s", src)
		}
		return f.Download(ctx, src)
	}
	file, err := os.Open(src)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", src)
	}
	return file, nil
}

// Localize returns a local file path for src, downloading remote sources into
// dir. The returned cleanup removes any downloaded file.
func Localize(ctx context.Context, f Fetcher, src, dir string) (string, func(), error) {
	if !IsRemote(src) {
		return src, func() {}, nil
	}
	if f == nil {
		return "", nil, eris.Errorf("fetcher: no fetcher for remote source %s", src)
	}

	tmp, err := os.CreateTemp(dir, "airzone-*"+remoteExt(src))
	if err != nil {
		return "", nil, eris.Wrap(err, "fetcher: create temp file")
	}
	path := tmp.Name()
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.DownloadToFile(ctx, src, path); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

// Ext returns the lowercased file extension of a path or URL, ignoring any
// query string.
func Ext(src string) string {
	return strings.ToLower(remoteExt(src))
}

func remoteExt(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	return filepath.Ext(src)
}
