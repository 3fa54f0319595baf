// Package httprange serves cached files over HTTP with byte-range support
// for seekable playback. Only the first range of a multi-range header is
// honored; multipart responses are deliberately not produced.
package httprange

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iconidentify/streamcache/internal/domain"
)

// ErrAborted wraps write failures that happen after the response headers
// are sent. The caller can only log these; the status line is gone.
var ErrAborted = errors.New("response aborted mid-stream")

// Range is one byte span of a file. End is inclusive.
type Range struct {
	Start int64
	End   int64
	Size  int64
}

// Length returns the number of bytes in the span.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for the span.
func (r Range) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// Parse interprets a Range header against a file of the given size.
// Missing start defaults to 0, missing end to size-1; end is clamped to
// size-1. A start at or past the end of the file yields
// ErrRangeNotSatisfiable. A header this parser cannot read returns
// (nil, nil): the caller serves the full file, matching how HTTP treats
// unintelligible Range headers.
func Parse(header string, size int64) (*Range, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, nil
	}
	spec := strings.TrimPrefix(header, prefix)

	// Multi-range: honor the first spec only.
	if i := strings.Index(spec, ","); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, nil
	}

	var start, end int64
	var err error

	if startStr == "" {
		start = 0
	} else {
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return nil, nil
		}
	}

	if endStr == "" {
		end = size - 1
	} else {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, nil
		}
	}

	if end > size-1 {
		end = size - 1
	}
	if start >= size {
		return nil, domain.ErrRangeNotSatisfiable
	}

	return &Range{Start: start, End: end, Size: size}, nil
}

// ContentType maps a cached file's extension to its MIME type.
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// ServeFile streams path to the client, honoring a Range header when
// present. Files below minSize are treated as corrupt and never served.
// A missing file returns domain.ErrNotFound; range errors are written as
// a 416 response directly.
func ServeFile(w http.ResponseWriter, r *http.Request, path string, minSize int64) error {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("stat file: %w", err)
	}
	if st.Size() < minSize {
		return domain.ErrCorruptFile
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	w.Header().Set("Content-Type", ContentType(path))
	w.Header().Set("Accept-Ranges", "bytes")

	rangeHeader := r.Header.Get("Range")
	var rg *Range
	if rangeHeader != "" {
		rg, err = Parse(rangeHeader, st.Size())
		if err != nil {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", st.Size()))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return nil
		}
	}

	if rg == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(st.Size(), 10))
		w.WriteHeader(http.StatusOK)
		if _, err = io.Copy(w, f); err != nil {
			return fmt.Errorf("%w: %v", ErrAborted, err)
		}
		return nil
	}

	if _, err := f.Seek(rg.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	w.Header().Set("Content-Range", rg.ContentRange())
	w.Header().Set("Content-Length", strconv.FormatInt(rg.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if _, err = io.CopyN(w, f, rg.Length()); err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return nil
}
