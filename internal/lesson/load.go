package lesson

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// maxDocumentSize bounds remote lesson downloads.
const maxDocumentSize = 8 << 20

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	u, err := url.ParseRequestURI(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// ResolvePath expands a leading ~ in a local lesson reference.
func ResolvePath(ref string) (string, error) {
	if IsRemote(ref) {
		return ref, nil
	}
	return homedir.Expand(ref)
}

// Load reads and parses a lesson from a local path or an http(s) URL.
func Load(ctx context.Context, ref string) (*Lesson, error) {
	data, err := Read(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Read fetches the raw lesson document behind ref.
func Read(ctx context.Context, ref string) ([]byte, error) {
	if IsRemote(ref) {
		return fetch(ctx, ref)
	}

	path, err := ResolvePath(ref)
	if err != nil {
		return nil, fmt.Errorf("unable to expand lesson path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read lesson: %w", err)
	}
	return data, nil
}

func fetch(ctx context.Context, ref string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch lesson: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch lesson: HTTP status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("unable to read lesson body: %w", err)
	}
	return data, nil
}

// IsLessonFile reports whether a file name carries a lesson extension.
func IsLessonFile(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".xml")
}
