// Package publish owns the shared directory where single-record
// invitations are exposed as short-lived static files.
package publish

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store writes documents under a public directory and schedules their
// removal after a fixed delay. It is an explicit handle: the directory
// and the timers belong to the store, not to process globals.
type Store struct {
	dir     string
	baseURL string
	delay   time.Duration
	logger  *slog.Logger
}

// NewStore creates the directory if needed. baseURL is the path prefix
// under which the directory is served.
func NewStore(dir, baseURL string, delay time.Duration, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create public dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		delay:   delay,
		logger:  logger,
	}, nil
}

// Dir returns the directory the store serves from.
func (s *Store) Dir() string { return s.dir }

// Publish writes the document and returns its URL. Deletion is
// fire-and-forget: the timer never blocks a response, and a file
// already removed (a second identical request, a crash-leftover swept
// by hand) is not an error. Cleanup is best effort; a crash before the
// delay elapses leaves the file behind.
func (s *Store) Publish(name, content string) (string, error) {
	name = filepath.Base(name) // derived names only, never path segments
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	time.AfterFunc(s.delay, func() { s.remove(path) })
	return s.baseURL + "/" + name, nil
}

func (s *Store) remove(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		s.logger.Info("published file removed", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		// already gone, fine
	default:
		s.logger.Error("published file removal failed", "path", path, "error", err)
	}
}
