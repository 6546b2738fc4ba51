package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrAlreadyExists is returned by Open when the output path already refers
// to a file. A pre-existing artifact aborts the run before any model
// resources are loaded.
var ErrAlreadyExists = errors.New("output file already exists")

// Sink is the append-only output artifact. Exactly one process, the
// coordinator, may hold a Sink for a given path; running it from more than
// one process is a configuration error, not a locking problem.
type Sink struct {
	f    *os.File
	path string
}

// Open creates the artifact, failing with ErrAlreadyExists if the path is
// taken. The check happens once, here, not per append.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return &Sink{f: f, path: path}, nil
}

// Append writes one round's lines as a newline-joined block and syncs the
// file before returning, so a crash between rounds never loses a round that
// was reported written.
func (s *Sink) Append(lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	if _, err := s.f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.path, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", s.path, err)
	}
	return nil
}

func (s *Sink) Path() string {
	return s.path
}

func (s *Sink) Close() error {
	return s.f.Close()
}
