// Package library lists the PDF documents in a directory.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"github.com/xvierd/flow-reader/internal/domain"
)

// MaxDocumentSize is the largest file ReadDocument will load.
const MaxDocumentSize = 256 << 20

// ErrTooLarge is returned for files above MaxDocumentSize.
var ErrTooLarge = errors.New("document too large")

// Entry is one PDF file in the library.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Library is a directory of PDF documents.
type Library struct {
	dir    string
	logger zerolog.Logger
}

// New creates a library rooted at dir.
func New(dir string, logger zerolog.Logger) *Library {
	return &Library{
		dir:    dir,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// Dir returns the library directory.
func (l *Library) Dir() string {
	return l.dir
}

// Scan returns the PDF files directly inside the library directory,
// sorted by name. Subdirectories are not searched.
func (l *Library) Scan() ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read library %s: %w", l.dir, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !isPDF(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(l.dir, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// Filter returns the entries whose names fuzzily match query, best match
// first. An empty query returns entries unchanged.
func Filter(entries []Entry, query string) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}

	matches := fuzzy.Find(query, names)
	result := make([]Entry, 0, len(matches))
	for _, match := range matches {
		result = append(result, entries[match.Index])
	}
	return result
}

// ReadDocument loads the file at path as a document. Files that are not
// declared as PDF are rejected before they are read.
func ReadDocument(path string) (*domain.Document, error) {
	if mt := domain.DeclaredMediaType(path); mt != domain.MediaTypePDF {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrUnsupportedMediaType)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxDocumentSize {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return domain.NewDocument(path, data)
}

// Watch reports changes to the PDF files of the library until ctx is done.
// Bursts of changes are coalesced into a single signal. The returned
// channel is closed when watching stops.
func (l *Library) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("library: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				l.logger.Warn().Err(err).Msg("failed to close watcher")
			}
		})
	}

	if err := watcher.Add(l.dir); err != nil {
		closeWatcher()
		return nil, fmt.Errorf("library: watch %s: %w", l.dir, err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer closeWatcher()

		signal := func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn().Err(err).Msg("library watcher error")
				signal()
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op == fsnotify.Chmod || !isPDF(evt.Name) {
					continue
				}
				l.logger.Debug().Str("file", evt.Name).Str("op", evt.Op.String()).Msg("library changed")
				signal()
			}
		}
	}()

	return changes, nil
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
