// Package domain contains the core entities of Flow Reader: the reading
// session, the countdown, the viewer and the documents they operate on.
// Nothing in here knows about terminals, PDF parsers or clocks.
package domain

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"sync"
)

// Common domain errors.
var (
	ErrInvalidDuration       = errors.New("duration must be a positive number of seconds")
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrEmptyDocument         = errors.New("document is empty")
	ErrCorruptDocument       = errors.New("document could not be parsed")
	ErrDocumentReleased      = errors.New("document has been released")
	ErrNoDocument            = errors.New("no document selected")
	ErrInvalidPhase          = errors.New("operation not allowed in current phase")
	ErrPageOutOfRange        = errors.New("page out of range")
	ErrScheduleFailed        = errors.New("countdown could not be scheduled")
	ErrFullscreenUnsupported = errors.New("fullscreen not supported")
	ErrFullscreenUnavailable = errors.New("fullscreen unavailable")
)

// MediaTypePDF is the only media type accepted at the input boundary.
const MediaTypePDF = "application/pdf"

// Document is a user-supplied blob together with its declared media type.
// It is owned by exactly one session; once released its bytes are gone.
type Document struct {
	Name      string
	MediaType string

	mu       sync.RWMutex
	data     []byte
	released bool
}

// NewDocument validates the declared media type of name and wraps data.
func NewDocument(name string, data []byte) (*Document, error) {
	mediaType := DeclaredMediaType(name)
	if mediaType != MediaTypePDF {
		return nil, ErrUnsupportedMediaType
	}
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	return &Document{
		Name:      filepath.Base(name),
		MediaType: mediaType,
		data:      data,
	}, nil
}

// DeclaredMediaType returns the media type implied by the file extension,
// without parameters. Unknown extensions yield "".
func DeclaredMediaType(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return ""
	}
	return mediaType
}

// Bytes returns the document contents.
func (d *Document) Bytes() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.released {
		return nil, ErrDocumentReleased
	}
	return d.data, nil
}

// Size returns the number of bytes held, 0 after release.
func (d *Document) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.data)
}

// Release drops the document contents. Safe to call more than once.
func (d *Document) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = nil
	d.released = true
}

// Released reports whether Release has been called.
func (d *Document) Released() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.released
}
