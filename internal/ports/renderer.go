package ports

import (
	"context"

	"github.com/xvierd/flow-reader/internal/domain"
)

// DocumentOpener parses documents.
// This is a driven port (implemented by adapters).
type DocumentOpener interface {
	// Open parses doc and returns a handle to it.
	Open(ctx context.Context, doc *domain.Document) (DocumentHandle, error)
}

// DocumentHandle is a parsed document.
type DocumentHandle interface {
	// PageCount returns the number of pages, fixed for the handle's lifetime.
	PageCount() int

	// RenderPage rasterizes page index (1-based) at the given zoom factor.
	RenderPage(ctx context.Context, index int, zoom float64) (*domain.Surface, error)

	// Close frees any decoded resources.
	Close() error
}

// Notifier shows desktop notifications.
// This is a driven port (implemented by adapters).
type Notifier interface {
	// Notify displays a notification with the given title and message.
	Notify(title, message string) error
}
