// Package pdf renders PDF pages as wrapped text for the terminal.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/ports"
)

// DefaultBaseWidth is the column count of a page at 100% zoom.
const DefaultBaseWidth = 60

// Opener parses PDF documents.
type Opener struct {
	baseWidth int
}

var _ ports.DocumentOpener = (*Opener)(nil)

// NewOpener creates an opener that lays pages out baseWidth columns wide
// at 100% zoom.
func NewOpener(baseWidth int) *Opener {
	if baseWidth <= 0 {
		baseWidth = DefaultBaseWidth
	}
	return &Opener{baseWidth: baseWidth}
}

// Open implements ports.DocumentOpener.
func (o *Opener) Open(ctx context.Context, doc *domain.Document) (h ports.DocumentHandle, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return nil, domain.ErrEmptyDocument
	}

	return &Handle{
		reader:    reader,
		pages:     pages,
		baseWidth: o.baseWidth,
		text:      make(map[int]string),
	}, nil
}

// Handle is an opened PDF document. Extracted page text is cached so
// zooming does not parse the page again.
type Handle struct {
	baseWidth int
	pages     int

	mu     sync.Mutex
	reader *lpdf.Reader
	text   map[int]string
}

// PageCount implements ports.DocumentHandle.
func (h *Handle) PageCount() int {
	return h.pages
}

// RenderPage implements ports.DocumentHandle.
func (h *Handle) RenderPage(ctx context.Context, index int, zoom float64) (*domain.Surface, error) {
	if index < 1 || index > h.pages {
		return nil, fmt.Errorf("page %d of %d: %w", index, h.pages, domain.ErrPageOutOfRange)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := h.pageText(index)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width := ColumnWidth(h.baseWidth, zoom)
	return &domain.Surface{
		Page:  index,
		Zoom:  zoom,
		Width: width,
		Lines: Layout(text, width),
	}, nil
}

// Close implements ports.DocumentHandle.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reader = nil
	h.text = nil
	return nil
}

func (h *Handle) pageText(index int) (text string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reader == nil {
		return "", domain.ErrDocumentReleased
	}
	if cached, ok := h.text[index]; ok {
		return cached, nil
	}

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: page %d: %v", domain.ErrCorruptDocument, index, r)
		}
	}()

	page := h.reader.Page(index)
	if page.V.IsNull() {
		return "", fmt.Errorf("%w: page %d missing", domain.ErrCorruptDocument, index)
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("%w: page %d: %v", domain.ErrCorruptDocument, index, err)
	}
	h.text[index] = text
	return text, nil
}

// ColumnWidth returns the line width for zoom, never below one column.
func ColumnWidth(baseWidth int, zoom float64) int {
	w := int(math.Round(float64(baseWidth) * zoom))
	if w < 1 {
		return 1
	}
	return w
}

// Layout normalises whitespace in text and wraps it to width columns.
// Blank lines separate paragraphs; words longer than width are split.
func Layout(text string, width int) []string {
	var paragraphs []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		words := strings.Fields(block)
		if len(words) == 0 {
			continue
		}
		paragraphs = append(paragraphs, strings.Join(words, " "))
	}
	if len(paragraphs) == 0 {
		return nil
	}

	wrapped := wrap.String(wordwrap.String(strings.Join(paragraphs, "\n\n"), width), width)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return lines
}
