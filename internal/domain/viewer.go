package domain

import "math"

// Zoom bounds and step of the viewer.
const (
	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 0.25
)

// LoadStatus describes where the render surface is in its load lifecycle.
type LoadStatus string

const (
	LoadStatusIdle    LoadStatus = "idle"
	LoadStatusLoading LoadStatus = "loading"
	LoadStatusReady   LoadStatus = "ready"
	LoadStatusFailed  LoadStatus = "failed"
)

// ViewerState holds the user-mutable position of the viewer.
// Page is 0 until a document has loaded.
type ViewerState struct {
	Page       int
	TotalPages int
	Zoom       float64
}

// CanPrev reports whether PrevPage would move.
func (v ViewerState) CanPrev() bool {
	return v.TotalPages > 0 && v.Page > 1
}

// CanNext reports whether NextPage would move.
func (v ViewerState) CanNext() bool {
	return v.TotalPages > 0 && v.Page < v.TotalPages
}

// ZoomPercent returns the zoom factor as a rounded percentage.
func (v ViewerState) ZoomPercent() int {
	return int(math.Round(v.Zoom * 100))
}

// Surface is one page rasterized at one zoom level.
type Surface struct {
	Page  int
	Zoom  float64
	Width int
	Lines []string
}

// ViewerSnapshot is a consistent copy of the render surface state.
type ViewerSnapshot struct {
	State       ViewerState
	Status      LoadStatus
	LoadError   error
	RenderError error
	Output      *Surface
}

// ClampZoom limits z to [MinZoom, MaxZoom] and snaps it to the zoom step.
func ClampZoom(z float64) float64 {
	z = math.Round(z/ZoomStep) * ZoomStep
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// ClampPage limits n to [1, total]. With no pages it returns 0.
func ClampPage(n, total int) int {
	if total <= 0 {
		return 0
	}
	if n < 1 {
		return 1
	}
	if n > total {
		return total
	}
	return n
}
