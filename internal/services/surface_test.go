package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xvierd/flow-reader/internal/domain"
	"github.com/xvierd/flow-reader/internal/testutil"
)

func newTestSurface(t *testing.T, opener *testutil.FakeOpener) *RenderSurface {
	t.Helper()
	s := NewRenderSurface(opener, 0, zerolog.Nop())
	t.Cleanup(func() {
		s.Release()
		s.Wait()
	})
	return s
}

func waitStarted(t *testing.T, h *testutil.FakeHandle) testutil.RenderCall {
	t.Helper()
	select {
	case call := <-h.Started():
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("render did not start")
		return testutil.RenderCall{}
	}
}

func TestRenderSurface_Load(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 3)
	s := newTestSurface(t, opener)

	assert.Equal(t, domain.LoadStatusIdle, s.State().Status)

	s.Load(context.Background(), testutil.Document("book.pdf"))
	s.Wait()

	got := s.State()
	want := domain.ViewerState{Page: 1, TotalPages: 3, Zoom: DefaultInitialZoom}
	if diff := cmp.Diff(want, got.State); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.LoadStatusReady, got.Status)
	require.NotNil(t, got.Output)
	assert.Equal(t, []string{testutil.PageText(1, DefaultInitialZoom)}, got.Output.Lines)
}

func TestRenderSurface_LoadFailures(t *testing.T) {
	released := testutil.Document("gone.pdf")
	released.Release()

	tests := []struct {
		name    string
		doc     *domain.Document
		wantErr error
	}{
		{"corrupt", testutil.Document("bad.pdf"), domain.ErrCorruptDocument},
		{"no pages", testutil.Document("blank.pdf"), domain.ErrEmptyDocument},
		{"released", released, domain.ErrDocumentReleased},
		{"wrong media type", &domain.Document{Name: "a.txt", MediaType: "text/plain"}, domain.ErrUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := testutil.NewFakeOpener()
			opener.AddCorrupt("bad.pdf")
			opener.AddDocument("blank.pdf", 0)
			s := newTestSurface(t, opener)

			s.Load(context.Background(), tt.doc)
			s.Wait()

			got := s.State()
			assert.Equal(t, domain.LoadStatusFailed, got.Status)
			assert.ErrorIs(t, got.LoadError, tt.wantErr)
			assert.Equal(t, 0, got.State.TotalPages)
			assert.Nil(t, got.Output, "a failed load must not paint anything")

			s.NextPage()
			s.GoToPage(2)
			s.Wait()
			assert.Equal(t, 0, s.State().State.Page)
		})
	}
}

func TestRenderSurface_Navigation(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 3)
	s := newTestSurface(t, opener)
	s.Load(context.Background(), testutil.Document("book.pdf"))
	s.Wait()

	tests := []struct {
		name string
		move func()
		want int
	}{
		{"prev at first page", s.PrevPage, 1},
		{"next", s.NextPage, 2},
		{"next to last", s.NextPage, 3},
		{"next at last page", s.NextPage, 3},
		{"go to below range", func() { s.GoToPage(-4) }, 1},
		{"go to above range", func() { s.GoToPage(99) }, 3},
		{"go to middle", func() { s.GoToPage(2) }, 2},
	}

	for _, tt := range tests {
		tt.move()
		s.Wait()
		got := s.State()
		if got.State.Page != tt.want {
			t.Errorf("%s: Page = %d, want %d", tt.name, got.State.Page, tt.want)
		}
		require.NotNil(t, got.Output, tt.name)
		assert.Equal(t, tt.want, got.Output.Page, tt.name)
	}
}

func TestRenderSurface_ConcurrentPageTurns(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 20)
	s := newTestSurface(t, opener)
	s.Load(context.Background(), testutil.Document("book.pdf"))
	s.Wait()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NextPage()
		}()
	}
	wg.Wait()
	s.Wait()
	assert.Equal(t, 9, s.State().State.Page, "every NextPage() should move exactly one page")

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.PrevPage()
		}()
	}
	wg.Wait()
	s.Wait()
	assert.Equal(t, 6, s.State().State.Page)
}

func TestRenderSurface_ZoomClamped(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 1)
	s := newTestSurface(t, opener)
	s.Load(context.Background(), testutil.Document("book.pdf"))
	s.Wait()

	for i := 0; i < 20; i++ {
		s.ZoomIn()
	}
	s.Wait()
	assert.Equal(t, domain.MaxZoom, s.State().State.Zoom)
	assert.Equal(t, domain.MaxZoom, s.State().Output.Zoom)

	for i := 0; i < 20; i++ {
		s.ZoomOut()
	}
	s.Wait()
	assert.Equal(t, domain.MinZoom, s.State().State.Zoom)
	assert.Equal(t, domain.MinZoom, s.State().Output.Zoom)
}

func TestRenderSurface_InitialZoom(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, DefaultInitialZoom},
		{1, 1},
		{10, domain.MaxZoom},
		{0.1, domain.MinZoom},
	}

	for _, tt := range tests {
		s := NewRenderSurface(testutil.NewFakeOpener(), tt.in, zerolog.Nop())
		if got := s.State().State.Zoom; got != tt.want {
			t.Errorf("NewRenderSurface(zoom=%v) Zoom = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRenderSurface_SupersededRenderIsDiscarded(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 3)
	opener.BlockRenders()
	s := newTestSurface(t, opener)

	s.Load(context.Background(), testutil.Document("book.pdf"))
	require.Eventually(t, func() bool { return len(opener.Handles()) == 1 }, 2*time.Second, 5*time.Millisecond)
	h := opener.Handles()[0]

	first := waitStarted(t, h)
	assert.Equal(t, 1, first.Page)

	s.NextPage()
	second := waitStarted(t, h)
	assert.Equal(t, 2, second.Page)

	h.Unblock(1)
	require.Eventually(t, func() bool { return s.State().Output != nil }, 2*time.Second, 5*time.Millisecond)

	h.Unblock(0)
	s.Wait()

	got := s.State()
	require.NotNil(t, got.Output)
	assert.Equal(t, 2, got.Output.Page, "the older page 1 render must not be painted")
	assert.Equal(t, 2, got.State.Page)
}

func TestRenderSurface_ReleaseCancelsInFlightWork(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 3)
	opener.BlockRenders()
	s := newTestSurface(t, opener)

	s.Load(context.Background(), testutil.Document("book.pdf"))
	require.Eventually(t, func() bool { return len(opener.Handles()) == 1 }, 2*time.Second, 5*time.Millisecond)
	h := opener.Handles()[0]
	waitStarted(t, h)

	s.Release()
	s.Wait()

	got := s.State()
	assert.Equal(t, domain.LoadStatusIdle, got.Status)
	assert.Nil(t, got.Output)
	assert.Equal(t, domain.ViewerState{Zoom: DefaultInitialZoom}, got.State)
	assert.True(t, h.Closed())
}

func TestRenderSurface_LoadReplacesDocument(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("a.pdf", 3)
	opener.AddDocument("b.pdf", 5)
	s := newTestSurface(t, opener)

	s.Load(context.Background(), testutil.Document("a.pdf"))
	s.Wait()
	s.NextPage()
	s.ZoomIn()
	s.Wait()

	s.Load(context.Background(), testutil.Document("b.pdf"))
	s.Wait()

	handles := opener.Handles()
	require.Len(t, handles, 2)
	assert.True(t, handles[0].Closed())
	assert.Equal(t, domain.ViewerState{Page: 1, TotalPages: 5, Zoom: DefaultInitialZoom}, s.State().State)
}

func TestRenderSurface_OnChange(t *testing.T) {
	opener := testutil.NewFakeOpener()
	opener.AddDocument("book.pdf", 2)
	s := newTestSurface(t, opener)

	changes := make(chan struct{}, 16)
	s.OnChange(func() { changes <- struct{}{} })

	s.Load(context.Background(), testutil.Document("book.pdf"))
	s.Wait()

	assert.GreaterOrEqual(t, len(changes), 3, "loading, ready and painted should each notify")
}
