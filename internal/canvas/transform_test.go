package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenToCanvasRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		scale    float64
		position Point
	}{
		{"identity", 1, Point{}},
		{"zoomed in", 2.5, Point{X: 120, Y: -80}},
		{"zoomed out", 0.25, Point{X: -300, Y: 450}},
		{"max scale", 3, Point{X: 15.5, Y: 99.9}},
	}

	origin := Point{X: 40, Y: 64}
	pt := Point{X: 123.4, Y: -56.7}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(DefaultOptions())
			tr.Set(tt.scale, tt.position)

			screen := tr.CanvasToScreen(pt, origin)
			back := tr.ScreenToCanvas(screen, origin)

			assert.InDelta(t, pt.X, back.X, 1e-9)
			assert.InDelta(t, pt.Y, back.Y, 1e-9)
		})
	}
}

func TestZoomStepClamping(t *testing.T) {
	tr := New(DefaultOptions())

	for i := 0; i < 100; i++ {
		tr.ZoomIn()
	}
	assert.Equal(t, 3.0, tr.Scale())

	for i := 0; i < 100; i++ {
		tr.ZoomOut()
	}
	assert.Equal(t, 0.25, tr.Scale())
}

func TestSetClampsScale(t *testing.T) {
	tr := New(DefaultOptions())

	tr.Set(10, Point{X: 5, Y: 5})
	assert.Equal(t, 3.0, tr.Scale())
	assert.Equal(t, Point{X: 5, Y: 5}, tr.Position())

	tr.Set(0.01, Point{})
	assert.Equal(t, 0.25, tr.Scale())
}

func TestWheelZoomKeepsPointerAnchored(t *testing.T) {
	tr := New(DefaultOptions())
	tr.Set(1, Point{X: 50, Y: 30})

	pointer := Point{X: 400, Y: 300}
	// 포인터 아래의 캔버스 좌표를 기억해 둔다
	before := tr.ScreenToCanvas(pointer, Point{})

	tr.WheelZoom(pointer, 0, -120, true) // 확대
	require.Greater(t, tr.Scale(), 1.0)

	after := tr.ScreenToCanvas(pointer, Point{})
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestWheelZoomAtBoundIsNoop(t *testing.T) {
	tr := New(DefaultOptions())
	tr.Set(3, Point{X: 7, Y: 7})

	tr.WheelZoom(Point{X: 100, Y: 100}, 0, -50, true)

	assert.Equal(t, 3.0, tr.Scale())
	assert.Equal(t, Point{X: 7, Y: 7}, tr.Position())
}

func TestWheelWithoutModifierPans(t *testing.T) {
	tr := New(DefaultOptions())

	tr.WheelZoom(Point{X: 10, Y: 10}, 25, -40, false)

	assert.Equal(t, 1.0, tr.Scale())
	assert.Equal(t, Point{X: -25, Y: 40}, tr.Position())
}

func TestPanBy(t *testing.T) {
	tr := New(DefaultOptions())
	tr.PanBy(Point{X: 12, Y: -8})
	tr.PanBy(Point{X: 3, Y: 4})
	assert.Equal(t, Point{X: 15, Y: -4}, tr.Position())
}

func TestFitToContentEmptyEqualsReset(t *testing.T) {
	tr := New(DefaultOptions())
	tr.Set(2.2, Point{X: 500, Y: -200})

	tr.FitToContent(nil, Size{Width: 1280, Height: 720})

	assert.Equal(t, 1.0, tr.Scale())
	assert.Equal(t, Point{}, tr.Position())
}

func TestFitToContentCentersContent(t *testing.T) {
	tr := New(DefaultOptions())
	viewport := Size{Width: 1000, Height: 800}

	content := []Rect{
		{X: 100, Y: 100, Width: 180, Height: 120},
		{X: 500, Y: 400, Width: 180, Height: 120},
	}
	tr.FitToContent(content, viewport)

	// 콘텐츠 중심 (390, 310)이 뷰포트 중심으로 매핑되어야 한다
	center := tr.CanvasToScreen(Point{X: 390, Y: 310}, Point{})
	assert.InDelta(t, 500, center.X, 1e-9)
	assert.InDelta(t, 400, center.Y, 1e-9)

	// 스케일은 fit 바운드 안
	assert.LessOrEqual(t, tr.Scale(), 1.5)
	assert.GreaterOrEqual(t, tr.Scale(), 0.25)
}

func TestFitToContentScaleClamp(t *testing.T) {
	tr := New(DefaultOptions())

	// 아주 작은 콘텐츠라도 1.5배 이상 키우지 않는다
	tr.FitToContent([]Rect{{X: 0, Y: 0, Width: 10, Height: 10}}, Size{Width: 1920, Height: 1080})
	assert.Equal(t, 1.5, tr.Scale())

	// 아주 큰 콘텐츠라도 0.25배 밑으로 줄이지 않는다
	tr.FitToContent([]Rect{{X: 0, Y: 0, Width: 100000, Height: 100000}}, Size{Width: 800, Height: 600})
	assert.Equal(t, 0.25, tr.Scale())
}
