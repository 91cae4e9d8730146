// Package canvas implements the viewport transform: the scale+pan pair mapping
// canvas coordinates to screen coordinates. All conversions are pure functions
// of the current (scale, position); viewport pixel size is always passed in as
// a parameter, never cached.
package canvas

// Point 2D 좌표 (스크린 또는 캔버스 공간)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Size viewport pixel dimensions
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect axis-aligned content box in canvas space
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Options transform 동작 파라미터
type Options struct {
	MinScale         float64
	MaxScale         float64
	ZoomStep         float64
	WheelSensitivity float64
	FitPadding       float64
	FitMinScale      float64
	FitMaxScale      float64
}

// DefaultOptions 기본값
func DefaultOptions() Options {
	return Options{
		MinScale:         0.25,
		MaxScale:         3.0,
		ZoomStep:         0.1,
		WheelSensitivity: 0.01,
		FitPadding:       60,
		FitMinScale:      0.25,
		FitMaxScale:      1.5,
	}
}

// Transform owns the zoom scale and pan offset for one board view.
// Not safe for concurrent use; callers on the event loop own it exclusively.
type Transform struct {
	opts     Options
	scale    float64
	position Point
}

// New 기본 상태(scale 1, origin)의 Transform 생성
func New(opts Options) *Transform {
	if opts.MinScale <= 0 || opts.MaxScale <= 0 {
		opts = DefaultOptions()
	}
	return &Transform{opts: opts, scale: 1}
}

// Scale 현재 줌 배율
func (t *Transform) Scale() float64 {
	return t.scale
}

// Position 현재 팬 오프셋 (캔버스 원점의 스크린 위치)
func (t *Transform) Position() Point {
	return t.position
}

func (t *Transform) clampScale(s float64) float64 {
	if s < t.opts.MinScale {
		return t.opts.MinScale
	}
	if s > t.opts.MaxScale {
		return t.opts.MaxScale
	}
	return s
}

// ZoomIn 고정 스텝 확대 (앵커 없음)
func (t *Transform) ZoomIn() {
	t.scale = t.clampScale(t.scale + t.opts.ZoomStep)
}

// ZoomOut 고정 스텝 축소
func (t *Transform) ZoomOut() {
	t.scale = t.clampScale(t.scale - t.opts.ZoomStep)
}

// WheelZoom handles a wheel/trackpad event. With the zoom modifier held the
// vertical delta rescales around the pointer so the canvas point under the
// cursor stays put; without it the delta is a two-axis pan.
func (t *Transform) WheelZoom(pointer Point, deltaX, deltaY float64, modifier bool) {
	if !modifier {
		t.position.X -= deltaX
		t.position.Y -= deltaY
		return
	}

	newScale := t.clampScale(t.scale - deltaY*t.opts.WheelSensitivity)
	if newScale == t.scale {
		return
	}

	ratio := newScale / t.scale
	t.position = Point{
		X: pointer.X - (pointer.X-t.position.X)*ratio,
		Y: pointer.Y - (pointer.Y-t.position.Y)*ratio,
	}
	t.scale = newScale
}

// PanBy 스크린 공간 델타만큼 팬 (스페이스 키 팬 드래그용)
func (t *Transform) PanBy(delta Point) {
	t.position = t.position.Add(delta)
}

// Reset scale 1, origin으로 복귀
func (t *Transform) Reset() {
	t.scale = 1
	t.position = Point{}
}

// Set 외부에서 scale/position 지정 (scale은 바운드로 클램프)
func (t *Transform) Set(scale float64, position Point) {
	t.scale = t.clampScale(scale)
	t.position = position
}

// ScreenToCanvas converts a screen point (relative to the page) into canvas
// coordinates. Exact inverse of CanvasToScreen for the current state.
func (t *Transform) ScreenToCanvas(screen, viewportOrigin Point) Point {
	return Point{
		X: (screen.X - viewportOrigin.X - t.position.X) / t.scale,
		Y: (screen.Y - viewportOrigin.Y - t.position.Y) / t.scale,
	}
}

// CanvasToScreen 렌더 변환: canvasPoint*scale + position (+ viewport origin)
func (t *Transform) CanvasToScreen(canvasPt, viewportOrigin Point) Point {
	return Point{
		X: canvasPt.X*t.scale + t.position.X + viewportOrigin.X,
		Y: canvasPt.Y*t.scale + t.position.Y + viewportOrigin.Y,
	}
}

// FitToContent computes the transform framing all content boxes within the
// viewport with padding, and applies it. An empty content set behaves as Reset.
func (t *Transform) FitToContent(content []Rect, viewport Size) {
	if len(content) == 0 {
		t.Reset()
		return
	}

	minX, minY := content[0].X, content[0].Y
	maxX, maxY := content[0].X+content[0].Width, content[0].Y+content[0].Height
	for _, r := range content[1:] {
		if r.X < minX {
			minX = r.X
		}
		if r.Y < minY {
			minY = r.Y
		}
		if r.X+r.Width > maxX {
			maxX = r.X + r.Width
		}
		if r.Y+r.Height > maxY {
			maxY = r.Y + r.Height
		}
	}

	contentW := maxX - minX
	contentH := maxY - minY
	pad := t.opts.FitPadding

	// 콘텐츠가 점 하나여도 0 나눗셈이 없도록 최소 폭을 준다
	if contentW <= 0 {
		contentW = 1
	}
	if contentH <= 0 {
		contentH = 1
	}

	scale := (viewport.Width - 2*pad) / contentW
	if sy := (viewport.Height - 2*pad) / contentH; sy < scale {
		scale = sy
	}
	if scale < t.opts.FitMinScale {
		scale = t.opts.FitMinScale
	}
	if scale > t.opts.FitMaxScale {
		scale = t.opts.FitMaxScale
	}

	// 콘텐츠 바운딩 박스 중심을 뷰포트 중심으로
	centerX := minX + contentW/2
	centerY := minY + contentH/2
	t.scale = scale
	t.position = Point{
		X: viewport.Width/2 - centerX*scale,
		Y: viewport.Height/2 - centerY*scale,
	}
}
