// Package display renders flight snapshots onto a 128x32 RGB LED canvas.
// Rendering is double-buffered: each frame is drawn off-screen and handed to
// the sink whole, so the panel never shows a partially drawn frame.
package display

// Panel geometry: two chained 64x32 panels.
const (
	Width  = 128
	Height = 32

	// RowHeight is the pixel height of one text row; four rows fit the panel.
	RowHeight = 8
)

// Color is one RGB pixel.
type Color struct {
	R, G, B uint8
}

// Palette used by the renderer.
var (
	ColorBlack    = Color{}
	ColorCallsign = Color{R: 0, G: 255, B: 255}   // cyan
	ColorData     = Color{R: 255, G: 255, B: 255} // white
	ColorRoute    = Color{R: 0, G: 255, B: 0}     // green
	ColorDistance = Color{R: 255, G: 191, B: 0}   // amber
	ColorStatus   = Color{R: 128, G: 128, B: 128} // gray
)

// Frame is one full off-screen canvas.
type Frame struct {
	pix [Height][Width]Color
}

// NewFrame returns a cleared frame.
func NewFrame() *Frame {
	return &Frame{}
}

// Set writes one pixel. Out-of-bounds writes are dropped.
func (f *Frame) Set(x, y int, c Color) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	f.pix[y][x] = c
}

// At reads one pixel. Out-of-bounds reads return black.
func (f *Frame) At(x, y int) Color {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return ColorBlack
	}
	return f.pix[y][x]
}

// Clear blacks out the frame.
func (f *Frame) Clear() {
	*f = Frame{}
}

// Sink is the output device a frame is pushed to.
type Sink interface {
	// Bounds returns the sink's canvas dimensions.
	Bounds() (width, height int)
	// SetBrightness scales output intensity, 0.0 (off) to 1.0 (full).
	SetBrightness(level float64)
	// Show commits a complete frame to the device.
	Show(frame *Frame) error
	// Clear turns all pixels off.
	Clear() error
	// Close releases the device.
	Close() error
}
