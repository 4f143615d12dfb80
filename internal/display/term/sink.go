// Package term emulates the LED panel in a terminal using tcell. Each LED
// pixel maps to one character cell colored via the terminal's RGB support.
package term

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/rl-enjoyer/flight-display/internal/display"
)

// Sink renders frames to a tcell screen. It satisfies display.Sink.
type Sink struct {
	mu         sync.Mutex
	screen     tcell.Screen
	brightness float64
	quitCh     chan struct{}
	quitOnce   sync.Once
	closed     bool
}

// NewSink initializes the terminal screen. Fails when no usable terminal is
// attached, letting the caller fall back to a headless sink.
func NewSink() (*Sink, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()

	s := &Sink{
		screen:     screen,
		brightness: 1.0,
		quitCh:     make(chan struct{}),
	}
	go s.eventLoop()
	return s, nil
}

// Quit is closed when the user presses q, Escape, or Ctrl+C.
func (s *Sink) Quit() <-chan struct{} {
	return s.quitCh
}

func (s *Sink) eventLoop() {
	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
				s.signalQuit()
			case ev.Rune() == 'q' || ev.Rune() == 'Q':
				s.signalQuit()
			}
		case *tcell.EventResize:
			s.screen.Sync()
		}
	}
}

func (s *Sink) signalQuit() {
	s.quitOnce.Do(func() { close(s.quitCh) })
}

func (s *Sink) Bounds() (int, int) { return display.Width, display.Height }

func (s *Sink) SetBrightness(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	s.brightness = level
}

// Show paints the frame onto the terminal. Lit pixels render as a filled
// block in the pixel's color, unlit pixels as background.
func (s *Sink) Show(frame *display.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink closed")
	}

	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			c := frame.At(x, y)
			ch := ' '
			style := tcell.StyleDefault
			if c != display.ColorBlack {
				ch = '█'
				style = style.Foreground(tcell.NewRGBColor(
					int32(float64(c.R)*s.brightness),
					int32(float64(c.G)*s.brightness),
					int32(float64(c.B)*s.brightness),
				))
			}
			s.screen.SetContent(x, y, ch, nil, style)
		}
	}
	s.screen.Show()
	return nil
}

func (s *Sink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.screen.Clear()
	s.screen.Show()
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.screen.Fini()
	return nil
}
