package display

import "sync"

// HeadlessSink is a no-hardware sink. It keeps the last committed frame so
// callers (and tests) can inspect what would be on the panel.
type HeadlessSink struct {
	mu         sync.Mutex
	last       *Frame
	brightness float64
	closed     bool
}

// NewHeadlessSink creates a headless sink.
func NewHeadlessSink() *HeadlessSink {
	return &HeadlessSink{brightness: 1.0}
}

func (s *HeadlessSink) Bounds() (int, int) { return Width, Height }

func (s *HeadlessSink) SetBrightness(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = level
}

func (s *HeadlessSink) Show(frame *Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *frame
	s.last = &copied
	return nil
}

func (s *HeadlessSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = NewFrame()
	return nil
}

func (s *HeadlessSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// LastFrame returns a copy of the most recently committed frame, or nil if
// nothing has been shown yet.
func (s *HeadlessSink) LastFrame() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	copied := *s.last
	return &copied
}
