package display

import "testing"

func TestDrawTextLightsPixels(t *testing.T) {
	f := NewFrame()
	DrawText(f, 0, 0, "A", ColorData)

	lit := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < glyphWidth; x++ {
			if f.At(x, y) != ColorBlack {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatal("drawing 'A' lit no pixels")
	}
}

func TestDrawTextClipsAtRightEdge(t *testing.T) {
	f := NewFrame()
	// 30 glyphs at 6px advance exceeds the 128px canvas; must not panic.
	DrawText(f, 0, 0, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123", ColorData)
}

func TestDrawTextOutOfBoundsIsDropped(t *testing.T) {
	f := NewFrame()
	DrawText(f, Width-2, Height-2, "XX", ColorData)
	DrawText(f, -3, -3, "XX", ColorData)
}

func TestUnknownRuneRendersDash(t *testing.T) {
	dash := NewFrame()
	DrawText(dash, 0, 0, "-", ColorData)

	em := NewFrame()
	DrawText(em, 0, 0, "—", ColorData)

	if !framesEqual(dash, em) {
		t.Error("runes outside the font should render as the dash glyph")
	}
}

func TestTextWidth(t *testing.T) {
	if got := TextWidth("ABC"); got != 3*GlyphAdvance {
		t.Errorf("expected %d, got %d", 3*GlyphAdvance, got)
	}
	if got := TextWidth(""); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	// Multi-byte runes still count one glyph each.
	if got := TextWidth("——"); got != 2*GlyphAdvance {
		t.Errorf("expected %d, got %d", 2*GlyphAdvance, got)
	}
}

func TestFrameSetAt(t *testing.T) {
	f := NewFrame()
	f.Set(5, 5, ColorRoute)
	if f.At(5, 5) != ColorRoute {
		t.Error("Set/At round trip failed")
	}
	if f.At(-1, 0) != ColorBlack || f.At(Width, 0) != ColorBlack {
		t.Error("out-of-bounds reads must return black")
	}
	f.Clear()
	if f.At(5, 5) != ColorBlack {
		t.Error("Clear should black out the frame")
	}
}
