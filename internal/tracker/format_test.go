package tracker

import "testing"

func TestFormatAltitude(t *testing.T) {
	tests := []struct {
		name   string
		meters *float64
		unit   string
		want   string
	}{
		{"cruise in flight levels", ptr(10668), "fl", "FL350"},
		{"below transition in feet", ptr(1524), "fl", "5000ft"},
		{"forced feet", ptr(10668), "ft", "35000ft"},
		{"missing", nil, "fl", "---"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatAltitude(tc.meters, tc.unit); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(ptr(231.5)); got != "450kt" {
		t.Errorf("got %q, want 450kt", got)
	}
	if got := FormatSpeed(nil); got != "---" {
		t.Errorf("got %q, want ---", got)
	}
}

func TestFormatHeading(t *testing.T) {
	tests := []struct {
		degrees *float64
		want    string
	}{
		{ptr(0), "N000"},
		{ptr(45), "NE045"},
		{ptr(90), "E090"},
		{ptr(359), "N359"},
		{nil, "---"},
	}
	for _, tc := range tests {
		if got := FormatHeading(tc.degrees); got != tc.want {
			t.Errorf("FormatHeading(%v) = %q, want %q", tc.degrees, got, tc.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	if got := FormatDistance(5.7); got != "5.7km" {
		t.Errorf("got %q, want 5.7km", got)
	}
	if got := FormatDistance(12.34); got != "12km" {
		t.Errorf("got %q, want 12km", got)
	}
}

func TestFormatVerticalRate(t *testing.T) {
	if got := FormatVerticalRate(ptr(10.16)); got != "+2000fpm" {
		t.Errorf("got %q, want +2000fpm", got)
	}
	if got := FormatVerticalRate(ptr(-5.08)); got != "-1000fpm" {
		t.Errorf("got %q, want -1000fpm", got)
	}
	// Level flight renders empty.
	if got := FormatVerticalRate(ptr(0.2)); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := FormatVerticalRate(nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFormatRoute(t *testing.T) {
	tests := []struct {
		origin, dest, want string
	}{
		{"EDDM", "EGLL", "EDDM > EGLL"},
		{"EDDM", Placeholder, "EDDM > ?"},
		{Placeholder, "EGLL", "? > EGLL"},
		{Placeholder, Placeholder, ""},
	}
	for _, tc := range tests {
		if got := FormatRoute(tc.origin, tc.dest); got != tc.want {
			t.Errorf("FormatRoute(%q, %q) = %q, want %q", tc.origin, tc.dest, got, tc.want)
		}
	}
}
