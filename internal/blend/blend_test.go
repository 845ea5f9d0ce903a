package blend

import "testing"

func TestMulDiv255(t *testing.T) {
	tests := []struct {
		name string
		a, b byte
		want byte
	}{
		{"zero * max", 0, 255, 0},
		{"max * max", 255, 255, 255},
		{"half * half", 128, 128, 64},
		{"255 * 128", 255, 128, 128},
		{"100 * 100", 100, 100, 39},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mulDiv255(tt.a, tt.b); got != tt.want {
				t.Errorf("mulDiv255(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestOperators(t *testing.T) {
	type px [4]byte
	tests := []struct {
		name     string
		mode     Mode
		src, dst px
		want     px
	}{
		{"over opaque", SourceOver, px{255, 0, 0, 255}, px{0, 0, 255, 255}, px{255, 0, 0, 255}},
		{"over transparent src", SourceOver, px{0, 0, 0, 0}, px{10, 20, 30, 255}, px{10, 20, 30, 255}},
		{"over half", SourceOver, px{128, 0, 0, 128}, px{0, 0, 255, 255}, px{128, 0, 127, 255}},
		{"out opaque", DestinationOut, px{0, 0, 0, 255}, px{200, 100, 50, 255}, px{0, 0, 0, 0}},
		{"out half", DestinationOut, px{0, 0, 0, 128}, px{255, 255, 255, 255}, px{127, 127, 127, 127}},
		{"out ignores color", DestinationOut, px{255, 255, 255, 0}, px{1, 2, 3, 4}, px{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := For(tt.mode)(tt.src[0], tt.src[1], tt.src[2], tt.src[3], tt.dst[0], tt.dst[1], tt.dst[2], tt.dst[3])
			if got := (px{r, g, b, a}); got != tt.want {
				t.Errorf("%v = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestSpanMask(t *testing.T) {
	dst := []byte{255, 255, 255, 255, 255, 255, 255, 255}
	src := []byte{0, 0, 0, 255, 0, 0, 0, 255}
	Span(DestinationOut, dst, src, []byte{0, 255})

	if dst[3] != 255 {
		t.Errorf("masked-out pixel alpha = %d, want 255", dst[3])
	}
	if dst[7] != 0 {
		t.Errorf("covered pixel alpha = %d, want 0", dst[7])
	}
}

func TestSpanNilMask(t *testing.T) {
	dst := []byte{0, 0, 0, 0}
	Span(SourceOver, dst, []byte{10, 20, 30, 40}, nil)
	want := []byte{10, 20, 30, 40}
	for i := range dst {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
}

func TestModeString(t *testing.T) {
	if SourceOver.String() != "source-over" || DestinationOut.String() != "destination-out" {
		t.Errorf("unexpected names %q %q", SourceOver, DestinationOut)
	}
	if Mode(9).String() != "unknown" {
		t.Errorf("Mode(9) = %q, want unknown", Mode(9))
	}
}
