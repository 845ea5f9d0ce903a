// Package blend implements the Porter-Duff operators used to composite
// stroke masks onto layers.
//
// All operations work with premultiplied alpha values in the range 0-255.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

// Mode represents a Porter-Duff compositing operation.
type Mode uint8

const (
	SourceOver     Mode = iota // Result: S + D*(1-Sa) [pen]
	DestinationOut             // Result: D*(1-Sa) [eraser]
)

// String returns the operator name.
func (m Mode) String() string {
	switch m {
	case SourceOver:
		return "source-over"
	case DestinationOut:
		return "destination-out"
	default:
		return "unknown"
	}
}

// Func blends one premultiplied source pixel into a destination pixel.
type Func func(sr, sg, sb, sa, dr, dg, db, da byte) (r, g, b, a byte)

// For returns the blend function for mode. Unknown modes use SourceOver.
func For(mode Mode) Func {
	if mode == DestinationOut {
		return destinationOut
	}
	return sourceOver
}

// Formula: S + D * (1 - Sa)
func sourceOver(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := 255 - sa
	return addClamp(sr, mulDiv255(dr, inv)),
		addClamp(sg, mulDiv255(dg, inv)),
		addClamp(sb, mulDiv255(db, inv)),
		addClamp(sa, mulDiv255(da, inv))
}

// Formula: D * (1 - Sa)
func destinationOut(_, _, _, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := 255 - sa
	return mulDiv255(dr, inv), mulDiv255(dg, inv), mulDiv255(db, inv), mulDiv255(da, inv)
}

// Span blends a row of premultiplied RGBA source pixels into dst, scaling
// each source pixel by the matching mask byte. A nil mask means full
// coverage. dst and src must have the same length.
func Span(mode Mode, dst, src, mask []byte) {
	fn := For(mode)
	n := min(len(dst), len(src)) / 4
	for i := range n {
		o := i * 4
		sr, sg, sb, sa := src[o], src[o+1], src[o+2], src[o+3]
		if mask != nil {
			m := mask[i]
			sr, sg, sb, sa = mulDiv255(sr, m), mulDiv255(sg, m), mulDiv255(sb, m), mulDiv255(sa, m)
		}
		if sa == 0 {
			continue
		}
		dst[o], dst[o+1], dst[o+2], dst[o+3] = fn(sr, sg, sb, sa, dst[o], dst[o+1], dst[o+2], dst[o+3])
	}
}

// mulDiv255 multiplies two byte values and divides by 255 with rounding.
func mulDiv255(a, b byte) byte {
	return byte((uint16(a)*uint16(b) + 127) / 255)
}

// addClamp adds two byte values with clamping to 255.
func addClamp(a, b byte) byte {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return byte(sum)
}
