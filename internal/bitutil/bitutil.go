// Package bitutil provides the small bit- and nibble-level conversions the
// DataLink protocol and session decoder both lean on: two's-complement
// encode/decode, BCD digits, and byte-within-word slicing. It has no
// knowledge of USB framing or the telemetry bitstream and imports no other
// package of this module.
package bitutil

import "fmt"

// IntToTwos encodes v as a two's-complement bit pattern of the given width
// and returns it in the low `width` bits of a uint32. width must be in
// [1, 32].
func IntToTwos(v int, width int) uint32 {
	m := mask(width)
	if v >= 0 {
		return uint32(v) & m
	}
	return ((uint32(-v) ^ m) + 1) & m
}

// TwosToInt decodes a width-bit two's-complement pattern, sign-extending
// when the top bit is set.
func TwosToInt(bits uint32, width int) int {
	bits &= mask(width)
	signBit := uint32(1) << uint(width-1)
	if bits&signBit == 0 {
		return int(bits)
	}
	return int(bits) - int(mask(width)) - 1
}

// TwosToNegativeInt decodes a width-bit pattern under the assumption that it
// always represents a negative quantity, regardless of its own top bit —
// the convention the RCX5 firmware uses for heart-rate negative deltas,
// where the 2-bit channel prefix (not the value's own sign bit) is what
// tells the decoder the delta is negative. The result is always <= -1.
func TwosToNegativeInt(bits uint32, width int) int {
	bits &= mask(width)
	return int(bits) - int(mask(width)) - 1
}

func mask(width int) uint32 {
	if width <= 0 {
		return 0
	}
	if width >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << uint(width)) - 1
}

// BCDToInt converts a byte holding two binary-coded-decimal digits (one per
// nibble) into its decimal integer value, e.g. 0x42 -> 42.
func BCDToInt(b byte) int {
	hi := int(b >> 4)
	lo := int(b & 0x0F)
	return hi*10 + lo
}

// MostSignificantByte returns the high byte of a 16-bit value.
func MostSignificantByte(v uint16) byte {
	return byte(v >> 8)
}

// LeastSignificantByte returns the low byte of a 16-bit value.
func LeastSignificantByte(v uint16) byte {
	return byte(v & 0xFF)
}

// BinaryString renders val as a zero-padded binary string of the given
// width, for debug dumps of raw bit fields.
func BinaryString(val uint32, width int) string {
	s := fmt.Sprintf("%b", val)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
