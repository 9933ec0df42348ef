package decoder

import "rcx5sync/internal/bitutil"

// coordCoeff is COORD_COEFF: the fixed scaling constant used to turn a raw
// fractional bit field into a decimal-degree fraction.
const coordCoeff = 10000.0 / 6.0

const (
	coordDeltaWidth = 12
	coordIntWidth   = 8
	coordFracWidth  = 20
	coordFullWidth  = coordIntWidth + coordFracWidth
)

// decodeLon consumes the next longitude tick.
func (d *decoderState) decodeLon(prev float64) (float64, error) {
	return decodeCoordTick(d.cursor, &d.lon, prev)
}

// decodeLat consumes the next latitude tick.
func (d *decoderState) decodeLat(prev float64) (float64, error) {
	return decodeCoordTick(d.cursor, &d.lat, prev)
}

// decodeCoordTick implements the longitude/latitude encoding: a 12-bit
// signed delta when the channel isn't frozen, or (while frozen) a 28-bit
// candidate full value that is only accepted — and only then actually
// consumed — if its integer part matches the previous coordinate's integer
// part. A rejected candidate costs zero bits and returns the previous
// value unchanged. The freeze counter is always driven by the raw 12-bit
// delta pattern, read as unsigned, even though the channel only reads
// deltas while unfrozen: after a rejected candidate the channel stays
// frozen only if that pattern is zero.
func decodeCoordTick(c *bitCursor, st *channelState, prev float64) (float64, error) {
	if st.Frozen() {
		candidate, err := c.Peek(coordFullWidth)
		if err != nil {
			return 0, err
		}
		intPart := candidate >> coordFracWidth
		fracPart := candidate & ((1 << coordFracWidth) - 1)
		if int(intPart) == intPartOf(prev) {
			if err := c.Skip(coordFullWidth); err != nil {
				return 0, err
			}
			st.Reset()
			return float64(intPart) + float64(fracPart)*coordCoeff/1e9, nil
		}
		// A rejected candidate still costs zero bits, but the freeze
		// counter is driven by the raw 12-bit delta pattern regardless of
		// frozen state: a nonzero pattern here unfreezes the channel even
		// though no value was actually consumed this tick.
		raw, err := c.Peek(coordDeltaWidth)
		if err != nil {
			return 0, err
		}
		st.Observe(raw == 0)
		return prev, nil
	}

	raw, err := c.Take(coordDeltaWidth)
	if err != nil {
		return 0, err
	}
	st.Observe(raw == 0)
	delta := bitutil.TwosToInt(raw, coordDeltaWidth)
	return prev + float64(delta)*coordCoeff/1e9, nil
}

func intPartOf(v float64) int {
	return int(v)
}
