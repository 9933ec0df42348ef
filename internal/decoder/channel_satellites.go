package decoder

import "rcx5sync/internal/bitutil"

// maxSatellites is the largest satellite count the 7-bit "prefixless full"
// form can carry while frozen; a candidate above it is rejected rather than
// accepted as a real reading.
const maxSatellites = 31

const (
	satelliteDeltaWidth  = 4
	satelliteFullPrefix  = 0b001 // 3-bit prefix, full value is prefix + 4 bits
	satelliteFrozenWidth = 7
)

// decodeSatellites consumes the next satellite-count field. Two
// device-specific quirks sit in front of the general full/delta logic:
//
//   - A "prefixless full zero": if the next 9 bits are all zero, the tick
//     reports 0 satellites but only 7 of those 9 bits are actually
//     consumed, leaving 2 known-zero bits unconsumed at the front of the
//     stream. d.prefixlessZeroSat is set so the following tick knows those
//     2 leftover bits might be the start of a genuine 001 full-value
//     prefix rather than running the 9-bit check again.
//   - While frozen, a plain 7-bit "prefixless full" candidate is accepted
//     (without unfreezing) only if it is <= maxSatellites; a larger value
//     is rejected and costs zero bits, same as a rejected coordinate
//     candidate.
func (d *decoderState) decodeSatellites(prev int) (int, error) {
	st := &d.satellites

	if !d.prefixlessZeroSat {
		nine, err := d.cursor.Peek(9)
		if err != nil {
			return 0, err
		}
		if nine == 0 {
			if err := d.cursor.Skip(7); err != nil {
				return 0, err
			}
			d.prefixlessZeroSat = true
			return 0, nil
		}
	}

	if d.prefixlessZeroSat {
		d.prefixlessZeroSat = false
		three, err := d.cursor.Peek(3)
		if err != nil {
			return 0, err
		}
		if three == satelliteFullPrefix {
			if err := d.cursor.Skip(3); err != nil {
				return 0, err
			}
			v, err := d.cursor.Take(satelliteDeltaWidth)
			if err != nil {
				return 0, err
			}
			st.Reset()
			return int(v), nil
		}
	}

	if st.Frozen() {
		candidate, err := d.cursor.Peek(satelliteFrozenWidth)
		if err != nil {
			return 0, err
		}
		if candidate <= maxSatellites {
			if err := d.cursor.Skip(satelliteFrozenWidth); err != nil {
				return 0, err
			}
			return int(candidate), nil
		}
		return prev, nil
	}

	three, err := d.cursor.Peek(3)
	if err != nil {
		return 0, err
	}
	if three == satelliteFullPrefix {
		if err := d.cursor.Skip(3); err != nil {
			return 0, err
		}
		v, err := d.cursor.Take(satelliteDeltaWidth)
		if err != nil {
			return 0, err
		}
		st.Reset()
		return int(v), nil
	}

	raw := d.cursor.TakePadded(satelliteDeltaWidth)
	st.Observe(raw == 0)
	next := prev + bitutil.TwosToInt(raw, satelliteDeltaWidth)
	if next < 0 {
		next = 0
	}
	if next > maxSatellites {
		next = maxSatellites
	}
	return next, nil
}
