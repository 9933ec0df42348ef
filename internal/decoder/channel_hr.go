package decoder

import "rcx5sync/internal/bitutil"

// decodeHR consumes the next heart-rate field and returns the new HR value.
// The first two bits of the field select one of four encodings: a full
// value (one of two prefix forms) or a signed/unsigned delta against the
// previous sample's HR. The case comments below give the bit layout of
// each.
func (d *decoderState) decodeHR(prev int) (int, error) {
	prefix, err := d.cursor.Peek(2)
	if err != nil {
		return 0, err
	}

	if d.hr.Frozen() && prefix != 0b01 {
		// Any bit other than a 011-prefixed full value, while frozen, is a
		// zero-width +0 delta that still costs one bit.
		if err := d.cursor.Skip(1); err != nil {
			return 0, err
		}
		return prev, nil
	}

	switch prefix {
	case 0b01: // full value, 3-bit prefix "011" + 8-bit unsigned value
		if err := d.cursor.Skip(3); err != nil {
			return 0, err
		}
		v, err := d.cursor.Take(8)
		if err != nil {
			return 0, err
		}
		d.hr.Reset()
		return int(v), nil

	case 0b00: // full value, prefixless 11-bit unsigned value
		v, err := d.cursor.Take(11)
		if err != nil {
			return 0, err
		}
		d.hr.Reset()
		return int(v), nil

	default:
		if err := d.cursor.Skip(2); err != nil {
			return 0, err
		}

		if prefix == 0b10 { // positive delta, 4-bit unsigned
			raw := d.cursor.TakePadded(4)
			d.hr.Observe(raw == 0)
			return prev + int(raw), nil
		}

		// prefix == 0b11: negative delta, 4-bit two's complement
		raw := d.cursor.TakePadded(4)
		d.hr.Observe(raw == 0)
		return prev + bitutil.TwosToNegativeInt(raw, 4), nil
	}
}
