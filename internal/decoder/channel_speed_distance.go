package decoder

// Speed and distance share the same "unconditional full-value check"
// shape: the leading bits are always tested against a fixed marker
// pattern before anything else, whether or not the channel is currently
// frozen, rather than letting a frozen channel's short-circuit hide an
// incoming full value. Neither field's value is used downstream — speed
// and distance are recomputed from consecutive GPS fixes — so decoding
// here exists only to keep the cursor advancing by the right number of
// bits.
const (
	speedDefaultWidth = 7
	speedFullMarker   = 0b1000000 // 7-bit marker; full encoding is 16 bits total
	speedFullWidth    = 9

	distanceDefaultWidth = 7
	distanceFullMarker   = 0b10000000 // 8-bit marker; full encoding is 29 bits total
	distanceFullWidth    = 21
)

// decodeSpeed consumes the next speed field and returns its raw decoded
// value (unused by callers beyond freeze bookkeeping).
func (d *decoderState) decodeSpeed(prev int) (int, error) {
	marker, err := d.cursor.Peek(speedDefaultWidth)
	if err != nil {
		return 0, err
	}
	if marker == speedFullMarker {
		if err := d.cursor.Skip(speedDefaultWidth); err != nil {
			return 0, err
		}
		v, err := d.cursor.Take(speedFullWidth)
		if err != nil {
			return 0, err
		}
		d.speed.Reset()
		return int(v), nil
	}

	if d.speed.Frozen() {
		return prev, nil
	}

	if err := d.cursor.Skip(speedDefaultWidth); err != nil {
		return 0, err
	}
	d.speed.Observe(marker == 0)
	return int(marker), nil
}

// decodeDistance consumes the next distance field and returns its raw
// decoded value (unused by callers beyond freeze bookkeeping). The default
// 7-bit read overlaps the first 7 bits of the 8-bit full-value marker, so a
// single 8-bit peek serves both checks: when the marker doesn't match, the
// default value is simply the top 7 of those 8 peeked bits, and only 7 bits
// are actually consumed.
func (d *decoderState) decodeDistance(prev int) (int, error) {
	marker, err := d.cursor.Peek(distanceDefaultWidth + 1)
	if err != nil {
		return 0, err
	}
	if marker == distanceFullMarker {
		if err := d.cursor.Skip(distanceDefaultWidth + 1); err != nil {
			return 0, err
		}
		v, err := d.cursor.Take(distanceFullWidth)
		if err != nil {
			return 0, err
		}
		d.distance.Reset()
		return int(v), nil
	}

	if d.distance.Frozen() {
		return prev, nil
	}

	value := marker >> 1
	if err := d.cursor.Skip(distanceDefaultWidth); err != nil {
		return 0, err
	}
	d.distance.Observe(value == 0)
	return int(value), nil
}
