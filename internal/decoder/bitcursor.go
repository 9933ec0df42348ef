package decoder

// bitCursor walks a reconstructed session bitstream MSB-first. It never
// retreats: Take and TakePadded only ever move the position forward. Peek
// variants read ahead without moving it, which the lap-segment detector and
// the "frozen coordinate" full-value check both rely on.
type bitCursor struct {
	bits  []byte
	total int // total number of valid bits in `bits`
	pos   int // current bit offset, 0 <= pos <= total
}

func newBitCursor(bits []byte, totalBits int) *bitCursor {
	return &bitCursor{bits: bits, total: totalBits}
}

// Pos returns the current bit offset from the start of the stream.
func (c *bitCursor) Pos() int { return c.pos }

// Remaining returns the number of unread bits.
func (c *bitCursor) Remaining() int { return c.total - c.pos }

func (c *bitCursor) bitAt(i int) uint32 {
	byteIndex := i / 8
	shift := 7 - uint(i%8)
	return uint32(c.bits[byteIndex]>>shift) & 1
}

// PeekAt reads `length` bits starting `offset` bits ahead of the cursor,
// without advancing it. length must be in [0, 32].
func (c *bitCursor) PeekAt(offset, length int) (uint32, error) {
	start := c.pos + offset
	if length < 0 || length > 32 {
		return 0, newParserError("invalid bit-field width %d", length)
	}
	if start < 0 || start+length > c.total {
		return 0, errCursorOutOfRange
	}
	var v uint32
	for i := 0; i < length; i++ {
		v = (v << 1) | c.bitAt(start+i)
	}
	return v, nil
}

// Peek reads the next `length` bits without advancing the cursor.
func (c *bitCursor) Peek(length int) (uint32, error) {
	return c.PeekAt(0, length)
}

// Take reads the next `length` bits and advances the cursor past them.
func (c *bitCursor) Take(length int) (uint32, error) {
	v, err := c.Peek(length)
	if err != nil {
		return 0, err
	}
	c.pos += length
	return v, nil
}

// Skip advances the cursor by `length` bits without reading them, erroring
// if that would run past the end of the stream.
func (c *bitCursor) Skip(length int) error {
	if length < 0 {
		return newParserError("invalid skip width %d", length)
	}
	if c.pos+length > c.total {
		return errCursorOutOfRange
	}
	c.pos += length
	return nil
}

// TakePadded reads up to `length` bits, consuming only however many remain
// (possibly zero) and right-padding the missing low bits with zero. It
// never errors. This mirrors a quirk of the reference decoder: the
// heart-rate delta fields are defined as fixed-width, but the very last
// tick of a session can run out of bitstream mid-field, and the original
// parser silently zero-pads rather than raising.
func (c *bitCursor) TakePadded(length int) uint32 {
	avail := c.Remaining()
	if avail < 0 {
		avail = 0
	}
	n := length
	if n > avail {
		n = avail
	}
	var v uint32
	for i := 0; i < n; i++ {
		v = (v << 1) | c.bitAt(c.pos+i)
	}
	v <<= uint(length - n)
	c.pos += n
	return v
}
