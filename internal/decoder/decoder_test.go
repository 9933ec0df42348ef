package decoder

import (
	"testing"

	"rcx5sync/internal/session"
)

// bitWriter is a tiny MSB-first bit packer used only by these tests to build
// synthetic telemetry bitstreams without hand-computing byte values.
type bitWriter struct {
	bits []byte
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte((v>>uint(i))&1))
	}
}

func (w *bitWriter) bytes() []byte {
	out := make([]byte, (len(w.bits)+7)/8)
	for i, b := range w.bits {
		if b == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

func TestBitCursorTakeAdvancesForwardOnly(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0b101, 3)
	w.writeBits(0b11001100, 8)
	c := newBitCursor(w.bytes(), len(w.bits))

	v, err := c.Take(3)
	if err != nil || v != 0b101 {
		t.Fatalf("Take(3) = %v, %v; want 0b101, nil", v, err)
	}
	if c.Pos() != 3 {
		t.Fatalf("Pos() = %d, want 3", c.Pos())
	}

	v, err = c.Take(8)
	if err != nil || v != 0b11001100 {
		t.Fatalf("Take(8) = %v, %v; want 0b11001100, nil", v, err)
	}
	if c.Pos() != 11 {
		t.Fatalf("Pos() = %d, want 11", c.Pos())
	}

	if _, err := c.Take(1); err == nil {
		t.Fatal("Take past end of stream should error")
	}
}

func TestBitCursorPeekDoesNotAdvance(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0b1010, 4)
	c := newBitCursor(w.bytes(), len(w.bits))

	if v, err := c.Peek(4); err != nil || v != 0b1010 {
		t.Fatalf("Peek(4) = %v, %v; want 0b1010, nil", v, err)
	}
	if c.Pos() != 0 {
		t.Fatalf("Peek must not advance cursor, pos = %d", c.Pos())
	}
}

func TestBitCursorTakePaddedZeroFillsShortTail(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0b11, 2)
	c := newBitCursor(w.bytes(), len(w.bits))

	v := c.TakePadded(4)
	if v != 0b1100 {
		t.Fatalf("TakePadded(4) = %04b, want 1100", v)
	}
	if c.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", c.Remaining())
	}
}

func TestDecodeHRFullValueResetsFreeze(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0b011, 3)
	w.writeBits(150, 8)
	d := newDecoderState(w.bytes(), len(w.bits), 0)

	v, err := d.decodeHR(0)
	if err != nil {
		t.Fatalf("decodeHR: %v", err)
	}
	if v != 150 {
		t.Fatalf("decodeHR = %d, want 150", v)
	}
	if d.hr.Frozen() {
		t.Fatal("full value must reset freeze state")
	}
}

func TestDecodeHRPositiveAndNegativeDelta(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0b10, 2) // positive delta prefix
	w.writeBits(5, 4)
	w.writeBits(0b11, 2) // negative delta prefix
	w.writeBits(3, 4)
	d := newDecoderState(w.bytes(), len(w.bits), 0)

	v, err := d.decodeHR(100)
	if err != nil || v != 105 {
		t.Fatalf("decodeHR(100) = %d, %v; want 105, nil", v, err)
	}

	v, err = d.decodeHR(v)
	if err != nil {
		t.Fatalf("decodeHR: %v", err)
	}
	// 4-bit pattern 3 under the "always negative" convention decodes to
	// 3 - 15 - 1 = -13, so 105 + (-13) = 92.
	if v != 92 {
		t.Fatalf("decodeHR negative delta = %d, want %d", v, 92)
	}
}

func TestHRFreezeAfterTwoZeroDeltas(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0b10, 2)
	w.writeBits(0, 4) // zero delta #1
	w.writeBits(0b10, 2)
	w.writeBits(0, 4)  // zero delta #2, freezes the channel
	w.writeBits(0b10, 2) // frozen tick: only the leading bit is actually consumed
	d := newDecoderState(w.bytes(), len(w.bits), 0)

	hr := 70
	for i, want := range []int{70, 70, 70} {
		v, err := d.decodeHR(hr)
		if err != nil {
			t.Fatalf("tick %d: decodeHR: %v", i, err)
		}
		if v != want {
			t.Fatalf("tick %d: decodeHR = %d, want %d", i, v, want)
		}
		hr = v
	}
	if !d.hr.Frozen() {
		t.Fatal("channel should be frozen after two consecutive zero deltas")
	}
}

func TestDecodeCoordDeltaRoundTrips(t *testing.T) {
	w := &bitWriter{}
	// +5 as a 12-bit two's-complement delta.
	w.writeBits(5, 12)
	d := newDecoderState(w.bytes(), len(w.bits), 0)

	v, err := d.decodeLon(39.0)
	if err != nil {
		t.Fatalf("decodeLon: %v", err)
	}
	want := 39.0 + 5*coordCoeff/1e9
	if diff := v - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("decodeLon = %v, want %v", v, want)
	}
}

func TestDecodeCoordFrozenAcceptsMatchingIntegerPart(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(39, coordIntWidth)
	w.writeBits(12345, coordFracWidth)
	d := newDecoderState(w.bytes(), len(w.bits), 0)
	d.lon.zeroDeltaRun = 2 // frozen

	v, err := d.decodeLon(39.5)
	if err != nil {
		t.Fatalf("decodeLon: %v", err)
	}
	want := 39.0 + 12345*coordCoeff/1e9
	if diff := v - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("decodeLon = %v, want %v", v, want)
	}
	if d.lon.Frozen() {
		t.Fatal("accepted full candidate must unfreeze the channel")
	}
	if d.cursor.Pos() != coordFullWidth {
		t.Fatalf("cursor advanced %d bits, want %d", d.cursor.Pos(), coordFullWidth)
	}
}

func TestDecodeCoordFrozenRejectsMismatchedIntegerPartButUnfreezesOnNonzeroRaw(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(40, coordIntWidth) // does not match previous integer part 39
	w.writeBits(12345, coordFracWidth)
	d := newDecoderState(w.bytes(), len(w.bits), 0)
	d.lon.zeroDeltaRun = 2

	v, err := d.decodeLon(39.5)
	if err != nil {
		t.Fatalf("decodeLon: %v", err)
	}
	if v != 39.5 {
		t.Fatalf("decodeLon = %v, want unchanged 39.5", v)
	}
	if d.cursor.Pos() != 0 {
		t.Fatalf("a rejected candidate must consume zero bits, cursor at %d", d.cursor.Pos())
	}
	// The freeze counter is driven by the raw 12-bit pattern regardless of
	// whether the candidate was accepted as a full value: a nonzero
	// pattern here unfreezes the channel even though the value itself was
	// rejected.
	if d.lon.Frozen() {
		t.Fatal("a rejected candidate with a nonzero raw 12-bit pattern must unfreeze the channel")
	}
}

func TestDecodeCoordFrozenRejectsMismatchButStaysFrozenOnZeroRaw(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0, coordIntWidth) // does not match previous integer part 39, but the raw pattern is all zero
	w.writeBits(12345, coordFracWidth)
	d := newDecoderState(w.bytes(), len(w.bits), 0)
	d.lon.zeroDeltaRun = 2

	v, err := d.decodeLon(39.5)
	if err != nil {
		t.Fatalf("decodeLon: %v", err)
	}
	if v != 39.5 {
		t.Fatalf("decodeLon = %v, want unchanged 39.5", v)
	}
	if d.cursor.Pos() != 0 {
		t.Fatalf("a rejected candidate must consume zero bits, cursor at %d", d.cursor.Pos())
	}
	if !d.lon.Frozen() {
		t.Fatal("a rejected candidate with an all-zero raw 12-bit pattern must leave the channel frozen")
	}
}

func TestDecodeSpeedFullValueTakesPriorityEvenWhenFrozen(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(speedFullMarker, speedDefaultWidth)
	w.writeBits(42, speedFullWidth)
	d := newDecoderState(w.bytes(), len(w.bits), 0)
	d.speed.zeroDeltaRun = 2 // pretend the channel is already frozen

	v, err := d.decodeSpeed(0)
	if err != nil {
		t.Fatalf("decodeSpeed: %v", err)
	}
	if v != 42 {
		t.Fatalf("decodeSpeed = %d, want 42", v)
	}
	if d.speed.Frozen() {
		t.Fatal("a full value must unfreeze the channel")
	}
}

func TestDecodeDistanceDefaultReadOverlapsMarkerPeek(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0b0010101, distanceDefaultWidth) // does not match the 8-bit full marker
	w.writeBits(1, 1)                            // extra bit the marker peek needs but doesn't consume
	d := newDecoderState(w.bytes(), len(w.bits), 0)

	v, err := d.decodeDistance(0)
	if err != nil {
		t.Fatalf("decodeDistance: %v", err)
	}
	if v != 0b0010101 {
		t.Fatalf("decodeDistance = %d, want %d", v, 0b0010101)
	}
	if d.cursor.Pos() != distanceDefaultWidth {
		t.Fatalf("cursor advanced %d bits, want %d", d.cursor.Pos(), distanceDefaultWidth)
	}
}

// TestDecodeSatellitesPrefixlessZeroThenFullValue exercises the
// prefixless-zero quirk end to end: a 9-bit all-zero field consumes only 7
// bits, leaving its last 2 (known-zero) bits unconsumed at the front of the
// stream. The following tick re-peeks those 2 leftover zero bits plus one
// new bit; when that trio happens to read "001", it's a genuine full-value
// prefix and the next 4 bits are the real satellite count.
func TestDecodeSatellitesPrefixlessZeroThenFullValue(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0, 9) // 9 zero bits: prefixless full zero, only 7 consumed
	w.writeBits(1, 1) // the 2 leftover zero bits plus this 1 form "001"
	w.writeBits(7, 4) // the full value following the "001" prefix
	d := newDecoderState(w.bytes(), len(w.bits), 0)

	v, err := d.decodeSatellites(0)
	if err != nil || v != 0 {
		t.Fatalf("tick 1: decodeSatellites = %d, %v; want 0, nil", v, err)
	}
	if !d.prefixlessZeroSat {
		t.Fatal("zero full value must enter the prefixless-zero fast path")
	}

	v, err = d.decodeSatellites(v)
	if err != nil || v != 7 {
		t.Fatalf("tick 2: decodeSatellites = %d, %v; want 7, nil", v, err)
	}
	if d.prefixlessZeroSat {
		t.Fatal("a matched full value must leave the prefixless-zero fast path")
	}
}

// TestDecodeSatellitesPrefixlessZeroThenOrdinaryDelta covers the case where
// the leftover-bits trio does NOT read "001": the tick must fall through to
// ordinary delta decoding. The delta field physically starts at the same 2
// leftover zero bits the trio check peeked, so a delta value whose top bit
// (after those 2 forced zeros) isn't 1 reads as an ordinary 4-bit field
// rather than being mistaken for a full-value prefix.
func TestDecodeSatellitesPrefixlessZeroThenOrdinaryDelta(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0, 9)   // 9 zero bits: prefixless full zero, only 7 consumed
	w.writeBits(0b01, 2) // completes the 4-bit delta "0001" (+1) with the 2 leftover zero bits
	d := newDecoderState(w.bytes(), len(w.bits), 0)

	v, err := d.decodeSatellites(0)
	if err != nil || v != 0 {
		t.Fatalf("tick 1: decodeSatellites = %d, %v; want 0, nil", v, err)
	}

	v, err = d.decodeSatellites(v)
	if err != nil || v != 1 {
		t.Fatalf("tick 2: decodeSatellites = %d, %v; want 1, nil", v, err)
	}
	if d.prefixlessZeroSat {
		t.Fatal("a non-matching leftover trio must still clear the prefixless-zero flag")
	}
	if d.cursor.Pos() != 7+4 {
		t.Fatalf("cursor = %d, want %d (7 consumed for the zero tick, 4 for the ordinary delta)", d.cursor.Pos(), 7+4)
	}
}

func TestDecodeMetadataReadsFixedOffsets(t *testing.T) {
	p := make([]byte, 256)
	p[offsetYear] = 105 // 1920 + 105 = 2025
	p[offsetMonth] = 6
	p[offsetDay] = 15
	p[offsetHour] = 0x09 // BCD 09
	p[offsetMinute] = 0x30
	p[offsetSecond] = 0x00
	p[offsetDurationHours] = 0x01
	p[offsetDurationMinutes] = 0x15
	p[offsetDurationSeconds] = 0x30
	p[offsetHRMax] = 180
	p[offsetHRMin] = 90
	p[offsetHRAvg] = 130
	p[offsetUserHRMax] = 190
	p[offsetUserHRMin] = 50
	p[offsetUserHRRest] = 55
	p[offsetHasHR] = 1
	p[offsetHasGPS] = 1
	p[offsetSampleRate] = 1 // table[1] == 2

	meta, err := DecodeMetadata(session.RawSession{Packets: [][]byte{p}})
	if err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	if meta.HRMax != 180 || meta.HRMin != 90 || meta.HRAvg != 130 {
		t.Fatalf("HR summary = %+v", meta)
	}
	if meta.SampleRateSeconds != 2 {
		t.Fatalf("SampleRateSeconds = %d, want 2", meta.SampleRateSeconds)
	}
	if !meta.HasHR || !meta.HasGPS {
		t.Fatalf("HasHR/HasGPS = %v/%v, want true/true", meta.HasHR, meta.HasGPS)
	}
	wantDuration := 1*3600 + 15*60 + 30
	if int(meta.Duration.Seconds()) != wantDuration {
		t.Fatalf("Duration = %v, want %ds", meta.Duration, wantDuration)
	}
}

func TestReconstructBitsTrimsHeaderAndTrailer(t *testing.T) {
	packet0 := make([]byte, 100)
	for i := range packet0 {
		packet0[i] = byte(i + 1)
	}
	packet1 := make([]byte, 10)
	for i := range packet1 {
		packet1[i] = byte(100 + i)
	}

	raw := session.RawSession{Packets: [][]byte{packet0, packet1}}
	bits, total, err := reconstructBits(raw)
	if err != nil {
		t.Fatalf("reconstructBits: %v", err)
	}
	if total != len(bits)*8 {
		t.Fatalf("total = %d, want %d", total, len(bits)*8)
	}
	// packet 0, not being the last packet, keeps its header but drops its
	// 59-byte trailer; packet 1 (the last packet) drops its 7-byte header
	// and has its trailing zero run stripped (none here).
	want := (len(packet0) - packetTrailerLength) + (len(packet1) - packetHeaderLength)
	if len(bits) != want {
		t.Fatalf("len(bits) = %d, want %d", len(bits), want)
	}
}
