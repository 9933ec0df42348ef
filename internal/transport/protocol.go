package transport

import "encoding/binary"

// Device identity and USB framing constants, per the DataLink wire format.
const (
	usbVendorID  = 0x0DA4
	usbProductID = 0x0004

	endpointOut = 0x03
	endpointIn  = 0x81

	outFrameSize = 256
	inFrameSize  = 512

	packetBodySize = 446 // payload bytes per 512-byte frame: the frame minus its 7-byte header and 59-byte trailer, which the decoder strips

	maxSearchAttempts  = 20
	maxPairOuterTries  = 10
	maxPairInnerReads  = 5
	pairRetryDelayMS   = 3000
	maxCountAttempts   = 20
	countRetryDelayMS  = 2000
	maxSizeAttempts    = 15
	maxChunkAttempts   = 20
)

type hardwareID [3]byte

func padFrame(b []byte) []byte {
	out := make([]byte, outFrameSize)
	copy(out, b)
	return out
}

func frameEnable() []byte {
	return padFrame([]byte{0x01, 0x07})
}

func frameSessionBegin() []byte {
	return padFrame([]byte{0x01, 0x40, 0x01, 0x00, 0x51})
}

func framePair(hw hardwareID) []byte {
	return padFrame([]byte{
		0x01, 0x40, 0x06, 0x00, 0x54,
		hw[0], hw[1], hw[2],
		0xB6, 0x00, 0x08, 0x08, 0x08, 0x08,
	})
}

func frameDisconnect(hw hardwareID) []byte {
	return padFrame([]byte{
		0x01, 0x40, 0x04, 0x00, 0x54,
		hw[0], hw[1], hw[2],
		0xB7, 0x00, 0x00, 0x01,
	})
}

func frameCountSessions(hw hardwareID) []byte {
	return padFrame([]byte{0x01, 0x40, 0x02, 0x00, 0x54, hw[0], hw[1], hw[2]})
}

func frameSessionSize(hw hardwareID, n uint8) []byte {
	return padFrame([]byte{
		0x01, 0x40, 0x03, 0x00, 0x54,
		hw[0], hw[1], hw[2],
		0xB2, 0x00, n,
	})
}

// frameFetchChunk requests the next chunk of a session body starting at
// bytesReceived, asking for length bytes.
func frameFetchChunk(hw hardwareID, n uint8, bytesReceived, length uint16) []byte {
	b := make([]byte, 0, 16)
	b = append(b, 0x01, 0x40, 0x09, 0x00, 0x54, hw[0], hw[1], hw[2], 0xB3, 0x00, n)
	offLo, offHi := uint16LE(bytesReceived)
	lenLo, lenHi := uint16LE(length)
	b = append(b, offLo, offHi, 0x00, 0x00, lenLo, lenHi)
	return padFrame(b)
}

func uint16LE(v uint16) (lo, hi byte) {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf[0], buf[1]
}

// responseMatches reports whether an inbound frame's leading bytes equal
// the given response-type prefix.
func responseMatches(frame []byte, prefix ...byte) bool {
	if len(frame) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if frame[i] != b {
			return false
		}
	}
	return true
}
