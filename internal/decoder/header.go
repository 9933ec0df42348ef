package decoder

import (
	"time"

	"rcx5sync/internal/bitutil"
	"rcx5sync/internal/session"
)

// Fixed byte offsets into packet 0 of a raw session. Grounded directly on
// the field_to_value_map table of the reference parser — these are the
// only bytes of the RCX5's session header whose meaning is known.
const (
	offsetUserHRMax  = 219
	offsetUserHRMin  = 50
	offsetUserHRRest = 54

	offsetYear  = 44
	offsetMonth = 43
	offsetDay   = 42

	offsetHour   = 41
	offsetMinute = 40
	offsetSecond = 39

	offsetDurationHours   = 38
	offsetDurationMinutes = 37
	offsetDurationSeconds = 36
	offsetDurationTenth   = 35

	offsetHRMax = 205
	offsetHRMin = 203
	offsetHRAvg = 201

	offsetHasHR      = 165
	offsetHasGPS     = 166
	offsetSampleRate = 167
)

var sampleRateSecondsTable = [5]int{1, 2, 5, 15, 60}

// DecodeMetadata extracts the fixed-offset header fields from the first
// packet of a raw session. It fails only when packet 0 is missing or too
// short to hold the header, or when the sample-rate byte is not a valid
// index into the sample-rate table.
func DecodeMetadata(raw session.RawSession) (session.SessionMetadata, error) {
	if len(raw.Packets) == 0 || len(raw.Packets[0]) <= offsetUserHRMax {
		return session.SessionMetadata{}, newParserError("packet 0 too short for a session header")
	}
	p := raw.Packets[0]

	meta := session.SessionMetadata{
		UserHRMax:  int(p[offsetUserHRMax]),
		UserHRMin:  int(p[offsetUserHRMin]),
		UserHRRest: int(p[offsetUserHRRest]),

		HRMax: int(p[offsetHRMax]),
		HRMin: int(p[offsetHRMin]),
		HRAvg: int(p[offsetHRAvg]),

		HasHR:  p[offsetHasHR] != 0,
		HasGPS: p[offsetHasGPS] != 0,
	}

	rateIndex := int(p[offsetSampleRate])
	if rateIndex < 0 || rateIndex >= len(sampleRateSecondsTable) {
		return session.SessionMetadata{}, newParserError("sample rate index %d out of range", rateIndex)
	}
	meta.SampleRateSeconds = sampleRateSecondsTable[rateIndex]

	year := int(p[offsetYear]) + 1920
	month := time.Month(int(p[offsetMonth]))
	day := int(p[offsetDay])
	hour := bitutil.BCDToInt(p[offsetHour])
	minute := bitutil.BCDToInt(p[offsetMinute])
	second := bitutil.BCDToInt(p[offsetSecond])
	meta.StartLocal = time.Date(year, month, day, hour, minute, second, 0, time.UTC)
	// Best-effort guess until Decode learns the session's timezone from its
	// first GPS fix (see geo.EstimateTimezone).
	meta.StartUTC = meta.StartLocal

	durationHours := bitutil.BCDToInt(p[offsetDurationHours])
	durationMinutes := bitutil.BCDToInt(p[offsetDurationMinutes])
	durationSeconds := bitutil.BCDToInt(p[offsetDurationSeconds])
	_ = bitutil.BCDToInt(p[offsetDurationTenth]) // tenths are reported but not tracked at second resolution
	meta.Duration = time.Duration(durationHours)*time.Hour +
		time.Duration(durationMinutes)*time.Minute +
		time.Duration(durationSeconds)*time.Second

	return meta, nil
}

const (
	packetHeaderLength  = 7
	packetTrailerLength = 59
)

// reconstructBits concatenates the raw session's packets MSB-first into one
// contiguous bit buffer, applying the per-packet header/trailer trims the
// watch's firmware pads every packet with:
//   - packet 0, when it isn't also the last packet, keeps its header (so
//     debug bit-offset dumps line up with the fixed header-field byte
//     numbering) but still drops its trailing 59-byte trailer;
//   - every packet strictly between the first and last drops its leading
//     7-byte header and trailing 59-byte trailer;
//   - the last packet has its trailing zero padding stripped instead of a
//     fixed-size trailer, and drops its leading 7-byte header unless it is
//     packet 0 itself (a single-packet session), which keeps its header.
func reconstructBits(raw session.RawSession) ([]byte, int, error) {
	if len(raw.Packets) == 0 {
		return nil, 0, newParserError("session has no packets")
	}

	var out []byte
	last := len(raw.Packets) - 1
	for i, packet := range raw.Packets {
		switch {
		case i == 0 && i == last:
			out = append(out, trimTrailingZeroes(packet)...)

		case i == 0:
			if len(packet) < packetTrailerLength {
				return nil, 0, newParserError("packet %d shorter than its trailer", i)
			}
			out = append(out, packet[:len(packet)-packetTrailerLength]...)

		case i == last:
			if packetHeaderLength > len(packet) {
				return nil, 0, newParserError("packet %d shorter than its header", i)
			}
			out = append(out, trimTrailingZeroes(packet[packetHeaderLength:])...)

		default:
			end := len(packet) - packetTrailerLength
			if end < packetHeaderLength {
				return nil, 0, newParserError("packet %d too short to trim header/trailer", i)
			}
			out = append(out, packet[packetHeaderLength:end]...)
		}
	}

	return out, len(out) * 8, nil
}

// trimTrailingZeroes drops the trailing run of zero bytes the firmware pads
// the final packet of a session with.
func trimTrailingZeroes(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

// ToBitstring renders a raw session's reconstructed bitstream as a string of
// '0'/'1' characters, for debug dumps.
func ToBitstring(raw session.RawSession) (string, error) {
	bits, total, err := reconstructBits(raw)
	if err != nil {
		return "", err
	}
	c := newBitCursor(bits, total)
	buf := make([]byte, 0, total)
	for c.Remaining() > 0 {
		n := 8
		if c.Remaining() < n {
			n = c.Remaining()
		}
		v, err := c.Take(n)
		if err != nil {
			return "", err
		}
		buf = append(buf, []byte(bitutil.BinaryString(v, n))...)
	}
	return string(buf), nil
}

// telemetryStartBit returns the bit offset at which the variable-length
// telemetry region begins, which depends on whether the session carries
// GPS data.
func telemetryStartBit(hasGPS bool) int {
	if hasGPS {
		return 349 * 8
	}
	return 351 * 8
}
