// Package session holds the data types shared between the DataLink
// transport and the session decoder. Neither package depends on the other's
// internals; both depend on this one.
package session

import "time"

// RawSession is the opaque, packet-ordered blob the transport reads off the
// watch for a single training session. It is produced once by the
// transport and borrowed read-only by the decoder.
type RawSession struct {
	// Packets holds the session body in the order it was read from the
	// device. The transport stores each packet as the whole 512-byte
	// inbound frame, header and trailer included; the decoder trims them
	// when it rebuilds the bitstream, leaving at most 446 payload bytes per
	// packet.
	Packets [][]byte
}

// SessionMetadata holds the fixed-offset fields read out of the first
// packet's header, plus the wall-clock/UTC start times the decoder derives
// from them.
type SessionMetadata struct {
	// StartLocal is the watch's own naive wall-clock reading for session
	// start — no timezone is known until GPS samples are available.
	StartLocal time.Time
	// StartUTC is StartLocal converted to UTC. DecodeMetadata sets it to
	// StartLocal's wall-clock reading taken as UTC; for a GPS session
	// decoder.Decode then recomputes it from the timezone estimated at the
	// session's first fix.
	StartUTC time.Time

	Duration time.Duration

	HRMax int
	HRMin int
	HRAvg int

	UserHRMax  int
	UserHRMin  int
	UserHRRest int

	HasHR bool
	HasGPS bool

	// SampleRateSeconds is one of 1, 2, 5, 15, 60.
	SampleRateSeconds int
}

// Sample is one periodic telemetry tick. HR, Lon and Lat are nil when the
// channel isn't present for this session (no-HR or no-GPS) or, for the very
// first GPS-less tick, not yet known.
type Sample struct {
	HR *int

	Lon *float64
	Lat *float64

	// Distance is the great-circle distance, in meters, covered since the
	// previous sample. Zero for the first sample and for HR-only sessions.
	Distance float64
	// Speed is Distance divided by the session's sample rate, in meters
	// per second.
	Speed float64
}

// TotalDistance sums the per-tick Distance field over a decoded sample
// sequence.
func TotalDistance(samples []Sample) float64 {
	var total float64
	for _, s := range samples {
		total += s.Distance
	}
	return total
}

// MaxSpeed returns the largest per-tick Speed over a decoded sample
// sequence, or 0 for an empty sequence.
func MaxSpeed(samples []Sample) float64 {
	var max float64
	for _, s := range samples {
		if s.Speed > max {
			max = s.Speed
		}
	}
	return max
}
