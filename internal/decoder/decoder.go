// Package decoder turns a raw, packet-ordered RCX5 session into decoded
// per-tick samples and session-level metadata.
//
// A session's telemetry region is a dense, variable-width bitstream: each
// tick encodes zero or more channels (heart rate, speed, distance,
// longitude, latitude, satellite count) back to back with no byte
// alignment and no per-tick length prefix, so the only way to walk it is
// sequentially, one channel at a time, carrying forward whatever
// per-channel freeze state the previous tick left behind. decoderState and
// bitCursor hold that walk's entire state; every channel decode function
// takes one as a receiver and leaves the cursor positioned exactly where
// the next channel begins.
package decoder

import (
	"time"

	"rcx5sync/internal/geo"
	"rcx5sync/internal/session"
)

// tickTrailerBits is the run of undefined bits every regular (non-first)
// tick ends with, after satellites and any lap region.
const tickTrailerBits = 10

// minTickBits is the narrowest a tick's encoding can possibly be (a single
// frozen heart-rate bit and nothing else). Once fewer bits than this remain,
// the loop treats what's left as firmware padding rather than a partial
// tick.
const minTickBits = 1

// DecodeSamples reconstructs the full per-tick sample sequence for a raw
// session, given the metadata already extracted by DecodeMetadata.
func DecodeSamples(raw session.RawSession, meta session.SessionMetadata) ([]session.Sample, error) {
	bits, total, err := reconstructBits(raw)
	if err != nil {
		return nil, err
	}

	start := telemetryStartBit(meta.HasGPS)
	if start > total {
		return nil, newParserError("telemetry region starts past end of bitstream")
	}
	d := newDecoderState(bits, total, start)

	first, hr, lon, lat, err := d.decodeFirstSample(meta)
	if err != nil {
		return nil, err
	}
	samples := []session.Sample{first}

	var speed, distance int
	for d.cursor.Remaining() >= minTickBits {
		var sample session.Sample

		if meta.HasHR {
			v, err := d.decodeHR(hr)
			if err != nil {
				break
			}
			hr = v
			hrCopy := hr
			sample.HR = &hrCopy
		}

		if meta.HasGPS {
			sp, err := d.decodeSpeed(speed)
			if err != nil {
				break
			}
			speed = sp

			dist, err := d.decodeDistance(distance)
			if err != nil {
				break
			}
			distance = dist

			newLon, err := d.decodeLon(lon)
			if err != nil {
				break
			}
			newLat, err := d.decodeLat(lat)
			if err != nil {
				break
			}

			if d.hasLapData(intPartOf(lon), intPartOf(lat)) {
				if err := d.cursor.Skip(lapRegionBits); err != nil {
					break
				}
			}

			sat, err := d.decodeSatellites(d.lastSatellites)
			if err != nil {
				break
			}
			d.lastSatellites = sat

			if err := d.cursor.Skip(tickTrailerBits); err != nil {
				break
			}

			sample.Distance = geo.HaversineMeters(lat, lon, newLat, newLon)
			if meta.SampleRateSeconds > 0 {
				sample.Speed = sample.Distance / float64(meta.SampleRateSeconds)
			}
			lon, lat = newLon, newLat
			sample.Lon = new(float64)
			sample.Lat = new(float64)
			*sample.Lon = lon
			*sample.Lat = lat
		}

		samples = append(samples, sample)
	}

	return samples, nil
}

// Decode is a convenience wrapper that extracts both the session metadata
// and its decoded samples from a raw session in one call. For a GPS session
// it also sets StartUTC by reading StartLocal's wall clock in the timezone
// estimated from the first sample's position.
func Decode(raw session.RawSession) (session.SessionMetadata, []session.Sample, error) {
	meta, err := DecodeMetadata(raw)
	if err != nil {
		return session.SessionMetadata{}, nil, err
	}
	samples, err := DecodeSamples(raw, meta)
	if err != nil {
		return session.SessionMetadata{}, nil, err
	}
	if meta.HasGPS && len(samples) > 0 && samples[0].Lon != nil && samples[0].Lat != nil {
		loc := geo.EstimateTimezone(*samples[0].Lat, *samples[0].Lon)
		l := meta.StartLocal
		meta.StartUTC = time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0, loc).UTC()
	}
	return meta, samples, nil
}

// decodeFirstSample consumes the session's fixed first-tick preamble. For a
// GPS session it skips a 22-bit lead-in before HR and a further 45 bits
// (the first tick's discarded speed/distance) before reading
// longitude/latitude as absolute int-part/frac-part pairs rather than
// deltas, since there is no previous sample to delta against. A session
// without GPS has no such preamble: HR is decoded straight from the
// telemetry region's start.
func (d *decoderState) decodeFirstSample(meta session.SessionMetadata) (session.Sample, int, float64, float64, error) {
	var sample session.Sample
	var hr int
	var lon, lat float64

	if meta.HasGPS {
		if err := d.cursor.Skip(22); err != nil {
			return sample, 0, 0, 0, err
		}
	}

	if meta.HasHR {
		v, err := d.decodeHR(0)
		if err != nil {
			return sample, 0, 0, 0, err
		}
		hr = v
		sample.HR = &hr
	}

	if meta.HasGPS {
		if err := d.cursor.Skip(45); err != nil {
			return sample, 0, 0, 0, err
		}

		lonInt, err := d.cursor.Take(coordIntWidth)
		if err != nil {
			return sample, 0, 0, 0, err
		}
		lonFrac, err := d.cursor.Take(coordFracWidth)
		if err != nil {
			return sample, 0, 0, 0, err
		}
		latInt, err := d.cursor.Take(coordIntWidth)
		if err != nil {
			return sample, 0, 0, 0, err
		}
		latFrac, err := d.cursor.Take(coordFracWidth)
		if err != nil {
			return sample, 0, 0, 0, err
		}

		lon = float64(lonInt) + float64(lonFrac)*coordCoeff/1e9
		lat = float64(latInt) + float64(latFrac)*coordCoeff/1e9
		sample.Lon = new(float64)
		sample.Lat = new(float64)
		*sample.Lon = lon
		*sample.Lat = lat

		if err := d.cursor.Skip(7); err != nil {
			return sample, 0, 0, 0, err
		}
		if err := d.cursor.Skip(23); err != nil {
			return sample, 0, 0, 0, err
		}
	}

	return sample, hr, lon, lat, nil
}
