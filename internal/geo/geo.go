// Package geo provides the two pure geographic helpers the session decoder
// needs: great-circle distance between two fixes, and a rough timezone
// estimate for a coordinate so a session's watch-local start time can be
// converted to UTC. Both are free functions with no dependency on the
// decoder or transport packages.
package geo

import (
	"math"
	"time"

	"github.com/mmcloughlin/geohash"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two WGS84
// coordinates, in meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// EstimateTimezone returns a fixed-offset approximation of the local
// timezone at the given coordinate, one hour per 15 degrees of longitude.
// No IANA timezone database appears anywhere in the dependency set this
// module draws on, so rather than reach for the standard library's tzdata
// lookup by name (which still can't map a coordinate to a zone without an
// external table) this returns the nearest whole-hour solar offset, which
// is within an hour of the watch's real local time for every zone that
// doesn't observe a half- or quarter-hour offset.
func EstimateTimezone(lat, lon float64) *time.Location {
	offset := int(math.Round(lon / 15.0))
	if offset > 14 {
		offset = 14
	}
	if offset < -12 {
		offset = -12
	}
	name := "UTC"
	if offset != 0 {
		name = fixedZoneName(offset)
	}
	return time.FixedZone(name, offset*3600)
}

// Geohash encodes a fix as a standard-precision geohash string, used by the
// JSON emitter to give each sample a compact, sortable spatial key without
// carrying a full lat/lon pair through downstream indexing.
func Geohash(lat, lon float64) string {
	return geohash.Encode(lat, lon)
}

func fixedZoneName(offsetHours int) string {
	sign := "+"
	if offsetHours < 0 {
		sign = "-"
		offsetHours = -offsetHours
	}
	digits := [...]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14"}
	return "UTC" + sign + digits[offsetHours]
}
