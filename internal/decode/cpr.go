package decode

import "math"

// nlTable is NL(lat) for integer latitudes 0..89, the number of longitude
// zones at that latitude. Symmetric about the equator. Adapted from
// other_examples/OJPARKINSON-goviz1090__decode.go's nl_table.
var nlTable = [90]int{
	59, 59, 59, 59, 59, 59, 59, 59, 59, 59, 59, 58, 58, 58, 58, 57, 57, 57,
	57, 56, 56, 56, 55, 55, 54, 54, 53, 53, 52, 52, 51, 51, 50, 50, 49, 49,
	48, 47, 47, 46, 45, 45, 44, 43, 43, 42, 41, 40, 40, 39, 38, 37, 36, 36,
	35, 34, 33, 32, 31, 30, 29, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19,
	18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 5, 4, 3, 2, 1, 1,
}

func cprMod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

// cprNL returns NL(lat): the number of longitude zones at latitude lat.
func cprNL(lat float64) int {
	if lat < 0 {
		lat = -lat
	}
	lat = math.Round(lat)
	if lat >= float64(len(nlTable)) {
		return 1
	}
	return nlTable[int(lat)]
}

func cprN(lat float64, odd bool) int {
	nl := cprNL(lat)
	if odd {
		nl--
	}
	if nl < 1 {
		return 1
	}
	return nl
}

func cprDlon(lat float64, odd, surface bool) float64 {
	span := 360.0
	if surface {
		span = 90.0
	}
	return span / float64(cprN(lat, odd))
}

// GlobalDecodeResult is the outcome of a global CPR decode attempt.
type GlobalDecodeResult struct {
	Lat, Lon float64
	OK       bool
}

// DecodeGlobalAirborne resolves an even/odd airborne CPR frame pair into a
// lat/lon, per spec §4.3.1. lastOdd selects which of the two zones' latitude
// to report (the one belonging to the most recently received frame).
// Adapted from other_examples/OJPARKINSON-goviz1090__decode.go's
// DecodeCPRPosition.
func DecodeGlobalAirborne(evenLat, evenLon, oddLat, oddLon int, lastOdd bool) GlobalDecodeResult {
	const dLat0 = 360.0 / 60.0
	const dLat1 = 360.0 / 59.0

	rlat0 := float64(evenLat) / 131072.0
	rlat1 := float64(oddLat) / 131072.0
	rlon0 := float64(evenLon) / 131072.0
	rlon1 := float64(oddLon) / 131072.0

	j := int(math.Floor(59.0*rlat0 - 60.0*rlat1 + 0.5))

	lat0 := dLat0 * (float64(cprMod(j, 60)) + rlat0)
	lat1 := dLat1 * (float64(cprMod(j, 59)) + rlat1)
	if lat0 >= 270 {
		lat0 -= 360
	}
	if lat1 >= 270 {
		lat1 -= 360
	}

	if cprNL(lat0) != cprNL(lat1) {
		return GlobalDecodeResult{}
	}

	lat := lat0
	rlonUse, odd := rlon0, false
	if lastOdd {
		lat = lat1
		rlonUse, odd = rlon1, true
	}
	if lat < -90 || lat > 90 {
		return GlobalDecodeResult{}
	}

	ni := cprN(lat, odd)
	m := int(math.Floor(rlon0*float64(cprNL(lat)-1) - rlon1*float64(cprNL(lat)) + 0.5))
	lon := cprDlon(lat, odd, false) * (float64(cprMod(m, ni)) + rlonUse)
	if lon > 180 {
		lon -= 360
	}

	return GlobalDecodeResult{Lat: lat, Lon: lon, OK: true}
}

// DecodeLocal resolves a single CPR frame against a reference position
// (either a previously fixed global position or an operator-configured
// receiver location), choosing the zone that places the result within
// rangeNM of the reference. Returns ok=false if the candidate latitude or
// longitude cannot be brought within range (spec §4.3.1 local decode).
func DecodeLocal(rawLat, rawLon int, odd bool, refLat, refLon, rangeNM float64, surface bool) GlobalDecodeResult {
	dLatZone := 360.0
	if surface {
		dLatZone = 90.0
	}
	dLat := dLatZone / float64(60-boolToInt(odd))

	rlat := float64(rawLat) / 131072.0
	j := int(math.Floor(refLat/dLat)) + int(math.Floor(0.5+cprModFloat(refLat, dLat)/dLat-rlat))
	lat := dLat * (float64(j) + rlat)

	dlon := cprDlon(lat, odd, surface)
	rlon := float64(rawLon) / 131072.0
	m := int(math.Floor(refLon/dlon)) + int(math.Floor(0.5+cprModFloat(refLon, dlon)/dlon-rlon))
	lon := dlon * (float64(m) + rlon)

	if lat < -90 || lat > 90 {
		return GlobalDecodeResult{}
	}
	if haversineNM(refLat, refLon, lat, lon) > rangeNM {
		return GlobalDecodeResult{}
	}
	return GlobalDecodeResult{Lat: lat, Lon: lon, OK: true}
}

func cprModFloat(a, b float64) float64 {
	r := math.Mod(a, b)
	if r < 0 {
		r += b
	}
	return r
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func haversineNM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusNM = 3440.065
	rad := math.Pi / 180.0
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusNM * c
}

// DecodeSurface resolves a surface-position CPR pair. Surface CPR uses a
// 90-degree rather than 360-degree longitude span, which yields up to four
// candidate absolute longitudes for the same encoded value; the candidate
// within 45 degrees of the reference longitude is chosen (spec §4.3.1).
func DecodeSurface(evenLat, evenLon, oddLat, oddLon int, lastOdd bool, refLat, refLon float64) GlobalDecodeResult {
	const dLat0 = 90.0 / 60.0
	const dLat1 = 90.0 / 59.0

	rlat0 := float64(evenLat) / 131072.0
	rlat1 := float64(oddLat) / 131072.0
	rlon0 := float64(evenLon) / 131072.0
	rlon1 := float64(oddLon) / 131072.0

	j := int(math.Floor(59.0*rlat0 - 60.0*rlat1 + 0.5))

	// Surface latitude has four quadrant candidates (the 90-degree zone
	// repeats four times across -90..90); pick the one nearest refLat.
	best := GlobalDecodeResult{}
	bestDist := math.MaxFloat64
	for q := 0; q < 4; q++ {
		base := float64(q)*90.0 - 180.0
		lat0 := base + dLat0*(float64(cprMod(j, 60))+rlat0)
		lat1 := base + dLat1*(float64(cprMod(j, 59))+rlat1)

		if cprNL(lat0) != cprNL(lat1) {
			continue
		}

		lat := lat0
		rlonUse, odd := rlon0, false
		if lastOdd {
			lat = lat1
			rlonUse, odd = rlon1, true
		}
		if lat < -90 || lat > 90 {
			continue
		}

		ni := cprN(lat, odd)
		m := int(math.Floor(rlon0*float64(cprNL(lat)-1) - rlon1*float64(cprNL(lat)) + 0.5))
		lon := cprDlon(lat, odd, true) * (float64(cprMod(m, ni)) + rlonUse)

		for _, lonCandidate := range []float64{lon, lon + 90, lon + 180, lon + 270} {
			normalized := lonCandidate
			for normalized > 180 {
				normalized -= 360
			}
			dist := math.Abs(normalized - refLon)
			if dist > 180 {
				dist = 360 - dist
			}
			if dist < bestDist {
				bestDist = dist
				best = GlobalDecodeResult{Lat: lat, Lon: normalized, OK: true}
			}
		}
	}

	if bestDist > 45 {
		return GlobalDecodeResult{}
	}
	return best
}
