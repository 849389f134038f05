package geodesy

import (
	"math"
	"time"

	"github.com/star/orbitalator/internal/orbit"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Geodetic is a position on or above the WGS-84 ellipsoid.
type Geodetic struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
}

// Fixed returns the Earth-fixed position of g.
func (g Geodetic) Fixed() orbit.Position {
	lat := g.LatDeg * math.Pi / 180
	lon := g.LonDeg * math.Pi / 180
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return orbit.Position{
		X: (n + g.AltM) * cosLat * cosLon,
		Y: (n + g.AltM) * cosLat * sinLon,
		Z: (n*(1-wgs84E2) + g.AltM) * sinLat,
	}
}

// ToGeodetic converts an Earth-fixed position to geodetic coordinates with
// Bowring's iteration, which settles in two or three steps for orbits.
func ToGeodetic(p orbit.Position) Geodetic {
	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)

	lat := math.Atan2(p.Z, rho*(1-wgs84E2))
	for range 5 {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(p.Z+wgs84E2*n*sinLat, rho)
	}

	sinLat, cosLat := math.Sincos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = rho/cosLat - n
	} else {
		alt = math.Abs(p.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Geodetic{
		LatDeg: lat * 180 / math.Pi,
		LonDeg: lon * 180 / math.Pi,
		AltM:   alt,
	}
}

// SubPoint returns the geodetic point beneath an inertial position.
func SubPoint(p orbit.Position, at time.Time) Geodetic {
	return ToGeodetic(ToFixed(p, at))
}

// LookAngles holds azimuth, elevation and range from an observer to a target.
type LookAngles struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`   // 0 = North, clockwise
	ElevationDeg float64 `json:"elevation_deg"` // 0 = horizon, 90 = zenith
	RangeM       float64 `json:"range_m"`
	Visible      bool    `json:"visible"`
}

// Look computes the look angles from a ground observer to an Earth-fixed
// target, rotating the range vector into South-East-Zenith.
func Look(obs Geodetic, target orbit.Position) LookAngles {
	o := obs.Fixed()
	rx, ry, rz := target.X-o.X, target.Y-o.Y, target.Z-o.Z

	sinLat, cosLat := math.Sincos(obs.LatDeg * math.Pi / 180)
	sinLon, cosLon := math.Sincos(obs.LonDeg * math.Pi / 180)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return LookAngles{ElevationDeg: 90, Visible: true}
	}

	el := math.Asin(zenith / rng)
	// North is -South in SEZ.
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * 180 / math.Pi,
		ElevationDeg: el * 180 / math.Pi,
		RangeM:       rng,
		Visible:      el >= 0,
	}
}
