// Package zone parses free-text airspace extent descriptions into circle or
// polygon geometry.
package zone

import (
	"regexp"
	"strconv"
)

// GeoPoint is a coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// InRange reports whether the point lies within [-90,90] x [-180,180].
// ParseDMS does not enforce this.
func (p GeoPoint) InRange() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Degree fields are lazy so that "354421N1270027E" and the letterless
// "3544211270027" both split as 2-digit latitude, 3-digit longitude.
var dmsRe = regexp.MustCompile(`^(\d{2,3}?)(\d{2})(\d{2})([NS])?(\d{2,3}?)(\d{2})(\d{2})([EW])?$`)

// ParseDMS converts a DDMMSS[N|S]DDDMMSS[E|W] string to decimal degrees.
// ok is false when s does not have that shape; callers skip the coordinate.
func ParseDMS(s string) (p GeoPoint, ok bool) {
	m := dmsRe.FindStringSubmatch(s)
	if m == nil {
		return GeoPoint{}, false
	}

	p.Lat = dmsToDecimal(m[1], m[2], m[3])
	if m[4] == "S" {
		p.Lat = -p.Lat
	}
	p.Lon = dmsToDecimal(m[5], m[6], m[7])
	if m[8] == "W" {
		p.Lon = -p.Lon
	}
	return p, true
}

var dmsHalfRe = regexp.MustCompile(`^(\d{2,3})(\d{2})(\d{2})([NSEW])?$`)

// ParseDMSComponent converts a single DDMMSS[H] or DDDMMSS[H] value such as
// "354421N" to decimal degrees. S and W are negative.
func ParseDMSComponent(s string) (float64, bool) {
	m := dmsHalfRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v := dmsToDecimal(m[1], m[2], m[3])
	if m[4] == "S" || m[4] == "W" {
		v = -v
	}
	return v, true
}

// dmsToDecimal expects digit-only fields, which the regexp guarantees.
func dmsToDecimal(deg, min, sec string) float64 {
	d, _ := strconv.Atoi(deg)
	m, _ := strconv.Atoi(min)
	s, _ := strconv.Atoi(sec)
	return float64(d) + float64(m)/60 + float64(s)/3600
}
