package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDMSComponent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"354421N", 35 + 44.0/60 + 21.0/3600},
		{"354421S", -(35 + 44.0/60 + 21.0/3600)},
		{"354421", 35 + 44.0/60 + 21.0/3600},
		{"1270027E", 127.0075},
		{"1270027W", -127.0075},
		{"0000000E", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDMSComponent(tt.in)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDMSComponent_Invalid(t *testing.T) {
	for _, in := range []string{"", "3544N", "35442", "354421X", "N354421", "35442112345"} {
		_, ok := ParseDMSComponent(in)
		assert.False(t, ok, in)
	}
}

func TestParseDMS(t *testing.T) {
	p, ok := ParseDMS("354421N1270027E")
	require.True(t, ok)
	assert.InDelta(t, 35.7392, p.Lat, 1e-4)
	assert.InDelta(t, 127.0075, p.Lon, 1e-9)
	assert.True(t, p.InRange())
}

func TestParseDMS_HemisphereSign(t *testing.T) {
	east, ok := ParseDMS("354421N1270027E")
	require.True(t, ok)
	west, ok := ParseDMS("354421N1270027W")
	require.True(t, ok)
	south, ok := ParseDMS("354421S1270027E")
	require.True(t, ok)

	assert.Greater(t, east.Lon, 0.0)
	assert.InDelta(t, -east.Lon, west.Lon, 1e-12)
	assert.InDelta(t, -east.Lat, south.Lat, 1e-12)
}

func TestParseDMS_NoHemisphereLetters(t *testing.T) {
	p, ok := ParseDMS("3544211270027")
	require.True(t, ok)
	assert.InDelta(t, 35.7392, p.Lat, 1e-4)
	assert.InDelta(t, 127.0075, p.Lon, 1e-9)
}

func TestParseDMS_ThreeDigitLatitude(t *testing.T) {
	p, ok := ParseDMS("0354421N1270027E")
	require.True(t, ok)
	assert.InDelta(t, 35.7392, p.Lat, 1e-4)
	assert.InDelta(t, 127.0075, p.Lon, 1e-9)
}

func TestParseDMS_TwoDigitLongitude(t *testing.T) {
	p, ok := ParseDMS("354421N270027E")
	require.True(t, ok)
	assert.InDelta(t, 27.0075, p.Lon, 1e-9)
}

func TestParseDMS_NoMatch(t *testing.T) {
	for _, in := range []string{
		"",
		"354421N",
		"354421N 1270027E",
		"35.7392,127.0075",
		"354421X1270027E",
		"354421N1270027EE",
		"abc",
	} {
		_, ok := ParseDMS(in)
		assert.False(t, ok, in)
	}
}

func TestGeoPoint_InRange(t *testing.T) {
	assert.True(t, GeoPoint{Lat: 90, Lon: -180}.InRange())
	assert.False(t, GeoPoint{Lat: 354.7, Lon: 127}.InRange())
	assert.False(t, GeoPoint{Lat: 35, Lon: 270}.InRange())
}
