// Package geo provides the two location collaborators used by the onboarding
// form: a single-shot geolocation provider and a reverse-geocoding address
// resolver backed by OSM Nominatim.
package geo

import "errors"

// Coordinates is a WGS84 decimal-degree location fix.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Address is the partial address a reverse-geocode lookup resolves to.
type Address struct {
	City    string
	State   string
	ZipCode string
	Country string
}

// ErrUnavailable is returned when no location capability is configured.
var ErrUnavailable = errors.New("geo: location capability unavailable")

// ErrNoAddress is returned when a lookup completes but carries no
// resolvable address for the coordinates.
var ErrNoAddress = errors.New("geo: address not found")
