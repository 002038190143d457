package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	ipLocateEndpoint = "http://ip-api.com/json"
	locateTimeout    = 10 * time.Second
)

// IPLocator obtains a single coordinate fix by geolocating the caller's
// public IP. Single-shot: every call issues a fresh lookup with a fixed
// 10 second timeout; results are never cached or tracked continuously.
type IPLocator struct {
	Endpoint string
	Client   *http.Client
}

// NewIPLocator returns a locator using the ip-api.com lookup.
func NewIPLocator(client *http.Client) *IPLocator {
	if client == nil {
		return nil
	}
	return &IPLocator{Endpoint: ipLocateEndpoint, Client: client}
}

// CurrentPosition requests one position fix. A nil or unconfigured
// locator fails immediately with ErrUnavailable.
func (l *IPLocator) CurrentPosition(ctx context.Context) (Coordinates, error) {
	if l == nil || l.Client == nil || l.Endpoint == "" {
		return Coordinates{}, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, locateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Endpoint, nil)
	if err != nil {
		return Coordinates{}, err
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geo: locate error: %d", resp.StatusCode)
	}

	var data struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Coordinates{}, err
	}
	if data.Status != "success" {
		return Coordinates{}, fmt.Errorf("geo: locate failed: %s", data.Message)
	}

	return Coordinates{Latitude: data.Lat, Longitude: data.Lon}, nil
}
