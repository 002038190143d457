package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	nominatimEndpoint  = "https://nominatim.openstreetmap.org/reverse"
	nominatimUserAgent = "ServiceOnboard/1.0"
	nominatimZoom      = 10
	addressCountry     = "India"
)

// Nominatim resolves coordinates to a partial address via the OSM
// reverse-geocoding API. Results are requested in English at a fixed
// city-level zoom. The country is always forced to the fixed constant,
// whatever the lookup returns.
type Nominatim struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

// NewNominatim returns a resolver using the public OSM endpoint.
func NewNominatim(client *http.Client) *Nominatim {
	if client == nil {
		client = http.DefaultClient
	}
	return &Nominatim{Endpoint: nominatimEndpoint, UserAgent: nominatimUserAgent, Client: client}
}

func (n *Nominatim) ReverseGeocode(ctx context.Context, lat, lng float64) (*Address, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	query.Set("zoom", strconv.Itoa(nominatimZoom))
	query.Set("addressdetails", "1")
	query.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.UserAgent)

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim error: %d", resp.StatusCode)
	}

	var data struct {
		Address *struct {
			City          string `json:"city"`
			StateDistrict string `json:"state_district"`
			County        string `json:"county"`
			Town          string `json:"town"`
			Suburb        string `json:"suburb"`
			Village       string `json:"village"`
			State         string `json:"state"`
			Postcode      string `json:"postcode"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.Address == nil {
		return nil, ErrNoAddress
	}

	// Richest locality wins: city, then district, county, town, suburb, village.
	addr := data.Address
	city := firstNonEmpty(addr.City, addr.StateDistrict, addr.County, addr.Town, addr.Suburb, addr.Village)

	return &Address{
		City:    city,
		State:   addr.State,
		ZipCode: addr.Postcode,
		Country: addressCountry,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
