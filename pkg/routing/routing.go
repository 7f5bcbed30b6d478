package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"courier-dispatch/internal/models"
)

const (
	directionsURL = "https://maps.googleapis.com/maps/api/directions/json"
	geocodeURL    = "https://maps.googleapis.com/maps/api/geocode/json"
)

// Client calls the Google Maps Directions and Geocoding APIs. The rest of the
// system treats it as an opaque routing oracle behind the session.RoutingClient
// interface.
type Client struct {
	httpClient *http.Client
	apiKey     string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		apiKey:     apiKey,
	}
}

// Directions returns the first route leg between two coordinates.
func (c *Client) Directions(ctx context.Context, origin, destination models.GeoPoint) (*models.RouteLeg, error) {
	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude))
	params.Set("destination", fmt.Sprintf("%f,%f", destination.Latitude, destination.Longitude))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, directionsURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Routes []struct {
			OverviewPolyline struct{ Points string } `json:"overview_polyline"`
			Legs             []struct {
				Distance struct {
					Value int    `json:"value"`
					Text  string `json:"text"`
				} `json:"distance"`
				Duration struct {
					Value int    `json:"value"`
					Text  string `json:"text"`
				} `json:"duration"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route data")
	}
	leg := out.Routes[0].Legs[0]
	return &models.RouteLeg{
		DistanceMeters:  leg.Distance.Value,
		DurationSeconds: leg.Duration.Value,
		DistanceText:    leg.Distance.Text,
		DurationText:    leg.Duration.Text,
		Polyline:        out.Routes[0].OverviewPolyline.Points,
	}, nil
}

// Geocode resolves a postal address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, geocodeURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.GeoPoint{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.GeoPoint{}, err
	}
	defer resp.Body.Close()

	var out struct {
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.GeoPoint{}, err
	}
	if len(out.Results) == 0 {
		return models.GeoPoint{}, fmt.Errorf("no geocoding result for %q", address)
	}
	loc := out.Results[0].Geometry.Location
	return models.GeoPoint{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
