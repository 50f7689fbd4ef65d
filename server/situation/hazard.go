package situation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sudarshan/carebuddy/shared"
)

const (
	OPEN_WEATHER_BASE_URL = "https://api.openweathermap.org/data/2.5"
	HEATWAVE_TEMP_CELSIUS = 38
)

// Hazard describes the dominant environmental threat around a coordinate.
// At most one hazard is ever reported at a time.
type Hazard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RiskLevel   string `json:"riskLevel"`
	Source      string `json:"source,omitempty"`
	Temperature *int   `json:"temperature,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

// HazardResolver reports the active hazard for a coordinate.
type HazardResolver interface {
	ActiveHazard(ctx context.Context, lat, lng float64) (*Hazard, error)
}

// knownHazards is the catalogue the synthetic resolver draws from; IDs
// double as the identifiers clients use to pick preparedness guides.
var knownHazards = []Hazard{
	{ID: "flood", Name: "Flash Flood", RiskLevel: "Level 3 Warning"},
	{ID: "earthquake", Name: "Earthquake", RiskLevel: "Magnitude 5.2 Detected"},
	{ID: "cyclone", Name: "Cyclone", RiskLevel: "Category 2 Approaching"},
	{ID: "fire", Name: "Wildfire", RiskLevel: "Red Flag Warning"},
	{ID: "heatwave", Name: "Heatwave", RiskLevel: "Extreme Heat Advisory"},
}

// NewHazardResolver selects the live OpenWeather client when an API key is
// configured, the synthetic resolver otherwise.
func NewHazardResolver(config *shared.ServerConfig) HazardResolver {
	if config.OpenWeather.ApiKey != "" {
		return newOpenWeatherResolver(config.OpenWeather.ApiKey)
	}

	logg.Info("Live weather lookups disabled, serving synthetic hazard data")
	return &syntheticHazardResolver{}
}

// ---------------------------------------------------------------------------------------------------//
// Live resolver backed by the OpenWeather current-conditions API
// ---------------------------------------------------------------------------------------------------//

type openWeatherResolver struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	fallback   syntheticHazardResolver
}

func newOpenWeatherResolver(apiKey string) *openWeatherResolver {
	return &openWeatherResolver{
		apiKey:     apiKey,
		baseURL:    OPEN_WEATHER_BASE_URL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type weatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// ActiveHazard classifies the current weather at the coordinate into a
// hazard. Lookup failures degrade to synthetic data rather than surfacing
// an error.
func (resolver *openWeatherResolver) ActiveHazard(ctx context.Context, lat, lng float64) (*Hazard, error) {
	conditions, err := resolver.currentConditions(ctx, lat, lng)
	if err != nil {
		logg.Warnf("Live weather lookup failed, falling back to synthetic data: %v", err)
		return resolver.fallback.ActiveHazard(ctx, lat, lng)
	}

	temperature := int(math.Round(conditions.Main.Temp))
	conditionMain, conditionDescription := "", "Unknown"
	if len(conditions.Weather) > 0 {
		conditionMain = strings.ToLower(conditions.Weather[0].Main)
		conditionDescription = conditions.Weather[0].Description
	}

	hazard := classifyWeather(temperature, conditionMain)
	hazard.Source = "OpenWeather (Live)"
	hazard.Temperature = &temperature
	hazard.Condition = conditionDescription

	return hazard, nil
}

func (resolver *openWeatherResolver) currentConditions(
	ctx context.Context, lat, lng float64) (*weatherResponse, error) {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%v", lat))
	query.Set("lon", fmt.Sprintf("%v", lng))
	query.Set("appid", resolver.apiKey)
	query.Set("units", "metric")

	requestURL := fmt.Sprintf("%v/weather?%v", resolver.baseURL, query.Encode())
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
		return nil, fmt.Errorf("weather lookup returned status %v", response.StatusCode)
	}

	payload := weatherResponse{}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

// classifyWeather maps current conditions to a hazard. Rules are ordered:
// extreme heat wins over everything, then precipitation, smoke and wind.
func classifyWeather(temperatureCelsius int, conditionMain string) *Hazard {
	switch {
	case temperatureCelsius >= HEATWAVE_TEMP_CELSIUS:
		return &Hazard{ID: "heatwave", Name: "Extreme Heat Detected", RiskLevel: "Active Alert (Live Data)"}

	case strings.Contains(conditionMain, "rain"),
		strings.Contains(conditionMain, "thunderstorm"),
		strings.Contains(conditionMain, "drizzle"):
		return &Hazard{ID: "flood", Name: "Heavy Precipitation Warning", RiskLevel: "Active Alert (Live Data)"}

	case strings.Contains(conditionMain, "smoke"),
		strings.Contains(conditionMain, "ash"):
		return &Hazard{ID: "fire", Name: "Poor Air Quality / Smoke", RiskLevel: "Active Alert (Live Data)"}

	case strings.Contains(conditionMain, "tornado"),
		strings.Contains(conditionMain, "squall"):
		return &Hazard{ID: "cyclone", Name: "High Wind Warning", RiskLevel: "Active Alert (Live Data)"}
	}

	return &Hazard{ID: "none", Name: "No Active Threats", RiskLevel: "Clear"}
}

// ---------------------------------------------------------------------------------------------------//
// Synthetic resolver - coordinate-seeded pick from the hazard catalogue
// ---------------------------------------------------------------------------------------------------//

type syntheticHazardResolver struct{}

// ActiveHazard picks a hazard deterministically from the coordinate so the
// same location always reports the same threat.
func (resolver *syntheticHazardResolver) ActiveHazard(ctx context.Context, lat, lng float64) (*Hazard, error) {
	index := int(math.Abs(math.Floor(math.Mod(lat+lng, float64(len(knownHazards))))))
	if index >= len(knownHazards) {
		index = 0
	}

	hazard := knownHazards[index]
	return &hazard, nil
}
