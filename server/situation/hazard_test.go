package situation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sudarshan/carebuddy/shared"
)

func TestSyntheticHazardIsDeterministic(t *testing.T) {
	resolver := &syntheticHazardResolver{}

	hazard, err := resolver.ActiveHazard(context.Background(), 12.9, 77.6)
	assert.NoError(t, err)
	assert.Equal(t, "flood", hazard.ID)
	assert.Equal(t, "Flash Flood", hazard.Name)

	// Same coordinate, same hazard.
	again, err := resolver.ActiveHazard(context.Background(), 12.9, 77.6)
	assert.NoError(t, err)
	assert.Equal(t, hazard, again)

	hazard, err = resolver.ActiveHazard(context.Background(), 2.0, 1.5)
	assert.NoError(t, err)
	assert.Equal(t, "fire", hazard.ID)

	// Negative coordinates still land inside the catalogue.
	hazard, err = resolver.ActiveHazard(context.Background(), -1.0, -1.3)
	assert.NoError(t, err)
	assert.Equal(t, "fire", hazard.ID)

	hazard, err = resolver.ActiveHazard(context.Background(), -2.0, -2.5)
	assert.NoError(t, err)
	assert.Equal(t, "flood", hazard.ID)
}

func TestClassifyWeather(t *testing.T) {
	testCases := []struct {
		temperature   int
		conditionMain string
		wantID        string
	}{
		{40, "clear", "heatwave"},
		// Extreme heat outranks every other condition.
		{40, "thunderstorm", "heatwave"},
		{20, "rain", "flood"},
		{20, "thunderstorm", "flood"},
		{20, "drizzle", "flood"},
		{20, "smoke", "fire"},
		{20, "ash", "fire"},
		{20, "tornado", "cyclone"},
		{20, "squall", "cyclone"},
		{20, "clear", "none"},
		{20, "clouds", "none"},
	}

	for _, testCase := range testCases {
		hazard := classifyWeather(testCase.temperature, testCase.conditionMain)
		assert.Equalf(t, testCase.wantID, hazard.ID,
			"temp=%v condition=%v", testCase.temperature, testCase.conditionMain)
	}
}

func TestOpenWeatherResolverClassifiesLiveConditions(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		fmt.Fprint(w, `{"main":{"temp":40.2},"weather":[{"main":"Clear","description":"clear sky"}]}`)
	}))
	defer stub.Close()

	resolver := newOpenWeatherResolver("test-key")
	resolver.baseURL = stub.URL

	hazard, err := resolver.ActiveHazard(context.Background(), 12.9, 77.6)
	assert.NoError(t, err)
	assert.Equal(t, "heatwave", hazard.ID)
	assert.Equal(t, "OpenWeather (Live)", hazard.Source)
	assert.Equal(t, "clear sky", hazard.Condition)
	assert.NotNil(t, hazard.Temperature)
	assert.Equal(t, 40, *hazard.Temperature)
}

func TestOpenWeatherResolverFallsBackOnError(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer stub.Close()

	resolver := newOpenWeatherResolver("test-key")
	resolver.baseURL = stub.URL

	hazard, err := resolver.ActiveHazard(context.Background(), 12.9, 77.6)
	assert.NoError(t, err)
	assert.Equal(t, "flood", hazard.ID)
	assert.Empty(t, hazard.Source)
}

func TestNewHazardResolverStrategySelection(t *testing.T) {
	config := &shared.ServerConfig{}
	assert.IsType(t, &syntheticHazardResolver{}, NewHazardResolver(config))

	config.OpenWeather.ApiKey = "test-key"
	assert.IsType(t, &openWeatherResolver{}, NewHazardResolver(config))
}
