package pricing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"tukang/config"
	"tukang/infras/otel/mocks"
	"tukang/internal/domains/pricing"
)

func newConfig(geocoderURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Pricing.BaseLatitude = 28.6139
	cfg.Pricing.BaseLongitude = 77.2090
	cfg.Pricing.RatePerKm = 10
	cfg.Pricing.FreeRadiusKm = 5
	cfg.Pricing.GeocoderURL = geocoderURL
	cfg.Pricing.TimeoutSeconds = 1

	return cfg
}

func TestResolve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		// roughly 20km north of the base location
		_, _ = w.Write([]byte(`[{"lat":"28.7939","lon":"77.2090"}]`))
	}))
	defer server.Close()

	resolver := pricing.New(newConfig(server.URL), mocks.NewOtel())

	quote := resolver.Resolve(context.Background(), pricing.Address{
		Street:  "12 MG Road",
		City:    "Delhi",
		State:   "DL",
		Pincode: "110001",
	})

	assert.True(t, quote.Resolved)
	assert.InDelta(t, 20.0, quote.DistanceKm, 0.5)
	// charge covers only the distance beyond the free radius
	assert.InDelta(t, (quote.DistanceKm-5)*10, quote.DistanceCharge, 10)
	assert.Greater(t, quote.DistanceCharge, float64(0))
}

func TestResolve_WithinFreeRadius(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"28.6239","lon":"77.2090"}]`))
	}))
	defer server.Close()

	resolver := pricing.New(newConfig(server.URL), mocks.NewOtel())

	quote := resolver.Resolve(context.Background(), pricing.Address{City: "Delhi"})

	assert.True(t, quote.Resolved)
	assert.Equal(t, float64(0), quote.DistanceCharge)
}

func TestResolve_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "geocoder error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "empty result set",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"not":"an array"`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			resolver := pricing.New(newConfig(server.URL), mocks.NewOtel())

			quote := resolver.Resolve(context.Background(), pricing.Address{City: "Delhi"})

			assert.False(t, quote.Resolved)
			assert.Equal(t, float64(0), quote.DistanceKm)
			assert.Equal(t, float64(0), quote.DistanceCharge)
		})
	}
}

func TestResolve_NoEndpointConfigured(t *testing.T) {
	resolver := pricing.New(newConfig(""), mocks.NewOtel())

	quote := resolver.Resolve(context.Background(), pricing.Address{City: "Delhi"})

	assert.False(t, quote.Resolved)
	assert.Equal(t, float64(0), quote.DistanceCharge)
}

func TestHaversine(t *testing.T) {
	// Delhi to Mumbai is roughly 1150km
	distance := pricing.Haversine(28.6139, 77.2090, 19.0760, 72.8777)

	assert.InDelta(t, 1150, distance, 20)
	assert.Equal(t, float64(0), pricing.Haversine(28.6139, 77.2090, 28.6139, 77.2090))
}
