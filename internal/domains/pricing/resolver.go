package pricing

//go:generate go run go.uber.org/mock/mockgen -source=./resolver.go -destination=./mocks/resolver_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tukang/config"
	"tukang/infras/otel"
	"tukang/shared/constant"
)

// Address is the subset of a booking address the geocoder needs.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Quote carries the resolved distance and its surcharge. Resolved is false when
// geocoding failed and the zero-distance fallback applies.
type Quote struct {
	DistanceKm        float64 `json:"distance_km"`
	DistanceCharge    float64 `json:"distance_charge"`
	CustomerLatitude  float64 `json:"customer_latitude"`
	CustomerLongitude float64 `json:"customer_longitude"`
	BaseLatitude      float64 `json:"base_latitude"`
	BaseLongitude     float64 `json:"base_longitude"`
	Resolved          bool    `json:"resolved"`
}

// Resolver prices the distance between the service base and a customer address.
// Resolve never fails: a geocoding outage yields the zero-distance fallback so
// booking creation is never blocked on it.
type Resolver interface {
	Resolve(ctx context.Context, address Address) Quote
}

type geocodeResult struct {
	Latitude  string `json:"lat"`
	Longitude string `json:"lon"`
}

type resolverImpl struct {
	cfg    *config.Config
	otel   otel.Otel
	client *http.Client
}

func New(cfg *config.Config, otl otel.Otel) Resolver {
	return &resolverImpl{
		cfg:  cfg,
		otel: otl,
		client: &http.Client{
			Timeout: time.Duration(cfg.Pricing.TimeoutSeconds) * time.Second,
		},
	}
}

func (r *resolverImpl) Resolve(ctx context.Context, address Address) Quote {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".ResolveDistance")
	defer scope.End()

	fallback := Quote{
		BaseLatitude:  r.cfg.Pricing.BaseLatitude,
		BaseLongitude: r.cfg.Pricing.BaseLongitude,
	}

	lat, lon, err := r.geocode(ctx, address)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("city", address.City).Msg("distance resolution failed, falling back to zero distance")

		return fallback
	}

	distance := Haversine(r.cfg.Pricing.BaseLatitude, r.cfg.Pricing.BaseLongitude, lat, lon)

	return Quote{
		DistanceKm:        math.Round(distance*100) / 100,
		DistanceCharge:    r.chargeFor(distance),
		CustomerLatitude:  lat,
		CustomerLongitude: lon,
		BaseLatitude:      r.cfg.Pricing.BaseLatitude,
		BaseLongitude:     r.cfg.Pricing.BaseLongitude,
		Resolved:          true,
	}
}

func (r *resolverImpl) chargeFor(distanceKm float64) float64 {
	billable := distanceKm - r.cfg.Pricing.FreeRadiusKm
	if billable <= 0 {
		return 0
	}

	return math.Round(billable * r.cfg.Pricing.RatePerKm)
}

func (r *resolverImpl) geocode(ctx context.Context, address Address) (float64, float64, error) {
	if r.cfg.Pricing.GeocoderURL == "" {
		return 0, 0, fmt.Errorf("no geocoder endpoint configured")
	}

	query := url.Values{}
	query.Set("q", strings.Join([]string{address.Street, address.City, address.State, address.Pincode}, ", "))
	query.Set("format", "json")
	query.Set("limit", "1")

	endpoint := r.cfg.Pricing.GeocoderURL + "?" + query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build geocoder request: %w", err)
	}

	resp, err := r.client.Do(request)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	if len(results) == 0 {
		return 0, 0, fmt.Errorf("geocoder returned no results")
	}

	lat, err := strconv.ParseFloat(results[0].Latitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in geocoder response: %w", err)
	}

	lon, err := strconv.ParseFloat(results[0].Longitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in geocoder response: %w", err)
	}

	return lat, lon, nil
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two coordinates in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
