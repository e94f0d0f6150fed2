package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
)

// Unsupported is the provider for platforms without geolocation.
type Unsupported struct{}

func (Unsupported) CurrentPosition(context.Context) (event.Location, error) {
	return event.Location{}, ErrUnsupported
}

// Denied is the provider used when the user refused location access.
type Denied struct{}

func (Denied) CurrentPosition(context.Context) (event.Location, error) {
	return event.Location{}, ErrPermissionDenied
}

// Static reports a fixed, configured position.
type Static struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Clock     clock.Clock
}

func (s Static) CurrentPosition(context.Context) (event.Location, error) {
	loc := event.Location{Latitude: s.Latitude, Longitude: s.Longitude, Accuracy: s.Accuracy}
	if s.Clock != nil {
		loc.Timestamp = s.Clock.Now()
	}
	return loc, nil
}

// GeoIP estimates the position of a public IP address from a MaxMind City
// database.
type GeoIP struct {
	reader *geoip2.Reader
	ip     net.IP
	clock  clock.Clock
}

// OpenGeoIP opens the database at path for lookups of ip.
func OpenGeoIP(path, ip string, clk clock.Clock) (*GeoIP, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, fmt.Errorf("invalid geoip address %q", ip)
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database: %w", err)
	}
	return &GeoIP{reader: reader, ip: addr, clock: clk}, nil
}

func (g *GeoIP) CurrentPosition(ctx context.Context) (event.Location, error) {
	if err := ctx.Err(); err != nil {
		return event.Location{}, err
	}
	record, err := g.reader.City(g.ip)
	if err != nil {
		return event.Location{}, fmt.Errorf("geoip lookup %s: %w", g.ip, err)
	}
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return event.Location{}, fmt.Errorf("geoip lookup %s: no location", g.ip)
	}

	// AccuracyRadius is in kilometres.
	return event.Location{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
		Accuracy:  float64(record.Location.AccuracyRadius) * 1000,
		Timestamp: g.clock.Now(),
	}, nil
}

// Close releases the database.
func (g *GeoIP) Close() error {
	return g.reader.Close()
}
