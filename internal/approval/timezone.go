package approval

import (
	"context"
	"time"

	"googlemaps.github.io/maps"

	apperrors "music-brief-scheduler/pkg/errors"
)

// TimezoneResolver turns a free-text location into an IANA timezone via the
// Maps APIs. Best effort only; callers fall back to the default timezone.
type TimezoneResolver struct {
	client *maps.Client
}

// NewTimezoneResolver returns nil when no API key is configured, which
// callers treat as "always fall back".
func NewTimezoneResolver(apiKey string) (*TimezoneResolver, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperrors.NewExternal("approval.NewTimezoneResolver", "googlemaps", "create client", err)
	}
	return &TimezoneResolver{client: client}, nil
}

// Resolve searches for the location and reads the timezone at its
// coordinates.
func (r *TimezoneResolver) Resolve(ctx context.Context, location string) (string, error) {
	if r == nil || location == "" {
		return "", apperrors.NewExternal("approval.Resolve", "googlemaps", "resolver not configured", nil)
	}

	search, err := r.client.TextSearch(ctx, &maps.TextSearchRequest{Query: location})
	if err != nil {
		return "", apperrors.NewExternal("approval.Resolve", "googlemaps", "text search", err)
	}
	if len(search.Results) == 0 {
		return "", apperrors.NewExternal("approval.Resolve", "googlemaps", "no results for location", nil)
	}

	loc := search.Results[0].Geometry.Location
	tz, err := r.client.Timezone(ctx, &maps.TimezoneRequest{
		Location:  &maps.LatLng{Lat: loc.Lat, Lng: loc.Lng},
		Timestamp: time.Now(),
	})
	if err != nil {
		return "", apperrors.NewExternal("approval.Resolve", "googlemaps", "timezone lookup", err)
	}
	return tz.TimeZoneID, nil
}
