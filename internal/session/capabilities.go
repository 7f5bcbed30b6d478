// Package session implements the rider-side delivery workflow: the
// availability status channel, the order notification feed, and the live trip
// session. Device and platform capabilities (GPS, alert sound, routing) are
// injected as interfaces so the workflow can run headless in tests.
package session

import (
	"context"
	"errors"

	"courier-dispatch/internal/models"
)

// ErrPermissionDenied is returned by a LocationProvider when the user has
// denied location access. The trip session stops sampling after seeing it
// once, rather than re-prompting on every interval.
var ErrPermissionDenied = errors.New("location permission denied")

// ErrAutoplayBlocked is returned by AlertSounder.Play when the platform
// refuses to start playback without a user interaction.
var ErrAutoplayBlocked = errors.New("audio playback blocked until user interaction")

// ErrBusy is returned when an operation is requested while a previous one is
// still in flight.
var ErrBusy = errors.New("operation already in flight")

// ErrNotCurrent is returned when an accept/reject targets an order that is
// not the currently presented notification.
var ErrNotCurrent = errors.New("order is not the current notification")

// LocationProvider yields the device's current position.
type LocationProvider interface {
	Current(ctx context.Context) (models.GeoPoint, error)
}

// RoutingClient is the opaque routing oracle. Satisfied by routing.Client.
type RoutingClient interface {
	Directions(ctx context.Context, origin, destination models.GeoPoint) (*models.RouteLeg, error)
	Geocode(ctx context.Context, address string) (models.GeoPoint, error)
}

// AlertSounder controls the looping notification alert. Play reports
// ErrAutoplayBlocked when playback cannot start yet; Reset rewinds to the
// beginning; Release frees the underlying resource and must always be called
// on teardown.
type AlertSounder interface {
	Play() error
	Pause()
	Reset()
	Release()
}
