package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"courier-dispatch/internal/models"
)

// DefaultReportInterval is how often the trip session samples the device
// position and pushes it to the backend.
const DefaultReportInterval = 10 * time.Second

// Destination is the output of a WaypointStrategy: either resolved
// coordinates or a postal address still needing geocoding.
type Destination struct {
	Point   *models.GeoPoint
	Address string
}

// WaypointStrategy chooses where the agent should be heading given the
// current order phase. The second return is false when there is nowhere to
// route to yet.
type WaypointStrategy interface {
	NextWaypoint(order *models.Order, sellers []models.SellerLocation) (Destination, bool)
}

// FirstSellerStrategy is the default: before pickup, head to the first seller
// location; after pickup, head to the customer. A multi-stop optimizer can be
// substituted without touching the session.
type FirstSellerStrategy struct{}

func (FirstSellerStrategy) NextWaypoint(order *models.Order, sellers []models.SellerLocation) (Destination, bool) {
	if models.StageIndex(order.Status) < models.StageIndex(models.StatusPickedUp) {
		if len(sellers) == 0 {
			return Destination{}, false
		}
		return Destination{Point: &models.GeoPoint{
			Latitude:  sellers[0].Latitude,
			Longitude: sellers[0].Longitude,
		}}, true
	}
	if order.DropoffLocation != nil {
		return Destination{Point: order.DropoffLocation}, true
	}
	addr := order.Address
	full := fmt.Sprintf("%s, %s %s", addr.Street, addr.City, addr.Pincode)
	return Destination{Address: full}, true
}

// TripSession drives one accepted order from pickup to delivery: it owns the
// recurring location report, route recomputation, stage advances, and the
// OTP-gated delivery confirmation.
type TripSession struct {
	api      API
	location LocationProvider
	router   RoutingClient
	strategy WaypointStrategy

	// ReportInterval overrides DefaultReportInterval when set before Run.
	ReportInterval time.Duration

	mu               sync.Mutex
	order            *models.Order
	sellers          []models.SellerLocation
	position         *models.GeoPoint
	routeInfo        *models.RouteInfo
	permissionDenied bool
	op               opState
}

func NewTripSession(api API, location LocationProvider, router RoutingClient, strategy WaypointStrategy) *TripSession {
	if strategy == nil {
		strategy = FirstSellerStrategy{}
	}
	return &TripSession{
		api:            api,
		location:       location,
		router:         router,
		strategy:       strategy,
		ReportInterval: DefaultReportInterval,
	}
}

// Start loads the order and its seller locations and takes the first
// location sample. It must be called before Run.
func (t *TripSession) Start(ctx context.Context, orderID string) error {
	order, err := t.api.Order(ctx, orderID)
	if err != nil {
		return fmt.Errorf("session: load order: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	t.order = order
	t.mu.Unlock()

	if err := t.refreshSellers(ctx); err != nil {
		return err
	}
	// Best effort: a failed first sample is retried by the report loop.
	if err := t.sampleLocation(ctx); err != nil {
		log.Printf("session: initial location sample failed: %v", err)
	}
	t.refreshRoute(ctx)
	return nil
}

// Run reports the device position every ReportInterval until the order
// reaches a terminal status or ctx is cancelled. Report failures are logged
// and do not stop the loop.
func (t *TripSession) Run(ctx context.Context) {
	ticker := time.NewTicker(t.ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.Terminal() {
				return
			}
			t.reportOnce(ctx)
		}
	}
}

// reportOnce samples the device, recomputes the route, and pushes the sample
// to the backend.
func (t *TripSession) reportOnce(ctx context.Context) {
	if err := t.sampleLocation(ctx); err != nil {
		if !errors.Is(err, ErrPermissionDenied) {
			log.Printf("session: location sample failed: %v", err)
		}
		return
	}
	t.refreshRoute(ctx)

	t.mu.Lock()
	order := t.order
	pos := t.position
	t.mu.Unlock()
	if order == nil || pos == nil {
		return
	}

	err := t.api.ReportLocation(ctx, order.ID, models.LocationReport{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
	})
	if err != nil {
		// Best-effort telemetry; a dropped sample is not user-impacting.
		log.Printf("session: location report failed: %v", err)
	}
}

// sampleLocation asks the provider for a fix. After one permission denial no
// further prompts are issued.
func (t *TripSession) sampleLocation(ctx context.Context) error {
	t.mu.Lock()
	denied := t.permissionDenied
	t.mu.Unlock()
	if denied {
		return ErrPermissionDenied
	}

	pos, err := t.location.Current(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			t.mu.Lock()
			t.permissionDenied = true
			t.mu.Unlock()
		}
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	t.position = &pos
	t.mu.Unlock()
	return nil
}

// refreshSellers fetches pickup points, but only while the order is still in
// the pickup phase; once picked up the list is no longer needed.
func (t *TripSession) refreshSellers(ctx context.Context) error {
	t.mu.Lock()
	order := t.order
	t.mu.Unlock()
	if order == nil || models.StageIndex(order.Status) >= models.StageIndex(models.StatusPickedUp) {
		return nil
	}

	sellers, err := t.api.SellerLocations(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("session: load seller locations: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	t.sellers = sellers
	t.mu.Unlock()
	return nil
}

// refreshRoute recomputes the leg from the current position to the strategy's
// waypoint. On any failure the route info is cleared so the UI never shows a
// stale distance.
func (t *TripSession) refreshRoute(ctx context.Context) {
	t.mu.Lock()
	order := t.order
	sellers := t.sellers
	pos := t.position
	t.mu.Unlock()

	if order == nil || pos == nil {
		t.setRouteInfo(nil)
		return
	}
	dest, ok := t.strategy.NextWaypoint(order, sellers)
	if !ok {
		t.setRouteInfo(nil)
		return
	}

	point := dest.Point
	if point == nil {
		resolved, err := t.router.Geocode(ctx, dest.Address)
		if err != nil {
			log.Printf("session: geocode failed: %v", err)
			t.setRouteInfo(nil)
			return
		}
		point = &resolved
	}

	leg, err := t.router.Directions(ctx, *pos, *point)
	if err != nil {
		log.Printf("session: directions failed: %v", err)
		t.setRouteInfo(nil)
		return
	}
	if ctx.Err() != nil {
		return
	}
	t.setRouteInfo(&models.RouteInfo{
		Distance: leg.DistanceText,
		Duration: leg.DurationText,
	})
}

func (t *TripSession) setRouteInfo(info *models.RouteInfo) {
	t.mu.Lock()
	t.routeInfo = info
	t.mu.Unlock()
}

// Advance requests the next happy-path status. Delivered is not reachable
// here; it requires OTP verification.
func (t *TripSession) Advance(ctx context.Context) error {
	if err := t.beginOp(); err != nil {
		return err
	}
	defer t.endOp()

	t.mu.Lock()
	order := t.order
	t.mu.Unlock()
	if order == nil {
		return models.ErrNotFound
	}

	next, ok := models.NextStatus(order.Status)
	if !ok {
		return models.ErrInvalidTransition
	}
	if next == models.StatusDelivered {
		return models.ErrOTPRequired
	}

	updated, err := t.api.UpdateOrderStatus(ctx, order.ID, next)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	t.order = updated
	t.mu.Unlock()

	if err := t.refreshSellers(ctx); err != nil {
		log.Printf("session: %v", err)
	}
	t.refreshRoute(ctx)
	return nil
}

// SendOTP asks the backend to send the delivery code to the customer. Only
// valid after pickup.
func (t *TripSession) SendOTP(ctx context.Context) error {
	if err := t.beginOp(); err != nil {
		return err
	}
	defer t.endOp()

	t.mu.Lock()
	order := t.order
	t.mu.Unlock()
	if order == nil {
		return models.ErrNotFound
	}
	if order.Status != models.StatusPickedUp {
		return models.ErrInvalidTransition
	}
	return t.api.SendOTP(ctx, order.ID)
}

// VerifyOTP submits the typed code. This is the only path to Delivered.
func (t *TripSession) VerifyOTP(ctx context.Context, code string) error {
	if !validOTP(code) {
		return models.ErrOTPMismatch
	}
	if err := t.beginOp(); err != nil {
		return err
	}
	defer t.endOp()

	t.mu.Lock()
	order := t.order
	t.mu.Unlock()
	if order == nil {
		return models.ErrNotFound
	}
	if order.Status != models.StatusPickedUp {
		return models.ErrInvalidTransition
	}

	updated, err := t.api.VerifyOTP(ctx, order.ID, code)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.mu.Lock()
	if updated != nil {
		t.order = updated
	} else {
		t.order.Status = models.StatusDelivered
	}
	t.routeInfo = nil
	t.mu.Unlock()
	return nil
}

// validOTP accepts exactly six ASCII digits.
func validOTP(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (t *TripSession) beginOp() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.op == opInFlight {
		return ErrBusy
	}
	t.op = opInFlight
	return nil
}

func (t *TripSession) endOp() {
	t.mu.Lock()
	t.op = opIdle
	t.mu.Unlock()
}

// Order returns a copy of the current order state.
func (t *TripSession) Order() *models.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.order == nil {
		return nil
	}
	cp := *t.order
	return &cp
}

// StageIndex is the order's position on the happy path, -1 for
// Cancelled/Returned (stage-advance UI is suppressed there).
func (t *TripSession) StageIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.order == nil {
		return -1
	}
	return models.StageIndex(t.order.Status)
}

// Terminal reports whether the order has reached a final status.
func (t *TripSession) Terminal() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order != nil && models.IsTerminal(t.order.Status)
}

// RouteInfo returns the latest computed leg summary, nil when none is
// available.
func (t *TripSession) RouteInfo() *models.RouteInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.routeInfo == nil {
		return nil
	}
	cp := *t.routeInfo
	return &cp
}

// Position returns the last known device position.
func (t *TripSession) Position() *models.GeoPoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.position == nil {
		return nil
	}
	cp := *t.position
	return &cp
}
