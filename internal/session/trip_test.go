package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"courier-dispatch/internal/models"
)

func pickedUpOrder() *models.Order {
	return &models.Order{
		ID:            "o1",
		OrderNumber:   "N-1001",
		Status:        models.StatusPickedUp,
		CustomerName:  "Asha",
		CustomerPhone: "9876500000",
		Address:       models.Address{Street: "12 MG Road", City: "Indore", Pincode: "452001"},
		DropoffLocation: &models.GeoPoint{
			Latitude:  22.72,
			Longitude: 75.85,
		},
	}
}

func TestStageIndex(t *testing.T) {
	cases := []struct {
		status string
		want   int
	}{
		{models.StatusPending, 0},
		{models.StatusReadyForPickup, 1},
		{models.StatusPickedUp, 2},
		{models.StatusDelivered, 3},
		{models.StatusCancelled, -1},
		{models.StatusReturned, -1},
		{"garbage", -1},
	}
	for _, tt := range cases {
		if got := models.StageIndex(tt.status); got != tt.want {
			t.Errorf("StageIndex(%q) = %d; want %d", tt.status, got, tt.want)
		}
	}
}

func TestTripRouteToCustomerAfterPickup(t *testing.T) {
	api := &fakeAPI{order: pickedUpOrder()}
	locator := &fakeLocator{pos: models.GeoPoint{Latitude: 22.70, Longitude: 75.86}}
	router := &fakeRouter{leg: &models.RouteLeg{
		DistanceMeters: 3200, DurationSeconds: 540,
		DistanceText: "3.2 km", DurationText: "9 mins",
	}}
	trip := NewTripSession(api, locator, router, nil)

	if err := trip.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	req, ok := router.lastRequest()
	if !ok {
		t.Fatal("no directions request issued")
	}
	if req[0] != (models.GeoPoint{Latitude: 22.70, Longitude: 75.86}) {
		t.Errorf("origin = %v; want device position", req[0])
	}
	if req[1] != (models.GeoPoint{Latitude: 22.72, Longitude: 75.85}) {
		t.Errorf("destination = %v; want customer coordinates", req[1])
	}

	info := trip.RouteInfo()
	if info == nil || info.Distance == "" || info.Duration == "" {
		t.Fatalf("RouteInfo = %v; want non-empty distance and duration", info)
	}
}

func TestTripRouteToFirstSellerBeforePickup(t *testing.T) {
	order := pickedUpOrder()
	order.Status = models.StatusReadyForPickup
	api := &fakeAPI{
		order: order,
		sellers: []models.SellerLocation{
			{StoreName: "Spice Bazaar", Latitude: 22.71, Longitude: 75.84},
			{StoreName: "Fresh Mart", Latitude: 22.75, Longitude: 75.80},
		},
	}
	locator := &fakeLocator{pos: models.GeoPoint{Latitude: 22.70, Longitude: 75.86}}
	router := &fakeRouter{leg: &models.RouteLeg{DistanceText: "1 km", DurationText: "4 mins"}}
	trip := NewTripSession(api, locator, router, nil)

	if err := trip.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	req, ok := router.lastRequest()
	if !ok {
		t.Fatal("no directions request issued")
	}
	if req[1] != (models.GeoPoint{Latitude: 22.71, Longitude: 75.84}) {
		t.Errorf("destination = %v; want first seller location", req[1])
	}
}

func TestTripRouteClearedOnDirectionsFailure(t *testing.T) {
	api := &fakeAPI{order: pickedUpOrder()}
	locator := &fakeLocator{pos: models.GeoPoint{Latitude: 22.70, Longitude: 75.86}}
	router := &fakeRouter{leg: &models.RouteLeg{DistanceText: "3.2 km", DurationText: "9 mins"}}
	trip := NewTripSession(api, locator, router, nil)

	if err := trip.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if trip.RouteInfo() == nil {
		t.Fatal("RouteInfo = nil after successful compute")
	}

	// Next recomputation fails: the stale summary must not survive.
	router.mu.Lock()
	router.legErr = errors.New("directions unavailable")
	router.mu.Unlock()
	trip.reportOnce(context.Background())

	if info := trip.RouteInfo(); info != nil {
		t.Errorf("RouteInfo = %v after failed directions; want nil", info)
	}
}

func TestTripAdvanceFollowsHappyPath(t *testing.T) {
	order := pickedUpOrder()
	order.Status = models.StatusPending
	order.DropoffLocation = nil
	api := &fakeAPI{order: order}
	api.updateFunc = func(orderID, status string) (*models.Order, error) {
		cp := *api.order
		cp.Status = status
		api.order = &cp
		return &cp, nil
	}
	router := &fakeRouter{leg: &models.RouteLeg{DistanceText: "1 km", DurationText: "2 mins"}, geo: models.GeoPoint{Latitude: 22.72, Longitude: 75.85}}
	trip := NewTripSession(api, &fakeLocator{pos: models.GeoPoint{Latitude: 22.7, Longitude: 75.86}}, router, nil)

	if err := trip.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if trip.StageIndex() != 0 {
		t.Fatalf("StageIndex = %d; want 0", trip.StageIndex())
	}

	if err := trip.Advance(context.Background()); err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	if got := trip.Order().Status; got != models.StatusReadyForPickup {
		t.Fatalf("status = %q; want %q", got, models.StatusReadyForPickup)
	}

	if err := trip.Advance(context.Background()); err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	if got := trip.Order().Status; got != models.StatusPickedUp {
		t.Fatalf("status = %q; want %q", got, models.StatusPickedUp)
	}

	// Delivered is gated behind OTP verification.
	if err := trip.Advance(context.Background()); !errors.Is(err, models.ErrOTPRequired) {
		t.Fatalf("Advance at PickedUp: error = %v; want ErrOTPRequired", err)
	}
}

func TestTripAdvanceSuppressedOffHappyPath(t *testing.T) {
	order := pickedUpOrder()
	order.Status = models.StatusCancelled
	api := &fakeAPI{order: order}
	trip := NewTripSession(api, &fakeLocator{}, &fakeRouter{}, nil)

	if err := trip.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if trip.StageIndex() != -1 {
		t.Fatalf("StageIndex = %d; want -1", trip.StageIndex())
	}
	if err := trip.Advance(context.Background()); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("Advance on cancelled order: error = %v; want ErrInvalidTransition", err)
	}
}

func TestTripOTPDeliversOrder(t *testing.T) {
	api := &fakeAPI{order: pickedUpOrder()}
	router := &fakeRouter{leg: &models.RouteLeg{DistanceText: "1 km", DurationText: "2 mins"}}
	trip := NewTripSession(api, &fakeLocator{pos: models.GeoPoint{Latitude: 22.7, Longitude: 75.86}}, router, nil)

	if err := trip.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if err := trip.VerifyOTP(context.Background(), "12ab56"); !errors.Is(err, models.ErrOTPMismatch) {
		t.Fatalf("VerifyOTP with non-numeric code: error = %v; want ErrOTPMismatch", err)
	}
	if err := trip.SendOTP(context.Background()); err != nil {
		t.Fatalf("SendOTP error: %v", err)
	}
	if err := trip.VerifyOTP(context.Background(), "123456"); err != nil {
		t.Fatalf("VerifyOTP error: %v", err)
	}
	if got := trip.Order().Status; got != models.StatusDelivered {
		t.Fatalf("status = %q; want Delivered", got)
	}
	if !trip.Terminal() {
		t.Error("Terminal = false after delivery")
	}
	if trip.RouteInfo() != nil {
		t.Error("RouteInfo still set after delivery")
	}
}

func TestTripReportingStopsOnTerminalStatus(t *testing.T) {
	api := &fakeAPI{order: pickedUpOrder()}
	locator := &fakeLocator{pos: models.GeoPoint{Latitude: 22.7, Longitude: 75.86}}
	router := &fakeRouter{leg: &models.RouteLeg{DistanceText: "1 km", DurationText: "2 mins"}}
	trip := NewTripSession(api, locator, router, nil)
	trip.ReportInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := trip.Start(ctx, "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		trip.Run(ctx)
	}()

	// Let a few reports through, then deliver the order.
	time.Sleep(30 * time.Millisecond)
	if api.reportCount() == 0 {
		t.Fatal("no location reports while order was active")
	}
	if err := trip.VerifyOTP(ctx, "123456"); err != nil {
		t.Fatalf("VerifyOTP error: %v", err)
	}

	// The loop must observe the terminal status within one interval.
	select {
	case <-done:
	case <-time.After(250 * time.Millisecond):
		t.Fatal("Run did not stop after order reached terminal status")
	}
}

func TestTripPermissionDeniedStopsSampling(t *testing.T) {
	api := &fakeAPI{order: pickedUpOrder()}
	locator := &fakeLocator{err: ErrPermissionDenied}
	trip := NewTripSession(api, locator, &fakeRouter{}, nil)

	if err := trip.Start(context.Background(), "o1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	calls := locator.callCount()
	if calls != 1 {
		t.Fatalf("locator calls after Start = %d; want 1", calls)
	}

	// Further report ticks must not re-prompt.
	trip.reportOnce(context.Background())
	trip.reportOnce(context.Background())
	if locator.callCount() != calls {
		t.Errorf("locator re-prompted after permission denial: %d calls", locator.callCount())
	}
	if api.reportCount() != 0 {
		t.Errorf("location reported without a position: %d reports", api.reportCount())
	}
}
