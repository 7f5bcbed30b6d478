package session

import (
	"context"
	"sync"

	"courier-dispatch/internal/models"
)

// fakeAPI is an in-memory stand-in for the backend. Behavior is driven by
// the struct fields; every call is appended to the shared event log so tests
// can assert ordering across the API and the sounder.
type fakeAPI struct {
	mu  sync.Mutex
	log *eventLog

	profile         *models.Agent
	profileErr      error
	availabilityErr []error // popped per call; nil entry means success

	next          *models.OrderNotification
	nextErr       error
	acceptResult  models.ActionResult
	acceptErr     error
	acceptStarted chan struct{} // when set, receives one value as AcceptOrder begins
	acceptGate    chan struct{} // when set, AcceptOrder blocks until closed
	rejectResult  models.ActionResult
	rejectErr     error

	order      *models.Order
	orderErr   error
	sellers    []models.SellerLocation
	sellersErr error
	updateFunc func(orderID, status string) (*models.Order, error)
	sendOTPErr error
	verifyFunc func(orderID, code string) (*models.Order, error)

	reportErr error
	reports   []models.LocationReport
}

// eventLog records call ordering across fakes.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(ev string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (f *fakeAPI) Profile(ctx context.Context) (*models.Agent, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeAPI) SetAvailability(ctx context.Context, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.availabilityErr) == 0 {
		return nil
	}
	err := f.availabilityErr[0]
	f.availabilityErr = f.availabilityErr[1:]
	return err
}

func (f *fakeAPI) NextNotification(ctx context.Context) (*models.OrderNotification, error) {
	return f.next, f.nextErr
}

func (f *fakeAPI) AcceptOrder(ctx context.Context, orderID string) (models.ActionResult, error) {
	f.log.add("accept-call")
	if f.acceptStarted != nil {
		f.acceptStarted <- struct{}{}
	}
	if f.acceptGate != nil {
		<-f.acceptGate
	}
	return f.acceptResult, f.acceptErr
}

func (f *fakeAPI) RejectOrder(ctx context.Context, orderID string) (models.ActionResult, error) {
	f.log.add("reject-call")
	return f.rejectResult, f.rejectErr
}

func (f *fakeAPI) Order(ctx context.Context, orderID string) (*models.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	cp := *f.order
	return &cp, nil
}

func (f *fakeAPI) UpdateOrderStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	if f.updateFunc != nil {
		return f.updateFunc(orderID, status)
	}
	cp := *f.order
	cp.Status = status
	return &cp, nil
}

func (f *fakeAPI) SellerLocations(ctx context.Context, orderID string) ([]models.SellerLocation, error) {
	return f.sellers, f.sellersErr
}

func (f *fakeAPI) SendOTP(ctx context.Context, orderID string) error {
	return f.sendOTPErr
}

func (f *fakeAPI) VerifyOTP(ctx context.Context, orderID, code string) (*models.Order, error) {
	if f.verifyFunc != nil {
		return f.verifyFunc(orderID, code)
	}
	cp := *f.order
	cp.Status = models.StatusDelivered
	return &cp, nil
}

func (f *fakeAPI) ReportLocation(ctx context.Context, orderID string, report models.LocationReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reportErr != nil {
		return f.reportErr
	}
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeAPI) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

// fakeSounder records playback calls. While blocked is true, Play fails with
// ErrAutoplayBlocked.
type fakeSounder struct {
	mu      sync.Mutex
	log     *eventLog
	blocked bool
}

func (s *fakeSounder) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked {
		s.log.add("play-blocked")
		return ErrAutoplayBlocked
	}
	s.log.add("play")
	return nil
}

func (s *fakeSounder) Pause()   { s.log.add("pause") }
func (s *fakeSounder) Reset()   { s.log.add("reset") }
func (s *fakeSounder) Release() { s.log.add("release") }

func (s *fakeSounder) unblock() {
	s.mu.Lock()
	s.blocked = false
	s.mu.Unlock()
}

// fakeLocator returns a fixed position, or err when set. Calls are counted.
type fakeLocator struct {
	mu    sync.Mutex
	pos   models.GeoPoint
	err   error
	calls int
}

func (l *fakeLocator) Current(ctx context.Context) (models.GeoPoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return models.GeoPoint{}, l.err
	}
	return l.pos, nil
}

func (l *fakeLocator) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// fakeRouter records direction requests and serves canned legs.
type fakeRouter struct {
	mu       sync.Mutex
	leg      *models.RouteLeg
	legErr   error
	geo      models.GeoPoint
	geoErr   error
	requests [][2]models.GeoPoint
}

func (r *fakeRouter) Directions(ctx context.Context, origin, destination models.GeoPoint) (*models.RouteLeg, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, [2]models.GeoPoint{origin, destination})
	if r.legErr != nil {
		return nil, r.legErr
	}
	return r.leg, nil
}

func (r *fakeRouter) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	return r.geo, r.geoErr
}

func (r *fakeRouter) lastRequest() ([2]models.GeoPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return [2]models.GeoPoint{}, false
	}
	return r.requests[len(r.requests)-1], true
}
