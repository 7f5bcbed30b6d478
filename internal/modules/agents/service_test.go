package agents

import (
	"context"
	"errors"
	"testing"

	"courier-dispatch/internal/models"
)

type fakeRepo struct {
	agents     map[string]*models.Agent
	activeTrip map[string]bool
	orderAgent map[string]string // orderID -> agentID
	events     []*models.TrackingEvent
	current    map[string]models.LocationReport
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		agents:     make(map[string]*models.Agent),
		activeTrip: make(map[string]bool),
		orderAgent: make(map[string]string),
		current:    make(map[string]models.LocationReport),
	}
}

func (f *fakeRepo) FindByID(ctx context.Context, agentID string) (*models.Agent, error) {
	a, ok := f.agents[agentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) SetAvailability(ctx context.Context, agentID string, online bool) error {
	a, ok := f.agents[agentID]
	if !ok {
		return models.ErrNotFound
	}
	a.IsOnline = online
	return nil
}

func (f *fakeRepo) HasActiveTrip(ctx context.Context, agentID string) (bool, error) {
	return f.activeTrip[agentID], nil
}

func (f *fakeRepo) OrderAgentID(ctx context.Context, orderID string) (string, error) {
	agentID, ok := f.orderAgent[orderID]
	if !ok {
		return "", models.ErrNotFound
	}
	return agentID, nil
}

func (f *fakeRepo) InsertTrackingEvent(ctx context.Context, ev *models.TrackingEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepo) UpsertCurrentLocation(ctx context.Context, agentID string, report models.LocationReport) error {
	f.current[agentID] = report
	return nil
}

func (f *fakeRepo) ListTrackingEvents(ctx context.Context, orderID string) ([]*models.TrackingEvent, error) {
	var out []*models.TrackingEvent
	for _, ev := range f.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func TestSetAvailabilityBlockedDuringActiveTrip(t *testing.T) {
	fr := newFakeRepo()
	fr.agents["a1"] = &models.Agent{ID: "a1", IsOnline: true}
	fr.activeTrip["a1"] = true
	svc := NewService(fr)
	ctx := context.Background()

	if err := svc.SetAvailability(ctx, "a1", false); !errors.Is(err, models.ErrAgentBusy) {
		t.Fatalf("going offline mid-trip: error = %v; want ErrAgentBusy", err)
	}
	if !fr.agents["a1"].IsOnline {
		t.Error("agent flipped offline despite the active trip")
	}

	// Going online is never blocked, and offline works once the trip ends.
	if err := svc.SetAvailability(ctx, "a1", true); err != nil {
		t.Fatalf("going online error: %v", err)
	}
	fr.activeTrip["a1"] = false
	if err := svc.SetAvailability(ctx, "a1", false); err != nil {
		t.Fatalf("going offline after trip error: %v", err)
	}
	if fr.agents["a1"].IsOnline {
		t.Error("agent still online after successful offline request")
	}
}

func TestReportLocationOnlyByAssignedAgent(t *testing.T) {
	fr := newFakeRepo()
	fr.orderAgent["o1"] = "a1"
	svc := NewService(fr)
	report := models.LocationReport{Latitude: 22.7, Longitude: 75.86}

	if err := svc.ReportLocation(context.Background(), "a2", "o1", report); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("report by stranger: error = %v; want ErrForbidden", err)
	}
	if len(fr.events) != 0 {
		t.Fatal("tracking event recorded for a forbidden report")
	}

	if err := svc.ReportLocation(context.Background(), "a1", "o1", report); err != nil {
		t.Fatalf("ReportLocation error: %v", err)
	}
	if len(fr.events) != 1 {
		t.Fatalf("events = %d; want 1", len(fr.events))
	}
	if got := fr.current["a1"]; got != report {
		t.Errorf("current location = %+v; want %+v", got, report)
	}
}

func TestGetTrackReturnsOrderTrace(t *testing.T) {
	fr := newFakeRepo()
	fr.orderAgent["o1"] = "a1"
	fr.orderAgent["o2"] = "a1"
	svc := NewService(fr)
	ctx := context.Background()

	for _, lng := range []float64{75.86, 75.87} {
		report := models.LocationReport{Latitude: 22.7, Longitude: lng}
		if err := svc.ReportLocation(ctx, "a1", "o1", report); err != nil {
			t.Fatalf("ReportLocation error: %v", err)
		}
	}
	if err := svc.ReportLocation(ctx, "a1", "o2", models.LocationReport{Latitude: 23, Longitude: 76}); err != nil {
		t.Fatalf("ReportLocation error: %v", err)
	}

	track, err := svc.GetTrack(ctx, "o1")
	if err != nil {
		t.Fatalf("GetTrack error: %v", err)
	}
	if len(track) != 2 {
		t.Fatalf("track length = %d; want 2", len(track))
	}
}
