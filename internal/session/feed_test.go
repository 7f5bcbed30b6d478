package session

import (
	"context"
	"errors"
	"testing"

	"courier-dispatch/internal/models"
)

func notif(id string) *models.OrderNotification {
	return &models.OrderNotification{OrderID: id, OrderNumber: "N-" + id}
}

func newTestFeed(api *fakeAPI, blocked bool) (*NotificationFeed, *fakeSounder, *eventLog) {
	log := &eventLog{}
	api.log = log
	sounder := &fakeSounder{log: log, blocked: blocked}
	return NewNotificationFeed(api, sounder), sounder, log
}

func TestFeedPresentsOnlyHead(t *testing.T) {
	api := &fakeAPI{acceptResult: models.ActionResult{Success: true}}
	feed, _, _ := newTestFeed(api, false)

	feed.Push(notif("o1"))
	feed.Push(notif("o2"))
	feed.Push(notif("o3"))
	feed.Push(notif("o2")) // duplicate, dropped

	if got := feed.Current(); got == nil || got.OrderID != "o1" {
		t.Fatalf("Current = %v; want o1", got)
	}

	if _, err := feed.Accept(context.Background(), "o1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if got := feed.Current(); got == nil || got.OrderID != "o2" {
		t.Fatalf("Current after accept = %v; want o2", got)
	}

	// Acting on a non-head order is refused.
	if _, err := feed.Accept(context.Background(), "o3"); !errors.Is(err, ErrNotCurrent) {
		t.Fatalf("Accept(o3) error = %v; want ErrNotCurrent", err)
	}
}

func TestFeedRejectAdvancesQueue(t *testing.T) {
	api := &fakeAPI{rejectResult: models.ActionResult{Success: true, AllRejected: true}}
	feed, _, _ := newTestFeed(api, false)

	feed.Push(notif("o1"))
	res, err := feed.Reject(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if !res.AllRejected {
		t.Error("AllRejected = false; want true")
	}
	if feed.Current() != nil {
		t.Error("Current != nil after rejecting the only offer")
	}
}

func TestFeedSoundPausedBeforeNetworkCall(t *testing.T) {
	api := &fakeAPI{acceptResult: models.ActionResult{Success: true}}
	feed, _, log := newTestFeed(api, false)

	feed.Push(notif("o1"))
	if _, err := feed.Accept(context.Background(), "o1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}

	events := log.snapshot()
	pause, reset, call := -1, -1, -1
	for i, ev := range events {
		switch ev {
		case "pause":
			pause = i
		case "reset":
			reset = i
		case "accept-call":
			call = i
		}
	}
	if pause == -1 || reset == -1 || call == -1 {
		t.Fatalf("missing events in %v", events)
	}
	if pause > call || reset > call {
		t.Errorf("sound not silenced before network call: %v", events)
	}
}

func TestFeedSoundResumesOnFailedAction(t *testing.T) {
	api := &fakeAPI{acceptResult: models.ActionResult{Success: false, Message: "taken"}}
	feed, _, _ := newTestFeed(api, false)

	feed.Push(notif("o1"))
	res, err := feed.Accept(context.Background(), "o1")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if res.Success {
		t.Fatal("Success = true; want false")
	}
	// The offer stays presented and the alert is sounding again.
	if got := feed.Current(); got == nil || got.OrderID != "o1" {
		t.Fatalf("Current = %v; want o1 still presented", got)
	}
	if feed.Sound() != SoundPlaying {
		t.Errorf("Sound = %v; want SoundPlaying", feed.Sound())
	}
}

func TestFeedAutoplayBlockedUntilInteraction(t *testing.T) {
	api := &fakeAPI{}
	feed, sounder, log := newTestFeed(api, true)

	feed.Push(notif("o1"))
	if feed.Sound() != SoundBlocked {
		t.Fatalf("Sound = %v; want SoundBlocked", feed.Sound())
	}
	for _, ev := range log.snapshot() {
		if ev == "play" {
			t.Fatal("sound played while autoplay was blocked")
		}
	}

	sounder.unblock()
	feed.NotifyInteraction()
	if feed.Sound() != SoundPlaying {
		t.Errorf("Sound after interaction = %v; want SoundPlaying", feed.Sound())
	}
}

func TestFeedInFlightGuard(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	api := &fakeAPI{acceptResult: models.ActionResult{Success: true}, acceptStarted: started, acceptGate: gate}
	feed, _, _ := newTestFeed(api, false)

	feed.Push(notif("o1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = feed.Accept(context.Background(), "o1")
	}()

	// Wait until the first call is inside the network request.
	<-started
	if _, err := feed.Reject(context.Background(), "o1"); !errors.Is(err, ErrBusy) {
		t.Errorf("Reject during in-flight accept: error = %v; want ErrBusy", err)
	}

	close(gate)
	<-done
}

func TestFeedCloseReleasesSounder(t *testing.T) {
	api := &fakeAPI{}
	feed, _, log := newTestFeed(api, false)

	feed.Push(notif("o1"))
	feed.Close()

	released := false
	for _, ev := range log.snapshot() {
		if ev == "release" {
			released = true
		}
	}
	if !released {
		t.Error("Close did not release the sounder")
	}
}
