package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"courier-dispatch/internal/models"
)

// SoundState is the alert sounder's lifecycle state.
type SoundState int

const (
	SoundUnstarted SoundState = iota
	SoundAttempting
	SoundPlaying
	// SoundBlocked means the platform refused autoplay; the next user
	// interaction on the card starts playback.
	SoundBlocked
)

type opState int

const (
	opIdle opState = iota
	opInFlight
)

// NotificationFeed holds the agent's pending order offers and presents them
// one at a time. Accept and reject are serialized by an explicit in-flight
// guard; a second call while one is pending gets ErrBusy instead of firing a
// duplicate request.
type NotificationFeed struct {
	api     API
	sounder AlertSounder

	mu    sync.Mutex
	queue []*models.OrderNotification
	seen  map[string]bool
	op    opState
	sound SoundState
}

func NewNotificationFeed(api API, sounder AlertSounder) *NotificationFeed {
	return &NotificationFeed{
		api:     api,
		sounder: sounder,
		seen:    make(map[string]bool),
	}
}

// Current returns the presented notification: always the queue head, nil when
// the queue is empty.
func (f *NotificationFeed) Current() *models.OrderNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil
	}
	return f.queue[0]
}

// Sound returns the sounder state, for the card's "tap to enable sound"
// affordance.
func (f *NotificationFeed) Sound() SoundState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sound
}

// Push appends an offer to the queue, deduplicating by order ID. The alert
// starts when the queue transitions from empty to non-empty.
func (f *NotificationFeed) Push(n *models.OrderNotification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[n.OrderID] {
		return
	}
	f.seen[n.OrderID] = true
	f.queue = append(f.queue, n)
	if len(f.queue) == 1 {
		f.startAlertLocked()
	}
}

// NotifyInteraction records a user interaction on the card. If autoplay was
// blocked, playback starts now.
func (f *NotificationFeed) NotifyInteraction() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sound != SoundBlocked {
		return
	}
	if err := f.sounder.Play(); err == nil {
		f.sound = SoundPlaying
	}
}

// Accept claims the presented order. The alert is paused and rewound before
// the network call and resumed only if the backend reports failure.
func (f *NotificationFeed) Accept(ctx context.Context, orderID string) (models.ActionResult, error) {
	return f.act(ctx, orderID, f.api.AcceptOrder)
}

// Reject declines the presented order. AllRejected on the result signals that
// every candidate agent has now turned the order down.
func (f *NotificationFeed) Reject(ctx context.Context, orderID string) (models.ActionResult, error) {
	return f.act(ctx, orderID, f.api.RejectOrder)
}

func (f *NotificationFeed) act(ctx context.Context, orderID string, call func(context.Context, string) (models.ActionResult, error)) (models.ActionResult, error) {
	f.mu.Lock()
	if f.op == opInFlight {
		f.mu.Unlock()
		return models.ActionResult{}, ErrBusy
	}
	if len(f.queue) == 0 || f.queue[0].OrderID != orderID {
		f.mu.Unlock()
		return models.ActionResult{}, ErrNotCurrent
	}
	f.op = opInFlight
	// Silence the alert before the request leaves, so it cannot keep
	// sounding after the agent has acted.
	f.sounder.Pause()
	f.sounder.Reset()
	f.mu.Unlock()

	result, err := call(ctx, orderID)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.op = opIdle

	if ctx.Err() != nil {
		return models.ActionResult{}, ctx.Err()
	}

	if err != nil || !result.Success {
		// The action failed; the notification stays presented and the
		// alert resumes.
		f.startAlertLocked()
		return result, err
	}

	f.queue = f.queue[1:]
	if len(f.queue) > 0 {
		f.startAlertLocked()
	} else {
		f.sound = SoundUnstarted
	}
	return result, nil
}

// startAlertLocked attempts playback and records whether the platform blocked
// it. Callers must hold f.mu.
func (f *NotificationFeed) startAlertLocked() {
	f.sound = SoundAttempting
	if err := f.sounder.Play(); err != nil {
		if errors.Is(err, ErrAutoplayBlocked) {
			f.sound = SoundBlocked
			return
		}
		log.Printf("session: alert playback failed: %v", err)
		f.sound = SoundBlocked
		return
	}
	f.sound = SoundPlaying
}

// Run polls the backend for newly assigned offers until ctx is done. Poll
// failures are logged and retried on the next tick.
func (f *NotificationFeed) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := f.api.NextNotification(ctx)
			if err != nil {
				log.Printf("session: notification poll failed: %v", err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if n != nil {
				f.Push(n)
			}
		}
	}
}

// Close releases the sounder. Always called on teardown.
func (f *NotificationFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sounder.Pause()
	f.sounder.Release()
	f.sound = SoundUnstarted
}
