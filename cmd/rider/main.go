// Command rider runs the delivery agent workflow headless against a running
// API server. Used for smoke-testing dispatch end to end: it goes online,
// waits for an offer, accepts the first one, and drives the trip from the
// terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courier-dispatch/internal/models"
	"courier-dispatch/internal/session"
	"courier-dispatch/pkg/routing"
)

func main() {
	baseURL := flag.String("api", "http://localhost:8080", "API server base URL")
	token := flag.String("token", "", "agent JWT")
	mapsKey := flag.String("maps-key", os.Getenv("MAPS_API_KEY"), "Google Maps API key")
	lat := flag.Float64("lat", 22.70, "simulated device latitude")
	lng := flag.Float64("lng", 75.86, "simulated device longitude")
	flag.Parse()
	if *token == "" {
		log.Fatal("missing -token")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	api := session.NewHTTPAPI(*baseURL, *token)

	status := session.NewStatusChannel(api)
	if err := status.Refresh(ctx); err != nil {
		log.Printf("profile refresh failed, assuming offline: %v", err)
	}
	if !status.IsOnline() {
		if err := status.Set(ctx, true); err != nil {
			log.Fatalf("could not go online: %v", err)
		}
	}
	log.Println("agent online, waiting for offers")

	feed := session.NewNotificationFeed(api, consoleSounder{})
	defer feed.Close()
	go feed.Run(ctx, 3*time.Second)

	orderID, err := acceptFirstOffer(ctx, feed)
	if err != nil {
		log.Fatalf("no offer accepted: %v", err)
	}
	log.Printf("accepted order %s", orderID)

	trip := session.NewTripSession(api,
		fixedLocator{models.GeoPoint{Latitude: *lat, Longitude: *lng}},
		routing.NewClient(*mapsKey), nil)
	if err := trip.Start(ctx, orderID); err != nil {
		log.Fatalf("trip start failed: %v", err)
	}
	go trip.Run(ctx)

	driveTrip(ctx, trip)
}

// acceptFirstOffer polls the feed until an offer shows up, then accepts it.
func acceptFirstOffer(ctx context.Context, feed *session.NotificationFeed) (string, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			n := feed.Current()
			if n == nil {
				continue
			}
			log.Printf("offer: order %s for %s, total %.2f", n.OrderNumber, n.CustomerName, n.Total)
			result, err := feed.Accept(ctx, n.OrderID)
			if err != nil {
				if errors.Is(err, session.ErrBusy) || errors.Is(err, session.ErrNotCurrent) {
					continue
				}
				return "", err
			}
			if !result.Success {
				log.Printf("accept refused: %s", result.Message)
				continue
			}
			return n.OrderID, nil
		}
	}
}

// driveTrip reads one command per line: "next" to advance the status, "otp"
// to send the delivery code, or a 6-digit code to verify it.
func driveTrip(ctx context.Context, trip *session.TripSession) {
	scanner := bufio.NewScanner(os.Stdin)
	for !trip.Terminal() {
		printTrip(trip)
		fmt.Print("> ")
		if !scanner.Scan() || ctx.Err() != nil {
			return
		}
		var err error
		switch cmd := strings.TrimSpace(scanner.Text()); cmd {
		case "next":
			err = trip.Advance(ctx)
		case "otp":
			err = trip.SendOTP(ctx)
		default:
			err = trip.VerifyOTP(ctx, cmd)
		}
		if err != nil {
			log.Printf("command failed: %v", err)
		}
	}
	log.Printf("trip finished with status %q", trip.Order().Status)
}

func printTrip(trip *session.TripSession) {
	order := trip.Order()
	if order == nil {
		return
	}
	line := fmt.Sprintf("order %s [%s]", order.OrderNumber, order.Status)
	if info := trip.RouteInfo(); info != nil {
		line += fmt.Sprintf(" %s away, about %s", info.Distance, info.Duration)
	}
	log.Println(line)
}

// consoleSounder satisfies session.AlertSounder without an audio device.
type consoleSounder struct{}

func (consoleSounder) Play() error { log.Println("\a* new order alert *"); return nil }
func (consoleSounder) Pause()      {}
func (consoleSounder) Reset()      {}
func (consoleSounder) Release()    {}

// fixedLocator reports a fixed position, standing in for device GPS.
type fixedLocator struct {
	pos models.GeoPoint
}

func (l fixedLocator) Current(ctx context.Context) (models.GeoPoint, error) {
	return l.pos, nil
}
