package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/modules/agents"
	"courier-dispatch/internal/modules/dispatch"
	"courier-dispatch/internal/modules/orders"
	"courier-dispatch/internal/platform/database"
	"courier-dispatch/internal/platform/messaging"
	"courier-dispatch/pkg/notify"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer pool.Close()

	mq, err := messaging.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("rabbitmq connect error: %v", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		log.Fatalf("rabbitmq topology error: %v", err)
	}

	mailer, err := notify.NewOTPMailer(ctx, cfg.AWSRegion, cfg.OTPFromAddress)
	if err != nil {
		log.Fatalf("mailer setup error: %v", err)
	}

	agentService := agents.NewService(agents.NewRepository(pool))
	orderService := orders.NewService(orders.NewRepository(pool), mailer)
	dispatchService := dispatch.NewService(dispatch.NewRepository(pool), mq)

	// Feed assignment events into the per-agent queues.
	deliveries, err := mq.Consume(messaging.AssignedQueue, "dispatch-api")
	if err != nil {
		log.Fatalf("rabbitmq consume error: %v", err)
	}
	go dispatch.NewConsumer(dispatchService).Run(ctx, deliveries)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	g := e.Group("/api/delivery")
	g.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
	}))
	g.Use(extractAgentID)

	agents.NewHandler(agentService).RegisterRoutes(g)
	orders.NewHandler(orderService).RegisterRoutes(g)
	dispatch.NewHandler(dispatchService).RegisterRoutes(g)

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("shutdown signal received, draining...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}

// extractAgentID copies the JWT subject claim into the echo context under the
// key the handlers read.
func extractAgentID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
		}
		c.Set("agentID", sub)
		return next(c)
	}
}
