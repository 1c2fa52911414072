package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"bookingsaga/internal/booking"
	"bookingsaga/internal/client"
	"bookingsaga/internal/config"
	"bookingsaga/internal/database"
	"bookingsaga/internal/handler"
	"bookingsaga/internal/queue"
	"bookingsaga/internal/repository"
	"bookingsaga/internal/router"
	"bookingsaga/internal/saga"
)

func main() {
	cfg := config.LoadBooking()

	db, err := database.Open(cfg.Base)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	sagaRepo := repository.NewSagaRepo(db)
	if err := sagaRepo.InitSchema(context.Background()); err != nil {
		log.Fatalf("schema: %v", err)
	}

	hotelClient := client.NewHotelClient(cfg.HotelServiceURL, cfg.CommandTimeout)
	paymentClient := client.NewPaymentClient(cfg.PaymentServiceURL, cfg.CommandTimeout)
	publisher := queue.NewPublisher()

	orchestrator := saga.NewOrchestrator(sagaRepo, hotelClient, paymentClient, publisher,
		cfg.SagaMaxRetries, cfg.SagaTimeout)

	sweeper := saga.NewSweeper(sagaRepo, orchestrator, cfg.SweepExpiredEvery, cfg.SweepRetryEvery)
	go sweeper.Start(context.Background())

	// Audit consumer logs every terminal saga event; it reconnects on its
	// own and never takes the service down.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, status cache and rate limiting disabled")
	}
	bookingService := booking.NewService(orchestrator, sagaRepo, rdb, cfg.StatusCacheTTL)

	e := echo.New()
	router.RegisterBooking(e, handler.NewBookingHandler(bookingService), cfg.RateLimit, rdb)

	addr := ":" + cfg.Port
	log.Printf("booking-service listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
