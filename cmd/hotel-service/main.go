package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"bookingsaga/internal/config"
	"bookingsaga/internal/database"
	"bookingsaga/internal/handler"
	"bookingsaga/internal/hotel"
	"bookingsaga/internal/repository"
	"bookingsaga/internal/router"
)

func main() {
	cfg := config.LoadHotel()

	db, err := database.Open(cfg.Base)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	reservations := repository.NewReservationRepo(db)
	ledger := repository.NewIdempotencyRepo(db)
	ctx := context.Background()
	if err := reservations.InitSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	if err := ledger.InitSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	service := hotel.NewService(reservations, ledger, cfg.FailureRate, cfg.Delay)

	e := echo.New()
	router.RegisterHotel(e, handler.NewHotelHandler(service))

	addr := ":" + cfg.Port
	log.Printf("hotel-service listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
