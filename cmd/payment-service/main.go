package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"bookingsaga/internal/config"
	"bookingsaga/internal/database"
	"bookingsaga/internal/handler"
	"bookingsaga/internal/payment"
	"bookingsaga/internal/repository"
	"bookingsaga/internal/router"
)

func main() {
	cfg := config.LoadPayment()

	db, err := database.Open(cfg.Base)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	payments := repository.NewPaymentRepo(db)
	ledger := repository.NewIdempotencyRepo(db)
	ctx := context.Background()
	if err := payments.InitSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	if err := ledger.InitSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	service := payment.NewService(payments, ledger, cfg.FailureRate, cfg.InsufficientRate, cfg.Delay)

	e := echo.New()
	router.RegisterPayment(e, handler.NewPaymentHandler(service))

	addr := ":" + cfg.Port
	log.Printf("payment-service listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
