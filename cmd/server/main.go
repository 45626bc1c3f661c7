package main // Entry point package

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/kunugida/reservation-queue/internal/cache"
	"github.com/kunugida/reservation-queue/internal/config"
	"github.com/kunugida/reservation-queue/internal/database"
	"github.com/kunugida/reservation-queue/internal/handler"
	"github.com/kunugida/reservation-queue/internal/model"
	"github.com/kunugida/reservation-queue/internal/queue"
	"github.com/kunugida/reservation-queue/internal/repository"
	"github.com/kunugida/reservation-queue/internal/router"
	"github.com/kunugida/reservation-queue/internal/scheduler"
	"github.com/kunugida/reservation-queue/internal/service"
)

func main() {
	cfg := config.Load()

	if err := model.ValidateCategoryTable(); err != nil {
		log.Fatalf("category table: %v", err)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; the settings cache falls back to process memory.
	rdb := config.NewRedisClient()

	store := repository.NewStore(
		repository.NewReservationRepo(db),
		repository.NewGroupRepo(db),
		repository.NewSettingsRepo(db),
	)
	settings := cache.NewSettingsCache(store, rdb, 0)

	acceptPolicy, err := scheduler.ParseAcceptPolicy(cfg.AcceptPolicy)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	purgePolicy, err := scheduler.ParsePurgePolicy(cfg.PurgePolicy)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sched := scheduler.New(store, settings, service.NewQueuePublisher(), scheduler.Config{
		AutoStopThreshold: cfg.AutoStopThreshold,
		AbsenceGrace:      cfg.AbsenceGrace,
		RolloverDelay:     cfg.RolloverDelay,
		AcceptPolicy:      acceptPolicy,
		PurgePolicy:       purgePolicy,
	})

	// Background monitors: absentee purge and the admission controller.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.NewAbsenceMonitor(sched, cfg.AbsenceInterval).Run(ctx)
	go scheduler.NewAutoStopMonitor(sched, cfg.AutoStopInterval).Run(ctx)

	// Call-log consumer runs its own reconnect loop for the whole process
	// lifetime.
	go func() {
		if err := queue.StartCallLogConsumer(); err != nil {
			log.Printf("call-log consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, handler.NewAuthHandler(cfg))
	router.RegisterAdmin(e, cfg.JWTSecret,
		handler.NewQueueHandler(sched),
		handler.NewReservationHandler(sched, store),
		handler.NewSettingsHandler(settings),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
