package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sourcegraph/conc"

	"github.com/courtshare/courtshare/internal/config"
	"github.com/courtshare/courtshare/internal/database"
	"github.com/courtshare/courtshare/internal/handler"
	"github.com/courtshare/courtshare/internal/middleware"
	"github.com/courtshare/courtshare/internal/queue"
	"github.com/courtshare/courtshare/internal/router"
	"github.com/courtshare/courtshare/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	settings, err := service.SettingsFromConfig(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Printf("redis unavailable at startup; cache disabled, rate limiting is per process")
	} else {
		defer rdb.Close()
	}

	var wg conc.WaitGroup
	var events queue.Publisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		pub := queue.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.Buffer)
		defer pub.Close()
		events = pub

		activity := queue.NewActivityLog(cfg.Events.ActivityLog)
		defer activity.Close()
		consumer := queue.NewActivityConsumer(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.Queue, activity)
		wg.Go(func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("activity consumer stopped: %v", err)
			}
		})
	}

	svc := service.New(service.Deps{
		Store:    service.NewStore(db),
		Settings: settings,
		Events:   events,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e, db)
	v1 := router.NewV1(e, cfg.JWT.Secret, middleware.NewTokenBucket(cfg.RateLimit, rdb))
	access := handler.NewAccessHandler(svc.Access)
	router.RegisterCourts(v1, handler.NewCourtHandler(svc.Availability), middleware.NewRedisCache(cfg.Cache, rdb))
	router.RegisterReservations(v1,
		handler.NewReservationHandler(svc.Reservations, svc.Participants),
		access,
		handler.NewMessageHandler(svc.Messages),
	)
	router.RegisterAccess(v1, access)

	addr := ":" + cfg.Port
	wg.Go(func() {
		log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DB.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: %v", err)
			stop()
		}
	})

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	wg.Wait()
	log.Printf("bye")
}
