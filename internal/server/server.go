// Package server assembles the services, event sinks and HTTP router.
package server

import (
	"context"
	"net/http"
	"time"

	"homestay/internal/config"
	"homestay/internal/middleware"
	"homestay/internal/modules/audit"
	"homestay/internal/modules/booking"
	"homestay/internal/modules/hold"
	"homestay/internal/modules/inventory"
	"homestay/internal/modules/pricing"
	jwtsvc "homestay/internal/pkg/jwt"
	"homestay/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type App struct {
	Router     *gin.Engine
	Store      *repository.Store
	JWT        *jwtsvc.Service
	Hub        *audit.Hub
	Dispatcher *audit.Dispatcher
	Inventory  *inventory.Service
	Holds      *hold.Service
	Pricing    *pricing.Service
	Bookings   *booking.Service

	sweepInterval  time.Duration
	idempotencyTTL time.Duration
	corsOrigins    []string
}

// New wires every module over db. pub may be nil when no redis is configured.
func New(cfg *config.Config, db *gorm.DB, pub audit.Publisher) *App {
	store := repository.NewStore(db)
	hub := audit.NewHub()

	sinks := []audit.Sink{audit.NewDBSink(store.Audit), audit.NewHubSink(hub)}
	if pub != nil {
		sinks = append(sinks, audit.NewRedisSink(pub, cfg.EventsChannel))
	}
	dispatcher := audit.NewDispatcher(cfg.EventBufferSize, sinks...)

	inventorySvc := inventory.NewService(store, dispatcher, inventory.Config{
		DefaultTimezone: cfg.Timezone,
		DefaultCurrency: cfg.DefaultCurrency,
	})
	holdSvc := hold.NewService(store, dispatcher, hold.Config{
		TTL:        cfg.HoldTTL,
		SweepBatch: cfg.SweepBatchSize,
	})
	pricingSvc := pricing.NewService(store, cfg.DefaultCurrency)
	bookingSvc := booking.NewService(store, holdSvc, pricingSvc, dispatcher, booking.Config{
		Commissions: cfg.ChannelCommissions,
		Location:    cfg.Location,
		SweepBatch:  cfg.SweepBatchSize,
	})

	app := &App{
		Store:          store,
		JWT:            jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Hub:            hub,
		Dispatcher:     dispatcher,
		Inventory:      inventorySvc,
		Holds:          holdSvc,
		Pricing:        pricingSvc,
		Bookings:       bookingSvc,
		sweepInterval:  cfg.SweepInterval,
		idempotencyTTL: cfg.IdempotencyTTL,
		corsOrigins:    cfg.CORSAllowedOrigins,
	}
	app.Router = app.routes()
	return app
}

func (a *App) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.CORS(a.corsOrigins))
	r.Use(middleware.ErrorLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Authenticate(a.JWT, a.Store.APIKeys))
	v1.Use(middleware.Idempotency(a.Store.Idempotency))
	{
		inventory.NewHandler(a.Inventory).RegisterRoutes(v1)
		hold.NewHandler(a.Holds).RegisterRoutes(v1)
		pricing.NewHandler(a.Pricing).RegisterRoutes(v1)
		booking.NewHandler(a.Bookings).RegisterRoutes(v1)
		audit.NewHandler(a.Hub, a.Store.Audit).RegisterRoutes(v1)
	}
	return r
}

// Sweeper expires lapsed pending bookings before reclaiming hold rows, so
// their holds are gone by the time the hold sweep looks. Stale idempotency
// records go last.
func (a *App) Sweeper() *hold.Sweeper {
	return hold.NewSweeper(a.sweepInterval,
		hold.SweepStep{Name: "pending_bookings", Run: a.Bookings.ExpirePending},
		hold.SweepStep{Name: "expired_holds", Run: a.Holds.SweepExpired},
		hold.SweepStep{Name: "idempotency_keys", Run: a.pruneIdempotencyKeys},
	)
}

func (a *App) pruneIdempotencyKeys(ctx context.Context) (int, error) {
	return a.Store.Idempotency.DeleteBefore(ctx, time.Now().Add(-a.idempotencyTTL))
}

func (a *App) Start() {
	a.Dispatcher.Start()
}

// Shutdown drains queued events and closes live feeds.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Dispatcher.Close(ctx)
	a.Hub.Close()
	return err
}
