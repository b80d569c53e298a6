package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"homestay/internal/config"
	"homestay/internal/database"
	"homestay/internal/domain"
	"homestay/internal/modules/inventory"
	"homestay/internal/modules/pricing"
	"homestay/internal/pkg/apikey"
	jwtsvc "homestay/internal/pkg/jwt"
	"homestay/internal/repository"
)

func main() {
	tenantID := flag.String("tenant", "demo-tenant", "tenant id to seed")
	days := flag.Int("days", 90, "nights of inventory to open from today")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	ctx := context.Background()
	store := repository.NewStore(db)
	inv := inventory.NewService(store, nil, inventory.Config{
		DefaultTimezone: cfg.Timezone,
		DefaultCurrency: cfg.DefaultCurrency,
	})
	rates := pricing.NewService(store, cfg.DefaultCurrency)

	// ================== PROPERTY ==================
	log.Println("Creating property...")
	prop, err := inv.CreateProperty(ctx, *tenantID, inventory.CreatePropertyRequest{
		Name:     "Pokhara Lake View",
		Timezone: cfg.Timezone,
	})
	if err != nil {
		log.Fatalf("create property: %v", err)
	}

	// ================== ROOM TYPES & ROOMS ==================
	log.Println("Creating room types and rooms...")
	types := []struct {
		name      string
		occupancy int
		price     float64
		units     int
	}{
		{"Deluxe Double", 2, 5000, 4},
		{"Family Suite", 4, 9000, 2},
		{"Dorm Bed", 1, 1200, 8},
	}

	start := domain.DateIn(time.Now(), cfg.Location)
	stay := domain.DateRange{Start: start, End: start.AddDays(*days)}
	for i, t := range types {
		rt, err := inv.CreateRoomType(ctx, *tenantID, inventory.CreateRoomTypeRequest{
			PropertyID:       prop.ID,
			Name:             t.name,
			MaxOccupancy:     t.occupancy,
			DefaultBasePrice: t.price,
		})
		if err != nil {
			log.Fatalf("create room type %s: %v", t.name, err)
		}
		for n := 1; n <= t.units; n++ {
			if _, err := inv.CreateRoom(ctx, *tenantID, inventory.CreateRoomRequest{
				RoomTypeID: rt.ID,
				RoomNumber: fmt.Sprintf("%d%02d", i+1, n),
			}); err != nil {
				log.Fatalf("create room: %v", err)
			}
		}
		if _, err := inv.UpsertRange(ctx, *tenantID, rt.ID, stay, domain.Capacity{Available: t.units}); err != nil {
			log.Fatalf("open inventory for %s: %v", t.name, err)
		}
		log.Printf("room type %s slug=%s units=%d", rt.Name, rt.Slug, t.units)
	}

	// ================== RATE PLANS ==================
	log.Println("Creating rate plan...")
	plan, err := rates.CreatePlan(ctx, *tenantID, pricing.CreatePlanRequest{
		PropertyID: prop.ID,
		Name:       "Standard",
		BasePrice:  5000,
	})
	if err != nil {
		log.Fatalf("create rate plan: %v", err)
	}
	if _, err := rates.AddRule(ctx, *tenantID, plan.ID, domain.RatePlanRule{
		Weekdays:      []int{5, 6},
		ModifierType:  domain.ModifierPercent,
		ModifierValue: 20,
		Priority:      domain.DefaultRulePriority,
	}); err != nil {
		log.Fatalf("add weekend rule: %v", err)
	}

	// ================== ACCESS ==================
	issued, err := apikey.Generate()
	if err != nil {
		log.Fatalf("generate api key: %v", err)
	}
	if err := store.APIKeys.Create(ctx, &domain.TenantAPIKey{
		ID:       issued.ID,
		TenantID: *tenantID,
		Name:     "seed channel manager",
		KeyHash:  issued.Hash,
		Scopes:   []string{"inventory", "bookings"},
	}); err != nil {
		log.Fatalf("store api key: %v", err)
	}

	token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(*tenantID, "seed-manager", "manager")
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	log.Printf("seed completed tenant=%s property=%s nights=%d", *tenantID, prop.ID, *days)
	log.Printf("X-Api-Key: %s", issued.Plain())
	log.Printf("Bearer token: %s", token)
}
