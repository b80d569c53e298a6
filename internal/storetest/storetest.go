// Package storetest opens throwaway sqlite-backed stores and seeds the
// reference rows most service tests need.
package storetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"homestay/internal/database"
	"homestay/internal/domain"
	"homestay/internal/repository"
)

var seq atomic.Int64

// PostgresEnv names the DSN of a scratch PostgreSQL database. Tests that
// need real row locks skip when it is unset.
const PostgresEnv = "HOMESTAY_TEST_DATABASE_URL"

// Open returns a Store over a fresh in-memory database with a single
// connection, so every transaction sees the same in-memory file.
func Open(t *testing.T) *repository.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:homestay_%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	return open(t, dsn, database.Options{Quiet: true, MaxOpenConns: 1})
}

// OpenFile returns a Store over a sqlite file in a temp dir with a pool of
// conns connections. Transactions run on separate connections and take the
// write lock at BEGIN, waiting on busy_timeout instead of failing.
func OpenFile(t *testing.T, conns int) *repository.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "homestay.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	return open(t, dsn, database.Options{Quiet: true, MaxOpenConns: conns})
}

// OpenPostgres returns a Store over the database named by PostgresEnv, or
// skips the test. Rows are left behind; fixtures use fresh tenant ids.
func OpenPostgres(t *testing.T) *repository.Store {
	t.Helper()
	dsn := os.Getenv(PostgresEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresEnv)
	}
	return open(t, dsn, database.Options{Quiet: true, MaxOpenConns: 16})
}

func open(t *testing.T, dsn string, opts database.Options) *repository.Store {
	t.Helper()
	db, err := database.ConnectWith(dsn, opts)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() { closeDB(db) })
	return repository.NewStore(db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Fixture is one tenant with a property and a room type.
type Fixture struct {
	TenantID string
	Property *domain.Property
	RoomType *domain.RoomType
}

type FixtureOptions struct {
	MaxOccupancy     int
	DefaultBasePrice float64
	Currency         string
	Timezone         string
}

func Seed(t *testing.T, store *repository.Store, opts FixtureOptions) Fixture {
	t.Helper()
	ctx := context.Background()
	if opts.MaxOccupancy == 0 {
		opts.MaxOccupancy = 2
	}
	if opts.Currency == "" {
		opts.Currency = domain.DefaultCurrency
	}
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}

	tenantID := fmt.Sprintf("tenant-%d-%s", seq.Add(1), uuid.NewString()[:8])
	prop := &domain.Property{TenantID: tenantID, Name: "Lakeside Homestay", Slug: "lakeside-homestay", Timezone: opts.Timezone, Currency: opts.Currency}
	if err := store.Properties.Create(ctx, prop); err != nil {
		t.Fatalf("create property: %v", err)
	}
	rt := &domain.RoomType{
		TenantID:         tenantID,
		PropertyID:       prop.ID,
		Name:             "Deluxe Double",
		Slug:             "deluxe-double",
		MaxOccupancy:     opts.MaxOccupancy,
		DefaultBasePrice: opts.DefaultBasePrice,
		Currency:         opts.Currency,
	}
	if err := store.RoomTypes.Create(ctx, rt); err != nil {
		t.Fatalf("create room type: %v", err)
	}
	return Fixture{TenantID: tenantID, Property: prop, RoomType: rt}
}

// SetCapacity writes the same counts for every night of [from, from+nights).
func SetCapacity(t *testing.T, store *repository.Store, f Fixture, from domain.Date, nights, available, blocked int) {
	t.Helper()
	for i := 0; i < nights; i++ {
		day := &domain.CalendarDay{
			TenantID:   f.TenantID,
			RoomTypeID: f.RoomType.ID,
			Date:       from.AddDays(i),
			Capacity:   domain.Capacity{Available: available, Blocked: blocked},
		}
		if err := store.Calendar.Upsert(context.Background(), day); err != nil {
			t.Fatalf("upsert capacity: %v", err)
		}
	}
}

// Clock is a settable time source for services under test.
type Clock struct {
	now atomic.Int64
}

func NewClock(t time.Time) *Clock {
	c := &Clock{}
	c.Set(t)
	return c
}

func (c *Clock) Now() time.Time          { return time.Unix(0, c.now.Load()).UTC() }
func (c *Clock) Set(t time.Time)         { c.now.Store(t.UnixNano()) }
func (c *Clock) Advance(d time.Duration) { c.now.Add(int64(d)) }
