package repository

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	maxTxAttempts = 3
	txBaseBackoff = 25 * time.Millisecond
)

// Store groups the tenant-scoped repositories over one database handle. A
// Store obtained inside InTx routes every repository through the same
// transaction.
type Store struct {
	db   *gorm.DB
	inTx bool

	Properties  *PropertyRepository
	RoomTypes   *RoomTypeRepository
	Rooms       *RoomRepository
	Calendar    *CalendarRepository
	Channels    *ChannelRepository
	Holds       *HoldRepository
	Bookings    *BookingRepository
	RatePlans   *RatePlanRepository
	Audit       *AuditRepository
	APIKeys     *APIKeyRepository
	Idempotency *IdempotencyRepository
}

func NewStore(db *gorm.DB) *Store {
	return newStore(db, false)
}

func newStore(db *gorm.DB, inTx bool) *Store {
	return &Store{
		db:          db,
		inTx:        inTx,
		Properties:  NewPropertyRepository(db),
		RoomTypes:   NewRoomTypeRepository(db),
		Rooms:       NewRoomRepository(db),
		Calendar:    NewCalendarRepository(db),
		Channels:    NewChannelRepository(db),
		Holds:       NewHoldRepository(db),
		Bookings:    NewBookingRepository(db),
		RatePlans:   NewRatePlanRepository(db),
		Audit:       NewAuditRepository(db),
		APIKeys:     NewAPIKeyRepository(db),
		Idempotency: NewIdempotencyRepository(db),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// InTx runs fn in a single database transaction. Serialization failures,
// deadlocks and busy sqlite files are retried with backoff; any other error
// rolls back and is returned unchanged. Calling InTx on a transactional Store
// reuses the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newStore(tx, true))
		})
		if err == nil || !isRetryable(err) || attempt == maxTxAttempts {
			return err
		}

		wait := txBaseBackoff << (attempt - 1)
		log.Printf("tx_retry attempt=%d wait=%s error=%q", attempt, wait, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}

// IsUniqueConstraintError exposes unique-violation detection to services that
// map it onto domain errors.
func IsUniqueConstraintError(err error) bool {
	return err != nil && isUniqueConstraintError(err)
}

func newID() string {
	return uuid.NewString()
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := utc(*t)
	return &v
}

// Pagination mirrors the page/per_page query convention of the HTTP layer.
func paginate(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
