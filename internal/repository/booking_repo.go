package repository

import (
	"context"
	"errors"
	"time"

	"homestay/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID                 string               `gorm:"column:id;primaryKey;size:36"`
	TenantID           string               `gorm:"column:tenant_id;size:36;index;not null"`
	ExternalID         *string              `gorm:"column:external_id;size:128"`
	PropertyID         string               `gorm:"column:property_id;size:36;index;not null"`
	RoomTypeID         string               `gorm:"column:room_type_id;size:36;index:idx_bookings_room_type_stay;not null"`
	RoomID             *string              `gorm:"column:room_id;size:36;index"`
	Source             string               `gorm:"column:source;size:64;not null"`
	CheckIn            domain.Date          `gorm:"column:checkin;index:idx_bookings_room_type_stay;not null"`
	CheckOut           domain.Date          `gorm:"column:checkout;index:idx_bookings_room_type_stay;not null"`
	Nights             int                  `gorm:"column:nights;not null"`
	Units              int                  `gorm:"column:units;not null"`
	GuestsCount        int                  `gorm:"column:guests_count;not null"`
	Status             domain.BookingStatus `gorm:"column:status;size:16;index;not null"`
	PaymentStatus      string               `gorm:"column:payment_status;size:16;not null"`
	TotalAmount        float64              `gorm:"column:total_amount"`
	Currency           string               `gorm:"column:currency;size:3"`
	CommissionAmount   float64              `gorm:"column:commission_amount"`
	HoldToken          *string              `gorm:"column:hold_token;size:36;uniqueIndex"`
	RatePlanID         *string              `gorm:"column:rate_plan_id;size:36"`
	CreatedByType      string               `gorm:"column:created_by_type;size:32"`
	CreatedByID        *string              `gorm:"column:created_by_id;size:64"`
	CancellationReason *string              `gorm:"column:cancellation_reason;type:text"`
	CancelledAt        *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt          time.Time            `gorm:"column:created_at"`
	UpdatedAt          time.Time            `gorm:"column:updated_at"`

	Items  []bookingItemModel  `gorm:"foreignKey:BookingID"`
	Guests []bookingGuestModel `gorm:"foreignKey:BookingID"`
}

func (bookingModel) TableName() string { return "bookings" }

type bookingItemModel struct {
	ID          string  `gorm:"column:id;primaryKey;size:36"`
	BookingID   string  `gorm:"column:booking_id;size:36;index;not null"`
	Code        string  `gorm:"column:code;size:64"`
	Description string  `gorm:"column:description"`
	Quantity    int     `gorm:"column:quantity"`
	UnitPrice   float64 `gorm:"column:unit_price"`
	TotalPrice  float64 `gorm:"column:total_price"`
}

func (bookingItemModel) TableName() string { return "booking_items" }

type bookingGuestModel struct {
	ID          string `gorm:"column:id;primaryKey;size:36"`
	BookingID   string `gorm:"column:booking_id;size:36;index;not null"`
	Name        string `gorm:"column:name"`
	Email       string `gorm:"column:email"`
	Phone       string `gorm:"column:phone"`
	Nationality string `gorm:"column:nationality"`
	IsPrimary   bool   `gorm:"column:is_primary"`
}

func (bookingGuestModel) TableName() string { return "booking_guests" }

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func toDomainBooking(m bookingModel) *domain.Booking {
	b := &domain.Booking{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		ExternalID:         strVal(m.ExternalID),
		PropertyID:         m.PropertyID,
		RoomTypeID:         m.RoomTypeID,
		RoomID:             m.RoomID,
		Source:             m.Source,
		CheckIn:            m.CheckIn,
		CheckOut:           m.CheckOut,
		Nights:             m.Nights,
		Units:              m.Units,
		GuestsCount:        m.GuestsCount,
		Status:             m.Status,
		PaymentStatus:      domain.PaymentStatus(m.PaymentStatus),
		TotalAmount:        m.TotalAmount,
		Currency:           m.Currency,
		CommissionAmount:   m.CommissionAmount,
		HoldToken:          strVal(m.HoldToken),
		RatePlanID:         strVal(m.RatePlanID),
		CreatedByType:      m.CreatedByType,
		CreatedByID:        strVal(m.CreatedByID),
		CancellationReason: strVal(m.CancellationReason),
		CancelledAt:        m.CancelledAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	for _, it := range m.Items {
		b.Items = append(b.Items, domain.BookingItem{
			ID:          it.ID,
			BookingID:   it.BookingID,
			Code:        it.Code,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	for _, g := range m.Guests {
		b.Guests = append(b.Guests, domain.BookingGuest{
			ID:          g.ID,
			BookingID:   g.BookingID,
			Name:        g.Name,
			Email:       g.Email,
			Phone:       g.Phone,
			Nationality: g.Nationality,
			IsPrimary:   g.IsPrimary,
		})
	}
	return b
}

func toBookingModel(b *domain.Booking) bookingModel {
	m := bookingModel{
		ID:                 b.ID,
		TenantID:           b.TenantID,
		ExternalID:         strPtr(b.ExternalID),
		PropertyID:         b.PropertyID,
		RoomTypeID:         b.RoomTypeID,
		RoomID:             b.RoomID,
		Source:             b.Source,
		CheckIn:            b.CheckIn,
		CheckOut:           b.CheckOut,
		Nights:             b.Nights,
		Units:              b.Units,
		GuestsCount:        b.GuestsCount,
		Status:             b.Status,
		PaymentStatus:      string(b.PaymentStatus),
		TotalAmount:        b.TotalAmount,
		Currency:           b.Currency,
		CommissionAmount:   b.CommissionAmount,
		HoldToken:          strPtr(b.HoldToken),
		RatePlanID:         strPtr(b.RatePlanID),
		CreatedByType:      b.CreatedByType,
		CreatedByID:        strPtr(b.CreatedByID),
		CancellationReason: strPtr(b.CancellationReason),
		CancelledAt:        utcPtr(b.CancelledAt),
		CreatedAt:          utc(b.CreatedAt),
		UpdatedAt:          utc(b.UpdatedAt),
	}
	for _, it := range b.Items {
		if it.ID == "" {
			it.ID = newID()
		}
		m.Items = append(m.Items, bookingItemModel{
			ID:          it.ID,
			BookingID:   b.ID,
			Code:        it.Code,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	for _, g := range b.Guests {
		if g.ID == "" {
			g.ID = newID()
		}
		m.Guests = append(m.Guests, bookingGuestModel{
			ID:          g.ID,
			BookingID:   b.ID,
			Name:        g.Name,
			Email:       g.Email,
			Phone:       g.Phone,
			Nationality: g.Nationality,
			IsPrimary:   g.IsPrimary,
		})
	}
	return m
}

// Create inserts the booking together with its items and guests.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = newID()
	}
	m := toBookingModel(b)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	*b = *toDomainBooking(m)
	return nil
}

func (r *BookingRepository) Get(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	return r.get(r.db.WithContext(ctx), tenantID, id)
}

// GetForUpdate locks the booking row for the rest of the transaction.
func (r *BookingRepository) GetForUpdate(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *BookingRepository) get(q *gorm.DB, tenantID, id string) (*domain.Booking, error) {
	var m bookingModel
	err := q.Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("booking", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(q.Session(&gorm.Session{NewDB: true}), &m); err != nil {
		return nil, err
	}
	return toDomainBooking(m), nil
}

// GetByHoldToken finds the booking a hold was attached to.
func (r *BookingRepository) GetByHoldToken(ctx context.Context, tenantID, token string) (*domain.Booking, error) {
	q := r.db.WithContext(ctx)
	var m bookingModel
	err := q.Where("tenant_id = ? AND hold_token = ?", tenantID, token).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("booking for hold", token)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(q.Session(&gorm.Session{NewDB: true}), &m); err != nil {
		return nil, err
	}
	return toDomainBooking(m), nil
}

func (r *BookingRepository) loadChildren(q *gorm.DB, m *bookingModel) error {
	if err := q.Where("booking_id = ?", m.ID).Order("code ASC").Find(&m.Items).Error; err != nil {
		return err
	}
	return q.Where("booking_id = ?", m.ID).Order("is_primary DESC").Find(&m.Guests).Error
}

// UpdateState persists lifecycle and payment fields of b.
func (r *BookingRepository) UpdateState(ctx context.Context, b *domain.Booking) error {
	res := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("tenant_id = ? AND id = ?", b.TenantID, b.ID).
		Updates(map[string]any{
			"status":              b.Status,
			"payment_status":      string(b.PaymentStatus),
			"cancellation_reason": strPtr(b.CancellationReason),
			"cancelled_at":        utcPtr(b.CancelledAt),
			"updated_at":          utc(b.UpdatedAt),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("booking", b.ID)
	}
	return nil
}

// ListHoldingCapacity returns bookings of a room type in a consuming status
// whose stay intersects rng. Callers drop the ones already counted through a
// live hold.
func (r *BookingRepository) ListHoldingCapacity(ctx context.Context, tenantID, roomTypeID string, rng domain.DateRange) ([]domain.Booking, error) {
	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND room_type_id = ?", tenantID, roomTypeID).
		Where("status IN ?", domain.ConsumingStatuses()).
		Where("checkin < ? AND checkout > ?", rng.End, rng.Start).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}

// RoomTaken reports whether another active booking already occupies roomID
// on any night of rng.
func (r *BookingRepository) RoomTaken(ctx context.Context, tenantID, roomID string, rng domain.DateRange, excludeID string) (bool, error) {
	var cnt int64
	q := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("tenant_id = ? AND room_id = ?", tenantID, roomID).
		Where("status IN ?", domain.ActiveStatuses()).
		Where("checkin < ? AND checkout > ?", rng.End, rng.Start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *BookingRepository) ExistsForHold(ctx context.Context, tenantID, token string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("tenant_id = ? AND hold_token = ?", tenantID, token).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *BookingRepository) List(ctx context.Context, tenantID string, f domain.BookingFilter) ([]domain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&bookingModel{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RoomTypeID != "" {
		q = q.Where("room_type_id = ?", f.RoomTypeID)
	}
	if f.From != nil {
		q = q.Where("checkout > ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("checkin < ?", *f.To)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := paginate(f.Page, f.PerPage)
	var rows []bookingModel
	if err := q.Order("checkin ASC, created_at ASC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, total, nil
}

// ListPending scans PENDING bookings across tenants for the expiry sweeper.
func (r *BookingRepository) ListPending(ctx context.Context, limit int) ([]domain.Booking, error) {
	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.BookingPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out, nil
}
