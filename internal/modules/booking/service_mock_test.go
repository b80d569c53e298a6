package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homestay/internal/domain"
	"homestay/internal/modules/hold"
	"homestay/internal/modules/pricing"
	"homestay/internal/repository"
	"homestay/internal/storetest"
)

type mockHoldManager struct {
	mock.Mock
}

func (m *mockHoldManager) ReserveTx(ctx context.Context, tx *repository.Store, tenantID string, req hold.ReserveRequest) (*domain.Hold, error) {
	args := m.Called(ctx, tx, tenantID, req)
	if h, ok := args.Get(0).(*domain.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldManager) LiveTx(ctx context.Context, tx *repository.Store, tenantID, token string) (*domain.Hold, error) {
	args := m.Called(ctx, tx, tenantID, token)
	if h, ok := args.Get(0).(*domain.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldManager) ConvertTx(ctx context.Context, tx *repository.Store, tenantID, token string) (*domain.Hold, error) {
	args := m.Called(ctx, tx, tenantID, token)
	if h, ok := args.Get(0).(*domain.Hold); ok {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHoldManager) ReleaseTx(ctx context.Context, tx *repository.Store, tenantID, token string) (bool, error) {
	args := m.Called(ctx, tx, tenantID, token)
	return args.Bool(0), args.Error(1)
}

type mockPricer struct {
	mock.Mock
}

func (m *mockPricer) Price(ctx context.Context, tenantID string, req pricing.PriceRequest) (*pricing.Quote, error) {
	args := m.Called(ctx, tenantID, req)
	if q, ok := args.Get(0).(*pricing.Quote); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockedService struct {
	svc    *Service
	holds  *mockHoldManager
	prices *mockPricer
	events *recordingPublisher
	store  *repository.Store
	fx     storetest.Fixture
}

func newMockedService(t *testing.T) *mockedService {
	t.Helper()
	store := storetest.Open(t)
	fx := storetest.Seed(t, store, storetest.FixtureOptions{DefaultBasePrice: 5000})
	m := &mockedService{
		holds:  new(mockHoldManager),
		prices: new(mockPricer),
		events: &recordingPublisher{},
		store:  store,
		fx:     fx,
	}
	m.svc = NewService(store, m.holds, m.prices, m.events, Config{})
	return m
}

func (m *mockedService) request() CreateRequest {
	return CreateRequest{
		PropertyID:  m.fx.Property.ID,
		RoomTypeID:  m.fx.RoomType.ID,
		Range:       domain.DateRange{Start: june1, End: june1.AddDays(2)},
		Units:       1,
		GuestsCount: 2,
		Source:      "DIRECT",
	}
}

func (m *mockedService) bookingCount(t *testing.T) int64 {
	t.Helper()
	_, total, err := m.svc.List(context.Background(), m.fx.TenantID, domain.BookingFilter{})
	require.NoError(t, err)
	return total
}

func TestCreateSkipsReservationWhenPricingFails(t *testing.T) {
	m := newMockedService(t)
	req := m.request()
	m.prices.On("Price", mock.Anything, m.fx.TenantID, mock.AnythingOfType("pricing.PriceRequest")).
		Return(nil, &domain.NoRatePlanError{PropertyID: req.PropertyID, RoomTypeID: req.RoomTypeID, Nights: 2})

	_, err := m.svc.Create(context.Background(), m.fx.TenantID, req)

	var noPlan *domain.NoRatePlanError
	require.ErrorAs(t, err, &noPlan)
	m.prices.AssertExpectations(t)
	m.holds.AssertNotCalled(t, "ReserveTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, m.bookingCount(t))
	assert.Empty(t, m.events.bookingTypes())
}

func TestCreateReservesForSourceChannel(t *testing.T) {
	m := newMockedService(t)
	req := m.request()
	req.Units = 2
	req.GuestsCount = 3

	m.prices.On("Price", mock.Anything, m.fx.TenantID, mock.MatchedBy(func(p pricing.PriceRequest) bool {
		return p.Units == 2 && p.Occupancy == 2 && p.Range.Equal(req.Range)
	})).Return(&pricing.Quote{
		Currency: "NPR",
		Units:    2,
		Nights: []pricing.NightPrice{
			{Date: june1, Amount: 5000},
			{Date: june1.AddDays(1), Amount: 5500},
		},
		Total: 21000,
	}, nil)

	token := uuid.NewString()
	m.holds.On("ReserveTx", mock.Anything, mock.Anything, m.fx.TenantID, hold.ReserveRequest{
		RoomTypeID: req.RoomTypeID,
		Range:      req.Range,
		Quantity:   2,
		Channel:    "DIRECT",
	}).Return(&domain.Hold{
		Token:      token,
		TenantID:   m.fx.TenantID,
		RoomTypeID: req.RoomTypeID,
		Channel:    "DIRECT",
		StartDate:  req.Range.Start,
		EndDate:    req.Range.End,
		Quantity:   2,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(15 * time.Minute),
	}, nil)

	b, err := m.svc.Create(context.Background(), m.fx.TenantID, req)
	require.NoError(t, err)

	assert.Equal(t, token, b.HoldToken)
	assert.Equal(t, 21000.0, b.TotalAmount)
	require.Len(t, b.Items, 2)
	assert.Equal(t, 11000.0, b.Items[1].TotalPrice)
	assert.Equal(t, []string{domain.EventBookingCreated}, m.events.bookingTypes())
	m.prices.AssertExpectations(t)
	m.holds.AssertExpectations(t)
}

func TestCreatePersistsNothingWhenCapacityRefused(t *testing.T) {
	m := newMockedService(t)
	req := m.request()
	m.prices.On("Price", mock.Anything, m.fx.TenantID, mock.Anything).
		Return(&pricing.Quote{Currency: "NPR", Units: 1, Total: 10000}, nil)
	m.holds.On("ReserveTx", mock.Anything, mock.Anything, m.fx.TenantID, mock.Anything).
		Return(nil, &domain.CapacityError{Date: june1, Requested: 1, Remaining: 0, Shortfall: 1})

	_, err := m.svc.Create(context.Background(), m.fx.TenantID, req)

	var capErr *domain.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, june1, capErr.Date)
	m.holds.AssertNumberOfCalls(t, "ReserveTx", 1)
	assert.Zero(t, m.bookingCount(t))
	assert.Empty(t, m.events.bookingTypes())
}
