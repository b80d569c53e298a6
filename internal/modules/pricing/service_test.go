package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/domain"
	"homestay/internal/storetest"
)

func newService(t *testing.T, opts storetest.FixtureOptions) (*Service, storetest.Fixture, *storetest.Clock) {
	t.Helper()
	store := storetest.Open(t)
	fx := storetest.Seed(t, store, opts)
	clock := storetest.NewClock(t0)
	return NewService(store, "NPR").WithClock(clock.Now), fx, clock
}

func priceReq(fx storetest.Fixture, nights int) PriceRequest {
	return PriceRequest{
		PropertyID: fx.Property.ID,
		RoomTypeID: fx.RoomType.ID,
		Range:      stay(june1, nights),
		Occupancy:  2,
	}
}

func TestPriceFallsBackToRoomTypeBasePrice(t *testing.T) {
	svc, fx, _ := newService(t, storetest.FixtureOptions{DefaultBasePrice: 5000})

	q, err := svc.Price(context.Background(), fx.TenantID, priceReq(fx, 2))
	require.NoError(t, err)
	assert.Equal(t, 5000.0, q.Nights[0].Amount)
	assert.Equal(t, 10000.0, q.Total)
	assert.Equal(t, "NPR", q.Currency)
	assert.Empty(t, q.PlanID)
}

func TestPriceWithoutAnyPlan(t *testing.T) {
	svc, fx, _ := newService(t, storetest.FixtureOptions{})

	_, err := svc.Price(context.Background(), fx.TenantID, priceReq(fx, 2))
	assert.True(t, errors.Is(err, domain.ErrNoRatePlan))
}

func TestPriceAppliesPlanRules(t *testing.T) {
	svc, fx, clock := newService(t, storetest.FixtureOptions{DefaultBasePrice: 5000})
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, fx.TenantID, CreatePlanRequest{
		PropertyID: fx.Property.ID,
		RoomTypeID: &fx.RoomType.ID,
		Name:       "Standard",
		BasePrice:  1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "NPR", plan.Currency)
	assert.Equal(t, 1, plan.MinStay)

	clock.Advance(time.Minute)
	_, err = svc.AddRule(ctx, fx.TenantID, plan.ID, domain.RatePlanRule{ModifierType: domain.ModifierAmount, ModifierValue: 200, Priority: 1})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	pct, err := svc.AddRule(ctx, fx.TenantID, plan.ID, domain.RatePlanRule{ModifierType: domain.ModifierPercent, ModifierValue: 10, Priority: 2})
	require.NoError(t, err)

	q, err := svc.Price(ctx, fx.TenantID, priceReq(fx, 2))
	require.NoError(t, err)
	assert.Equal(t, plan.ID, q.PlanID)
	assert.Equal(t, 1320.0, q.Nights[0].Amount)
	assert.Equal(t, 2640.0, q.Total)

	again, err := svc.Price(ctx, fx.TenantID, priceReq(fx, 2))
	require.NoError(t, err)
	assert.Equal(t, q, again)

	require.NoError(t, svc.RetireRule(ctx, fx.TenantID, plan.ID, pct.ID))
	q, err = svc.Price(ctx, fx.TenantID, priceReq(fx, 2))
	require.NoError(t, err)
	assert.Equal(t, 1200.0, q.Nights[0].Amount, "retired rules stop applying")

	err = svc.RetireRule(ctx, fx.TenantID, plan.ID, pct.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPriceNoPlanAdmitsStay(t *testing.T) {
	svc, fx, _ := newService(t, storetest.FixtureOptions{DefaultBasePrice: 5000})
	ctx := context.Background()

	_, err := svc.CreatePlan(ctx, fx.TenantID, CreatePlanRequest{
		PropertyID: fx.Property.ID,
		Name:       "Weekly",
		BasePrice:  800,
		MinStay:    7,
	})
	require.NoError(t, err)

	_, err = svc.Price(ctx, fx.TenantID, priceReq(fx, 2))
	var noPlan *domain.NoRatePlanError
	require.True(t, errors.As(err, &noPlan), "an existing plan disables the base price fallback")
	assert.Equal(t, 2, noPlan.Nights)

	q, err := svc.Price(ctx, fx.TenantID, priceReq(fx, 7))
	require.NoError(t, err)
	assert.Equal(t, 5600.0, q.Total)
}

func TestPriceRejectsCurrencyMismatch(t *testing.T) {
	svc, fx, _ := newService(t, storetest.FixtureOptions{DefaultBasePrice: 5000})

	req := priceReq(fx, 1)
	req.Currency = "usd"
	_, err := svc.Price(context.Background(), fx.TenantID, req)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	req.Currency = "npr"
	_, err = svc.Price(context.Background(), fx.TenantID, req)
	assert.NoError(t, err)
}

func TestPriceValidation(t *testing.T) {
	svc, fx, _ := newService(t, storetest.FixtureOptions{DefaultBasePrice: 5000})
	ctx := context.Background()

	req := priceReq(fx, 1)
	req.Occupancy = 0
	_, err := svc.Price(ctx, fx.TenantID, req)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	req = priceReq(fx, 0)
	_, err = svc.Price(ctx, fx.TenantID, req)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Price(ctx, "other-tenant", priceReq(fx, 1))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.AddRule(ctx, fx.TenantID, "missing", domain.RatePlanRule{ModifierType: domain.ModifierAmount})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
