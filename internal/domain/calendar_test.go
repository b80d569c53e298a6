package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCapacityValidate(t *testing.T) {
	assert.NoError(t, Capacity{Available: 3, Blocked: 1}.Validate())
	assert.NoError(t, Capacity{Available: 0, Blocked: 0}.Validate())
	assert.True(t, errors.Is(Capacity{Available: 1, Blocked: 2}.Validate(), ErrValidation))
	assert.True(t, errors.Is(Capacity{Available: 1, Blocked: -1}.Validate(), ErrValidation))
}

func TestSellableCapacityWithChannelCap(t *testing.T) {
	c := Capacity{Available: 10, Blocked: 2}
	assert.Equal(t, 8, SellableCapacity(c, nil))
	assert.Equal(t, 3, SellableCapacity(c, &ChannelAllocation{AllocatedCount: 3}))
	assert.Equal(t, 8, SellableCapacity(c, &ChannelAllocation{AllocatedCount: 20}))
	assert.Equal(t, 0, SellableCapacity(Capacity{}, nil))
}

func TestEffectiveAllocation(t *testing.T) {
	june1 := NewDate(2025, time.June, 1)
	june10 := NewDate(2025, time.June, 10)
	june15 := NewDate(2025, time.June, 15)

	allocs := []ChannelAllocation{
		{ID: "open", ChannelCode: "OTA", AllocatedCount: 5},
		{ID: "june", ChannelCode: "OTA", AllocatedCount: 2, EffectiveFrom: &june1, EffectiveTo: &june10},
		{ID: "other", ChannelCode: "DIRECT", AllocatedCount: 1},
	}

	got := EffectiveAllocation(allocs, "OTA", NewDate(2025, 6, 5))
	if assert.NotNil(t, got) {
		assert.Equal(t, "june", got.ID)
	}

	got = EffectiveAllocation(allocs, "OTA", june15)
	if assert.NotNil(t, got) {
		assert.Equal(t, "open", got.ID)
	}

	assert.Nil(t, EffectiveAllocation(allocs, "WALKIN", june1))
}

func TestRuleAppliesTo(t *testing.T) {
	start := NewDate(2025, 6, 1)
	end := NewDate(2025, 6, 30)
	two := 2
	rule := RatePlanRule{
		StartDate:    &start,
		EndDate:      &end,
		Weekdays:     []int{5, 6},
		MinOccupancy: &two,
	}

	assert.True(t, rule.AppliesTo(NewDate(2025, 6, 6), 2), "friday in window")
	assert.False(t, rule.AppliesTo(NewDate(2025, 6, 2), 2), "monday")
	assert.False(t, rule.AppliesTo(NewDate(2025, 6, 6), 1), "below occupancy band")
	assert.False(t, rule.AppliesTo(NewDate(2025, 7, 4), 2), "outside window")
	assert.True(t, rule.AppliesTo(end.AddDays(-2), 3), "saturday inside window")

	bounded := RatePlanRule{StartDate: &start, EndDate: &end}
	assert.True(t, bounded.AppliesTo(end, 1), "window end is inclusive")
	assert.True(t, bounded.AppliesTo(start, 1), "window start is inclusive")

	retired := time.Now()
	rule.RetiredAt = &retired
	assert.False(t, rule.AppliesTo(NewDate(2025, 6, 6), 2))
}

func TestMetadataValidate(t *testing.T) {
	assert.NoError(t, Metadata{"source": "web", "adults": float64(2), "vip": true, "note": nil}.Validate())
	assert.Error(t, Metadata{"nested": map[string]any{"a": 1}}.Validate())
	assert.Error(t, Metadata{"list": []any{1}}.Validate())
}
