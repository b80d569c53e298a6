package pricing

import (
	"math"
	"sort"

	"homestay/internal/domain"
)

// NightPrice is the computed price of one night and the rules that shaped it.
type NightPrice struct {
	Date         domain.Date `json:"date"`
	Amount       float64     `json:"amount"`
	AppliedRules []string    `json:"applied_rules,omitempty"`
}

type Quote struct {
	PlanID       string       `json:"rate_plan_id,omitempty"`
	PlanName     string       `json:"rate_plan_name"`
	Currency     string       `json:"currency"`
	Occupancy    int          `json:"occupancy"`
	Units        int          `json:"units"`
	Nights       []NightPrice `json:"nights"`
	NightlyTotal float64      `json:"nightly_total"`
	Total        float64      `json:"total"`
}

// SelectPlan picks the plan that prices a stay of the given length. Plans
// scoped to the room type beat property-wide plans; within a tier the oldest
// plan wins, then the lowest id. nil means no plan applies.
func SelectPlan(plans []domain.RatePlan, roomTypeID string, nights int) *domain.RatePlan {
	var best *domain.RatePlan
	for i := range plans {
		p := &plans[i]
		if !p.Active || !p.AdmitsStay(nights) {
			continue
		}
		if p.RoomTypeSpecific() && *p.RoomTypeID != roomTypeID {
			continue
		}
		if best == nil || precedes(p, best) {
			best = p
		}
	}
	return best
}

func precedes(a, b *domain.RatePlan) bool {
	if a.RoomTypeSpecific() != b.RoomTypeSpecific() {
		return a.RoomTypeSpecific()
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// orderedRules returns the plan's rules by ascending priority, breaking ties
// by creation time and id.
func orderedRules(rules []domain.RatePlanRule) []domain.RatePlanRule {
	out := make([]domain.RatePlanRule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// NightlyPrice applies the matching rules to the plan's base price for one
// night. Percentages compound on the running amount, which is rounded to
// cents after every step.
func NightlyPrice(plan *domain.RatePlan, rules []domain.RatePlanRule, d domain.Date, occupancy int) NightPrice {
	amount := plan.BasePrice
	var applied []string
	for i := range rules {
		r := &rules[i]
		if !r.AppliesTo(d, occupancy) {
			continue
		}
		switch r.ModifierType {
		case domain.ModifierAmount:
			amount += r.ModifierValue
		case domain.ModifierPercent:
			amount *= 1 + r.ModifierValue/100
		}
		amount = round2(amount)
		applied = append(applied, r.ID)
	}
	if amount < 0 {
		amount = 0
	}
	return NightPrice{Date: d, Amount: amount, AppliedRules: applied}
}

// Compute prices every night of rng under plan. It is a pure function of its
// arguments.
func Compute(plan *domain.RatePlan, currency string, rng domain.DateRange, occupancy, units int) Quote {
	if units < 1 {
		units = 1
	}
	rules := orderedRules(plan.Rules)
	q := Quote{
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Currency:  currency,
		Occupancy: occupancy,
		Units:     units,
	}
	for _, d := range rng.Days() {
		n := NightlyPrice(plan, rules, d, occupancy)
		q.Nights = append(q.Nights, n)
		q.NightlyTotal += n.Amount
	}
	q.NightlyTotal = round2(q.NightlyTotal)
	q.Total = round2(q.NightlyTotal * float64(units))
	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
